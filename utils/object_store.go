package utils

import (
	"context"
	"io"
	"path"
	"strings"
)

// ObjectStore saves binaries at caller-chosen paths and hands back a public locator.
// Delete accepts either the locator or the path and succeeds when the object is already gone.
type ObjectStore interface {
	Upload(ctx context.Context, body io.Reader, size int64, contentType, objectPath string) (string, error)
	Delete(ctx context.Context, locatorOrPath string) error
	Resolve(ctx context.Context, objectPath string) (string, error)
}

// ObjectPath builds the "{kind}/{userID}/{fileName}" key used for uploads.
func ObjectPath(kind, userID, fileName string) string {
	return path.Join(kind, userID, path.Base(fileName))
}

// keyFromLocator strips a known public prefix so locators and paths resolve to the same key.
func keyFromLocator(base, locatorOrPath string) string {
	key := locatorOrPath
	if base != "" {
		key = strings.TrimPrefix(key, strings.TrimRight(base, "/")+"/")
	}
	return strings.TrimLeft(key, "/")
}
