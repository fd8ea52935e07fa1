// Package validation holds the field rules applied before writes.
// Every function stops at the first violation and returns a *models.ValidationError.
package validation

import (
	"encoding/json"
	"math"
	"strings"
	"time"

	"flow-pantry-system/models"
)

const (
	maxFlowFieldLength = 200
	maxFlowTags        = 20
)

var profileFields = map[string]bool{
	"displayName": true,
	"photoURL":    true,
	"email":       true,
}

// InventoryMetadata checks the fields of a new inventory item.
func InventoryMetadata(fields map[string]any) error {
	if err := requireString(fields, "name"); err != nil {
		return err
	}
	if err := requireString(fields, "category"); err != nil {
		return err
	}
	q, ok := fields["quantity"]
	if !ok || q == nil {
		return models.NewValidationError("quantity", "is required")
	}
	if err := checkQuantity(q); err != nil {
		return err
	}
	if d, ok := fields["expiryDate"]; ok {
		return checkDate("expiryDate", d)
	}
	return nil
}

// InventoryUpdate applies the quantity and date rules to the fields present in patch.
func InventoryUpdate(patch map[string]any) error {
	if q, ok := patch["quantity"]; ok {
		if err := checkQuantity(q); err != nil {
			return err
		}
	}
	if d, ok := patch["expiryDate"]; ok {
		if err := checkDate("expiryDate", d); err != nil {
			return err
		}
	}
	for _, key := range []string{"name", "category"} {
		if v, ok := patch[key]; ok {
			if s, isString := v.(string); !isString || strings.TrimSpace(s) == "" {
				return models.NewValidationError(key, "must be a non-empty string")
			}
		}
	}
	return nil
}

// InventoryItem is the typed form of InventoryMetadata.
func InventoryItem(item *models.InventoryItem) error {
	if strings.TrimSpace(item.Name) == "" {
		return models.NewValidationError("name", "is required")
	}
	if strings.TrimSpace(item.Category) == "" {
		return models.NewValidationError("category", "is required")
	}
	if item.Quantity < 0 {
		return models.NewValidationError("quantity", "must be zero or greater")
	}
	if item.ExpiryDate != nil {
		return checkDate("expiryDate", *item.ExpiryDate)
	}
	return nil
}

// ProfileUpdate only lets displayName, photoURL and email through.
func ProfileUpdate(patch map[string]any) error {
	if len(patch) == 0 {
		return models.NewValidationError("profile", "no fields to update")
	}
	for key, v := range patch {
		if !profileFields[key] {
			return models.NewValidationError(key, "cannot be updated")
		}
		if _, ok := v.(string); !ok {
			return models.NewValidationError(key, "must be a string")
		}
	}
	if email, ok := patch["email"].(string); ok && !strings.Contains(email, "@") {
		return models.NewValidationError("email", "must be a valid email address")
	}
	return nil
}

func Identity(id models.Identity) error {
	if strings.TrimSpace(id.UID) == "" {
		return models.NewValidationError("uid", "is required")
	}
	if strings.TrimSpace(id.Email) == "" {
		return models.NewValidationError("email", "is required")
	}
	return nil
}

func FlowMetadata(fileName string, meta models.FlowMetadata) error {
	if strings.TrimSpace(fileName) == "" {
		return models.NewValidationError("fileName", "is required")
	}
	if meta.PageCount < 0 {
		return models.NewValidationError("pageCount", "must be zero or greater")
	}
	bounded := []struct{ field, value string }{
		{"title", meta.Title},
		{"tournament", meta.Tournament},
		{"round", meta.Round},
		{"team", meta.Team},
		{"judge", meta.Judge},
		{"division", meta.Division},
	}
	for _, b := range bounded {
		if len(b.value) > maxFlowFieldLength {
			return models.NewValidationError(b.field, "is too long")
		}
	}
	if len(meta.Tags) > maxFlowTags {
		return models.NewValidationError("tags", "too many tags")
	}
	return nil
}

func Tournament(fields map[string]any) error {
	if err := requireString(fields, "name"); err != nil {
		return err
	}
	if d, ok := fields["date"]; ok {
		return checkDate("date", d)
	}
	return nil
}

// ParseDate accepts a calendar date or an RFC3339 timestamp.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

func requireString(fields map[string]any, key string) error {
	v, ok := fields[key].(string)
	if !ok || strings.TrimSpace(v) == "" {
		return models.NewValidationError(key, "is required")
	}
	return nil
}

func checkQuantity(v any) error {
	n, ok := number(v)
	if !ok {
		return models.NewValidationError("quantity", "must be a number")
	}
	if n < 0 {
		return models.NewValidationError("quantity", "must be zero or greater")
	}
	if n != math.Trunc(n) {
		return models.NewValidationError("quantity", "must be a whole number")
	}
	return nil
}

// checkDate treats nil and "" as absent.
func checkDate(field string, v any) error {
	switch d := v.(type) {
	case nil:
		return nil
	case string:
		if d == "" {
			return nil
		}
		if _, err := ParseDate(d); err != nil {
			return models.NewValidationError(field, "must be a valid date")
		}
		return nil
	case *string:
		if d == nil {
			return nil
		}
		return checkDate(field, *d)
	case time.Time:
		return nil
	}
	return models.NewValidationError(field, "must be a valid date")
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), !math.IsNaN(float64(n))
	case float64:
		return n, !math.IsNaN(n) && !math.IsInf(n, 0)
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// Quantity converts an already validated quantity to an int.
func Quantity(v any) int {
	n, _ := number(v)
	return int(n)
}
