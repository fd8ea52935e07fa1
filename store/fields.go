package store

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"flow-pantry-system/models"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// kindSchema maps the JSON names of a model onto its columns.
type kindSchema struct {
	kind   Kind
	typ    reflect.Type
	fields map[string]*schema.Field
}

var kindModels = map[Kind]any{
	Users:       &models.User{},
	Flows:       &models.Flow{},
	Inventory:   &models.InventoryItem{},
	Tournaments: &models.Tournament{},
	Recipes:     &models.Recipe{},
}

func buildSchemas(db *gorm.DB) (map[Kind]*kindSchema, error) {
	out := make(map[Kind]*kindSchema, len(kindModels))
	for kind, model := range kindModels {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(model); err != nil {
			return nil, fmt.Errorf("parse %s schema: %w", kind, err)
		}
		if stmt.Schema.Table != string(kind) {
			return nil, fmt.Errorf("kind %s is stored in table %s", kind, stmt.Schema.Table)
		}
		typ := reflect.TypeOf(model).Elem()
		ks := &kindSchema{kind: kind, typ: typ, fields: map[string]*schema.Field{}}
		for _, f := range stmt.Schema.Fields {
			if f.DBName == "" {
				continue
			}
			if name := jsonPath(typ, f.BindNames); name != "" {
				ks.fields[name] = f
			}
		}
		out[kind] = ks
	}
	return out, nil
}

// jsonPath walks the Go field path and joins the JSON names, skipping anonymous embeds.
func jsonPath(t reflect.Type, names []string) string {
	parts := make([]string, 0, len(names))
	for _, name := range names {
		sf, ok := t.FieldByName(name)
		if !ok {
			return ""
		}
		if !sf.Anonymous {
			tag := strings.Split(sf.Tag.Get("json"), ",")[0]
			if tag == "-" {
				return ""
			}
			if tag == "" {
				tag = name
			}
			parts = append(parts, tag)
		}
		t = sf.Type
		for t.Kind() == reflect.Ptr {
			t = t.Elem()
		}
	}
	return strings.Join(parts, ".")
}

func (ks *kindSchema) field(name string) (*schema.Field, error) {
	f, ok := ks.fields[name]
	if !ok {
		return nil, models.NewValidationError(name, fmt.Sprintf("unknown field on %s", ks.kind))
	}
	return f, nil
}

func (ks *kindSchema) isPrefix(name string) bool {
	prefix := name + "."
	for key := range ks.fields {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}

// flatten expands nested objects into dotted keys for embedded structs.
func (ks *kindSchema) flatten(patch map[string]any, prefix string, out map[string]any) {
	for key, v := range patch {
		name := prefix + key
		if nested, ok := v.(map[string]any); ok && ks.isPrefix(name) {
			ks.flatten(nested, name+".", out)
			continue
		}
		out[name] = v
	}
}

// coerce converts a loosely typed patch value into the field's Go type.
func coerce(name string, f *schema.Field, v any) (any, error) {
	if v == nil {
		if f.FieldType.Kind() == reflect.Ptr {
			return nil, nil
		}
		return reflect.Zero(f.FieldType).Interface(), nil
	}
	if s, ok := v.(string); ok && s == "" && f.FieldType.Kind() == reflect.Ptr {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, models.NewValidationError(name, "cannot be encoded")
	}
	ptr := reflect.New(f.FieldType)
	if err := json.Unmarshal(raw, ptr.Interface()); err != nil {
		return nil, models.NewValidationError(name, "has the wrong type")
	}
	return ptr.Elem().Interface(), nil
}

func toStrings(v any) []string {
	switch vals := v.(type) {
	case string:
		return []string{vals}
	case []string:
		return vals
	case models.StringList:
		return vals
	case []any:
		out := make([]string, 0, len(vals))
		for _, item := range vals {
			out = append(out, fmt.Sprint(item))
		}
		return out
	}
	return []string{fmt.Sprint(v)}
}

func toValues(v any) []any {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return []any{v}
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}
