package store

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"flow-pantry-system/models"
	"flow-pantry-system/validation"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// protected fields are owned by the gateway and never patched.
var protected = map[string]bool{"id": true, "createdAt": true, "updatedAt": true}

// Gateway implements Store on gorm.
type Gateway struct {
	db    *gorm.DB
	log   *zap.Logger
	now   func() time.Time
	kinds map[Kind]*kindSchema
}

type Option func(*Gateway)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) { g.now = now }
}

func NewGateway(db *gorm.DB, log *zap.Logger, opts ...Option) (*Gateway, error) {
	kinds, err := buildSchemas(db)
	if err != nil {
		return nil, err
	}
	g := &Gateway{
		db:    db,
		log:   log,
		now:   time.Now,
		kinds: kinds,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

func (g *Gateway) stamp() time.Time {
	return g.now().UTC()
}

func (g *Gateway) schemaFor(kind Kind) (*kindSchema, error) {
	ks, ok := g.kinds[kind]
	if !ok {
		return nil, fmt.Errorf("unknown kind %q: %w", kind, models.ErrValidation)
	}
	return ks, nil
}

func (g *Gateway) checkType(ks *kindSchema, doc any) error {
	if t := reflect.TypeOf(doc); t.Kind() != reflect.Ptr || t.Elem() != ks.typ {
		return fmt.Errorf("%T is not a %s document: %w", doc, ks.kind, models.ErrValidation)
	}
	return nil
}

func (g *Gateway) fail(op string, kind Kind, id string, err error) error {
	if errors.Is(err, models.ErrNotFound) || errors.Is(err, models.ErrValidation) {
		g.log.Debug("[Store] rejected", zap.String("op", op), zap.String("kind", string(kind)), zap.String("id", id), zap.Error(err))
	} else {
		g.log.Error("[Store] operation failed", zap.String("op", op), zap.String("kind", string(kind)), zap.String("id", id), zap.Error(err))
	}
	return fmt.Errorf("%s %s: %w", op, kind, err)
}

func (g *Gateway) Create(ctx context.Context, kind Kind, doc Record) error {
	ks, err := g.schemaFor(kind)
	if err != nil {
		return err
	}
	if err := g.checkType(ks, doc); err != nil {
		return err
	}
	if item, ok := doc.(*models.InventoryItem); ok {
		if err := validation.InventoryItem(item); err != nil {
			return g.fail("create", kind, item.ID, err)
		}
	}

	now := g.stamp()
	if doc.DocumentID() == "" {
		doc.SetDocumentID(uuid.NewString())
	}
	doc.Stamp(now, now)

	if err := g.db.WithContext(ctx).Create(doc).Error; err != nil {
		return g.fail("create", kind, doc.DocumentID(), err)
	}
	return nil
}

func (g *Gateway) Get(ctx context.Context, kind Kind, id string, dest Record) error {
	ks, err := g.schemaFor(kind)
	if err != nil {
		return err
	}
	if err := g.checkType(ks, dest); err != nil {
		return err
	}
	if err := g.db.WithContext(ctx).Where("id = ?", id).Take(dest).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return g.fail("get", kind, id, fmt.Errorf("%s %s: %w", kind, id, models.ErrNotFound))
		}
		return g.fail("get", kind, id, err)
	}
	return nil
}

func (g *Gateway) Update(ctx context.Context, kind Kind, id string, patch map[string]any) error {
	ks, err := g.schemaFor(kind)
	if err != nil {
		return err
	}
	if kind == Inventory {
		if err := validation.InventoryUpdate(patch); err != nil {
			return g.fail("update", kind, id, err)
		}
	}

	flat := make(map[string]any, len(patch))
	ks.flatten(patch, "", flat)

	columns := make(map[string]any, len(flat)+1)
	for name, v := range flat {
		if protected[name] {
			return g.fail("update", kind, id, models.NewValidationError(name, "cannot be updated"))
		}
		f, err := ks.field(name)
		if err != nil {
			return g.fail("update", kind, id, err)
		}
		value, err := coerce(name, f, v)
		if err != nil {
			return g.fail("update", kind, id, err)
		}
		columns[f.DBName] = value
	}
	columns["updated_at"] = g.stamp()

	res := g.db.WithContext(ctx).
		Model(reflect.New(ks.typ).Interface()).
		Where("id = ?", id).
		Updates(columns)
	if res.Error != nil {
		return g.fail("update", kind, id, res.Error)
	}
	if res.RowsAffected == 0 {
		return g.fail("update", kind, id, fmt.Errorf("%s %s: %w", kind, id, models.ErrNotFound))
	}
	return nil
}

func (g *Gateway) Replace(ctx context.Context, kind Kind, doc Record) error {
	ks, err := g.schemaFor(kind)
	if err != nil {
		return err
	}
	if err := g.checkType(ks, doc); err != nil {
		return err
	}
	if item, ok := doc.(*models.InventoryItem); ok {
		if err := validation.InventoryItem(item); err != nil {
			return g.fail("replace", kind, item.ID, err)
		}
	}
	if doc.DocumentID() == "" {
		return g.fail("replace", kind, "", models.NewValidationError("id", "is required"))
	}

	doc.Stamp(time.Time{}, g.stamp())
	res := g.db.WithContext(ctx).
		Model(doc).
		Select("*").
		Omit("id", "created_at").
		Updates(doc)
	if res.Error != nil {
		return g.fail("replace", kind, doc.DocumentID(), res.Error)
	}
	if res.RowsAffected == 0 {
		return g.fail("replace", kind, doc.DocumentID(), fmt.Errorf("%s %s: %w", kind, doc.DocumentID(), models.ErrNotFound))
	}
	return nil
}

func (g *Gateway) Delete(ctx context.Context, kind Kind, id string) error {
	ks, err := g.schemaFor(kind)
	if err != nil {
		return err
	}
	if err := g.db.WithContext(ctx).Where("id = ?", id).Delete(reflect.New(ks.typ).Interface()).Error; err != nil {
		return g.fail("delete", kind, id, err)
	}
	return nil
}

func (g *Gateway) Query(ctx context.Context, kind Kind, q Query, dest any) error {
	ks, err := g.schemaFor(kind)
	if err != nil {
		return err
	}
	if t := reflect.TypeOf(dest); t == nil || t.Kind() != reflect.Ptr || t.Elem().Kind() != reflect.Slice || t.Elem().Elem() != ks.typ {
		return fmt.Errorf("query %s: dest must be *[]%s: %w", kind, ks.typ.Name(), models.ErrValidation)
	}

	tx := g.db.WithContext(ctx).Model(reflect.New(ks.typ).Interface())
	for _, c := range q.Conditions {
		expr, err := g.condition(ks, c)
		if err != nil {
			return g.fail("query", kind, "", err)
		}
		tx = tx.Where(expr)
	}
	if q.OrderBy != "" {
		f, err := ks.field(q.OrderBy)
		if err != nil {
			return g.fail("query", kind, "", err)
		}
		tx = tx.Order(clause.OrderByColumn{
			Column: clause.Column{Table: clause.CurrentTable, Name: f.DBName},
			Desc:   q.Direction == Desc,
		})
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}
	if err := tx.Find(dest).Error; err != nil {
		return g.fail("query", kind, "", err)
	}
	return nil
}

func (g *Gateway) condition(ks *kindSchema, c Condition) (clause.Expression, error) {
	f, err := ks.field(c.Field)
	if err != nil {
		return nil, err
	}
	col := clause.Column{Table: clause.CurrentTable, Name: f.DBName}

	switch c.Op {
	case OpEqual:
		return clause.Eq{Column: col, Value: c.Value}, nil
	case OpNotEqual:
		return clause.Neq{Column: col, Value: c.Value}, nil
	case OpLess:
		return clause.Lt{Column: col, Value: c.Value}, nil
	case OpLessEqual:
		return clause.Lte{Column: col, Value: c.Value}, nil
	case OpGreater:
		return clause.Gt{Column: col, Value: c.Value}, nil
	case OpGreaterEqual:
		return clause.Gte{Column: col, Value: c.Value}, nil
	case OpIn:
		return clause.IN{Column: col, Values: toValues(c.Value)}, nil
	case OpArrayContains, OpArrayContainsAny:
		values := toStrings(c.Value)
		if c.Op == OpArrayContains && len(values) != 1 {
			return nil, models.NewValidationError(c.Field, "array-contains takes a single value")
		}
		return g.arrayMembership(col, values), nil
	}
	return nil, models.NewValidationError(c.Field, fmt.Sprintf("unsupported operator %q", c.Op))
}

// arrayMembership matches rows whose JSON array column shares an element with values.
func (g *Gateway) arrayMembership(col clause.Column, values []string) clause.Expression {
	if len(values) == 0 {
		return clause.Expr{SQL: "1 = 0"}
	}
	if g.db.Dialector.Name() == "postgres" {
		return clause.Expr{
			SQL:  "EXISTS (SELECT 1 FROM jsonb_array_elements_text(?) AS elem(value) WHERE elem.value IN ?)",
			Vars: []any{col, values},
		}
	}
	return clause.Expr{
		SQL:  "EXISTS (SELECT 1 FROM json_each(?) WHERE json_each.value IN ?)",
		Vars: []any{col, values},
	}
}

func (g *Gateway) Transaction(ctx context.Context, fn func(Store) error) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Gateway{db: tx, log: g.log, now: g.now, kinds: g.kinds})
	})
}
