// Package store is the document persistence gateway. Every kind is a table,
// every document field is addressed by its JSON name.
package store

import (
	"context"
	"time"
)

type Kind string

const (
	Users       Kind = "users"
	Flows       Kind = "flows"
	Inventory   Kind = "inventory"
	Tournaments Kind = "tournaments"
	Recipes     Kind = "recipes"
)

// Record is implemented by every stored document through models.Document.
type Record interface {
	DocumentID() string
	SetDocumentID(id string)
	Created() time.Time
	Stamp(created, updated time.Time)
}

type Op string

const (
	OpEqual            Op = "=="
	OpNotEqual         Op = "!="
	OpLess             Op = "<"
	OpLessEqual        Op = "<="
	OpGreater          Op = ">"
	OpGreaterEqual     Op = ">="
	OpIn               Op = "in"
	OpArrayContains    Op = "array-contains"
	OpArrayContainsAny Op = "array-contains-any"
)

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Condition is one clause of a query. Field is the document's JSON name,
// nested fields use dots ("tournament.id"). An OpEqual with a nil Value matches null.
type Condition struct {
	Field string
	Op    Op
	Value any
}

func Where(field string, op Op, value any) Condition {
	return Condition{Field: field, Op: op, Value: value}
}

// Query is an ordered conjunction of conditions with one sort key and an optional cap.
type Query struct {
	Conditions []Condition
	OrderBy    string
	Direction  Direction
	Limit      int
}

// Store is the contract the domain services depend on.
type Store interface {
	// Create stamps timestamps, assigns an id when the document has none and inserts it.
	Create(ctx context.Context, kind Kind, doc Record) error
	// Get loads the document into dest or returns models.ErrNotFound.
	Get(ctx context.Context, kind Kind, id string, dest Record) error
	// Update merges patch into the stored document and re-stamps updatedAt.
	Update(ctx context.Context, kind Kind, id string, patch map[string]any) error
	// Replace overwrites every field of an existing document except id and createdAt.
	Replace(ctx context.Context, kind Kind, doc Record) error
	// Delete removes the document. Deleting a missing document succeeds.
	Delete(ctx context.Context, kind Kind, id string) error
	// Query fills dest, a pointer to a slice of the kind's model.
	Query(ctx context.Context, kind Kind, q Query, dest any) error
	// Transaction runs fn against a Store bound to one database transaction.
	Transaction(ctx context.Context, fn func(Store) error) error
}
