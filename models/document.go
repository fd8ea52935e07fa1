package models

import "time"

// Document carries the identity and timestamps shared by every stored kind.
// Timestamps are stamped by the store, not by gorm.
type Document struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime:false;index"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"autoUpdateTime:false"`
}

func (d *Document) DocumentID() string      { return d.ID }
func (d *Document) SetDocumentID(id string) { d.ID = id }
func (d *Document) Created() time.Time      { return d.CreatedAt }

// Stamp sets both timestamps. A zero created keeps the current value.
func (d *Document) Stamp(created, updated time.Time) {
	if !created.IsZero() {
		d.CreatedAt = created
	}
	d.UpdatedAt = updated
}
