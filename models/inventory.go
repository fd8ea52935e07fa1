package models

import "time"

const DefaultCategory = "Uncategorized"

// InventoryItem is a tracked pantry good with an optional photo.
type InventoryItem struct {
	Document
	UserID          string     `json:"userId" gorm:"index;not null"`
	FileName        string     `json:"fileName"`
	ImageURL        string     `json:"imageUrl"`
	Name            string     `json:"name"`
	Quantity        int        `json:"quantity"`
	Category        string     `json:"category" gorm:"index"`
	Notes           string     `json:"notes"`
	ExpiryDate      *string    `json:"expiryDate,omitempty"`
	DetectedLabels  StringList `json:"detectedLabels"`
	LabelsCheckedAt *time.Time `json:"labelsCheckedAt,omitempty" gorm:"index"`
}

func (InventoryItem) TableName() string { return "inventory" }

// InventoryFilter narrows a user's inventory listing.
type InventoryFilter struct {
	Category   string `json:"category" query:"category"`
	ExpiryDate string `json:"expiryDate" query:"expiryDate"`
	Search     string `json:"search" query:"search"`
}
