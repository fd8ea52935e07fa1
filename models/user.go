package models

import (
	"time"

	"gorm.io/datatypes"
)

const DefaultAvatar = "/public/default-avatar.png"

// User is the per-account profile document, keyed by the auth subject id.
// Aggregate counters are rewritten by full re-scans after inventory or flow writes.
type User struct {
	Document
	DisplayName     string                             `json:"displayName"`
	Email           string                             `json:"email" gorm:"index"`
	PhotoURL        string                             `json:"photoURL"`
	TotalItems      int                                `json:"totalItems"`
	ItemsByCategory datatypes.JSONType[map[string]int] `json:"itemsByCategory"`
	TotalFlows      int                                `json:"totalFlows" gorm:"index"`
	TreesSpared     float64                            `json:"treesSpared"`
	LastScan        *time.Time                         `json:"lastScan,omitempty"`
}

func (User) TableName() string { return "users" }

// Identity is what the auth provider tells us about the signed-in subject.
type Identity struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoURL"`
}

// LeaderboardEntry is a user row with its derived environmental numbers.
type LeaderboardEntry struct {
	Rank        int     `json:"rank"`
	UserID      string  `json:"userId"`
	DisplayName string  `json:"displayName"`
	PhotoURL    string  `json:"photoURL"`
	TotalFlows  int     `json:"totalFlows"`
	TreesSpared float64 `json:"treesSpared"`
	CO2SavedKg  float64 `json:"co2SavedKg"`
}

// Leaderboard summarises the top flow uploaders.
type Leaderboard struct {
	Entries          []LeaderboardEntry `json:"entries"`
	TotalFlows       int                `json:"totalFlows"`
	TotalTreesSpared float64            `json:"totalTreesSpared"`
	TotalCO2SavedKg  float64            `json:"totalCo2SavedKg"`
}
