package models

// Tournament groups flows from one competitive event.
// Flows holds flow ids and is kept in step with Flow.Tournament.ID.
type Tournament struct {
	Document
	Name         string     `json:"name" gorm:"index;not null"`
	Slug         string     `json:"slug" gorm:"index"`
	Date         string     `json:"date"`
	Location     string     `json:"location"`
	Description  string     `json:"description"`
	Flows        StringList `json:"flows"`
	Participants StringList `json:"participants"`
	CreatedBy    string     `json:"createdBy" gorm:"index;not null"`
	IsPublic     bool       `json:"isPublic"`
}

func (Tournament) TableName() string { return "tournaments" }
