package models

const (
	FlowStatusActive  = "active"
	FlowStatusDeleted = "deleted"
)

// TournamentRef is the copy of a tournament embedded on each flow.
type TournamentRef struct {
	ID   string `json:"id" gorm:"index"`
	Name string `json:"name"`
	Date string `json:"date"`
}

// Flow is an uploaded debate round document.
type Flow struct {
	Document
	UserID         string        `json:"userId" gorm:"index;not null"`
	FileName       string        `json:"fileName"`
	FileURL        string        `json:"fileUrl"`
	Title          string        `json:"title"`
	Tournament     TournamentRef `json:"tournament" gorm:"embedded;embeddedPrefix:tournament_"`
	Round          string        `json:"round"`
	Team           string        `json:"team"`
	Judge          string        `json:"judge"`
	Division       string        `json:"division"`
	Tags           StringList    `json:"tags"`
	PageCount      int           `json:"pageCount"`
	FileSize       int64         `json:"fileSize"`
	SearchableText string        `json:"searchableText"`
	Status         string        `json:"status" gorm:"index"`
}

func (Flow) TableName() string { return "flows" }

// FlowMetadata is the caller-supplied description of a flow upload.
type FlowMetadata struct {
	Title          string     `json:"title"`
	Tournament     string     `json:"tournament"`
	TournamentDate string     `json:"tournamentDate"`
	Round          string     `json:"round"`
	Team           string     `json:"team"`
	Judge          string     `json:"judge"`
	Division       string     `json:"division"`
	Tags           StringList `json:"tags"`
	PageCount      int        `json:"pageCount"`
}

// FlowFilter narrows a user's flow listing. Round and Division match exactly,
// Team, Judge, Title and Tournament match as case-insensitive substrings.
type FlowFilter struct {
	Round      string   `json:"round" query:"round"`
	Division   string   `json:"division" query:"division"`
	Tags       []string `json:"tags" query:"tags"`
	StartDate  string   `json:"startDate" query:"startDate"`
	EndDate    string   `json:"endDate" query:"endDate"`
	Team       string   `json:"team" query:"team"`
	Judge      string   `json:"judge" query:"judge"`
	Title      string   `json:"title" query:"title"`
	Tournament string   `json:"tournament" query:"tournament"`
}
