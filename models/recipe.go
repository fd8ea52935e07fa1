package models

type NutritionalInfo struct {
	Calories string `json:"calories"`
	Protein  string `json:"protein"`
	Carbs    string `json:"carbs"`
	Fat      string `json:"fat"`
}

// Recipe is a generated recipe. Saved recipes are never updated.
type Recipe struct {
	Document
	UserID          string          `json:"userId,omitempty" gorm:"index"`
	Name            string          `json:"name"`
	PrepTime        string          `json:"prepTime"`
	CookTime        string          `json:"cookTime"`
	Servings        int             `json:"servings"`
	Ingredients     StringList      `json:"ingredients"`
	Instructions    StringList      `json:"instructions"`
	NutritionalInfo NutritionalInfo `json:"nutritionalInfo" gorm:"embedded;embeddedPrefix:nutrition_"`
	Dietary         string          `json:"dietary,omitempty"`
}

func (Recipe) TableName() string { return "recipes" }
