// Package recipejson turns free-text model output into a models.Recipe.
//
// Recovery runs in fixed order: the text is cleaned once (code fences stripped,
// the outermost {...} extracted), then each Pass is tried until one yields a
// JSON object carrying every required field.
package recipejson

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"flow-pantry-system/models"
)

var (
	fencePattern         = regexp.MustCompile("```json\\n?|\\n?```")
	objectPattern        = regexp.MustCompile(`(?s)\{.*\}`)
	trailingCommaPattern = regexp.MustCompile(`,(\s*[}\]])`)
)

// RequiredFields are the top-level keys a recipe must carry.
var RequiredFields = []string{"name", "prepTime", "cookTime", "servings", "ingredients", "instructions", "nutritionalInfo"}

// RequiredNutritionFields are the keys nutritionalInfo must carry.
var RequiredNutritionFields = []string{"calories", "protein", "carbs", "fat"}

// Pass rewrites cleaned text before a parse attempt.
type Pass struct {
	Name  string
	Apply func(string) string
}

// Passes are tried in order. Add a pass only together with a test for it.
var Passes = []Pass{
	{Name: "as-is", Apply: func(s string) string { return s }},
	{Name: "quote-and-comma-repair", Apply: RepairQuotesAndCommas},
}

// Clean strips Markdown fences and, unless the text already is a bare object,
// keeps the span from the first '{' to the last '}'.
func Clean(raw string) string {
	text := strings.TrimSpace(raw)
	text = fencePattern.ReplaceAllString(text, "")
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "{") && strings.HasSuffix(text, "}") {
		return text
	}
	if m := objectPattern.FindString(text); m != "" {
		return m
	}
	return text
}

// RepairQuotesAndCommas turns single quotes into double quotes and drops
// commas that sit directly before a closing bracket.
func RepairQuotesAndCommas(s string) string {
	s = strings.ReplaceAll(s, "'", `"`)
	return trailingCommaPattern.ReplaceAllString(s, "$1")
}

// Recover runs the passes over raw and returns the first complete recipe.
// It fails with *models.MalformedResponseError when no pass yields one.
func Recover(raw string) (*models.Recipe, error) {
	cleaned := Clean(raw)

	var firstMissing []string
	var lastErr error
	for _, pass := range Passes {
		doc, err := parseObject(pass.Apply(cleaned))
		if err != nil {
			lastErr = err
			continue
		}
		missing := Missing(doc)
		if len(missing) == 0 {
			return build(doc), nil
		}
		if firstMissing == nil {
			firstMissing = missing
		}
	}

	if firstMissing != nil {
		return nil, &models.MalformedResponseError{Missing: firstMissing}
	}
	return nil, &models.MalformedResponseError{Reason: fmt.Sprintf("response is not a JSON object: %v", lastErr)}
}

func parseObject(text string) (map[string]any, error) {
	var doc map[string]any
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("null document")
	}
	return doc, nil
}

// Missing lists required fields that are absent or empty. Nutrition keys are
// reported as "nutritionalInfo.<key>".
func Missing(doc map[string]any) []string {
	var missing []string
	for _, field := range RequiredFields {
		if empty(doc[field]) {
			missing = append(missing, field)
		}
	}
	nutrition, ok := doc["nutritionalInfo"].(map[string]any)
	if !ok {
		if !empty(doc["nutritionalInfo"]) {
			for _, field := range RequiredNutritionFields {
				missing = append(missing, "nutritionalInfo."+field)
			}
		}
		return missing
	}
	for _, field := range RequiredNutritionFields {
		if empty(nutrition[field]) {
			missing = append(missing, "nutritionalInfo."+field)
		}
	}
	return missing
}

// empty mirrors loose truthiness: nil, "", 0 and false count as absent.
func empty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case float64:
		return t == 0 || math.IsNaN(t)
	case bool:
		return !t
	}
	return false
}

func build(doc map[string]any) *models.Recipe {
	nutrition, _ := doc["nutritionalInfo"].(map[string]any)
	return &models.Recipe{
		Name:         text(doc["name"]),
		PrepTime:     text(doc["prepTime"]),
		CookTime:     text(doc["cookTime"]),
		Servings:     servings(doc["servings"]),
		Ingredients:  list(doc["ingredients"]),
		Instructions: list(doc["instructions"]),
		NutritionalInfo: models.NutritionalInfo{
			Calories: text(nutrition["calories"]),
			Protein:  text(nutrition["protein"]),
			Carbs:    text(nutrition["carbs"]),
			Fat:      text(nutrition["fat"]),
		},
	}
}

func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

// list wraps a bare value into a one-element list and drops empty entries.
func list(v any) models.StringList {
	items, ok := v.([]any)
	if !ok {
		items = []any{v}
	}
	out := make(models.StringList, 0, len(items))
	for _, item := range items {
		if empty(item) {
			continue
		}
		out = append(out, text(item))
	}
	return out
}

// servings accepts a number or numeric string, anything else becomes 1.
func servings(v any) int {
	var n float64
	switch t := v.(type) {
	case float64:
		n = t
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 1
		}
		n = f
	default:
		return 1
	}
	if n == 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return 1
	}
	return int(math.Round(n))
}
