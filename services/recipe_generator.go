package services

import (
	"context"
	"fmt"
	"strings"

	"flow-pantry-system/models"
	"flow-pantry-system/recipejson"

	"go.uber.org/zap"
)

const (
	recipeTemperature     float32 = 0.3
	recipeMaxOutputTokens int32   = 1000
)

// CompletionOptions are the generation parameters sent with a prompt.
type CompletionOptions struct {
	Temperature     float32
	MaxOutputTokens int32
}

// TextCompleter sends one prompt and returns the model's text reply.
type TextCompleter interface {
	Complete(ctx context.Context, prompt string, opts CompletionOptions) (string, error)
}

type RecipeGenerator struct {
	Completer TextCompleter
	Log       *zap.Logger
}

func NewRecipeGenerator(completer TextCompleter, log *zap.Logger) *RecipeGenerator {
	return &RecipeGenerator{Completer: completer, Log: log}
}

// Generate asks the model for a recipe and recovers it from the reply.
// Nothing is retried; an unusable reply is a MalformedResponse error.
func (g *RecipeGenerator) Generate(ctx context.Context, ingredients, dietary string) (*models.Recipe, error) {
	ingredients = strings.TrimSpace(ingredients)
	if ingredients == "" {
		return nil, models.NewValidationError("ingredients", "is required")
	}
	dietary = strings.TrimSpace(dietary)

	text, err := g.Completer.Complete(ctx, BuildRecipePrompt(ingredients, dietary), CompletionOptions{
		Temperature:     recipeTemperature,
		MaxOutputTokens: recipeMaxOutputTokens,
	})
	if err != nil {
		g.Log.Error("[Recipes] completion failed", zap.Error(err))
		return nil, fmt.Errorf("recipe completion: %w", err)
	}

	recipe, err := recipejson.Recover(text)
	if err != nil {
		g.Log.Warn("⚠️ [Recipes] unusable completion", zap.String("raw", text), zap.Error(err))
		return nil, err
	}
	recipe.Dietary = dietary
	return recipe, nil
}

// BuildRecipePrompt embeds the ingredients and optional dietary line in the fixed instructions.
func BuildRecipePrompt(ingredients, dietary string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a cooking expert. Create a recipe using these ingredients: %s.\n", ingredients)
	if dietary != "" {
		fmt.Fprintf(&b, "Consider these dietary restrictions: %s.\n", dietary)
	}
	b.WriteString(`You must respond ONLY with a valid JSON object, no additional text or explanations.
NOTE: the nutritional info must be a string for example "50 grams"
The JSON must follow this exact structure:
{
  "name": "Recipe Name",
  "prepTime": "preparation time in minutes",
  "cookTime": "cooking time in minutes",
  "servings": number,
  "ingredients": [
    "ingredient 1 with quantity",
    "ingredient 2 with quantity"
  ],
  "instructions": [
    "step 1",
    "step 2"
  ],
  "nutritionalInfo": {
    "calories": "amount per serving",
    "protein": "grams per serving",
    "carbs": "grams per serving",
    "fat": "grams per serving"
  }
}`)
	return b.String()
}
