package services

import (
	"context"
	"fmt"
	"strings"

	"flow-pantry-system/models"
	"flow-pantry-system/store"

	"go.uber.org/zap"
)

type RecipeService struct {
	Store store.Store
	Log   *zap.Logger
}

func NewRecipeService(st store.Store, log *zap.Logger) *RecipeService {
	return &RecipeService{Store: st, Log: log}
}

// SaveRecipe stores a copy of recipe owned by uid. Saved recipes are immutable.
func (s *RecipeService) SaveRecipe(ctx context.Context, uid string, recipe models.Recipe) (*models.Recipe, error) {
	if strings.TrimSpace(recipe.Name) == "" {
		return nil, models.NewValidationError("name", "is required")
	}
	recipe.Document = models.Document{}
	recipe.UserID = uid
	if recipe.Ingredients == nil {
		recipe.Ingredients = models.StringList{}
	}
	if recipe.Instructions == nil {
		recipe.Instructions = models.StringList{}
	}

	if err := s.Store.Create(ctx, store.Recipes, &recipe); err != nil {
		s.Log.Error("[Recipes] save failed", zap.String("user_id", uid), zap.Error(err))
		return nil, err
	}
	return &recipe, nil
}

func (s *RecipeService) ListUserRecipes(ctx context.Context, uid string) ([]models.Recipe, error) {
	var recipes []models.Recipe
	if err := s.Store.Query(ctx, store.Recipes, store.Query{
		Conditions: []store.Condition{store.Where("userId", store.OpEqual, uid)},
		OrderBy:    "createdAt",
		Direction:  store.Desc,
	}, &recipes); err != nil {
		s.Log.Error("[Recipes] list failed", zap.String("user_id", uid), zap.Error(err))
		return nil, err
	}
	return recipes, nil
}

func (s *RecipeService) GetRecipe(ctx context.Context, id, uid string) (*models.Recipe, error) {
	var recipe models.Recipe
	if err := s.Store.Get(ctx, store.Recipes, id, &recipe); err != nil {
		return nil, err
	}
	if recipe.UserID != uid {
		return nil, fmt.Errorf("recipe %s belongs to another user: %w", id, models.ErrUnauthorized)
	}
	return &recipe, nil
}
