package handlers

import (
	"flow-pantry-system/middleware"
	"flow-pantry-system/models"
	"flow-pantry-system/services"
	"flow-pantry-system/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type RecipeHandler struct {
	Recipes *services.RecipeService
	// Generator is nil when no completion backend is configured.
	Generator *services.RecipeGenerator
	Log       *zap.Logger
}

func SetupRecipeRoutes(app fiber.Router, h *RecipeHandler) {
	secured := app.Group("/recipes", middleware.RequireAuth())

	secured.Post("/generate", h.GenerateRecipe)
	secured.Post("/", h.SaveRecipe)
	secured.Get("/", h.ListRecipes)
	secured.Get("/:id", h.GetRecipe)
}

type generateRequest struct {
	Ingredients string `json:"ingredients"`
	Dietary     string `json:"dietary"`
}

func (h *RecipeHandler) GenerateRecipe(c *fiber.Ctx) error {
	if h.Generator == nil {
		return utils.ErrorResponse(c, "recipe generation is not configured", fiber.StatusServiceUnavailable, "unavailable")
	}
	var req generateRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "body must be a JSON object")
	}
	recipe, err := h.Generator.Generate(c.UserContext(), req.Ingredients, req.Dietary)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(recipe)
}

func (h *RecipeHandler) SaveRecipe(c *fiber.Ctx) error {
	var recipe models.Recipe
	if err := c.BodyParser(&recipe); err != nil {
		return badRequest(c, "body must be a recipe object")
	}
	saved, err := h.Recipes.SaveRecipe(c.UserContext(), middleware.UserID(c), recipe)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(saved)
}

func (h *RecipeHandler) ListRecipes(c *fiber.Ctx) error {
	recipes, err := h.Recipes.ListUserRecipes(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(recipes)
}

func (h *RecipeHandler) GetRecipe(c *fiber.Ctx) error {
	recipe, err := h.Recipes.GetRecipe(c.UserContext(), c.Params("id"), middleware.UserID(c))
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(recipe)
}
