package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"flow-pantry-system/middleware"
	"flow-pantry-system/models"
	"flow-pantry-system/services"
	"flow-pantry-system/store"
	"flow-pantry-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type stubCompleter struct{ reply string }

func (s stubCompleter) Complete(context.Context, string, services.CompletionOptions) (string, error) {
	return s.reply, nil
}

func setupTestApp(t *testing.T, completion string) *fiber.App {
	t.Helper()
	log := zaptest.NewLogger(t)
	db, err := store.Connect("sqlite", ":memory:", log)
	require.NoError(t, err)
	require.NoError(t, store.Migrate(db))

	gw, err := store.NewGateway(db, log)
	require.NoError(t, err)
	objects, err := utils.NewDiskStore(t.TempDir(), "/uploads")
	require.NoError(t, err)

	users := services.NewUserService(gw, log)
	tournaments := services.NewTournamentService(gw, log)
	hub := services.NewSessionHub()
	hub.Subscribe(services.EnsureUserOnSignIn(users, log))

	var generator *services.RecipeGenerator
	if completion != "" {
		generator = services.NewRecipeGenerator(stubCompleter{reply: completion}, log)
	}

	app := fiber.New()
	app.Use(middleware.SessionMiddleware(hub, "", log))
	SetupUserRoutes(app, &UserHandler{Users: users, Log: log})
	SetupFlowRoutes(app, &FlowHandler{Flows: services.NewFlowService(gw, objects, users, tournaments, log), Log: log})
	SetupTournamentRoutes(app, &TournamentHandler{Tournaments: tournaments, Log: log})
	SetupInventoryRoutes(app, &InventoryHandler{Inventory: services.NewInventoryService(gw, objects, users, log), Log: log})
	SetupRecipeRoutes(app, &RecipeHandler{Recipes: services.NewRecipeService(gw, log), Generator: generator, Log: log})
	return app
}

func as(req *http.Request, uid string) *http.Request {
	req.Header.Set("X-User-ID", uid)
	req.Header.Set("X-User-Email", uid+"@example.com")
	return req
}

func jsonRequest(method, target string, body any) *http.Request {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(method, target, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func multipartRequest(t *testing.T, target string, fields map[string]string, fileField, fileName string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if fileField != "" {
		part, err := w.CreateFormFile(fileField, fileName)
		require.NoError(t, err)
		_, err = part.Write([]byte("file-bytes"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func do(t *testing.T, app *fiber.App, req *http.Request, out any) int {
	t.Helper()
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if out != nil && len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, out), string(raw))
	}
	return resp.StatusCode
}

func TestSessionEndpoint(t *testing.T) {
	app := setupTestApp(t, "")

	var anon map[string]any
	assert.Equal(t, fiber.StatusOK, do(t, app, httptest.NewRequest(http.MethodGet, "/session", nil), &anon))
	assert.Equal(t, "anonymous", anon["state"])
	assert.NotContains(t, anon, "identity")

	var signed map[string]any
	assert.Equal(t, fiber.StatusOK, do(t, app, as(httptest.NewRequest(http.MethodGet, "/session", nil), "u1"), &signed))
	assert.Equal(t, "authenticated", signed["state"])
	assert.Equal(t, "u1", signed["identity"].(map[string]any)["uid"])
}

func TestAuthRequired(t *testing.T) {
	app := setupTestApp(t, "")
	var body map[string]any
	assert.Equal(t, fiber.StatusUnauthorized, do(t, app, httptest.NewRequest(http.MethodGet, "/flows", nil), &body))
	assert.Equal(t, false, body["ok"])
	assert.Equal(t, "/flows", body["url"])

	assert.Equal(t, fiber.StatusOK, do(t, app, httptest.NewRequest(http.MethodGet, "/tournaments", nil), nil))
	assert.Equal(t, fiber.StatusOK, do(t, app, httptest.NewRequest(http.MethodGet, "/leaderboard", nil), nil))
}

func TestFlowLifecycleOverHTTP(t *testing.T) {
	app := setupTestApp(t, "")

	var tour models.Tournament
	require.Equal(t, fiber.StatusCreated, do(t, app, as(jsonRequest(http.MethodPost, "/tournaments", map[string]any{"name": "Nationals"}), "host"), &tour))

	var flow models.Flow
	req := multipartRequest(t, "/flows", map[string]string{
		"tournament": "Nationals", "round": "Finals", "judge": "Smith", "tags": "aff, k", "pageCount": "3",
	}, "file", "finals.png")
	require.Equal(t, fiber.StatusCreated, do(t, app, as(req, "u1"), &flow))
	assert.Equal(t, tour.ID, flow.Tournament.ID)
	assert.Equal(t, models.StringList{"aff", "k"}, flow.Tags)
	assert.Equal(t, 3, flow.PageCount)

	var flows []models.Flow
	require.Equal(t, fiber.StatusOK, do(t, app, as(httptest.NewRequest(http.MethodGet, "/flows?judge=smi&tags=k", nil), "u1"), &flows))
	require.Len(t, flows, 1)

	var joined []models.Flow
	require.Equal(t, fiber.StatusOK, do(t, app, as(httptest.NewRequest(http.MethodGet, "/tournaments/"+tour.ID+"/flows", nil), "u2"), &joined))
	assert.Len(t, joined, 1)

	var errBody map[string]any
	assert.Equal(t, fiber.StatusForbidden, do(t, app, as(httptest.NewRequest(http.MethodDelete, "/flows/"+flow.ID, nil), "u2"), &errBody))
	assert.Equal(t, "unauthorized", errBody["type"])

	var updated models.Flow
	require.Equal(t, fiber.StatusOK, do(t, app, as(jsonRequest(http.MethodPatch, "/flows/"+flow.ID, map[string]any{"title": "Renamed"}), "u1"), &updated))
	assert.Equal(t, "Renamed", updated.Title)

	assert.Equal(t, fiber.StatusBadRequest, do(t, app, as(jsonRequest(http.MethodPatch, "/flows/"+flow.ID, map[string]any{"userId": "u2"}), "u1"), nil))

	var me models.User
	require.Equal(t, fiber.StatusOK, do(t, app, as(httptest.NewRequest(http.MethodGet, "/users/me", nil), "u1"), &me))
	assert.Equal(t, 1, me.TotalFlows)

	assert.Equal(t, fiber.StatusNoContent, do(t, app, as(httptest.NewRequest(http.MethodDelete, "/flows/"+flow.ID, nil), "u1"), nil))
	assert.Equal(t, fiber.StatusNotFound, do(t, app, as(httptest.NewRequest(http.MethodGet, "/flows/"+flow.ID, nil), "u1"), nil))
}

func TestFlowUploadValidation(t *testing.T) {
	app := setupTestApp(t, "")

	assert.Equal(t, fiber.StatusBadRequest, do(t, app, as(multipartRequest(t, "/flows", map[string]string{"title": "x"}, "", ""), "u1"), nil))

	var body map[string]any
	req := multipartRequest(t, "/flows", map[string]string{"pageCount": "lots"}, "file", "a.png")
	assert.Equal(t, fiber.StatusBadRequest, do(t, app, as(req, "u1"), &body))
	assert.Equal(t, "validation", body["type"])
}

func TestInventoryOverHTTP(t *testing.T) {
	app := setupTestApp(t, "")

	var item models.InventoryItem
	req := multipartRequest(t, "/inventory", map[string]string{"name": "Beans", "category": "Pantry", "quantity": "2"}, "image", "beans.jpg")
	require.Equal(t, fiber.StatusCreated, do(t, app, as(req, "u1"), &item))
	assert.Equal(t, 2, item.Quantity)
	assert.Equal(t, "/uploads/inventory/u1/beans.jpg", item.ImageURL)

	var plain models.InventoryItem
	require.Equal(t, fiber.StatusCreated, do(t, app, as(multipartRequest(t, "/inventory", map[string]string{"name": "Salt"}, "", ""), "u1"), &plain))
	assert.Equal(t, 1, plain.Quantity)
	assert.Equal(t, models.DefaultCategory, plain.Category)

	assert.Equal(t, fiber.StatusBadRequest, do(t, app, as(multipartRequest(t, "/inventory", map[string]string{"name": "Oil", "quantity": "some"}, "", ""), "u1"), nil))

	var low []models.InventoryItem
	require.Equal(t, fiber.StatusOK, do(t, app, as(httptest.NewRequest(http.MethodGet, "/inventory/low-stock?threshold=1", nil), "u1"), &low))
	require.Len(t, low, 1)
	assert.Equal(t, plain.ID, low[0].ID)

	var bumped models.InventoryItem
	require.Equal(t, fiber.StatusOK, do(t, app, as(jsonRequest(http.MethodPatch, "/inventory/"+item.ID+"/quantity", map[string]any{"quantity": 7}), "u1"), &bumped))
	assert.Equal(t, 7, bumped.Quantity)

	assert.Equal(t, fiber.StatusBadRequest, do(t, app, as(jsonRequest(http.MethodPatch, "/inventory/"+item.ID+"/quantity", map[string]any{"quantity": -1}), "u1"), nil))

	var listed []models.InventoryItem
	require.Equal(t, fiber.StatusOK, do(t, app, as(httptest.NewRequest(http.MethodGet, "/inventory?search=bean", nil), "u1"), &listed))
	require.Len(t, listed, 1)

	assert.Equal(t, fiber.StatusNoContent, do(t, app, as(httptest.NewRequest(http.MethodDelete, "/inventory/"+item.ID, nil), "u1"), nil))
}

func TestGatewayCallerWithoutEmail(t *testing.T) {
	app := setupTestApp(t, "")

	for _, qty := range []string{"2", "3"} {
		req := multipartRequest(t, "/inventory", map[string]string{"name": "Pasta", "category": "Pantry", "quantity": qty}, "", "")
		req.Header.Set("X-User-ID", "gw-user")
		assert.Equal(t, fiber.StatusUnauthorized, do(t, app, req, nil))
	}

	var session map[string]any
	req := httptest.NewRequest(http.MethodGet, "/session", nil)
	req.Header.Set("X-User-ID", "gw-user")
	require.Equal(t, fiber.StatusOK, do(t, app, req, &session))
	assert.Equal(t, "anonymous", session["state"])

	for _, qty := range []string{"2", "3"} {
		req := multipartRequest(t, "/inventory", map[string]string{"name": "Pasta", "category": "Pantry", "quantity": qty}, "", "")
		require.Equal(t, fiber.StatusCreated, do(t, app, as(req, "gw-user"), nil))
	}
	var me models.User
	require.Equal(t, fiber.StatusOK, do(t, app, as(httptest.NewRequest(http.MethodGet, "/users/me", nil), "gw-user"), &me))
	assert.Equal(t, 2, me.TotalItems)
	assert.Equal(t, 5, me.ItemsByCategory.Data()["Pantry"])
}

func TestRecipesOverHTTP(t *testing.T) {
	app := setupTestApp(t, `{"name": "Bean Stew", "prepTime": "5", "cookTime": "30", "servings": 2,
"ingredients": ["beans"], "instructions": ["simmer"],
"nutritionalInfo": {"calories": "300", "protein": "15 grams", "carbs": "40 grams", "fat": "5 grams"}}`)

	var recipe models.Recipe
	require.Equal(t, fiber.StatusOK, do(t, app, as(jsonRequest(http.MethodPost, "/recipes/generate", map[string]any{"ingredients": "beans"}), "u1"), &recipe))
	assert.Equal(t, "Bean Stew", recipe.Name)

	var saved models.Recipe
	require.Equal(t, fiber.StatusCreated, do(t, app, as(jsonRequest(http.MethodPost, "/recipes", recipe), "u1"), &saved))
	assert.NotEmpty(t, saved.ID)

	var list []models.Recipe
	require.Equal(t, fiber.StatusOK, do(t, app, as(httptest.NewRequest(http.MethodGet, "/recipes", nil), "u1"), &list))
	assert.Len(t, list, 1)

	assert.Equal(t, fiber.StatusForbidden, do(t, app, as(httptest.NewRequest(http.MethodGet, "/recipes/"+saved.ID, nil), "u2"), nil))
	assert.Equal(t, fiber.StatusBadRequest, do(t, app, as(jsonRequest(http.MethodPost, "/recipes/generate", map[string]any{"ingredients": ""}), "u1"), nil))
}

func TestRecipeGenerationErrors(t *testing.T) {
	var body map[string]any
	app := setupTestApp(t, "Sorry, I can't do that.")
	assert.Equal(t, fiber.StatusBadGateway, do(t, app, as(jsonRequest(http.MethodPost, "/recipes/generate", map[string]any{"ingredients": "beans"}), "u1"), &body))
	assert.Equal(t, "malformed_response", body["type"])

	app = setupTestApp(t, "")
	assert.Equal(t, fiber.StatusServiceUnavailable, do(t, app, as(jsonRequest(http.MethodPost, "/recipes/generate", map[string]any{"ingredients": "beans"}), "u1"), nil))
}

func TestLeaderboardOverHTTP(t *testing.T) {
	app := setupTestApp(t, "")
	for _, uid := range []string{"a", "b"} {
		req := multipartRequest(t, "/flows", map[string]string{"pageCount": "1"}, "file", uid+".png")
		require.Equal(t, fiber.StatusCreated, do(t, app, as(req, uid), nil))
	}
	var board models.Leaderboard
	require.Equal(t, fiber.StatusOK, do(t, app, httptest.NewRequest(http.MethodGet, "/leaderboard?limit=1", nil), &board))
	assert.Len(t, board.Entries, 1)
	assert.Equal(t, 1, board.TotalFlows)
	assert.True(t, strings.HasPrefix(board.Entries[0].PhotoURL, "/"))
}
