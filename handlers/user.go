package handlers

import (
	"fmt"

	"flow-pantry-system/middleware"
	"flow-pantry-system/models"
	"flow-pantry-system/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const defaultLeaderboardSize = 10

type UserHandler struct {
	Users *services.UserService
	Log   *zap.Logger
}

func SetupUserRoutes(app fiber.Router, h *UserHandler) {
	// 🔓 Public
	app.Get("/session", h.GetSession)
	app.Get("/leaderboard", h.GetLeaderboard)

	// 🔐 Signed-in callers
	me := app.Group("/users/me", middleware.RequireAuth())
	me.Get("/", h.GetProfile)
	me.Patch("/", h.UpdateProfile)
}

func (h *UserHandler) GetSession(c *fiber.Ctx) error {
	body := fiber.Map{"state": services.SessionUninitialized.String()}
	if s := middleware.CurrentSession(c); s != nil {
		body["state"] = s.State().String()
	}
	if identity, ok := middleware.CurrentIdentity(c); ok {
		body["identity"] = identity
	}
	return c.JSON(body)
}

func (h *UserHandler) GetLeaderboard(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", defaultLeaderboardSize)
	if limit <= 0 {
		limit = defaultLeaderboardSize
	}
	board, err := h.Users.Leaderboard(c.UserContext(), limit)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(board)
}

func (h *UserHandler) GetProfile(c *fiber.Ctx) error {
	uid := middleware.UserID(c)
	user, err := h.Users.GetUserProfile(c.UserContext(), uid)
	if err != nil {
		return fail(c, h.Log, err)
	}
	if user == nil {
		return fail(c, h.Log, fmt.Errorf("profile %s: %w", uid, models.ErrNotFound))
	}
	return c.JSON(user)
}

func (h *UserHandler) UpdateProfile(c *fiber.Ctx) error {
	patch, err := jsonPatch(c)
	if err != nil {
		return badRequest(c, "body must be a JSON object")
	}
	user, err := h.Users.UpdateUserProfile(c.UserContext(), middleware.UserID(c), patch)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(user)
}
