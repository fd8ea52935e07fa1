package handlers

import (
	"flow-pantry-system/middleware"
	"flow-pantry-system/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type TournamentHandler struct {
	Tournaments *services.TournamentService
	Log         *zap.Logger
}

func SetupTournamentRoutes(app fiber.Router, h *TournamentHandler) {
	// 🔓 Public
	app.Get("/tournaments", h.ListTournaments)

	// 🔐 Signed-in callers; "mine" and "slug" go before ":id"
	auth := middleware.RequireAuth()
	app.Post("/tournaments", auth, h.CreateTournament)
	app.Get("/tournaments/mine", auth, h.ListMyTournaments)
	app.Get("/tournaments/slug/:slug", auth, h.GetTournamentBySlug)
	app.Get("/tournaments/:id", auth, h.GetTournament)
	app.Put("/tournaments/:id", auth, h.UpdateTournament)
	app.Get("/tournaments/:id/flows", auth, h.ListTournamentFlows)
}

func (h *TournamentHandler) CreateTournament(c *fiber.Ctx) error {
	fields, err := jsonPatch(c)
	if err != nil {
		return badRequest(c, "body must be a JSON object")
	}
	t, err := h.Tournaments.CreateTournament(c.UserContext(), middleware.UserID(c), fields)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(t)
}

func (h *TournamentHandler) ListTournaments(c *fiber.Ctx) error {
	list, err := h.Tournaments.ListTournaments(c.UserContext())
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(list)
}

func (h *TournamentHandler) ListMyTournaments(c *fiber.Ctx) error {
	list, err := h.Tournaments.ListUserTournaments(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(list)
}

func (h *TournamentHandler) GetTournament(c *fiber.Ctx) error {
	t, err := h.Tournaments.GetTournament(c.UserContext(), c.Params("id"))
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(t)
}

func (h *TournamentHandler) GetTournamentBySlug(c *fiber.Ctx) error {
	t, err := h.Tournaments.GetTournamentBySlug(c.UserContext(), c.Params("slug"))
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(t)
}

func (h *TournamentHandler) UpdateTournament(c *fiber.Ctx) error {
	patch, err := jsonPatch(c)
	if err != nil {
		return badRequest(c, "body must be a JSON object")
	}
	t, err := h.Tournaments.UpdateTournament(c.UserContext(), c.Params("id"), middleware.UserID(c), patch)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(t)
}

func (h *TournamentHandler) ListTournamentFlows(c *fiber.Ctx) error {
	flows, err := h.Tournaments.ListTournamentFlows(c.UserContext(), c.Params("id"))
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(flows)
}
