package handlers

import (
	"strconv"

	"flow-pantry-system/middleware"
	"flow-pantry-system/models"
	"flow-pantry-system/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type FlowHandler struct {
	Flows *services.FlowService
	Log   *zap.Logger
}

func SetupFlowRoutes(app fiber.Router, h *FlowHandler) {
	secured := app.Group("/flows", middleware.RequireAuth())

	secured.Post("/", h.UploadFlow)
	secured.Get("/", h.ListFlows)
	secured.Get("/:id", h.GetFlow)
	secured.Patch("/:id", h.UpdateFlow)
	secured.Delete("/:id", h.DeleteFlow)
	secured.Post("/:id/archive", h.ArchiveFlow)
}

// UploadFlow takes a multipart form with a "file" part and the metadata as fields.
func (h *FlowHandler) UploadFlow(c *fiber.Ctx) error {
	owner, _ := middleware.CurrentIdentity(c)

	fh, err := c.FormFile("file")
	if err != nil {
		return badRequest(c, "file is required")
	}
	form, err := c.MultipartForm()
	if err != nil {
		return badRequest(c, "invalid multipart form")
	}

	meta := models.FlowMetadata{
		Title:          c.FormValue("title"),
		Tournament:     c.FormValue("tournament"),
		TournamentDate: c.FormValue("tournamentDate"),
		Round:          c.FormValue("round"),
		Team:           c.FormValue("team"),
		Judge:          c.FormValue("judge"),
		Division:       c.FormValue("division"),
		Tags:           splitList(form.Value["tags"]),
	}
	if pc := c.FormValue("pageCount"); pc != "" {
		n, err := strconv.Atoi(pc)
		if err != nil {
			return fail(c, h.Log, models.NewValidationError("pageCount", "must be a whole number"))
		}
		meta.PageCount = n
	}

	file, body, err := openUpload(fh)
	if err != nil {
		return fail(c, h.Log, err)
	}
	defer body.Close()

	flow, err := h.Flows.UploadFlow(c.UserContext(), owner, file, meta)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(flow)
}

func (h *FlowHandler) ListFlows(c *fiber.Ctx) error {
	var filter models.FlowFilter
	if err := c.QueryParser(&filter); err != nil {
		return badRequest(c, "invalid query parameters")
	}
	filter.Tags = splitList(filter.Tags)

	flows, err := h.Flows.ListFlows(c.UserContext(), middleware.UserID(c), filter)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(flows)
}

func (h *FlowHandler) GetFlow(c *fiber.Ctx) error {
	flow, err := h.Flows.GetFlow(c.UserContext(), c.Params("id"), middleware.UserID(c))
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(flow)
}

func (h *FlowHandler) UpdateFlow(c *fiber.Ctx) error {
	patch, err := jsonPatch(c)
	if err != nil {
		return badRequest(c, "body must be a JSON object")
	}
	flow, err := h.Flows.UpdateFlow(c.UserContext(), c.Params("id"), middleware.UserID(c), patch)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(flow)
}

func (h *FlowHandler) DeleteFlow(c *fiber.Ctx) error {
	if err := h.Flows.DeleteFlow(c.UserContext(), c.Params("id"), middleware.UserID(c)); err != nil {
		return fail(c, h.Log, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *FlowHandler) ArchiveFlow(c *fiber.Ctx) error {
	if err := h.Flows.ArchiveFlow(c.UserContext(), c.Params("id"), middleware.UserID(c)); err != nil {
		return fail(c, h.Log, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
