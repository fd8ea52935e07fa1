package handlers

import (
	"strconv"
	"strings"

	"flow-pantry-system/middleware"
	"flow-pantry-system/models"
	"flow-pantry-system/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type InventoryHandler struct {
	Inventory *services.InventoryService
	Log       *zap.Logger
}

func SetupInventoryRoutes(app fiber.Router, h *InventoryHandler) {
	secured := app.Group("/inventory", middleware.RequireAuth())

	secured.Post("/", h.UploadItem)
	secured.Get("/", h.ListInventory)
	secured.Get("/low-stock", h.LowStock)
	secured.Get("/:id", h.GetItem)
	secured.Patch("/:id", h.UpdateItem)
	secured.Patch("/:id/quantity", h.UpdateQuantity)
	secured.Delete("/:id", h.DeleteItem)
}

// inventoryFormFields are copied from the form when present; absent ones take service defaults.
var inventoryFormFields = []string{"name", "category", "quantity", "expiryDate", "notes"}

// UploadItem accepts a multipart form with an optional "image" part.
func (h *InventoryHandler) UploadItem(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return badRequest(c, "invalid multipart form")
	}

	fields := map[string]any{}
	for _, key := range inventoryFormFields {
		values := form.Value[key]
		if len(values) == 0 {
			continue
		}
		fields[key] = values[0]
	}
	if q, ok := fields["quantity"].(string); ok {
		// non-numeric text stays a string so validation reports it
		if n, err := strconv.ParseFloat(strings.TrimSpace(q), 64); err == nil {
			fields["quantity"] = n
		}
	}

	var upload *services.Upload
	if files := form.File["image"]; len(files) > 0 {
		file, body, err := openUpload(files[0])
		if err != nil {
			return fail(c, h.Log, err)
		}
		defer body.Close()
		upload = &file
	}

	item, err := h.Inventory.UploadInventoryItem(c.UserContext(), middleware.UserID(c), upload, fields)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(item)
}

func (h *InventoryHandler) ListInventory(c *fiber.Ctx) error {
	var filter models.InventoryFilter
	if err := c.QueryParser(&filter); err != nil {
		return badRequest(c, "invalid query parameters")
	}
	items, err := h.Inventory.ListInventory(c.UserContext(), middleware.UserID(c), filter)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(items)
}

func (h *InventoryHandler) LowStock(c *fiber.Ctx) error {
	items, err := h.Inventory.LowStockItems(c.UserContext(), middleware.UserID(c), c.QueryInt("threshold", -1))
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(items)
}

func (h *InventoryHandler) GetItem(c *fiber.Ctx) error {
	item, err := h.Inventory.GetInventoryItem(c.UserContext(), c.Params("id"), middleware.UserID(c))
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(item)
}

func (h *InventoryHandler) UpdateItem(c *fiber.Ctx) error {
	patch, err := jsonPatch(c)
	if err != nil {
		return badRequest(c, "body must be a JSON object")
	}
	item, err := h.Inventory.UpdateInventoryItem(c.UserContext(), c.Params("id"), middleware.UserID(c), patch)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(item)
}

func (h *InventoryHandler) UpdateQuantity(c *fiber.Ctx) error {
	var body struct {
		Quantity any `json:"quantity"`
	}
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "body must be a JSON object")
	}
	if body.Quantity == nil {
		return fail(c, h.Log, models.NewValidationError("quantity", "is required"))
	}
	item, err := h.Inventory.UpdateItemQuantity(c.UserContext(), c.Params("id"), middleware.UserID(c), body.Quantity)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(item)
}

func (h *InventoryHandler) DeleteItem(c *fiber.Ctx) error {
	if err := h.Inventory.DeleteInventoryItem(c.UserContext(), c.Params("id"), middleware.UserID(c)); err != nil {
		return fail(c, h.Log, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
