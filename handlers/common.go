package handlers

import (
	"mime/multipart"
	"strings"

	"flow-pantry-system/middleware"
	"flow-pantry-system/services"
	"flow-pantry-system/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// fail writes err with the error envelope. Only server-side failures are logged.
func fail(c *fiber.Ctx, log *zap.Logger, err error) error {
	if status, _ := utils.StatusFor(err); status >= fiber.StatusInternalServerError {
		log.Error("❌ [HTTP] request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.String("user_id", middleware.UserID(c)),
			zap.Error(err))
	}
	return utils.DomainError(c, err)
}

func badRequest(c *fiber.Ctx, message string) error {
	return utils.ErrorResponse(c, message, fiber.StatusBadRequest, "request")
}

// jsonPatch decodes a JSON object body. Numbers arrive as float64.
func jsonPatch(c *fiber.Ctx) (map[string]any, error) {
	patch := map[string]any{}
	if err := c.BodyParser(&patch); err != nil {
		return nil, err
	}
	return patch, nil
}

// openUpload turns a multipart file into a service upload. The caller closes the returned file.
func openUpload(fh *multipart.FileHeader) (services.Upload, multipart.File, error) {
	f, err := fh.Open()
	if err != nil {
		return services.Upload{}, nil, err
	}
	contentType := fh.Header.Get(fiber.HeaderContentType)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return services.Upload{
		FileName:    fh.Filename,
		ContentType: contentType,
		Size:        fh.Size,
		Body:        f,
	}, f, nil
}

// splitList accepts repeated values and comma-separated ones.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
