package media

import (
	"errors"

	"github.com/AydinDzaki/NusaGo/internal/auth"

	"github.com/gofiber/fiber/v2"
)

type UploadRequest struct {
	FileName string `json:"file_name"`
	Kind     Kind   `json:"kind"`
}

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/upload", authMiddleware, func(c *fiber.Ctx) error {
		var req UploadRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		actor := auth.ActorFrom(c)
		if req.Kind == KindListingImage && !actor.CanPropose() {
			return fiber.NewError(fiber.StatusForbidden, "listing images require an organizer or admin")
		}
		obj, err := svc.Upload(c.Context(), actor.ID, req.FileName, req.Kind)
		if err != nil {
			if errors.Is(err, ErrInvalidKind) {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(obj)
	})
}
