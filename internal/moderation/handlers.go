package moderation

import (
	"errors"

	"github.com/AydinDzaki/NusaGo/internal/auth"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Use(authMiddleware)

	r.Post("/", func(c *fiber.Ctx) error {
		var req CreateRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		sub, err := svc.Create(c.Context(), auth.ActorFrom(c), req)
		if err != nil {
			return moderationError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(sub)
	})

	r.Get("/", func(c *fiber.Ctx) error {
		subs, err := svc.List(c.Context(), auth.ActorFrom(c), Status(c.Query("status")))
		if err != nil {
			return moderationError(err)
		}
		return c.JSON(subs)
	})

	r.Get("/:id", func(c *fiber.Ctx) error {
		sub, err := svc.Get(c.Context(), auth.ActorFrom(c), c.Params("id"))
		if err != nil {
			return moderationError(err)
		}
		return c.JSON(sub)
	})

	r.Post("/:id/approve", func(c *fiber.Ctx) error {
		req, err := reviewRequest(c)
		if err != nil {
			return err
		}
		res, err := svc.Approve(c.Context(), auth.ActorFrom(c), c.Params("id"), req.Notes)
		if err != nil {
			return moderationError(err)
		}
		return c.JSON(res)
	})

	r.Post("/:id/reject", func(c *fiber.Ctx) error {
		req, err := reviewRequest(c)
		if err != nil {
			return err
		}
		sub, err := svc.Reject(c.Context(), auth.ActorFrom(c), c.Params("id"), req.Notes)
		if err != nil {
			return moderationError(err)
		}
		return c.JSON(sub)
	})
}

// reviewRequest reads the optional reviewer notes.
func reviewRequest(c *fiber.Ctx) (ReviewRequest, error) {
	var req ReviewRequest
	if len(c.Body()) == 0 {
		return req, nil
	}
	if err := c.BodyParser(&req); err != nil {
		return req, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return req, nil
}

func moderationError(err error) error {
	var applyErr *ApplyFailedError
	switch {
	case errors.As(err, &applyErr):
		return fiber.NewError(fiber.StatusUnprocessableEntity, applyErr.Error())
	case errors.Is(err, ErrInvalidSubmissionShape), errors.Is(err, ErrInvalidStatus):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, ErrForbidden):
		return fiber.NewError(fiber.StatusForbidden, err.Error())
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidStateTransition):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
