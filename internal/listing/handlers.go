package listing

import (
	"context"
	"errors"
	"strings"

	"github.com/AydinDzaki/NusaGo/internal/auth"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Source yields the listings served to browsing clients.
type Source interface {
	Listings(ctx context.Context) ([]Listing, error)
}

func RegisterRoutes(r fiber.Router, svc *Service, src Source, authMiddleware fiber.Handler) {
	admin := auth.RequireRole(auth.RoleAdmin)

	r.Get("/", func(c *fiber.Ctx) error {
		all, err := src.Listings(c.Context())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(Filter(all, QueryFromRequest(c)))
	})

	r.Get("/islands", func(c *fiber.Ctx) error {
		return c.JSON(Islands)
	})

	r.Get("/:id", func(c *fiber.Ctx) error {
		l, err := svc.FetchByID(c.Context(), c.Params("id"))
		if err != nil {
			return storeError(err)
		}
		return c.JSON(l)
	})

	r.Post("/", authMiddleware, admin, func(c *fiber.Ctx) error {
		var req Draft
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		l, err := svc.CreateListing(c.Context(), uuid.NewString(), req, auth.ActorFrom(c).ID)
		if err != nil {
			return storeError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(l)
	})

	r.Patch("/:id", authMiddleware, admin, func(c *fiber.Ctx) error {
		var req Patch
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		l, err := svc.PatchListing(c.Context(), c.Params("id"), req)
		if err != nil {
			return storeError(err)
		}
		return c.JSON(l)
	})

	r.Delete("/:id", authMiddleware, admin, func(c *fiber.Ctx) error {
		if err := svc.DeleteListing(c.Context(), c.Params("id")); err != nil {
			return storeError(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}

// QueryFromRequest reads the browse facets: q, type, island and a
// comma-separated tags list.
func QueryFromRequest(c *fiber.Ctx) Query {
	q := Query{
		Search: c.Query("q"),
		Type:   c.Query("type"),
		Island: c.Query("island"),
	}
	for _, tag := range strings.Split(c.Query("tags"), ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			q.Tags = append(q.Tags, tag)
		}
	}
	return q
}

func storeError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalid):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
