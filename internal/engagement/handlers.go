package engagement

import (
	"errors"

	"github.com/AydinDzaki/NusaGo/internal/auth"
	"github.com/AydinDzaki/NusaGo/internal/listing"

	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes mounts the engagement commands on the root router, next
// to the listing routes they extend.
func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/listings/:id/like", authMiddleware, func(c *fiber.Ctx) error {
		res, err := svc.Like(c.Context(), auth.ActorFrom(c).ID, c.Params("id"))
		if err != nil {
			return engagementError(err)
		}
		return c.JSON(res)
	})

	r.Delete("/listings/:id/like", authMiddleware, func(c *fiber.Ctx) error {
		res, err := svc.Unlike(c.Context(), auth.ActorFrom(c).ID, c.Params("id"))
		if err != nil {
			return engagementError(err)
		}
		return c.JSON(res)
	})

	r.Get("/listings/:id/reviews", func(c *fiber.Ctx) error {
		reviews, err := svc.Reviews(c.Context(), c.Params("id"))
		if err != nil {
			return engagementError(err)
		}
		return c.JSON(reviews)
	})

	r.Post("/listings/:id/reviews", authMiddleware, func(c *fiber.Ctx) error {
		var req ReviewRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		review, err := svc.AddReview(c.Context(), c.Params("id"), auth.ActorFrom(c).ID, req)
		if err != nil {
			return engagementError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(review)
	})

	r.Post("/reviews/:id/helpful", authMiddleware, func(c *fiber.Ctx) error {
		res, err := svc.ToggleHelpful(c.Context(), c.Params("id"), auth.ActorFrom(c).ID)
		if err != nil {
			return engagementError(err)
		}
		return c.JSON(res)
	})

	r.Get("/me/favorites", authMiddleware, func(c *fiber.Ctx) error {
		ids, err := svc.Favorites(c.Context(), auth.ActorFrom(c).ID)
		if err != nil {
			return engagementError(err)
		}
		return c.JSON(ids)
	})
}

func engagementError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidRating), errors.Is(err, ErrEmptyIdentifier):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, listing.ErrNotFound), errors.Is(err, ErrReviewNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
