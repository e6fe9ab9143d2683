package nearby

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/AydinDzaki/NusaGo/internal/listing"
	"github.com/AydinDzaki/NusaGo/internal/shared/geo"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	log "github.com/sirupsen/logrus"
)

// Sample is one reading from a client's geolocation source.
type Sample struct {
	Lat   *float64 `json:"lat"`
	Lng   *float64 `json:"lng"`
	Limit int      `json:"limit,omitempty"`
}

func (s Sample) origin() (geo.Point, bool) {
	if s.Lat == nil || s.Lng == nil {
		return geo.Point{}, false
	}
	p := geo.Point{Lat: *s.Lat, Lng: *s.Lng}
	return p, p.Valid()
}

// RegisterRoutes mounts the one-shot ranking endpoint and the sample
// stream. Bad coordinates are answered with an empty list, never an error.
func RegisterRoutes(r fiber.Router, src listing.Source, defaultLimit int) {
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}

	r.Get("/", func(c *fiber.Ctx) error {
		lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
		lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
		if errLat != nil || errLng != nil {
			return c.JSON([]Ranked{})
		}
		limit := defaultLimit
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				return c.JSON([]Ranked{})
			}
			limit = n
		}

		all, err := src.Listings(c.Context())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(Rank(geo.Point{Lat: lat, Lng: lng}, all, limit))
	})

	r.Get("/ws", websocket.New(func(c *websocket.Conn) {
		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				return
			}
			ranked := rankSample(src, msg, defaultLimit)
			if err := c.WriteJSON(ranked); err != nil {
				log.WithError(err).Debug("nearby stream write failed")
				return
			}
		}
	}))
}

func rankSample(src listing.Source, msg []byte, defaultLimit int) []Ranked {
	var s Sample
	if err := json.Unmarshal(msg, &s); err != nil {
		return []Ranked{}
	}
	origin, ok := s.origin()
	if !ok {
		return []Ranked{}
	}
	limit := defaultLimit
	if s.Limit != 0 {
		limit = s.Limit
	}

	all, err := src.Listings(context.Background())
	if err != nil {
		log.WithError(err).Warn("nearby stream could not read listings")
		return []Ranked{}
	}
	return Rank(origin, all, limit)
}
