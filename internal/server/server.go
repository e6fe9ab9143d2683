package server

import (
	"context"

	"github.com/AydinDzaki/NusaGo/internal/auth"
	"github.com/AydinDzaki/NusaGo/internal/config"
	"github.com/AydinDzaki/NusaGo/internal/db"
	"github.com/AydinDzaki/NusaGo/internal/engagement"
	"github.com/AydinDzaki/NusaGo/internal/listing"
	"github.com/AydinDzaki/NusaGo/internal/logging"
	"github.com/AydinDzaki/NusaGo/internal/media"
	"github.com/AydinDzaki/NusaGo/internal/moderation"
	"github.com/AydinDzaki/NusaGo/internal/nearby"
	"github.com/AydinDzaki/NusaGo/internal/projection"
	"github.com/AydinDzaki/NusaGo/internal/stream"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type Server struct {
	App      *fiber.App
	Cfg      config.Config
	DB       *pgxpool.Pool
	Redis    *redis.Client
	Stream   *stream.Hub
	Listings *projection.Cache

	stopFollow context.CancelFunc
	feed       *stream.Client
}

func NewServer(cfg config.Config, pool *pgxpool.Pool, redisClient *redis.Client) *Server {
	app := fiber.New()
	app.Use(recover.New())
	app.Use(logging.Middleware())

	s := &Server{
		App:    app,
		Cfg:    cfg,
		DB:     pool,
		Redis:  redisClient,
		Stream: stream.NewHub(redisClient),
	}

	registerRoutes(s, querier(pool))
	return s
}

func querier(pool *pgxpool.Pool) db.Querier {
	if pool == nil {
		return db.Offline{}
	}
	return pool
}

func registerRoutes(s *Server, q db.Querier) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret)

	listings := listing.NewService(q, s.Stream)
	s.Listings = projection.New(listings)
	s.follow()

	auth.RegisterRoutes(s.App.Group("/auth"), auth.NewService(s.Cfg.JWTSecret, q), jwtMiddleware)
	engagement.RegisterRoutes(s.App, engagement.NewService(q, s.Listings, s.Stream), jwtMiddleware)
	listing.RegisterRoutes(s.App.Group("/listings"), listings, s.Listings, jwtMiddleware)
	nearby.RegisterRoutes(s.App.Group("/nearby"), s.Listings, s.Cfg.NearbyLimit)
	moderation.RegisterRoutes(s.App.Group("/submissions"), moderation.NewService(q, listings), jwtMiddleware)
	media.RegisterRoutes(s.App.Group("/media"), media.NewService(q, s.Cfg.StoragePublicURL), jwtMiddleware)
	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream)
}

// follow keeps the listing projection in step with the change feed.
func (s *Server) follow() {
	ctx, cancel := context.WithCancel(context.Background())
	s.stopFollow = cancel
	s.feed = s.Stream.Register(listing.ChangesTopic)
	go s.Listings.Follow(ctx, s.feed.Send)
}

// Close stops the change-feed follower and the hub relay.
func (s *Server) Close() {
	if s.stopFollow != nil {
		s.stopFollow()
	}
	if s.feed != nil {
		s.Stream.Unregister(s.feed)
	}
	s.Stream.Close()
}
