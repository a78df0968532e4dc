package api

import (
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/varun4522/calm-sub002/internal/alias"
	"github.com/varun4522/calm-sub002/internal/config"
	"github.com/varun4522/calm-sub002/internal/live"
	"github.com/varun4522/calm-sub002/internal/service"
	"github.com/varun4522/calm-sub002/internal/storage"
	wsint "github.com/varun4522/calm-sub002/internal/ws"
)

type Server struct {
	cfg      *config.Config
	svc      *service.SyncService
	feed     live.Feed
	hub      *wsint.Hub
	aliases  *alias.Store
	resolver *storage.Resolver
	log      *zap.SugaredLogger
}

// NewServer assembles the fiber app. The resolver and redis client may be
// nil when the deployment does not configure them; the matching routes then
// answer 503 / skip rate limiting.
func NewServer(cfg *config.Config, svc *service.SyncService, feed live.Feed, hub *wsint.Hub,
	aliases *alias.Store, resolver *storage.Resolver, rdb *redis.Client, log *zap.SugaredLogger) *fiber.App {

	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.RequestTimeout,
		WriteTimeout: cfg.RequestTimeout,
	})
	app.Use(recover.New())
	app.Use(fiberlogger.New())

	s := &Server{cfg: cfg, svc: svc, feed: feed, hub: hub, aliases: aliases, resolver: resolver, log: log}

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/v1", JWTAuthMiddleware(cfg.JWT.Secret))

	var limited fiber.Handler
	if rdb != nil {
		rl := NewRateLimiter(rdb, cfg.Redis.Prefix+":rl", cfg.RateLimit.Limit, cfg.RateLimitWindow)
		limited = rl.MiddlewareByKey(func(c *fiber.Ctx) string {
			return c.Locals("user_id").(string)
		})
	} else {
		limited = func(c *fiber.Ctx) error { return c.Next() }
	}

	api.Post("/messages", limited, s.sendMessage)
	api.Post("/messages/:msg_id/read", s.markRead)
	api.Delete("/messages/:msg_id", limited, s.deleteMessage)
	api.Get("/threads/:user_id/messages", s.listThread)
	api.Delete("/threads/:user_id", limited, s.clearThread)
	api.Get("/conversations", s.listConversations)
	api.Get("/presence/:user_id", s.getPresence)

	api.Get("/aliases/:user_id", s.getAlias)
	api.Put("/aliases/:user_id", s.putAlias)
	api.Delete("/aliases/:user_id", s.deleteAlias)

	api.Get("/attachments/:key/url", s.attachmentURL)

	api.Get("/ws", websocket.New(s.liveSocket))

	return app
}
