package container

import (
	"context"
	"fmt"
	"time"

	"trailventure-backend/internal/config"
	infraCache "trailventure-backend/internal/infrastructure/cache"
	"trailventure-backend/internal/infrastructure/database"
	"trailventure-backend/pkg/cache"
	pkgdb "trailventure-backend/pkg/database"
	"trailventure-backend/pkg/jwt"
	"trailventure-backend/pkg/logger"

	bookingHandler "trailventure-backend/internal/domains/booking/handler"
	bookingRepo "trailventure-backend/internal/domains/booking/repository"
	bookingService "trailventure-backend/internal/domains/booking/service"
	promoHandler "trailventure-backend/internal/domains/promo/handler"
	promoRepo "trailventure-backend/internal/domains/promo/repository"
	promoService "trailventure-backend/internal/domains/promo/service"
)

// Container is the root of the dependency graph. Everything in it is a
// singleton living for the process lifetime.
type Container struct {
	// Infrastructure
	Config     *config.Config
	DB         *database.PostgresDB
	Cache      cache.Cache
	JWTManager *jwt.Manager

	// Repositories
	PromoRepo   promoRepo.PromoRepository
	BookingRepo bookingRepo.BookingRepository

	// Services
	PromoService   promoService.ServiceInterface
	BookingService bookingService.ServiceInterface

	// Handlers
	PromoPublicHandler *promoHandler.PublicHandler
	PromoAdminHandler  *promoHandler.AdminHandler
	BookingHandler     *bookingHandler.BookingHandler
}

// NewContainer initializes the whole dependency graph in order: config,
// infrastructure, repositories, services, handlers.
func NewContainer() (*Container, error) {
	c := &Container{}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	c.Config = cfg
	logger.Init(cfg.App.Environment)

	// Database
	dbConfig, err := config.LoadDatabaseConfig()
	if err != nil {
		return nil, fmt.Errorf("load database config: %w", err)
	}
	db := database.NewPostgresDB(dbConfig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	c.DB = db

	// Redis. The cache is optional: a dead Redis degrades to uncached
	// reads instead of blocking startup.
	redisCache := infraCache.NewRedisCache(cfg.Redis.Host, cfg.Redis.Password, cfg.Redis.DB)
	if rc, ok := redisCache.(*infraCache.RedisCache); ok {
		if err := rc.Connect(ctx); err != nil {
			logger.Warn("Redis unavailable, running without cache", map[string]interface{}{
				"error": err.Error(),
			})
			redisCache = nil
		}
	}
	c.Cache = redisCache

	c.JWTManager = jwt.NewManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry)

	// Repositories
	c.PromoRepo = promoRepo.NewPostgresRepository(db.Pool)
	c.BookingRepo = bookingRepo.NewPostgresRepository(db.Pool)

	// Services
	txRunner := pkgdb.NewPoolTxRunner(db.Pool)
	c.PromoService = promoService.NewPromoService(c.PromoRepo, c.BookingRepo, txRunner, c.Cache)
	c.BookingService = bookingService.NewBookingService(c.BookingRepo)

	// Handlers
	c.PromoPublicHandler = promoHandler.NewPublicHandler(c.PromoService)
	c.PromoAdminHandler = promoHandler.NewAdminHandler(c.PromoService)
	c.BookingHandler = bookingHandler.NewBookingHandler(c.BookingService)

	logger.Info("Container initialized", map[string]interface{}{
		"environment": cfg.App.Environment,
	})
	return c, nil
}

// Cleanup releases infrastructure resources in reverse order.
func (c *Container) Cleanup() {
	if c.Cache != nil {
		if rc, ok := c.Cache.(*infraCache.RedisCache); ok {
			if err := rc.Close(); err != nil {
				logger.Warn("Redis close failed", map[string]interface{}{"error": err.Error()})
			}
		}
	}
	if c.DB != nil {
		c.DB.Close()
	}
	logger.Info("Container cleaned up", nil)
}
