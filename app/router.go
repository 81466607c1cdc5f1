// Package app wires the configuration, services and HTTP handlers together
package app

import (
	"context"
	"fmt"
	"time"

	"plaksha/ocr-api/app/auth"
	"plaksha/ocr-api/app/extraction"
	"plaksha/ocr-api/app/root"
	"plaksha/ocr-api/config"
	"plaksha/ocr-api/db"
	"plaksha/ocr-api/internal"
	"plaksha/ocr-api/internal/service"
	"plaksha/ocr-api/pkg/middleware"
	"plaksha/ocr-api/pkg/security"

	cache "github.com/chenyahui/gin-cache"
	"github.com/chenyahui/gin-cache/persist"
	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	gray  = "\x1b[90m"
	reset = "\x1b[0m"

	listCacheTTL = 15 * time.Second

	// JSON bodies on /auth are tiny
	authBodyLimit = 1 << 20

	// Room for the multipart framing and the documentType field
	multipartOverhead = 1 << 20
)

// NewRouter opens the store and builds every service from cfg. The returned
// handle has to be closed on shutdown
func NewRouter(ctx context.Context, cfg *config.Config) (*gin.Engine, *db.Handle, error) {
	makeLogger(cfg.App.LogLevel)

	h := db.New(cfg.Store)

	accounts, extractions, err := h.Open(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s store, %w", cfg.Store.Driver, err)
	}

	var archive service.Archive
	if cfg.Archive.Enabled {
		a, err := service.NewS3Archive(ctx, cfg.Archive)
		if err != nil {
			h.Close(ctx)
			return nil, nil, fmt.Errorf("failed to initialize S3 client, %w", err)
		}
		archive = a
	}

	hasher := security.NewHasher(cfg.Security.PasswordHash)
	secret := []byte(cfg.JWT.Secret)

	d := &internal.Deps{
		Config:       cfg,
		Registration: service.NewRegistration(accounts, hasher, service.NewMailer(cfg.Mail)),
		Verification: service.NewVerification(accounts, secret),
		Login:        service.NewLogin(accounts, hasher, secret),
		Worker:       service.NewProcessWorker(cfg.Worker),
		Extractions:  service.NewExtractions(extractions, archive),
		Cache:        persist.NewMemoryStore(time.Minute),
	}

	return Setup(d), h, nil
}

// Setup registers the middleware and routes on a fresh engine
func Setup(d *internal.Deps) *gin.Engine {
	router := gin.New()

	router.Use(
		cors.New(cors.Config{
			AllowOrigins:     d.Config.Host.CorsOrigins,
			AllowMethods:     []string{"GET", "POST", "HEAD", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"Content-Length", "Authorization", "X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
		middleware.NewRequestIDMiddleware(),
		ginzap.GinzapWithConfig(zap.L(), &ginzap.Config{
			TimeFormat: "15:04:05.000",
			UTC:        true,
			Skipper: func(c *gin.Context) bool {
				return c.Request.Method == "HEAD"
			},
			Context: func(c *gin.Context) []zapcore.Field {
				fields := []zapcore.Field{}

				if v := c.GetString("requestID"); v != "" {
					fields = append(fields, zap.String("request_id", v))
				}

				if v := c.GetString("userID"); v != "" {
					fields = append(fields, zap.String("user_id", v))
				}

				return fields
			},
		}),
		ginzap.RecoveryWithZap(zap.L(), true),
	)

	router.HandleMethodNotAllowed = true
	router.RedirectFixedPath = true
	router.MaxMultipartMemory = d.Config.Upload.MaxSize + multipartOverhead

	jwt := middleware.NewJWTMiddleware([]byte(d.Config.JWT.Secret))
	rateLimiter := middleware.RateLimiterMiddleware(middleware.RateLimiterConfig{
		RequestsPerSecond: d.Config.Security.RateLimit,
		Burst:             d.Config.Security.RateLimit * 2,
	})

	// HEAD /heartbeat		-> Used to check if the server is alive
	router.HEAD("/heartbeat", root.Heartbeat)

	// GET /validate		-> Validates a session token
	router.GET("/validate", jwt, root.Validate)

	a := router.Group("/auth", rateLimiter, middleware.BodySizeLimiter(authBodyLimit))
	{
		// POST /auth/register		-> Registers a new account or resends the code
		a.POST("/register", func(c *gin.Context) { auth.Register(c, d) })

		// POST /auth/verify-code	-> Verifies an account and starts a session
		a.POST("/verify-code", func(c *gin.Context) { auth.VerifyCode(c, d) })

		// POST /auth/login		-> Starts a session for a verified account
		a.POST("/login", func(c *gin.Context) { auth.Login(c, d) })
	}

	e := router.Group("/extraction", jwt)
	{
		// POST /extraction		-> Runs OCR on a document and stores the result
		e.POST("", middleware.BodySizeLimiter(d.Config.Upload.MaxSize+multipartOverhead), func(c *gin.Context) { extraction.Upload(c, d) })

		// GET /extraction		-> Lists the caller's records
		e.GET("", listCache(d), func(c *gin.Context) { extraction.List(c, d) })

		// GET /extraction/:id		-> Returns one record owned by the caller
		e.GET("/:id", func(c *gin.Context) { extraction.Fetch(c, d) })
	}

	return router
}

func listCache(d *internal.Deps) gin.HandlerFunc {
	if d.Cache == nil {
		return func(c *gin.Context) { c.Next() }
	}

	return cache.Cache(d.Cache, listCacheTTL, cache.WithCacheStrategyByRequest(func(c *gin.Context) (bool, cache.Strategy) {
		return true, cache.Strategy{
			CacheKey: extraction.ListCacheKey(d.Cache, c.GetString("userID"), c.Request.RequestURI),
		}
	}))
}

func makeLogger(level string) {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncoderConfig.EncodeTime = func(t time.Time, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + t.Format("15:04:05.000") + reset)
	}
	cfg.EncoderConfig.EncodeCaller = func(ec zapcore.EntryCaller, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + ec.TrimmedPath() + reset)
	}

	if lvl, err := zapcore.ParseLevel(level); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	cfg.DisableStacktrace = true

	log, _ := cfg.Build()
	zap.ReplaceGlobals(log)
}
