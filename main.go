package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"biblioteca-mistica/internal/config"
	"biblioteca-mistica/internal/fcm"
	"biblioteca-mistica/internal/imagehost"
	"biblioteca-mistica/internal/metrics"
	"biblioteca-mistica/internal/realtime"
	"biblioteca-mistica/internal/service"
	"biblioteca-mistica/internal/store"
	"biblioteca-mistica/internal/transport/http"
	"biblioteca-mistica/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

var startTime time.Time

func main() {
	startTime = time.Now()
	cfg := config.Load()
	if cfg.JWTSecret == "" {
		log.Fatal("❌ JWT_SECRET is required")
	}

	db, err := store.Open(cfg)
	if err != nil {
		log.Fatalf("❌ [DB] %v", err)
	}
	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		if err := store.SeedAdmin(db, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			log.Fatalf("❌ [SEED] Admin: %v", err)
		}
	}
	if cfg.CatalogFile != "" {
		if err := store.SeedCatalogFile(db, cfg.CatalogFile); err != nil {
			log.Fatalf("❌ [SEED] Catalog: %v", err)
		}
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Realtime: in-process hub, relayed through Redis when configured so every
	// instance sees every write.
	hub := realtime.NewHub(0)
	var publisher realtime.Publisher = hub
	var subscriber realtime.Subscriber = hub
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("❌ [REDIS] Invalid REDIS_URL: %v", err)
		}
		rdb := redis.NewClient(opts)
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("❌ [REDIS] Ping failed: %v", err)
		}
		relay := realtime.NewRedisRelay(rdb, hub, realtime.DefaultRedisChannel)
		go func() {
			if err := relay.Run(ctx); err != nil {
				log.Printf("❌ [REDIS] Relay stopped: %v", err)
			}
		}()
		publisher, subscriber = relay, relay
		log.Println("✅ [REDIS] Realtime relay enabled")
	} else {
		log.Println("⚠️ [REDIS] Disabled (no REDIS_URL), realtime is single-instance")
	}

	repo := store.NewRepository(db, publisher)

	var pusher service.Pusher
	if cfg.FirebaseCredentialsJSON != "" {
		client, err := fcm.NewFCMClient(ctx, []byte(cfg.FirebaseCredentialsJSON))
		if err != nil {
			log.Fatalf("❌ Failed to initialize FCM: %v", err)
		}
		pusher = client
		log.Println("✅ FCM client initialized")
	} else {
		log.Println("⚠️ FCM disabled (no FIREBASE_CREDENTIALS_JSON)")
	}

	images := newImageHost(ctx, cfg)

	notifyService := service.NewNotifyService(repo, pusher, cfg.NotificationIconURL)
	handler := http.NewHandler(http.Services{
		Auth:     service.NewAuthService(repo, cfg.JWTSecret, cfg.JWTIssuer, cfg.AccessTokenTTL),
		Content:  service.NewContentService(repo),
		Posts:    service.NewPostService(repo, notifyService),
		Notify:   notifyService,
		Profile:  service.NewProfileService(repo, images),
		Realtime: subscriber,
	})
	log.Println("✅ [SERVICE] Services & Handler initialized")

	app := fiber.New(fiber.Config{
		AppName:      "biblioteca-mistica",
		ErrorHandler: customErrorHandler,
		BodyLimit:    http.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization,X-Requested-With,Cache-Control",
		AllowCredentials: true,
		MaxAge:           86400,
	}))
	app.Use(logger.New(logger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path} | ${ua}\n",
	}))
	app.Use(metrics.Middleware())

	handler.Register(app)

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	app.Get("/health", func(c *fiber.Ctx) error {
		uptime := time.Since(startTime).Round(time.Second)
		return c.JSON(fiber.Map{
			"status":               "ok",
			"service":              "biblioteca-mistica",
			"uptime":               uptime.String(),
			"timestamp":            time.Now().UTC().Format(time.RFC3339),
			"fcm_enabled":          pusher != nil,
			"image_host":           cfg.ImageHost,
			"redis_relay":          cfg.RedisURL != "",
			"realtime_subscribers": hub.Count(),
		})
	})
	log.Println("✅ [ROUTES] Registered /health, /metrics")

	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("🛑 [SHUTDOWN] Graceful shutdown initiated...")
		stop()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("❌ [SHUTDOWN] Error: %v", err)
		}
	}()

	log.Printf("🚀 biblioteca-mistica starting...")
	log.Printf("   🔗 Listening on port: %s", cfg.ServerPort)
	log.Printf("   🌐 CORS allowed origins: %s", cfg.AllowedOrigins)
	log.Printf("   🖼️  Image host: %s", cfg.ImageHost)
	log.Println("✅ Server ready.")

	if err := app.Listen(":" + cfg.ServerPort); err != nil {
		log.Fatalf("❌ [STARTUP] Server failed to start: %v", err)
	}

	notifyService.Wait()
	log.Println("👋 [SHUTDOWN] Pending pushes delivered, bye.")
}

// newImageHost picks ImgBB or the R2 bucket. Uploads are disabled when the
// chosen host is not configured.
func newImageHost(ctx context.Context, cfg *config.Config) imagehost.Host {
	switch cfg.ImageHost {
	case "r2":
		r2Client, err := utils.NewR2Client(ctx, utils.R2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			AccessKeySecret: cfg.R2AccessKeySecret,
			BucketName:      cfg.R2BucketName,
			PublicURL:       cfg.R2PublicURL,
		})
		if err != nil {
			log.Fatalf("❌ [R2] Failed to initialize client: %v", err)
		}
		log.Println("✅ [R2] Image bucket initialized")
		return imagehost.NewR2Host(r2Client, "images")
	default:
		if cfg.ImgBBAPIKey == "" {
			log.Println("⚠️ [IMGBB] Disabled (no IMGBB_API_KEY), uploads will fail")
			return nil
		}
		log.Println("✅ [IMGBB] Image host configured")
		return imagehost.NewImgBB(cfg.ImgBBAPIKey, cfg.ImgBBUploadURL)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var errMsg string
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		errMsg = e.Message
	} else {
		errMsg = err.Error()
	}
	log.Printf("🔥 [ERROR] [%d] %s %s → %v | IP=%s | UA=%s",
		code,
		c.Method(),
		c.Path(),
		errMsg,
		c.IP(),
		c.Get("User-Agent"),
	)
	if code < fiber.StatusInternalServerError {
		return c.Status(code).JSON(fiber.Map{"error": errMsg})
	}
	return c.Status(code).JSON(fiber.Map{
		"error":      "something went wrong",
		"request_id": c.Get("X-Request-ID"),
	})
}
