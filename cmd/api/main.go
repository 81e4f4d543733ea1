package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"todo-api/configs"
	v1 "todo-api/internal/api/v1"
	"todo-api/internal/config"
	"todo-api/internal/middleware"
	"todo-api/internal/repository"
	myws "todo-api/internal/websocket"
	"todo-api/pkg/avatar"
	"todo-api/pkg/database"
	"todo-api/pkg/logger"
	"todo-api/pkg/mailer"

	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func main() {
	// Load config
	cfg := configs.LoadConfig()

	// Inisialisasi logger
	if err := logger.InitLoggers(cfg.LogDir); err != nil {
		panic(err)
	}
	defer logger.SyncLoggers()
	logger.SystemLogger.Info("Starting application", zap.String("time", time.Now().Format(time.RFC3339)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ----- Inisialisasi document store ----- //
	var (
		mongoClient *mongo.Client
		db          *sql.DB
	)
	switch cfg.StoreDriver {
	case "postgres":
		db = database.ConnectDB(cfg)
		if err := repository.MigratePostgres(db); err != nil {
			logger.ErrorLogger.Fatal("Error migrating database", zap.Error(err))
		}
		config.Users = repository.NewPostgresUserRepository(db)
	case "memory":
		config.Users = repository.NewMemoryUserRepository()
	default:
		mongoClient = database.ConnectMongo(ctx, cfg)
		repo := repository.NewMongoUserRepository(mongoClient.Database(cfg.MongoDB))
		if err := repo.EnsureIndexes(ctx); err != nil {
			logger.ErrorLogger.Fatal("Error creating indexes", zap.Error(err))
		}
		config.Users = repo
	}
	logger.SystemLogger.Info("Document store connected", zap.String("driver", cfg.StoreDriver))

	// Redis hanya dipakai untuk cache profil, opsional
	var redisClient *redis.Client
	if cfg.RedisHost != "" {
		redisClient = database.ConnectRedis(ctx, cfg)
		config.Profiles = repository.NewRedisProfileCache(redisClient)
		logger.SystemLogger.Info("Profile cache enabled")
	}

	avatars, err := avatar.NewS3Host(ctx, avatar.S3Config{
		Endpoint:  cfg.S3Endpoint,
		Region:    cfg.S3Region,
		Bucket:    cfg.S3Bucket,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		PublicURL: cfg.S3PublicURL,
	})
	if err != nil {
		logger.ErrorLogger.Fatal("Error configuring avatar host", zap.Error(err))
	}
	config.Avatars = avatars

	if cfg.SMTPHost != "" {
		config.Mailer = mailer.NewSMTPMailer(mailer.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
	} else {
		logger.SystemLogger.Warn("SMTP_HOST not set, emails are only logged")
		config.Mailer = mailer.LogMailer{}
	}

	config.SecretKey = []byte(cfg.JWTSecret)
	config.CookieExpire = cfg.CookieExpire
	config.CookieSecure = cfg.CookieSecure
	config.OTPExpire = cfg.OTPExpire
	config.ResetOTPExpire = cfg.ResetOTPExpire
	config.RequireVerifiedLogin = cfg.RequireVerifiedLogin
	config.AvatarFolder = cfg.AvatarFolder

	hubCtx, stopHub := context.WithCancel(context.Background())
	config.Hub = myws.NewHub()
	go config.Hub.Run(hubCtx)

	app := fiber.New(fiber.Config{
		BodyLimit: 6 << 20,
	})

	// Middleware
	app.Use(middleware.ErrorHandler())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET,POST,PUT,DELETE",
		AllowCredentials: true,
	}))

	// Daftarkan route API v1
	v1.RegisterRoutes(app)

	go func() {
		logger.SystemLogger.Info("Application ready", zap.String("port", cfg.Port))
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.ErrorLogger.Error("Application failed to start", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.SystemLogger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.ErrorLogger.Error("Error shutting down server", zap.Error(err))
	}
	stopHub()

	if mongoClient != nil {
		_ = mongoClient.Disconnect(shutdownCtx)
	}
	if db != nil {
		_ = db.Close()
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
}
