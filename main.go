package main

import (
	"liftworks/config"
	catalogController "liftworks/controllers/catalog"
	enterpriseController "liftworks/controllers/enterprise"
	trainingController "liftworks/controllers/training"
	"liftworks/database"
	"liftworks/logger"
	"liftworks/metrics"
	"liftworks/middleware"
	authRoutes "liftworks/routers/authRoutes"
	catalogRoutes "liftworks/routers/catalogRoutes"
	dashboardRoutes "liftworks/routers/dashboardRoutes"
	enterpriseRoutes "liftworks/routers/enterpriseRoutes"
	lookupRoutes "liftworks/routers/lookupRoutes"
	trainingRoutes "liftworks/routers/trainingRoutes"
	userProfileRoutes "liftworks/routers/userRoutes"
	"liftworks/scheduler"
	"liftworks/services/serial"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func main() {
	config.LoadConfig()
	cfg := config.AppConfig

	if err := logger.Init(cfg.AppEnv); err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	if err := database.ConnectDb(cfg); err != nil {
		logger.Log.Fatalw("database connection failed", "driver", cfg.DBDriver, "error", err)
	}
	db := database.Database.Db
	if n, err := serial.SeedYearCodes(db); err != nil {
		logger.Log.Errorw("seeding VIN year codes failed", "error", err)
	} else if n > 0 {
		logger.Log.Infow("seeded VIN year codes", "count", n)
	}

	app := fiber.New(middleware.ServerConfig(cfg))

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,PATCH,DELETE",
		AllowHeaders: "Content-Type,Authorization",
	}))
	app.Use(recover.New())

	// Enable the built-in logger middleware to log all requests
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "[${time}] ${ip} ${method} ${path} ${status} ${latency}\n",
	}))
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	// Serve static files from the public folder
	app.Static("/", "./public")

	limiter := middleware.NewRateLimiter(cfg.LookupRatePerSec, cfg.LookupBurst)

	authRoutes.SetupAuthRoutes(app)
	userProfileRoutes.SetupUserRoutes(app)
	catalogRoutes.SetupCatalogRoutes(app)
	catalogRoutes.SetupAdminCatalogRoutes(app)
	lookupRoutes.SetupLookupRoutes(app, limiter)
	trainingRoutes.SetupTrainingRoutes(app)
	trainingRoutes.SetupAdminTrainingRoutes(app)
	enterpriseRoutes.SetupEnterpriseRoutes(app)
	enterpriseRoutes.SetupAdminEnterpriseRoutes(app)
	dashboardRoutes.SetupDashboardRoutes(app)

	cron, err := scheduler.InitializeTrainingScheduler(&scheduler.Jobs{
		DB:           db,
		Exams:        trainingController.NewExam(),
		Seats:        enterpriseController.NewSeats(),
		Orders:       catalogController.NewCheckout(),
		Certificates: trainingController.NewCertificates(),
	})
	if err != nil {
		logger.Log.Fatalw("scheduler failed to start", "error", err)
	}
	if _, err := cron.AddFunc("*/10 * * * *", limiter.Cleanup); err != nil {
		logger.Log.Errorw("scheduling rate limiter cleanup failed", "error", err)
	}
	defer cron.Stop()

	logger.Log.Infof("Server is running on port %s", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		logger.Log.Fatalw("server stopped", "error", err)
	}
}
