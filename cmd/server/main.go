package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"task-board/internal/cache"
	"task-board/internal/config"
	"task-board/internal/database"
	"task-board/internal/handlers"
	"task-board/internal/middleware"
	"task-board/internal/models"
	"task-board/internal/monitoring"
	"task-board/internal/services"
	"task-board/internal/store"
	"task-board/internal/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := openDatabase(cfg)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Token{}, &models.Task{}); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:         cfg.GetRedisAddr(),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		MaxRetries:   cfg.Redis.MaxRetries,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	defer redisClient.Close()

	feed := store.NewRedisChangeFeed(redisClient)
	defer feed.Close()

	repo := store.NewGormTaskRepository(db, feed)
	jobQueue := worker.NewJobQueue(redisClient)

	multiCache := cache.NewMultiLevelCache(cache.NewRedisCacheWithClient(redisClient))
	taskService := services.NewCachedTaskService(
		services.NewTaskService(repo).WithReminderScheduler(jobQueue), multiCache)
	// The urgency sweep writes through the repository directly, so cache
	// eviction has to hang off the repository, not the service.
	repo.OnMutation(taskService.InvalidateScope)

	authService := services.NewAuthService()
	registerService := services.NewRegisterService()

	sweeper := worker.NewSweeper(db, repo, cfg.App.ID)

	jobWorker := worker.NewWorker(worker.Config{
		RedisClient: redisClient,
		Queues:      cfg.Worker.Queues,
	})
	jobWorker.RegisterHandler(worker.JobTypeUrgencySweep, sweeper.HandleUrgencySweep)
	jobWorker.RegisterHandler(worker.JobTypeDeadlineReminder, sweeper.HandleDeadlineReminder)
	jobWorker.Start(cfg.Worker.Concurrency)
	defer jobWorker.Stop()

	scheduler := worker.NewSweepScheduler(jobQueue, cfg.Worker.SweepInterval)
	scheduler.Start()
	defer scheduler.Stop()

	monitoring.RegisterHealthCheck("database", func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	})
	monitoring.RegisterHealthCheck("redis", func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})

	router := buildRouter(cfg, db, taskService, authService, registerService)

	srv := &http.Server{
		Addr:         cfg.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Printf("listening on %s (app %s, env %s)", srv.Addr, cfg.App.ID, cfg.Server.Environment)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("forced shutdown: %v", err)
	}
}

func openDatabase(cfg *config.Config) (*gorm.DB, error) {
	if cfg.IsProduction() {
		pool := database.DefaultPoolConfig()
		pool.DSN = cfg.GetDatabaseDSN()
		pool.MaxOpenConns = cfg.Database.MaxOpenConns
		pool.MaxIdleConns = cfg.Database.MaxIdleConns
		pool.ConnMaxLifetime = cfg.Database.ConnMaxLifetime
		pool.ConnMaxIdleTime = cfg.Database.ConnMaxIdleTime
		return database.NewDatabasePool(pool)
	}
	return database.NewSQLitePool(cfg.Database.Name + ".db")
}

func buildRouter(
	cfg *config.Config,
	db *gorm.DB,
	taskService services.TaskService,
	authService services.AuthService,
	registerService services.RegisterService,
) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(middleware.RecoveryWithLog())
	router.Use(monitoring.MetricsMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	if cfg.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(
			cfg.RateLimit.RequestsPerMin,
			cfg.RateLimit.BurstSize,
			cfg.RateLimit.CleanupInterval,
		)
		router.Use(limiter.Middleware())
	}

	router.GET("/healthz", monitoring.HealthHandler())
	router.GET("/livez", monitoring.LivenessHandler())
	router.GET("/metrics", monitoring.MetricsHandler())

	authHandler := handlers.NewAuthHandler(db, authService)
	refreshHandler := handlers.NewRefreshHandler(db, authService)
	logoutHandler := handlers.NewLogoutHandler(db, authService)
	registerHandler := handlers.NewRegisterHandler(db, registerService)
	meHandler := handlers.NewMeHandler(db, authService)
	taskHandler := handlers.NewTaskHandler(cfg.App.ID, taskService)

	router.POST("/auth/register", registerHandler.Registration)
	router.POST("/auth/token", authHandler.Token)
	router.POST("/auth/refresh", refreshHandler.Refresh)
	router.POST("/auth/logout", logoutHandler.Logout)

	api := router.Group("/api")
	api.Use(middleware.AuthzMiddleware())
	{
		api.GET("/me", meHandler.Me)

		api.POST("/tasks", taskHandler.CreateTask)
		api.GET("/tasks", taskHandler.GetTasks)
		api.GET("/tasks/:id", taskHandler.GetTask)
		api.PATCH("/tasks/:id", taskHandler.UpdateTask)
		api.DELETE("/tasks/:id", taskHandler.DeleteTask)
		api.POST("/tasks/:id/checklist/:itemId/toggle", taskHandler.ToggleChecklistItem)

		api.GET("/board", taskHandler.GetBoard)
		api.GET("/matrix", taskHandler.GetMatrix)
	}

	return router
}
