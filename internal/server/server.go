package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"taskify/docs"
	"taskify/internal/auth"
	"taskify/internal/cache"
	"taskify/internal/config"
	"taskify/internal/handler"
	"taskify/internal/middleware"
	"taskify/internal/notify"
	"taskify/internal/repository"
	"taskify/internal/service"
	"taskify/migrations"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type Server struct {
	Engine *gin.Engine
	DB     *gorm.DB
	Redis  *redis.Client
	NATS   *nats.Conn
	Config *config.Config
}

// UserStore is what the identity and group services need from user storage.
type UserStore interface {
	service.UserStore
	service.UserDirectory
}

// Deps are the stores and adapters behind the router. Cache and Notifier may be nil.
type Deps struct {
	Tasks    service.TaskStore
	Groups   service.GroupStore
	Users    UserStore
	Cache    service.ViewCache
	Notifier service.Notifier
	Tokens   *auth.TokenManager
	Ping     func(ctx context.Context) error
}

func Init(cfg *config.Config) (*Server, error) {
	db, err := gorm.Open(postgres.Open(cfg.PostgresDSN()), &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to DB: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get DB handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.DB.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.DB.MaxIdleConns)
	log.Println("Connected to database")

	if cfg.DB.MigrateOnStart {
		if err := migrations.Up(cfg.MigrationURL()); err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
		log.Println("Migrations applied")
	}

	s := &Server{DB: db, Config: cfg}
	deps := Deps{
		Tasks:  repository.NewTaskRepository(db),
		Groups: repository.NewGroupRepository(db),
		Users:  repository.NewUserRepository(db),
		Tokens: auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.RefreshSecret, cfg.JWT.AccessTTL.Duration(), cfg.JWT.RefreshTTL.Duration()),
		Ping:   sqlDB.PingContext,
	}

	if cfg.Redis.Addr != "" {
		rdb, err := newRedis(cfg.Redis)
		if err != nil {
			log.Printf("View cache disabled: %v", err)
		} else {
			s.Redis = rdb
			deps.Cache = cache.NewViewCache(rdb, cfg.Redis.ViewTTL.Duration())
			log.Println("Connected to Redis")
		}
	}

	if cfg.NATS.URL != "" {
		nc, err := notify.Connect(cfg.NATS.URL)
		if err != nil {
			log.Printf("Notifications disabled: %v", err)
		} else {
			s.NATS = nc
			deps.Notifier = notify.NewNATSNotifier(nc, cfg.NATS.SubjectPrefix)
			log.Println("Connected to NATS")
		}
	}

	s.Engine = NewRouter(cfg, deps)
	return s, nil
}

func newRedis(cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// NewRouter builds the HTTP surface on top of d.
func NewRouter(cfg *config.Config, d Deps) *gin.Engine {
	r := gin.Default()
	r.Use(cors.New(corsConfig(cfg.CORS.AllowedOrigins)))

	taskSvc := service.NewTaskService(d.Tasks, d.Groups, d.Cache)
	groupSvc := service.NewGroupService(d.Groups, d.Users, d.Cache, d.Notifier)
	aggregator := service.NewAggregator(d.Tasks, d.Groups, d.Cache)
	authSvc := service.NewAuthService(d.Users, d.Tokens)

	authHandler := handler.NewAuthHandler(authSvc)
	taskHandler := handler.NewTaskHandler(taskSvc, aggregator)
	groupHandler := handler.NewGroupHandler(groupSvc)

	docs.SwaggerInfo.Version = cfg.App.Version
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.GET("/health", func(c *gin.Context) {
		if d.Ping != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := d.Ping(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"version": cfg.App.Version})
	})

	// Public routes
	authRoutes := r.Group("/auth")
	{
		authRoutes.POST("/register", authHandler.Register)
		authRoutes.POST("/login", authHandler.Login)
		authRoutes.POST("/refresh-token", authHandler.RefreshToken)
		authRoutes.POST("/logout", authHandler.Logout)
		authRoutes.POST("/verify", authHandler.Verify)
	}

	// Protected routes - require authentication
	authorized := r.Group("/")
	authorized.Use(middleware.JWTAuthMiddleware(d.Tokens))
	{
		// Task routes
		authorized.GET("/tasks", taskHandler.GetAll)
		authorized.POST("/tasks", taskHandler.Create)
		authorized.PUT("/tasks/:id", taskHandler.Update)
		authorized.DELETE("/tasks/:id", taskHandler.Delete)
		authorized.PUT("/tasks/complete/:taskId", taskHandler.Complete)
		authorized.PUT("/tasks/complete/:taskId/subtask/:subtaskId", taskHandler.CompleteSubtask)

		// Group routes
		authorized.POST("/groups", groupHandler.Create)
		authorized.GET("/groups", groupHandler.GetAll)
		authorized.GET("/groups/:id", groupHandler.GetByID)
		authorized.PUT("/groups/:id", groupHandler.Update)
		authorized.DELETE("/groups/:id", groupHandler.Delete)
		authorized.POST("/groups/:id/members", groupHandler.AddMember)
		authorized.POST("/groups/:id/tasks", groupHandler.CreateTask)
		authorized.GET("/groups/:id/tasks", groupHandler.GetTasks)
		authorized.PUT("/groups/:id/tasks/:taskId/complete", groupHandler.CompleteTask)
	}
	return r
}

// corsConfig allows every origin when the list is empty or contains "*".
func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"Content-Length", "Content-Type"},
		MaxAge:        12 * time.Hour,
	}
	var allowed []string
	for _, o := range origins {
		o = strings.TrimSpace(o)
		switch o {
		case "":
			continue
		case "*":
			cfg.AllowAllOrigins = true
			return cfg
		}
		allowed = append(allowed, o)
	}
	if len(allowed) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = allowed
	return cfg
}

// Run serves until SIGINT or SIGTERM, then shuts down gracefully. The caller owns Close.
func (s *Server) Run() error {
	srv := &http.Server{
		Addr:         ":" + s.Config.HTTP.Port,
		Handler:      s.Engine,
		ReadTimeout:  s.Config.HTTP.ReadTimeout.Duration(),
		WriteTimeout: s.Config.HTTP.WriteTimeout.Duration(),
		IdleTimeout:  s.Config.HTTP.IdleTimeout.Duration(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server running on port %s\n", s.Config.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("failed to listen: %w", err)
	case <-quit:
	}
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), s.Config.HTTP.ShutdownTimeout.Duration())
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("Server exited properly")
	return nil
}

// Close releases the database, Redis and NATS connections.
func (s *Server) Close() {
	if s.NATS != nil {
		s.NATS.Close()
	}
	if s.Redis != nil {
		_ = s.Redis.Close()
	}
	if s.DB != nil {
		if sqlDB, err := s.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}
