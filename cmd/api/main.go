package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	v1 "go-jukebox/cmd/api/router/v1"
	"go-jukebox/internal/infrastructure/auth"
	cacheAdapter "go-jukebox/internal/infrastructure/cache/adapter"
	"go-jukebox/internal/infrastructure/config"
	"go-jukebox/internal/infrastructure/database"
	"go-jukebox/internal/infrastructure/logging"
	queueAdapter "go-jukebox/internal/infrastructure/queue/adapter"
	"go-jukebox/internal/infrastructure/realtime"
	"go-jukebox/internal/pkg/room/application/engine"
	"go-jukebox/internal/pkg/room/application/persist"
	"go-jukebox/internal/pkg/room/application/task"
	"go-jukebox/internal/pkg/room/application/usecase"
	repoAdapter "go-jukebox/internal/pkg/room/persistence/repository/adapter"
	repository "go-jukebox/internal/pkg/room/persistence/repository/port"
	"go-jukebox/internal/pkg/room/presentation/controller"
	roomHTTP "go-jukebox/internal/pkg/room/presentation/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Pretty)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := database.Connect(startCtx, cfg.DB.URL, database.WithMaxConns(cfg.DB.MaxConns))
	if err != nil {
		log.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()
	if err := database.EnsureSchema(startCtx, pool); err != nil {
		log.Fatal().Err(err).Msg("ensure schema")
	}

	var rooms repository.RoomRepository = repoAdapter.NewPgRoomRepository(pool)
	queue := repoAdapter.NewPgQueueRepository(pool)
	messages := repoAdapter.NewPgMessageRepository(pool)

	if cfg.Redis.URL != "" {
		rc, err := cacheAdapter.NewRedisCache(startCtx, cfg.Redis.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("connect redis")
		}
		defer rc.Close()
		rooms = repoAdapter.NewCachedRoomRepository(rooms, rc, cfg.Room.CacheTTL)
	}

	direct := persist.NewRepositorySink(rooms, queue, messages)
	var sink persist.Sink = direct
	workersDone := make(chan struct{})
	close(workersDone)

	if cfg.Persist.Mode == config.PersistQueue {
		client, err := queueAdapter.NewAsynqClient(cfg.Redis.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("asynq client")
		}
		defer client.Close()

		srv, err := queueAdapter.NewAsynqServer(cfg.Redis.URL, cfg.Asynq.Concurrency, map[string]int{task.PersistQueue: 1})
		if err != nil {
			log.Fatal().Err(err).Msg("asynq server")
		}
		task.RegisterPersistTasks(srv, direct)

		workersDone = make(chan struct{})
		go func() {
			defer close(workersDone)
			if err := srv.Run(ctx); err != nil {
				log.Error().Err(err).Msg("asynq server stopped")
			}
		}()
		sink = task.NewSink(client, cfg.Persist.MaxAttempts)
	}

	persister := persist.New(sink, persist.Options{
		Buffer:      cfg.Persist.Buffer,
		MaxAttempts: cfg.Persist.MaxAttempts,
		Backoff:     cfg.Persist.Backoff,
	})

	router := realtime.NewRouter()
	eng := engine.New(
		controller.NewGateway(router),
		persister,
		usecase.NewLoadRoomUseCase(rooms, queue),
		engine.WithEvictGrace(cfg.Room.EvictGrace),
		engine.WithLoadTimeout(cfg.Room.LoadTimeout),
	)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.HTTP.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		hctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(hctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": "database unreachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "OK", "activeRooms": eng.ActiveRooms()})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1.RegisterRoutes(r, roomHTTP.Dependencies{
		Rooms:       rooms,
		Messages:    messages,
		Engine:      eng,
		Router:      router,
		Auth:        auth.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer),
		ChatBacklog: cfg.Room.ChatBacklog,
	})

	httpSrv := &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           r,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
	}

	go func() {
		log.Info().Str("addr", httpSrv.Addr).Str("persist", cfg.Persist.Mode).Msg("listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancelShutdown()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http shutdown")
	}
	router.Close()
	eng.Close()
	if err := persister.Close(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("persister did not drain")
	}
	<-workersDone
}
