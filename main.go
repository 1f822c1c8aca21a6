package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"sync"
	"syscall"
	"time"

	"czar/config"
	"czar/decks"
	"czar/game"
	"czar/logger"
	"czar/migrations"
	"czar/storage"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

func CreateServer(allowedOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/health", func(ctx *gin.Context) { ctx.String(http.StatusOK, "healthy") })

	r.Use(func(ctx *gin.Context) {
		origin := ctx.Request.Header.Get("Origin")

		if slices.Contains(allowedOrigins, origin) {
			ctx.Next()
			return
		}
		ctx.String(http.StatusForbidden, "forbidden origin")
		ctx.Abort()
	})

	r.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowCredentials: true,
		AllowMethods:     []string{"GET", "OPTIONS"},
		AllowHeaders: []string{
			"Content-Type",
			"Upgrade",
			"Connection",
			"Sec-WebSocket-Key",
			"Sec-WebSocket-Version",
			"Sec-WebSocket-Extensions",
			"Sec-WebSocket-Protocol",
		},
	}))

	return r
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("loading config")
	}
	logger.Setup(cfg.Debug)
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := migrations.Migrate(cfg.PostgresURL); err != nil {
		log.Fatal().Err(err).Msg("running migrations")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Dependencies
	pgRepo, err := storage.NewPostgresRepo(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatal().Err(err).Msg("connecting to postgres")
	}
	defer pgRepo.Close()

	scheduler := game.NewWheelScheduler(100*time.Millisecond, 64)
	scheduler.Start()
	defer scheduler.Stop()

	idGen := game.NewIdGen()
	gameServer := game.NewServer(pgRepo, scheduler, idGen, game.Options{
		DisconnectGrace:   cfg.DisconnectGrace,
		PostRoundDelay:    cfg.PostRoundDelay,
		DeckLookupTimeout: cfg.DeckLookupTimeout,
	})

	var wg sync.WaitGroup
	wg.Go(func() { gameServer.Run(ctx) })

	r := CreateServer(cfg.AllowedOrigins)

	gameHandler := game.NewHandler(gameServer, cfg.AllowedOrigins, cfg.MessageRate, cfg.MessageBurst)
	r.GET("/ws", gameHandler.ServeWS)

	deckHandler := decks.NewDeckHandler(pgRepo)
	{
		deckGroup := r.Group("/decks")
		deckGroup.GET("", deckHandler.ListDecksHandler)
		deckGroup.GET("/:slug", deckHandler.GetDeckHandler)
	}

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		log.Info().Str("port", cfg.Port).Strs("origins", cfg.AllowedOrigins).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	wg.Wait()
}
