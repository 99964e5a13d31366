package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/avolkov/sessiond/internal/config"
	"github.com/avolkov/sessiond/internal/database"
	"github.com/avolkov/sessiond/internal/handler"
	"github.com/avolkov/sessiond/internal/middleware"
	"github.com/avolkov/sessiond/internal/queue"
	"github.com/avolkov/sessiond/internal/repository"
	"github.com/avolkov/sessiond/internal/router"
	"github.com/avolkov/sessiond/internal/service"
	"github.com/avolkov/sessiond/internal/token"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()
	rlCfg := config.LoadRateLimitConfig()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("mysql: %v", err)
	}
	defer db.Close()

	migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.Migrate(migrateCtx, db); err != nil {
		cancelMigrate()
		log.Fatalf("mysql migrate: %v", err)
	}
	cancelMigrate()

	// The token store is mandatory: without it no refresh session can be
	// verified and no revocation can be recorded.
	rdb, err := config.NewRedisClient()
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer rdb.Close()

	users := repository.NewUserRepo(db, cfg.BcryptCost)
	tokens := repository.NewTokenRepo(rdb)
	issuer := token.NewIssuer(cfg.AccessSecret, cfg.RefreshSecret, cfg.AccessTTL, cfg.RefreshTTL)

	// Two validators over the same secret: the remote surface always fails
	// closed on a store outage, the in-process guard honors the configured
	// stale-revocation trade-off.
	strict := token.NewValidator(cfg.AccessSecret, tokens, false)
	guard := token.NewValidator(cfg.AccessSecret, tokens, cfg.AllowStaleRevocation)

	brokerURL := queue.BrokerURL()
	sessions := service.NewSessionService(users, tokens, issuer, cfg.BcryptCost, brokerURL)

	if brokerURL != "" {
		go func() {
			if err := queue.StartAuthConsumer(brokerURL); err != nil {
				log.Printf("auth consumer stopped: %v", err)
			}
		}()
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())

	extract := middleware.ExtractorFor(cfg.TokenLookup)
	authH := handler.NewAuthHandler(sessions, strict, extract)
	tokenH := handler.NewTokenHandler(strict, extract)
	router.RegisterRoutes(e)
	router.RegisterAuth(e, authH, tokenH, guard, cfg, rlCfg, rdb)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		addr := ":" + cfg.Port
		log.Printf("listening on %s (env=%s)", addr, cfg.Env)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
