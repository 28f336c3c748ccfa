package main // Entry point package

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"    // .env loader for local development
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/kioskconnect/backend/internal/config"
	"github.com/kioskconnect/backend/internal/coordinator"
	"github.com/kioskconnect/backend/internal/database"
	"github.com/kioskconnect/backend/internal/handler"
	"github.com/kioskconnect/backend/internal/queue"
	"github.com/kioskconnect/backend/internal/repository"
	"github.com/kioskconnect/backend/internal/router"
	queue_publisher "github.com/kioskconnect/backend/internal/service"
)

func main() {
	_ = godotenv.Load() // best effort; real deployments set env directly
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	callRepo := repository.NewCallRepo(db)
	restaurantRepo := repository.NewRestaurantRepo(db)
	screenRepo := repository.NewScreenRepo(db)
	userRepo := repository.NewUserRepo(db)
	tokenRepo := repository.NewTokenRepo(db)

	coord := coordinator.New(callRepo)

	rdb := config.NewRedisClient() // nil disables rate limiting and caching

	e := echo.New()
	router.Register(e, router.Deps{
		Cfg:         cfg,
		Auth:        handler.NewAuthHandler(cfg, userRepo, tokenRepo),
		Calls:       handler.NewCallHandler(coord),
		Restaurants: handler.NewRestaurantHandler(restaurantRepo),
		Screens:     handler.NewScreenHandler(screenRepo),
		Rdb:         rdb,
	})

	// Lifecycle event consumer: mirrors call transitions into logs/calls.log.
	go func() {
		if err := queue.StartLifecycleConsumer(); err != nil {
			log.Printf("lifecycle consumer stopped: %v", err)
		}
	}()

	// Expiry sweeper: completes unanswered calls after the configured TTL.
	if cfg.PendingTTLSec > 0 {
		go runSweeper(coord, time.Duration(cfg.PendingTTLSec)*time.Second, time.Duration(cfg.SweepEverySec)*time.Second)
	}

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}

// runSweeper periodically expires stale PENDING calls and publishes
// a lifecycle event for each one it closes.
func runSweeper(coord *coordinator.Coordinator, maxAge, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		expired, err := coord.ExpireStale(ctx, maxAge)
		cancel()
		if err != nil {
			log.Printf("sweeper: %v", err)
		}
		for _, call := range expired {
			ev := queue.CallLifecycleEvent{
				Type:         queue.EventCallExpired,
				CallID:       call.ID,
				RestaurantID: call.RestaurantID,
				OriginID:     call.OriginID,
				ScreenName:   call.ScreenName,
				Status:       call.Status,
				Revision:     call.Revision,
				OccurredAt:   time.Now().UTC().Format(time.RFC3339),
			}
			if call.Outcome != nil {
				ev.Outcome = *call.Outcome
			}
			pubCtx, pubCancel := context.WithTimeout(context.Background(), 5*time.Second)
			_ = queue_publisher.PublishCallLifecycle(pubCtx, ev)
			pubCancel()
		}
	}
}
