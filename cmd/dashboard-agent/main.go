// dashboard-agent is a terminal stand-in for the restaurant
// dashboard: it polls a restaurant's calls and prints the
// pending/active/completed partition whenever it changes.  With
// -auto-accept it behaves like an eager staff member, accepting
// the newest pending call as soon as one appears.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/kioskconnect/backend/internal/poller"
)

func main() {
	_ = godotenv.Load()

	var (
		baseURL      = flag.String("url", envOr("DASHBOARD_API_URL", "http://localhost:8080"), "backend base URL")
		token        = flag.String("token", os.Getenv("DASHBOARD_TOKEN"), "staff access token")
		restaurantID = flag.Uint64("restaurant", 0, "restaurant to watch")
		interval     = flag.Duration("interval", 5*time.Second, "poll interval")
		autoAccept   = flag.Bool("auto-accept", false, "accept the newest pending call automatically")
	)
	flag.Parse()
	if *restaurantID == 0 {
		log.Fatal("-restaurant is required")
	}
	if *token == "" {
		log.Fatal("staff token required (-token or DASHBOARD_TOKEN)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	callee := poller.NewCallee(poller.NewClient(*baseURL, *token), *restaurantID, *interval)
	go callee.Run(ctx)

	var lastPending, lastActive string
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap := callee.Snapshot()

			activeID := ""
			if snap.Active != nil {
				activeID = snap.Active.ID
			}
			pendingKey := ""
			for _, p := range snap.Pending {
				pendingKey += p.ID + ","
			}
			if pendingKey == lastPending && activeID == lastActive {
				continue
			}
			lastPending, lastActive = pendingKey, activeID

			log.Printf("pending=%d active=%q completed=%d", len(snap.Pending), activeID, len(snap.Completed))

			if *autoAccept && snap.Active == nil && len(snap.Pending) > 0 {
				id := snap.Pending[0].ID
				if err := callee.Accept(ctx, id); err != nil {
					log.Printf("accept %s: %v", id, err)
				} else {
					log.Printf("accepted %s", id)
				}
			}
		}
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
