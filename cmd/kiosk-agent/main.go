// kiosk-agent is a terminal stand-in for a kiosk screen: it places
// a call against a restaurant and reports the local phase as it
// converges with the backend.  Useful for exercising the call flow
// end to end without a browser.
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
		baseURL      = flag.String("url", envOr("KIOSK_API_URL", "http://localhost:8080"), "backend base URL")
		originID     = flag.Uint64("origin", 0, "kiosk screen id")
		restaurantID = flag.Uint64("restaurant", 0, "restaurant to call")
		interval     = flag.Duration("interval", 2*time.Second, "poll interval")
	)
	flag.Parse()
	if *originID == 0 || *restaurantID == 0 {
		log.Fatal("both -origin and -restaurant are required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	caller := poller.NewCaller(poller.NewClient(*baseURL, ""), *originID, *interval)
	go caller.Run(ctx)

	if err := caller.Place(ctx, *restaurantID); err != nil {
		log.Fatalf("place call: %v", err)
	}
	log.Printf("call %s placed against restaurant %d", caller.CallID(), *restaurantID)

	last := ""
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			phase, endedRemotely := caller.Phase()
			if phase != last {
				if endedRemotely {
					log.Printf("phase: %s (ended remotely)", phase)
				} else {
					log.Printf("phase: %s", phase)
				}
				last = phase
			}
			if phase == poller.PhaseIdle && endedRemotely {
				return
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
