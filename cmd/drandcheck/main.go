package main

import (
	"context"
	"encoding/hex"
	"log"
	"os"
	"time"

	"github.com/tabla-live/tabla-server/internal/engine"
	"github.com/tabla-live/tabla-server/internal/rng"
)

// Probes a randomness beacon and shows the dice the latest round would
// produce. Handy when pointing a deployment at a new beacon.
func main() {
	baseURL := os.Getenv("BEACON_URL")
	if baseURL == "" {
		log.Fatal("BEACON_URL is required")
	}

	client := rng.NewBeaconClient(baseURL,
		rng.WithTimeout(8*time.Second),
		rng.WithRetry(2),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	round, err := client.LatestRound(ctx)
	if err != nil {
		log.Fatalf("latest round error: %v", err)
	}
	log.Printf("round=%d randomness=%s", round.Round, round.Randomness)

	seed, err := client.Seed(ctx)
	if err != nil {
		log.Fatalf("seed error: %v", err)
	}
	d1, d2 := engine.DiceFromSeed(seed)
	log.Printf("seed=%s dice=%d,%d", hex.EncodeToString(seed), d1, d2)
}
