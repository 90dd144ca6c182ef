package rng

import (
	"context"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestBeaconSeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/public/latest" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"round":42,"randomness":"deadbeefcafe","signature":"0102"}`))
	}))
	defer srv.Close()

	c := NewBeaconClient(srv.URL, WithTimeout(2*time.Second))
	round, err := c.LatestRound(context.Background())
	if err != nil {
		t.Fatalf("LatestRound: %v", err)
	}
	if round.Round != 42 {
		t.Fatalf("round = %d, want 42", round.Round)
	}

	seed, err := c.Seed(context.Background())
	if err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if hex.EncodeToString(seed) != "deadbeefcafe" {
		t.Fatalf("seed = %x", seed)
	}
}

func TestBeaconRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"round":7,"randomness":"0a0b"}`))
	}))
	defer srv.Close()

	c := NewBeaconClient(srv.URL, WithTimeout(2*time.Second), WithRetry(3))
	if _, err := c.Seed(context.Background()); err != nil {
		t.Fatalf("Seed after retry: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("calls = %d, want 2", calls.Load())
	}
}

func TestBeaconRejectsBadRandomness(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"round":1,"randomness":"not-hex"}`))
	}))
	defer srv.Close()

	c := NewBeaconClient(srv.URL, WithTimeout(time.Second), WithRetry(1))
	if _, err := c.Seed(context.Background()); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestLocalSeedLengthAndVariety(t *testing.T) {
	l := NewLocal()
	a, err := l.Seed(context.Background())
	if err != nil {
		t.Fatalf("Seed: %v", err)
	}
	b, err := l.Seed(context.Background())
	if err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if len(a) != 32 || len(b) != 32 {
		t.Fatalf("seed lengths = %d, %d", len(a), len(b))
	}
	if string(a) == string(b) {
		t.Fatal("two local seeds are identical")
	}
}
