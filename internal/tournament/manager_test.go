package tournament

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(func() { mr.Close() })
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewManager(rdb, time.Hour)
}

func TestCreateAndRegister(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	tr, err := m.Create(ctx, "org", 500, 4)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if tr.PrizePool != 0 || len(tr.Participants) != 0 {
		t.Fatalf("new tournament not empty: %+v", tr)
	}
	if tr.CanStart() {
		t.Fatalf("empty tournament should not be startable")
	}

	for i, p := range []string{"p1", "p2", "p3"} {
		got, err := m.Register(ctx, tr.ID, p)
		if err != nil {
			t.Fatalf("Register %s: %v", p, err)
		}
		if len(got.Participants) != i+1 {
			t.Fatalf("roster size = %d, want %d", len(got.Participants), i+1)
		}
		if got.PrizePool != int64(i+1)*500 {
			t.Fatalf("prize pool = %d after %d entries", got.PrizePool, i+1)
		}
	}

	// Insertion order is preserved.
	got, err := m.Get(ctx, tr.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	for i, want := range []string{"p1", "p2", "p3"} {
		if got.Participants[i] != want {
			t.Fatalf("participant[%d] = %q, want %q", i, got.Participants[i], want)
		}
	}
	if !got.CanStart() {
		t.Fatalf("tournament with %d players should be startable", len(got.Participants))
	}
}

func TestRegisterRejections(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	tr, err := m.Create(ctx, "org", 100, 2)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := m.Register(ctx, "missing", "p1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing tournament = %v, want ErrNotFound", err)
	}

	if _, err := m.Register(ctx, tr.ID, "p1"); err != nil {
		t.Fatalf("Register p1: %v", err)
	}
	if _, err := m.Register(ctx, tr.ID, "p1"); !errors.Is(err, ErrAlreadyRegistered) {
		t.Fatalf("duplicate = %v, want ErrAlreadyRegistered", err)
	}
	if _, err := m.Register(ctx, tr.ID, "p2"); err != nil {
		t.Fatalf("Register p2: %v", err)
	}
	if _, err := m.Register(ctx, tr.ID, "p3"); !errors.Is(err, ErrFull) {
		t.Fatalf("over capacity = %v, want ErrFull", err)
	}
}

func TestCreateValidation(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	cases := []struct {
		organizer string
		fee       int64
		seats     int
	}{
		{"", 100, 4},
		{"org", -1, 4},
		{"org", 100, 1},
	}
	for i, tc := range cases {
		if _, err := m.Create(ctx, tc.organizer, tc.fee, tc.seats); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
}
