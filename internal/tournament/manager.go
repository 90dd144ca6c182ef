package tournament

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/tabla-live/tabla-server/internal/events"
	"github.com/tabla-live/tabla-server/internal/obslog"
	"go.uber.org/zap"
)

// Registry errors.
var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrNotFound          = errors.New("tournament not found")
	ErrFull              = errors.New("tournament is full")
	ErrStarted           = errors.New("tournament has already started")
	ErrAlreadyRegistered = errors.New("player already registered")
	ErrConcurrentUpdate  = errors.New("concurrent update, retry")
)

// Tournament is a roster with an entry fee pooled into a prize. No bracket
// or progression logic lives here; games reference tournaments only by ID.
type Tournament struct {
	ID              string    `json:"id"`
	Organizer       string    `json:"organizer"`
	EntryFee        int64     `json:"entry_fee"`
	MaxParticipants int       `json:"max_participants"`
	Participants    []string  `json:"participants"`
	PrizePool       int64     `json:"prize_pool"`
	Started         bool      `json:"started"`
	Completed       bool      `json:"completed"`
	CreatedAt       time.Time `json:"created_at"`
}

func (t *Tournament) IsFull() bool {
	return len(t.Participants) >= t.MaxParticipants
}

func (t *Tournament) CanStart() bool {
	return len(t.Participants) >= 2 && !t.Started
}

// Manager is the registry over Redis. Registration runs under WATCH so the
// capacity check and the roster append cannot race.
type Manager struct {
	rdb      *redis.Client
	ttl      time.Duration
	producer *events.Producer
}

func NewManager(rdb *redis.Client, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &Manager{rdb: rdb, ttl: ttl}
}

// AttachProducer wires a Kafka producer for registry events.
func (m *Manager) AttachProducer(p *events.Producer) {
	if m != nil {
		m.producer = p
	}
}

// Create opens a tournament with an empty roster.
func (m *Manager) Create(ctx context.Context, organizer string, entryFee int64, maxParticipants int) (*Tournament, error) {
	organizer = strings.TrimSpace(organizer)
	if organizer == "" {
		return nil, fmt.Errorf("%w: empty organizer", ErrInvalidArgument)
	}
	if entryFee < 0 {
		return nil, fmt.Errorf("%w: negative entry fee", ErrInvalidArgument)
	}
	if maxParticipants < 2 {
		return nil, fmt.Errorf("%w: need at least two seats", ErrInvalidArgument)
	}

	t := &Tournament{
		ID:              uuid.NewString(),
		Organizer:       organizer,
		EntryFee:        entryFee,
		MaxParticipants: maxParticipants,
		Participants:    []string{},
		CreatedAt:       time.Now(),
	}
	raw, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	if err := m.rdb.Set(ctx, key(t.ID), raw, m.ttl).Err(); err != nil {
		return nil, err
	}
	obslog.L().Info("tournament_create",
		zap.String("tournament_id", t.ID),
		zap.String("organizer", organizer),
		zap.Int64("entry_fee", entryFee),
		zap.Int("max_participants", maxParticipants),
	)
	m.producer.Emit(events.Event{
		Type:  events.TypeTournamentNew,
		Actor: organizer,
		Payload: map[string]any{
			"tournament_id": t.ID, "entry_fee": entryFee, "max_participants": maxParticipants,
		},
	})
	return t, nil
}

// Register adds a player to the roster and pools the entry fee.
func (m *Manager) Register(ctx context.Context, tournamentID, player string) (*Tournament, error) {
	player = strings.TrimSpace(player)
	if player == "" {
		return nil, fmt.Errorf("%w: empty player", ErrInvalidArgument)
	}

	var out *Tournament
	err := m.rdb.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key(tournamentID)).Bytes()
		if err == redis.Nil {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		var cur Tournament
		if err := json.Unmarshal(raw, &cur); err != nil {
			return err
		}
		if cur.Started {
			return ErrStarted
		}
		if cur.IsFull() {
			return ErrFull
		}
		for _, p := range cur.Participants {
			if p == player {
				return ErrAlreadyRegistered
			}
		}

		cur.Participants = append(cur.Participants, player)
		cur.PrizePool += cur.EntryFee

		newRaw, err := json.Marshal(&cur)
		if err != nil {
			return err
		}
		pipe := tx.TxPipeline()
		pipe.Set(ctx, key(cur.ID), newRaw, m.ttl)
		if _, err := pipe.Exec(ctx); err != nil {
			return err
		}
		out = &cur
		return nil
	}, key(tournamentID))
	if err != nil {
		if errors.Is(err, redis.TxFailedErr) {
			return nil, ErrConcurrentUpdate
		}
		return nil, err
	}

	obslog.L().Info("tournament_register",
		zap.String("tournament_id", out.ID),
		zap.String("player", player),
		zap.Int("participants", len(out.Participants)),
		zap.Int64("prize_pool", out.PrizePool),
	)
	return out, nil
}

// Get returns a tournament or ErrNotFound.
func (m *Manager) Get(ctx context.Context, id string) (*Tournament, error) {
	raw, err := m.rdb.Get(ctx, key(id)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var t Tournament
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func key(id string) string { return "tabla:tournament:" + strings.TrimSpace(id) }
