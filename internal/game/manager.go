package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/tabla-live/tabla-server/internal/engine"
	"github.com/tabla-live/tabla-server/internal/events"
	"github.com/tabla-live/tabla-server/internal/obslog"
	"github.com/tabla-live/tabla-server/internal/rng"
	"go.uber.org/zap"
)

// Notifier receives the committed game state after every accepted
// transition. Used to push live updates to spectators.
type Notifier interface {
	NotifyGame(g *Game)
}

// Manager is the turn/dice coordinator. Redis holds the authoritative game
// and escrow records; every transition runs under an optimistic WATCH
// transaction on the game key so a state change and its balance effects
// commit together or not at all.
type Manager struct {
	rdb      *redis.Client
	seeds    rng.Provider
	platform string
	ttl      time.Duration
	maxStake int64

	repo     *Repository
	producer *events.Producer
	notifier Notifier
}

func NewManager(redisURL string, seeds rng.Provider, platformAccount string, ttl time.Duration) (*Manager, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL required for game manager")
	}
	if seeds == nil {
		return nil, fmt.Errorf("randomness provider required")
	}
	opts, err := parseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	if strings.TrimSpace(platformAccount) == "" {
		platformAccount = "platform"
	}
	return &Manager{rdb: rdb, seeds: seeds, platform: platformAccount, ttl: ttl}, nil
}

func (m *Manager) Close() error {
	if m == nil || m.rdb == nil {
		return nil
	}
	return m.rdb.Close()
}

// SetStakeLimit caps the per-player stake on new games. Zero disables the
// cap.
func (m *Manager) SetStakeLimit(max int64) {
	if m != nil {
		m.maxStake = max
	}
}

// AttachRepository wires a database repository for archiving finished games.
func (m *Manager) AttachRepository(r *Repository) {
	if m != nil {
		m.repo = r
	}
}

// AttachProducer wires a Kafka producer for lifecycle events.
func (m *Manager) AttachProducer(p *events.Producer) {
	if m != nil {
		m.producer = p
	}
}

// AttachNotifier wires a live-update sink.
func (m *Manager) AttachNotifier(n Notifier) {
	if m != nil {
		m.notifier = n
	}
}

// CreateGame opens a staked match. Player A owns the first roll, the board
// starts in the standard layout and the escrow is seeded with both stakes
// pooled.
func (m *Manager) CreateGame(ctx context.Context, playerA, playerB string, stake int64) (*Game, error) {
	playerA = strings.TrimSpace(playerA)
	playerB = strings.TrimSpace(playerB)
	if playerA == "" || playerB == "" || playerA == playerB {
		return nil, fmt.Errorf("%w: invalid participants", ErrInvalidArgument)
	}
	if stake < 0 {
		return nil, fmt.Errorf("%w: negative stake", ErrInvalidArgument)
	}
	if m.maxStake > 0 && stake > m.maxStake {
		return nil, fmt.Errorf("%w: stake above limit %d", ErrInvalidArgument, m.maxStake)
	}

	now := time.Now()
	g := &Game{
		ID:          uuid.NewString(),
		PlayerA:     playerA,
		PlayerB:     playerB,
		CurrentTurn: playerA,
		Board:       engine.NewBoard(),
		Status:      StatusActive,
		Stake:       stake,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	esc := &Escrow{Balance: 2 * stake}

	rawGame, err := json.Marshal(g)
	if err != nil {
		return nil, err
	}
	rawEsc, err := json.Marshal(esc)
	if err != nil {
		return nil, err
	}

	pipe := m.rdb.TxPipeline()
	pipe.Set(ctx, gameKey(g.ID), rawGame, m.ttl)
	pipe.Set(ctx, escrowKey(g.ID), rawEsc, m.ttl)
	pipe.SAdd(ctx, idxUserKey(playerA), g.ID)
	pipe.Expire(ctx, idxUserKey(playerA), m.ttl)
	pipe.SAdd(ctx, idxUserKey(playerB), g.ID)
	pipe.Expire(ctx, idxUserKey(playerB), m.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("persist new game: %w", err)
	}

	obslog.L().Info("game_create",
		zap.String("game_id", g.ID),
		zap.String("player_a", playerA),
		zap.String("player_b", playerB),
		zap.Int64("stake", stake),
	)
	m.producer.Emit(events.Event{
		Type:   events.TypeGameCreated,
		GameID: g.ID,
		Payload: map[string]any{
			"player_a": playerA, "player_b": playerB, "stake": stake, "pot": esc.Balance,
		},
	})
	return g, nil
}

// RollDice consumes a seed from the randomness provider and produces the
// two die values for the caller's turn.
func (m *Manager) RollDice(ctx context.Context, gameID, caller string) (*Game, error) {
	caller = strings.TrimSpace(caller)
	if caller == "" {
		return nil, fmt.Errorf("%w: empty caller", ErrInvalidArgument)
	}

	// Seed is fetched before the transaction so the watched section stays
	// short. An unused seed on conflict is discarded, never reused.
	seed, err := m.seeds.Seed(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch roll seed: %w", err)
	}
	d1, d2 := engine.DiceFromSeed(seed)

	var out *Game
	err = m.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := loadGame(ctx, tx, gameID)
		if err != nil {
			return err
		}
		if cur.Winner != "" {
			return ErrGameEnded
		}
		if caller != cur.CurrentTurn {
			return ErrNotYourTurn
		}
		if cur.DiceRolled {
			return ErrDiceAlreadyRolled
		}

		cur.Die1, cur.Die2 = d1, d2
		cur.DiceRolled = true
		cur.UpdatedAt = time.Now()

		if err := writeGame(ctx, tx, cur, m.ttl); err != nil {
			return err
		}
		out = cur
		return nil
	}, gameKey(gameID))
	if err != nil {
		return nil, mapTxErr(err)
	}

	obslog.L().Info("dice_roll",
		zap.String("game_id", out.ID),
		zap.String("player", caller),
		zap.Uint8("die1", out.Die1),
		zap.Uint8("die2", out.Die2),
	)
	m.producer.Emit(events.Event{
		Type: events.TypeDiceRolled, GameID: out.ID, Actor: caller,
		Payload: map[string]any{"die1": out.Die1, "die2": out.Die2},
	})
	m.notify(out)
	return out, nil
}

// MakeMove validates and executes one checker move, detects a win, and
// either finishes the game or hands the turn over.
func (m *Manager) MakeMove(ctx context.Context, gameID, caller string, from, to int) (*Game, error) {
	caller = strings.TrimSpace(caller)
	if caller == "" {
		return nil, fmt.Errorf("%w: empty caller", ErrInvalidArgument)
	}

	var out *Game
	err := m.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := loadGame(ctx, tx, gameID)
		if err != nil {
			return err
		}
		if cur.Winner != "" {
			return ErrGameEnded
		}
		if caller != cur.CurrentTurn {
			return ErrNotYourTurn
		}
		if !cur.DiceRolled {
			return ErrDiceNotRolled
		}
		seat, ok := cur.seat(caller)
		if !ok {
			return ErrNotYourTurn
		}
		if !engine.Validate(&cur.Board, from, to, seat) {
			return ErrInvalidMove
		}

		eff := engine.Execute(&cur.Board, from, to, seat)
		if eff.BorneOff {
			if seat == engine.PlayerA {
				cur.OffA++
			} else {
				cur.OffB++
			}
		}
		now := time.Now()
		cur.UpdatedAt = now

		if w := engine.CheckWinner(cur.OffA, cur.OffB, cur.PlayerA, cur.PlayerB); w != "" {
			cur.Winner = w
			cur.Status = StatusFinished
			cur.EndedAt = now
		} else {
			cur.Die1, cur.Die2 = 0, 0
			cur.DiceRolled = false
			cur.CurrentTurn = cur.opponent(cur.CurrentTurn)
		}

		if err := writeGame(ctx, tx, cur, m.ttl); err != nil {
			return err
		}
		out = cur
		return nil
	}, gameKey(gameID))
	if err != nil {
		return nil, mapTxErr(err)
	}

	obslog.L().Info("move",
		zap.String("game_id", out.ID),
		zap.String("player", caller),
		zap.Int("from", from),
		zap.Int("to", to),
		zap.String("status", string(out.Status)),
		zap.String("winner", out.Winner),
	)
	m.producer.Emit(events.Event{
		Type: events.TypeMoveMade, GameID: out.ID, Actor: caller,
		Payload: map[string]any{"from": from, "to": to},
	})
	if out.Winner != "" {
		m.producer.Emit(events.Event{
			Type: events.TypeGameFinished, GameID: out.ID,
			Payload: map[string]any{"winner": out.Winner},
		})
		m.archiveFinished(ctx, out)
	}
	m.notify(out)
	return out, nil
}

// ClaimWinnings settles a finished game exactly once: the claimed flag, the
// escrow debit and the ledger credits commit in one transaction.
func (m *Manager) ClaimWinnings(ctx context.Context, gameID, caller string) (*Settlement, error) {
	caller = strings.TrimSpace(caller)
	if caller == "" {
		return nil, fmt.Errorf("%w: empty caller", ErrInvalidArgument)
	}

	var st *Settlement
	err := m.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := loadGame(ctx, tx, gameID)
		if err != nil {
			return err
		}
		if cur.Winner == "" {
			return ErrGameNotEnded
		}
		if caller != cur.Winner {
			return ErrNotWinner
		}
		if cur.Claimed {
			return ErrAlreadyClaimed
		}

		esc, err := loadEscrow(ctx, tx, gameID)
		if err != nil {
			return err
		}
		pot := esc.Balance
		payout, fee := engine.Settle(pot)
		if payout+fee > esc.Balance {
			return ErrInsufficientFunds
		}

		now := time.Now()
		cur.Claimed = true
		cur.Status = StatusSettled
		cur.UpdatedAt = now
		esc.Balance = 0

		rawGame, err := json.Marshal(cur)
		if err != nil {
			return err
		}
		rawEsc, err := json.Marshal(esc)
		if err != nil {
			return err
		}

		pipe := tx.TxPipeline()
		pipe.Set(ctx, gameKey(cur.ID), rawGame, m.ttl)
		pipe.Set(ctx, escrowKey(cur.ID), rawEsc, m.ttl)
		pipe.IncrBy(ctx, ledgerKey(cur.Winner), payout)
		pipe.IncrBy(ctx, ledgerKey(m.platform), fee)
		if _, err := pipe.Exec(ctx); err != nil {
			return err
		}

		st = &Settlement{
			GameID:    cur.ID,
			Winner:    cur.Winner,
			Pot:       pot,
			Payout:    payout,
			Fee:       fee,
			ClaimedAt: now,
		}
		return nil
	}, gameKey(gameID), escrowKey(gameID))
	if err != nil {
		return nil, mapTxErr(err)
	}

	obslog.L().Info("claim_settled",
		zap.String("game_id", st.GameID),
		zap.String("winner", st.Winner),
		zap.Int64("payout", st.Payout),
		zap.Int64("fee", st.Fee),
	)
	m.producer.Emit(events.Event{
		Type: events.TypeClaimSettled, GameID: st.GameID, Actor: caller,
		Payload: map[string]any{"pot": st.Pot, "payout": st.Payout, "fee": st.Fee},
	})
	if m.repo != nil {
		if err := m.repo.SaveSettlement(ctx, st); err != nil {
			obslog.L().Error("settlement_persist_error", zap.String("game_id", st.GameID), zap.Error(err))
		}
	}
	return st, nil
}

// GetGame returns the stored game or ErrGameNotFound.
func (m *Manager) GetGame(ctx context.Context, id string) (*Game, error) {
	g, err := m.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, ErrGameNotFound
	}
	return g, nil
}

// GetActiveGameByUser returns the most recently updated active game the
// user plays in, or nil when none exists.
func (m *Manager) GetActiveGameByUser(ctx context.Context, userID string) (*Game, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, nil
	}
	ids, err := m.rdb.SMembers(ctx, idxUserKey(userID)).Result()
	if err != nil {
		return nil, err
	}
	var list []*Game
	for _, id := range ids {
		g, gerr := m.get(ctx, id)
		if gerr == nil && g != nil && g.Status == StatusActive {
			list = append(list, g)
		}
	}
	if len(list) == 0 {
		return nil, nil
	}
	sort.Slice(list, func(i, j int) bool { return list[i].UpdatedAt.After(list[j].UpdatedAt) })
	return list[0], nil
}

// EscrowBalance reads the pooled balance still held for a game.
func (m *Manager) EscrowBalance(ctx context.Context, gameID string) (int64, error) {
	raw, err := m.rdb.Get(ctx, escrowKey(gameID)).Bytes()
	if err == redis.Nil {
		return 0, ErrGameNotFound
	}
	if err != nil {
		return 0, err
	}
	var esc Escrow
	if err := json.Unmarshal(raw, &esc); err != nil {
		return 0, err
	}
	return esc.Balance, nil
}

// LedgerBalance reads an account's settled balance. Missing accounts read
// as zero.
func (m *Manager) LedgerBalance(ctx context.Context, account string) (int64, error) {
	raw, err := m.rdb.Get(ctx, ledgerKey(strings.TrimSpace(account))).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(raw, 10, 64)
}

func (m *Manager) notify(g *Game) {
	if m == nil || m.notifier == nil || g == nil {
		return
	}
	m.notifier.NotifyGame(g)
}

// archiveFinished saves a finished game and updates both rating rows. The
// archive is best effort; the authoritative record already committed.
func (m *Manager) archiveFinished(ctx context.Context, g *Game) {
	if m == nil || m.repo == nil || g == nil || g.Winner == "" {
		return
	}
	if err := m.repo.SaveResult(ctx, g); err != nil {
		obslog.L().Error("result_persist_error", zap.String("game_id", g.ID), zap.Error(err))
		return
	}
	payout, _ := engine.Settle(2 * g.Stake)
	for _, p := range []string{g.PlayerA, g.PlayerB} {
		won := p == g.Winner
		var winnings int64
		if won {
			winnings = payout
		}
		if err := m.repo.UpsertRating(ctx, p, won, winnings); err != nil {
			obslog.L().Error("rating_persist_error", zap.String("player", p), zap.Error(err))
		}
	}
}

// Redis access helpers.

func (m *Manager) get(ctx context.Context, id string) (*Game, error) {
	raw, err := m.rdb.Get(ctx, gameKey(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var g Game
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

func (m *Manager) save(ctx context.Context, g *Game) error {
	raw, err := json.Marshal(g)
	if err != nil {
		return err
	}
	return m.rdb.Set(ctx, gameKey(g.ID), raw, m.ttl).Err()
}

func loadGame(ctx context.Context, tx *redis.Tx, id string) (*Game, error) {
	raw, err := tx.Get(ctx, gameKey(id)).Bytes()
	if err == redis.Nil {
		return nil, ErrGameNotFound
	}
	if err != nil {
		return nil, err
	}
	var g Game
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

func loadEscrow(ctx context.Context, tx *redis.Tx, gameID string) (*Escrow, error) {
	raw, err := tx.Get(ctx, escrowKey(gameID)).Bytes()
	if err == redis.Nil {
		return nil, ErrGameNotFound
	}
	if err != nil {
		return nil, err
	}
	var esc Escrow
	if err := json.Unmarshal(raw, &esc); err != nil {
		return nil, err
	}
	return &esc, nil
}

func writeGame(ctx context.Context, tx *redis.Tx, g *Game, ttl time.Duration) error {
	raw, err := json.Marshal(g)
	if err != nil {
		return err
	}
	pipe := tx.TxPipeline()
	pipe.Set(ctx, gameKey(g.ID), raw, ttl)
	_, err = pipe.Exec(ctx)
	return err
}

func mapTxErr(err error) error {
	if errors.Is(err, redis.TxFailedErr) {
		return ErrConcurrentUpdate
	}
	return err
}

func gameKey(id string) string    { return "tabla:game:" + strings.TrimSpace(id) }
func escrowKey(id string) string  { return "tabla:escrow:" + strings.TrimSpace(id) }
func ledgerKey(acc string) string { return "tabla:ledger:" + strings.TrimSpace(acc) }
func idxUserKey(id string) string { return "tabla:index:user:" + strings.TrimSpace(id) }

func parseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			db = n
		}
	}
	pass, _ := u.User.Password()
	return &redis.Options{Addr: u.Host, Password: pass, DB: db}, nil
}
