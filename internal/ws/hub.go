package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/tabla-live/tabla-server/internal/game"
	"github.com/tabla-live/tabla-server/internal/obslog"
	"github.com/tabla-live/tabla-server/pkg/tabladto"
)

const (
	MessageTypeGameUpdate = "game_update"
	MessageTypeHello      = "hello"
)

// Message is the envelope pushed to spectators.
type Message struct {
	Type      string    `json:"type"`
	GameID    string    `json:"game_id,omitempty"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Hub fans game snapshots out to spectator connections grouped by game ID.
// It satisfies the manager's notifier hook.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*session]struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type session struct {
	conn   *websocket.Conn
	gameID string
	send   chan []byte
}

func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		rooms:  make(map[string]map[*session]struct{}),
		ctx:    ctx,
		cancel: cancel,
	}
}

// NotifyGame pushes the game's current snapshot to everyone watching it.
func (h *Hub) NotifyGame(g *game.Game) {
	if g == nil {
		return
	}
	h.broadcast(g.ID, Message{
		Type:      MessageTypeGameUpdate,
		GameID:    g.ID,
		Data:      g.View(),
		Timestamp: time.Now(),
	})
}

func (h *Hub) broadcast(gameID string, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		obslog.L().Error("ws marshal failed", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.rooms[gameID] {
		select {
		case s.send <- data:
		default:
			// Slow spectator, drop the frame rather than block the game.
			obslog.L().Warn("ws send buffer full", zap.String("game_id", gameID))
		}
	}
}

// Watchers reports how many connections follow a game.
func (h *Hub) Watchers(gameID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[gameID])
}

// Serve upgrades the request and streams snapshots for one game until the
// peer disconnects. The initial hello carries the snapshot passed in so a
// spectator never starts blind.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, gameID string, snapshot *tabladto.GameView) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		obslog.L().Warn("ws accept failed", zap.Error(err))
		return
	}

	s := &session{conn: conn, gameID: gameID, send: make(chan []byte, 32)}
	h.register(s)
	defer h.unregister(s)

	hello, _ := json.Marshal(Message{
		Type:      MessageTypeHello,
		GameID:    gameID,
		Data:      snapshot,
		Timestamp: time.Now(),
	})
	select {
	case s.send <- hello:
	default:
	}

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		s.writeLoop(h.ctx)
	}()

	// Spectators do not send anything meaningful; reading just detects
	// close and keeps control frames flowing.
	readCtx := h.ctx
	for {
		if _, _, err := conn.Read(readCtx); err != nil {
			break
		}
	}
	conn.Close(websocket.StatusNormalClosure, "bye")
}

func (s *session) writeLoop(ctx context.Context) {
	ping := time.NewTicker(30 * time.Second)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case data := <-s.send:
			wctx, cancel := context.WithTimeout(ctx, 10*time.Second)
			err := s.conn.Write(wctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				return
			}
		case <-ping.C:
			pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := s.conn.Ping(pctx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

func (h *Hub) register(s *session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[s.gameID] == nil {
		h.rooms[s.gameID] = make(map[*session]struct{})
	}
	h.rooms[s.gameID][s] = struct{}{}
}

func (h *Hub) unregister(s *session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if room, ok := h.rooms[s.gameID]; ok {
		delete(room, s)
		if len(room) == 0 {
			delete(h.rooms, s.gameID)
		}
	}
}

// Close drops all connections and stops the hub.
func (h *Hub) Close(ctx context.Context) error {
	h.cancel()

	h.mu.Lock()
	for _, room := range h.rooms {
		for s := range room {
			_ = s.conn.Close(websocket.StatusGoingAway, "shutdown")
		}
	}
	h.rooms = make(map[string]map[*session]struct{})
	h.mu.Unlock()

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}
