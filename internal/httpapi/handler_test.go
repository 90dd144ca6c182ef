package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/tabla-live/tabla-server/internal/game"
	"github.com/tabla-live/tabla-server/internal/msgcat"
	"github.com/tabla-live/tabla-server/internal/tournament"
	"github.com/tabla-live/tabla-server/internal/ws"
	"github.com/tabla-live/tabla-server/pkg/tabladto"
)

type stubSeeds struct{ n byte }

func (s *stubSeeds) Seed(context.Context) ([]byte, error) {
	s.n++
	return []byte{s.n, 0xAB, 0xCD}, nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mr := miniredis.RunT(t)

	games, err := game.NewManager("redis://"+mr.Addr(), &stubSeeds{}, "platform", time.Hour)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	t.Cleanup(func() { games.Close() })

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	tournaments := tournament.NewManager(rdb, time.Hour)

	cat, err := msgcat.New("")
	if err != nil {
		t.Fatalf("msgcat: %v", err)
	}

	hub := ws.NewHub()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		hub.Close(ctx)
	})
	games.AttachNotifier(hub)

	h := NewHandler(games, tournaments, hub, cat, func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})
	ts := httptest.NewServer(h.Router())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return out
}

func createGame(t *testing.T, ts *httptest.Server, stake int64) tabladto.GameView {
	t.Helper()
	resp := postJSON(t, ts.URL+"/api/v1/games", tabladto.CreateGameRequest{
		PlayerA: "alice", PlayerB: "bob", Stake: stake,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create game status = %d", resp.StatusCode)
	}
	return decode[tabladto.GameView](t, resp)
}

func TestHealthAndReady(t *testing.T) {
	ts := newTestServer(t)
	for _, path := range []string{"/health", "/ready"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s status = %d", path, resp.StatusCode)
		}
	}
}

func TestCreateAndFetchGame(t *testing.T) {
	ts := newTestServer(t)
	g := createGame(t, ts, 500)

	if g.Phase != "AWAITING_ROLL" || g.CurrentTurn != "alice" {
		t.Fatalf("unexpected new game: phase=%s turn=%s", g.Phase, g.CurrentTurn)
	}
	if g.Points[0] != 2 || g.Points[23] != -2 {
		t.Fatalf("opening layout missing: %v", g.Points)
	}

	resp, err := http.Get(ts.URL + "/api/v1/games/" + g.ID)
	if err != nil {
		t.Fatalf("GET game: %v", err)
	}
	got := decode[tabladto.GameView](t, resp)
	if got.ID != g.ID || got.Stake != 500 {
		t.Fatalf("fetched game mismatch: %+v", got)
	}
}

func TestGameNotFound(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/api/v1/games/nope")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	e := decode[tabladto.ErrorResponse](t, resp)
	if e.Code != "game_not_found" || e.Message == "" {
		t.Fatalf("error body = %+v", e)
	}
}

func TestRollAndMoveFlow(t *testing.T) {
	ts := newTestServer(t)
	g := createGame(t, ts, 100)
	base := ts.URL + "/api/v1/games/" + g.ID

	// Bob cannot roll on Alice's turn.
	resp := postJSON(t, base+"/roll", tabladto.RollRequest{Player: "bob"})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("stranger roll status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = postJSON(t, base+"/roll", tabladto.RollRequest{Player: "alice"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("roll status = %d", resp.StatusCode)
	}
	rolled := decode[tabladto.RollResponse](t, resp)
	if rolled.Die1 < 1 || rolled.Die1 > 6 || rolled.Die2 < 1 || rolled.Die2 > 6 {
		t.Fatalf("dice out of range: %d %d", rolled.Die1, rolled.Die2)
	}

	// Double roll is rejected.
	resp = postJSON(t, base+"/roll", tabladto.RollRequest{Player: "alice"})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("double roll status = %d", resp.StatusCode)
	}
	e := decode[tabladto.ErrorResponse](t, resp)
	if e.Code != "dice_already_rolled" {
		t.Fatalf("double roll code = %s", e.Code)
	}

	// Moving from an empty point is invalid.
	resp = postJSON(t, base+"/moves", tabladto.MoveRequest{Player: "alice", From: 1, To: 2})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("invalid move status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	// A legal move passes the turn.
	resp = postJSON(t, base+"/moves", tabladto.MoveRequest{Player: "alice", From: 0, To: 2})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("move status = %d", resp.StatusCode)
	}
	moved := decode[tabladto.MoveResponse](t, resp)
	if moved.Game.CurrentTurn != "bob" || moved.Game.DiceRolled {
		t.Fatalf("turn did not pass: %+v", moved.Game)
	}
}

func TestClaimBeforeEndRejected(t *testing.T) {
	ts := newTestServer(t)
	g := createGame(t, ts, 100)

	resp := postJSON(t, ts.URL+"/api/v1/games/"+g.ID+"/claim", tabladto.ClaimRequest{Player: "alice"})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("claim status = %d", resp.StatusCode)
	}
	e := decode[tabladto.ErrorResponse](t, resp)
	if e.Code != "game_not_ended" {
		t.Fatalf("claim code = %s", e.Code)
	}
}

func TestBadRequestBody(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Post(ts.URL+"/api/v1/games", "application/json", bytes.NewReader([]byte("{not json")))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	e := decode[tabladto.ErrorResponse](t, resp)
	if e.Code != "bad_request" {
		t.Fatalf("code = %s", e.Code)
	}
}

func TestBoardImage(t *testing.T) {
	ts := newTestServer(t)
	g := createGame(t, ts, 0)

	resp, err := http.Get(fmt.Sprintf("%s/api/v1/games/%s/board.png?width=480", ts.URL, g.ID))
	if err != nil {
		t.Fatalf("GET board.png: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Fatalf("content type = %s", ct)
	}
}

func TestTournamentFlow(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/v1/tournaments", tabladto.CreateTournamentRequest{
		Organizer: "carol", EntryFee: 50, MaxSeats: 2,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	tv := decode[tabladto.TournamentView](t, resp)
	base := ts.URL + "/api/v1/tournaments/" + tv.ID

	for _, p := range []string{"alice", "bob"} {
		resp = postJSON(t, base+"/register", tabladto.RegisterRequest{Player: p})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("register %s status = %d", p, resp.StatusCode)
		}
		tv = decode[tabladto.TournamentView](t, resp)
	}
	if tv.PrizePool != 100 || len(tv.Players) != 2 || !tv.CanStart {
		t.Fatalf("tournament after registrations: %+v", tv)
	}

	// Third seat does not exist.
	resp = postJSON(t, base+"/register", tabladto.RegisterRequest{Player: "dave"})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("full register status = %d", resp.StatusCode)
	}
	e := decode[tabladto.ErrorResponse](t, resp)
	if e.Code != "tournament_full" {
		t.Fatalf("code = %s", e.Code)
	}

	// Zero seats is caller misuse.
	resp = postJSON(t, ts.URL+"/api/v1/tournaments", tabladto.CreateTournamentRequest{Organizer: "carol", MaxSeats: 0})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad create status = %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestSpectateStream(t *testing.T) {
	ts := newTestServer(t)
	g := createGame(t, ts, 100)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/games/" + g.ID + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	var hello ws.Message
	if err := wsjson.Read(ctx, conn, &hello); err != nil {
		t.Fatalf("read hello: %v", err)
	}
	if hello.Type != ws.MessageTypeHello || hello.GameID != g.ID {
		t.Fatalf("hello = %+v", hello)
	}

	resp := postJSON(t, ts.URL+"/api/v1/games/"+g.ID+"/roll", tabladto.RollRequest{Player: "alice"})
	resp.Body.Close()

	var update ws.Message
	if err := wsjson.Read(ctx, conn, &update); err != nil {
		t.Fatalf("read update: %v", err)
	}
	if update.Type != ws.MessageTypeGameUpdate {
		t.Fatalf("update type = %s", update.Type)
	}
}

func TestLedgerBalance(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/api/v1/accounts/platform/balance")
	if err != nil {
		t.Fatalf("GET balance: %v", err)
	}
	body := decode[map[string]any](t, resp)
	if body["account"] != "platform" {
		t.Fatalf("balance body = %v", body)
	}
}
