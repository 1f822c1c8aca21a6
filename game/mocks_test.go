package game

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"czar/domain"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- WebsocketConnection ---

type MockWebsocketConnection struct {
	mock.Mock
}

func (m *MockWebsocketConnection) Close() {
	m.Called()
}

func (m *MockWebsocketConnection) Write(data []byte) error {
	args := m.Called(data)
	return args.Error(0)
}

func (m *MockWebsocketConnection) Read() ([]byte, error) {
	args := m.Called()
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockWebsocketConnection) Ping() error {
	args := m.Called()
	return args.Error(0)
}

// --- DeckRepository ---

type MockDeckRepository struct {
	mock.Mock
}

func (m *MockDeckRepository) GetDecksByIds(ctx context.Context, ids []string) ([]domain.Deck, error) {
	args := m.Called(ctx, ids)
	decks, _ := args.Get(0).([]domain.Deck)
	return decks, args.Error(1)
}

// --- Dispatcher ---

type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Deliver(ctx context.Context, conn Conn, data []byte) error {
	args := m.Called(ctx, conn, data)
	return args.Error(0)
}

func (m *MockDispatcher) Disconnect(conn Conn) {
	m.Called(conn)
}

// --- UniqueIdGenerator ---

type seqIdGen struct {
	n int
}

func (g *seqIdGen) Generate() string {
	g.n++
	return fmt.Sprintf("id-%d", g.n)
}

// --- Scheduler ---

type manualTimer struct {
	d       time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	pending := !t.stopped && !t.fired
	t.stopped = true
	return pending
}

// fire runs the callback even if the timer was stopped, the way a timer that
// already expired races a Stop call.
func (t *manualTimer) fire() {
	t.fired = true
	t.f()
}

type manualScheduler struct {
	mu     sync.Mutex
	timers []*manualTimer
}

func (s *manualScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTimer{d: d, f: f}
	s.timers = append(s.timers, t)
	return t
}

func (s *manualScheduler) pending() []*manualTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	var pending []*manualTimer
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			pending = append(pending, t)
		}
	}
	return pending
}

func (s *manualScheduler) last() *manualTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.timers) == 0 {
		return nil
	}
	return s.timers[len(s.timers)-1]
}

// --- Conn ---

type fakeConn struct {
	mu     sync.Mutex
	msgs   [][]byte
	err    error
	closed bool
}

func (c *fakeConn) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.msgs = append(c.msgs, data)
	return nil
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *fakeConn) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = nil
}

type wireResponse struct {
	Status    string          `json:"status"`
	RequestId json.RawMessage `json:"requestId"`
	Action    *string         `json:"action"`
	Data      json.RawMessage `json:"data"`
	Error     string          `json:"error"`
	Kind      ErrorKind       `json:"kind"`
}

func (c *fakeConn) responses(t *testing.T) []wireResponse {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]wireResponse, 0, len(c.msgs))
	for _, m := range c.msgs {
		var r wireResponse
		require.NoError(t, json.Unmarshal(m, &r))
		out = append(out, r)
	}
	return out
}

// byAction returns every message carrying action, oldest first.
func (c *fakeConn) byAction(t *testing.T, action string) []wireResponse {
	t.Helper()
	var out []wireResponse
	for _, r := range c.responses(t) {
		if r.Action != nil && *r.Action == action {
			out = append(out, r)
		}
	}
	return out
}

func (c *fakeConn) lastState(t *testing.T) GameView {
	t.Helper()
	states := c.byAction(t, ActionGameStateUpdate)
	require.NotEmpty(t, states, "no game state received")
	return decodeGame(t, states[len(states)-1])
}

func decodeGame(t *testing.T, r wireResponse) GameView {
	t.Helper()
	var data struct {
		Game GameView `json:"game"`
	}
	require.NoError(t, json.Unmarshal(r.Data, &data))
	return data.Game
}

// --- harness ---

type harness struct {
	t      *testing.T
	server *Server
	sched  *manualScheduler
	decks  *MockDeckRepository
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	sched := &manualScheduler{}
	decks := &MockDeckRepository{}
	opts := DefaultOptions()
	return &harness{
		t:      t,
		server: NewServer(decks, sched, &seqIdGen{}, opts),
		sched:  sched,
		decks:  decks,
	}
}

// do runs one request on the server loop's handler directly and returns the
// reply sent to conn.
func (h *harness) do(conn *fakeConn, req map[string]any) wireResponse {
	h.t.Helper()
	before := len(conn.responses(h.t))
	data, err := json.Marshal(req)
	require.NoError(h.t, err)
	h.server.handleMessage(conn, data)
	all := conn.responses(h.t)
	require.Greater(h.t, len(all), before, "no reply")
	return all[before]
}

func (h *harness) connect(name string) (*fakeConn, string) {
	h.t.Helper()
	conn := &fakeConn{}
	res := h.do(conn, map[string]any{"action": ActionEstablishConnection, "name": name})
	require.Equal(h.t, StatusOk, res.Status)
	var data struct {
		Client ClientView `json:"client"`
	}
	require.NoError(h.t, json.Unmarshal(res.Data, &data))
	return conn, data.Client.Id
}

// runTasks executes whatever timers posted to the loop.
func (h *harness) runTasks() {
	for {
		select {
		case task := <-h.server.tasks:
			task()
		default:
			return
		}
	}
}

func (h *harness) game(id string) *Game {
	h.t.Helper()
	g, ok := h.server.games.Get(id)
	require.True(h.t, ok, "game %s not found", id)
	return g
}

func testDeck(id string, prompts, responses int) domain.Deck {
	return pickDeck(id, prompts, 1, responses)
}

func pickDeck(id string, prompts, pick, responses int) domain.Deck {
	d := domain.Deck{Id: id, Name: id, Slug: id}
	for i := range prompts {
		d.Black = append(d.Black, domain.PromptCard{Id: fmt.Sprintf("%s-b%d", id, i), Text: "prompt", Pick: pick})
	}
	for i := range responses {
		d.White = append(d.White, domain.ResponseCard{Id: fmt.Sprintf("%s-w%d", id, i), Text: "response"})
	}
	return d
}
