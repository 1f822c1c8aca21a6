package game

import (
	"context"
	"encoding/json"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

type Options struct {
	DisconnectGrace   time.Duration
	PostRoundDelay    time.Duration
	DeckLookupTimeout time.Duration
	InboxSize         int
}

func DefaultOptions() Options {
	return Options{
		DisconnectGrace:   30 * time.Second,
		PostRoundDelay:    5 * time.Second,
		DeckLookupTimeout: 5 * time.Second,
		InboxSize:         256,
	}
}

type envelope struct {
	conn   Conn
	data   []byte
	closed bool
}

// Server owns every client and game. All state is touched only from Run;
// connections and timers talk to it through channels.
type Server struct {
	clients   *ClientRegistry
	games     *GameRegistry
	decks     DeckRepository
	scheduler Scheduler
	ids       UniqueIdGenerator
	opts      Options

	// ctx is the one Run was started with.
	ctx      context.Context
	inbox    chan envelope
	tasks    chan func()
	done     chan struct{}
	stopOnce sync.Once
}

func NewServer(decks DeckRepository, scheduler Scheduler, ids UniqueIdGenerator, opts Options) *Server {
	if opts.InboxSize <= 0 {
		opts.InboxSize = DefaultOptions().InboxSize
	}
	return &Server{
		clients:   NewClientRegistry(),
		games:     NewGameRegistry(),
		decks:     decks,
		scheduler: scheduler,
		ids:       ids,
		opts:      opts,
		ctx:       context.Background(),
		inbox:     make(chan envelope, opts.InboxSize),
		tasks:     make(chan func(), opts.InboxSize),
		done:      make(chan struct{}),
	}
}

// changes collects what an action or timer made stale so broadcasts go out
// once, after the reply.
type changes struct {
	games   []*Game
	list    bool
	listTo  []*Client
	stateTo []*Client
}

func (ch *changes) touch(g *Game) {
	if !slices.Contains(ch.games, g) {
		ch.games = append(ch.games, g)
	}
}

func (s *Server) Run(ctx context.Context) {
	s.ctx = ctx
	log.Info().Msg("game server started")
	defer s.stop()

	for {
		select {
		case <-ctx.Done():
			return
		case e := <-s.inbox:
			if e.closed {
				s.handleDisconnect(e.conn)
			} else {
				s.handleMessage(e.conn, e.data)
			}
		case task := <-s.tasks:
			task()
		}
	}
}

func (s *Server) stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		for _, c := range s.clients.clients {
			if c.evictTimer != nil {
				c.evictTimer.Stop()
			}
		}
		for _, g := range s.games.games {
			if g.advanceTimer != nil {
				g.advanceTimer.Stop()
			}
		}
		log.Info().Int("clients", s.clients.Len()).Int("games", s.games.Len()).Msg("game server stopped")
	})
}

// Deliver queues one raw inbound message. Messages from the same conn are
// handled in the order they were delivered.
func (s *Server) Deliver(ctx context.Context, conn Conn, data []byte) error {
	select {
	case <-s.done:
		return ErrServerStopped
	default:
	}
	select {
	case s.inbox <- envelope{conn: conn, data: data}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrServerStopped
	}
}

// Disconnect tells the server conn is gone. It is queued behind every message
// already delivered on conn.
func (s *Server) Disconnect(conn Conn) {
	select {
	case s.inbox <- envelope{conn: conn, closed: true}:
	case <-s.done:
	}
}

// schedule runs task on the server loop after d.
func (s *Server) schedule(d time.Duration, task func()) Timer {
	return s.scheduler.AfterFunc(d, func() {
		select {
		case s.tasks <- task:
		case <-s.done:
		}
	})
}

func (s *Server) handleMessage(conn Conn, data []byte) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		log.Debug().Err(err).Msg("malformed message")
		s.replyError(conn, ErrMalformedMessage, nil, "")
		return
	}

	act, ok := actions[req.Action]
	if !ok {
		s.replyError(conn, ErrUnknownAction, req.Id, req.Action)
		return
	}

	ac := &actionContext{conn: conn, req: &req, changes: &changes{}}
	if c, ok := s.clients.Get(req.ClientId); ok {
		ac.client = c
	} else if req.Action != ActionEstablishConnection {
		s.replyError(conn, ErrUnknownClient, req.Id, req.Action)
		return
	}
	if g, ok := s.games.Get(req.GameId); ok {
		ac.game = g
		ac.participant, _ = g.participant(req.ClientId)
	}

	if err := act.validate(s, ac); err != nil {
		log.Debug().Str("action", req.Action).Str("client", req.ClientId).Err(err).Msg("action rejected")
		s.replyError(conn, err, req.Id, req.Action)
		return
	}
	result, err := act.apply(s, ac)
	if err != nil {
		s.replyError(conn, err, req.Id, req.Action)
		return
	}

	s.reply(conn, result, req.Id, req.Action)
	s.flush(ac.changes)
}

func (s *Server) handleDisconnect(conn Conn) {
	c, ok := s.clients.ByConn(conn)
	if !ok {
		return
	}
	s.clients.Detach(c)
	s.armEviction(c)
	log.Info().Str("client", c.Id).Dur("grace", s.opts.DisconnectGrace).Msg("client disconnected")
}

// attach binds conn to c. A client that held conn before loses it and starts
// its grace period.
func (s *Server) attach(c *Client, conn Conn) {
	if other, ok := s.clients.ByConn(conn); ok && other != c {
		s.clients.Detach(other)
		s.armEviction(other)
	}
	s.clients.Attach(c, conn)
}

func (s *Server) armEviction(c *Client) {
	if c.evictTimer != nil {
		c.evictTimer.Stop()
	}
	c.evictGen++
	id, gen := c.Id, c.evictGen
	c.evictTimer = s.schedule(s.opts.DisconnectGrace, func() { s.evict(id, gen) })
}

func (s *Server) evict(id string, gen uint64) {
	c, ok := s.clients.Get(id)
	if !ok || c.conn != nil || c.evictGen != gen {
		log.Debug().Str("client", id).Msg("stale eviction ignored")
		return
	}

	ch := &changes{}
	s.leave(c, ch)
	s.clients.Remove(id)
	log.Info().Str("client", id).Msg("client evicted")
	s.flush(ch)
}

func (s *Server) armAdvance(g *Game) {
	if g.advanceTimer != nil {
		g.advanceTimer.Stop()
	}
	id, round := g.Id, g.round
	g.advanceTimer = s.schedule(s.opts.PostRoundDelay, func() { s.advanceAfterRound(id, round) })
}

func (s *Server) advanceAfterRound(id string, round uint64) {
	g, ok := s.games.Get(id)
	if !ok || g.Status != StatusPostRound || g.round != round {
		log.Debug().Str("game", id).Uint64("round", round).Msg("stale round advance ignored")
		return
	}
	g.advanceTimer = nil
	g.advanceRound()

	ch := &changes{}
	ch.touch(g)
	if g.Status == StatusFinished {
		ch.list = true
		log.Info().Str("game", g.Id).Msg("game finished, cards exhausted")
	}
	s.flush(ch)
}

// leave takes c out of its game, destroying the game when c was the last one
// in it.
func (s *Server) leave(c *Client, ch *changes) {
	g, ok := s.games.Get(c.GameId)
	c.GameId = ""
	if !ok {
		return
	}

	if g.removeParticipant(c.Id) {
		s.destroyGame(g)
		ch.list = true
		return
	}
	if g.Status == StatusFinished {
		s.stopAdvance(g)
	}
	ch.touch(g)
	ch.list = true
	log.Info().Str("game", g.Id).Str("client", c.Id).Str("status", string(g.Status)).Msg("client left game")
}

func (s *Server) stopAdvance(g *Game) {
	if g.advanceTimer != nil {
		g.advanceTimer.Stop()
		g.advanceTimer = nil
	}
}

func (s *Server) destroyGame(g *Game) {
	s.stopAdvance(g)
	s.games.Remove(g.Id)
	log.Info().Str("game", g.Id).Msg("game destroyed")
}

func (s *Server) flush(ch *changes) {
	for _, g := range ch.games {
		if _, ok := s.games.Get(g.Id); ok {
			s.broadcastGameState(g)
		}
	}
	for _, c := range ch.stateTo {
		if g, ok := s.games.Get(c.GameId); ok && !slices.Contains(ch.games, g) {
			p, _ := g.participant(c.Id)
			s.send(c, ActionGameStateUpdate, payload{"game": g.View(p)})
		}
	}
	if ch.list {
		s.broadcastGamesList()
		return
	}
	for _, c := range ch.listTo {
		s.send(c, ActionGamesListUpdate, payload{"games": gamesListView(s.games.All())})
	}
}

// broadcastGameState sends every connected participant their own view.
func (s *Server) broadcastGameState(g *Game) {
	for _, p := range g.Participants {
		c, ok := s.clients.Get(p.Id)
		if !ok {
			continue
		}
		s.send(c, ActionGameStateUpdate, payload{"game": g.View(p)})
	}
}

func (s *Server) broadcastGamesList() {
	data, err := encodeOk(payload{"games": gamesListView(s.games.All())}, nil, ActionGamesListUpdate)
	if err != nil {
		log.Error().Err(err).Msg("encoding games list")
		return
	}
	for _, c := range s.clients.Connected() {
		s.write(c, data)
	}
}

func (s *Server) send(c *Client, action string, data any) {
	if c.conn == nil {
		return
	}
	msg, err := encodeOk(data, nil, action)
	if err != nil {
		log.Error().Err(err).Str("action", action).Msg("encoding broadcast")
		return
	}
	s.write(c, msg)
}

// write never blocks the loop; a recipient that cannot take the message
// misses it.
func (s *Server) write(c *Client, msg []byte) {
	if c.conn == nil {
		return
	}
	if err := c.conn.Send(msg); err != nil {
		log.Warn().Err(err).Str("client", c.Id).Msg("dropped message")
	}
}

func (s *Server) reply(conn Conn, data any, reqId json.RawMessage, action string) {
	msg, err := encodeOk(data, reqId, action)
	if err != nil {
		log.Error().Err(err).Str("action", action).Msg("encoding reply")
		s.replyError(conn, err, reqId, action)
		return
	}
	if err := conn.Send(msg); err != nil {
		log.Warn().Err(err).Str("action", action).Msg("dropped reply")
	}
}

func (s *Server) replyError(conn Conn, err error, reqId json.RawMessage, action string) {
	msg, encErr := encodeError(asGameError(err), reqId, action)
	if encErr != nil {
		log.Error().Err(encErr).Msg("encoding error reply")
		return
	}
	if err := conn.Send(msg); err != nil {
		log.Warn().Err(err).Str("action", action).Msg("dropped error reply")
	}
}

var _ Dispatcher = (*Server)(nil)
