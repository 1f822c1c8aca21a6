package game

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const outboxSize = 256

// Dispatcher is where a session hands its inbound traffic.
type Dispatcher interface {
	Deliver(ctx context.Context, conn Conn, data []byte) error
	Disconnect(conn Conn)
}

// Session is one websocket as the server sees it. Outbound messages go
// through a bounded outbox drained by WritePump so the server never waits on
// a slow peer.
type Session struct {
	socket    WebsocketConnection
	limiter   *rate.Limiter
	outbox    chan []byte
	ctx       context.Context
	cancelCtx context.CancelFunc
	closeOnce sync.Once
}

func NewSession(socket WebsocketConnection, limiter *rate.Limiter) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		socket:    socket,
		limiter:   limiter,
		outbox:    make(chan []byte, outboxSize),
		ctx:       ctx,
		cancelCtx: cancel,
	}
}

func (s *Session) Send(data []byte) error {
	if s.ctx.Err() != nil {
		return ErrSessionClosed
	}
	select {
	case s.outbox <- data:
		return nil
	default:
		return ErrOutboxFull
	}
}

func (s *Session) Close() {
	s.closeOnce.Do(s.cancelCtx)
}

// ReadPump forwards every inbound message to d until the socket fails or the
// session is closed, then reports the disconnect.
func (s *Session) ReadPump(d Dispatcher) {
	defer func() {
		s.Close()
		d.Disconnect(s)
	}()

	for {
		data, err := s.socket.Read()
		if err != nil {
			log.Debug().Err(err).Msg("websocket read ended")
			return
		}

		if !s.limiter.Allow() {
			s.reject(data)
			continue
		}

		if err := d.Deliver(s.ctx, s, data); err != nil {
			return
		}
	}
}

func (s *Session) reject(data []byte) {
	var req struct {
		Id     json.RawMessage `json:"id"`
		Action string          `json:"action"`
	}
	_ = json.Unmarshal(data, &req)

	msg, err := encodeError(ErrRateLimited, req.Id, req.Action)
	if err != nil {
		return
	}
	if err := s.Send(msg); err != nil {
		log.Debug().Err(err).Msg("dropped rate limit reply")
	}
}

// WritePump owns every write to the socket and closes it on exit.
func (s *Session) WritePump(pings <-chan time.Time) {
	defer func() {
		s.Close()
		s.socket.Close()
	}()

	for {
		select {
		case <-s.ctx.Done():
			return
		case data := <-s.outbox:
			if err := s.socket.Write(data); err != nil {
				log.Debug().Err(err).Msg("websocket write failed")
				return
			}
		case <-pings:
			if err := s.socket.Ping(); err != nil {
				return
			}
		}
	}
}
