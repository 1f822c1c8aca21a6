package game

import (
	"context"

	"czar/domain"
)

type DeckRepository interface {
	GetDecksByIds(ctx context.Context, ids []string) ([]domain.Deck, error)
}

// Conn is the engine's view of a client connection. Send must not block.
type Conn interface {
	Send(data []byte) error
	Close()
}

type WebsocketConnection interface {
	Close()
	Write(data []byte) error
	Read() ([]byte, error)
	Ping() error
}
