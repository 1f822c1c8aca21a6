package game

import "errors"

type ErrorKind string

const (
	KindUnknownEntity ErrorKind = "unknown-entity"
	KindPrecondition  ErrorKind = "precondition-violation"
	KindMalformed     ErrorKind = "malformed-request"
	KindRateLimited   ErrorKind = "rate-limited"
	KindInternal      ErrorKind = "internal"
)

// Error is what every failed action reports back to its requester.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

var (
	ErrUnknownClient      = newError(KindUnknownEntity, "unknown client")
	ErrGameNotFound       = newError(KindUnknownEntity, "game not found")
	ErrNotParticipant     = newError(KindUnknownEntity, "player is not in this game")
	ErrCardNotOwned       = newError(KindUnknownEntity, "player does not own the card")
	ErrPlayNotOnTable     = newError(KindUnknownEntity, "play not on table")
	ErrWinnerLeft         = newError(KindUnknownEntity, "winner is not in the game")
	ErrWrongStatus        = newError(KindPrecondition, "incorrect game state")
	ErrAlreadyStarted     = newError(KindPrecondition, "game already started")
	ErrNotHost            = newError(KindPrecondition, "client is not the host")
	ErrTooFewParticipants = newError(KindPrecondition, "too few players")
	ErrCzarCannotPlay     = newError(KindPrecondition, "player is the card czar")
	ErrAlreadyPlayed      = newError(KindPrecondition, "player already played this round")
	ErrWrongCardCount     = newError(KindPrecondition, "wrong number of cards for this prompt")
	ErrNotEnoughCards     = newError(KindPrecondition, "not enough cards in hand for this prompt")
	ErrDuplicateCard      = newError(KindPrecondition, "the same card was submitted twice")
	ErrNotCzar            = newError(KindPrecondition, "player is not the card czar")
	ErrMalformedMessage   = newError(KindMalformed, "malformed message")
	ErrUnknownAction      = newError(KindMalformed, "unknown action")
	ErrMissingGameId      = newError(KindMalformed, "missing gameId")
	ErrMissingName        = newError(KindMalformed, "missing name")
	ErrNameTooLong        = newError(KindMalformed, "name is too long")
	ErrMissingCards       = newError(KindMalformed, "missing whiteId")
	ErrMissingWinner      = newError(KindMalformed, "missing winnerId")
	ErrMissingSettings    = newError(KindMalformed, "missing settings")
	ErrInvalidMaxScore    = newError(KindMalformed, "maxScore must be at least 1")
	ErrInvalidHandSize    = newError(KindMalformed, "whiteCards must be between 1 and 30")
	ErrRateLimited        = newError(KindRateLimited, "too many messages")
	ErrDecksUnavailable   = newError(KindInternal, "could not load decks")
)

var (
	ErrOutboxFull    = errors.New("outbox-full")
	ErrSessionClosed = errors.New("session-closed")
	ErrServerStopped = errors.New("server-stopped")
)

// asGameError maps any failure to the wire-level error, hiding internals.
func asGameError(err error) *Error {
	var gameErr *Error
	if errors.As(err, &gameErr) {
		return gameErr
	}
	return newError(KindInternal, "internal error")
}
