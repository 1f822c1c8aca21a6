package decks

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"czar/domain"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

var (
	ErrDeckNotFoundStr  = "deck-not-found"
	ErrInvalidPageStr   = "invalid-page"
	ErrServerTimeoutStr = "server-timeout"
	ErrUnknownStr       = "unknown-error"
)

type DeckStore interface {
	GetDeck(ctx context.Context, slug string) (domain.Deck, error)
	GetDecks(ctx context.Context, search string, page int) (domain.DeckPage, error)
}

type deckHandler struct {
	store DeckStore
}

func NewDeckHandler(store DeckStore) *deckHandler {
	return &deckHandler{store: store}
}

func (dh *deckHandler) ListDecksHandler(ctx *gin.Context) {
	page := 1
	if raw := ctx.Query("page"); raw != "" {
		p, err := strconv.Atoi(raw)
		if err != nil || p < 1 {
			ctx.String(http.StatusBadRequest, ErrInvalidPageStr)
			return
		}
		page = p
	}

	decks, err := dh.store.GetDecks(ctx.Request.Context(), ctx.Query("search"), page)
	if err != nil {
		dh.fail(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, decks)
}

func (dh *deckHandler) GetDeckHandler(ctx *gin.Context) {
	deck, err := dh.store.GetDeck(ctx.Request.Context(), ctx.Param("slug"))
	if err != nil {
		dh.fail(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, deck)
}

func (dh *deckHandler) fail(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrDeckNotFound):
		ctx.String(http.StatusNotFound, ErrDeckNotFoundStr)
	case errors.Is(err, context.DeadlineExceeded):
		ctx.String(http.StatusGatewayTimeout, ErrServerTimeoutStr)
	case errors.Is(err, context.Canceled):
		ctx.Status(499)
	default:
		log.Error().Err(err).Str("path", ctx.Request.URL.Path).Msg("deck lookup failed")
		ctx.String(http.StatusInternalServerError, ErrUnknownStr)
	}
}
