package game

import (
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

type Handler struct {
	server       Dispatcher
	upgrader     websocket.Upgrader
	messageRate  rate.Limit
	messageBurst int
	pingInterval time.Duration
}

func NewHandler(server Dispatcher, allowedOrigins []string, messageRate float64, messageBurst int) *Handler {
	return &Handler{
		server: server,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return slices.Contains(allowedOrigins, r.Header.Get("Origin"))
			},
		},
		messageRate:  rate.Limit(messageRate),
		messageBurst: messageBurst,
		pingInterval: PingInterval,
	}
}

// ServeWS upgrades the request and serves the socket until it closes.
func (h *Handler) ServeWS(ctx *gin.Context) {
	conn, err := h.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		log.Warn().Err(err).Str("ip", ctx.ClientIP()).Msg("websocket upgrade failed")
		return
	}

	session := NewSession(NewWebsocketConnection(conn), rate.NewLimiter(h.messageRate, h.messageBurst))
	ticker := time.NewTicker(h.pingInterval)
	go func() {
		defer ticker.Stop()
		session.WritePump(ticker.C)
	}()

	log.Debug().Str("ip", ctx.ClientIP()).Msg("websocket opened")
	session.ReadPump(h.server)
}
