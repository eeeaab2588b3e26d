package realtime

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/brewcart/brewcart-backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	defaultPingInterval = 30 * time.Second
	defaultWriteTimeout = 10 * time.Second
	maxClientMessage    = 4096
)

type subscriptionHub interface {
	Subscribe(storeID uuid.UUID, filter Filter) *Subscriber
	Unsubscribe(sub *Subscriber)
}

// WSServer upgrades admin connections and streams the store's change events.
type WSServer struct {
	hub          subscriptionHub
	upgrader     websocket.Upgrader
	pingInterval time.Duration
	writeTimeout time.Duration
	logg         *logger.Logger
}

type WSServerParams struct {
	Hub            subscriptionHub
	PingInterval   time.Duration
	WriteTimeout   time.Duration
	AllowedOrigins []string
	Logger         *logger.Logger
}

func NewWSServer(params WSServerParams) (*WSServer, error) {
	if params.Hub == nil {
		return nil, errors.New("realtime hub required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	ping := params.PingInterval
	if ping <= 0 {
		ping = defaultPingInterval
	}
	write := params.WriteTimeout
	if write <= 0 {
		write = defaultWriteTimeout
	}
	return &WSServer{
		hub: params.Hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(params.AllowedOrigins),
		},
		pingInterval: ping,
		writeTimeout: write,
		logg:         params.Logger,
	}, nil
}

// originChecker allows same-origin requests, plus the listed origins. "*" allows any.
func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			set[strings.ToLower(trimmed)] = struct{}{}
		}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if _, ok := set["*"]; ok {
			return true
		}
		if _, ok := set[strings.ToLower(origin)]; ok {
			return true
		}
		u, err := url.Parse(origin)
		return err == nil && strings.EqualFold(u.Host, r.Host)
	}
}

// Serve upgrades the request and blocks until the client disconnects.
func (s *WSServer) Serve(w http.ResponseWriter, r *http.Request, storeID uuid.UUID, filter Filter) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		s.logg.Warn(r.Context(), "websocket upgrade failed")
		return
	}
	sub := s.hub.Subscribe(storeID, filter)
	ctx := s.logg.WithStoreID(r.Context(), storeID.String())
	s.logg.Info(ctx, "realtime client connected")

	ctx, cancel := context.WithCancel(ctx)
	go s.readLoop(conn, cancel)
	s.writeLoop(ctx, conn, sub)

	s.hub.Unsubscribe(sub)
	_ = conn.Close()
	s.logg.Info(ctx, "realtime client disconnected")
}

// readLoop drains client frames so pongs and close frames are processed.
func (s *WSServer) readLoop(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	conn.SetReadLimit(maxClientMessage)
	_ = conn.SetReadDeadline(time.Now().Add(2 * s.pingInterval))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(2 * s.pingInterval))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *WSServer) writeLoop(ctx context.Context, conn *websocket.Conn, sub *Subscriber) {
	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.C:
			if !ok {
				// dropped by the hub
				_ = conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "subscriber too slow"))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.writeTimeout)); err != nil {
				return
			}
		}
	}
}
