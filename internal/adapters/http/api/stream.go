package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nourdesoukizz/Cozmx-fencing/internal/domain/types"
	"github.com/nourdesoukizz/Cozmx-fencing/pkg/logger"
)

// Stream connection timing.
const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

func (s *Server) newUpgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 16 * 1024,
		CheckOrigin:     s.checkOrigin,
	}
}

// checkOrigin admits clients without an Origin header, the server's own
// origin and the configured allow list.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || s.anyOrigin {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if strings.EqualFold(u.Host, r.Host) {
		return true
	}
	_, ok := s.allowedOrigins[normalizeOrigin(origin)]
	return ok
}

func normalizeOrigin(origin string) string {
	return strings.ToLower(strings.TrimSuffix(strings.TrimSpace(origin), "/"))
}

// handleStream handles GET /events/{eventID}/stream. The connection receives
// the current standings, then one message per refit.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	const op = "api.stream"
	ev, err := s.event(r)
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	messages, cancel, err := s.deps.Subscribe(ev.Info().ID)
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	defer cancel()

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn(r.Context(), "stream upgrade failed", logger.Error(err))
		return
	}
	defer ws.Close()

	// Reads only serve control frames; a read error means the client left.
	gone := make(chan struct{})
	ws.SetReadLimit(512)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	go func() {
		defer close(gone)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	v := ev.Engine().View()
	hello := types.StreamMessage{
		Type:      types.StreamHello,
		Event:     ev.Info().ID,
		Sequence:  v.Sequence(),
		Standings: v.Standings(),
	}
	if err := s.send(r.Context(), ws, hello); err != nil {
		return
	}

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-gone:
			return
		case <-r.Context().Done():
			return
		case msg, ok := <-messages:
			if !ok {
				_ = ws.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "event closed"),
					time.Now().Add(writeWait))
				return
			}
			if err := s.send(r.Context(), ws, msg); err != nil {
				return
			}
		case <-ping.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func (s *Server) send(ctx context.Context, ws *websocket.Conn, msg types.StreamMessage) error { //nolint:gocritic // hugeParam
	_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := ws.WriteJSON(msg); err != nil {
		s.logger.Debug(ctx, "stream write failed", logger.Error(err))
		return err
	}
	return nil
}
