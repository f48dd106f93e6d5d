package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"squadhub/internal/domain"
	"squadhub/internal/feed"
	"squadhub/internal/service"
	"squadhub/internal/session"
	"squadhub/pkg/logger"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// sendBuffer frames may queue for a slow client before it is dropped
	sendBuffer = 32
)

// Frame types pushed to clients
const (
	FrameChat       = "chat"
	FrameActivity   = "activity"
	FrameTournament = "tournament"
	FrameNotices    = "notices"

	// FrameOpened is the only frame clients send
	FrameOpened = "opened"
)

// Frame is the envelope of every websocket message
type Frame struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// WSHandler serves live views. Each connection is one session: its watchers
// and opened markers live exactly as long as the socket.
type WSHandler struct {
	services *service.Services
	window   int
	upgrader websocket.Upgrader
	log      *logger.Logger
}

// NewWSHandler creates a websocket handler. An empty origin list accepts any
// origin.
func NewWSHandler(services *service.Services, window int, allowedOrigins []string, log *logger.Logger) *WSHandler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &WSHandler{
		services: services,
		window:   window,
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || len(allowed) == 0 || allowed["*"] || allowed[origin]
			},
		},
	}
}

// wsClient pairs a session with its socket
type wsClient struct {
	sess *session.Session
	conn *websocket.Conn
	send chan Frame
	log  *logger.Logger

	mu     sync.Mutex
	closed bool
}

// push queues a frame. A client that cannot keep up is disconnected; every
// frame is a full snapshot so it loses nothing it could not reload.
func (c *wsClient) push(f Frame) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- f:
	default:
		c.log.Warn("Websocket client too slow, disconnecting")
		c.shutdownLocked()
	}
}

func (c *wsClient) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shutdownLocked()
}

func (c *wsClient) shutdownLocked() {
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
	_ = c.sess.Close()
}

// Team handles GET /ws/teams/{teamID}
func (h *WSHandler) Team(w http.ResponseWriter, r *http.Request) {
	teamID := chi.URLParam(r, "teamID")
	h.serve(w, r, func(ctx context.Context, c *wsClient) ([]*feed.Subscription, error) {
		chat, err := h.services.Chat.Subscribe(ctx, c.sess, domain.TeamChannel(teamID), h.window, func(msgs []domain.ChatMessage) {
			c.push(Frame{Type: FrameChat, Data: msgs})
		})
		if err != nil {
			return nil, err
		}
		activity, err := h.services.Activity.Watch(ctx, c.sess, teamID, func(ind domain.Indicators) {
			c.push(Frame{Type: FrameActivity, Data: ind})
		})
		if err != nil {
			return nil, err
		}
		return []*feed.Subscription{chat, activity}, nil
	}, func(c *wsClient, f Frame) {
		if f.Type == FrameOpened {
			h.services.Activity.MarkOpened(c.sess, teamID)
		}
	})
}

// Match handles GET /ws/tournaments/{tournamentID}/matches/{matchID}
func (h *WSHandler) Match(w http.ResponseWriter, r *http.Request) {
	tournamentID := chi.URLParam(r, "tournamentID")
	channel := domain.MatchChannel(tournamentID, chi.URLParam(r, "matchID"))
	h.serve(w, r, func(ctx context.Context, c *wsClient) ([]*feed.Subscription, error) {
		chat, err := h.services.Chat.Subscribe(ctx, c.sess, channel, h.window, func(msgs []domain.ChatMessage) {
			c.push(Frame{Type: FrameChat, Data: msgs})
		})
		if err != nil {
			return nil, err
		}
		bracket, err := h.services.Tournaments.Watch(ctx, c.sess, tournamentID, func(t *domain.Tournament) {
			c.push(Frame{Type: FrameTournament, Data: t})
		})
		if err != nil {
			return nil, err
		}
		return []*feed.Subscription{chat, bracket}, nil
	}, nil)
}

// Notices handles GET /ws/me/notices
func (h *WSHandler) Notices(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(ctx context.Context, c *wsClient) ([]*feed.Subscription, error) {
		sub, err := h.services.Applications.WatchNotices(ctx, c.sess, func(n []domain.RemovalNotice) {
			c.push(Frame{Type: FrameNotices, Data: n})
		})
		if err != nil {
			return nil, err
		}
		return []*feed.Subscription{sub}, nil
	}, nil)
}

// serve opens the session and its watchers before upgrading, so access
// errors are still plain HTTP responses. The connection ends when the client
// goes away or any watcher ends.
func (h *WSHandler) serve(w http.ResponseWriter, r *http.Request,
	open func(ctx context.Context, c *wsClient) ([]*feed.Subscription, error),
	onFrame func(c *wsClient, f Frame)) {
	actor, err := identity(r)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}

	sess := session.New(actor)
	log := logger.FromContext(r.Context(), h.log).WithFields(map[string]interface{}{
		"session_id": sess.ID,
		"path":       r.URL.Path,
	})
	client := &wsClient{sess: sess, send: make(chan Frame, sendBuffer), log: log}
	defer client.shutdown()

	// Watchers outlive request timeouts; the session bounds them instead
	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()

	subs, err := open(ctx, client)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("Websocket upgrade failed")
		return
	}
	client.conn = conn
	defer conn.Close()
	log.Debug("Websocket connected")

	for _, sub := range subs {
		go func(sub *feed.Subscription) {
			select {
			case <-sub.Done():
				client.shutdown()
			case <-sess.Done():
			}
		}(sub)
	}

	go h.writePump(client)
	h.readPump(client, onFrame)
	log.Debug("Websocket disconnected")
}

func (h *WSHandler) readPump(c *wsClient, onFrame func(c *wsClient, f Frame)) {
	defer c.shutdown()

	c.conn.SetReadLimit(maxBodyBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Logger.Debug("Websocket read failed", zap.Error(err))
			}
			return
		}
		var f Frame
		if err := json.Unmarshal(data, &f); err != nil {
			c.log.Logger.Debug("Ignoring malformed client frame", zap.Error(err))
			continue
		}
		if onFrame != nil {
			onFrame(c, f)
		}
	}
}

func (h *WSHandler) writePump(c *wsClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case f, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteJSON(f); err != nil {
				c.shutdown()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.shutdown()
				return
			}
		}
	}
}
