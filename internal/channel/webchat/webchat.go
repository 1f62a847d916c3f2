// Package webchat implements a local development channel over
// WebSocket. It supports message editing, which makes it a full anchor
// transport: handy for exercising the engine without a Telegram token.
package webchat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/soyeahso/teo/internal/config"
	"github.com/soyeahso/teo/internal/domain"
	"github.com/soyeahso/teo/internal/logging"
)

// Frame is the wire format in both directions.
type Frame struct {
	Type      string            `json:"type"` // out: message|edit|delete|notice; in: action|text
	MessageID string            `json:"messageId,omitempty"`
	Text      string            `json:"text,omitempty"`
	Actions   [][]domain.Action `json:"actions,omitempty"`
	ActionID  string            `json:"actionId,omitempty"`
}

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex // serializes writes
}

func (c *client) write(f Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(f)
}

// Channel implements domain.Channel over WebSocket connections. Each
// connection is one chat; the server tracks the messages it has sent so
// edits of unknown or deleted IDs honestly report EditNotFound.
type Channel struct {
	cfg      config.WebchatConfig
	log      *logging.Logger
	upgrader websocket.Upgrader

	mu       sync.RWMutex
	handler  func(ev domain.Event)
	clients  map[string]*client                // chatID → connection
	messages map[string]map[string]domain.Payload // chatID → messageID → last payload
	server   *http.Server
}

// New creates a webchat channel.
func New(cfg config.WebchatConfig, log *logging.Logger) *Channel {
	return &Channel{
		cfg:      cfg,
		log:      log.Sub("webchat"),
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		clients:  make(map[string]*client),
		messages: make(map[string]map[string]domain.Payload),
	}
}

func (c *Channel) ID() string { return "webchat" }

func (c *Channel) OnEvent(handler func(ev domain.Event)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = handler
}

// Start serves the WebSocket endpoint until ctx ends.
func (c *Channel) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", c.serveWS)

	srv := &http.Server{Addr: c.cfg.Addr, Handler: mux}
	c.mu.Lock()
	c.server = srv
	c.mu.Unlock()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	c.log.Info().Str("addr", c.cfg.Addr).Msg("webchat listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop shuts the HTTP server down.
func (c *Channel) Stop(ctx context.Context) error {
	c.mu.RLock()
	srv := c.server
	c.mu.RUnlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func (c *Channel) serveWS(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user")
	chatID := r.URL.Query().Get("chat")
	if userID == "" || chatID == "" {
		http.Error(w, "user and chat query params required", http.StatusBadRequest)
		return
	}

	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	cl := &client{conn: conn}
	c.mu.Lock()
	c.clients[chatID] = cl
	c.mu.Unlock()

	c.log.Info().Str("chat", chatID).Str("user", userID).Msg("webchat client connected")
	defer func() {
		c.mu.Lock()
		if c.clients[chatID] == cl {
			delete(c.clients, chatID)
		}
		c.mu.Unlock()
		conn.Close()
	}()

	key := domain.SessionKey{ChannelID: c.ID(), ChatID: chatID, UserID: userID}
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var f Frame
		if err := json.Unmarshal(data, &f); err != nil {
			c.log.Debug().Err(err).Msg("bad frame")
			continue
		}

		c.mu.RLock()
		handler := c.handler
		c.mu.RUnlock()
		if handler == nil {
			continue
		}

		switch f.Type {
		case "action":
			handler(domain.Event{
				Key:       key,
				Kind:      domain.EventButton,
				ActionID:  f.ActionID,
				MessageID: f.MessageID,
				Timestamp: time.Now(),
			})
		case "text":
			handler(domain.Event{
				Key:       key,
				Kind:      domain.EventText,
				Text:      f.Text,
				MessageID: f.MessageID,
				Timestamp: time.Now(),
			})
		}
	}
}

// Edit rewrites a tracked message in place.
func (c *Channel) Edit(_ context.Context, ref domain.MessageRef, p domain.Payload) (domain.EditResult, error) {
	c.mu.Lock()
	chat := c.messages[ref.ChatID]
	prev, known := chat[ref.MessageID]
	cl := c.clients[ref.ChatID]
	c.mu.Unlock()

	if !known {
		return domain.EditNotFound, nil
	}
	if payloadEqual(prev, p) {
		return domain.EditUnchanged, nil
	}
	if cl == nil {
		return domain.EditOK, fmt.Errorf("chat %s not connected", ref.ChatID)
	}
	if err := cl.write(Frame{Type: "edit", MessageID: ref.MessageID, Text: p.Text, Actions: p.Actions}); err != nil {
		return domain.EditOK, err
	}

	// Record the payload only once the client has seen it. Committing
	// before the write would make a retried edit compare equal and be
	// dropped as EditUnchanged while the client still shows the old text.
	c.mu.Lock()
	if chat := c.messages[ref.ChatID]; chat != nil {
		chat[ref.MessageID] = p
	}
	c.mu.Unlock()
	return domain.EditOK, nil
}

// Send creates a new tracked message.
func (c *Channel) Send(_ context.Context, chatID string, p domain.Payload) (domain.MessageRef, error) {
	c.mu.Lock()
	cl := c.clients[chatID]
	c.mu.Unlock()
	if cl == nil {
		return domain.MessageRef{}, fmt.Errorf("chat %s not connected", chatID)
	}

	id := uuid.New().String()[:8]
	if err := cl.write(Frame{Type: "message", MessageID: id, Text: p.Text, Actions: p.Actions}); err != nil {
		return domain.MessageRef{}, err
	}

	c.mu.Lock()
	if c.messages[chatID] == nil {
		c.messages[chatID] = make(map[string]domain.Payload)
	}
	c.messages[chatID][id] = p
	c.mu.Unlock()

	return domain.MessageRef{ChatID: chatID, MessageID: id}, nil
}

// Notice sends a dismissible out-of-band message.
func (c *Channel) Notice(ctx context.Context, chatID string, text string) error {
	_, err := c.Send(ctx, chatID, domain.Payload{
		Text: text,
		Actions: [][]domain.Action{
			{{Label: "❌ Dismiss", ActionID: domain.ActionHideNotice}},
		},
	})
	return err
}

// Delete removes a tracked message.
func (c *Channel) Delete(_ context.Context, ref domain.MessageRef) error {
	c.mu.Lock()
	delete(c.messages[ref.ChatID], ref.MessageID)
	cl := c.clients[ref.ChatID]
	c.mu.Unlock()

	if cl == nil {
		return nil
	}
	return cl.write(Frame{Type: "delete", MessageID: ref.MessageID})
}

func payloadEqual(a, b domain.Payload) bool {
	aj, _ := json.Marshal(a)
	bj, _ := json.Marshal(b)
	return string(aj) == string(bj)
}
