package handlers

import (
	"log"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/homefix-app/platform_be_homefix/internal/realtime"
	"github.com/homefix-app/platform_be_homefix/internal/utils"
)

// WSHandler runs the realtime endpoint. Cookies do not survive the websocket
// upgrade reliably across clients, so authentication happens in-band: the
// first frame must carry a platform JWT.
type WSHandler struct {
	Hub         *realtime.Hub
	JWTSecret   string
	AuthTimeout time.Duration
}

func NewWSHandler(hub *realtime.Hub, secret string, authTimeout time.Duration) *WSHandler {
	if authTimeout <= 0 {
		authTimeout = 30 * time.Second
	}
	return &WSHandler{Hub: hub, JWTSecret: secret, AuthTimeout: authTimeout}
}

type wsAuthFrame struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
	Token  string `json:"token"`
}

// Handle owns one connection: authenticate, register with the hub, then sit
// on the read loop until the peer goes away.
func (h *WSHandler) Handle(c *websocket.Conn) {
	userID, ok := h.authenticate(c)
	if !ok {
		c.Close()
		return
	}

	log.Printf("WebSocket: user %s connected", userID)

	session := realtime.NewSession(userID, realtime.NewWebSocketConn(c))
	h.Hub.Register(session)
	defer func() {
		h.Hub.Unregister(session)
		c.Close()
	}()

	// Writer goroutine: the only place this conn is written to. It exits
	// when Unregister closes the send channel or the write fails.
	go func() {
		for msg := range session.Send {
			if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Println("WebSocket write error:", err)
				return
			}
		}
	}()

	// Reads after auth only keep the connection alive.
	_ = c.SetReadDeadline(time.Time{})
	for {
		var payload map[string]interface{}
		if err := c.ReadJSON(&payload); err != nil {
			log.Printf("WebSocket read error for user %s: %v", userID, err)
			break
		}
		if t, ok := payload["type"].(string); ok && t == "pong" {
			continue
		}
	}
}

// authenticate enforces the handshake: an auth frame within the deadline,
// carrying a valid token whose subject matches the claimed user. Anything
// else and the connection never reaches the hub.
func (h *WSHandler) authenticate(c *websocket.Conn) (uuid.UUID, bool) {
	_ = c.SetReadDeadline(time.Now().Add(h.AuthTimeout))

	var frame wsAuthFrame
	if err := c.ReadJSON(&frame); err != nil {
		log.Println("WebSocket: no auth frame:", err)
		return uuid.Nil, false
	}
	if frame.Type != "auth" {
		log.Println("WebSocket: first frame must be auth, got:", frame.Type)
		return uuid.Nil, false
	}

	userUUID, err := uuid.Parse(frame.UserID)
	if err != nil {
		log.Println("WebSocket: invalid user_id:", frame.UserID)
		return uuid.Nil, false
	}

	claims, err := utils.ParseJWT(h.JWTSecret, frame.Token)
	if err != nil {
		log.Println("WebSocket: invalid token:", err)
		return uuid.Nil, false
	}
	if claims.UserID != frame.UserID {
		log.Println("WebSocket: token subject does not match user_id")
		return uuid.Nil, false
	}

	return userUUID, true
}
