package api

import (
	"strings"
	"time"

	"git.solsynth.dev/hypernet/converse/pkg/internal/models"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

func upgradeOnly(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// listenWebsocket authenticates inside the connection so a bad credential
// gets a typed error frame before the socket closes.
func (v *Server) listenWebsocket(c *websocket.Conn) {
	session := v.gateway.Open()

	token := c.Query("tk", c.Query("token"))
	if len(token) == 0 {
		token, _ = strings.CutPrefix(c.Headers(fiber.HeaderAuthorization), "Bearer ")
	}
	if err := v.gateway.Authenticate(session, token); err != nil {
		_ = c.WriteMessage(websocket.TextMessage, models.WebSocketPackageFromError(err).Marshal())
		_ = c.Close()
		return
	}
	defer v.gateway.Close(session)

	cfg := v.gateway.Config()
	c.SetPongHandler(func(string) error {
		session.Touch()
		return nil
	})

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(cfg.PingInterval)
		defer ticker.Stop()
		for {
			select {
			case body, ok := <-session.Outbound():
				if !ok {
					_ = c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
					_ = c.Close()
					return
				}
				if err := c.WriteMessage(websocket.TextMessage, body); err != nil {
					v.gateway.Close(session)
					_ = c.Close()
					return
				}
			case <-ticker.C:
				if err := c.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second)); err != nil {
					v.gateway.Close(session)
					_ = c.Close()
					return
				}
			}
		}
	}()

	var messageType int
	var packet []byte
	var err error
	for {
		if messageType, packet, err = c.ReadMessage(); err != nil {
			break
		} else if messageType != websocket.TextMessage {
			session.Touch()
			continue
		}

		if reply := v.dispatcher.Handle(session, packet); reply != nil {
			session.Reply(*reply)
		}
	}

	log.Debug().Err(err).Str("session", session.ID).Msg("Gateway connection closed.")
	v.gateway.Close(session)
	<-writerDone
}
