package server

import (
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/kangwei01/dsa-mod-planning-chatbot/internal/chat"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The API binds to loopback in the reference deployment; origin checks
	// belong to whatever fronts it.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsEvent is one frame sent to a websocket client while a turn runs.
type wsEvent struct {
	Type    string `json:"type"`
	Detail  string `json:"detail,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

// handleWebSocket streams turn events to a developer client. The client
// sends chat requests as JSON frames; the server answers each with a
// sequence of event frames followed by a "done" frame carrying the full
// response.
func (s *Server) handleWebSocket(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	log := s.log.Sub("ws")
	session := s.session(c)

	for {
		var req chatRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Msg("websocket read failed")
			}
			return nil
		}

		observer := func(event chat.TurnEvent) {
			frame := wsEvent{Type: event.Type, Detail: event.Detail, Payload: event.Payload}
			if event.Message != nil {
				frame.Payload = event.Message
			}
			if err := conn.WriteJSON(frame); err != nil {
				log.Warn().Err(err).Msg("websocket write failed")
			}
		}

		resp, err := session.AskObserved(c.Request().Context(), req.Prompt, req.DeveloperView, observer)
		if err != nil {
			detail := err.Error()
			if errors.Is(err, chat.ErrInvalidInput) {
				detail = "prompt is required"
			}
			if writeErr := conn.WriteJSON(wsEvent{Type: "error", Detail: detail}); writeErr != nil {
				return nil
			}
			continue
		}

		if err := conn.WriteJSON(wsEvent{Type: "done", Payload: resp}); err != nil {
			return nil
		}
	}
}
