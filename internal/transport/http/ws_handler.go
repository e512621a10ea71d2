package http

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"trivia-session-service/internal/app"
	"trivia-session-service/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 64
)

type WSHandler struct {
	games    *app.GameService
	upgrader websocket.Upgrader
}

func NewWSHandler(games *app.GameService) *WSHandler {
	return &WSHandler{
		games: games,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	Answer    string  `json:"answer"`
	TimeTaken float64 `json:"timeTaken"`
}

// ServeWS upgrades GET /ws/{gameId}/{clientId} and attaches the channel to the game.
// The client id doubles as the player id for players; displays may use any other id.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	gameID := r.PathValue("gameId")
	clientID := r.PathValue("clientId")
	if gameID == "" || clientID == "" {
		http.Error(w, "missing gameId or clientId", http.StatusBadRequest)
		return
	}
	if _, err := h.games.Snapshot(r.Context(), gameID); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}

	conn := newWSConn(ws)
	go conn.writePump()

	if err := h.games.Connect(gameID, clientID, conn); err != nil {
		_ = conn.Send(domain.Message{Type: domain.MsgError, Payload: domain.ErrorPayload{Message: err.Error()}})
		_ = conn.Close()
		return
	}
	defer conn.Close()
	defer h.games.Release(gameID, clientID, conn)

	ws.SetReadLimit(maxMessageSize)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var inbound inboundMessage
		if err := ws.ReadJSON(&inbound); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("game_id", gameID).Str("client_id", clientID).Msg("ws read error")
			}
			return
		}
		h.handleMessage(r, conn, gameID, clientID, inbound)
	}
}

func (h *WSHandler) handleMessage(r *http.Request, conn *wsConn, gameID, clientID string, inbound inboundMessage) {
	switch inbound.Type {
	case domain.MsgPing:
		_ = conn.Send(domain.Message{Type: domain.MsgPong})
	case "answer":
		var payload answerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			_ = conn.Send(errorMessage("invalid answer payload"))
			return
		}
		// the result itself is unicast by the game service
		_, err := h.games.SubmitAnswer(r.Context(), gameID, domain.AnswerSubmission{
			PlayerID: clientID,
			Answer:   payload.Answer,
			Elapsed:  payload.TimeTaken,
		})
		if err != nil {
			_ = conn.Send(errorMessage(err.Error()))
		}
	default:
		_ = conn.Send(errorMessage("unsupported message type"))
	}
}

func errorMessage(msg string) domain.Message {
	return domain.Message{Type: domain.MsgError, Payload: domain.ErrorPayload{Message: msg}}
}

// wsConn adapts a websocket to app.Conn. Sends are queued and written by a
// single writer goroutine, so messages to one client keep their order.
type wsConn struct {
	ws   *websocket.Conn
	send chan []byte
	done chan struct{}

	mu     sync.Mutex
	closed bool
}

func newWSConn(ws *websocket.Conn) *wsConn {
	return &wsConn{
		ws:   ws,
		send: make(chan []byte, sendBufferSize),
		done: make(chan struct{}),
	}
}

func (c *wsConn) Send(msg domain.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return domain.ErrConnectionClosed
	}
	select {
	case c.send <- data:
		return nil
	default:
		return domain.ErrSendBufferFull
	}
}

func (c *wsConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	close(c.done)
	return nil
}

func (c *wsConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case data := <-c.send:
			if err := c.write(websocket.TextMessage, data); err != nil {
				_ = c.Close()
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				_ = c.Close()
				return
			}
		case <-c.done:
			// flush what was queued before the close
			for {
				select {
				case data := <-c.send:
					if err := c.write(websocket.TextMessage, data); err != nil {
						return
					}
				default:
					_ = c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
					return
				}
			}
		}
	}
}

func (c *wsConn) write(messageType int, data []byte) error {
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(messageType, data)
}
