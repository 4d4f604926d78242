package http

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"quiz-live-service/internal/app"
	"quiz-live-service/internal/domain"
	"quiz-live-service/internal/protocol"
)

// WSHandler runs the per-connection dispatch loops for hosts and players.
type WSHandler struct {
	registry   *app.Registry
	quizzes    app.QuizRepository
	upgrader   websocket.Upgrader
	sendBuffer int
	verbose    bool
}

// Option customises a WSHandler.
type Option func(*WSHandler)

// WithSendBuffer sets how many outbound frames may queue per connection.
func WithSendBuffer(n int) Option {
	return func(h *WSHandler) { h.sendBuffer = n }
}

// WithVerbose enables per-connection logging.
func WithVerbose(v bool) Option {
	return func(h *WSHandler) { h.verbose = v }
}

func NewWSHandler(registry *app.Registry, quizzes app.QuizRepository, opts ...Option) *WSHandler {
	h := &WSHandler{
		registry: registry,
		quizzes:  quizzes,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		sendBuffer: 64,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *WSHandler) logf(format string, args ...any) {
	if h.verbose {
		log.Printf(format, args...)
	}
}

// ServeHost creates a game for the quiz in the path and relays host commands
// to it. The game is removed when the host disconnects.
func (h *WSHandler) ServeHost(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	quizID := ps.ByName("quizID")
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	c := newClient(conn, h.sendBuffer)
	go c.writePump()
	defer c.hangUp()

	quiz, err := h.quizzes.GetQuiz(r.Context(), quizID)
	if err != nil {
		if !errors.Is(err, domain.ErrQuizNotFound) {
			log.Printf("load quiz %s: %v", quizID, err)
		}
		_ = c.Send(protocol.Error{Message: domain.ErrQuizNotFound.Error()})
		return
	}

	session := h.registry.Create(r.Context(), quiz, c, r.URL.Query().Get("pin"))
	h.logf("host %s: game %s created for quiz %s", c.id, session.Pin(), quizID)
	defer func() {
		if h.registry.Release(r.Context(), session) {
			h.logf("host %s: game %s removed", c.id, session.Pin())
		}
	}()

	c.readFrames(func(data []byte) {
		cmd, err := protocol.DecodeHost(data)
		if err != nil {
			_ = c.Send(protocol.Error{Message: protocol.ErrUnknownCommand.Error()})
			return
		}
		switch cmd {
		case protocol.CmdStartGame:
			session.Start()
		case protocol.CmdNextQuestion:
			session.Advance()
		case protocol.CmdShowLeaderboard:
			session.RevealLeaderboard()
		case protocol.CmdEndGame:
			session.End()
		}
	})
}

// ServePlayer joins the game under the PIN in the path and relays answers.
func (h *WSHandler) ServePlayer(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	pin := app.NormalizePin(ps.ByName("pin"))
	nickname := strings.TrimSpace(ps.ByName("nickname"))
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	c := newClient(conn, h.sendBuffer)
	go c.writePump()
	defer c.hangUp()

	session, ok := h.registry.Get(pin)
	if !ok {
		_ = c.Send(protocol.Error{Message: domain.ErrSessionNotFound.Error()})
		return
	}
	if err := session.Join(nickname, r.URL.Query().Get("avatar"), c); err != nil {
		_ = c.Send(protocol.Error{Message: err.Error()})
		return
	}
	h.logf("player %s: %q joined game %s", c.id, nickname, pin)
	defer func() {
		session.Leave(nickname, c)
		h.logf("player %s: %q left game %s", c.id, nickname, pin)
	}()

	c.readFrames(func(data []byte) {
		answer, err := protocol.DecodePlayer(data)
		if err != nil {
			_ = c.Send(protocol.Error{Message: protocol.ErrUnknownCommand.Error()})
			return
		}
		session.SubmitAnswer(nickname, answer.Answer, answer.TimeLeft)
	})
}
