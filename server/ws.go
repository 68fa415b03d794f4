package server

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/becomeliminal/mindcraft-go/core"
)

// Message types sent to clients.
const (
	TypeSession = "session"
	TypeChunk   = "chunk"
	TypeAnswer  = "answer"
	TypeError   = "error"
)

// Request asks a character to react.
type Request struct {
	Character   string `json:"character"`
	Interaction string `json:"interaction"`
	Mood        string `json:"mood,omitempty"`
	Stream      bool   `json:"stream,omitempty"`
}

// Message is any frame sent to the client.
type Message struct {
	Type      string `json:"type"`
	Session   string `json:"session,omitempty"`
	Character string `json:"character,omitempty"`
	Text      string `json:"text,omitempty"`
	Error     string `json:"error,omitempty"`
}

// handleWS runs one conversation. Requests on a connection are answered in
// order.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	session := uuid.NewString()
	logger.Info("session opened", "session", session, "remote", r.RemoteAddr)
	if err := conn.WriteJSON(Message{Type: TypeSession, Session: session}); err != nil {
		return
	}

	ctx := r.Context()
	for {
		var req Request
		if err := conn.ReadJSON(&req); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug("read failed", "session", session, "err", err)
			}
			logger.Info("session closed", "session", session)
			return
		}
		if err := s.react(ctx, conn, session, req); err != nil {
			logger.Warn("write failed", "session", session, "err", err)
			return
		}
	}
}

// react answers one request. It only returns write errors; reaction errors
// are reported to the client.
func (s *Server) react(ctx context.Context, conn *websocket.Conn, session string, req Request) error {
	character, ok := s.game.NPC(req.Character)
	if !ok {
		return conn.WriteJSON(Message{Type: TypeError, Session: session, Character: req.Character,
			Error: "unknown character " + req.Character})
	}
	if req.Mood != "" {
		character.SetMood(core.NewMood(req.Mood))
	}

	if !req.Stream {
		reaction, err := character.ReactTo(ctx, req.Interaction, s.opts)
		if err != nil {
			return conn.WriteJSON(Message{Type: TypeError, Session: session, Character: req.Character, Error: err.Error()})
		}
		return conn.WriteJSON(Message{Type: TypeAnswer, Session: session, Character: req.Character, Text: reaction.Answer})
	}

	reply, err := character.ReactToStream(ctx, req.Interaction, s.opts)
	if err != nil {
		return conn.WriteJSON(Message{Type: TypeError, Session: session, Character: req.Character, Error: err.Error()})
	}
	defer reply.Close()
	for reply.Next() {
		if err := conn.WriteJSON(Message{Type: TypeChunk, Session: session, Character: req.Character, Text: reply.Current()}); err != nil {
			return err
		}
	}
	if err := reply.Err(); err != nil {
		return conn.WriteJSON(Message{Type: TypeError, Session: session, Character: req.Character, Error: err.Error()})
	}
	return conn.WriteJSON(Message{Type: TypeAnswer, Session: session, Character: req.Character, Text: reply.Answer()})
}
