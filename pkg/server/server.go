// Package server is the trivia server's dispatch core plus its transports.
//
// The shape is a reactor split across goroutines: each connection gets a
// reader and a writer goroutine that do nothing but socket I/O, and every
// decoded frame funnels into one dispatch goroutine that exclusively owns the
// user table, the question bank and the session table. No locks guard game
// state; the single owner is the discipline.
package server

import (
	"context"
	goerrs "errors"
	"io"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/quizwire/trivia-server/internal/session"
	"github.com/quizwire/trivia-server/internal/store"
	"github.com/quizwire/trivia-server/pkg/errors"
	"github.com/quizwire/trivia-server/pkg/game"
	"github.com/quizwire/trivia-server/pkg/wire"
)

type ServerParams struct {
	Users     map[string]*store.User
	Bank      *store.Bank
	UserStore store.UserStore

	// OutboundQueueLength bounds the per-connection reply FIFO. A client that
	// lets this many replies pile up is dropped rather than allowed to stall
	// the dispatch loop.
	OutboundQueueLength int
	EventBufferLength   int

	Logger *zap.Logger
}

type connState struct {
	outbound chan []byte
	closer   func()
}

type Server struct {
	params ServerParams

	log      *zap.Logger
	sessions *session.Table
	game     *game.State

	events chan event

	// done is closed when the dispatch loop returns; event sends select on it
	// so transport goroutines can never block on a loop that stopped draining.
	done chan struct{}

	// conns is touched only by the dispatch goroutine.
	conns map[session.ConnId]*connState
}

func CreateServer(params ServerParams) *Server {
	logger := params.Logger
	if logger == nil {
		logger = zap.Must(zap.NewDevelopment())
	}
	outboundQueueLength := 64
	if params.OutboundQueueLength > 0 {
		outboundQueueLength = params.OutboundQueueLength
	}
	eventBufferLength := 256
	if params.EventBufferLength > 0 {
		eventBufferLength = params.EventBufferLength
	}
	params.OutboundQueueLength = outboundQueueLength
	params.EventBufferLength = eventBufferLength

	sessions := session.NewTable()

	return &Server{
		params:   params,
		log:      logger.With(zap.String("component", "dispatch")),
		sessions: sessions,
		game: &game.State{
			Users:    params.Users,
			Bank:     params.Bank,
			Sessions: sessions,
			Store:    params.UserStore,
			Rand:     rand.New(rand.NewSource(time.Now().UnixNano())),
		},
		events: make(chan event, eventBufferLength),
		done:   make(chan struct{}),
		conns:  make(map[session.ConnId]*connState),
	}
}

// Connect registers a freshly accepted connection and returns its id plus the
// channel the transport's writer goroutine must drain. Must be called from the
// goroutine that will subsequently deliver the connection's frames, so the
// connect event orders before them.
func (s *Server) Connect(remoteAddr, transport string, closer func()) (session.ConnId, <-chan []byte) {
	id := s.sessions.NextId()
	outbound := make(chan []byte, s.params.OutboundQueueLength)
	delivered := s.sendEvent(connectEvent{
		id:         id,
		remoteAddr: remoteAddr,
		transport:  transport,
		outbound:   outbound,
		closer:     closer,
	})
	if !delivered {
		close(outbound)
		closer()
	}
	return id, outbound
}

// Frame delivers one decoded message for dispatch.
func (s *Server) Frame(id session.ConnId, msg wire.Message) {
	s.sendEvent(frameEvent{id: id, msg: msg})
}

// Disconnect reports that a connection's read side is gone: clean EOF, peer
// reset or a malformed frame (which collapses into the same teardown path on
// purpose; the client is never answered).
func (s *Server) Disconnect(id session.ConnId, reason error) {
	s.sendEvent(disconnectEvent{id: id, reason: reason})
}

// sendEvent hands ev to the dispatch loop, or drops it once the loop has
// stopped. Shutdown closes every socket, so a burst of reader goroutines all
// reporting disconnects must not wedge on a channel nothing drains anymore.
func (s *Server) sendEvent(ev event) bool {
	select {
	case s.events <- ev:
		return true
	case <-s.done:
		return false
	}
}

// Start runs the dispatch loop until the context is cancelled. Exactly one
// Start per Server.
func (s *Server) Start(ctx context.Context) {
	s.log.Info("Dispatch loop running",
		zap.Int("questions", s.params.Bank.Len()),
		zap.Int("users", len(s.params.Users)))

	for {
		select {
		case <-ctx.Done():
			s.closeAll()
			close(s.done)
			s.log.Info("Dispatch loop stopped")
			return
		case ev := <-s.events:
			switch ev := ev.(type) {
			case connectEvent:
				s.handleConnect(ev)
			case frameEvent:
				s.handleFrame(ev)
			case disconnectEvent:
				s.handleDisconnect(ev)
			}
		}
	}
}

func (s *Server) handleConnect(ev connectEvent) {
	if err := s.sessions.Add(ev.id, ev.remoteAddr); err != nil {
		s.log.Error("Rejecting connection", zap.Uint32("connId", uint32(ev.id)), zap.Error(err))
		close(ev.outbound)
		ev.closer()
		return
	}
	s.conns[ev.id] = &connState{outbound: ev.outbound, closer: ev.closer}
	s.log.Info("Client connected",
		zap.Uint32("connId", uint32(ev.id)),
		zap.String("remoteAddr", ev.remoteAddr),
		zap.String("transport", ev.transport),
		zap.Int("connected", len(s.conns)))
}

func (s *Server) handleFrame(ev frameEvent) {
	conn, has := s.conns[ev.id]
	if !has {
		// Raced with a teardown; the frame has nowhere to go.
		return
	}

	result := s.game.Dispatch(ev.id, ev.msg)
	if result.StoreErr != nil {
		s.log.Error("Write-through persistence failed",
			zap.Uint32("connId", uint32(ev.id)), zap.Error(result.StoreErr))
	}

	if result.Disconnect {
		s.log.Info("Client logged out", zap.Uint32("connId", uint32(ev.id)))
		s.closeConn(ev.id, conn)
		return
	}
	if result.Reply == nil {
		return
	}

	raw, err := wire.Encode(result.Reply.Command, result.Reply.Payload)
	if err != nil {
		s.log.Error("Failed to encode reply",
			zap.Uint32("connId", uint32(ev.id)),
			zap.String("command", result.Reply.Command),
			zap.Error(err))
		return
	}

	select {
	case conn.outbound <- raw:
	default:
		s.log.Warn("Outbound queue overflow, dropping client", zap.Uint32("connId", uint32(ev.id)))
		s.closeConn(ev.id, conn)
	}
}

func (s *Server) handleDisconnect(ev disconnectEvent) {
	conn, has := s.conns[ev.id]
	if !has {
		return
	}

	var malformed *errors.MalformedFrame
	switch {
	case goerrs.As(ev.reason, &malformed):
		// Distinct from a transport error, but handled the same: no error
		// frame is sent back, the connection just goes away.
		s.log.Warn("Malformed frame, dropping client",
			zap.Uint32("connId", uint32(ev.id)), zap.Error(ev.reason))
	case ev.reason == nil || goerrs.Is(ev.reason, io.EOF):
		s.log.Info("Client disconnected", zap.Uint32("connId", uint32(ev.id)))
	default:
		s.log.Info("Client connection lost",
			zap.Uint32("connId", uint32(ev.id)), zap.Error(ev.reason))
	}

	s.closeConn(ev.id, conn)
}

func (s *Server) closeConn(id session.ConnId, conn *connState) {
	delete(s.conns, id)
	s.sessions.Remove(id)
	close(conn.outbound)
	conn.closer()
}

func (s *Server) closeAll() {
	for id, conn := range s.conns {
		s.closeConn(id, conn)
	}
}
