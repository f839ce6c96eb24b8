package server

import (
	"github.com/quizwire/trivia-server/internal/session"
	"github.com/quizwire/trivia-server/pkg/wire"
)

// Events flow from transport goroutines into the dispatch goroutine over a
// single channel. Per-connection ordering holds because every event for one
// connection is sent from that connection's reader goroutine.
type event interface {
	connId() session.ConnId
}

type connectEvent struct {
	id         session.ConnId
	remoteAddr string
	transport  string

	// outbound carries encoded frames to the transport's writer goroutine,
	// FIFO. Closed by the dispatch goroutine on teardown.
	outbound chan []byte

	// closer shuts the underlying socket, idempotently.
	closer func()
}

type frameEvent struct {
	id  session.ConnId
	msg wire.Message
}

type disconnectEvent struct {
	id     session.ConnId
	reason error
}

func (e connectEvent) connId() session.ConnId    { return e.id }
func (e frameEvent) connId() session.ConnId      { return e.id }
func (e disconnectEvent) connId() session.ConnId { return e.id }
