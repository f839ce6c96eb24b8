package server

import (
	"context"
	"net"
	"sync"

	"go.uber.org/zap"

	"github.com/quizwire/trivia-server/pkg/wire"
)

type TcpTransportParams struct {
	ListenAddress string
	Logger        *zap.Logger
}

// tcpTransport accepts raw TCP clients speaking the frame protocol directly on
// the stream.
type tcpTransport struct {
	params   TcpTransportParams
	server   *Server
	listener net.Listener

	log *zap.Logger
}

// CreateTcpTransport binds the listening socket immediately so the bound
// address is known before Start.
func CreateTcpTransport(server *Server, params TcpTransportParams) (*tcpTransport, error) {
	logger := params.Logger
	if logger == nil {
		logger = zap.Must(zap.NewDevelopment())
	}

	listener, err := net.Listen("tcp", params.ListenAddress)
	if err != nil {
		return nil, err
	}

	return &tcpTransport{
		params:   params,
		server:   server,
		listener: listener,
		log:      logger.With(zap.String("transport", "tcp")),
	}, nil
}

// Addr returns the bound listen address.
func (t *tcpTransport) Addr() net.Addr {
	return t.listener.Addr()
}

func (t *tcpTransport) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		t.listener.Close()
	}()

	t.log.Info("Listening", zap.String("addr", t.listener.Addr().String()))

	wg := sync.WaitGroup{}
	for {
		conn, err := t.listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			t.log.Error("Accept failed", zap.Error(err))
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			t.handleConn(conn)
		}()
	}

	wg.Wait()
	t.log.Info("Stopped")
	return nil
}

// handleConn is the connection's reader goroutine. It registers with the
// dispatch core, spawns the writer, then reads frames until the stream dies.
func (t *tcpTransport) handleConn(conn net.Conn) {
	closeOnce := sync.Once{}
	closer := func() {
		closeOnce.Do(func() { conn.Close() })
	}
	defer closer()

	id, outbound := t.server.Connect(conn.RemoteAddr().String(), "tcp", closer)
	log := t.log.With(zap.Uint32("connId", uint32(id)))
	log.Debug("Accepted connection", zap.String("remoteAddr", conn.RemoteAddr().String()))

	// Writer goroutine: drains the outbound FIFO until dispatch closes it.
	go func() {
		for raw := range outbound {
			if _, err := conn.Write(raw); err != nil {
				log.Debug("Write failed", zap.Error(err))
				closer()
				return
			}
		}
		closer()
	}()

	for {
		msg, err := wire.ReadFrame(conn)
		if err != nil {
			t.server.Disconnect(id, err)
			return
		}
		t.server.Frame(id, msg)
	}
}
