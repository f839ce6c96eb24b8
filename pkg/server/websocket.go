package server

import (
	"context"
	"net"
	"net/http"
	"slices"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/quizwire/trivia-server/pkg/wire"
)

type WebsocketTransportParams struct {
	ListenAddress  string
	ListenEndpoint string

	AllowAllHosts    bool
	AllowlistedHosts []string
	DenylistedHosts  []string

	Logger *zap.Logger
}

// websocketTransport serves the same frame protocol over WebSocket: each
// binary message carries exactly one frame, so browser clients can play
// without speaking raw TCP.
type websocketTransport struct {
	params   WebsocketTransportParams
	server   *Server
	upgrader *websocket.Upgrader
	listener net.Listener

	log *zap.Logger
}

func checkOrigin(r *http.Request, params WebsocketTransportParams) bool {
	origin := r.Header.Get("Origin")
	if slices.Contains(params.DenylistedHosts, origin) {
		return false
	}
	if params.AllowAllHosts {
		return true
	}
	return slices.Contains(params.AllowlistedHosts, origin)
}

// CreateWebsocketTransport binds the listening socket immediately so the
// bound address is known before Start.
func CreateWebsocketTransport(server *Server, params WebsocketTransportParams) (*websocketTransport, error) {
	logger := params.Logger
	if logger == nil {
		logger = zap.Must(zap.NewDevelopment())
	}

	listener, err := net.Listen("tcp", params.ListenAddress)
	if err != nil {
		return nil, err
	}

	return &websocketTransport{
		params:   params,
		server:   server,
		listener: listener,
		upgrader: &websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return checkOrigin(r, params)
			},
		},
		log: logger.With(zap.String("transport", "websocket")),
	}, nil
}

// Addr returns the bound listen address.
func (t *websocketTransport) Addr() net.Addr {
	return t.listener.Addr()
}

func (t *websocketTransport) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc(t.params.ListenEndpoint, func(w http.ResponseWriter, r *http.Request) {
		t.onWsRequest(w, r)
	})

	httpServer := &http.Server{Handler: mux}

	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background())
	}()

	t.log.Info("Listening",
		zap.String("addr", t.listener.Addr().String()),
		zap.String("endpoint", t.params.ListenEndpoint))

	if err := httpServer.Serve(t.listener); err != nil && err != http.ErrServerClosed {
		return err
	}
	t.log.Info("Stopped")
	return nil
}

type nonBinaryMessage struct{}

func (m *nonBinaryMessage) Error() string {
	return "Non-binary WebSocket message received"
}

func (t *websocketTransport) onWsRequest(w http.ResponseWriter, r *http.Request) {
	c, err := t.upgrader.Upgrade(w, r, nil)
	if err != nil {
		t.log.Error("Failed to upgrade HTTP request to WebSocket connection", zap.Error(err))
		return
	}

	closeOnce := sync.Once{}
	closer := func() {
		closeOnce.Do(func() { c.Close() })
	}
	defer closer()

	id, outbound := t.server.Connect(r.RemoteAddr, "websocket", closer)
	log := t.log.With(zap.Uint32("connId", uint32(id)))
	log.Debug("Accepted connection", zap.String("remoteAddr", r.RemoteAddr))

	go func() {
		for raw := range outbound {
			if err := c.WriteMessage(websocket.BinaryMessage, raw); err != nil {
				log.Debug("Write failed", zap.Error(err))
				closer()
				return
			}
		}
		closer()
	}()

	for {
		msgType, payload, err := c.ReadMessage()
		if err != nil {
			t.server.Disconnect(id, err)
			return
		}
		if msgType != websocket.BinaryMessage {
			t.server.Disconnect(id, &nonBinaryMessage{})
			return
		}

		msg, err := wire.Decode(payload)
		if err != nil {
			// Same collapse as on TCP: a malformed frame tears the
			// connection down without a reply.
			t.server.Disconnect(id, err)
			return
		}
		t.server.Frame(id, msg)
	}
}
