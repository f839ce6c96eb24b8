package server

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/quizwire/trivia-server/internal/store"
	"github.com/quizwire/trivia-server/pkg/wire"
)

type testCluster struct {
	tcpAddr string
	wsAddr  string
}

func startTestServer(t *testing.T) *testCluster {
	t.Helper()

	backing := store.NewMemoryUserStore(
		&store.User{Username: "test", Password: "test"},
		&store.User{Username: "master", Password: "master", Score: 200},
	)
	users, err := backing.Load()
	require.NoError(t, err)

	bank := store.NewBank(&store.Question{
		Id:               "q1",
		Text:             "What is 2+2?",
		CorrectAnswer:    "4",
		IncorrectAnswers: []string{"3", "2", "1"},
	})

	srv := CreateServer(ServerParams{
		Users:     users,
		Bank:      bank,
		UserStore: backing,
		Logger:    zap.NewNop(),
	})

	tcp, err := CreateTcpTransport(srv, TcpTransportParams{
		ListenAddress: "127.0.0.1:0",
		Logger:        zap.NewNop(),
	})
	require.NoError(t, err)

	ws, err := CreateWebsocketTransport(srv, WebsocketTransportParams{
		ListenAddress:  "127.0.0.1:0",
		ListenEndpoint: "/ws",
		AllowAllHosts:  true,
		Logger:         zap.NewNop(),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go srv.Start(ctx)
	go tcp.Start(ctx)
	go ws.Start(ctx)

	return &testCluster{
		tcpAddr: tcp.Addr().String(),
		wsAddr:  ws.Addr().String(),
	}
}

func dialTcp(t *testing.T, cluster *testCluster) net.Conn {
	t.Helper()
	conn, err := net.Dial("tcp", cluster.tcpAddr)
	require.NoError(t, err)
	require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))
	t.Cleanup(func() { conn.Close() })
	return conn
}

func exchange(t *testing.T, conn net.Conn, command, payload string) wire.Message {
	t.Helper()
	frame, err := wire.Encode(command, []byte(payload))
	require.NoError(t, err)
	_, err = conn.Write(frame)
	require.NoError(t, err)

	msg, err := wire.ReadFrame(conn)
	require.NoError(t, err)
	return msg
}

func loginTcp(t *testing.T, conn net.Conn, username, password string) {
	t.Helper()
	msg := exchange(t, conn, wire.CmdLogin, wire.JoinFields(username, password))
	require.Equal(t, wire.CmdLoginOk, msg.Command)
}

func TestEndToEndGameFlow(t *testing.T) {
	cluster := startTestServer(t)
	conn := dialTcp(t, cluster)

	loginTcp(t, conn, "test", "test")

	question := exchange(t, conn, wire.CmdGetQuestion, "")
	require.Equal(t, wire.CmdYourQuestion, question.Command)
	fields, err := wire.SplitFields(string(question.Payload), 6)
	require.NoError(t, err)
	assert.Equal(t, "q1", fields[0])
	assert.Equal(t, "What is 2+2?", fields[1])
	assert.ElementsMatch(t, []string{"4", "3", "2", "1"}, fields[2:])

	verdict := exchange(t, conn, wire.CmdSendAnswer, wire.JoinFields("q1", "4"))
	assert.Equal(t, wire.CmdCorrectAnswer, verdict.Command)

	score := exchange(t, conn, wire.CmdMyScore, "")
	assert.Equal(t, wire.CmdYourScore, score.Command)
	assert.Equal(t, "5", string(score.Payload))

	high := exchange(t, conn, wire.CmdHighscore, "")
	assert.Equal(t, wire.CmdAllScore, high.Command)
	assert.Equal(t, "master: 200\ntest: 5", string(high.Payload))

	// The only question has now been asked.
	exhausted := exchange(t, conn, wire.CmdGetQuestion, "")
	assert.Equal(t, wire.CmdNoQuestions, exhausted.Command)
}

func TestWrongAnswerRevealsCorrectAnswer(t *testing.T) {
	cluster := startTestServer(t)
	conn := dialTcp(t, cluster)

	loginTcp(t, conn, "master", "master")

	question := exchange(t, conn, wire.CmdGetQuestion, "")
	require.Equal(t, wire.CmdYourQuestion, question.Command)

	verdict := exchange(t, conn, wire.CmdSendAnswer, wire.JoinFields("q1", "3"))
	assert.Equal(t, wire.CmdWrongAnswer, verdict.Command)
	assert.Equal(t, "4", string(verdict.Payload))

	score := exchange(t, conn, wire.CmdMyScore, "")
	assert.Equal(t, "200", string(score.Payload))
}

func TestCommandsRequireLogin(t *testing.T) {
	cluster := startTestServer(t)
	conn := dialTcp(t, cluster)

	msg := exchange(t, conn, wire.CmdMyScore, "")
	assert.Equal(t, wire.CmdError, msg.Command)
	assert.Equal(t, "Login first before using this command", string(msg.Payload))

	// The connection survives the protocol error.
	loginTcp(t, conn, "test", "test")
}

func TestBadCredentialsKeepSessionUnauthenticated(t *testing.T) {
	cluster := startTestServer(t)
	conn := dialTcp(t, cluster)

	msg := exchange(t, conn, wire.CmdLogin, wire.JoinFields("test", "wrong"))
	assert.Equal(t, wire.CmdError, msg.Command)
	assert.Equal(t, "Password does not match", string(msg.Payload))

	msg = exchange(t, conn, wire.CmdMyScore, "")
	assert.Equal(t, wire.CmdError, msg.Command)
	assert.Equal(t, "Login first before using this command", string(msg.Payload))
}

func TestLoggedListingAcrossConnections(t *testing.T) {
	cluster := startTestServer(t)

	first := dialTcp(t, cluster)
	loginTcp(t, first, "test", "test")
	second := dialTcp(t, cluster)
	loginTcp(t, second, "master", "master")

	msg := exchange(t, first, wire.CmdLogged, "")
	assert.Equal(t, wire.CmdLoggedAnswer, msg.Command)
	assert.Equal(t, "master, test", string(msg.Payload))
}

func TestScoreSurvivesReconnect(t *testing.T) {
	cluster := startTestServer(t)

	conn := dialTcp(t, cluster)
	loginTcp(t, conn, "test", "test")
	exchange(t, conn, wire.CmdGetQuestion, "")
	verdict := exchange(t, conn, wire.CmdSendAnswer, wire.JoinFields("q1", "4"))
	require.Equal(t, wire.CmdCorrectAnswer, verdict.Command)
	conn.Close()

	again := dialTcp(t, cluster)
	loginTcp(t, again, "test", "test")
	score := exchange(t, again, wire.CmdMyScore, "")
	assert.Equal(t, "5", string(score.Payload))
}

func TestLogoutClosesConnection(t *testing.T) {
	cluster := startTestServer(t)
	conn := dialTcp(t, cluster)
	loginTcp(t, conn, "test", "test")

	frame, err := wire.Encode(wire.CmdLogout, nil)
	require.NoError(t, err)
	_, err = conn.Write(frame)
	require.NoError(t, err)

	_, err = wire.ReadFrame(conn)
	assert.Error(t, err)
}

func TestMalformedFrameDisconnectsWithoutReply(t *testing.T) {
	cluster := startTestServer(t)
	conn := dialTcp(t, cluster)

	// Header-sized garbage with misplaced delimiters.
	_, err := conn.Write([]byte("XXXXXXXXXXXXXXXXXX0005Xhello"))
	require.NoError(t, err)

	_, err = wire.ReadFrame(conn)
	assert.Error(t, err)
}

func TestShutdownReleasesTransportDuringDisconnectBurst(t *testing.T) {
	backing := store.NewMemoryUserStore(&store.User{Username: "test", Password: "test"})
	users, err := backing.Load()
	require.NoError(t, err)

	srv := CreateServer(ServerParams{
		Users:     users,
		Bank:      store.NewBank(),
		UserStore: backing,
		// Tiny buffer: cancellation closes every socket at once, and the
		// resulting flood of reader teardown reports overruns it immediately.
		EventBufferLength: 1,
		Logger:            zap.NewNop(),
	})
	tcp, err := CreateTcpTransport(srv, TcpTransportParams{
		ListenAddress: "127.0.0.1:0",
		Logger:        zap.NewNop(),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go srv.Start(ctx)
	stopped := make(chan struct{})
	go func() {
		tcp.Start(ctx)
		close(stopped)
	}()

	cluster := &testCluster{tcpAddr: tcp.Addr().String()}
	for i := 0; i < 4; i++ {
		conn := dialTcp(t, cluster)
		// Round-trip one frame so the connection is registered before the
		// cancellation lands; the error reply itself is beside the point.
		msg := exchange(t, conn, wire.CmdMyScore, "")
		require.Equal(t, wire.CmdError, msg.Command)
	}

	cancel()

	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("transport did not stop after cancellation")
	}
}

func TestWebsocketTransportSpeaksSameProtocol(t *testing.T) {
	cluster := startTestServer(t)

	c, _, err := websocket.DefaultDialer.Dial("ws://"+cluster.wsAddr+"/ws", nil)
	require.NoError(t, err)
	defer c.Close()

	frame, err := wire.Encode(wire.CmdLogin, []byte(wire.JoinFields("test", "test")))
	require.NoError(t, err)
	require.NoError(t, c.WriteMessage(websocket.BinaryMessage, frame))

	msgType, payload, err := c.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.BinaryMessage, msgType)

	msg, err := wire.Decode(payload)
	require.NoError(t, err)
	assert.Equal(t, wire.CmdLoginOk, msg.Command)
}
