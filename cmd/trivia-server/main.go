// Main package for the trivia game server.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"go.uber.org/zap"

	"github.com/quizwire/trivia-server/internal/store"
	"github.com/quizwire/trivia-server/pkg/server"
)

func main() {
	logger := zap.Must(zap.NewProduction())
	if os.Getenv("APP_ENV") != "production" {
		logger = zap.Must(zap.NewDevelopment())
	}
	defer logger.Sync()

	//
	// Flags
	addr := flag.String("addr", ":5678", "TCP listen address for the trivia protocol")

	useWebsockets := flag.Bool("websockets", true, "Set to false to disable the WebSocket transport")
	wsAddr := flag.String("ws-addr", ":5679", "Listen address for the WebSocket transport")
	wsEndpoint := flag.String("ws-endpoint", "/ws", "HTTP endpoint that listens for WebSocket connections")

	usersPath := flag.String("users", "users.json", "Path to the JSON user table")
	sqlitePath := flag.String("sqlite", "", "Path to a SQLite user database; takes precedence over -users")

	questionsPath := flag.String("questions", "questions.json", "Path to a static JSON question bank")
	fetchQuestions := flag.Bool("fetch-questions", false, "Fetch a fresh question bank from Open Trivia DB instead of using -questions")
	snapshotPath := flag.String("snapshot", "questions.json.gz", "Cache path for fetched question banks")
	flag.Parse()

	//
	// User table
	var userStore store.UserStore
	if *sqlitePath != "" {
		sqliteStore, err := store.OpenSqliteUserStore(*sqlitePath)
		if err != nil {
			logger.Error("Failed to open SQLite user store", zap.Error(err))
			return
		}
		defer sqliteStore.Close()
		userStore = sqliteStore
	} else {
		userStore = &store.JsonUserStore{Path: *usersPath}
	}

	users, err := userStore.Load()
	if err != nil {
		logger.Error("Failed to load user table", zap.Error(err))
		return
	}

	shutdownCtx, shutdownRelease := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer shutdownRelease()

	//
	// Question bank
	bank, err := loadBank(shutdownCtx, logger, *fetchQuestions, *questionsPath, *snapshotPath)
	if err != nil {
		logger.Error("Failed to load question bank", zap.Error(err))
		return
	}
	logger.Info("Question bank ready", zap.Int("questions", bank.Len()))

	//
	// Server + transports
	srv := server.CreateServer(server.ServerParams{
		Users:     users,
		Bank:      bank,
		UserStore: userStore,
		Logger:    logger,
	})

	tcpTransport, err := server.CreateTcpTransport(srv, server.TcpTransportParams{
		ListenAddress: *addr,
		Logger:        logger,
	})
	if err != nil {
		logger.Error("Failed to create TCP transport", zap.Error(err))
		return
	}

	wg := sync.WaitGroup{}

	wg.Add(1)
	go func() {
		defer wg.Done()
		srv.Start(shutdownCtx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		tcpTransport.Start(shutdownCtx)
	}()

	if *useWebsockets {
		wsTransport, wsErr := server.CreateWebsocketTransport(srv, server.WebsocketTransportParams{
			ListenAddress:  *wsAddr,
			ListenEndpoint: *wsEndpoint,
			AllowAllHosts:  true,
			Logger:         logger,
		})
		if wsErr != nil {
			logger.Error("Failed to create WebSocket transport", zap.Error(wsErr))
			return
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			wsTransport.Start(shutdownCtx)
		}()
	}

	wg.Wait()
}

// loadBank picks the question source: a fresh web fetch (cached to the
// snapshot path), a previously cached snapshot as fallback, or the static
// question file.
func loadBank(ctx context.Context, logger *zap.Logger, fetch bool, questionsPath, snapshotPath string) (*store.Bank, error) {
	if !fetch {
		return store.LoadQuestionsFile(questionsPath)
	}

	bank, err := store.NewFetcher().Fetch(ctx)
	if err != nil {
		logger.Warn("Question fetch failed, trying cached snapshot", zap.Error(err))
		return store.ReadSnapshot(snapshotPath)
	}

	if err := store.WriteSnapshot(snapshotPath, bank); err != nil {
		logger.Warn("Failed to cache question snapshot", zap.Error(err))
	}
	return bank, nil
}
