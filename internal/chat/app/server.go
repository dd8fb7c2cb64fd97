// Package server hosts the customer support chat signaling service: a
// WebSocket endpoint that relays room-scoped events between one customer and
// one support admin, tracks room lifecycle, and persists transcripts when
// conversations end.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/relooped/supportchat/internal/chat/storage"
	"github.com/relooped/supportchat/internal/chat/storage/sqlite"
	"github.com/relooped/supportchat/internal/platform/timeouts"
)

const (
	maxFramePayloadBytes   = 16 * 1024
	maxFramesPerSecond     = 40
	maxDecodeErrorsPerConn = 3

	maxMessageBodyRunes = 2000
	maxRoomMessages     = 1000

	sessionCookieName = "shop_session"
)

// Config defines the inputs for the chat transport boundary.
//
// The settings couple the WebSocket layer to storefront session introspection
// and transcript storage without owning either concern.
type Config struct {
	HTTPAddr           string
	AuthBaseURL        string
	AuthResourceSecret string
	DBPath             string
	ReadHeaderTimeout  time.Duration
	ShutdownTimeout    time.Duration
}

// Server hosts the chat HTTP/WebSocket process.
type Server struct {
	httpAddr        string
	shutdownTimeout time.Duration
	httpServer      *http.Server
	store           *sqlite.Store
}

// NewServer builds a configured chat server.
func NewServer(config Config) (*Server, error) {
	httpAddr := strings.TrimSpace(config.HTTPAddr)
	if httpAddr == "" {
		return nil, errors.New("http address is required")
	}
	if config.ReadHeaderTimeout <= 0 {
		config.ReadHeaderTimeout = timeouts.ReadHeader
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = timeouts.Shutdown
	}

	var sqliteStore *sqlite.Store
	var transcripts storage.TranscriptStore
	if dbPath := strings.TrimSpace(config.DBPath); dbPath != "" {
		var err error
		sqliteStore, err = sqlite.Open(dbPath)
		if err != nil {
			return nil, fmt.Errorf("open transcript store: %w", err)
		}
		transcripts = sqliteStore
	} else {
		log.Printf("transcript persistence disabled: no database path configured")
	}

	core := newChatCore(transcripts)
	authorizer := newShopAuthorizer(config)
	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           newHandler(core, authorizer, authorizer != nil),
		ReadHeaderTimeout: config.ReadHeaderTimeout,
	}

	return &Server{
		httpAddr:        httpAddr,
		shutdownTimeout: config.ShutdownTimeout,
		httpServer:      httpServer,
		store:           sqliteStore,
	}, nil
}

// Run creates and serves a chat server until the context ends.
func Run(ctx context.Context, config Config) error {
	server, err := NewServer(config)
	if err != nil {
		return fmt.Errorf("init chat server: %w", err)
	}
	defer server.Close()

	if err := server.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("serve chat: %w", err)
	}
	return nil
}

// ListenAndServe runs the HTTP server until the context ends.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil {
		return errors.New("chat server is nil")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	serveErr := make(chan error, 1)
	log.Printf("chat server listening on %s", s.httpAddr)
	go func() {
		serveErr <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		err := s.httpServer.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}

// Close releases server resources.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Printf("close transcript store: %v", err)
		}
	}
}
