// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/arenaludo/ludo-server/internal/ports/clock"
	"github.com/arenaludo/ludo-server/internal/ports/identity"
	"github.com/arenaludo/ludo-server/internal/ports/persistence"
	"github.com/arenaludo/ludo-server/internal/ports/random"
	"github.com/arenaludo/ludo-server/internal/server/registry"
	"github.com/arenaludo/ludo-server/internal/server/transport"
	"github.com/arenaludo/ludo-server/internal/shared/logging"
	"github.com/arenaludo/ludo-server/pkg/database"
)

func main() {
	cfg := &Config{}
	cmd := newCmd(cfg)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *Config) error {
	logger := log.New(os.Stdout, "ludo-server ", log.LstdFlags)
	if cfg.verbose {
		logging.EnableDebug(os.Stderr)
		logging.Debug.Println("debug logging enabled")
	}

	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	if closer, ok := store.(*database.DB); ok {
		defer closer.Close()
	}

	idp := identity.Static{}
	reg := registry.New(clock.New(), random.New(), store, logger)
	srv := transport.New(idp, reg, logger, cfg.scheme() == "https")

	addr := fmt.Sprintf("%s:%d", cfg.bind, cfg.port)
	httpServer := &http.Server{Addr: addr, Handler: srv.Handler()}

	logger.Printf("listening on %s (%s)", addr, cfg.scheme())
	if cfg.tlsCert != "" {
		err = httpServer.ListenAndServeTLS(cfg.tlsCert, cfg.tlsKey)
	} else {
		err = httpServer.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// openStore connects to MySQL, falling back to a no-op Store (manual
// rooms only; tournament lookups always miss) if no password was
// configured — the common case for local/ad-hoc play.
func openStore(cfg *Config, logger *log.Logger) (persistence.Store, error) {
	if cfg.dbPassword == "" {
		logger.Printf("no database configured, tournament rooms disabled")
		return persistence.Noop{}, nil
	}
	db, err := database.NewDB(cfg.dbHost, cfg.dbPort, cfg.dbUser, cfg.dbPassword, cfg.dbName)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return db, nil
}

// readFileIfExists returns nil, nil if path does not exist.
func readFileIfExists(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return data, err
}
