package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/mind-engage/fungiquest/internal/backend/rest"
	"github.com/mind-engage/fungiquest/internal/config"
	"github.com/mind-engage/fungiquest/internal/content"
	"github.com/mind-engage/fungiquest/internal/localstore"
	"github.com/mind-engage/fungiquest/internal/logger"
)

// env is everything a command needs to talk to the backend.
type env struct {
	cfg     config.Client
	log     *logger.Logger
	backend *rest.Client
	device  *localstore.SQLiteStore
	content *content.Client
}

func openEnv(cmd *cobra.Command) (*env, error) {
	path := configPath
	if path == "" {
		path = config.DefaultClientPath()
	}
	cfg, err := config.LoadClient(path)
	if err != nil {
		return nil, err
	}
	if logFile != "" {
		cfg.LogFile = logFile
	}

	dbPath := cfg.LocalDBPath()
	if dbPath == "" {
		if dbPath, err = localstore.DefaultPath(); err != nil {
			return nil, fmt.Errorf("resolve state dir: %w", err)
		}
	}
	if cfg.LogFile == "" {
		cfg.LogFile = filepath.Join(filepath.Dir(dbPath), "fungiquest.log")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
		return nil, fmt.Errorf("log dir: %w", err)
	}
	log, err := logger.New(cfg.Mode, cfg.LogFile)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	device, err := localstore.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open device store: %w", err)
	}

	rc := rest.New(cfg.BackendURL, cfg.BackendKey, nil)
	opts := []content.Option{
		content.WithIdentity(rc),
		content.WithLocal(device),
		content.WithLogger(log.With("component", "content")),
	}
	if cfg.ServerGrading {
		opts = append(opts, content.WithGrader(rc))
	}
	e := &env{cfg: cfg, log: log, backend: rc, device: device, content: content.New(rc, opts...)}

	hctx, cancel := context.WithTimeout(ctxOf(cmd), 5*time.Second)
	err = rc.Health(hctx)
	cancel()
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("backend %s is not reachable (check FUNGIQUEST_BACKEND_URL): %w", cfg.BackendURL, err)
	}

	if passphrase != "" {
		if _, err := rc.SignInWithPassphrase(ctxOf(cmd), passphrase); err != nil {
			e.Close()
			return nil, fmt.Errorf("sign in: %w", err)
		}
	}
	log.Debug("client ready", "backend", cfg.BackendURL, "state", dbPath, "server_grading", cfg.ServerGrading)
	return e, nil
}

func (e *env) Close() {
	_ = e.device.Close()
	e.log.Sync()
}

func ctxOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
