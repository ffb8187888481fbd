package main

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/the-deals-must-flow/internal/common"
	"github.com/Veraticus/the-deals-must-flow/internal/config"
	"github.com/Veraticus/the-deals-must-flow/internal/model"
	"github.com/Veraticus/the-deals-must-flow/internal/pipeline"
	"github.com/Veraticus/the-deals-must-flow/internal/storage"
)

// session is an opened store and the service over it.
type session struct {
	cfg     *config.Config
	opened  *storage.Opened
	service *pipeline.Service
}

func (s *session) Close() {
	if err := s.opened.Close(); err != nil {
		slog.Warn("Failed to close storage", "error", err)
	}
}

// openSession loads the configuration, opens the configured backend and
// seeds it from storage.seed_file when it is empty.
func (a *app) openSession(ctx context.Context) (*session, error) {
	cfg, err := config.Load(a.v)
	if err != nil {
		return nil, err
	}

	logger := slog.Default()
	opened, err := storage.Open(ctx, cfg.BackendConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s storage: %w", cfg.Storage.Backend, err)
	}

	var seed []model.Deal
	if cfg.Storage.SeedFile != "" {
		seed, err = storage.LoadFixtureFile(cfg.Storage.SeedFile)
		if err != nil {
			_ = opened.Close()
			return nil, err
		}
	}

	store, err := storage.NewDealStore(ctx, opened.Backend,
		storage.WithSeed(seed),
		storage.WithLogger(logger))
	if err != nil {
		_ = opened.Close()
		return nil, fmt.Errorf("failed to load deals: %w", err)
	}

	slog.Debug("Opened deal store",
		"backend", cfg.Storage.Backend,
		"path", cfg.Storage.Path,
		"deals", store.Len())

	return &session{
		cfg:    cfg,
		opened: opened,
		service: pipeline.NewService(store,
			pipeline.WithHistory(opened.History),
			pipeline.WithServiceLogger(logger)),
	}, nil
}

func parseID(raw string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid deal id %q", common.ErrValidation, raw)
	}
	return id, nil
}

func parseDate(raw string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q, expected YYYY-MM-DD", common.ErrValidation, raw)
	}
	return t.UTC(), nil
}
