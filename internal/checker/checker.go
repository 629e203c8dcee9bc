package checker

import (
	"context"
	"encoding/json"
	"reflect"
	"time"

	"github.com/rs/zerolog"

	"visa-appointment-backend/config"
	"visa-appointment-backend/internal/notification"
	"visa-appointment-backend/internal/process"
	"visa-appointment-backend/internal/store"
)

// Service drives the fetch → detect → process → notify cycle on a fixed
// interval. A single goroutine runs the loop; each cycle's failure is
// logged and the loop waits for the next tick.
type Service struct {
	cfg       *config.Config
	db        *store.Dual
	client    *Client
	processor *process.Processor
	pool      *notification.WorkerPool
	log       zerolog.Logger
}

// NewService creates the polling service.
func NewService(cfg *config.Config, db *store.Dual, processor *process.Processor, pool *notification.WorkerPool, log zerolog.Logger) *Service {
	return &Service{
		cfg:       cfg,
		db:        db,
		client:    NewClient(&cfg.Checker, log),
		processor: processor,
		pool:      pool,
		log:       log,
	}
}

// Run starts the worker pool, replays any backlog left by a crash, then
// polls until the context is cancelled.
func (s *Service) Run(ctx context.Context) {
	if !s.cfg.Checker.Enabled {
		s.log.Info().Msg("checker is disabled, not starting")
		return
	}
	s.log.Info().Dur("interval", s.cfg.Checker.Interval).Msg("starting checker service")

	if s.pool != nil {
		s.pool.Start(ctx)
	}

	// Crash recovery: snapshots archived but never marked processed.
	if err := s.processor.ReprocessUnmarked(ctx); err != nil {
		s.log.Error().Err(err).Msg("backlog reprocessing failed")
	}

	s.CheckOnce(ctx)

	timer := time.NewTimer(s.cfg.Checker.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("checker service shutting down")
			return
		case <-timer.C:
			s.CheckOnce(ctx)
			timer.Reset(s.cfg.Checker.Interval)
		}
	}
}

// CheckOnce performs a single check cycle. Failures never propagate past
// this method; the loop always reaches the next tick.
func (s *Service) CheckOnce(ctx context.Context) {
	s.log.Debug().Msg("executing check cycle")

	if err := s.db.AppendMessage(ctx, store.MessageLogs, "Check executed."); err != nil {
		s.log.Error().Err(err).Msg("failed to append check log")
	}

	raw, entries, err := s.client.FetchVisaList(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("fetch failed, waiting for next tick")
		if logErr := s.db.LogError(ctx, err.Error(), "CheckOnce", "fetch"); logErr != nil {
			s.log.Warn().Err(logErr).Msg("failed to append error log")
		}
		return
	}

	novel, err := s.Submit(ctx, raw, entries)
	if err != nil {
		s.log.Error().Err(err).Msg("snapshot submission failed")
		return
	}
	if !novel {
		s.log.Debug().Msg("payload unchanged since last snapshot")
	}

	if s.cfg.Mirror.RetentionDays > 0 {
		cutoff := time.Now().UTC().AddDate(0, 0, -s.cfg.Mirror.RetentionDays)
		if pruned, err := s.db.PruneMirror(ctx, cutoff); err != nil {
			s.log.Warn().Err(err).Msg("mirror pruning failed")
		} else if pruned > 0 {
			s.log.Debug().Int64("rows", pruned).Msg("pruned mirror observations")
		}
	}
}

// Submit is the change-detection entry point: it compares the payload by
// structure against the most recently archived snapshot and, when novel,
// archives and processes it. Returns whether the payload was novel.
func (s *Service) Submit(ctx context.Context, raw []byte, entries []store.Entry) (bool, error) {
	last, err := s.db.LastResponse(ctx)
	if err != nil {
		return false, err
	}
	if last != nil && payloadsEqual(raw, []byte(last.Response)) {
		return false, nil
	}

	now := time.Now().UTC()
	id, err := s.db.ArchiveResponse(ctx, string(raw), now)
	if err != nil {
		if logErr := s.db.LogError(ctx, err.Error(), "Submit", "archive"); logErr != nil {
			s.log.Warn().Err(logErr).Msg("failed to append error log")
		}
		return false, err
	}

	if err := s.processor.ProcessSnapshot(ctx, entries, now); err != nil {
		// Marker stays absent; the backlog pass will retry this snapshot.
		s.log.Error().Err(err).Int64("response_id", id).Msg("snapshot processing incomplete")
		return true, nil
	}

	if err := s.db.MarkProcessed(ctx, id, now); err != nil {
		s.log.Error().Err(err).Int64("response_id", id).Msg("failed to mark snapshot processed")
	}
	return true, nil
}

// payloadsEqual compares two JSON payloads structurally, so formatting and
// key order differences do not count as novelty.
func payloadsEqual(a, b []byte) bool {
	var av, bv any
	if err := json.Unmarshal(a, &av); err != nil {
		return false
	}
	if err := json.Unmarshal(b, &bv); err != nil {
		return false
	}
	return reflect.DeepEqual(av, bv)
}
