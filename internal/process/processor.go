// Package process turns archived snapshots into canonical identities,
// deduplicated observations and notifications. All writes go through the
// dual store, so the primary-first policy applies transitively.
package process

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"visa-appointment-backend/internal/model"
	"visa-appointment-backend/internal/notification"
	"visa-appointment-backend/internal/parse"
	"visa-appointment-backend/internal/store"
)

// Pipeline is the slice of the dual store the processor needs.
type Pipeline interface {
	ResolveUniqueAppointment(ctx context.Context, identity store.Identity) (int64, bool, error)
	InsertAppointmentLog(ctx context.Context, obs store.Observation) (int64, error)
	LatestObservation(ctx context.Context, uniqueAppointmentID int64) (*store.JoinedObservation, error)
	MarkProcessed(ctx context.Context, responseID int64, ts time.Time) error
	UnprocessedResponses(ctx context.Context) ([]model.Response, error)
	AppendMessage(ctx context.Context, table store.MessageTable, msg string) error
	LogError(ctx context.Context, msg, source, data string) error
}

// Dispatcher queues a notification for delivery.
type Dispatcher interface {
	Dispatch(n notification.Notification)
}

// Processor reconciles snapshot entries into the stores.
type Processor struct {
	db         Pipeline
	dispatcher Dispatcher
	log        zerolog.Logger
}

// New creates a processor. dispatcher may be nil, in which case novel dated
// observations are persisted but no alert is sent.
func New(db Pipeline, dispatcher Dispatcher, log zerolog.Logger) *Processor {
	return &Processor{db: db, dispatcher: dispatcher, log: log}
}

// ProcessSnapshot runs every entry of a snapshot through identity
// resolution and observation logging. Observations carry the snapshot's
// timestamp, so replaying the same snapshot reproduces the same tuples and
// dedups instead of double-writing or re-notifying. The returned error is
// non-nil when at least one entry hit a primary store failure; validation
// skips and exact duplicates are not errors.
func (p *Processor) ProcessSnapshot(ctx context.Context, entries []store.Entry, snapshotTS time.Time) error {
	var failed int
	for _, entry := range entries {
		if !entry.Valid() {
			p.log.Debug().
				Str("visa_type_id", entry.VisaTypeID).
				Str("center_name", entry.CenterName).
				Msg("skipping entry with missing identity fields")
			continue
		}

		if err := p.processEntry(ctx, entry, snapshotTS); err != nil {
			failed++
			p.log.Error().Err(err).Str("visa_type_id", entry.VisaTypeID).Msg("entry processing failed")
			if logErr := p.db.LogError(ctx, err.Error(), "ProcessSnapshot", entry.VisaTypeID); logErr != nil {
				p.log.Warn().Err(logErr).Msg("failed to append error log")
			}
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d entries failed", failed, len(entries))
	}
	return nil
}

func (p *Processor) processEntry(ctx context.Context, entry store.Entry, snapshotTS time.Time) error {
	id, created, err := p.db.ResolveUniqueAppointment(ctx, entry.Identity())
	if err != nil {
		return err
	}
	if created {
		msg := fmt.Sprintf("New appointment type discovered: %s at %s (%s)",
			entry.VisaTypeID, entry.CenterName, entry.Identity().MissionCountry)
		if err := p.db.AppendMessage(ctx, store.MessageLogs, msg); err != nil {
			p.log.Warn().Err(err).Msg("failed to append discovery log")
		}
	}

	obs := store.Observation{
		UniqueAppointmentID: id,
		Timestamp:           snapshotTS,
		AppointmentDate:     parse.NormalizeDate(deref(entry.AppointmentDate)),
		PeopleLooking:       entry.PeopleLooking,
		LastChecked:         parse.NormalizeTimestamp(deref(entry.LastChecked)),
	}

	if _, err := p.db.InsertAppointmentLog(ctx, obs); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			// Already observed; nothing new to say.
			return nil
		}
		return err
	}

	// A no-date observation is logged but stays silent.
	if obs.AppointmentDate == "" {
		return nil
	}
	return p.notify(ctx, id)
}

// notify builds the alert from the joined latest view and dispatches it.
// Exactly one notification per freshly inserted dated observation.
func (p *Processor) notify(ctx context.Context, uniqueAppointmentID int64) error {
	joined, err := p.db.LatestObservation(ctx, uniqueAppointmentID)
	if err != nil {
		return fmt.Errorf("fetch latest observation: %w", err)
	}
	if joined == nil {
		return fmt.Errorf("no observation found for unique appointment %d", uniqueAppointmentID)
	}

	msg := fmt.Sprintf("Appointment available for %s: %s at %s (%d people looking)",
		joined.MissionCountry, joined.AppointmentDate, joined.CenterName, joined.PeopleLooking)

	if err := p.db.AppendMessage(ctx, store.MessageAppointments, msg); err != nil {
		p.log.Warn().Err(err).Msg("failed to append appointment message")
	}

	if p.dispatcher != nil {
		p.dispatcher.Dispatch(notification.Notification{
			UniqueAppointmentID: uniqueAppointmentID,
			Title:               "Appointment Found",
			Message:             msg,
		})
	}
	return nil
}

// ReprocessUnmarked replays every archived snapshot that lacks a processed
// marker, oldest first, and marks each one after a clean run. Safe to call
// at any time; with an empty backlog it is a no-op. Snapshots with
// malformed payloads are skipped and logged, not fatal.
func (p *Processor) ReprocessUnmarked(ctx context.Context) error {
	backlog, err := p.db.UnprocessedResponses(ctx)
	if err != nil {
		return fmt.Errorf("fetch unprocessed responses: %w", err)
	}
	if len(backlog) == 0 {
		return nil
	}

	p.log.Info().Int("count", len(backlog)).Msg("reprocessing unmarked snapshots")
	for _, rec := range backlog {
		var entries []store.Entry
		if err := json.Unmarshal([]byte(rec.Response), &entries); err != nil {
			p.log.Error().Err(err).Int64("response_id", rec.ID).Msg("skipping snapshot with malformed payload")
			if logErr := p.db.LogError(ctx, err.Error(), "ReprocessUnmarked", fmt.Sprintf("response_id=%d", rec.ID)); logErr != nil {
				p.log.Warn().Err(logErr).Msg("failed to append error log")
			}
			continue
		}

		if err := p.ProcessSnapshot(ctx, entries, rec.Timestamp); err != nil {
			// Leave the marker absent so the next pass retries.
			p.log.Error().Err(err).Int64("response_id", rec.ID).Msg("snapshot reprocessing incomplete")
			continue
		}

		if err := p.db.MarkProcessed(ctx, rec.ID, rec.Timestamp); err != nil {
			p.log.Error().Err(err).Int64("response_id", rec.ID).Msg("failed to mark snapshot processed")
		}
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
