package store

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"visa-appointment-backend/internal/model"
)

// Dual coordinates the authoritative primary store and the best-effort
// mirror. Every write goes to the primary first; only on its success is the
// mirror write attempted. A primary failure aborts the operation and is
// returned to the caller without touching the mirror. A mirror failure is
// logged and swallowed. Mirror rows reuse the primary-assigned ids so the
// mirror's foreign keys stay meaningful.
type Dual struct {
	primary Store
	mirror  Store
	log     zerolog.Logger
}

// NewDual creates the dual-store coordinator.
func NewDual(primary, mirror Store, log zerolog.Logger) *Dual {
	return &Dual{primary: primary, mirror: mirror, log: log}
}

// Primary exposes the authoritative store.
func (d *Dual) Primary() Store { return d.primary }

// Mirror exposes the read-cache store.
func (d *Dual) Mirror() Store { return d.mirror }

func (d *Dual) mirrorFailure(ctx context.Context, op string, err error) {
	d.log.Warn().Err(err).Str("op", op).Msg("mirror write failed; primary result stands")
	if logErr := d.primary.LogError(ctx, err.Error(), op, "mirror write"); logErr != nil {
		d.log.Warn().Err(logErr).Msg("failed to record mirror failure in error_logs")
	}
}

// ArchiveResponse archives a snapshot in the primary and replays it into
// the mirror with the same id.
func (d *Dual) ArchiveResponse(ctx context.Context, raw string, ts time.Time) (int64, error) {
	id, err := d.primary.ArchiveResponse(ctx, raw, ts)
	if err != nil {
		return 0, err
	}
	if err := d.mirror.ReplayResponse(ctx, id, raw, ts); err != nil {
		d.mirrorFailure(ctx, "ArchiveResponse", err)
	}
	return id, nil
}

// ResolveUniqueAppointment resolves the identity against the primary and
// replays the upsert into the mirror.
func (d *Dual) ResolveUniqueAppointment(ctx context.Context, identity Identity) (int64, bool, error) {
	id, created, err := d.primary.ResolveUniqueAppointment(ctx, identity)
	if err != nil {
		return 0, false, err
	}
	if err := d.mirror.ReplayUniqueAppointment(ctx, id, identity); err != nil {
		d.mirrorFailure(ctx, "ResolveUniqueAppointment", err)
	}
	return id, created, nil
}

// InsertAppointmentLog appends an observation to the primary; the mirror
// replay happens only after the primary insert succeeds. ErrDuplicate from
// the primary suppresses the mirror write entirely.
func (d *Dual) InsertAppointmentLog(ctx context.Context, obs Observation) (int64, error) {
	id, err := d.primary.InsertAppointmentLog(ctx, obs)
	if err != nil {
		return 0, err
	}
	if err := d.mirror.ReplayAppointmentLog(ctx, id, obs); err != nil {
		d.mirrorFailure(ctx, "InsertAppointmentLog", err)
	}
	return id, nil
}

// MarkProcessed records the processed marker in both stores.
func (d *Dual) MarkProcessed(ctx context.Context, responseID int64, ts time.Time) error {
	if err := d.primary.MarkProcessed(ctx, responseID, ts); err != nil {
		return err
	}
	if err := d.mirror.MarkProcessed(ctx, responseID, ts); err != nil {
		d.mirrorFailure(ctx, "MarkProcessed", err)
	}
	return nil
}

// AppendMessage writes an audit message to both stores.
func (d *Dual) AppendMessage(ctx context.Context, table MessageTable, msg string) error {
	if err := d.primary.AppendMessage(ctx, table, msg); err != nil {
		return err
	}
	if err := d.mirror.AppendMessage(ctx, table, msg); err != nil {
		d.mirrorFailure(ctx, "AppendMessage", err)
	}
	return nil
}

// LogError writes to the primary's error trail only.
func (d *Dual) LogError(ctx context.Context, msg, source, data string) error {
	return d.primary.LogError(ctx, msg, source, data)
}

// LastResponse reads the authoritative last snapshot.
func (d *Dual) LastResponse(ctx context.Context) (*model.Response, error) {
	return d.primary.LastResponse(ctx)
}

// UnprocessedResponses reads the authoritative backlog.
func (d *Dual) UnprocessedResponses(ctx context.Context) ([]model.Response, error) {
	return d.primary.UnprocessedResponses(ctx)
}

// LatestObservation reads the authoritative joined view for notifications.
func (d *Dual) LatestObservation(ctx context.Context, uniqueAppointmentID int64) (*JoinedObservation, error) {
	return d.primary.LatestObservation(ctx, uniqueAppointmentID)
}

// PruneMirror applies the retention policy to the mirror's observation
// table. The primary is never pruned.
func (d *Dual) PruneMirror(ctx context.Context, olderThan time.Time) (int64, error) {
	return d.mirror.PruneAppointmentLogs(ctx, olderThan)
}
