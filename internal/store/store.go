package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"visa-appointment-backend/internal/model"
)

// ErrDuplicate indicates that an identical observation row already exists
// for the (unique_appointment_id, timestamp, appointment_date,
// people_looking, last_checked) tuple.
var ErrDuplicate = errors.New("duplicate observation")

// MessageTable selects which audit message table AppendMessage writes to.
type MessageTable string

const (
	MessageLogs         MessageTable = "logs"
	MessageAppointments MessageTable = "appointments"
)

// Store defines the persistence operations of a single engine. The same
// gorm-backed implementation serves both the PostgreSQL primary and the
// SQLite mirror.
type Store interface {
	// Pipeline writes.
	ArchiveResponse(ctx context.Context, raw string, ts time.Time) (int64, error)
	ReplayResponse(ctx context.Context, id int64, raw string, ts time.Time) error
	ResolveUniqueAppointment(ctx context.Context, identity Identity) (id int64, created bool, err error)
	ReplayUniqueAppointment(ctx context.Context, id int64, identity Identity) error
	InsertAppointmentLog(ctx context.Context, obs Observation) (int64, error)
	ReplayAppointmentLog(ctx context.Context, id int64, obs Observation) error
	MarkProcessed(ctx context.Context, responseID int64, ts time.Time) error
	AppendMessage(ctx context.Context, table MessageTable, msg string) error
	LogError(ctx context.Context, msg, source, data string) error
	PruneAppointmentLogs(ctx context.Context, olderThan time.Time) (int64, error)

	// Pipeline reads.
	LastResponse(ctx context.Context) (*model.Response, error)
	UnprocessedResponses(ctx context.Context) ([]model.Response, error)
	LatestObservation(ctx context.Context, uniqueAppointmentID int64) (*JoinedObservation, error)

	// Dashboard reads.
	RecentLogs(ctx context.Context, limit int) ([]model.LogEntry, error)
	RecentAppointmentMessages(ctx context.Context, limit int) ([]model.AppointmentMessage, error)
	RecentResponses(ctx context.Context, limit int) ([]model.Response, error)
	FilterUniqueAppointments(ctx context.Context, column, value string, limit int) ([]model.UniqueAppointment, error)
	ObservationHistory(ctx context.Context, uniqueAppointmentID int64) ([]model.AppointmentLog, error)

	DB() *gorm.DB
}

// gormStore implements Store on top of gorm.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a gorm-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB { return s.db }

// ArchiveResponse inserts a new snapshot row and returns its id.
func (s *gormStore) ArchiveResponse(ctx context.Context, raw string, ts time.Time) (int64, error) {
	rec := model.Response{Timestamp: ts, Response: raw}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return 0, fmt.Errorf("archive response: %w", err)
	}
	return rec.ID, nil
}

// ReplayResponse inserts a snapshot row reusing an id assigned elsewhere.
// Conflicting ids are ignored so replays stay idempotent.
func (s *gormStore) ReplayResponse(ctx context.Context, id int64, raw string, ts time.Time) error {
	rec := model.Response{ID: id, Timestamp: ts, Response: raw}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rec).Error
}

// LastResponse returns the most recently archived snapshot, or nil when no
// snapshot has been archived yet.
func (s *gormStore) LastResponse(ctx context.Context) (*model.Response, error) {
	var rec model.Response
	err := s.db.WithContext(ctx).Order("timestamp DESC, id DESC").First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ResolveUniqueAppointment performs the race-safe find-or-create for an
// identity tuple. The insert relies on the 7-column unique index; a
// conflict is a no-op and the existing row's id is fetched afterwards.
func (s *gormStore) ResolveUniqueAppointment(ctx context.Context, identity Identity) (int64, bool, error) {
	rec := model.UniqueAppointment{
		VisaTypeID:      identity.VisaTypeID,
		CenterName:      identity.CenterName,
		BookNowLink:     identity.BookNowLink,
		VisaCategory:    identity.VisaCategory,
		VisaSubcategory: identity.VisaSubcategory,
		SourceCountry:   identity.SourceCountry,
		MissionCountry:  identity.MissionCountry,
	}

	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rec)
	if res.Error != nil {
		return 0, false, fmt.Errorf("upsert unique appointment: %w", res.Error)
	}
	if res.RowsAffected == 1 {
		return rec.ID, true, nil
	}

	var existing model.UniqueAppointment
	err := s.db.WithContext(ctx).
		Where("visa_type_id = ? AND center_name = ? AND book_now_link = ? AND visa_category = ? AND visa_subcategory = ? AND source_country = ? AND mission_country = ?",
			identity.VisaTypeID, identity.CenterName, identity.BookNowLink,
			identity.VisaCategory, identity.VisaSubcategory,
			identity.SourceCountry, identity.MissionCountry).
		First(&existing).Error
	if err != nil {
		return 0, false, fmt.Errorf("fetch unique appointment after conflict: %w", err)
	}
	return existing.ID, false, nil
}

// ReplayUniqueAppointment upserts an identity reusing the id the primary
// assigned, keeping the mirror's foreign keys aligned with the primary.
func (s *gormStore) ReplayUniqueAppointment(ctx context.Context, id int64, identity Identity) error {
	rec := model.UniqueAppointment{
		ID:              id,
		VisaTypeID:      identity.VisaTypeID,
		CenterName:      identity.CenterName,
		BookNowLink:     identity.BookNowLink,
		VisaCategory:    identity.VisaCategory,
		VisaSubcategory: identity.VisaSubcategory,
		SourceCountry:   identity.SourceCountry,
		MissionCountry:  identity.MissionCountry,
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rec).Error
}

// InsertAppointmentLog appends an observation. An exact repeat of an
// existing row is suppressed and reported as ErrDuplicate.
func (s *gormStore) InsertAppointmentLog(ctx context.Context, obs Observation) (int64, error) {
	rec := model.AppointmentLog{
		UniqueAppointmentID: obs.UniqueAppointmentID,
		Timestamp:           obs.Timestamp,
		AppointmentDate:     obs.AppointmentDate,
		PeopleLooking:       obs.PeopleLooking,
		LastChecked:         obs.LastChecked,
	}

	res := s.db.WithContext(ctx).Omit("UniqueAppointment").Clauses(clause.OnConflict{DoNothing: true}).Create(&rec)
	if res.Error != nil {
		return 0, fmt.Errorf("insert appointment log: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, ErrDuplicate
	}
	return rec.ID, nil
}

// ReplayAppointmentLog inserts an observation reusing the id the primary
// assigned. Conflicts are ignored.
func (s *gormStore) ReplayAppointmentLog(ctx context.Context, id int64, obs Observation) error {
	rec := model.AppointmentLog{
		ID:                  id,
		UniqueAppointmentID: obs.UniqueAppointmentID,
		Timestamp:           obs.Timestamp,
		AppointmentDate:     obs.AppointmentDate,
		PeopleLooking:       obs.PeopleLooking,
		LastChecked:         obs.LastChecked,
	}
	return s.db.WithContext(ctx).Omit("UniqueAppointment").Clauses(clause.OnConflict{DoNothing: true}).Create(&rec).Error
}

// MarkProcessed records that a snapshot has been fully processed. Replays
// of an already marked snapshot are a no-op.
func (s *gormStore) MarkProcessed(ctx context.Context, responseID int64, ts time.Time) error {
	rec := model.ProcessedResponse{
		ResponseID:  responseID,
		Timestamp:   ts,
		ProcessedAt: time.Now().UTC(),
	}
	return s.db.WithContext(ctx).Omit("Response").Clauses(clause.OnConflict{DoNothing: true}).Create(&rec).Error
}

// UnprocessedResponses returns archived snapshots without a processed
// marker, oldest first.
func (s *gormStore) UnprocessedResponses(ctx context.Context) ([]model.Response, error) {
	var recs []model.Response
	err := s.db.WithContext(ctx).
		Joins("LEFT JOIN processed_responses p ON p.response_id = responses.id").
		Where("p.response_id IS NULL").
		Order("responses.timestamp ASC, responses.id ASC").
		Find(&recs).Error
	return recs, err
}

// AppendMessage writes a human-readable audit line to the logs or
// appointments message table.
func (s *gormStore) AppendMessage(ctx context.Context, table MessageTable, msg string) error {
	now := time.Now().UTC()
	switch table {
	case MessageLogs:
		return s.db.WithContext(ctx).Create(&model.LogEntry{Timestamp: now, Message: msg}).Error
	case MessageAppointments:
		return s.db.WithContext(ctx).Create(&model.AppointmentMessage{Timestamp: now, Message: msg}).Error
	default:
		return fmt.Errorf("unknown message table %q", table)
	}
}

// LogError appends a diagnostic record. Errors writing the error trail are
// returned but callers treat them as best-effort.
func (s *gormStore) LogError(ctx context.Context, msg, source, data string) error {
	rec := model.ErrorLog{
		ErrorMessage:   msg,
		SourceFunction: source,
		AdditionalData: data,
		CreatedAt:      time.Now().UTC(),
	}
	return s.db.WithContext(ctx).Create(&rec).Error
}

// PruneAppointmentLogs deletes observations older than the cutoff. Only the
// mirror runs this; the primary keeps the full time series.
func (s *gormStore) PruneAppointmentLogs(ctx context.Context, olderThan time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("timestamp < ?", olderThan).Delete(&model.AppointmentLog{})
	return res.RowsAffected, res.Error
}

// LatestObservation returns the joined latest observation for an identity,
// or nil when the identity has no observations yet.
func (s *gormStore) LatestObservation(ctx context.Context, uniqueAppointmentID int64) (*JoinedObservation, error) {
	var row JoinedObservation
	err := s.db.WithContext(ctx).
		Model(&model.AppointmentLog{}).
		Select("unique_appointments.id AS unique_appointment_id, unique_appointments.visa_type_id, unique_appointments.center_name, unique_appointments.visa_category, unique_appointments.visa_subcategory, unique_appointments.source_country, unique_appointments.mission_country, unique_appointments.book_now_link, appointment_logs.id AS log_id, appointment_logs.timestamp, appointment_logs.appointment_date, appointment_logs.people_looking, appointment_logs.last_checked").
		Joins("JOIN unique_appointments ON unique_appointments.id = appointment_logs.unique_appointment_id").
		Where("appointment_logs.unique_appointment_id = ?", uniqueAppointmentID).
		Order("appointment_logs.timestamp DESC, appointment_logs.id DESC").
		Limit(1).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.LogID == 0 {
		return nil, nil
	}
	return &row, nil
}

// RecentLogs returns the newest audit log lines.
func (s *gormStore) RecentLogs(ctx context.Context, limit int) ([]model.LogEntry, error) {
	var recs []model.LogEntry
	err := s.db.WithContext(ctx).Order("id DESC").Limit(limit).Find(&recs).Error
	return recs, err
}

// RecentAppointmentMessages returns the newest dispatched alert messages.
func (s *gormStore) RecentAppointmentMessages(ctx context.Context, limit int) ([]model.AppointmentMessage, error) {
	var recs []model.AppointmentMessage
	err := s.db.WithContext(ctx).Order("id DESC").Limit(limit).Find(&recs).Error
	return recs, err
}

// RecentResponses returns the newest archived snapshots.
func (s *gormStore) RecentResponses(ctx context.Context, limit int) ([]model.Response, error) {
	var recs []model.Response
	err := s.db.WithContext(ctx).Order("id DESC").Limit(limit).Find(&recs).Error
	return recs, err
}

// filterableColumns whitelists the columns FilterUniqueAppointments may
// match against; anything else is rejected.
var filterableColumns = map[string]struct{}{
	"visa_type_id":     {},
	"center_name":      {},
	"visa_category":    {},
	"visa_subcategory": {},
	"source_country":   {},
	"mission_country":  {},
	"book_now_link":    {},
}

// FilterUniqueAppointments lists identities matching column = value. An
// empty column lists all identities up to the limit.
func (s *gormStore) FilterUniqueAppointments(ctx context.Context, column, value string, limit int) ([]model.UniqueAppointment, error) {
	var recs []model.UniqueAppointment
	q := s.db.WithContext(ctx).Order("id ASC").Limit(limit)
	if column != "" {
		if _, ok := filterableColumns[column]; !ok {
			return nil, fmt.Errorf("column %q is not filterable", column)
		}
		q = q.Where(fmt.Sprintf("%s = ?", column), value)
	}
	err := q.Find(&recs).Error
	return recs, err
}

// ObservationHistory returns the full observation time series for an
// identity, newest first.
func (s *gormStore) ObservationHistory(ctx context.Context, uniqueAppointmentID int64) ([]model.AppointmentLog, error) {
	var recs []model.AppointmentLog
	err := s.db.WithContext(ctx).
		Where("unique_appointment_id = ?", uniqueAppointmentID).
		Order("timestamp DESC, id DESC").
		Find(&recs).Error
	return recs, err
}
