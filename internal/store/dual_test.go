package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"visa-appointment-backend/internal/model"
)

// newMockStore backs a Store with sqlmock so individual statements can be
// made to fail deterministically.
func newMockStore(t *testing.T) (Store, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	t.Cleanup(func() { sqlDB.Close() })
	return NewGormStore(db), mock
}

func TestDual_PrimaryFailureLeavesMirrorUntouched(t *testing.T) {
	primary, mock := newMockStore(t)
	mirror := NewGormStore(newTestDB(t))
	dual := NewDual(primary, mirror, zerolog.Nop())
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "responses"`)).
		WillReturnError(errors.New("connection refused"))

	_, err := dual.ArchiveResponse(ctx, `[{"visa_type_id":"A1"}]`, time.Now())
	require.Error(t, err)

	var count int64
	mirror.DB().Model(&model.Response{}).Count(&count)
	assert.Equal(t, int64(0), count, "failed primary write must not reach the mirror")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDual_MirrorFailureIsSwallowed(t *testing.T) {
	primary := NewGormStore(newTestDB(t))
	mirror, mock := newMockStore(t)
	dual := NewDual(primary, mirror, zerolog.Nop())
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "responses"`)).
		WillReturnError(errors.New("disk I/O error"))

	id, err := dual.ArchiveResponse(ctx, `[{"visa_type_id":"A1"}]`, time.Now())
	require.NoError(t, err, "mirror failure must not surface to the caller")
	assert.NotZero(t, id)

	var responses, errorLogs int64
	primary.DB().Model(&model.Response{}).Count(&responses)
	primary.DB().Model(&model.ErrorLog{}).Count(&errorLogs)
	assert.Equal(t, int64(1), responses, "primary write stands")
	assert.Equal(t, int64(1), errorLogs, "mirror failure is recorded in the primary error trail")
}

func TestDual_DuplicateSuppressionSkipsMirror(t *testing.T) {
	primary := NewGormStore(newTestDB(t))
	mirror := NewGormStore(newTestDB(t))
	dual := NewDual(primary, mirror, zerolog.Nop())
	ctx := context.Background()

	uaID, _, err := dual.ResolveUniqueAppointment(ctx, testIdentity())
	require.NoError(t, err)

	obs := Observation{
		UniqueAppointmentID: uaID,
		Timestamp:           time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC),
		AppointmentDate:     "2025-03-01",
		PeopleLooking:       5,
	}

	_, err = dual.InsertAppointmentLog(ctx, obs)
	require.NoError(t, err)
	_, err = dual.InsertAppointmentLog(ctx, obs)
	assert.ErrorIs(t, err, ErrDuplicate)

	var primaryCount, mirrorCount int64
	primary.DB().Model(&model.AppointmentLog{}).Count(&primaryCount)
	mirror.DB().Model(&model.AppointmentLog{}).Count(&mirrorCount)
	assert.Equal(t, int64(1), primaryCount)
	assert.Equal(t, int64(1), mirrorCount, "suppressed duplicate must not be replayed into the mirror")
}

func TestDual_MirrorReusesPrimaryIDs(t *testing.T) {
	primary := NewGormStore(newTestDB(t))
	mirror := NewGormStore(newTestDB(t))
	dual := NewDual(primary, mirror, zerolog.Nop())
	ctx := context.Background()

	// Skew the primary's autoincrement so a mirror-local assignment would
	// be detectable.
	other := testIdentity()
	other.BookNowLink = "http://x/other"
	_, _, err := primary.ResolveUniqueAppointment(ctx, other)
	require.NoError(t, err)

	uaID, created, err := dual.ResolveUniqueAppointment(ctx, testIdentity())
	require.NoError(t, err)
	assert.True(t, created)

	var mirrored model.UniqueAppointment
	require.NoError(t, mirror.DB().First(&mirrored, uaID).Error)
	assert.Equal(t, uaID, mirrored.ID)
	assert.Equal(t, "Berlin", mirrored.CenterName)

	var mirrorCount int64
	mirror.DB().Model(&model.UniqueAppointment{}).Count(&mirrorCount)
	assert.Equal(t, int64(1), mirrorCount, "only the dual-written row exists in the mirror")
}

func TestDual_PruneMirrorLeavesPrimary(t *testing.T) {
	primary := NewGormStore(newTestDB(t))
	mirror := NewGormStore(newTestDB(t))
	dual := NewDual(primary, mirror, zerolog.Nop())
	ctx := context.Background()

	uaID, _, err := dual.ResolveUniqueAppointment(ctx, testIdentity())
	require.NoError(t, err)

	old := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err = dual.InsertAppointmentLog(ctx, Observation{UniqueAppointmentID: uaID, Timestamp: old, PeopleLooking: 1})
	require.NoError(t, err)

	pruned, err := dual.PruneMirror(ctx, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, int64(1), pruned)

	var primaryCount, mirrorCount int64
	primary.DB().Model(&model.AppointmentLog{}).Count(&primaryCount)
	mirror.DB().Model(&model.AppointmentLog{}).Count(&mirrorCount)
	assert.Equal(t, int64(1), primaryCount, "retention never touches the primary")
	assert.Equal(t, int64(0), mirrorCount)
}
