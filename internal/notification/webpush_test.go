package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"visa-appointment-backend/internal/model"
)

type fakeTransport struct {
	mu       sync.Mutex
	payloads [][]byte
	statuses map[string]int // endpoint -> response status
}

func (f *fakeTransport) Send(payload []byte, sub *webpush.Subscription, _ *webpush.Options) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, payload)

	status := http.StatusCreated
	if s, ok := f.statuses[sub.Endpoint]; ok {
		status = s
	}
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewReader(nil)),
	}, nil
}

func newPushDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.UniqueAppointment{}, &model.AppointmentLog{}, &model.PushSubscription{}))
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})
	return db
}

func seedSubscription(t *testing.T, db *gorm.DB, endpoint string, ua *model.UniqueAppointment) {
	t.Helper()
	sub := model.PushSubscription{
		Endpoint:     endpoint,
		P256DH:       "p256dh-key",
		Auth:         "auth-secret",
		Appointments: []*model.UniqueAppointment{ua},
	}
	require.NoError(t, db.Create(&sub).Error)
}

func TestWebPushSender_SendsToSubscribersOfIdentity(t *testing.T) {
	db := newPushDB(t)

	ua := model.UniqueAppointment{VisaTypeID: "Tourism Visa", CenterName: "Ankara VAC", BookNowLink: "http://book/1", VisaCategory: "Schengen", VisaSubcategory: "Short Stay", SourceCountry: "Turkiye", MissionCountry: "Netherlands"}
	other := model.UniqueAppointment{VisaTypeID: "Work Visa", CenterName: "Istanbul VAC", BookNowLink: "http://book/2", VisaCategory: "Schengen", VisaSubcategory: "Long Stay", SourceCountry: "Turkiye", MissionCountry: "Germany"}
	require.NoError(t, db.Create(&ua).Error)
	require.NoError(t, db.Create(&other).Error)

	seedSubscription(t, db, "https://push.example/a", &ua)
	seedSubscription(t, db, "https://push.example/b", &other)

	transport := &fakeTransport{}
	sender := NewWebPushSender(db, &webpush.Options{}, zerolog.Nop())
	sender.SetTransport(transport)

	err := sender.Send(context.Background(), Notification{
		UniqueAppointmentID: ua.ID,
		Title:               "Appointment Found",
		Message:             "m",
	})
	require.NoError(t, err)

	require.Len(t, transport.payloads, 1, "only the identity's subscribers are notified")

	var payload map[string]string
	require.NoError(t, json.Unmarshal(transport.payloads[0], &payload))
	assert.Equal(t, "Appointment Found", payload["title"])
	assert.Equal(t, "m", payload["message"])
}

func TestWebPushSender_NoSubscribersIsNoop(t *testing.T) {
	db := newPushDB(t)
	transport := &fakeTransport{}
	sender := NewWebPushSender(db, &webpush.Options{}, zerolog.Nop())
	sender.SetTransport(transport)

	require.NoError(t, sender.Send(context.Background(), Notification{UniqueAppointmentID: 42}))
	assert.Empty(t, transport.payloads)
}

func TestWebPushSender_ExpiredSubscriptionDeleted(t *testing.T) {
	db := newPushDB(t)

	ua := model.UniqueAppointment{VisaTypeID: "Tourism Visa", CenterName: "Ankara VAC", BookNowLink: "http://book/1", VisaCategory: "Schengen", VisaSubcategory: "Short Stay", SourceCountry: "Turkiye", MissionCountry: "Netherlands"}
	require.NoError(t, db.Create(&ua).Error)
	seedSubscription(t, db, "https://push.example/gone", &ua)
	seedSubscription(t, db, "https://push.example/alive", &ua)

	transport := &fakeTransport{statuses: map[string]int{"https://push.example/gone": http.StatusGone}}
	sender := NewWebPushSender(db, &webpush.Options{}, zerolog.Nop())
	sender.SetTransport(transport)

	require.NoError(t, sender.Send(context.Background(), Notification{UniqueAppointmentID: ua.ID}))

	var remaining []model.PushSubscription
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, 1, "the 410 endpoint is removed")
	assert.Equal(t, "https://push.example/alive", remaining[0].Endpoint)
}
