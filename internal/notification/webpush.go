package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"visa-appointment-backend/internal/model"
)

// PushTransport abstracts the web push HTTP call for testing.
type PushTransport interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// webPushTransport is the real transport backed by the webpush library.
type webPushTransport struct{}

func (webPushTransport) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// WebPushSender fans a notification out to every browser subscribed to the
// appointment identity. Expired subscriptions (HTTP 410) are removed.
type WebPushSender struct {
	db        *gorm.DB
	options   *webpush.Options
	transport PushTransport
	log       zerolog.Logger
}

// NewWebPushSender creates the web push channel over the given database.
func NewWebPushSender(db *gorm.DB, options *webpush.Options, log zerolog.Logger) *WebPushSender {
	return &WebPushSender{
		db:        db,
		options:   options,
		transport: webPushTransport{},
		log:       log,
	}
}

// SetTransport replaces the push transport; used by tests.
func (w *WebPushSender) SetTransport(t PushTransport) { w.transport = t }

// Send delivers the notification to each subscriber of the identity.
func (w *WebPushSender) Send(ctx context.Context, n Notification) error {
	var subscriptions []model.PushSubscription
	err := w.db.WithContext(ctx).
		Joins("JOIN subscription_appointment_mapping sam ON sam.push_subscription_endpoint = push_subscriptions.endpoint").
		Where("sam.unique_appointment_id = ?", n.UniqueAppointmentID).
		Find(&subscriptions).Error
	if err != nil {
		return fmt.Errorf("failed to fetch subscriptions: %w", err)
	}
	if len(subscriptions) == 0 {
		return nil
	}

	payload, err := json.Marshal(map[string]string{
		"title":   n.Title,
		"message": n.Message,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal push payload: %w", err)
	}

	for _, sub := range subscriptions {
		w.sendOne(ctx, sub, payload)
	}
	return nil
}

func (w *WebPushSender) sendOne(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := w.transport.Send(payload, wpSub, w.options)
	if err != nil {
		w.log.Error().Err(err).Str("endpoint", sub.Endpoint).Msg("web push send failed")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		w.log.Info().Str("endpoint", sub.Endpoint).Msg("subscription expired, deleting")
		if err := w.db.WithContext(ctx).Delete(&sub).Error; err != nil {
			w.log.Error().Err(err).Str("endpoint", sub.Endpoint).Msg("failed to delete expired subscription")
		}
	}
}
