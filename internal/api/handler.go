package api

import (
	"github.com/SherClockHolmes/webpush-go"
	"gorm.io/gorm"

	"visa-appointment-backend/internal/store"
)

// Handler holds shared dependencies for API handlers. Dashboard reads go
// against the mirror store; push-subscription management uses the primary
// database since subscriptions feed the notification pipeline.
type Handler struct {
	mirror  store.Store
	primary *gorm.DB
	webpush *webpush.Options
}

// NewHandler creates a new API handler.
func NewHandler(mirror store.Store, primary *gorm.DB, webpushOptions *webpush.Options) *Handler {
	return &Handler{
		mirror:  mirror,
		primary: primary,
		webpush: webpushOptions,
	}
}
