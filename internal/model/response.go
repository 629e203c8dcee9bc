package model

import "time"

// Response is one archived snapshot of the upstream visa-list payload.
// Rows are immutable once written; processing state lives in ProcessedResponse.
type Response struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Timestamp time.Time `gorm:"not null;index" json:"timestamp"`
	Response  string    `gorm:"type:text;not null" json:"response"`
}

// ProcessedResponse marks a Response as fully run through identity
// resolution and observation logging. A snapshot without a marker is
// backlog and will be picked up by the reprocessing pass.
type ProcessedResponse struct {
	ResponseID  int64     `gorm:"primaryKey;autoIncrement:false" json:"response_id"`
	Timestamp   time.Time `gorm:"not null" json:"timestamp"`
	ProcessedAt time.Time `gorm:"not null" json:"processed_at"`

	// Associations
	Response Response `gorm:"foreignKey:ResponseID;constraint:OnDelete:CASCADE" json:"-"`
}
