package model

import "time"

// LogEntry is a human-readable audit line written once per check cycle
// and for notable cycle events.
type LogEntry struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Timestamp time.Time `gorm:"not null;index" json:"timestamp"`
	Message   string    `gorm:"type:text;not null" json:"message"`
}

// TableName keeps the historical table name.
func (LogEntry) TableName() string { return "logs" }

// AppointmentMessage records the formatted alert text for each dispatched
// appointment notification.
type AppointmentMessage struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Timestamp time.Time `gorm:"not null;index" json:"timestamp"`
	Message   string    `gorm:"type:text;not null" json:"message"`
}

// TableName keeps the historical table name.
func (AppointmentMessage) TableName() string { return "appointments" }

// ErrorLog is an append-only diagnostic trail. It is written to the primary
// store only and never drives control flow.
type ErrorLog struct {
	ID             int64     `gorm:"primaryKey" json:"id"`
	ErrorMessage   string    `gorm:"type:text;not null" json:"error_message"`
	SourceFunction string    `gorm:"size:128;not null" json:"source_function"`
	AdditionalData string    `gorm:"type:text" json:"additional_data"`
	CreatedAt      time.Time `gorm:"not null" json:"created_at"`
}
