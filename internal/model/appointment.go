package model

import "time"

// UniqueAppointment is the canonical identity for a distinct
// (visa type, center, categories, source, mission, booking link)
// combination. Rows are created lazily on first sighting and never
// updated or deleted afterwards; the 7-column index enforces that at
// most one row exists per tuple.
type UniqueAppointment struct {
	ID              int64  `gorm:"primaryKey" json:"id"`
	VisaTypeID      string `gorm:"size:64;not null;uniqueIndex:idx_unique_appointment_tuple" json:"visa_type_id"`
	CenterName      string `gorm:"size:256;not null;uniqueIndex:idx_unique_appointment_tuple" json:"center_name"`
	VisaCategory    string `gorm:"size:128;not null;uniqueIndex:idx_unique_appointment_tuple" json:"visa_category"`
	VisaSubcategory string `gorm:"size:128;not null;uniqueIndex:idx_unique_appointment_tuple" json:"visa_subcategory"`
	SourceCountry   string `gorm:"size:128;not null;uniqueIndex:idx_unique_appointment_tuple" json:"source_country"`
	MissionCountry  string `gorm:"size:128;not null;uniqueIndex:idx_unique_appointment_tuple" json:"mission_country"`
	BookNowLink     string `gorm:"size:512;not null;uniqueIndex:idx_unique_appointment_tuple" json:"book_now_link"`
	CreatedAt       time.Time `json:"created_at"`

	// Associations
	Logs          []AppointmentLog    `gorm:"foreignKey:UniqueAppointmentID" json:"-"`
	Subscriptions []*PushSubscription `gorm:"many2many:subscription_appointment_mapping;" json:"-"`
}

// AppointmentLog is one timestamped observation of an identity's current
// appointment date and interest count. AppointmentDate and LastChecked use
// the empty string for "absent" so the 5-column uniqueness index dedupes
// identically on both store engines.
type AppointmentLog struct {
	ID                  int64     `gorm:"primaryKey" json:"id"`
	UniqueAppointmentID int64     `gorm:"not null;index;uniqueIndex:idx_appointment_log_obs" json:"unique_appointment_id"`
	Timestamp           time.Time `gorm:"not null;uniqueIndex:idx_appointment_log_obs" json:"timestamp"`
	AppointmentDate     string    `gorm:"size:64;not null;default:'';uniqueIndex:idx_appointment_log_obs" json:"appointment_date"`
	PeopleLooking       int       `gorm:"not null;uniqueIndex:idx_appointment_log_obs" json:"people_looking"`
	LastChecked         string    `gorm:"size:64;not null;default:'';uniqueIndex:idx_appointment_log_obs" json:"last_checked"`

	// Associations
	UniqueAppointment UniqueAppointment `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}
