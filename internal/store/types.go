package store

import "time"

// Entry is a single decoded element of the upstream visa-list payload.
type Entry struct {
	VisaTypeID      string  `json:"visa_type_id"`
	CenterName      string  `json:"center_name"`
	BookNowLink     string  `json:"book_now_link"`
	VisaCategory    string  `json:"visa_category"`
	VisaSubcategory string  `json:"visa_subcategory"`
	SourceCountry   string  `json:"source_country"`
	MissionCountry  string  `json:"mission_country"`
	AppointmentDate *string `json:"appointment_date"`
	PeopleLooking   int     `json:"people_looking"`
	LastChecked     *string `json:"last_checked"`
}

// Valid reports whether the entry carries the three fields that anchor an
// appointment identity. Entries failing this check are skipped entirely.
func (e Entry) Valid() bool {
	return e.VisaTypeID != "" && e.CenterName != "" && e.BookNowLink != ""
}

// Identity is the canonical 7-tuple an entry resolves to. Optional fields
// default to "Unknown" when the provider omits them.
type Identity struct {
	VisaTypeID      string
	CenterName      string
	BookNowLink     string
	VisaCategory    string
	VisaSubcategory string
	SourceCountry   string
	MissionCountry  string
}

const unknownValue = "Unknown"

// Identity derives the canonical tuple from the entry.
func (e Entry) Identity() Identity {
	return Identity{
		VisaTypeID:      e.VisaTypeID,
		CenterName:      e.CenterName,
		BookNowLink:     e.BookNowLink,
		VisaCategory:    orUnknown(e.VisaCategory),
		VisaSubcategory: orUnknown(e.VisaSubcategory),
		SourceCountry:   orUnknown(e.SourceCountry),
		MissionCountry:  orUnknown(e.MissionCountry),
	}
}

func orUnknown(s string) string {
	if s == "" {
		return unknownValue
	}
	return s
}

// Observation is one reading of an identity's state at a point in time.
// AppointmentDate and LastChecked use the empty string for "absent".
type Observation struct {
	UniqueAppointmentID int64
	Timestamp           time.Time
	AppointmentDate     string
	PeopleLooking       int
	LastChecked         string
}

// JoinedObservation is the UniqueAppointment ⨝ AppointmentLog view used to
// build notification payloads and the dashboard's latest-state endpoint.
type JoinedObservation struct {
	UniqueAppointmentID int64     `json:"unique_appointment_id"`
	VisaTypeID          string    `json:"visa_type_id"`
	CenterName          string    `json:"center_name"`
	VisaCategory        string    `json:"visa_category"`
	VisaSubcategory     string    `json:"visa_subcategory"`
	SourceCountry       string    `json:"source_country"`
	MissionCountry      string    `json:"mission_country"`
	BookNowLink         string    `json:"book_now_link"`
	LogID               int64     `json:"log_id"`
	Timestamp           time.Time `json:"timestamp"`
	AppointmentDate     string    `json:"appointment_date"`
	PeopleLooking       int       `json:"people_looking"`
	LastChecked         string    `json:"last_checked"`
}
