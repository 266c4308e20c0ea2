package domain

import "time"

// Menu is the current position of a USSD caller in the menu tree.
type Menu string

const (
	MenuLanguage       Menu = "language"
	MenuMain           Menu = "main"
	MenuChat           Menu = "chat"
	MenuReportPhone    Menu = "report_phone"
	MenuReportLocation Menu = "report_location"
	MenuReportType     Menu = "report_type"
)

const (
	LanguageEnglish   = "en"
	LanguageKiswahili = "sw"
)

// UssdSession is the ephemeral per-call state keyed by the gateway session id.
// It lives only until an END response or the idle TTL, never in the database.
type UssdSession struct {
	ID          string     `json:"id"`
	PhoneNumber string     `json:"phone_number"`
	Menu        Menu       `json:"menu"`
	Language    string     `json:"language"`
	Report      ReportData `json:"report"`
}

// ReportData accumulates the case-report answers across menu steps.
type ReportData struct {
	Phone    string `json:"phone,omitempty"`
	Location string `json:"location,omitempty"`
	Type     string `json:"type,omitempty"`
}

// CaseReport is the completed report handed to the notifier once the caller
// finishes the report flow.
type CaseReport struct {
	SessionID    string    `json:"session_id"`
	PhoneNumber  string    `json:"phone_number"`
	ContactPhone string    `json:"contact_phone"`
	Location     string    `json:"location"`
	AbuseType    string    `json:"abuse_type"`
	Language     string    `json:"language"`
	ReportedAt   time.Time `json:"reported_at"`
}
