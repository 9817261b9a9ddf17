package domain

import "time"

// TeamMember is a roster entry of a project
type TeamMember struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	Role   Role   `json:"role"`
	Name   string `json:"name"`
	Email  string `json:"email,omitempty"`
}

// Invitation is a not-yet-accepted roster invitation
type Invitation struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// Contract is a contract record attached to a project
type Contract struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Party     string    `json:"party"`
	Amount    float64   `json:"amount"`
	SignedAt  time.Time `json:"signed_at"`
	CreatedAt time.Time `json:"created_at"`
}

// FinancialSummary holds project-level financial fields read alongside the
// citation collection.
type FinancialSummary struct {
	Total     float64    `json:"total"`
	Currency  string     `json:"currency"`
	TargetEnd *time.Time `json:"target_end,omitempty"`
}

// Profile holds loosely-typed project profile fields. The trade value here
// feeds TRADE_SELECTION synthesis.
type Profile struct {
	Trade   string `json:"trade"`
	Address string `json:"address"`
}

// ProjectSource is everything one primary read returns for a project: the
// raw citation records plus the related entities synthesis consults.
type ProjectSource struct {
	ProjectID   string
	RawRecords  []RawRecord
	Financial   *FinancialSummary
	Profile     *Profile
	Tasks       []*Task
	Members     []*TeamMember
	Invitations []*Invitation
	Contracts   []*Contract
}

// RawRecord is one heterogeneous record as read from storage, either
// already-canonical or legacy-shaped.
type RawRecord map[string]interface{}

// WeatherReport is the payload of a live weather fetch
type WeatherReport struct {
	Current  string         `json:"current"`
	Forecast []WeatherDay   `json:"forecast,omitempty"`
	Alerts   []WeatherAlert `json:"alerts,omitempty"`
}

// WeatherDay is one forecast day
type WeatherDay struct {
	Date time.Time `json:"date"`
	High float64   `json:"high"`
	Low  float64   `json:"low"`
	Text string    `json:"text"`
}

// WeatherAlert is an active weather warning for the site address
type WeatherAlert struct {
	Headline string    `json:"headline"`
	Severity string    `json:"severity"`
	Expires  time.Time `json:"expires"`
}
