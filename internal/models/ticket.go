package models

import (
	"math"
	"strconv"
	"time"

	apperrors "github.com/opencivic/civictriage/internal/errors"
)

// Category enumerates the kinds of civic issues citizens can report
type Category string

const (
	CategoryPothole       Category = "Pothole"
	CategoryStreetlight   Category = "Streetlight"
	CategoryGarbage       Category = "Garbage"
	CategoryWaterLeak     Category = "WaterLeak"
	CategoryDrainage      Category = "Drainage"
	CategorySidewalk      Category = "Sidewalk"
	CategoryTrafficSignal Category = "TrafficSignal"
	CategorySigns         Category = "Signs"
	CategoryParkEquipment Category = "ParkEquipment"
	CategoryFallenTree    Category = "FallenTree"
	CategoryEncroachment  Category = "Encroachment"
	CategoryOthers        Category = "Others"
)

// Categories lists every category in stable table order. Triage scoring and
// tie-breaking iterate this slice, so the order must not change.
var Categories = []Category{
	CategoryPothole,
	CategoryStreetlight,
	CategoryGarbage,
	CategoryWaterLeak,
	CategoryDrainage,
	CategorySidewalk,
	CategoryTrafficSignal,
	CategorySigns,
	CategoryParkEquipment,
	CategoryFallenTree,
	CategoryEncroachment,
	CategoryOthers,
}

// Valid reports whether c is a known category
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// TicketStatus enumerates the ticket lifecycle states
type TicketStatus string

const (
	StatusSubmitted    TicketStatus = "Submitted"
	StatusAcknowledged TicketStatus = "Acknowledged"
	StatusInProgress   TicketStatus = "In-Progress"
	StatusResolved     TicketStatus = "Resolved"
)

// Valid reports whether s is a known status
func (s TicketStatus) Valid() bool {
	switch s {
	case StatusSubmitted, StatusAcknowledged, StatusInProgress, StatusResolved:
		return true
	}
	return false
}

// Severity is the urgency of an issue, 1 (Low) through 5 (Critical)
type Severity int

const (
	SeverityMin Severity = 1
	SeverityMax Severity = 5
)

// Valid reports whether v is within the severity scale
func (v Severity) Valid() bool {
	return v >= SeverityMin && v <= SeverityMax
}

// Clamp forces v into the [1,5] scale
func (v Severity) Clamp() Severity {
	if v < SeverityMin {
		return SeverityMin
	}
	if v > SeverityMax {
		return SeverityMax
	}
	return v
}

// GeoLocation is a WGS84 coordinate pair in decimal degrees
type GeoLocation struct {
	Lat float64 `json:"lat" db:"latitude"`
	Lng float64 `json:"lng" db:"longitude"`
}

// Valid reports whether the coordinates are finite and within range
func (g GeoLocation) Valid() bool {
	if math.IsNaN(g.Lat) || math.IsInf(g.Lat, 0) || math.IsNaN(g.Lng) || math.IsInf(g.Lng, 0) {
		return false
	}
	return g.Lat >= -90 && g.Lat <= 90 && g.Lng >= -180 && g.Lng <= 180
}

// MediaType distinguishes attachment kinds
type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
)

// Media is an attachment on a report or ticket
type Media struct {
	ID    string    `json:"id"`
	URI   string    `json:"uri"`
	Type  MediaType `json:"type"`
	Size  int64     `json:"size"`
	PHash string    `json:"phash,omitempty"`
}

// Ticket is a stored civic-issue record
type Ticket struct {
	ID          string       `json:"id" db:"id"`
	ReporterID  string       `json:"reporter_id" db:"reporter_id"`
	Title       string       `json:"title" db:"title"`
	Description string       `json:"description" db:"description"`
	Category    Category     `json:"category" db:"category"`
	Severity    Severity     `json:"severity" db:"severity"`
	Status      TicketStatus `json:"status" db:"status"`
	Department  string       `json:"department,omitempty" db:"department"`
	ETA         string       `json:"eta,omitempty" db:"eta"`
	Geo         *GeoLocation `json:"geo,omitempty"`
	Media       []Media      `json:"media,omitempty"`
	DuplicateOf string       `json:"duplicate_of,omitempty" db:"duplicate_of"`
	CreatedAt   time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at" db:"updated_at"`
}

// Report is the partial issue payload that flows into triage and dedupe.
// Optional fields are pointers; the engines substitute documented defaults.
type Report struct {
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	CategoryHint *Category    `json:"category_hint,omitempty"`
	SeverityHint *Severity    `json:"severity_hint,omitempty"`
	Geo          *GeoLocation `json:"geo,omitempty"`
	Media        []Media      `json:"media,omitempty"`
	CreatedAt    time.Time    `json:"created_at,omitempty"`
}

// Validate checks the report at the service boundary. The engines themselves
// are total over validated input and never return errors.
func (r Report) Validate() error {
	var errs apperrors.MultiError
	if r.CategoryHint != nil && !r.CategoryHint.Valid() {
		errs.Add(apperrors.ValidationError{Field: "category_hint", Message: "unknown category"})
	}
	if r.SeverityHint != nil && !r.SeverityHint.Valid() {
		errs.Add(apperrors.ValidationError{Field: "severity_hint", Message: "severity must be between 1 and 5"})
	}
	if r.Geo != nil && !r.Geo.Valid() {
		errs.Add(apperrors.ValidationError{Field: "geo", Message: "coordinates out of range"})
	}
	for i, m := range r.Media {
		if m.Type != MediaImage && m.Type != MediaVideo {
			errs.Add(apperrors.ValidationError{Field: "media", Message: "unknown media type at index " + strconv.Itoa(i)})
		}
	}
	if errs.HasErrors() {
		return errs
	}
	return nil
}

// TriageResult is the outcome of classifying a report
type TriageResult struct {
	Category      Category `json:"category"`
	Severity      Severity `json:"severity"`
	Department    string   `json:"department"`
	ETA           string   `json:"eta"`
	Confidence    float64  `json:"confidence"`
	PriorityScore int      `json:"priority_score"`
	Reasoning     string   `json:"reasoning,omitempty"`
}

// SuggestedAction tells the caller what to do with a dedupe verdict
type SuggestedAction string

const (
	ActionMerge  SuggestedAction = "merge"
	ActionLink   SuggestedAction = "link"
	ActionIgnore SuggestedAction = "ignore"
)

// DedupeResult is the outcome of duplicate detection
type DedupeResult struct {
	IsDuplicate     bool            `json:"is_duplicate"`
	MasterCaseID    string          `json:"master_case_id,omitempty"`
	Similarity      float64         `json:"similarity"`
	Confidence      float64         `json:"confidence"`
	Reason          string          `json:"reason,omitempty"`
	RelatedCases    []string        `json:"related_cases,omitempty"`
	SuggestedAction SuggestedAction `json:"suggested_action,omitempty"`
}

// TicketQuery represents query parameters for filtering tickets
type TicketQuery struct {
	IDs        []string       `json:"ids"`
	Categories []Category     `json:"categories"`
	Statuses   []TicketStatus `json:"statuses"`
	ReporterID string         `json:"reporter_id"`
	Since      time.Time      `json:"since"`
	Until      time.Time      `json:"until"`
	Limit      int            `json:"limit"`
	Offset     int            `json:"offset"`
}

// Matches checks if a ticket matches the query criteria
func (q TicketQuery) Matches(t Ticket) bool {
	if len(q.IDs) > 0 && !containsString(q.IDs, t.ID) {
		return false
	}
	if len(q.Categories) > 0 && !containsCategory(q.Categories, t.Category) {
		return false
	}
	if len(q.Statuses) > 0 && !containsStatus(q.Statuses, t.Status) {
		return false
	}
	if q.ReporterID != "" && t.ReporterID != q.ReporterID {
		return false
	}
	if !q.Since.IsZero() && t.CreatedAt.Before(q.Since) {
		return false
	}
	if !q.Until.IsZero() && t.CreatedAt.After(q.Until) {
		return false
	}
	return true
}

func containsString(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

func containsCategory(slice []Category, item Category) bool {
	for _, c := range slice {
		if c == item {
			return true
		}
	}
	return false
}

func containsStatus(slice []TicketStatus, item TicketStatus) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
