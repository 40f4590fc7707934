package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/foundly-app/foundly/constants"
)

// Report represents a lost-or-found item report for data transfer between layers.
type Report struct {
	ID          uuid.UUID              `json:"id"`
	Type        constants.ReportType   `json:"type"`
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	Summary     string                 `json:"summary,omitempty"`
	Category    constants.Category     `json:"category"`
	Specs       map[string]string      `json:"specs,omitempty"`
	Location    string                 `json:"location"`
	Date        time.Time              `json:"date"`
	TimeOfDay   string                 `json:"time_of_day,omitempty"`
	ImageURLs   []string               `json:"image_urls"`
	Tags        []string               `json:"tags,omitempty"`
	Status      constants.ReportStatus `json:"status"`
	UserID      string                 `json:"user_id"`
	UserName    string                 `json:"user_name"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// IsOpen reports whether the report is still matchable.
func (r *Report) IsOpen() bool {
	return r.Status == constants.ReportStatusOpen
}
