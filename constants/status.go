package constants

// ReportType is the polarity of a report: an item someone lost, or an item
// someone found.
type ReportType string

// Stable values (store these exact strings in DB).
const (
	ReportTypeLost  ReportType = "LOST"
	ReportTypeFound ReportType = "FOUND"
)

// Opposite returns the other polarity; match candidates are always drawn
// from the opposite side.
func (t ReportType) Opposite() ReportType {
	if t == ReportTypeLost {
		return ReportTypeFound
	}
	return ReportTypeLost
}

// ReportStatus is the canonical lifecycle status for rows in reports.
type ReportStatus string

// Stable values (store these exact strings in DB).
const (
	ReportStatusOpen     ReportStatus = "OPEN"     // visible, matchable
	ReportStatusResolved ReportStatus = "RESOLVED" // terminal; transition is one-way
)
