package archive

import "time"

// RangeQuery binds the end time window of an archive listing
type RangeQuery struct {
	From   time.Time `form:"from" binding:"required" time_format:"2006-01-02T15:04:05Z07:00"`
	To     time.Time `form:"to" binding:"required" time_format:"2006-01-02T15:04:05Z07:00"`
	Cursor int64     `form:"cursor" binding:"gte=0"`
	Limit  int       `form:"limit" binding:"gte=0"`
}

// ExportRequest selects the archived markets that ended before a cut-off
type ExportRequest struct {
	Before time.Time `json:"before" binding:"required"`
}

// ExportResult describes one written export object
type ExportResult struct {
	Path    string    `json:"path"`
	Markets int       `json:"markets"`
	Bytes   int       `json:"bytes"`
	Before  time.Time `json:"before"`
}
