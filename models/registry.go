package models

import "time"

// RegistryEntry is one append-only record of a generated market id
type RegistryEntry struct {
	Seq       int64     `gorm:"primaryKey;autoIncrement" json:"seq"`
	MarketID  string    `gorm:"type:varchar(32);not null;uniqueIndex" json:"market_id"`
	Creator   string    `gorm:"type:varchar(128);not null;index" json:"creator"`
	CreatedAt time.Time `gorm:"type:timestamptz;not null" json:"created_at"`
}

// TableName specifies the table name for RegistryEntry model
func (*RegistryEntry) TableName() string {
	return "market_registry"
}

// CreatorCounter tracks the last counter value used for a creator's ids
type CreatorCounter struct {
	Creator   string    `gorm:"type:varchar(128);primaryKey" json:"creator"`
	Counter   int64     `gorm:"not null;default:0" json:"counter"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for CreatorCounter model
func (*CreatorCounter) TableName() string {
	return "creator_counters"
}

// Page is one cursor-bounded slice of a listing
type Page[T any] struct {
	Items      []T   `json:"items"`
	NextCursor int64 `json:"next_cursor"`
	HasMore    bool  `json:"has_more"`
}

// ClampLimit bounds a requested page size to [1, max].
func ClampLimit(limit, max int) int {
	if limit <= 0 || limit > max {
		return max
	}
	return limit
}

// NewPage builds a page from up to limit+1 fetched items; cursorOf extracts
// the cursor of an item.
func NewPage[T any](items []T, limit int, cursorOf func(T) int64) Page[T] {
	page := Page[T]{Items: items}
	if len(items) > limit {
		page.Items = items[:limit]
		page.HasMore = true
	}
	if page.Items == nil {
		page.Items = []T{}
	}
	if n := len(page.Items); n > 0 {
		page.NextCursor = cursorOf(page.Items[n-1])
	}
	return page
}
