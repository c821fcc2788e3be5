package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ArchiveEntry marks a terminal market as archived, one way
type ArchiveEntry struct {
	Seq        int64       `gorm:"primaryKey;autoIncrement" json:"seq"`
	MarketID   string      `gorm:"type:varchar(32);not null;uniqueIndex" json:"market_id"`
	ArchivedAt time.Time   `gorm:"type:timestamptz;not null;index" json:"archived_at"`
	State      MarketState `gorm:"type:varchar(20);not null;index" json:"state"`
	Category   string      `gorm:"type:varchar(100);index" json:"category,omitempty"`
	EndTime    time.Time   `gorm:"type:timestamptz;not null;index" json:"end_time"`
}

// TableName specifies the table name for ArchiveEntry model
func (*ArchiveEntry) TableName() string {
	return "market_archive"
}

// PublicMarket is the metadata-only view of an archived market. It carries
// no per-user stakes, votes or addresses.
type PublicMarket struct {
	ID               string           `json:"id"`
	Question         string           `json:"question"`
	Outcomes         []string         `json:"outcomes"`
	EndTime          time.Time        `json:"end_time"`
	State            MarketState      `json:"state"`
	WinningOutcome   string           `json:"winning_outcome,omitempty"`
	ResolvedAt       *time.Time       `json:"resolved_at,omitempty"`
	ResolutionSource ResolutionSource `json:"resolution_source,omitempty"`
	Category         string           `json:"category,omitempty"`
	Tags             []string         `json:"tags,omitempty"`
	TotalStaked      decimal.Decimal  `json:"total_staked"`
	ArchivedAt       time.Time        `json:"archived_at"`
	ArchiveSeq       int64            `json:"archive_seq"`
}

// NewPublicMarket projects a market and its archive entry into the public view.
func NewPublicMarket(m *Market, e *ArchiveEntry) PublicMarket {
	return PublicMarket{
		ID:               m.ID,
		Question:         m.Question,
		Outcomes:         append([]string(nil), m.Outcomes...),
		EndTime:          m.EndTime,
		State:            m.State,
		WinningOutcome:   m.WinningOutcome,
		ResolvedAt:       m.ResolvedAt,
		ResolutionSource: m.ResolutionSource,
		Category:         m.Category,
		Tags:             append([]string(nil), m.Tags...),
		TotalStaked:      m.TotalStaked,
		ArchivedAt:       e.ArchivedAt,
		ArchiveSeq:       e.Seq,
	}
}
