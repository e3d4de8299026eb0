package models

import "time"

// Match is the persisted match record. Rosters are stored as JSON arrays of
// characters in roster order.
type Match struct {
	ID      string `gorm:"primaryKey;type:uuid" json:"id"`
	OwnerID string `gorm:"index;not null" json:"owner_id"`
	Name    string `json:"name"`
	Slug    string `gorm:"uniqueIndex;not null" json:"slug"`
	Status  string `gorm:"type:varchar(16);index;not null;default:'PENDING'" json:"status"`

	GridWidth  int `gorm:"not null" json:"grid_width"`
	GridHeight int `gorm:"not null" json:"grid_height"`

	Player1 string `gorm:"column:player_1;type:jsonb;not null" json:"player_1"`
	Player2 string `gorm:"column:player_2;type:jsonb;not null" json:"player_2"`

	Turn   int    `gorm:"default:0" json:"turn"`
	Winner string `gorm:"type:varchar(16)" json:"winner,omitempty"`

	LastActivityAt  *time.Time `gorm:"index" json:"last_activity_at,omitempty"`
	ArchivedAt      *time.Time `gorm:"index" json:"archived_at,omitempty"`
	ArchiveURL      string     `json:"archive_url,omitempty"`
	ArchiveAttempts int        `gorm:"not null;default:0" json:"-"`

	Timestamps
}
