package models

import "time"

// MatchMeta is one appended value in a per-match, per-key ordered sequence.
// (match_id, meta_key, seq) is unique.
type MatchMeta struct {
	ID      uint   `gorm:"primaryKey" json:"-"`
	MatchID string `gorm:"type:uuid;not null;uniqueIndex:idx_match_meta_seq,priority:1" json:"match_id"`
	Key     string `gorm:"column:meta_key;size:64;not null;uniqueIndex:idx_match_meta_seq,priority:2" json:"key"`
	Seq     int    `gorm:"not null;uniqueIndex:idx_match_meta_seq,priority:3" json:"seq"`
	Value   string `gorm:"type:jsonb;not null" json:"value"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}
