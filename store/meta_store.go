package store

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/gorm"

	"skirmish-server/game"
	"skirmish-server/models"
)

// MetaStore is the append-only (match_id, key) -> ordered values table.
type MetaStore struct {
	DB *gorm.DB
}

func NewMetaStore(db *gorm.DB) *MetaStore {
	return &MetaStore{DB: db}
}

func (s *MetaStore) Append(ctx context.Context, matchID, key string, value any) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return appendMeta(tx, matchID, key, value)
	})
}

// Get returns the values under key in insertion order.
func (s *MetaStore) Get(ctx context.Context, matchID, key string) ([]json.RawMessage, error) {
	var rows []models.MatchMeta
	err := s.DB.WithContext(ctx).
		Where("match_id = ? AND meta_key = ?", matchID, key).
		Order("seq ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]json.RawMessage, len(rows))
	for i, r := range rows {
		out[i] = json.RawMessage(r.Value)
	}
	return out, nil
}

// Turns decodes the TurnResult sequence of a match.
func (s *MetaStore) Turns(ctx context.Context, matchID string) ([]game.TurnResult, error) {
	raw, err := s.Get(ctx, matchID, game.TurnsKey)
	if err != nil {
		return nil, err
	}
	turns := make([]game.TurnResult, len(raw))
	for i, r := range raw {
		if err := json.Unmarshal(r, &turns[i]); err != nil {
			return nil, fmt.Errorf("decode turn %d of %s: %w", i+1, matchID, err)
		}
	}
	return turns, nil
}

func appendMeta(tx *gorm.DB, matchID, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s value: %w", key, err)
	}

	var seq int
	if err := tx.Model(&models.MatchMeta{}).
		Where("match_id = ? AND meta_key = ?", matchID, key).
		Select("COALESCE(MAX(seq), 0)").
		Row().Scan(&seq); err != nil {
		return err
	}

	return tx.Create(&models.MatchMeta{
		MatchID: matchID,
		Key:     key,
		Seq:     seq + 1,
		Value:   string(raw),
	}).Error
}
