package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"skirmish-server/game"
	"skirmish-server/models"
)

// MatchStore persists match records and implements game.Store.
type MatchStore struct {
	DB *gorm.DB
}

func NewMatchStore(db *gorm.DB) *MatchStore {
	return &MatchStore{DB: db}
}

// Transaction runs fn inside a database transaction. LoadMatch within it takes
// a row lock (SELECT ... FOR UPDATE) on backends that support one.
func (s *MatchStore) Transaction(ctx context.Context, fn func(tx game.Tx) error) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTx{db: tx})
	})
}

// Create inserts a new match built from state. The slug is derived from name.
func (s *MatchStore) Create(ctx context.Context, name string, state *game.MatchState) (*models.Match, error) {
	p1, err := json.Marshal(state.Player1)
	if err != nil {
		return nil, err
	}
	p2, err := json.Marshal(state.Player2)
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = "match"
	}
	row := &models.Match{
		ID:         state.ID,
		OwnerID:    state.Owner,
		Name:       name,
		Slug:       MatchSlug(name, state.ID),
		Status:     string(state.Status),
		GridWidth:  state.Grid.Width,
		GridHeight: state.Grid.Height,
		Player1:    string(p1),
		Player2:    string(p2),
	}
	if err := s.DB.WithContext(ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

// MatchSlug is the URL-friendly name plus the id prefix that keeps it unique.
func MatchSlug(name, id string) string {
	short := id
	if len(short) > 8 {
		short = short[:8]
	}
	return slug.Make(name) + "-" + short
}

// Get returns the raw record, or game.ErrMatchNotFound.
func (s *MatchStore) Get(ctx context.Context, id string) (*models.Match, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, game.ErrMatchNotFound
	}
	var row models.Match
	if err := s.DB.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, game.ErrMatchNotFound
		}
		return nil, err
	}
	return &row, nil
}

func (s *MatchStore) State(ctx context.Context, id string) (*game.MatchState, error) {
	row, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return toState(row)
}

// ListIdle returns ids of in-progress matches with no activity since cutoff.
func (s *MatchStore) ListIdle(ctx context.Context, cutoff time.Time, limit int) ([]string, error) {
	var ids []string
	err := s.DB.WithContext(ctx).Model(&models.Match{}).
		Where("status = ? AND (last_activity_at IS NULL OR last_activity_at < ?)", string(game.StatusInProgress), cutoff).
		Order("last_activity_at ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	return ids, err
}

// ListUnarchived returns completed matches not yet exported that have failed
// fewer than maxAttempts times, least-tried first.
func (s *MatchStore) ListUnarchived(ctx context.Context, limit, maxAttempts int) ([]models.Match, error) {
	var rows []models.Match
	err := s.DB.WithContext(ctx).
		Where("status = ? AND archived_at IS NULL AND archive_attempts < ?", string(game.StatusCompleted), maxAttempts).
		Order("archive_attempts ASC, updated_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// RecordArchiveFailure counts a failed export so the match yields its place in
// the next batch.
func (s *MatchStore) RecordArchiveFailure(ctx context.Context, id string) error {
	res := s.DB.WithContext(ctx).Model(&models.Match{}).
		Where("id = ?", id).
		Update("archive_attempts", gorm.Expr("archive_attempts + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return game.ErrMatchNotFound
	}
	return nil
}

func (s *MatchStore) MarkArchived(ctx context.Context, id, url string, at time.Time) error {
	res := s.DB.WithContext(ctx).Model(&models.Match{}).
		Where("id = ?", id).
		Updates(map[string]any{"archived_at": at, "archive_url": url})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return game.ErrMatchNotFound
	}
	return nil
}

type gormTx struct {
	db *gorm.DB
}

func (t *gormTx) LoadMatch(id string) (*game.MatchState, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, game.ErrMatchNotFound
	}
	var row models.Match
	err := t.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&row, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, game.ErrMatchNotFound
		}
		return nil, err
	}
	return toState(&row)
}

func (t *gormTx) SaveMatch(state *game.MatchState) error {
	cols, err := stateColumns(state)
	if err != nil {
		return fmt.Errorf("encode match %s: %w", state.ID, err)
	}
	res := t.db.Model(&models.Match{}).Where("id = ?", state.ID).Updates(cols)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return game.ErrMatchNotFound
	}
	return nil
}

func (t *gormTx) AppendMeta(matchID, key string, value any) error {
	return appendMeta(t.db, matchID, key, value)
}
