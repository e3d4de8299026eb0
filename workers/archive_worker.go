package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"skirmish-server/game"
	"skirmish-server/logging"
	"skirmish-server/models"
	"skirmish-server/store"
)

// Uploader stores an object and returns where it can be fetched.
type Uploader interface {
	Upload(ctx context.Context, key string, body []byte, contentType string) (string, error)
}

// MatchArchive is the exported document for a completed match.
type MatchArchive struct {
	MatchID    string            `json:"uuid"`
	Name       string            `json:"name"`
	Winner     string            `json:"winner"`
	Turns      []game.TurnResult `json:"turns"`
	ArchivedAt time.Time         `json:"archived_at"`
}

// ArchiveWorker exports the turn history of completed matches to object storage.
type ArchiveWorker struct {
	Matches     *store.MatchStore
	Meta        *store.MetaStore
	Uploader    Uploader
	BatchSize   int
	MaxAttempts int // failed exports before a match is skipped

	now func() time.Time
}

func NewArchiveWorker(matches *store.MatchStore, meta *store.MetaStore, uploader Uploader) *ArchiveWorker {
	return &ArchiveWorker{
		Matches:     matches,
		Meta:        meta,
		Uploader:    uploader,
		BatchSize:   20,
		MaxAttempts: 5,
		now:         time.Now,
	}
}

func ArchiveKey(matchID string) string {
	return fmt.Sprintf("matches/%s/turns.json", matchID)
}

// RunOnce archives one batch and returns the number of matches exported.
// A failed match stays unarchived with its attempt count raised, so later runs
// retry it behind untried matches until MaxAttempts is reached.
func (w *ArchiveWorker) RunOnce(ctx context.Context) (int, error) {
	rows, err := w.Matches.ListUnarchived(ctx, w.BatchSize, w.MaxAttempts)
	if err != nil {
		return 0, fmt.Errorf("list unarchived matches: %w", err)
	}

	archived := 0
	for _, row := range rows {
		if err := w.archive(ctx, &row); err != nil {
			logging.Error("failed to archive match",
				zap.String("match_id", row.ID),
				zap.Int("attempt", row.ArchiveAttempts+1),
				zap.Error(err),
			)
			if err := w.Matches.RecordArchiveFailure(ctx, row.ID); err != nil {
				logging.Error("failed to record archive failure", zap.String("match_id", row.ID), zap.Error(err))
			}
			continue
		}
		archived++
	}
	return archived, nil
}

func (w *ArchiveWorker) archive(ctx context.Context, row *models.Match) error {
	turns, err := w.Meta.Turns(ctx, row.ID)
	if err != nil {
		return fmt.Errorf("load turns: %w", err)
	}

	now := w.now().UTC()
	body, err := json.Marshal(MatchArchive{
		MatchID:    row.ID,
		Name:       row.Name,
		Winner:     row.Winner,
		Turns:      turns,
		ArchivedAt: now,
	})
	if err != nil {
		return fmt.Errorf("encode archive: %w", err)
	}

	url, err := w.Uploader.Upload(ctx, ArchiveKey(row.ID), body, "application/json")
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	if err := w.Matches.MarkArchived(ctx, row.ID, url, now); err != nil {
		return fmt.Errorf("mark archived: %w", err)
	}
	return nil
}

// PollArchive runs the worker every interval until ctx is cancelled.
func PollArchive(ctx context.Context, w *ArchiveWorker, interval time.Duration) {
	logging.Info("starting match archive polling", zap.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Info("match archive polling stopped")
			return
		case <-ticker.C:
			n, err := w.RunOnce(ctx)
			if err != nil {
				logging.Error("archive run failed", zap.Error(err))
				continue
			}
			if n > 0 {
				logging.Info("archived matches", zap.Int("count", n))
			}
		}
	}
}
