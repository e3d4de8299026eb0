package workers

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skirmish-server/game"
	"skirmish-server/store"
)

type memUploader struct {
	objects  map[string][]byte
	fail     bool
	failKeys map[string]bool
	calls    map[string]int
}

func (m *memUploader) Upload(_ context.Context, key string, body []byte, _ string) (string, error) {
	if m.calls == nil {
		m.calls = map[string]int{}
	}
	m.calls[key]++
	if m.fail || m.failKeys[key] {
		return "", errors.New("bucket unavailable")
	}
	m.objects[key] = body
	return "https://cdn.example.com/" + key, nil
}

func TestArchiveWorkerRunOnce(t *testing.T) {
	name := strings.NewReplacer("/", "_").Replace(t.Name())
	db, err := store.Open("sqlite://file:" + name + "?mode=memory&cache=shared")
	require.NoError(t, err)
	require.NoError(t, store.Migrate(db))

	matches := store.NewMatchStore(db)
	meta := store.NewMetaStore(db)
	ctx := context.Background()
	owner := game.Identity{UserID: "owner"}

	a, _ := game.NewCharacter(game.Position{X: 0, Y: 0}, 50, 50)
	b, _ := game.NewCharacter(game.Position{X: 4, Y: 0}, 10, 50)
	rules := game.DefaultRules
	rules.RosterSize = 1
	state, err := game.NewMatchState(uuid.NewString(), owner.UserID, rules, game.Roster{a}, game.Roster{b})
	require.NoError(t, err)
	_, err = matches.Create(ctx, "short", state)
	require.NoError(t, err)

	engine := game.NewEngine(matches, rules)
	_, err = engine.StartMatch(ctx, state.ID, owner)
	require.NoError(t, err)
	_, err = engine.SubmitTurn(ctx, state.ID, owner,
		[]byte(`{"player_1": {"characters": [{"action": "attack", "target": 0}]}, "player_2": {"characters": [{"action": "wait"}]}}`))
	require.NoError(t, err)

	uploader := &memUploader{objects: map[string][]byte{}, fail: true}
	worker := NewArchiveWorker(matches, meta, uploader)

	n, err := worker.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "failed uploads are retried later")

	uploader.fail = false
	n, err = worker.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	body, ok := uploader.objects[ArchiveKey(state.ID)]
	require.True(t, ok)
	var archive MatchArchive
	require.NoError(t, json.Unmarshal(body, &archive))
	assert.Equal(t, state.ID, archive.MatchID)
	assert.Equal(t, "player_1", archive.Winner)
	assert.Len(t, archive.Turns, 1)

	row, err := matches.Get(ctx, state.ID)
	require.NoError(t, err)
	assert.NotNil(t, row.ArchivedAt)
	assert.Equal(t, "https://cdn.example.com/"+ArchiveKey(state.ID), row.ArchiveURL)

	n, err = worker.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func newArchiveStores(t *testing.T) (*store.MatchStore, *store.MetaStore) {
	t.Helper()
	name := strings.NewReplacer("/", "_").Replace(t.Name())
	db, err := store.Open("sqlite://file:" + name + "?mode=memory&cache=shared")
	require.NoError(t, err)
	require.NoError(t, store.Migrate(db))
	return store.NewMatchStore(db), store.NewMetaStore(db)
}

// finishedMatch creates a 1v1 match and plays the single winning turn.
func finishedMatch(t *testing.T, matches *store.MatchStore) string {
	t.Helper()
	ctx := context.Background()
	owner := game.Identity{UserID: "owner"}
	rules := game.DefaultRules
	rules.RosterSize = 1

	a, _ := game.NewCharacter(game.Position{X: 0, Y: 0}, 50, 50)
	b, _ := game.NewCharacter(game.Position{X: 4, Y: 0}, 10, 50)
	state, err := game.NewMatchState(uuid.NewString(), owner.UserID, rules, game.Roster{a}, game.Roster{b})
	require.NoError(t, err)
	_, err = matches.Create(ctx, "duel", state)
	require.NoError(t, err)

	engine := game.NewEngine(matches, rules)
	_, err = engine.StartMatch(ctx, state.ID, owner)
	require.NoError(t, err)
	_, err = engine.SubmitTurn(ctx, state.ID, owner,
		[]byte(`{"player_1": {"characters": [{"action": "attack", "target": 0}]}, "player_2": {"characters": [{"action": "wait"}]}}`))
	require.NoError(t, err)
	return state.ID
}

func TestArchiveWorkerSkipsRepeatedFailures(t *testing.T) {
	matches, meta := newArchiveStores(t)
	ctx := context.Background()

	broken := finishedMatch(t, matches)
	healthy := finishedMatch(t, matches)

	uploader := &memUploader{
		objects:  map[string][]byte{},
		failKeys: map[string]bool{ArchiveKey(broken): true},
	}
	worker := NewArchiveWorker(matches, meta, uploader)
	worker.BatchSize = 1
	worker.MaxAttempts = 2

	for i := 0; i < 4; i++ {
		_, err := worker.RunOnce(ctx)
		require.NoError(t, err)
	}

	assert.Contains(t, uploader.objects, ArchiveKey(healthy), "a failing match must not starve the batch")
	assert.Equal(t, 2, uploader.calls[ArchiveKey(broken)])

	row, err := matches.Get(ctx, broken)
	require.NoError(t, err)
	assert.Nil(t, row.ArchivedAt)
	assert.Equal(t, 2, row.ArchiveAttempts)

	n, err := worker.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 2, uploader.calls[ArchiveKey(broken)])
}
