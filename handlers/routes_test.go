package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"skirmish-server/game"
	"skirmish-server/services"
	"skirmish-server/store"
)

type testServer struct {
	app   *fiber.App
	meta  *store.MetaStore
	owner string
	other string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := store.Open("sqlite://file:" + name + "?mode=memory&cache=shared")
	require.NoError(t, err)
	require.NoError(t, store.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	matches := store.NewMatchStore(db)
	meta := store.NewMetaStore(db)
	engine := game.NewEngine(matches, game.DefaultRules)
	tokens := services.NewTokenService("test-secret", "skirmish-test", time.Hour)
	auth := services.NewAuthService(store.NewUserStore(db), tokens)
	auth.HashCost = bcrypt.MinCost

	app := fiber.New()
	SetupHealthRoutes(app)
	SetupAuthRoutes(app, auth)
	SetupMatchRoutes(app, tokens, services.NewMatchService(matches, meta, engine), services.NewTurnService(engine))

	s := &testServer{app: app, meta: meta}
	s.owner = s.login(t, "owner@example.com", "owner")
	s.other = s.login(t, "other@example.com", "other")
	return s
}

func (s *testServer) do(t *testing.T, method, path, token, body string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func (s *testServer) login(t *testing.T, email, username string) string {
	t.Helper()
	status, _ := s.do(t, http.MethodPost, "/auth/register", "",
		`{"email":"`+email+`","username":"`+username+`","password":"correct-horse"}`)
	require.Equal(t, http.StatusCreated, status)

	status, body := s.do(t, http.MethodPost, "/auth/login", "",
		`{"email":"`+email+`","password":"correct-horse"}`)
	require.Equal(t, http.StatusOK, status)
	return body["access_token"].(string)
}

const newMatchBody = `{
	"name": "Scenario",
	"player_1": {"characters": [
		{"position": {"x": 1, "y": 0}, "health": {"current": 30, "max": 30}},
		{"position": {"x": 1, "y": 3}, "health": {"current": 20, "max": 20}},
		{"position": {"x": 1, "y": 6}, "health": {"current": 40, "max": 40}}
	]},
	"player_2": {"characters": [
		{"position": {"x": 14, "y": 0}, "health": {"current": 50, "max": 50}},
		{"position": {"x": 14, "y": 3}, "health": {"current": 30, "max": 30}},
		{"position": {"x": 14, "y": 6}, "health": {"current": 20, "max": 20}}
	]}
}`

const zeroMoveTurn = `{
	"player_1": {"characters": [{"action": "move"}, {"action": "move"}, {"action": "move"}]},
	"player_2": {"characters": [{"action": "move"}, {"action": "move"}, {"action": "move"}]}
}`

func (s *testServer) newMatch(t *testing.T, start bool) string {
	t.Helper()
	status, body := s.do(t, http.MethodPost, "/match/new", s.owner, newMatchBody)
	require.Equal(t, http.StatusCreated, status, body)
	id := body["uuid"].(string)
	if start {
		status, body = s.do(t, http.MethodPost, "/match/start/"+id, s.owner, "")
		require.Equal(t, http.StatusOK, status, body)
	}
	return id
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	status, body := s.do(t, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

func TestTurnUpdateScenario(t *testing.T) {
	s := newTestServer(t)
	id := s.newMatch(t, true)

	status, body := s.do(t, http.MethodPost, "/turn/update/"+id, s.owner, zeroMoveTurn)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "Turn completed.", body["message"])

	turn := body["turn"].(map[string]any)
	p2 := turn["player_2"].(map[string]any)["characters"].([]any)
	require.Len(t, p2, 3)
	first := p2[0].(map[string]any)
	assert.Equal(t, map[string]any{"x": float64(14), "y": float64(0)}, first["position"])
	assert.Equal(t, float64(50), first["health"].(map[string]any)["current"])

	turns, err := s.meta.Turns(context.Background(), id)
	require.NoError(t, err)
	assert.Len(t, turns, 1)

	status, _ = s.do(t, http.MethodPost, "/turn/update/"+id, s.owner, zeroMoveTurn)
	require.Equal(t, http.StatusOK, status)

	status, body = s.do(t, http.MethodGet, "/turn/"+id, s.owner, "")
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["turns"], 2)

	status, body = s.do(t, http.MethodGet, "/match/"+id, s.owner, "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(2), body["turn"])
	assert.Equal(t, "IN_PROGRESS", body["status"])
	assert.Equal(t, map[string]any{"width": float64(16), "height": float64(10)}, body["grid"])
	p1 := body["player_1"].(map[string]any)["characters"].([]any)
	require.Len(t, p1, 3)
	assert.Equal(t, float64(40), p1[2].(map[string]any)["health"].(map[string]any)["current"])
}

func TestTurnUpdateErrors(t *testing.T) {
	s := newTestServer(t)
	running := s.newMatch(t, true)
	pending := s.newMatch(t, false)

	tests := []struct {
		name    string
		path    string
		token   string
		body    string
		status  int
		message string
	}{
		{"missing id", "/turn/update/", s.owner, zeroMoveTurn, http.StatusNotFound, "Match not found."},
		{"unknown match without token", "/turn/update/00000000-0000-0000-0000-000000000000", "", zeroMoveTurn, http.StatusNotFound, "Match not found."},
		{"no token", "/turn/update/" + running, "", zeroMoveTurn, http.StatusUnauthorized, ""},
		{"bad token", "/turn/update/" + running, "not-a-jwt", zeroMoveTurn, http.StatusUnauthorized, ""},
		{"other owner", "/turn/update/" + running, s.other, zeroMoveTurn, http.StatusForbidden, "Cannot update matches owned by other users."},
		{"other owner on pending", "/turn/update/" + pending, s.other, zeroMoveTurn, http.StatusForbidden, "Cannot update matches owned by other users."},
		{"pending", "/turn/update/" + pending, s.owner, zeroMoveTurn, http.StatusBadRequest, "Cannot update matches that are not in progress."},
		{"malformed", "/turn/update/" + running, s.owner, `{"player_1":`, http.StatusUnprocessableEntity, ""},
		{"unknown action", "/turn/update/" + running, s.owner, strings.Replace(zeroMoveTurn, `"move"`, `"fly"`, 1), http.StatusUnprocessableEntity, ""},
		{"trailing data", "/turn/update/" + running, s.owner, zeroMoveTurn + `{"player_1": null} junk`, http.StatusUnprocessableEntity, ""},
		{"case-folded keys", "/turn/update/" + running, s.owner, strings.ReplaceAll(zeroMoveTurn, `"action"`, `"ACTION"`), http.StatusUnprocessableEntity, ""},
		{"duplicate action key", "/turn/update/" + running, s.owner, strings.Replace(zeroMoveTurn, `{"action": "move"}`, `{"action": "move", "action": "attack", "target": 0}`, 1), http.StatusUnprocessableEntity, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := s.do(t, http.MethodPost, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.status, status, body)
			if tt.message != "" {
				assert.Equal(t, tt.message, body["message"])
			}
		})
	}

	turns, err := s.meta.Turns(context.Background(), running)
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestMatchRoutes(t *testing.T) {
	s := newTestServer(t)

	status, _ := s.do(t, http.MethodPost, "/match/new", "", newMatchBody)
	assert.Equal(t, http.StatusUnauthorized, status)

	bad := strings.Replace(newMatchBody, `"current": 30, "max": 30`, `"current": 31, "max": 30`, 1)
	status, _ = s.do(t, http.MethodPost, "/match/new", s.owner, bad)
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	id := s.newMatch(t, false)

	status, body := s.do(t, http.MethodPost, "/match/start/"+id, s.other, "")
	assert.Equal(t, http.StatusForbidden, status, body)

	status, _ = s.do(t, http.MethodGet, "/match/"+id, s.other, "")
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = s.do(t, http.MethodPost, "/match/start/"+id, s.owner, "")
	assert.Equal(t, http.StatusOK, status)

	status, _ = s.do(t, http.MethodPost, "/match/start/"+id, s.owner, "")
	assert.Equal(t, http.StatusConflict, status)
}

func TestAuthRoutes(t *testing.T) {
	s := newTestServer(t)

	status, _ := s.do(t, http.MethodPost, "/auth/register", "",
		`{"email":"OWNER@example.com","username":"someone","password":"correct-horse"}`)
	assert.Equal(t, http.StatusConflict, status)

	status, _ = s.do(t, http.MethodPost, "/auth/register", "",
		`{"email":"new@example.com","username":"new","password":"short"}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = s.do(t, http.MethodPost, "/auth/login", "",
		`{"email":"owner@example.com","password":"wrong-password"}`)
	assert.Equal(t, http.StatusUnauthorized, status)
}
