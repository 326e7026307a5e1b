package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/agentdesk/admin-platform/internal/middleware"
	"github.com/agentdesk/admin-platform/internal/model"
	"github.com/agentdesk/admin-platform/internal/service"
	"github.com/agentdesk/admin-platform/internal/store"
	"github.com/agentdesk/admin-platform/pkg/logger"
)

const testSecret = "handler-test-secret"

type testEnv struct {
	router *chi.Mux
	store  *store.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	st, err := store.New(db)
	require.NoError(t, err)

	log := logger.NewNop()
	convSvc := service.NewConversationService(st, nil, log)
	h := NewConversationHandler(convSvc, log)

	r := chi.NewRouter()
	r.Route("/api/conversations", func(r chi.Router) {
		r.Use(middleware.Auth(testSecret))
		r.Get("/", h.List)
		r.Get("/search", h.Search)
		r.Get("/trash", h.ListTrash)
		r.Post("/bulk-delete", h.BulkDelete)
		r.Post("/bulk-restore", h.BulkRestore)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin)
			r.Delete("/trash/empty", h.EmptyTrash)
			r.Delete("/{id}/permanent", h.PermanentDelete)
		})

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Delete("/", h.Delete)
			r.Post("/restore", h.Restore)
		})
	})

	return &testEnv{router: r, store: st}
}

func (e *testEnv) seedUser(t *testing.T, email string, role model.Role) *model.User {
	t.Helper()
	u := &model.User{Name: "u", Email: email, PasswordHash: "x", Role: role, Active: true}
	require.NoError(t, e.store.Users.Create(context.Background(), u))
	return u
}

func (e *testEnv) seedConversation(t *testing.T, userID uint, session string) *model.Conversation {
	t.Helper()
	c := &model.Conversation{UserID: &userID, SessionID: session, Status: model.ConversationActive}
	require.NoError(t, e.store.Conversations.Create(context.Background(), c))
	return c
}

func (e *testEnv) do(t *testing.T, user *model.User, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if user != nil {
		token, err := middleware.IssueToken(testSecret, user, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestConversationEndpoints(t *testing.T) {
	env := newTestEnv(t)
	admin := env.seedUser(t, "admin@example.com", model.RoleAdmin)
	owner := env.seedUser(t, "owner@example.com", model.RoleUser)
	other := env.seedUser(t, "other@example.com", model.RoleUser)

	conv := env.seedConversation(t, owner.ID, "widget-abc")

	t.Run("unauthenticated gets 401", func(t *testing.T) {
		rec := env.do(t, nil, http.MethodGet, "/api/conversations/", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("owner lists own rows", func(t *testing.T) {
		rec := env.do(t, owner, http.MethodGet, "/api/conversations/", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Success    bool              `json:"success"`
			Data       []json.RawMessage `json:"data"`
			Pagination struct {
				Total int64 `json:"total"`
			} `json:"pagination"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		assert.Equal(t, int64(1), resp.Pagination.Total)
	})

	t.Run("stranger gets 403 on foreign row", func(t *testing.T) {
		rec := env.do(t, other, http.MethodGet, "/api/conversations/1", "")
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("bad id gets 400 with details", func(t *testing.T) {
		rec := env.do(t, owner, http.MethodGet, "/api/conversations/abc", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "positive integer")
	})

	t.Run("short search query gets 400", func(t *testing.T) {
		rec := env.do(t, owner, http.MethodGet, "/api/conversations/search?q=a", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("search finds by session id", func(t *testing.T) {
		rec := env.do(t, owner, http.MethodGet, "/api/conversations/search?q=widget", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "widget-abc")
	})

	t.Run("delete then restore", func(t *testing.T) {
		rec := env.do(t, owner, http.MethodDelete, "/api/conversations/1", "")
		require.Equal(t, http.StatusOK, rec.Code)

		rec = env.do(t, owner, http.MethodGet, "/api/conversations/1", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)

		rec = env.do(t, owner, http.MethodGet, "/api/conversations/trash", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "widget-abc")

		rec = env.do(t, owner, http.MethodPost, "/api/conversations/1/restore", "")
		require.Equal(t, http.StatusOK, rec.Code)

		rec = env.do(t, owner, http.MethodPost, "/api/conversations/1/restore", "")
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("bulk delete validates ids", func(t *testing.T) {
		rec := env.do(t, owner, http.MethodPost, "/api/conversations/bulk-delete", `{"ids":[]}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = env.do(t, owner, http.MethodPost, "/api/conversations/bulk-delete", `{"ids":"1,2"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = env.do(t, owner, http.MethodPost, "/api/conversations/bulk-delete", `{"ids":[1,0,-2]}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "ids[1]")
		assert.Contains(t, rec.Body.String(), "ids[2]")
	})

	t.Run("admin endpoints are role gated", func(t *testing.T) {
		rec := env.do(t, owner, http.MethodDelete, "/api/conversations/trash/empty", "")
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = env.do(t, owner, http.MethodDelete, "/api/conversations/1/permanent", "")
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("admin empties trash with count", func(t *testing.T) {
		rec := env.do(t, owner, http.MethodDelete, "/api/conversations/"+strconv.Itoa(int(conv.ID)), "")
		require.Equal(t, http.StatusOK, rec.Code)

		rec = env.do(t, admin, http.MethodDelete, "/api/conversations/trash/empty", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"purged":1`)
	})
}
