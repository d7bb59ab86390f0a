package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"biblegpt.app/companion/internal/core"
	"biblegpt.app/companion/internal/corpus"
	"biblegpt.app/companion/internal/llm"
	"biblegpt.app/companion/internal/store"
)

type envelope struct {
	Status  int             `json:"status"`
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Errors  json.RawMessage `json:"errors"`
}

func newTestRouter(t *testing.T, chatRate int) http.Handler {
	t.Helper()
	logger := zap.NewNop()

	c, err := corpus.LoadEmbedded()
	require.NoError(t, err)
	db, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "api.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	gateway := llm.NewGateway(llm.Config{Provider: llm.ProviderOpenAI}, logger)
	handler := NewAPIHandler(c,
		core.NewBookmarkService(db, c, logger),
		core.NewChatService(db, gateway, logger),
		core.NewSettingsService(db, gateway, logger),
		logger)
	handler.now = func() time.Time { return time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC) }

	return NewRouter(handler, RouterOptions{AllowedOrigins: []string{"http://localhost:19006"}, ChatRatePerMinute: chatRate})
}

func do(t *testing.T, router http.Handler, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func TestHealth(t *testing.T) {
	router := newTestRouter(t, 0)

	rec, env := do(t, router, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
	assert.Contains(t, string(env.Data), `"status":"ok"`)
}

func TestListBooks(t *testing.T) {
	router := newTestRouter(t, 0)

	rec, env := do(t, router, http.MethodGet, "/api/books", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var books []corpus.Book
	require.NoError(t, json.Unmarshal(env.Data, &books))
	assert.Len(t, books, corpus.BookCount)
}

func TestGetBook(t *testing.T) {
	router := newTestRouter(t, 0)

	rec, env := do(t, router, http.MethodGet, "/api/books/43", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var book corpus.Book
	require.NoError(t, json.Unmarshal(env.Data, &book))
	assert.Equal(t, "John", book.Name)

	rec, env = do(t, router, http.MethodGet, "/api/books/67", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, env.Success)

	rec, _ = do(t, router, http.MethodGet, "/api/books/john", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetChapter(t *testing.T) {
	router := newTestRouter(t, 0)

	rec, env := do(t, router, http.MethodGet, "/api/books/19/chapters/23", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var data struct {
		Verses []corpus.Verse `json:"verses"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(t, data.Verses)
	assert.Equal(t, 1, data.Verses[0].Verse)
	assert.Equal(t, "The Lord is my shepherd, I lack nothing.", data.Verses[0].Text)
}

func TestGetChapterOutOfRangeIsEmpty(t *testing.T) {
	router := newTestRouter(t, 0)

	rec, env := do(t, router, http.MethodGet, "/api/books/19/chapters/151", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), `"verses":[]`)
}

func TestGetChapterUnknownBookIsEmpty(t *testing.T) {
	router := newTestRouter(t, 0)

	rec, env := do(t, router, http.MethodGet, "/api/books/67/chapters/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
	assert.JSONEq(t, `{"chapter":1,"verses":[]}`, string(env.Data))

	rec, _ = do(t, router, http.MethodGet, "/api/books/67/chapters/one", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchVerses(t *testing.T) {
	router := newTestRouter(t, 0)

	rec, env := do(t, router, http.MethodGet, "/api/verses/search?q=SHEPHERD", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var data struct {
		Count   int            `json:"count"`
		Results []corpus.Verse `json:"results"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Equal(t, 1, data.Count)
	assert.Equal(t, "Psalms 23:1", data.Results[0].Reference())

	_, env = do(t, router, http.MethodGet, "/api/verses/search?q=a", "")
	assert.Contains(t, string(env.Data), `"results":[]`)
}

func TestDailyVerse(t *testing.T) {
	router := newTestRouter(t, 0)

	rec, first := do(t, router, http.MethodGet, "/api/verses/daily", "")
	require.Equal(t, http.StatusOK, rec.Code)
	_, second := do(t, router, http.MethodGet, "/api/verses/daily", "")
	assert.JSONEq(t, string(first.Data), string(second.Data))
	assert.Contains(t, strings.ToLower(string(first.Data)), "love")
}

func TestBookmarkLifecycle(t *testing.T) {
	router := newTestRouter(t, 0)

	rec, env := do(t, router, http.MethodPost, "/api/bookmarks", `{"book_id":19,"chapter":23,"verse":1}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var added core.BookmarkView
	require.NoError(t, json.Unmarshal(env.Data, &added))
	assert.Equal(t, "Psalms 23:1", added.Reference)

	rec, _ = do(t, router, http.MethodPost, "/api/bookmarks", `{"book_id":19,"chapter":23,"verse":1}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	_, env = do(t, router, http.MethodGet, "/api/bookmarks", "")
	var list []core.BookmarkView
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "The Lord is my shepherd, I lack nothing.", list[0].Text)

	path := "/api/bookmarks/" + jsonNumber(added.ID)
	rec, env = do(t, router, http.MethodDelete, path, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"deleted":true}`, string(env.Data))

	rec, env = do(t, router, http.MethodDelete, path, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"deleted":false}`, string(env.Data))
}

func TestAddBookmarkValidation(t *testing.T) {
	router := newTestRouter(t, 0)

	rec, _ := do(t, router, http.MethodPost, "/api/bookmarks", `{"book_id":19}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, router, http.MethodPost, "/api/bookmarks", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, router, http.MethodPost, "/api/bookmarks", `{"book_id":19,"chapter":23,"verse":200}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = do(t, router, http.MethodDelete, "/api/bookmarks/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatFlowUsesFallbackWithoutKey(t *testing.T) {
	router := newTestRouter(t, 0)

	rec, env := do(t, router, http.MethodPost, "/api/chat/messages", `{"content":"I feel so lonely"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var exchange core.Exchange
	require.NoError(t, json.Unmarshal(env.Data, &exchange))
	assert.Equal(t, llm.SourceFallback, exchange.Source)
	assert.Equal(t, llm.FallbackResponse("I feel so lonely"), exchange.AssistantMessage.Content)

	_, env = do(t, router, http.MethodGet, "/api/chat/messages", "")
	var history []store.ChatMessage
	require.NoError(t, json.Unmarshal(env.Data, &history))
	assert.Len(t, history, 2)

	rec, _ = do(t, router, http.MethodDelete, "/api/chat/messages", "")
	require.Equal(t, http.StatusOK, rec.Code)

	_, env = do(t, router, http.MethodGet, "/api/chat/messages", "")
	assert.JSONEq(t, `[]`, string(env.Data))
}

func TestPostEmptyMessage(t *testing.T) {
	router := newTestRouter(t, 0)

	rec, env := do(t, router, http.MethodPost, "/api/chat/messages", `{"content":"  "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, env.Success)
}

func TestChatRateLimit(t *testing.T) {
	router := newTestRouter(t, 2)

	for i := 0; i < 2; i++ {
		rec, _ := do(t, router, http.MethodPost, "/api/chat/messages", `{"content":"hello"}`)
		require.Equal(t, http.StatusCreated, rec.Code)
	}
	rec, env := do(t, router, http.MethodPost, "/api/chat/messages", `{"content":"hello"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.False(t, env.Success)

	// Reads are not throttled.
	rec, _ = do(t, router, http.MethodGet, "/api/chat/messages", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAISettings(t *testing.T) {
	router := newTestRouter(t, 0)

	_, env := do(t, router, http.MethodGet, "/api/settings/ai", "")
	assert.JSONEq(t, `{"provider":"openai","model":"gpt-3.5-turbo","configured":false}`, string(env.Data))

	rec, env := do(t, router, http.MethodPut, "/api/settings/ai", `{"provider":"gemini","api_key":"g-key"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"provider":"gemini","model":"gemini-1.5-flash","configured":true}`, string(env.Data))
	assert.NotContains(t, rec.Body.String(), "g-key")

	rec, _ = do(t, router, http.MethodPut, "/api/settings/ai", `{"provider":"mistral","api_key":"k"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnknownRoute(t *testing.T) {
	router := newTestRouter(t, 0)

	rec, env := do(t, router, http.MethodGet, "/api/psalms", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, env.Success)
}

func TestCORSPreflight(t *testing.T) {
	router := newTestRouter(t, 0)

	req := httptest.NewRequest(http.MethodOptions, "/api/books", nil)
	req.Header.Set("Origin", "http://localhost:19006")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:19006", rec.Header().Get("Access-Control-Allow-Origin"))
}

func jsonNumber(id int64) string {
	raw, _ := json.Marshal(id)
	return string(raw)
}
