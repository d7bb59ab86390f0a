package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"biblegpt.app/companion/internal/core"
	"biblegpt.app/companion/internal/corpus"
	"biblegpt.app/companion/internal/llm"
)

type APIHandler struct {
	corpus    *corpus.Corpus
	bookmarks *core.BookmarkService
	chat      *core.ChatService
	settings  *core.SettingsService
	logger    *zap.Logger
	now       func() time.Time
}

func NewAPIHandler(c *corpus.Corpus, bs *core.BookmarkService, cs *core.ChatService, ss *core.SettingsService, logger *zap.Logger) *APIHandler {
	return &APIHandler{
		corpus:    c,
		bookmarks: bs,
		chat:      cs,
		settings:  ss,
		logger:    logger,
		now:       time.Now,
	}
}

func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	success(w, map[string]interface{}{
		"status": "ok",
		"verses": h.corpus.VerseCount(),
		"ai":     h.settings.GetAIConfig(),
	}, "healthy")
}

// Corpus

func (h *APIHandler) ListBooksHandler(w http.ResponseWriter, r *http.Request) {
	success(w, h.corpus.ListBooks(), "books retrieved")
}

func (h *APIHandler) GetBookHandler(w http.ResponseWriter, r *http.Request) {
	bookID, ok := intParam(w, r, "bookID")
	if !ok {
		return
	}
	book, found := h.corpus.GetBook(bookID)
	if !found {
		failure(w, http.StatusNotFound, "Book not found", map[string]int{"book_id": bookID})
		return
	}
	success(w, book, "book retrieved")
}

func (h *APIHandler) GetChapterHandler(w http.ResponseWriter, r *http.Request) {
	bookID, ok := intParam(w, r, "bookID")
	if !ok {
		return
	}
	chapter, ok := intParam(w, r, "chapter")
	if !ok {
		return
	}
	// An unknown book or chapter is "nothing found", not an error.
	data := map[string]interface{}{
		"chapter": chapter,
		"verses":  h.corpus.GetChapter(bookID, chapter),
	}
	if book, found := h.corpus.GetBook(bookID); found {
		data["book"] = book
	}
	success(w, data, "chapter retrieved")
}

func (h *APIHandler) SearchVersesHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	results := h.corpus.SearchVerses(query)
	success(w, map[string]interface{}{
		"query":   query,
		"count":   len(results),
		"results": results,
	}, "search completed")
}

func (h *APIHandler) DailyVerseHandler(w http.ResponseWriter, r *http.Request) {
	verse, ok := h.corpus.DailyVerse(h.now())
	if !ok {
		failure(w, http.StatusNotFound, "No daily verse available", nil)
		return
	}
	success(w, map[string]interface{}{
		"verse":     verse,
		"reference": verse.Reference(),
	}, "daily verse retrieved")
}

// Bookmarks

type AddBookmarkRequest struct {
	BookID  int `json:"book_id"`
	Chapter int `json:"chapter"`
	Verse   int `json:"verse"`
}

func (h *APIHandler) ListBookmarksHandler(w http.ResponseWriter, r *http.Request) {
	bookmarks, err := h.bookmarks.List()
	if err != nil {
		h.logger.Error("Error listing bookmarks", zap.Error(err))
		failure(w, http.StatusInternalServerError, "Failed to list bookmarks", nil)
		return
	}
	success(w, bookmarks, "bookmarks retrieved")
}

func (h *APIHandler) AddBookmarkHandler(w http.ResponseWriter, r *http.Request) {
	var req AddBookmarkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		failure(w, http.StatusBadRequest, "Invalid JSON body", err.Error())
		return
	}
	if req.BookID == 0 || req.Chapter == 0 || req.Verse == 0 {
		failure(w, http.StatusBadRequest, "Missing required fields", map[string]string{
			"book_id": "book_id, chapter and verse are required",
		})
		return
	}

	bookmark, err := h.bookmarks.Add(req.BookID, req.Chapter, req.Verse)
	if err != nil {
		if errors.Is(err, core.ErrVerseNotFound) {
			failure(w, http.StatusNotFound, "Verse not found", err.Error())
			return
		}
		h.logger.Error("Error adding bookmark", zap.Error(err))
		failure(w, http.StatusInternalServerError, "Failed to add bookmark", nil)
		return
	}
	created(w, bookmark, "bookmark saved")
}

func (h *APIHandler) DeleteBookmarkHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "bookmarkID"), 10, 64)
	if err != nil {
		failure(w, http.StatusBadRequest, "Invalid bookmark id", err.Error())
		return
	}
	removed, err := h.bookmarks.Delete(id)
	if err != nil {
		h.logger.Error("Error deleting bookmark", zap.Int64("bookmark_id", id), zap.Error(err))
		failure(w, http.StatusInternalServerError, "Failed to delete bookmark", nil)
		return
	}
	success(w, map[string]bool{"deleted": removed}, "bookmark deleted")
}

// Chat

type PostMessageRequest struct {
	Content string `json:"content"`
}

func (h *APIHandler) ListMessagesHandler(w http.ResponseWriter, r *http.Request) {
	messages, err := h.chat.History()
	if err != nil {
		h.logger.Error("Error listing chat history", zap.Error(err))
		failure(w, http.StatusInternalServerError, "Failed to list messages", nil)
		return
	}
	success(w, messages, "messages retrieved")
}

func (h *APIHandler) PostMessageHandler(w http.ResponseWriter, r *http.Request) {
	var req PostMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		failure(w, http.StatusBadRequest, "Invalid JSON body", err.Error())
		return
	}

	exchange, err := h.chat.SendMessage(r.Context(), req.Content)
	if err != nil {
		if errors.Is(err, core.ErrEmptyMessage) {
			failure(w, http.StatusBadRequest, "Message content cannot be empty", map[string]string{
				"content": err.Error(),
			})
			return
		}
		h.logger.Error("Error sending chat message", zap.Error(err))
		failure(w, http.StatusInternalServerError, "Failed to send message", nil)
		return
	}
	created(w, exchange, "message sent")
}

func (h *APIHandler) ClearMessagesHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.chat.ClearHistory(); err != nil {
		h.logger.Error("Error clearing chat history", zap.Error(err))
		failure(w, http.StatusInternalServerError, "Failed to clear messages", nil)
		return
	}
	success(w, nil, "chat history cleared")
}

// Settings

func (h *APIHandler) GetAISettingsHandler(w http.ResponseWriter, r *http.Request) {
	success(w, h.settings.GetAIConfig(), "AI settings retrieved")
}

func (h *APIHandler) UpdateAISettingsHandler(w http.ResponseWriter, r *http.Request) {
	var req core.AIConfigUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		failure(w, http.StatusBadRequest, "Invalid JSON body", err.Error())
		return
	}

	status, err := h.settings.UpdateAIConfig(req)
	if err != nil {
		if errors.Is(err, llm.ErrUnsupportedProvider) {
			failure(w, http.StatusBadRequest, "Unsupported AI provider", map[string]string{
				"provider": "must be one of openai, anthropic, groq, gemini",
			})
			return
		}
		h.logger.Error("Error updating AI settings", zap.Error(err))
		failure(w, http.StatusInternalServerError, "Failed to update AI settings", nil)
		return
	}
	success(w, status, "AI settings updated")
}

func intParam(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	raw := chi.URLParam(r, name)
	value, err := strconv.Atoi(raw)
	if err != nil {
		failure(w, http.StatusBadRequest, "Invalid "+name, map[string]string{name: raw})
		return 0, false
	}
	return value, true
}
