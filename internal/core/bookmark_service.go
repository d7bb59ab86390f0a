package core

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"biblegpt.app/companion/internal/corpus"
	"biblegpt.app/companion/internal/store"
)

var ErrVerseNotFound = errors.New("verse not found")

// BookmarkView is a stored bookmark joined with the corpus at read time.
type BookmarkView struct {
	store.Bookmark
	BookName  string `json:"book_name"`
	Reference string `json:"reference"`
	Text      string `json:"text"`
}

type BookmarkService struct {
	dbStore *store.SQLiteStore
	corpus  *corpus.Corpus
	logger  *zap.Logger
}

func NewBookmarkService(db *store.SQLiteStore, c *corpus.Corpus, logger *zap.Logger) *BookmarkService {
	return &BookmarkService{dbStore: db, corpus: c, logger: logger}
}

// Add bookmarks a verse. Bookmarking the same verse twice returns the
// existing bookmark.
func (s *BookmarkService) Add(bookID, chapter, verse int) (*BookmarkView, error) {
	if _, ok := s.corpus.GetVerse(bookID, chapter, verse); !ok {
		return nil, fmt.Errorf("%w: %d:%d:%d", ErrVerseNotFound, bookID, chapter, verse)
	}
	b, err := s.dbStore.AddBookmark(bookID, chapter, verse)
	if err != nil {
		return nil, fmt.Errorf("failed to add bookmark: %w", err)
	}
	view := s.enrich(*b)
	return &view, nil
}

// Delete removes a bookmark by id and reports whether it existed.
func (s *BookmarkService) Delete(id int64) (bool, error) {
	removed, err := s.dbStore.DeleteBookmark(id)
	if err != nil {
		return false, fmt.Errorf("failed to delete bookmark %d: %w", id, err)
	}
	return removed, nil
}

// List returns all bookmarks newest first.
func (s *BookmarkService) List() ([]BookmarkView, error) {
	bookmarks, err := s.dbStore.ListBookmarks()
	if err != nil {
		return nil, fmt.Errorf("failed to list bookmarks: %w", err)
	}
	views := make([]BookmarkView, 0, len(bookmarks))
	for _, b := range bookmarks {
		views = append(views, s.enrich(b))
	}
	return views, nil
}

func (s *BookmarkService) enrich(b store.Bookmark) BookmarkView {
	view := BookmarkView{Bookmark: b}
	if v, ok := s.corpus.GetVerse(b.BookID, b.Chapter, b.Verse); ok {
		view.BookName = v.BookName
		view.Reference = v.Reference()
		view.Text = v.Text
		return view
	}
	// The corpus can be swapped via CORPUS_PATH; keep the row visible.
	s.logger.Warn("Bookmarked verse missing from corpus",
		zap.Int64("bookmark_id", b.ID), zap.Int("book_id", b.BookID),
		zap.Int("chapter", b.Chapter), zap.Int("verse", b.Verse))
	if book, ok := s.corpus.GetBook(b.BookID); ok {
		view.BookName = book.Name
	}
	return view
}
