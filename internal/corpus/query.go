package corpus

import (
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MaxSearchResults = 50
	MinSearchLength  = 2

	dailyVerseKeyword = "love"
)

// ListBooks returns all books in canonical order. The slice is a copy.
func (c *Corpus) ListBooks() []Book {
	books := make([]Book, len(c.books))
	copy(books, c.books)
	return books
}

func (c *Corpus) GetBook(bookID int) (Book, bool) {
	if bookID < 1 || bookID > len(c.books) {
		return Book{}, false
	}
	return c.books[bookID-1], true
}

// GetChapter returns the chapter's verses in verse order. An unknown book or
// chapter yields an empty slice, not an error.
func (c *Corpus) GetChapter(bookID, chapter int) []Verse {
	verses := c.chapters[chapterKey{bookID: bookID, chapter: chapter}]
	out := make([]Verse, len(verses))
	copy(out, verses)
	return out
}

func (c *Corpus) GetVerse(bookID, chapter, verse int) (Verse, bool) {
	idx, ok := c.verses[Ref{BookID: bookID, Chapter: chapter, Verse: verse}]
	if !ok {
		return Verse{}, false
	}
	return c.ordered[idx], true
}

// SearchVerses does a case-insensitive substring scan over every verse and
// returns at most MaxSearchResults matches in canonical order. Keywords
// shorter than MinSearchLength runes match nothing.
func (c *Corpus) SearchVerses(keyword string) []Verse {
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	if utf8.RuneCountInString(keyword) < MinSearchLength {
		return []Verse{}
	}

	results := make([]Verse, 0)
	for i, text := range c.lowered {
		if !strings.Contains(text, keyword) {
			continue
		}
		results = append(results, c.ordered[i])
		if len(results) == MaxSearchResults {
			break
		}
	}
	return results
}

// DailyVerse picks an encouraging verse for the calendar day of t. Every call
// on the same day returns the same verse.
func (c *Corpus) DailyVerse(t time.Time) (Verse, bool) {
	candidates := c.SearchVerses(dailyVerseKeyword)
	if len(candidates) == 0 {
		return Verse{}, false
	}
	y, m, d := t.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / int64(24*time.Hour/time.Second)
	idx := day % int64(len(candidates))
	if idx < 0 {
		idx += int64(len(candidates))
	}
	return candidates[idx], true
}
