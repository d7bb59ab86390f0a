// Package corpus loads the bundled Bible text and answers book, chapter and
// keyword queries against it. A Corpus is read-only once loaded and may be
// shared between goroutines.
package corpus

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

const (
	BookCount            = 66
	LastOldTestamentBook = 39
)

type Testament string

const (
	OldTestament Testament = "Old"
	NewTestament Testament = "New"
)

// ErrInvalidCorpus is wrapped by every validation failure in Load.
var ErrInvalidCorpus = errors.New("invalid corpus")

//go:embed data/bible.json
var embeddedCorpus []byte

type Book struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Testament Testament `json:"testament"`
	Chapters  int       `json:"chapters"`
}

type Verse struct {
	BookID   int    `json:"book_id"`
	BookName string `json:"book_name"`
	Chapter  int    `json:"chapter"`
	Verse    int    `json:"verse"`
	Text     string `json:"text"`
}

// Reference renders the verse the way readers cite it, e.g. "Psalms 23:1".
func (v Verse) Reference() string {
	return fmt.Sprintf("%s %d:%d", v.BookName, v.Chapter, v.Verse)
}

type Ref struct {
	BookID  int
	Chapter int
	Verse   int
}

type chapterKey struct {
	bookID  int
	chapter int
}

type Corpus struct {
	books    []Book
	chapters map[chapterKey][]Verse
	verses   map[Ref]int
	ordered  []Verse  // every verse in canonical order
	lowered  []string // lower-cased text, parallel to ordered
}

type fileCorpus struct {
	Books []fileBook `json:"books"`
}

type fileBook struct {
	ID        int           `json:"id"`
	Name      string        `json:"name"`
	Testament Testament     `json:"testament"`
	Chapters  int           `json:"chapters"`
	Content   []fileChapter `json:"content"`
}

type fileChapter struct {
	Chapter int         `json:"chapter"`
	Verses  []fileVerse `json:"verses"`
}

type fileVerse struct {
	Verse int    `json:"verse"`
	Text  string `json:"text"`
}

// LoadEmbedded loads the corpus compiled into the binary.
func LoadEmbedded() (*Corpus, error) {
	return Load(bytes.NewReader(embeddedCorpus))
}

func LoadFile(path string) (*Corpus, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus file %s: %w", path, err)
	}
	defer f.Close()
	return Load(f)
}

// Load decodes a book→chapter→verse JSON document, validates it and builds
// the lookup and search index.
func Load(r io.Reader) (*Corpus, error) {
	var doc fileCorpus
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode corpus: %w", err)
	}

	if len(doc.Books) != BookCount {
		return nil, fmt.Errorf("%w: expected %d books, got %d", ErrInvalidCorpus, BookCount, len(doc.Books))
	}

	sort.Slice(doc.Books, func(i, j int) bool { return doc.Books[i].ID < doc.Books[j].ID })

	c := &Corpus{
		books:    make([]Book, 0, BookCount),
		chapters: make(map[chapterKey][]Verse),
		verses:   make(map[Ref]int),
	}

	for i, fb := range doc.Books {
		if err := validateBook(i+1, fb); err != nil {
			return nil, err
		}
		book := Book{ID: fb.ID, Name: fb.Name, Testament: fb.Testament, Chapters: fb.Chapters}
		c.books = append(c.books, book)

		sort.Slice(fb.Content, func(a, b int) bool { return fb.Content[a].Chapter < fb.Content[b].Chapter })
		for _, fc := range fb.Content {
			if err := c.addChapter(book, fc); err != nil {
				return nil, err
			}
		}
	}

	c.lowered = make([]string, len(c.ordered))
	for i, v := range c.ordered {
		c.lowered[i] = strings.ToLower(v.Text)
	}
	return c, nil
}

func validateBook(wantID int, fb fileBook) error {
	if fb.ID != wantID {
		return fmt.Errorf("%w: book ids must be contiguous from 1, expected %d, got %d", ErrInvalidCorpus, wantID, fb.ID)
	}
	if strings.TrimSpace(fb.Name) == "" {
		return fmt.Errorf("%w: book %d has no name", ErrInvalidCorpus, fb.ID)
	}
	want := OldTestament
	if fb.ID > LastOldTestamentBook {
		want = NewTestament
	}
	if fb.Testament != want {
		return fmt.Errorf("%w: book %d (%s) must be in the %s testament, got %q", ErrInvalidCorpus, fb.ID, fb.Name, want, fb.Testament)
	}
	if fb.Chapters < 1 {
		return fmt.Errorf("%w: book %d (%s) has no chapters", ErrInvalidCorpus, fb.ID, fb.Name)
	}
	return nil
}

func (c *Corpus) addChapter(book Book, fc fileChapter) error {
	if fc.Chapter < 1 || fc.Chapter > book.Chapters {
		return fmt.Errorf("%w: %s has %d chapters, got chapter %d", ErrInvalidCorpus, book.Name, book.Chapters, fc.Chapter)
	}
	key := chapterKey{bookID: book.ID, chapter: fc.Chapter}
	if _, exists := c.chapters[key]; exists {
		return fmt.Errorf("%w: duplicate chapter %s %d", ErrInvalidCorpus, book.Name, fc.Chapter)
	}

	sort.Slice(fc.Verses, func(a, b int) bool { return fc.Verses[a].Verse < fc.Verses[b].Verse })

	verses := make([]Verse, 0, len(fc.Verses))
	for i, fv := range fc.Verses {
		if fv.Verse < 1 {
			return fmt.Errorf("%w: %s %d has invalid verse number %d", ErrInvalidCorpus, book.Name, fc.Chapter, fv.Verse)
		}
		if i > 0 && fc.Verses[i-1].Verse == fv.Verse {
			return fmt.Errorf("%w: duplicate verse %s %d:%d", ErrInvalidCorpus, book.Name, fc.Chapter, fv.Verse)
		}
		v := Verse{
			BookID:   book.ID,
			BookName: book.Name,
			Chapter:  fc.Chapter,
			Verse:    fv.Verse,
			Text:     fv.Text,
		}
		c.verses[Ref{BookID: book.ID, Chapter: fc.Chapter, Verse: fv.Verse}] = len(c.ordered)
		c.ordered = append(c.ordered, v)
		verses = append(verses, v)
	}
	c.chapters[key] = verses
	return nil
}

// VerseCount reports how many verses carry text.
func (c *Corpus) VerseCount() int {
	return len(c.ordered)
}
