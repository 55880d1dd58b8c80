package model

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Chapter represents a single downloadable chapter file of a book.
//
// The download URL comes from the playlist generated by the audio
// distribution backend; the title comes from the fulfillment item list.
// The two lists are paired positionally, an alignment the backend is
// trusted to preserve and which the download manager asserts.
type Chapter struct {
	// Book is a reference to the parent book.
	Book *Book

	// Number is the chapter number (1-indexed).
	Number int

	// Title is the chapter title from the fulfillment item list.
	Title string

	// Duration is the chapter length in seconds, when reported.
	Duration float64

	// URL is the download URL from the playlist.
	URL string

	// Path is the computed local file path for this chapter.
	Path string
}

// NewChapter creates a Chapter with its file path computed from the
// parent book's directory, a zero-padded sequence prefix sized to
// total, and an extension inferred from the download URL.
func NewChapter(book *Book, number, total int, title string, duration float64, url string) *Chapter {
	c := &Chapter{
		Book:     book,
		Number:   number,
		Title:    title,
		Duration: duration,
		URL:      url,
	}
	c.Path = filepath.Join(book.Path, c.fileName(total))
	return c
}

// fileName builds "<padded-index> - <title>.<ext>". The pad width is
// the decimal width of the chapter count, so a 120-chapter book gets
// "001" prefixes while a 9-chapter one gets "1".
func (c *Chapter) fileName(total int) string {
	width := len(fmt.Sprint(total))
	name := fmt.Sprintf("%0*d - %s", width, c.Number, SanitizeFolderName(c.Title))
	if ext := ExtensionFromURL(c.URL); ext != "" {
		name += "." + ext
	}
	return name
}

// ExtensionFromURL infers a file extension from the trailing path
// segment of a download URL. Returns the extension without the dot,
// or the empty string if the URL has none.
func ExtensionFromURL(url string) string {
	base := url
	if i := strings.LastIndexByte(base, '/'); i >= 0 {
		base = base[i+1:]
	}
	if i := strings.IndexByte(base, '?'); i >= 0 {
		base = base[:i]
	}
	if i := strings.LastIndexByte(base, '.'); i >= 0 && i < len(base)-1 {
		return base[i+1:]
	}
	return ""
}
