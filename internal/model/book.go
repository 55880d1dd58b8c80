package model

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// maxFolderNameLength caps sanitized book folder names so the full path
// stays inside common filesystem limits.
const maxFolderNameLength = 100

// Book represents one audiobook loan with everything needed to download
// and organize its chapter files.
//
// The brief fields (ID, Title, Subtitle, ISBN, Description) come from
// the CloudLibrary loan list or detail endpoint. The extended fields
// (Authors, Narrators, Language, CoverURL, Series) come from the audio
// distribution backend and are only populated once a download starts.
//
// Example:
//
//	cfg := &PathConfig{LibraryRoot: "audiobooks"}
//	book := NewBook("abcd123", "Leviathan Wakes", "", []string{"James S.A. Corey"}, cfg)
//	// book.Path = "audiobooks/abcd123 - James S.A. Corey - Leviathan Wakes"
type Book struct {
	// ID is the CloudLibrary item identifier.
	ID string

	// Title is the book title as reported by the loan list.
	Title string

	// Subtitle is the book subtitle, empty if none.
	Subtitle string

	// ISBN is the ISBN reported by the lending backend.
	ISBN string

	// Description is the catalog description, if any.
	Description string

	// Authors lists the authors from the distribution backend.
	Authors []string

	// Narrators lists the narrators from the distribution backend.
	Narrators []string

	// Language is the audiobook language code.
	Language string

	// CoverURL is the URL of the cover image, empty if none.
	CoverURL string

	// Series lists the parsed series memberships.
	Series []Series

	// Chapters contains the ordered chapter files of this book.
	Chapters []*Chapter

	// Path is the computed local directory where chapter files are saved.
	Path string
}

// PathConfig holds path settings for books and chapters.
type PathConfig struct {
	// LibraryRoot is the directory under which one folder per book is
	// created. Defaults to "audiobooks" when empty.
	LibraryRoot string
}

// NewBook creates a Book with its output directory computed from the
// item id, the first listed author and the title.
func NewBook(id, title, subtitle string, authors []string, cfg *PathConfig) *Book {
	book := &Book{
		ID:       id,
		Title:    title,
		Subtitle: subtitle,
		Authors:  authors,
	}
	book.Path = book.parseFolderPath(cfg)
	return book
}

// HasCover returns true if a cover image is available for download.
func (b *Book) HasCover() bool {
	return b.CoverURL != ""
}

// CoverPath returns the local path for the downloaded cover image,
// or the empty string if the book has no cover.
func (b *Book) CoverPath() string {
	if !b.HasCover() {
		return ""
	}
	return filepath.Join(b.Path, "cover.jpg")
}

// MetadataPath returns the local path of the merged metadata JSON file.
func (b *Book) MetadataPath() string {
	return filepath.Join(b.Path, b.ID+".json")
}

// FirstAuthor returns the first listed author, or the empty string.
func (b *Book) FirstAuthor() string {
	if len(b.Authors) == 0 {
		return ""
	}
	return b.Authors[0]
}

// ComposedTitle merges title and subtitle into a single display title.
//
// A subtitle equal to the placeholder "a novel" (case-insensitive) is
// suppressed; any other subtitle is appended after a colon.
func (b *Book) ComposedTitle() string {
	if b.Subtitle == "" || strings.EqualFold(b.Subtitle, "a novel") {
		return b.Title
	}
	return b.Title + ": " + b.Subtitle
}

// parseFolderPath computes the book directory under the library root.
func (b *Book) parseFolderPath(cfg *PathConfig) string {
	root := cfg.LibraryRoot
	if root == "" {
		root = "audiobooks"
	}

	name := fmt.Sprintf("%s - %s - %s", b.ID, b.FirstAuthor(), b.Title)
	return filepath.Join(root, SanitizeFolderName(name))
}

// folderNameDisallowed matches every character that may not appear in a
// book folder name. Allowed are letters and digits in any script,
// underscore, hyphen, period, space.
var folderNameDisallowed = regexp.MustCompile(`[^\pL\pN_\-. ]`)

// SanitizeFolderName reduces a name to the constrained character set
// used for book directories and truncates it to 100 characters.
//
// Disallowed characters are removed rather than replaced, matching the
// naming of previously downloaded libraries so re-runs find their
// existing folders. The length cap counts runes, not bytes, so
// truncation never splits a multi-byte character.
func SanitizeFolderName(name string) string {
	name = folderNameDisallowed.ReplaceAllString(name, "")
	name = strings.TrimSpace(name)
	if runes := []rune(name); len(runes) > maxFolderNameLength {
		name = strings.TrimSpace(string(runes[:maxFolderNameLength]))
	}
	return name
}
