package audio

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/handiism/cloudlibrary-downloader/internal/model"
)

// PlaylistCreator generates M3U playlist files for a book's chapters.
//
// PlaylistCreator takes a book and generates a playlist containing all
// chapters in order. The output is a string that can be written to a
// file next to the chapter files.
//
// Example:
//
//	// Create M3U playlist with extended info
//	creator := NewPlaylistCreator(true)
//	content := creator.CreatePlaylist(book)
//	os.WriteFile(filepath.Join(book.Path, book.ID+".m3u"), []byte(content), 0644)
//
//	// Result:
//	// #EXTM3U
//	// #EXTINF:180,Author - Chapter 1
//	// 01 - Chapter 1.mp3
type PlaylistCreator struct {
	extended bool // include EXTINF lines with duration/title
}

// NewPlaylistCreator creates a new PlaylistCreator.
//
// When extended is true, the generated M3U includes #EXTINF lines with
// the chapter duration and title.
func NewPlaylistCreator(extended bool) *PlaylistCreator {
	return &PlaylistCreator{extended: extended}
}

// CreatePlaylist generates playlist content for a book.
//
// Returns the playlist as a string, ready to be written to a file.
// Chapter paths in the playlist are relative (just the filename),
// assuming the playlist file is in the same directory as the chapters.
func (p *PlaylistCreator) CreatePlaylist(book *model.Book) string {
	var sb strings.Builder

	if p.extended {
		sb.WriteString("#EXTM3U\n")
	}

	for _, chapter := range book.Chapters {
		if p.extended {
			duration := int(chapter.Duration)
			sb.WriteString(fmt.Sprintf("#EXTINF:%d,%s - %s\n", duration, book.FirstAuthor(), chapter.Title))
		}
		sb.WriteString(filepath.Base(chapter.Path) + "\n")
	}

	return sb.String()
}
