package audio

import (
	"strings"
	"testing"

	"github.com/handiism/cloudlibrary-downloader/internal/model"
)

func TestPlaylistCreator_M3U(t *testing.T) {
	book := createTestBook()
	creator := NewPlaylistCreator(false)

	content := creator.CreatePlaylist(book)

	lines := strings.Split(strings.TrimRight(content, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), content)
	}
	if lines[0] != "1 - Opening.mp3" {
		t.Errorf("first entry = %q, want %q", lines[0], "1 - Opening.mp3")
	}
	if strings.Contains(content, "#EXTM3U") {
		t.Error("plain M3U should not contain #EXTM3U header")
	}
}

func TestPlaylistCreator_M3UExtended(t *testing.T) {
	book := createTestBook()
	creator := NewPlaylistCreator(true)

	content := creator.CreatePlaylist(book)

	if !strings.HasPrefix(content, "#EXTM3U") {
		t.Error("extended M3U should start with #EXTM3U")
	}
	if !strings.Contains(content, "#EXTINF:180,Test Author - Opening") {
		t.Errorf("extended M3U missing EXTINF line: %q", content)
	}
}

func TestPlaylistCreator_RelativePaths(t *testing.T) {
	book := createTestBook()
	creator := NewPlaylistCreator(false)

	content := creator.CreatePlaylist(book)

	if strings.Contains(content, "/") {
		t.Errorf("playlist entries should be bare filenames: %q", content)
	}
}

func createTestBook() *model.Book {
	cfg := &model.PathConfig{LibraryRoot: "audiobooks"}
	book := model.NewBook("abc123", "Test Book", "", []string{"Test Author"}, cfg)

	book.Chapters = []*model.Chapter{
		model.NewChapter(book, 1, 2, "Opening", 180, "http://example.com/1.mp3"),
		model.NewChapter(book, 2, 2, "Closing", 200, "http://example.com/2.mp3"),
	}
	return book
}
