package audio

import (
	"fmt"
	"os"
	"strings"

	"github.com/bogem/id3v2"
	"github.com/handiism/cloudlibrary-downloader/internal/model"
)

// TagEditAction defines how to handle individual ID3 tags.
//
// Each tag field can be configured independently to determine whether
// it should be modified, cleared, or left unchanged.
type TagEditAction int

const (
	// TagEmpty clears the tag value (sets to empty string).
	TagEmpty TagEditAction = iota

	// TagModify updates the tag with the value from the catalog metadata.
	TagModify

	// TagDoNotModify leaves the existing tag value unchanged.
	TagDoNotModify
)

// TagConfig holds tagging configuration for each ID3 field.
//
// This allows fine-grained control over which tags are modified
// when processing downloaded chapter files.
//
// Example:
//
//	cfg := &TagConfig{
//	    ModifyTags:   true,
//	    Artist:       TagModify,      // Update artist from the authors
//	    Album:        TagModify,      // Update album from the book title
//	    ChapterTitle: TagModify,      // Update title per chapter
//	    Narrator:     TagModify,      // Store narrators as album artist
//	    Comments:     TagEmpty,       // Clear any existing comments
//	}
type TagConfig struct {
	// ModifyTags is a master switch. If false, no string tags are modified.
	ModifyTags bool

	// Artist controls the TPE1 (Lead artist) frame, filled with the authors.
	Artist TagEditAction

	// Narrator controls the TPE2 (Album artist) frame, filled with the
	// narrators. Audiobook players commonly read the narrator from there.
	Narrator TagEditAction

	// Album controls the TALB (Album title) frame, filled with the book title.
	Album TagEditAction

	// ChapterNumber controls the TRCK (Track number) frame.
	ChapterNumber TagEditAction

	// ChapterTitle controls the TIT2 (Title) frame.
	ChapterTitle TagEditAction

	// Language controls the TLAN (Language) frame.
	Language TagEditAction

	// Comments controls the COMM (Comments) frame.
	Comments TagEditAction
}

// DefaultTagConfig returns the default tag configuration.
//
// By default, all tags except comments are set to TagModify,
// which updates them with catalog data. Comments are cleared.
func DefaultTagConfig() *TagConfig {
	return &TagConfig{
		ModifyTags:    true,
		Artist:        TagModify,
		Narrator:      TagModify,
		Album:         TagModify,
		ChapterNumber: TagModify,
		ChapterTitle:  TagModify,
		Language:      TagModify,
		Comments:      TagEmpty,
	}
}

// Tagger writes ID3 tags to downloaded chapter files.
//
// Tagger uses the id3v2 library to modify MP3 file metadata including:
//   - Artist (authors), Album Artist (narrators), Album, Title
//   - Track Number, Language
//   - Cover Art (attached picture)
//
// Example:
//
//	tagger := NewTagger(DefaultTagConfig())
//
//	// After downloading a chapter
//	err := tagger.SaveTags(chapter, book, coverBytes)
//	if err != nil {
//	    log.Printf("Failed to tag %s: %v", chapter.Path, err)
//	}
type Tagger struct {
	config *TagConfig
}

// NewTagger creates a new Tagger with the given configuration.
//
// If config is nil, DefaultTagConfig() is used.
func NewTagger(config *TagConfig) *Tagger {
	if config == nil {
		config = DefaultTagConfig()
	}
	return &Tagger{config: config}
}

// SaveTags writes ID3 tags to the chapter's MP3 file.
//
// This method:
//  1. Opens the existing MP3 file (or creates empty tags if none exist)
//  2. Updates string tags based on TagConfig settings
//  3. Embeds cover art if cover bytes are provided
//  4. Saves the modified tags to the file
//
// Parameters:
//   - chapter: The chapter being tagged (provides title, number, file path)
//   - book: The book (provides authors, narrators, title, language)
//   - cover: JPEG image bytes for cover art (nil to skip cover art)
//
// Returns an error if the file cannot be opened or saved.
func (t *Tagger) SaveTags(chapter *model.Chapter, book *model.Book, cover []byte) error {
	tag, err := id3v2.Open(chapter.Path, id3v2.Options{Parse: true})
	if err != nil {
		// If file doesn't have tags, create new
		if os.IsNotExist(err) {
			tag = id3v2.NewEmptyTag()
		} else {
			return err
		}
	}
	defer tag.Close()

	if t.config.ModifyTags {
		t.updateStringTags(tag, chapter, book)
	}

	if cover != nil {
		t.updateCover(tag, cover)
	}

	return tag.Save()
}

// updateStringTags updates text-based ID3 frames based on configuration.
func (t *Tagger) updateStringTags(tag *id3v2.Tag, chapter *model.Chapter, book *model.Book) {
	// Artist (TPE1)
	switch t.config.Artist {
	case TagEmpty:
		tag.SetArtist("")
	case TagModify:
		tag.SetArtist(strings.Join(book.Authors, "; "))
	}

	// Album (TALB)
	switch t.config.Album {
	case TagEmpty:
		tag.SetAlbum("")
	case TagModify:
		tag.SetAlbum(book.ComposedTitle())
	}

	// Album Artist (TPE2) holds the narrators
	switch t.config.Narrator {
	case TagEmpty:
		tag.DeleteFrames("TPE2")
	case TagModify:
		if len(book.Narrators) > 0 {
			tag.AddTextFrame("TPE2", id3v2.EncodingUTF8, strings.Join(book.Narrators, "; "))
		}
	}

	// Chapter Number (TRCK)
	switch t.config.ChapterNumber {
	case TagEmpty:
		tag.DeleteFrames("TRCK")
	case TagModify:
		tag.AddTextFrame("TRCK", id3v2.EncodingUTF8, fmt.Sprintf("%d/%d", chapter.Number, len(book.Chapters)))
	}

	// Chapter Title (TIT2)
	switch t.config.ChapterTitle {
	case TagEmpty:
		tag.SetTitle("")
	case TagModify:
		tag.SetTitle(chapter.Title)
	}

	// Language (TLAN)
	switch t.config.Language {
	case TagEmpty:
		tag.DeleteFrames("TLAN")
	case TagModify:
		if book.Language != "" {
			tag.AddTextFrame("TLAN", id3v2.EncodingUTF8, book.Language)
		}
	}

	// Genre - always set for audiobooks
	tag.SetGenre("Audiobook")
}

// updateCover embeds cover art as an attached picture frame.
func (t *Tagger) updateCover(tag *id3v2.Tag, cover []byte) {
	// Remove any existing cover pictures
	tag.DeleteFrames(tag.CommonID("Attached picture"))

	// Add new cover as front cover (APIC frame)
	pic := id3v2.PictureFrame{
		Encoding:    id3v2.EncodingUTF8,
		MimeType:    "image/jpeg",
		PictureType: id3v2.PTFrontCover,
		Description: "Cover",
		Picture:     cover,
	}
	tag.AddAttachedPicture(pic)
}
