// Package audio provides audio file manipulation services including
// ID3 tag writing and playlist generation.
//
// # ID3 Tagging
//
// Use the Tagger to write ID3 tags to downloaded chapter files:
//
//	tagger := audio.NewTagger(audio.DefaultTagConfig())
//	err := tagger.SaveTags(chapter, book, coverBytes)
//
// The tagger supports:
//   - Artist (authors), Album Artist (narrators)
//   - Album Title (book title), Chapter Title
//   - Track Number, Language
//   - Cover Art (embedded in MP3)
//
// # Playlist Generation
//
// Generate an M3U playlist for a book's chapters:
//
//	creator := audio.NewPlaylistCreator(true) // extended M3U
//	content := creator.CreatePlaylist(book)
//	os.WriteFile(filepath.Join(book.Path, book.ID+".m3u"), []byte(content), 0644)
package audio
