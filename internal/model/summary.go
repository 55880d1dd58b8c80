package model

// Summary is the normalized metadata record computed after a download.
//
// It merges the brief lending-site record with the extended
// distribution-backend metadata into the compact shape used by library
// management tools.
type Summary struct {
	Authors     []string `json:"authors"`
	Title       string   `json:"title"`
	ISBN        string   `json:"isbn"`
	Description string   `json:"description"`
	Narrators   []string `json:"narrator"`
	Language    string   `json:"language"`
	Thumbnail   string   `json:"thumbnail"`
	Series      []Series `json:"series"`
}

// Summarize builds the normalized Summary for a book.
func Summarize(b *Book) Summary {
	return Summary{
		Authors:     b.Authors,
		Title:       b.ComposedTitle(),
		ISBN:        b.ISBN,
		Description: b.Description,
		Narrators:   b.Narrators,
		Language:    b.Language,
		Thumbnail:   b.CoverURL,
		Series:      b.Series,
	}
}
