package dto

import "encoding/json"

// Book is the brief per-item record used by both the loan list and the
// detail endpoint. The lending backend serves the same shape in both
// places, down to the odd capitalization of SubTitle.
type Book struct {
	ItemID      string `json:"itemId"`
	Title       string `json:"title"`
	Subtitle    string `json:"SubTitle"`
	ISBN        string `json:"isbn"`
	Description string `json:"description"`
	MediaType   string `json:"mediaType"`
	Status      string `json:"status"`

	// Raw preserves the full wire record so the metadata dump can merge
	// fields this client does not model.
	Raw json.RawMessage `json:"-"`
}

// ParseBook decodes a raw book record, keeping the original bytes.
func ParseBook(raw json.RawMessage) (Book, error) {
	var b Book
	if err := json.Unmarshal(raw, &b); err != nil {
		return Book{}, err
	}
	b.Raw = raw
	return b, nil
}

// IsAudiobook reports whether the item is a downloadable MP3 audiobook.
func (b Book) IsAudiobook() bool {
	return b.MediaType == "Mp3"
}

// CanLoan reports whether the catalog allows borrowing this item.
func (b Book) CanLoan() bool {
	return b.Status == "CAN_LOAN"
}
