package findaway

import (
	"context"
	"encoding/json"
	"fmt"
	nethttp "net/http"

	"github.com/handiism/cloudlibrary-downloader/internal/http"
)

const defaultBaseURL = "https://api.findawayworld.com"

// Client talks to the Findaway audio distribution API for one
// fulfilled loan. Unlike the lending backend it is not cookie
// authenticated: every request carries the fulfillment session key in a
// Session-Key header, cross-origin.
//
// A Client is created per download, because the session key is scoped
// to a single fulfillment:
//
//	f, _ := lib.Fulfillment(ctx, itemID)
//	fw := findaway.New(session, f.SessionKey)
//	meta, _ := fw.Audiobook(ctx, f.AccountID, f.FulfillmentID)
//	playlist, _ := fw.Playlist(ctx, f.FulfillmentID, f.LicenseID)
type Client struct {
	session    *http.Client
	sessionKey string

	// BaseURL points at the distribution API. Overridden only in tests.
	BaseURL string
}

// New creates a Client presenting the given fulfillment session key.
func New(session *http.Client, sessionKey string) *Client {
	return &Client{
		session:    session,
		sessionKey: sessionKey,
		BaseURL:    defaultBaseURL,
	}
}

// Audiobook is the extended metadata record for a fulfilled audiobook.
// It is refetched for every download, never cached.
type Audiobook struct {
	Authors   []string `json:"authors"`
	Narrators []string `json:"narrators"`
	Language  string   `json:"language"`
	CoverURL  string   `json:"cover_url"`
	Series    []string `json:"series"`

	// Raw preserves the full wire record for the metadata dump.
	Raw json.RawMessage `json:"-"`
}

// PlaylistEntry is one chapter download URL in a generated playlist.
type PlaylistEntry struct {
	URL string `json:"url"`
}

// header returns the headers attached to every distribution API
// request.
func (c *Client) header() nethttp.Header {
	return nethttp.Header{
		"Session-Key": {c.sessionKey},
		"Accept":      {"*/*"},
	}
}

// Audiobook fetches the full metadata record for a fulfillment.
func (c *Client) Audiobook(ctx context.Context, accountID, fulfillmentID string) (Audiobook, error) {
	url := fmt.Sprintf("%s/v4/accounts/%s/audiobooks/%s", c.BaseURL, accountID, fulfillmentID)

	var envelope struct {
		Audiobook json.RawMessage `json:"audiobook"`
	}
	if err := c.session.GetJSON(ctx, url, c.header(), &envelope); err != nil {
		return Audiobook{}, fmt.Errorf("audiobook metadata request: %w", err)
	}
	if len(envelope.Audiobook) == 0 || string(envelope.Audiobook) == "null" {
		return Audiobook{}, fmt.Errorf("audiobook metadata request: no audiobook record in response")
	}

	var book Audiobook
	if err := json.Unmarshal(envelope.Audiobook, &book); err != nil {
		return Audiobook{}, fmt.Errorf("decoding audiobook metadata: %w", err)
	}
	book.Raw = envelope.Audiobook
	return book, nil
}

// Playlist generates the ordered chapter playlist for a fulfillment.
// The license id from the fulfillment credentials goes in the request
// body.
func (c *Client) Playlist(ctx context.Context, fulfillmentID, licenseID string) ([]PlaylistEntry, error) {
	url := fmt.Sprintf("%s/v4/audiobooks/%s/playlists", c.BaseURL, fulfillmentID)
	payload := map[string]string{"license_id": licenseID}

	var envelope struct {
		Playlist []PlaylistEntry `json:"playlist"`
	}
	if err := c.session.PostJSON(ctx, url, payload, c.header(), &envelope); err != nil {
		return nil, fmt.Errorf("playlist request: %w", err)
	}
	if envelope.Playlist == nil {
		return nil, fmt.Errorf("playlist request: no playlist in response")
	}
	return envelope.Playlist, nil
}

// DownloadHeader returns the headers chapter downloads must carry. The
// chapter URLs point at the distribution CDN, which checks the same
// session key.
func (c *Client) DownloadHeader() nethttp.Header {
	return c.header()
}
