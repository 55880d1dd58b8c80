package findaway

import (
	"context"
	"encoding/json"
	nethttp "net/http"
	"net/http/httptest"
	"testing"

	"github.com/handiism/cloudlibrary-downloader/internal/http"
)

func newTestClient(t *testing.T, handler nethttp.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := New(http.NewClient(), "sk-test")
	c.BaseURL = srv.URL
	return c
}

func TestAudiobook(t *testing.T) {
	c := newTestClient(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if got := r.Header.Get("Session-Key"); got != "sk-test" {
			t.Errorf("Session-Key = %q", got)
		}
		if r.URL.Path != "/v4/accounts/acct-1/audiobooks/ful-1" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write([]byte(`{"audiobook":{
			"authors":["Jane Doe"],"narrators":["John Reader"],
			"language":"en","cover_url":"https://img.example.com/c.jpg",
			"series":["Nightfall #2"],"favorite_color":"unmodeled"
		}}`))
	}))

	book, err := c.Audiobook(context.Background(), "acct-1", "ful-1")
	if err != nil {
		t.Fatalf("Audiobook() error = %v", err)
	}
	if len(book.Authors) != 1 || book.Authors[0] != "Jane Doe" {
		t.Errorf("Authors = %v", book.Authors)
	}
	if book.CoverURL != "https://img.example.com/c.jpg" {
		t.Errorf("CoverURL = %q", book.CoverURL)
	}

	// Unmodeled fields must survive in Raw for the metadata dump.
	var raw map[string]any
	if err := json.Unmarshal(book.Raw, &raw); err != nil {
		t.Fatalf("Raw not valid JSON: %v", err)
	}
	if raw["favorite_color"] != "unmodeled" {
		t.Errorf("raw record lost unmodeled field: %v", raw)
	}
}

func TestAudiobook_MissingRecord(t *testing.T) {
	c := newTestClient(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Write([]byte(`{}`))
	}))

	if _, err := c.Audiobook(context.Background(), "acct-1", "ful-1"); err == nil {
		t.Fatal("Audiobook() expected error on missing record")
	}
}

func TestPlaylist(t *testing.T) {
	c := newTestClient(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		var payload map[string]string
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatal(err)
		}
		if payload["license_id"] != "lic-1" {
			t.Errorf("license_id = %q", payload["license_id"])
		}
		w.Write([]byte(`{"playlist":[
			{"url":"https://cdn.example.com/1.mp3"},
			{"url":"https://cdn.example.com/2.mp3"}
		]}`))
	}))

	playlist, err := c.Playlist(context.Background(), "ful-1", "lic-1")
	if err != nil {
		t.Fatalf("Playlist() error = %v", err)
	}
	if len(playlist) != 2 || playlist[1].URL != "https://cdn.example.com/2.mp3" {
		t.Errorf("playlist = %+v", playlist)
	}
}
