// Package http provides the session HTTP client shared by the API
// clients in this module.
//
// The Client in this package handles:
//   - Cookie-jar session state across the lending and fulfillment hosts
//   - Browser-like User-Agent headers the backends expect
//   - JSON and form-encoded request helpers
//   - Streaming file downloads with progress tracking
//
// # Basic Usage
//
//	session := http.NewClient()
//
//	// Inject a pre-authenticated session cookie
//	session.SetCookie("https://ebook.yourcloudlibrary.com", "__session_PROD", token)
//
//	// Download a chapter with progress callback
//	session.DownloadFile(ctx, chapterURL, "/path/to/01 - Intro.mp3", nil,
//	    func(written, total int64) { /* update UI */ })
//
// The same Client instance must be used for the whole run: the lending
// backend identifies the session purely through its cookies.
package http
