package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strings"
	"time"
)

// Client wraps HTTP operations with CloudLibrary-specific configuration.
//
// Client provides:
//   - A cookie jar carrying the session across requests. The lending
//     backend authenticates through cookies (__config_PROD before login,
//     __session_PROD after), and every response's Set-Cookie echo is
//     absorbed automatically.
//   - A browser-like User-Agent header
//   - JSON request/response helpers
//   - Streaming file download with progress tracking
//
// Example usage:
//
//	session := NewClient()
//
//	// Authenticated JSON fetch
//	var out loansResponse
//	err := session.GetJSON(ctx, loansURL, nil, &out)
//
//	// Download a chapter with progress
//	err = session.DownloadFile(ctx, chapterURL, "/path/to/01 - Intro.mp3", nil,
//	    func(written, total int64) {
//	        fmt.Printf("%d / %d bytes\n", written, total)
//	    })
type Client struct {
	httpClient *http.Client
	// noRedirect shares the jar but reports redirects instead of
	// following them, used for session verification probes.
	noRedirect *http.Client
	userAgent  string
}

// NewClient creates a new session Client.
//
// The client is configured with:
//   - An in-memory cookie jar shared by all requests
//   - 60 second timeout
//   - A desktop browser User-Agent, which the lending backend expects
func NewClient() *Client {
	jar, _ := cookiejar.New(nil)
	base := &http.Client{
		Jar:     jar,
		Timeout: 60 * time.Second,
	}
	probe := &http.Client{
		Jar:     jar,
		Timeout: 60 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &Client{
		httpClient: base,
		noRedirect: probe,
		userAgent:  "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/140.0.0.0 Safari/537.36",
	}
}

// Cookie returns the value of a named cookie currently stored for the
// given URL, or false if the jar has no such cookie.
func (c *Client) Cookie(rawURL, name string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	for _, cookie := range c.httpClient.Jar.Cookies(u) {
		if cookie.Name == name {
			return cookie.Value, true
		}
	}
	return "", false
}

// SetCookie stores a cookie for the given URL, used to inject a
// pre-authenticated session token and skip the login flow.
func (c *Client) SetCookie(rawURL, name, value string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	c.httpClient.Jar.SetCookies(u, []*http.Cookie{{Name: name, Value: value, Path: "/"}})
	return nil
}

// Get performs a GET request and returns the response body as bytes.
//
// Extra headers are merged over the defaults. Returns an error if the
// request fails or the response status is not 200 OK.
func (c *Client) Get(ctx context.Context, url string, header http.Header) ([]byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet, url, nil, header)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode, Status: resp.Status, URL: url}
	}

	return io.ReadAll(resp.Body)
}

// GetJSON performs a GET request and decodes the JSON response into v.
func (c *Client) GetJSON(ctx context.Context, url string, header http.Header, v any) error {
	body, err := c.Get(ctx, url, header)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decoding %s: %w", url, err)
	}
	return nil
}

// GetNoRedirect performs a GET request without following redirects and
// returns the final status code. A 3xx status is returned as-is, not an
// error: session verification treats a redirect as "not logged in".
func (c *Client) GetNoRedirect(ctx context.Context, url string, header http.Header) (int, error) {
	req, err := c.newRequest(ctx, http.MethodGet, url, nil, header)
	if err != nil {
		return 0, err
	}

	resp, err := c.noRedirect.Do(req)
	if err != nil {
		return 0, err
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	return resp.StatusCode, nil
}

// PostForm performs a form-encoded POST request and returns the
// response body. Both 200 and 204 are accepted: the login endpoint
// answers 204 No Content on success.
func (c *Client) PostForm(ctx context.Context, url string, form url.Values, header http.Header) ([]byte, int, error) {
	req, err := c.newRequest(ctx, http.MethodPost, url, strings.NewReader(form.Encode()), header)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded;charset=UTF-8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}

// PostJSON performs a JSON POST request and decodes the JSON response
// into v.
func (c *Client) PostJSON(ctx context.Context, url string, payload any, header http.Header, v any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := c.newRequest(ctx, http.MethodPost, url, bytes.NewReader(data), header)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json;charset=UTF-8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &StatusError{Code: resp.StatusCode, Status: resp.Status, URL: url}
	}

	return json.NewDecoder(resp.Body).Decode(v)
}

// DownloadFile downloads a file to the specified path, streaming the
// body directly to disk.
//
// Parameters:
//   - ctx: Context for cancellation
//   - url: URL to download from
//   - destPath: Local file path to save to
//   - header: Extra headers (e.g. the distribution backend session key)
//   - onProgress: Optional callback called with (bytesWritten, totalBytes);
//     pass nil to disable progress tracking
func (c *Client) DownloadFile(ctx context.Context, url, destPath string, header http.Header, onProgress func(written, total int64)) error {
	req, err := c.newRequest(ctx, http.MethodGet, url, nil, header)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &StatusError{Code: resp.StatusCode, Status: resp.Status, URL: url}
	}

	// Stream into a temp file and rename once the body is complete, so
	// an interrupted download never leaves a truncated file under the
	// final name.
	tmpPath := destPath + ".part"
	file, err := os.Create(tmpPath)
	if err != nil {
		return err
	}

	var writer io.Writer = file
	if onProgress != nil {
		writer = &ProgressWriter{
			Writer:   file,
			Total:    resp.ContentLength,
			OnUpdate: onProgress,
		}
	}

	if _, err := io.Copy(writer, resp.Body); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, destPath)
}

// DownloadBytes downloads a file and returns the bytes in memory.
//
// Use this for small files like cover art images. For chapter audio,
// use DownloadFile to stream directly to disk.
func (c *Client) DownloadBytes(ctx context.Context, url string, header http.Header) ([]byte, error) {
	return c.Get(ctx, url, header)
}

func (c *Client) newRequest(ctx context.Context, method, url string, body io.Reader, header http.Header) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "*/*")
	for key, values := range header {
		req.Header.Del(key)
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	return req, nil
}

// StatusError reports a non-success HTTP status.
type StatusError struct {
	Code   int
	Status string
	URL    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s (%s)", e.Code, e.Status, e.URL)
}

// ProgressWriter wraps a writer to track download progress.
//
// Use this to monitor large downloads by providing an OnUpdate callback
// that receives the current bytes written and total expected bytes.
type ProgressWriter struct {
	// Writer is the underlying writer to write data to.
	Writer io.Writer

	// Total is the expected total bytes (from Content-Length header).
	Total int64

	// Written is the current number of bytes written.
	Written int64

	// OnUpdate is called after each Write with current progress.
	// Parameters are (bytesWritten, totalExpected).
	OnUpdate func(written, total int64)
}

// Write implements io.Writer, tracking progress and calling OnUpdate.
func (pw *ProgressWriter) Write(p []byte) (int, error) {
	n, err := pw.Writer.Write(p)
	pw.Written += int64(n)
	if pw.OnUpdate != nil {
		pw.OnUpdate(pw.Written, pw.Total)
	}
	return n, err
}
