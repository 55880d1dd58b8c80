package cloudlibrary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	nethttp "net/http"
	"net/url"
	"os"

	"github.com/handiism/cloudlibrary-downloader/internal/cloudlibrary/dto"
	"github.com/handiism/cloudlibrary-downloader/internal/http"
)

const (
	defaultBaseURL      = "https://ebook.yourcloudlibrary.com"
	defaultAudioBaseURL = "https://audio.yourcloudlibrary.com"

	// ConfigCookie is set by the landing page before login.
	ConfigCookie = "__config_PROD"

	// SessionCookie is set after a successful login and authenticates
	// every subsequent request.
	SessionCookie = "__session_PROD"

	// defaultLoanSort is the loan list order requested from the backend.
	defaultLoanSort = "BorrowedDateDescending"

	// metadataErrorDump is where an unexpected detail response is
	// persisted for diagnosis.
	metadataErrorDump = "metadata_error_dump.json"
)

// Client talks to the CloudLibrary lending backend and its audio
// fulfillment host for one library.
//
// All state lives in the shared session client's cookie jar; Client
// itself is stateless. Call Bootstrap before anything else, then Login
// (or inject a session cookie via SetSessionCookie) followed by
// VerifySession.
//
// Example:
//
//	session := http.NewClient()
//	lib := cloudlibrary.New(session, "examplelib")
//
//	if err := lib.Bootstrap(ctx); err != nil { ... }
//	if err := lib.Login(ctx, barcode, pin); err != nil { ... }
//	if err := lib.VerifySession(ctx); err != nil { ... }
//
//	loans, err := lib.CurrentLoans(ctx)
type Client struct {
	session *http.Client
	library string

	// BaseURL and AudioBaseURL point at the lending site and its audio
	// fulfillment host. They are set by New and only overridden in
	// tests against local servers.
	BaseURL      string
	AudioBaseURL string
}

// New creates a Client for the named library on top of a session
// client. The same session must be shared with the findaway client so
// chapter downloads reuse the established cookies.
func New(session *http.Client, library string) *Client {
	return &Client{
		session:      session,
		library:      library,
		BaseURL:      defaultBaseURL,
		AudioBaseURL: defaultAudioBaseURL,
	}
}

// Library returns the library name this client is bound to.
func (c *Client) Library() string {
	return c.library
}

// Bootstrap fetches the landing page to obtain the anonymous config
// cookie. Required before any other call; the login endpoint rejects
// requests without it.
func (c *Client) Bootstrap(ctx context.Context) error {
	landing := fmt.Sprintf("%s/library/%s/featured", c.BaseURL, c.library)
	if _, err := c.session.Get(ctx, landing, nil); err != nil {
		return fmt.Errorf("fetching landing page: %w", err)
	}

	if _, ok := c.session.Cookie(c.BaseURL, ConfigCookie); !ok {
		return &AuthError{Reason: ConfigCookie + " cookie not set after landing page request"}
	}
	return nil
}

// SetSessionCookie injects a pre-authenticated session token, skipping
// Login. VerifySession still applies.
//
// A login response sets the cookie for the whole domain; an injected
// one is host-scoped by the jar, so it is registered for both the
// lending site and the audio fulfillment host.
func (c *Client) SetSessionCookie(token string) error {
	if err := c.session.SetCookie(c.BaseURL, SessionCookie, token); err != nil {
		return err
	}
	return c.session.SetCookie(c.AudioBaseURL, SessionCookie, token)
}

// Login posts the patron credentials. A non-success status yields an
// AuthError. Login does not confirm the session is usable; call
// VerifySession afterwards.
func (c *Client) Login(ctx context.Context, barcode, pin string) error {
	form := url.Values{
		"action":  {"login"},
		"barcode": {barcode},
		"pin":     {pin},
		"library": {c.library},
	}

	header := nethttp.Header{
		"Referer": {fmt.Sprintf("%s/library/%s/featured", c.BaseURL, c.library)},
	}

	_, status, err := c.session.PostForm(ctx, c.BaseURL+"/?_data=root", form, header)
	if err != nil {
		return fmt.Errorf("login request: %w", err)
	}
	if status != nethttp.StatusOK && status != nethttp.StatusNoContent {
		return &AuthError{Reason: fmt.Sprintf("login failed with status %d", status)}
	}
	return nil
}

// VerifySession probes an authenticated-only endpoint. A redirect means
// the backend bounced us to the login page; a missing session cookie
// means login never took. Either way the session is unusable.
func (c *Client) VerifySession(ctx context.Context) error {
	probe := fmt.Sprintf("%s/library/%s/mybooks/current", c.BaseURL, c.library)
	status, err := c.session.GetNoRedirect(ctx, probe, nil)
	if err != nil {
		return fmt.Errorf("session probe: %w", err)
	}
	if status >= 300 && status < 400 {
		return &AuthError{Reason: "redirected to login page"}
	}
	if _, ok := c.session.Cookie(c.BaseURL, SessionCookie); !ok {
		return &AuthError{Reason: SessionCookie + " cookie not set"}
	}
	return nil
}

// CurrentLoans fetches the full list of items currently on loan,
// newest first.
func (c *Client) CurrentLoans(ctx context.Context) ([]dto.Book, error) {
	loansURL := fmt.Sprintf("%s/library/%s/mybooks/current?_data=routes/library.$name.mybooks.current",
		c.BaseURL, c.library)
	form := url.Values{
		"format": {""},
		"sort":   {defaultLoanSort},
	}
	header := nethttp.Header{
		"Referer": {fmt.Sprintf("%s/library/%s/mybooks/current", c.BaseURL, c.library)},
	}

	body, status, err := c.session.PostForm(ctx, loansURL, form, header)
	if err != nil {
		return nil, fmt.Errorf("loan list request: %w", err)
	}
	if status != nethttp.StatusOK {
		return nil, fmt.Errorf("loan list request: unexpected status %d", status)
	}

	var envelope struct {
		PatronItems []json.RawMessage `json:"patronItems"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decoding loan list: %w", err)
	}
	if envelope.PatronItems == nil {
		return nil, &NotFoundError{Key: "patronItems"}
	}

	loans := make([]dto.Book, 0, len(envelope.PatronItems))
	for _, raw := range envelope.PatronItems {
		book, err := dto.ParseBook(raw)
		if err != nil {
			return nil, fmt.Errorf("decoding loan entry: %w", err)
		}
		loans = append(loans, book)
	}
	return loans, nil
}

// ItemDetail fetches the brief catalog record for one item. A response
// without the expected book record is persisted to
// metadata_error_dump.json and reported as a NotFoundError.
func (c *Client) ItemDetail(ctx context.Context, itemID string) (dto.Book, error) {
	detailURL := fmt.Sprintf("%s/library/%s/detail/%s?_data", c.BaseURL, c.library, itemID)
	header := nethttp.Header{
		"Referer": {fmt.Sprintf("%s/library/%s/mybooks/current", c.BaseURL, c.library)},
	}

	body, err := c.session.Get(ctx, detailURL, header)
	if err != nil {
		var se *http.StatusError
		if errors.As(err, &se) && se.Code == nethttp.StatusForbidden {
			return dto.Book{}, &AuthError{Reason: "403 on item detail, session cookies likely expired"}
		}
		return dto.Book{}, fmt.Errorf("item detail request: %w", err)
	}

	var envelope struct {
		Book json.RawMessage `json:"book"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return dto.Book{}, fmt.Errorf("decoding item detail: %w", err)
	}
	if len(envelope.Book) == 0 || string(envelope.Book) == "null" {
		dumpPath := metadataErrorDump
		if err := os.WriteFile(dumpPath, body, 0644); err != nil {
			dumpPath = ""
		}
		return dto.Book{}, &NotFoundError{Key: "book", DumpPath: dumpPath}
	}

	book, err := dto.ParseBook(envelope.Book)
	if err != nil {
		return dto.Book{}, fmt.Errorf("decoding book record: %w", err)
	}
	return book, nil
}

// Borrow requests a loan for the item. A quota failure is reported as
// ErrLoanLimit so the caller can apply its return-and-retry policy;
// any other server-reported failure is an APIError.
func (c *Client) Borrow(ctx context.Context, itemID string) error {
	return c.doAction(ctx, "borrow", itemID)
}

// Return releases an existing loan for the item.
func (c *Client) Return(ctx context.Context, itemID string) error {
	return c.doAction(ctx, "return", itemID)
}

func (c *Client) doAction(ctx context.Context, action, itemID string) error {
	query := url.Values{
		"action": {action},
		"itemId": {itemID},
		"_data":  {"routes/library.$name.detail.$id"},
	}
	actionURL := fmt.Sprintf("%s/library/%s/detail/%s?%s", c.BaseURL, c.library, itemID, query.Encode())
	header := nethttp.Header{
		"Referer": {fmt.Sprintf("%s/library/%s/detail/%s", c.BaseURL, c.library, itemID)},
	}

	body, err := c.session.Get(ctx, actionURL, header)
	if err != nil {
		return fmt.Errorf("%s request: %w", action, err)
	}

	var resp dto.ActionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("decoding %s response: %w", action, err)
	}

	if action == "borrow" && resp.IsLoanLimit() {
		return fmt.Errorf("borrow %s: %w", itemID, ErrLoanLimit)
	}
	if resp.Failed() {
		return &APIError{Op: action, Message: resp.Message()}
	}
	return nil
}

// Fulfillment fetches the distribution-backend credentials and the
// ordered chapter item list for a loaned item from the audio host.
func (c *Client) Fulfillment(ctx context.Context, itemID string) (dto.Fulfillment, error) {
	listenURL := fmt.Sprintf("%s/listen/%s?_data=routes/listen.$id", c.AudioBaseURL, itemID)
	header := nethttp.Header{
		"Referer": {c.BaseURL + "/"},
	}

	body, err := c.session.Get(ctx, listenURL, header)
	if err != nil {
		return dto.Fulfillment{}, fmt.Errorf("fulfillment request: %w", err)
	}

	fulfillment, ok, err := dto.ParseFulfillment(body)
	if err != nil {
		return dto.Fulfillment{}, fmt.Errorf("decoding fulfillment: %w", err)
	}
	if !ok {
		return dto.Fulfillment{}, &NotFoundError{Key: "audiobook"}
	}
	return fulfillment, nil
}
