package cloudlibrary

import (
	"context"
	"errors"
	nethttp "net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/handiism/cloudlibrary-downloader/internal/http"
)

// newTestClient wires a Client against an httptest server standing in
// for both the lending and the audio host.
func newTestClient(t *testing.T, handler nethttp.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := New(http.NewClient(), "testlib")
	c.BaseURL = srv.URL
	c.AudioBaseURL = srv.URL
	return c
}

func TestBootstrap(t *testing.T) {
	t.Run("config cookie set", func(t *testing.T) {
		c := newTestClient(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
			nethttp.SetCookie(w, &nethttp.Cookie{Name: ConfigCookie, Value: "cfg", Path: "/"})
		}))

		if err := c.Bootstrap(context.Background()); err != nil {
			t.Fatalf("Bootstrap() error = %v", err)
		}
	})

	t.Run("config cookie missing", func(t *testing.T) {
		c := newTestClient(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {}))

		err := c.Bootstrap(context.Background())
		var authErr *AuthError
		if !errors.As(err, &authErr) {
			t.Fatalf("Bootstrap() error = %v, want AuthError", err)
		}
	})
}

func TestLogin(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		c := newTestClient(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
			if err := r.ParseForm(); err != nil {
				t.Fatal(err)
			}
			if r.PostForm.Get("action") != "login" || r.PostForm.Get("barcode") != "12345678" ||
				r.PostForm.Get("pin") != "0000" || r.PostForm.Get("library") != "testlib" {
				t.Errorf("unexpected login form: %v", r.PostForm)
			}
			w.WriteHeader(nethttp.StatusNoContent)
		}))

		if err := c.Login(context.Background(), "12345678", "0000"); err != nil {
			t.Fatalf("Login() error = %v", err)
		}
	})

	t.Run("rejected", func(t *testing.T) {
		c := newTestClient(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
			w.WriteHeader(nethttp.StatusUnauthorized)
		}))

		err := c.Login(context.Background(), "12345678", "wrong")
		var authErr *AuthError
		if !errors.As(err, &authErr) {
			t.Fatalf("Login() error = %v, want AuthError", err)
		}
	})
}

func TestSetSessionCookie_CoversAudioHost(t *testing.T) {
	// The jar scopes injected cookies to their host, and the lending
	// site and the fulfillment endpoint live on different subdomains.
	c := New(http.NewClient(), "testlib")

	if err := c.SetSessionCookie("tok"); err != nil {
		t.Fatalf("SetSessionCookie() error = %v", err)
	}

	for _, base := range []string{c.BaseURL, c.AudioBaseURL} {
		if v, ok := c.session.Cookie(base, SessionCookie); !ok || v != "tok" {
			t.Errorf("session cookie for %s = %q, %v; want \"tok\", true", base, v, ok)
		}
	}
}

func TestVerifySession(t *testing.T) {
	t.Run("redirect means not logged in", func(t *testing.T) {
		c := newTestClient(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
			nethttp.Redirect(w, r, "/login", nethttp.StatusFound)
		}))

		err := c.VerifySession(context.Background())
		var authErr *AuthError
		if !errors.As(err, &authErr) {
			t.Fatalf("VerifySession() error = %v, want AuthError", err)
		}
	})

	t.Run("session cookie missing", func(t *testing.T) {
		c := newTestClient(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {}))

		err := c.VerifySession(context.Background())
		var authErr *AuthError
		if !errors.As(err, &authErr) {
			t.Fatalf("VerifySession() error = %v, want AuthError", err)
		}
	})

	t.Run("valid session", func(t *testing.T) {
		c := newTestClient(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
			nethttp.SetCookie(w, &nethttp.Cookie{Name: SessionCookie, Value: "sess", Path: "/"})
		}))

		if err := c.VerifySession(context.Background()); err != nil {
			t.Fatalf("VerifySession() error = %v", err)
		}
	})
}

func TestCurrentLoans(t *testing.T) {
	t.Run("parses patron items", func(t *testing.T) {
		c := newTestClient(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
			if r.Method != nethttp.MethodPost {
				t.Errorf("method = %s, want POST", r.Method)
			}
			if err := r.ParseForm(); err != nil {
				t.Fatal(err)
			}
			if got := r.PostForm.Get("sort"); got != "BorrowedDateDescending" {
				t.Errorf("sort = %q", got)
			}
			w.Write([]byte(`{"patronItems":[
				{"itemId":"aaa111","title":"First","mediaType":"Mp3","status":"LOANED"},
				{"itemId":"bbb222","title":"Second","mediaType":"EPUB","status":"LOANED"}
			]}`))
		}))

		loans, err := c.CurrentLoans(context.Background())
		if err != nil {
			t.Fatalf("CurrentLoans() error = %v", err)
		}
		if len(loans) != 2 {
			t.Fatalf("got %d loans, want 2", len(loans))
		}
		if loans[0].ItemID != "aaa111" || !loans[0].IsAudiobook() {
			t.Errorf("loans[0] = %+v", loans[0])
		}
		if loans[1].IsAudiobook() {
			t.Errorf("EPUB loan reported as audiobook")
		}
	})

	t.Run("missing patronItems", func(t *testing.T) {
		c := newTestClient(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
			w.Write([]byte(`{"something":"else"}`))
		}))

		_, err := c.CurrentLoans(context.Background())
		var nf *NotFoundError
		if !errors.As(err, &nf) {
			t.Fatalf("CurrentLoans() error = %v, want NotFoundError", err)
		}
	})
}

func TestItemDetail(t *testing.T) {
	t.Run("book present", func(t *testing.T) {
		c := newTestClient(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
			w.Write([]byte(`{"book":{"itemId":"abcd123","title":"Midnight","SubTitle":"A Novel","isbn":"978","mediaType":"Mp3","status":"CAN_LOAN"}}`))
		}))

		book, err := c.ItemDetail(context.Background(), "abcd123")
		if err != nil {
			t.Fatalf("ItemDetail() error = %v", err)
		}
		if book.Title != "Midnight" || book.Subtitle != "A Novel" || !book.CanLoan() {
			t.Errorf("book = %+v", book)
		}
		if len(book.Raw) == 0 {
			t.Error("raw record not preserved")
		}
	})

	t.Run("book missing dumps response", func(t *testing.T) {
		t.Chdir(t.TempDir())
		c := newTestClient(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
			w.Write([]byte(`{"unexpected":"shape"}`))
		}))

		_, err := c.ItemDetail(context.Background(), "abcd123")
		var nf *NotFoundError
		if !errors.As(err, &nf) {
			t.Fatalf("ItemDetail() error = %v, want NotFoundError", err)
		}
		if nf.DumpPath == "" {
			t.Fatal("diagnostic dump path not set")
		}
		if _, err := os.Stat(nf.DumpPath); err != nil {
			t.Errorf("diagnostic dump not written: %v", err)
		}
	})
}

func TestBorrow(t *testing.T) {
	tests := []struct {
		name      string
		response  string
		wantLimit bool
		wantAPI   bool
	}{
		{"success", `{"status":"OK"}`, false, false},
		{"loan limit", `{"error":{"reaktorErrorMessage":"TOO_MANY_LOANS","msg":"Too many loans"}}`, true, false},
		{"other error", `{"error":{"msg":"item not loanable"}}`, false, true},
		{"failed status", `{"status":"FAILED"}`, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
				if got := r.URL.Query().Get("action"); got != "borrow" {
					t.Errorf("action = %q, want borrow", got)
				}
				w.Write([]byte(tt.response))
			}))

			err := c.Borrow(context.Background(), "abcd123")

			if tt.wantLimit {
				if !errors.Is(err, ErrLoanLimit) {
					t.Fatalf("Borrow() error = %v, want ErrLoanLimit", err)
				}
				return
			}
			if tt.wantAPI {
				var apiErr *APIError
				if !errors.As(err, &apiErr) {
					t.Fatalf("Borrow() error = %v, want APIError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Borrow() error = %v", err)
			}
		})
	}
}

func TestReturn_LoanLimitNotSpecial(t *testing.T) {
	// TOO_MANY_LOANS only has retry semantics for borrow; a return
	// reporting it is just a failure.
	c := newTestClient(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Write([]byte(`{"error":{"reaktorErrorMessage":"TOO_MANY_LOANS"}}`))
	}))

	err := c.Return(context.Background(), "abcd123")
	if errors.Is(err, ErrLoanLimit) {
		t.Fatal("Return() classified as ErrLoanLimit")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Return() error = %v, want APIError", err)
	}
}

func TestFulfillment(t *testing.T) {
	c := newTestClient(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.URL.Path != "/listen/abcd123" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write([]byte(`{"audiobook":{
			"fulfillmentId":"ful-1","accountId":"acct-1","sessionKey":"sk-1","licenseId":"lic-1",
			"items":[{"title":"Opening","duration":120.5},{"title":"Chapter One"}]
		}}`))
	}))

	f, err := c.Fulfillment(context.Background(), "abcd123")
	if err != nil {
		t.Fatalf("Fulfillment() error = %v", err)
	}
	if f.FulfillmentID != "ful-1" || f.AccountID != "acct-1" || f.SessionKey != "sk-1" || f.LicenseID != "lic-1" {
		t.Errorf("fulfillment = %+v", f)
	}
	if len(f.Items) != 2 || f.Items[0].Title != "Opening" {
		t.Errorf("items = %+v", f.Items)
	}
	if len(f.ItemsRaw) == 0 {
		t.Error("raw item list not preserved")
	}
}
