// Package cloudlibrary implements the API client for the CloudLibrary
// lending backend and its audio fulfillment host.
//
// The backend is a cookie-authenticated web app, not a documented API:
// every operation here mirrors a request the web player issues,
// including the Remix-style "_data" route parameters. Two cookies carry
// the session: __config_PROD, obtained anonymously from the landing
// page, and __session_PROD, set on login.
//
// # Session Lifecycle
//
//	lib := cloudlibrary.New(session, "examplelib")
//	lib.Bootstrap(ctx)          // anonymous config cookie
//	lib.Login(ctx, barcode, pin)
//	lib.VerifySession(ctx)      // probe; login alone proves nothing
//
// A pre-authenticated session token can replace Login:
//
//	lib.SetSessionCookie(token)
//	lib.VerifySession(ctx)
//
// # Errors
//
// Failures use one taxonomy throughout: AuthError aborts the run,
// NotFoundError marks a response missing its expected record,
// ErrLoanLimit flags a borrow rejected on quota so the caller can retry
// after returning something, and APIError carries any other
// server-reported borrow/return failure.
package cloudlibrary
