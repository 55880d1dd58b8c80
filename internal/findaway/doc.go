// Package findaway implements the client for the Findaway audio
// distribution API, the backend that actually serves audiobook chapter
// files for CloudLibrary loans.
//
// Authentication is a bearer-style Session-Key header obtained from the
// CloudLibrary fulfillment endpoint; there is no cookie state. Each
// fulfillment gets its own short-lived client.
//
// The playlist returned by Playlist is ordered and pairs positionally
// with the fulfillment item list: entry N is the download URL for
// chapter N. The API exposes no per-entry ids, so the pairing cannot be
// cross-checked beyond comparing lengths.
package findaway
