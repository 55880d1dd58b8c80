// Package download provides the download orchestration logic for
// fetching loaned audiobooks from CloudLibrary.
//
// # Manager
//
// The Manager coordinates the entire download process:
//
//  1. Refresh the loan cache from the lending backend
//  2. Borrow the requested item if it is not already on loan
//  3. Fetch fulfillment credentials and distribution metadata
//  4. Request the chapter playlist and pair it with the chapter titles
//  5. Download cover image and chapter files
//  6. Tag chapter files with ID3 metadata
//  7. Generate an M3U playlist and metadata dump (optional)
//  8. Return the book (optional)
//
// # Basic Usage
//
//	manager := download.NewManager(settings, session, library, func(event download.ProgressEvent) {
//	    fmt.Println(event.Message)
//	})
//
//	results, err := manager.Run(ctx, itemID)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Passing an empty item id downloads every MP3 audiobook currently on
// loan instead of a single title.
//
// # Loan Limit Handling
//
// When a borrow fails because the account's loan quota is reached, the
// Manager returns one currently loaned book and retries the borrow one
// time. Any further failure is reported to the caller.
//
// # Progress Tracking
//
// Progress is reported via a callback function that receives
// ProgressEvent values with a message and a severity level. Byte and
// chapter counters are available through GetProgress for UIs that poll.
package download
