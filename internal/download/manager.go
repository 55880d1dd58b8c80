package download

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/handiism/cloudlibrary-downloader/internal/audio"
	"github.com/handiism/cloudlibrary-downloader/internal/cloudlibrary"
	"github.com/handiism/cloudlibrary-downloader/internal/cloudlibrary/dto"
	"github.com/handiism/cloudlibrary-downloader/internal/config"
	"github.com/handiism/cloudlibrary-downloader/internal/findaway"
	"github.com/handiism/cloudlibrary-downloader/internal/http"
	ioutils "github.com/handiism/cloudlibrary-downloader/internal/io"
	"github.com/handiism/cloudlibrary-downloader/internal/model"
	"golang.org/x/sync/errgroup"
)

// ProgressLevel indicates the severity/type of a progress message.
type ProgressLevel int

const (
	LevelInfo ProgressLevel = iota
	LevelVerbose
	LevelWarning
	LevelError
	LevelSuccess
)

// ProgressEvent represents a download progress update.
type ProgressEvent struct {
	Message string
	Level   ProgressLevel
}

// Result describes one completed audiobook download.
type Result struct {
	// ItemID is the CloudLibrary item identifier.
	ItemID string

	// Title is the composed display title.
	Title string

	// Dir is the directory the chapter files were written to.
	Dir string

	// Summary is the normalized metadata record for the book.
	Summary model.Summary
}

// Manager coordinates audiobook loans and downloads.
//
// It owns the loan cache: a wholesale mirror of the backend's current
// loan list, replaced on every refresh and refreshed after every borrow
// or return. An item must appear in the cache before its chapters can
// be fetched.
type Manager struct {
	settings *config.Settings
	session  *http.Client
	library  *cloudlibrary.Client
	tagger   *audio.Tagger
	playlist *audio.PlaylistCreator
	images   *ioutils.ImageService

	// findawayBaseURL overrides the distribution API endpoint in tests.
	findawayBaseURL string

	// loanCache maps item id to its brief loan record; loanOrder keeps
	// the backend's list order for stable iteration and eviction.
	loanCache map[string]dto.Book
	loanOrder []string

	totalChapters      int32
	downloadedChapters int32
	receivedBytes      int64

	onProgress func(ProgressEvent)
}

// NewManager creates a Manager on top of an authenticated library
// client. The session must be the same one the library client uses, so
// chapter downloads share its cookies.
func NewManager(settings *config.Settings, session *http.Client, library *cloudlibrary.Client, onProgress func(ProgressEvent)) *Manager {
	return &Manager{
		settings:   settings,
		session:    session,
		library:    library,
		tagger:     audio.NewTagger(audio.DefaultTagConfig()),
		playlist:   audio.NewPlaylistCreator(settings.M3UExtended),
		images:     ioutils.NewImageService(),
		loanCache:  make(map[string]dto.Book),
		onProgress: onProgress,
	}
}

// RefreshLoanCache fetches the current loan list and replaces the
// cache wholesale. Stale entries are dropped, not merged.
func (m *Manager) RefreshLoanCache(ctx context.Context) error {
	loans, err := m.library.CurrentLoans(ctx)
	if err != nil {
		return fmt.Errorf("refreshing loan cache: %w", err)
	}

	m.loanCache = make(map[string]dto.Book, len(loans))
	m.loanOrder = m.loanOrder[:0]
	for _, loan := range loans {
		if loan.ItemID == "" {
			continue
		}
		m.loanCache[loan.ItemID] = loan
		m.loanOrder = append(m.loanOrder, loan.ItemID)
	}

	m.progress(ProgressEvent{Message: fmt.Sprintf("Cached %d loaned books", len(m.loanCache)), Level: LevelVerbose})
	return nil
}

// Loans returns the cached loan records in backend order.
func (m *Manager) Loans() []dto.Book {
	loans := make([]dto.Book, 0, len(m.loanOrder))
	for _, id := range m.loanOrder {
		loans = append(loans, m.loanCache[id])
	}
	return loans
}

// IsOnLoan reports whether the item is in the loan cache.
func (m *Manager) IsOnLoan(itemID string) bool {
	_, ok := m.loanCache[itemID]
	return ok
}

// BriefMetadata returns the brief record for an item, from the loan
// cache when possible. A cache miss falls through to the detail
// endpoint; the cache stays a mirror of the loan list and is not
// populated from detail lookups.
func (m *Manager) BriefMetadata(ctx context.Context, itemID string, useCache bool) (dto.Book, error) {
	if useCache {
		if book, ok := m.loanCache[itemID]; ok {
			return book, nil
		}
	}
	return m.library.ItemDetail(ctx, itemID)
}

// Borrow requests a loan for the item, applying the loan-limit
// fallback: when the backend reports the quota is hit and the cache
// holds at least one loan, one arbitrary cached loan is returned, the
// cache refreshed, and the borrow retried exactly once. An empty cache
// or any other failure is final.
func (m *Manager) Borrow(ctx context.Context, itemID string) error {
	// Bounded loop rather than recursion; at most one retry.
	for attempt := 0; ; attempt++ {
		err := m.library.Borrow(ctx, itemID)
		if err == nil {
			return nil
		}
		if attempt > 0 || !errors.Is(err, cloudlibrary.ErrLoanLimit) {
			return err
		}
		if len(m.loanOrder) == 0 {
			return fmt.Errorf("nothing to return: %w", err)
		}

		evict := m.loanOrder[0]
		m.progress(ProgressEvent{Message: fmt.Sprintf("Loan limit reached, returning %s", evict), Level: LevelWarning})
		if rerr := m.library.Return(ctx, evict); rerr != nil {
			return fmt.Errorf("returning %s to free a loan slot: %w", evict, rerr)
		}
		if rerr := m.RefreshLoanCache(ctx); rerr != nil {
			return rerr
		}
	}
}

// Return releases a loan and refreshes the cache so the entry
// disappears from it.
func (m *Manager) Return(ctx context.Context, itemID string) error {
	if err := m.library.Return(ctx, itemID); err != nil {
		return err
	}
	return m.RefreshLoanCache(ctx)
}

// GetProgress returns current download progress.
func (m *Manager) GetProgress() (received int64, chaptersDone, chaptersTotal int32) {
	return atomic.LoadInt64(&m.receivedBytes),
		atomic.LoadInt32(&m.downloadedChapters),
		atomic.LoadInt32(&m.totalChapters)
}

// Run performs the top-level sequence: refresh the cache, borrow the
// requested item if it is not already on loan, then download every
// target item (the requested one, or all MP3 loans when itemID is
// empty), optionally returning each book afterwards.
func (m *Manager) Run(ctx context.Context, itemID string) ([]Result, error) {
	if err := m.RefreshLoanCache(ctx); err != nil {
		return nil, err
	}

	var targets []string
	if itemID != "" {
		if err := m.ensureOnLoan(ctx, itemID); err != nil {
			return nil, err
		}
		targets = []string{itemID}
	} else {
		for _, id := range m.loanOrder {
			if m.loanCache[id].IsAudiobook() {
				targets = append(targets, id)
			}
		}
		if len(targets) == 0 {
			m.progress(ProgressEvent{Message: "No MP3 audiobooks on loan", Level: LevelInfo})
		}
	}

	var results []Result
	for _, id := range targets {
		result, err := m.DownloadItem(ctx, id)
		if err != nil {
			return results, fmt.Errorf("downloading %s: %w", id, err)
		}
		results = append(results, result)

		if m.settings.ReturnAfterDownload {
			if err := m.Return(ctx, id); err != nil {
				m.progress(ProgressEvent{Message: fmt.Sprintf("Error returning %s: %v", id, err), Level: LevelWarning})
			} else {
				m.progress(ProgressEvent{Message: fmt.Sprintf("Returned %s", id), Level: LevelInfo})
			}
		}
	}
	return results, nil
}

// ensureOnLoan borrows the item when it is not in the loan cache,
// verifying first that the catalog reports it as a loanable audiobook.
func (m *Manager) ensureOnLoan(ctx context.Context, itemID string) error {
	brief, err := m.BriefMetadata(ctx, itemID, true)
	if err != nil {
		return err
	}
	if !brief.IsAudiobook() {
		return fmt.Errorf("item %s has media type %q, not Mp3", itemID, brief.MediaType)
	}
	if m.IsOnLoan(itemID) {
		return nil
	}
	if !brief.CanLoan() {
		return fmt.Errorf("item %s is not loanable (status %q)", itemID, brief.Status)
	}

	m.progress(ProgressEvent{Message: fmt.Sprintf("Borrowing %s", itemID), Level: LevelInfo})
	if err := m.Borrow(ctx, itemID); err != nil {
		return fmt.Errorf("borrowing %s: %w", itemID, err)
	}
	if err := m.RefreshLoanCache(ctx); err != nil {
		return err
	}
	if !m.IsOnLoan(itemID) {
		return fmt.Errorf("item %s still not on loan after borrow", itemID)
	}
	return nil
}

// DownloadItem fetches fulfillment credentials, metadata and the
// playlist for one loaned item, then downloads every chapter file into
// the book's directory. Chapters whose files already exist are skipped,
// so re-runs only fetch what is missing.
func (m *Manager) DownloadItem(ctx context.Context, itemID string) (Result, error) {
	brief, err := m.BriefMetadata(ctx, itemID, true)
	if err != nil {
		return Result{}, err
	}

	fulfillment, err := m.library.Fulfillment(ctx, itemID)
	if err != nil {
		return Result{}, err
	}

	distribution := findaway.New(m.session, fulfillment.SessionKey)
	if m.findawayBaseURL != "" {
		distribution.BaseURL = m.findawayBaseURL
	}

	meta, err := distribution.Audiobook(ctx, fulfillment.AccountID, fulfillment.FulfillmentID)
	if err != nil {
		return Result{}, err
	}

	playlist, err := distribution.Playlist(ctx, fulfillment.FulfillmentID, fulfillment.LicenseID)
	if err != nil {
		return Result{}, err
	}

	// The playlist and the fulfillment item list pair positionally; the
	// backend exposes no per-entry ids to cross-check, so equal length
	// is the only verifiable part of the contract.
	if len(playlist) != len(fulfillment.Items) {
		return Result{}, fmt.Errorf("playlist has %d entries but item list has %d", len(playlist), len(fulfillment.Items))
	}

	book := m.buildBook(brief, meta, fulfillment, playlist)
	m.progress(ProgressEvent{
		Message: fmt.Sprintf("Found audiobook: %s - %s (%d chapters)", book.FirstAuthor(), book.ComposedTitle(), len(book.Chapters)),
		Level:   LevelInfo,
	})

	if err := ioutils.EnsureDir(book.Path); err != nil {
		return Result{}, fmt.Errorf("creating %s: %w", book.Path, err)
	}

	var cover []byte
	if (m.settings.SaveCoverInTags || m.settings.SaveCoverInFolder) && book.HasCover() {
		cover, err = m.downloadCover(ctx, book)
		if err != nil {
			m.progress(ProgressEvent{Message: fmt.Sprintf("Error downloading cover for %s: %v", book.Title, err), Level: LevelWarning})
		}
	}

	if err := m.downloadChapters(ctx, book, distribution, cover); err != nil {
		return Result{}, err
	}

	if m.settings.CreatePlaylist {
		content := m.playlist.CreatePlaylist(book)
		if err := ioutils.WriteFile(ctx, filepath.Join(book.Path, book.ID+".m3u"), []byte(content)); err != nil {
			m.progress(ProgressEvent{Message: fmt.Sprintf("Error creating playlist: %v", err), Level: LevelWarning})
		}
	}

	summary := model.Summarize(book)
	if data, err := json.Marshal(summary); err == nil {
		m.progress(ProgressEvent{Message: "Metadata summary: " + string(data), Level: LevelVerbose})
	}

	if m.settings.DumpJSON {
		if err := m.dumpMetadata(book, brief, meta, fulfillment); err != nil {
			m.progress(ProgressEvent{Message: fmt.Sprintf("Error writing metadata dump: %v", err), Level: LevelWarning})
		}
	}

	m.progress(ProgressEvent{Message: fmt.Sprintf("Finished %s", book.ComposedTitle()), Level: LevelSuccess})

	return Result{ItemID: itemID, Title: book.ComposedTitle(), Dir: book.Path, Summary: summary}, nil
}

// buildBook assembles the domain Book from the brief record, the
// distribution metadata and the positional playlist/item pairing.
func (m *Manager) buildBook(brief dto.Book, meta findaway.Audiobook, fulfillment dto.Fulfillment, playlist []findaway.PlaylistEntry) *model.Book {
	book := model.NewBook(brief.ItemID, brief.Title, brief.Subtitle, meta.Authors, m.settings.ToPathConfig())
	book.ISBN = brief.ISBN
	book.Description = brief.Description
	book.Narrators = meta.Narrators
	book.Language = meta.Language
	book.CoverURL = meta.CoverURL
	book.Series = model.ParseSeriesList(meta.Series)

	total := len(playlist)
	for i, entry := range playlist {
		item := fulfillment.Items[i]
		book.Chapters = append(book.Chapters,
			model.NewChapter(book, i+1, total, item.Title, item.Duration, entry.URL))
	}
	return book
}

// downloadChapters fetches every chapter file that is not already on
// disk. The concurrency limit defaults to 1, which keeps downloads in
// strict playlist order.
func (m *Manager) downloadChapters(ctx context.Context, book *model.Book, distribution *findaway.Client, cover []byte) error {
	atomic.AddInt32(&m.totalChapters, int32(len(book.Chapters)))

	limit := m.settings.MaxConcurrentChapterDownloads
	if limit < 1 {
		limit = 1
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for _, chapter := range book.Chapters {
		g.Go(func() error {
			return m.downloadChapter(ctx, chapter, book, distribution, cover)
		})
	}
	return g.Wait()
}

func (m *Manager) downloadChapter(ctx context.Context, chapter *model.Chapter, book *model.Book, distribution *findaway.Client, cover []byte) error {
	if _, err := os.Stat(chapter.Path); err == nil {
		m.progress(ProgressEvent{Message: fmt.Sprintf("Skipping existing: %s", filepath.Base(chapter.Path)), Level: LevelVerbose})
		atomic.AddInt32(&m.downloadedChapters, 1)
		return nil
	}

	var last int64
	err := m.session.DownloadFile(ctx, chapter.URL, chapter.Path, distribution.DownloadHeader(), func(written, total int64) {
		atomic.AddInt64(&m.receivedBytes, written-last)
		last = written
	})
	if err != nil {
		return fmt.Errorf("chapter %d: %w", chapter.Number, err)
	}
	atomic.AddInt32(&m.downloadedChapters, 1)

	if m.settings.ModifyTags || (m.settings.SaveCoverInTags && cover != nil) {
		if err := m.tagger.SaveTags(chapter, book, cover); err != nil {
			m.progress(ProgressEvent{Message: fmt.Sprintf("Error tagging %s: %v", chapter.Title, err), Level: LevelWarning})
		}
	}

	m.progress(ProgressEvent{Message: fmt.Sprintf("Downloaded: %s", filepath.Base(chapter.Path)), Level: LevelVerbose})
	return nil
}

// downloadCover fetches the cover image and, when configured, saves a
// resized JPEG copy next to the chapter files. The returned bytes are
// the tag-embeddable form.
func (m *Manager) downloadCover(ctx context.Context, book *model.Book) ([]byte, error) {
	cover, err := m.session.DownloadBytes(ctx, book.CoverURL, nil)
	if err != nil {
		return nil, err
	}

	if m.settings.CoverMaxSize > 0 {
		if resized, err := m.images.ResizeImage(ctx, cover, m.settings.CoverMaxSize, m.settings.CoverMaxSize); err == nil {
			cover = resized
		}
	}
	if m.settings.ConvertCoverToJPG {
		if converted, err := m.images.ConvertToJPEG(ctx, cover); err == nil {
			cover = converted
		}
	}

	if m.settings.SaveCoverInFolder {
		if err := ioutils.WriteFile(ctx, book.CoverPath(), cover); err != nil {
			m.progress(ProgressEvent{Message: fmt.Sprintf("Error saving cover: %v", err), Level: LevelWarning})
		}
	}

	if !m.settings.SaveCoverInTags {
		return nil, nil
	}
	return cover, nil
}

// dumpMetadata merges the brief lending record, the full distribution
// record and the chapter item list into one JSON file inside the book
// directory.
func (m *Manager) dumpMetadata(book *model.Book, brief dto.Book, meta findaway.Audiobook, fulfillment dto.Fulfillment) error {
	merged := make(map[string]any)
	if len(brief.Raw) > 0 {
		if err := json.Unmarshal(brief.Raw, &merged); err != nil {
			return err
		}
	}
	if len(meta.Raw) > 0 {
		var full map[string]any
		if err := json.Unmarshal(meta.Raw, &full); err != nil {
			return err
		}
		for k, v := range full {
			merged[k] = v
		}
	}
	if len(fulfillment.ItemsRaw) > 0 {
		var chapters any
		if err := json.Unmarshal(fulfillment.ItemsRaw, &chapters); err != nil {
			return err
		}
		merged["chapters"] = chapters
	}

	data, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(book.MetadataPath(), data, 0644)
}

func (m *Manager) progress(event ProgressEvent) {
	if m.onProgress != nil {
		m.onProgress(event)
	}
}
