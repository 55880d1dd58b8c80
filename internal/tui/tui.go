// Package tui provides a Bubble Tea terminal user interface for
// cloudlibrary-downloader.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/handiism/cloudlibrary-downloader/internal/cloudlibrary"
	"github.com/handiism/cloudlibrary-downloader/internal/config"
	"github.com/handiism/cloudlibrary-downloader/internal/download"
	"github.com/handiism/cloudlibrary-downloader/internal/http"
)

// Styles for the TUI
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B")).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#95E1A3"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFE66D"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A8DADC"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C757D"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#4ECDC4")).
			Padding(1, 2)

	bookStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F8B500"))
)

// State represents the current UI state.
type State int

const (
	StateInput State = iota
	StateConnecting
	StateDownloading
	StateComplete
	StateError
)

// Field indexes into the credential inputs.
const (
	fieldLibrary = iota
	fieldBarcode
	fieldPin
	fieldItemID
	fieldCount
)

// LogEntry represents a log message in the UI.
type LogEntry struct {
	Message string
	Level   download.ProgressLevel
}

// Model is the Bubble Tea model for the TUI.
type Model struct {
	state    State
	inputs   []textinput.Model
	focused  int
	spinner  spinner.Model
	progress progress.Model
	settings *config.Settings
	logs     []LogEntry
	books    []string
	err      error

	// Download context
	ctx    context.Context
	cancel context.CancelFunc

	// Download manager reference
	manager *download.Manager

	// Download progress
	totalChapters      int32
	downloadedChapters int32
	receivedBytes      int64

	// Options
	returnAfter bool
	verbose     bool

	width  int
	height int
}

// NewModel creates a new TUI model.
func NewModel() Model {
	inputs := make([]textinput.Model, fieldCount)
	placeholders := []string{
		"library name (as in the CloudLibrary URL)",
		"card number / barcode",
		"PIN",
		"item id (empty to download all loans)",
	}
	for i := range inputs {
		ti := textinput.New()
		ti.Placeholder = placeholders[i]
		ti.CharLimit = 100
		ti.Width = 50
		if i == fieldPin {
			ti.EchoMode = textinput.EchoPassword
		}
		inputs[i] = ti
	}
	inputs[fieldLibrary].Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 50

	ctx, cancel := context.WithCancel(context.Background())

	return Model{
		state:    StateInput,
		inputs:   inputs,
		spinner:  sp,
		progress: prog,
		settings: config.DefaultSettings(),
		logs:     make([]LogEntry, 0),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// Message types
type (
	// ProgressMsg is sent when download progress updates.
	ProgressMsg struct {
		Event download.ProgressEvent
	}

	// ConnectDoneMsg is sent when login and loan listing complete.
	ConnectDoneMsg struct {
		Books   []string
		Manager *download.Manager
		Err     error
	}

	// DownloadDoneMsg is sent when all downloads complete.
	DownloadDoneMsg struct {
		Received int64
		Chapters int32
		TotalC   int32
		Err      error
	}

	// TickMsg is for periodic progress updates.
	TickMsg struct{}
)

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = msg.Width - 20
		if m.progress.Width > 80 {
			m.progress.Width = 80
		}
		if m.progress.Width < 20 {
			m.progress.Width = 20
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.cancel()
			return m, tea.Quit

		case "esc":
			if m.state == StateInput {
				return m, tea.Quit
			}
			if m.state == StateDownloading || m.state == StateConnecting {
				m.cancel()
				m.state = StateError
				m.err = fmt.Errorf("cancelled by user")
			}

		case "tab", "shift+tab", "up", "down":
			if m.state == StateInput {
				m.cycleFocus(msg.String() == "shift+tab" || msg.String() == "up")
				return m, nil
			}

		case "enter":
			if m.state == StateInput {
				if m.focused < fieldCount-1 {
					m.cycleFocus(false)
					return m, nil
				}
				if m.inputs[fieldLibrary].Value() != "" && m.inputs[fieldBarcode].Value() != "" {
					m.state = StateConnecting
					return m, tea.Batch(m.connect(), m.spinner.Tick)
				}
			}

		case "ctrl+r":
			if m.state == StateInput {
				m.returnAfter = !m.returnAfter
			}

		case "ctrl+v":
			if m.state == StateInput {
				m.verbose = !m.verbose
			}

		case "q":
			if m.state == StateComplete || m.state == StateError {
				return m, tea.Quit
			}

		case "r":
			if m.state == StateComplete || m.state == StateError {
				// Reset for another run
				m.state = StateInput
				m.logs = nil
				m.books = nil
				m.err = nil
				m.downloadedChapters = 0
				m.totalChapters = 0
				m.receivedBytes = 0
				m.manager = nil
				m.ctx, m.cancel = context.WithCancel(context.Background())
				m.focused = fieldLibrary
				for i := range m.inputs {
					m.inputs[i].Blur()
				}
				m.inputs[fieldLibrary].Focus()
			}
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case ProgressMsg:
		// Filter verbose messages if not in verbose mode
		if msg.Event.Level == download.LevelVerbose && !m.verbose {
			return m, nil
		}
		m.logs = append(m.logs, LogEntry{
			Message: msg.Event.Message,
			Level:   msg.Event.Level,
		})
		// Keep only last 10 logs
		if len(m.logs) > 10 {
			m.logs = m.logs[len(m.logs)-10:]
		}

	case ConnectDoneMsg:
		if msg.Err != nil {
			m.state = StateError
			m.err = msg.Err
		} else {
			m.books = msg.Books
			m.manager = msg.Manager
			m.state = StateDownloading
			// Start the actual download and tick for progress updates
			cmds = append(cmds, m.startDownload(), m.tickProgress())
		}

	case DownloadDoneMsg:
		m.receivedBytes = msg.Received
		m.downloadedChapters = msg.Chapters
		m.totalChapters = msg.TotalC
		if msg.Err != nil && m.ctx.Err() == nil {
			m.state = StateError
			m.err = msg.Err
		} else if m.ctx.Err() != nil {
			m.state = StateError
			m.err = fmt.Errorf("cancelled by user")
		} else {
			m.state = StateComplete
		}

	case TickMsg:
		// Update progress from manager
		if m.manager != nil && m.state == StateDownloading {
			received, chapters, totalChapters := m.manager.GetProgress()
			m.receivedBytes = received
			m.downloadedChapters = chapters
			m.totalChapters = totalChapters

			// Calculate percentage and animate progress bar
			var percent float64
			if totalChapters > 0 {
				percent = float64(chapters) / float64(totalChapters)
			}
			progressCmd := m.progress.SetPercent(percent)
			cmds = append(cmds, progressCmd, m.tickProgress())
		}

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		cmds = append(cmds, cmd)
	}

	// Update the focused text input
	if m.state == StateInput {
		var cmd tea.Cmd
		m.inputs[m.focused], cmd = m.inputs[m.focused].Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// cycleFocus moves input focus forward or backward.
func (m *Model) cycleFocus(backward bool) {
	m.inputs[m.focused].Blur()
	if backward {
		m.focused = (m.focused - 1 + fieldCount) % fieldCount
	} else {
		m.focused = (m.focused + 1) % fieldCount
	}
	m.inputs[m.focused].Focus()
}

// tickProgress returns a command to tick progress updates.
func (m Model) tickProgress() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(_ time.Time) tea.Msg {
		return TickMsg{}
	})
}

// View renders the UI.
func (m Model) View() string {
	var b strings.Builder

	// Header
	b.WriteString(titleStyle.Render("📚 CloudLibrary Downloader"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Download loaned audiobooks from CloudLibrary"))
	b.WriteString("\n\n")

	switch m.state {
	case StateInput:
		b.WriteString(m.viewInput())
	case StateConnecting:
		b.WriteString(m.viewConnecting())
	case StateDownloading:
		b.WriteString(m.viewDownloading())
	case StateComplete:
		b.WriteString(m.viewComplete())
	case StateError:
		b.WriteString(m.viewError())
	}

	// Footer
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.getHelpText()))

	return b.String()
}

func (m Model) viewInput() string {
	var b strings.Builder

	labels := []string{"Library:", "Barcode:", "PIN:", "Item id:"}
	b.WriteString(subtitleStyle.Render("Library card login:"))
	b.WriteString("\n\n")
	for i, input := range m.inputs {
		b.WriteString(fmt.Sprintf("  %-9s %s\n", labels[i], input.View()))
	}
	b.WriteString("\n")

	returnCheck := "[ ]"
	if m.returnAfter {
		returnCheck = "[×]"
	}
	verboseCheck := "[ ]"
	if m.verbose {
		verboseCheck = "[×]"
	}

	b.WriteString(infoStyle.Render("Options:"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  %s Return books after download (ctrl+r)\n", returnCheck))
	b.WriteString(fmt.Sprintf("  %s Verbose output (ctrl+v)\n", verboseCheck))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("Download path: %s", m.settings.LibraryRoot)))
	b.WriteString("\n")

	return b.String()
}

func (m Model) viewConnecting() string {
	var b strings.Builder

	b.WriteString(m.spinner.View())
	b.WriteString(" ")
	b.WriteString(subtitleStyle.Render("Logging in and listing loans..."))
	b.WriteString("\n\n")

	// Show logs
	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewDownloading() string {
	var b strings.Builder

	// Books found
	if len(m.books) > 0 {
		b.WriteString(successStyle.Render(fmt.Sprintf("Found %d book(s) on loan:", len(m.books))))
		b.WriteString("\n")
		for _, book := range m.books {
			b.WriteString(bookStyle.Render(fmt.Sprintf("  ♪ %s", book)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	// Progress bar
	var percent float64
	if m.totalChapters > 0 {
		percent = float64(m.downloadedChapters) / float64(m.totalChapters)
	}
	b.WriteString(m.progress.ViewAs(percent))
	b.WriteString("\n")

	b.WriteString(infoStyle.Render(fmt.Sprintf(
		"Chapters: %d/%d | Downloaded: %.2f MB",
		m.downloadedChapters,
		m.totalChapters,
		float64(m.receivedBytes)/1024/1024,
	)))
	b.WriteString("\n\n")

	// Logs
	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewComplete() string {
	var b strings.Builder

	box := boxStyle.Render(fmt.Sprintf(
		"✨ Download Complete!\n\n"+
			"Books: %d\n"+
			"Chapters: %d\n"+
			"Size: %.2f MB",
		len(m.books),
		m.downloadedChapters,
		float64(m.receivedBytes)/1024/1024,
	))
	b.WriteString(box)

	return b.String()
}

func (m Model) viewError() string {
	var b strings.Builder

	b.WriteString(errorStyle.Render("❌ Error occurred:"))
	b.WriteString("\n\n")
	if m.err != nil {
		b.WriteString(fmt.Sprintf("  %s", m.err.Error()))
	}

	return b.String()
}

func (m Model) renderLogs() string {
	var b strings.Builder

	for _, log := range m.logs {
		var style lipgloss.Style
		prefix := "•"
		switch log.Level {
		case download.LevelError:
			style = errorStyle
			prefix = "✗"
		case download.LevelWarning:
			style = warningStyle
			prefix = "!"
		case download.LevelSuccess:
			style = successStyle
			prefix = "✓"
		case download.LevelInfo:
			style = infoStyle
			prefix = "›"
		default:
			style = dimStyle
		}
		b.WriteString(style.Render(prefix + " " + log.Message))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) getHelpText() string {
	switch m.state {
	case StateInput:
		return "enter: next/start • tab: switch field • ctrl+r: return after • ctrl+v: verbose • esc: quit"
	case StateConnecting, StateDownloading:
		return "esc: cancel"
	case StateComplete, StateError:
		return "r: new download • q: quit"
	}
	return ""
}

// connect logs in, lists the current loans and creates the manager.
func (m *Model) connect() tea.Cmd {
	library := m.inputs[fieldLibrary].Value()
	barcode := m.inputs[fieldBarcode].Value()
	pin := m.inputs[fieldPin].Value()

	settings := config.DefaultSettings()
	settings.Library = library
	settings.ReturnAfterDownload = m.returnAfter

	ctx := m.ctx
	return func() tea.Msg {
		session := http.NewClient()
		client := cloudlibrary.New(session, library)

		if err := client.Bootstrap(ctx); err != nil {
			return ConnectDoneMsg{Err: err}
		}
		if err := client.Login(ctx, barcode, pin); err != nil {
			return ConnectDoneMsg{Err: err}
		}
		if err := client.VerifySession(ctx); err != nil {
			return ConnectDoneMsg{Err: err}
		}

		// Progress events are collected but not sent directly.
		// The TUI polls for progress via TickMsg.
		manager := download.NewManager(settings, session, client, nil)

		if err := manager.RefreshLoanCache(ctx); err != nil {
			return ConnectDoneMsg{Err: err}
		}

		var books []string
		for _, loan := range manager.Loans() {
			if loan.IsAudiobook() {
				books = append(books, loan.Title)
			}
		}

		return ConnectDoneMsg{
			Books:   books,
			Manager: manager,
			Err:     nil,
		}
	}
}

// startDownload starts the actual download in background.
func (m *Model) startDownload() tea.Cmd {
	itemID := m.inputs[fieldItemID].Value()
	ctx := m.ctx
	manager := m.manager
	return func() tea.Msg {
		if manager == nil {
			return DownloadDoneMsg{Err: fmt.Errorf("no manager")}
		}

		_, err := manager.Run(ctx, itemID)
		received, chapters, totalChapters := manager.GetProgress()

		return DownloadDoneMsg{
			Received: received,
			Chapters: chapters,
			TotalC:   totalChapters,
			Err:      err,
		}
	}
}

// Run starts the TUI application.
func Run() error {
	p := tea.NewProgram(NewModel(), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
