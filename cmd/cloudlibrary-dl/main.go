package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/handiism/cloudlibrary-downloader/internal/cloudlibrary"
	"github.com/handiism/cloudlibrary-downloader/internal/config"
	"github.com/handiism/cloudlibrary-downloader/internal/download"
	"github.com/handiism/cloudlibrary-downloader/internal/http"
	"golang.org/x/term"
)

func main() {
	// Command line flags
	var (
		libraryFlag  = flag.String("library", "", "Library name as it appears in the CloudLibrary URL")
		usernameFlag = flag.String("username", "", "Library card number / barcode")
		passwordFlag = flag.String("password", "", "Card PIN (avoid on shared machines; see -prompt-password)")
		promptFlag   = flag.Bool("prompt-password", false, "Read the PIN from the terminal without echo")
		cookieFlag   = flag.String("cookie", "", "Reuse an existing session cookie instead of logging in")
		titleFlag    = flag.String("title", "", "Item id of a single book to borrow and download")
		releaseFlag  = flag.Bool("release", false, "Return each book after downloading it")
		dumpFlag     = flag.Bool("dump-json", false, "Write the merged metadata record next to the chapters")
		outputFlag   = flag.String("output", "", "Output directory (overrides config)")
		configFlag   = flag.String("config", "", "Path to config file")
		verboseFlag  = flag.Bool("verbose", false, "Show verbose output")
	)

	flag.Parse()

	// Load config
	settings := config.DefaultSettings()
	if *configFlag != "" {
		var err error
		settings, err = config.Load(*configFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}

	// Apply flags
	if *libraryFlag != "" {
		settings.Library = *libraryFlag
	}
	if *outputFlag != "" {
		settings.LibraryRoot = *outputFlag
	}
	if *releaseFlag {
		settings.ReturnAfterDownload = true
	}
	if *dumpFlag {
		settings.DumpJSON = true
	}

	if settings.Library == "" && !term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Println("CloudLibrary Downloader - Download loaned audiobooks")
		fmt.Println()
		fmt.Println("Usage:")
		fmt.Println("  cloudlibrary-dl -library <name> -username <barcode> [options]")
		fmt.Println()
		fmt.Println("For interactive mode, use: cloudlibrary-tui")
		fmt.Println()
		flag.PrintDefaults()
		os.Exit(1)
	}
	if settings.Library == "" {
		settings.Library = promptLine("Library name: ")
		if settings.Library == "" {
			fmt.Fprintln(os.Stderr, "Error: a library name is required")
			os.Exit(1)
		}
	}
	username := *usernameFlag
	if username == "" && *cookieFlag == "" && term.IsTerminal(int(os.Stdin.Fd())) {
		username = promptLine("Card number: ")
	}

	// Handle interrupts
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nInterrupted, cancelling...")
		cancel()
	}()

	session := http.NewClient()
	client := cloudlibrary.New(session, settings.Library)

	if err := authenticate(ctx, client, *cookieFlag, username, *passwordFlag, *promptFlag); err != nil {
		fmt.Fprintf(os.Stderr, "Error logging in: %v\n", err)
		os.Exit(1)
	}

	// Create manager with progress callback
	manager := download.NewManager(settings, session, client, func(event download.ProgressEvent) {
		if event.Level == download.LevelVerbose && !*verboseFlag {
			return
		}

		prefix := ""
		switch event.Level {
		case download.LevelError:
			prefix = "❌ "
		case download.LevelWarning:
			prefix = "⚠️  "
		case download.LevelSuccess:
			prefix = "✅ "
		case download.LevelInfo:
			prefix = "ℹ️  "
		default:
			prefix = "   "
		}

		fmt.Println(prefix + event.Message)
	})

	fmt.Println("📚 CloudLibrary Downloader")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println()

	results, err := manager.Run(ctx, *titleFlag)
	if err != nil {
		if ctx.Err() != nil {
			fmt.Println("\nDownload cancelled.")
			os.Exit(130)
		}
		if errors.Is(err, cloudlibrary.ErrLoanLimit) {
			fmt.Fprintln(os.Stderr, "Error: loan limit reached and no book could be returned to free a slot")
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}

	received, chapters, totalChapters := manager.GetProgress()
	fmt.Println()
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("✨ Complete! Downloaded %d book(s), %d/%d chapters (%.2f MB)\n",
		len(results), chapters, totalChapters, float64(received)/1024/1024)
	for _, result := range results {
		fmt.Printf("   %s → %s\n", result.Title, result.Dir)
	}
}

// promptLine reads a single line from stdin.
func promptLine(prompt string) string {
	fmt.Fprint(os.Stderr, prompt)
	line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	return strings.TrimSpace(line)
}

// authenticate establishes a session, either by reusing a session
// cookie or by logging in with barcode and PIN, and verifies it before
// any download starts.
func authenticate(ctx context.Context, client *cloudlibrary.Client, cookie, username, password string, promptPassword bool) error {
	if err := client.Bootstrap(ctx); err != nil {
		return err
	}

	if cookie != "" {
		if err := client.SetSessionCookie(cookie); err != nil {
			return err
		}
		return client.VerifySession(ctx)
	}

	if username == "" {
		return fmt.Errorf("either -username or -cookie is required")
	}

	if promptPassword || (password == "" && term.IsTerminal(int(os.Stdin.Fd()))) {
		fmt.Fprint(os.Stderr, "PIN: ")
		entered, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return fmt.Errorf("reading PIN: %w", err)
		}
		password = strings.TrimSpace(string(entered))
	}
	if password == "" {
		return fmt.Errorf("a PIN is required; pass -password or -prompt-password")
	}

	if err := client.Login(ctx, username, password); err != nil {
		return err
	}
	return client.VerifySession(ctx)
}
