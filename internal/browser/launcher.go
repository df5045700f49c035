package browser

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/ligun0805/airdrop-claimer/internal/claimcore"
	"github.com/sirupsen/logrus"
)

// Options configures a Launcher.
type Options struct {
	ExtensionDir   string // unpacked MetaMask build
	ChromePath     string // empty: let chromedp find Chrome
	Headless       bool
	NavTimeout     time.Duration
	WalletPassword string
	Log            logrus.FieldLogger
}

// Launcher opens one fresh Chrome profile with the wallet extension per key.
type Launcher struct {
	opts Options
}

func NewLauncher(o Options) *Launcher {
	if o.NavTimeout <= 0 {
		o.NavTimeout = 2 * time.Minute
	}
	if o.Log == nil {
		o.Log = logrus.StandardLogger()
	}
	return &Launcher{opts: o}
}

// chromeFlags are the command-line switches for an extension-enabled profile.
func chromeFlags(o Options, userDataDir string) map[string]any {
	flags := map[string]any{
		"headless":                  false,
		"disable-extensions":        false,
		"load-extension":            o.ExtensionDir,
		"disable-extensions-except": o.ExtensionDir,
		"no-sandbox":                true,
		"disable-gpu":               true,
		"disable-features":          "IsolateOrigins,site-per-process",
		"user-data-dir":             userDataDir,
		"no-first-run":              true,
		"no-default-browser-check":  true,
	}
	// Only the new headless mode runs extensions.
	if o.Headless {
		flags["headless"] = "new"
	}
	return flags
}

// Open starts Chrome, waits for the extension and finishes wallet onboarding.
func (l *Launcher) Open(ctx context.Context) (claimcore.Session, error) {
	dir, err := os.MkdirTemp("", "claimer-profile-")
	if err != nil {
		return nil, fmt.Errorf("profile dir: %w", err)
	}

	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	for k, v := range chromeFlags(l.opts, dir) {
		opts = append(opts, chromedp.Flag(k, v))
	}
	if l.opts.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(l.opts.ChromePath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	s := &session{
		dir:    dir,
		log:    l.opts.Log,
		cancel: []context.CancelFunc{cancelBrowser, cancelAlloc},
	}
	s.page = &Page{tab: tab{ctx: browserCtx}, navTimeout: l.opts.NavTimeout}

	if err := chromedp.Run(browserCtx); err != nil {
		s.Close()
		return nil, fmt.Errorf("start chrome: %w", err)
	}

	id, err := l.extensionID(ctx, browserCtx)
	if err != nil {
		s.Close()
		return nil, err
	}
	walletCtx, cancelWallet := chromedp.NewContext(browserCtx)
	s.cancel = append([]context.CancelFunc{cancelWallet}, s.cancel...)
	s.wallet = &MetaMask{
		tab:         tab{ctx: walletCtx},
		extensionID: id,
		password:    l.opts.WalletPassword,
		log:         l.opts.Log,
	}
	if err := s.wallet.Onboard(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("wallet onboarding: %w", err)
	}
	return s, nil
}

// extensionID finds the loaded extension among browser targets, falling back to the
// id Chrome derives from the unpacked path.
func (l *Launcher) extensionID(ctx context.Context, browserCtx context.Context) (string, error) {
	deadline := time.Now().Add(15 * time.Second)
	for time.Now().Before(deadline) {
		targets, err := chromedp.Targets(browserCtx)
		if err == nil {
			for _, t := range targets {
				if id := parseExtensionID(t.URL); id != "" {
					return id, nil
				}
			}
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(300 * time.Millisecond):
		}
	}
	abs, err := filepath.Abs(l.opts.ExtensionDir)
	if err != nil {
		return "", fmt.Errorf("extension id: %w", err)
	}
	l.opts.Log.Warn("extension target not found; using path-derived id")
	return unpackedExtensionID(abs), nil
}

// parseExtensionID returns the host of a chrome-extension:// URL.
func parseExtensionID(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "chrome-extension" {
		return ""
	}
	return u.Host
}

// unpackedExtensionID maps the first 16 bytes of sha256(path) onto the a-p alphabet.
func unpackedExtensionID(absPath string) string {
	sum := sha256.Sum256([]byte(absPath))
	h := hex.EncodeToString(sum[:16])
	var b strings.Builder
	for _, c := range h {
		switch {
		case c >= '0' && c <= '9':
			b.WriteRune('a' + (c - '0'))
		default:
			b.WriteRune('k' + (c - 'a'))
		}
	}
	return b.String()
}

type session struct {
	dir    string
	page   *Page
	wallet *MetaMask
	log    logrus.FieldLogger
	cancel []context.CancelFunc
	closed bool
}

func (s *session) Page() claimcore.Page     { return s.page }
func (s *session) Wallet() claimcore.Wallet { return s.wallet }

// Close shuts the browser down and removes the throwaway profile. Safe to call twice.
func (s *session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.page != nil {
		if err := chromedp.Cancel(s.page.ctx); err != nil {
			s.log.WithError(err).Debug("chrome cancel")
		}
	}
	for _, c := range s.cancel {
		c()
	}
	if err := os.RemoveAll(s.dir); err != nil {
		return fmt.Errorf("remove profile %s: %w", s.dir, err)
	}
	return nil
}
