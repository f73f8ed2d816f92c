// Package browser owns the headless browser used by the chain scrapers: one
// lazily launched process per Manager, an isolated context per page, a
// navigation throttle and a concurrency ceiling.
package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/leonardcser/showtime-mcp/internal/logger"
	"github.com/leonardcser/showtime-mcp/internal/showtime"
)

// ErrClosed is returned by Acquire after Shutdown.
var ErrClosed = errors.New("browser: manager shut down")

// Response is a network response body captured while a page loaded.
type Response struct {
	URL  string
	Body []byte
}

// Filter selects which responses a page buffers.
type Filter func(url, mimeType string) bool

// Page is one isolated browsing session.
type Page interface {
	// Observe registers the capture filter. Call it before Navigate.
	Observe(filter Filter)
	Navigate(ctx context.Context, url string) error
	// Settle waits d for late scripts and requests.
	Settle(ctx context.Context, d time.Duration) error
	HTML(ctx context.Context) (string, error)
	// Evaluate runs js in the page and decodes its result into out.
	Evaluate(ctx context.Context, js string, out any) error
	// Captured returns the responses buffered so far, waiting for bodies
	// still being read.
	Captured(ctx context.Context) []Response
}

// Tab is a Page the Manager can close.
type Tab interface {
	Page
	Close()
}

// Browser is a running browser process.
type Browser interface {
	NewTab(ctx context.Context) (Tab, error)
	Close()
}

// Launcher starts a browser process.
type Launcher func(ctx context.Context) (Browser, error)

// DefaultLaunchTimeout bounds a cold browser start.
const DefaultLaunchTimeout = time.Minute

// Options tune a Manager.
type Options struct {
	// RateLimit is the minimum spacing between two navigations.
	RateLimit time.Duration
	// NavigationTimeout bounds a single navigation.
	NavigationTimeout time.Duration
	// Slots is the concurrency ceiling; nil means unbounded.
	Slots *Slots
	// LaunchTimeout bounds the browser start. Zero means DefaultLaunchTimeout.
	LaunchTimeout time.Duration
}

// Manager hands out isolated pages backed by one shared browser.
type Manager struct {
	name       string
	launch     Launcher
	slots      *Slots
	limiter    *rate.Limiter
	navTimeout time.Duration
	launchWait time.Duration
	log        logger.Logger

	mu        sync.Mutex
	browser   Browser
	launchErr error
	closed    bool
}

// NewManager returns a Manager that launches its browser on first Acquire.
func NewManager(name string, launch Launcher, opts Options) *Manager {
	launchWait := opts.LaunchTimeout
	if launchWait <= 0 {
		launchWait = DefaultLaunchTimeout
	}
	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Every(opts.RateLimit)
	}
	return &Manager{
		name:       name,
		launch:     launch,
		slots:      opts.Slots,
		limiter:    rate.NewLimiter(limit, 1),
		navTimeout: opts.NavigationTimeout,
		launchWait: launchWait,
		log:        logger.Named("browser " + name),
	}
}

// Acquire waits for a concurrency slot and opens a fresh isolated page. The
// returned release func closes the page and frees the slot; it must be called
// on every path and may be called more than once.
func (m *Manager) Acquire(ctx context.Context) (Page, func(), error) {
	if m.isClosed() {
		return nil, nil, ErrClosed
	}
	if m.slots != nil {
		if err := m.slots.Acquire(ctx); err != nil {
			return nil, nil, fmt.Errorf("wait for scrape slot: %w", err)
		}
	}
	freeSlot := func() {
		if m.slots != nil {
			m.slots.Release()
		}
	}

	b, err := m.ensureBrowser(ctx)
	if err != nil {
		freeSlot()
		return nil, nil, err
	}
	tab, err := b.NewTab(ctx)
	if err != nil {
		freeSlot()
		return nil, nil, fmt.Errorf("open page: %w", err)
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			tab.Close()
			freeSlot()
		})
	}
	return &throttledPage{Tab: tab, m: m}, release, nil
}

func (m *Manager) ensureBrowser(ctx context.Context) (Browser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	if m.launchErr != nil {
		return nil, m.launchErr
	}
	if m.browser != nil {
		return m.browser, nil
	}
	m.log.Infof("launching browser")
	launchCtx, cancel := context.WithTimeout(ctx, m.launchWait)
	defer cancel()
	b, err := m.launch(launchCtx)
	if err != nil {
		// The caller gave up; the next Acquire tries again.
		if ctx.Err() != nil {
			m.log.Warnf("launch abandoned: %v", ctx.Err())
			return nil, fmt.Errorf("launch browser: %w", ctx.Err())
		}
		m.launchErr = fmt.Errorf("launch browser: %w: %w", showtime.ErrSourceUnavailable, err)
		m.log.Errorf("%v", m.launchErr)
		return nil, m.launchErr
	}
	m.browser = b
	return b, nil
}

func (m *Manager) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Shutdown terminates the shared browser. It is safe to call repeatedly.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	if m.browser != nil {
		m.log.Infof("shutting down browser")
		m.browser.Close()
		m.browser = nil
	}
}

// throttledPage gates Navigate on the manager's limiter and deadline.
type throttledPage struct {
	Tab
	m *Manager
}

func (p *throttledPage) Navigate(ctx context.Context, url string) error {
	if err := p.m.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("navigation throttle: %w", err)
	}
	navCtx := ctx
	if p.m.navTimeout > 0 {
		var cancel context.CancelFunc
		navCtx, cancel = context.WithTimeout(ctx, p.m.navTimeout)
		defer cancel()
	}
	p.m.log.Debugf("navigate %s", url)
	err := p.Tab.Navigate(navCtx, url)
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("navigate %s: %w", url, showtime.ErrNavigationTimeout)
	}
	return err
}
