package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// ChromeOptions configure the Chromium process.
type ChromeOptions struct {
	ExecPath string
	Headless bool
}

// ChromeLauncher returns a Launcher that starts Chromium through chromedp.
func ChromeLauncher(opts ChromeOptions) Launcher {
	return func(ctx context.Context) (Browser, error) {
		flags := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", opts.Headless),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.Flag("disable-blink-features", "AutomationControlled"),
			chromedp.UserAgent(DesktopUserAgent),
			chromedp.WindowSize(ViewportWidth, ViewportHeight),
		)
		if opts.ExecPath != "" {
			flags = append(flags, chromedp.ExecPath(opts.ExecPath))
		}

		// The browser outlives the request that triggered the launch.
		allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), flags...)
		browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

		started := make(chan error, 1)
		go func() { started <- chromedp.Run(browserCtx) }()
		select {
		case err := <-started:
			if err != nil {
				cancelBrowser()
				cancelAlloc()
				return nil, err
			}
		case <-ctx.Done():
			cancelBrowser()
			cancelAlloc()
			return nil, ctx.Err()
		}
		return &chromeBrowser{ctx: browserCtx, cancelBrowser: cancelBrowser, cancelAlloc: cancelAlloc}, nil
	}
}

type chromeBrowser struct {
	ctx           context.Context
	cancelBrowser context.CancelFunc
	cancelAlloc   context.CancelFunc
}

func (b *chromeBrowser) NewTab(ctx context.Context) (Tab, error) {
	tabCtx, cancel := chromedp.NewContext(b.ctx, chromedp.WithNewBrowserContext())
	if err := chromedp.Run(tabCtx,
		network.Enable(),
		chromedp.EmulateViewport(ViewportWidth, ViewportHeight),
	); err != nil {
		cancel()
		return nil, fmt.Errorf("new tab: %w", err)
	}
	return &chromePage{ctx: tabCtx, cancel: cancel, pending: map[network.RequestID]string{}}, nil
}

func (b *chromeBrowser) Close() {
	b.cancelBrowser()
	b.cancelAlloc()
}

type chromePage struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	filter   Filter
	pending  map[network.RequestID]string
	captured []Response
	reads    sync.WaitGroup
}

func (p *chromePage) Observe(filter Filter) {
	p.mu.Lock()
	first := p.filter == nil
	p.filter = filter
	p.mu.Unlock()
	if !first {
		return
	}
	chromedp.ListenTarget(p.ctx, func(ev any) {
		switch e := ev.(type) {
		case *network.EventResponseReceived:
			if e.Response == nil {
				return
			}
			p.mu.Lock()
			if p.filter != nil && p.filter(e.Response.URL, e.Response.MimeType) {
				p.pending[e.RequestID] = e.Response.URL
			}
			p.mu.Unlock()
		case *network.EventLoadingFinished:
			p.mu.Lock()
			url, ok := p.pending[e.RequestID]
			delete(p.pending, e.RequestID)
			p.mu.Unlock()
			if !ok {
				return
			}
			p.reads.Add(1)
			// Listeners must not block the event loop.
			go p.readBody(e.RequestID, url)
		}
	})
}

func (p *chromePage) readBody(id network.RequestID, url string) {
	defer p.reads.Done()
	var body []byte
	err := chromedp.Run(p.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		b, err := network.GetResponseBody(id).Do(ctx)
		body = b
		return err
	}))
	if err != nil || len(body) == 0 {
		return
	}
	p.mu.Lock()
	p.captured = append(p.captured, Response{URL: url, Body: body})
	p.mu.Unlock()
}

func (p *chromePage) Navigate(ctx context.Context, url string) error {
	return p.run(ctx, chromedp.Navigate(url))
}

func (p *chromePage) Settle(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *chromePage) HTML(ctx context.Context) (string, error) {
	var html string
	err := p.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}

func (p *chromePage) Evaluate(ctx context.Context, js string, out any) error {
	return p.run(ctx, chromedp.Evaluate(js, out))
}

func (p *chromePage) Captured(ctx context.Context) []Response {
	done := make(chan struct{})
	go func() {
		p.reads.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Response, len(p.captured))
	copy(out, p.captured)
	return out
}

func (p *chromePage) Close() { p.cancel() }

// run executes actions on the tab, bounded by the caller's ctx as well.
func (p *chromePage) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(p.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}
