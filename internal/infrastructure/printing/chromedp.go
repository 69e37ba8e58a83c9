package printing

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/wellnest/backend/internal/infrastructure/config"
)

const (
	defaultRenderTimeout = 30 * time.Second
	defaultRenderTabs    = 2
	mmPerInch            = 25.4
	// Chrome draws the footer template inside the bottom margin
	footerMarginMM = 10.0
)

// ChromedpRenderer prints HTML with headless Chrome. Every render opens its
// own tab on a shared browser, and at most cfg.MaxConcurrent tabs print at
// once. Chrome is launched lazily by the first render.
type ChromedpRenderer struct {
	timeout time.Duration
	tabs    *semaphore.Weighted
	width   int64
	log     *zap.Logger

	browser context.Context
	stop    context.CancelFunc
}

// NewChromedpRenderer connects to cfg.RemoteURL when set, otherwise it runs
// the Chrome at cfg.ChromePath (or the one on PATH) without a sandbox so it
// works as root in a container.
func NewChromedpRenderer(cfg config.PrintingConfig, log *zap.Logger) (*ChromedpRenderer, error) {
	if log == nil {
		log = zap.NewNop()
	}
	width := int64(cfg.MaxConcurrent)
	if width <= 0 {
		width = defaultRenderTabs
	}
	r := &ChromedpRenderer{
		timeout: cfg.Timeout,
		tabs:    semaphore.NewWeighted(width),
		width:   width,
		log:     log.Named("chromedp"),
	}
	if r.timeout <= 0 {
		r.timeout = defaultRenderTimeout
	}

	if cfg.RemoteURL != "" {
		r.browser, r.stop = chromedp.NewRemoteAllocator(context.Background(), cfg.RemoteURL)
		return r, nil
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("font-render-hinting", "none"),
	)
	if cfg.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ChromePath))
	}
	r.browser, r.stop = chromedp.NewExecAllocator(context.Background(), opts...)
	return r, nil
}

func (r *ChromedpRenderer) Render(ctx context.Context, req *RenderRequest) (*RenderResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	timeout := cmp.Or(max(req.Timeout, 0), r.timeout)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := r.tabs.Acquire(ctx, 1); err != nil {
		return nil, NewRenderError(ErrCodeRenderBusy, "all renderers are busy", err)
	}
	defer r.tabs.Release(1)

	started := time.Now()
	tab, closeTab := chromedp.NewContext(r.browser, chromedp.WithLogf(r.log.Sugar().Debugf))
	defer closeTab()
	defer context.AfterFunc(ctx, closeTab)()

	var pdf []byte
	err := chromedp.Run(tab,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, wrapDocument(req)).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) (err error) {
			pdf, _, err = printParams(req).Do(ctx)
			return err
		}),
	)
	switch {
	case err == nil && len(pdf) == 0:
		return nil, NewRenderError(ErrCodeRenderFailed, "generated PDF is empty", nil)
	case err == nil:
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return nil, NewRenderError(ErrCodeRenderTimeout, fmt.Sprintf("PDF rendering timed out after %v", timeout), err)
	case ctx.Err() != nil:
		return nil, NewRenderError(ErrCodeRenderTimeout, "PDF rendering was cancelled", err)
	default:
		r.log.Error("Chrome failed to print", zap.Error(err))
		return nil, NewRenderError(ErrCodeRenderFailed, "chromedp execution failed", err)
	}

	res := &RenderResult{PDFData: pdf, PageCount: estimatePageCount(pdf), RenderDuration: time.Since(started)}
	r.log.Debug("PDF rendered",
		zap.Int("bytes", len(pdf)),
		zap.Int("pages", res.PageCount),
		zap.Duration("duration", res.RenderDuration))
	return res, nil
}

// Close ends the browser process or remote session.
func (r *ChromedpRenderer) Close() error {
	r.stop()
	return nil
}

// printParams converts the request's millimetres to the inches Chrome wants.
func printParams(req *RenderRequest) *page.PrintToPDFParams {
	in := func(mm float64) float64 { return mm / mmPerInch }
	w, h := req.PageSize.Dimensions()
	m := req.Margins

	p := page.PrintToPDF().
		WithPrintBackground(true).
		WithPaperWidth(in(w)).
		WithPaperHeight(in(h)).
		WithMarginTop(in(m.Top)).
		WithMarginRight(in(m.Right)).
		WithMarginBottom(in(m.Bottom)).
		WithMarginLeft(in(m.Left)).
		WithLandscape(req.Landscape)
	if req.FooterHTML == "" {
		return p
	}
	return p.WithMarginBottom(in(max(m.Bottom, footerMarginMM))).
		WithDisplayHeaderFooter(true).
		WithHeaderTemplate("<span></span>").
		WithFooterTemplate(req.FooterHTML)
}

// wrapDocument leaves full documents alone and puts fragments in a minimal
// UTF-8 page.
func wrapDocument(req *RenderRequest) string {
	head := strings.ToLower(req.HTML[:min(len(req.HTML), 512)])
	if strings.Contains(head, "<!doctype") || strings.Contains(head, "<html") {
		return req.HTML
	}
	var b strings.Builder
	b.WriteString(`<!DOCTYPE html><html><head><meta charset="UTF-8">`)
	if req.Title != "" {
		fmt.Fprintf(&b, "<title>%s</title>", html.EscapeString(req.Title))
	}
	fmt.Fprintf(&b, "</head><body>%s</body></html>", req.HTML)
	return b.String()
}

var _ PDFRenderer = (*ChromedpRenderer)(nil)
