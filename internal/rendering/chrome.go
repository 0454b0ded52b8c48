package rendering

import (
	"context"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// A4 paper and margins in inches
const (
	a4Width      = 8.27
	a4Height     = 11.69
	marginTop    = 0.2
	marginBottom = 0.2
	marginLeft   = 0.7
	marginRight  = 0.4
)

// ChromeRasterizer prints print-mode HTML to PDF with headless Chrome.
// Requires Chrome/Chromium to be installed on the system.
type ChromeRasterizer struct {
	// ExecPath overrides the browser binary; empty uses the chromedp lookup
	ExecPath string
	Timeout  time.Duration
}

var _ Rasterizer = (*ChromeRasterizer)(nil)

// NewChromeRasterizer creates a rasterizer; a zero timeout means DefaultRasterizeTimeout
func NewChromeRasterizer(execPath string, timeout time.Duration) *ChromeRasterizer {
	if timeout <= 0 {
		timeout = DefaultRasterizeTimeout
	}
	return &ChromeRasterizer{ExecPath: execPath, Timeout: timeout}
}

// Mode implements Rasterizer
func (r *ChromeRasterizer) Mode() Mode { return ModePrint }

// Rasterize loads markup into a blank page and prints it
func (r *ChromeRasterizer) Rasterize(ctx context.Context, markup string) ([]byte, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if r.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(r.ExecPath))
	}

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultRasterizeTimeout
	}
	browserCtx, cancel = context.WithTimeout(browserCtx, timeout)
	defer cancel()

	var pdf []byte
	err := chromedp.Run(browserCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, markup).Do(ctx)
		}),
		chromedp.WaitReady("body"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().
				WithPaperWidth(a4Width).
				WithPaperHeight(a4Height).
				WithMarginTop(marginTop).
				WithMarginBottom(marginBottom).
				WithMarginLeft(marginLeft).
				WithMarginRight(marginRight).
				WithPrintBackground(true).
				WithPreferCSSPageSize(true).
				Do(ctx)
			if err != nil {
				return err
			}
			pdf = buf
			return nil
		}),
	)
	if err != nil {
		return nil, rasterizeFailure(browserCtx, "browser printing failed", err)
	}
	if len(pdf) == 0 {
		return nil, &RasterizationError{Message: "browser returned an empty PDF"}
	}
	return pdf, nil
}
