package export

import (
	"context"
	"encoding/base64"
	"fmt"
	"html"
	"os"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/rotisserie/eris"

	"github.com/joelkehle/bizcase/internal/businesscase"
	"github.com/joelkehle/bizcase/internal/config"
)

type paperSize struct {
	width, height float64
}

var paperSizes = map[string]paperSize{
	"A4":     {8.27, 11.69},
	"Letter": {8.5, 11},
}

// PDFRenderer prints the HTML preview through headless Chromium.
type PDFRenderer struct {
	chromePath string
	timeout    time.Duration
	paper      paperSize
	print      func(ctx context.Context, htmlDoc []byte, chrome pageChrome) ([]byte, error)
}

// pageChrome holds the header and footer templates Chromium stamps on every
// printed page.
type pageChrome struct {
	header, footer string
}

const pageChromeStyle = `width:100%;font-size:8px;color:#57534e;padding:0 0.45in;display:flex;justify-content:space-between;`

// pageChromeFor puts the report title and generation date in the footer. A
// degraded report also carries a header banner so loose printed pages are
// still marked as fallback output.
func pageChromeFor(rep businesscase.ReportData) pageChrome {
	generated := ""
	if !rep.CreatedAt.IsZero() {
		generated = "Generated " + rep.CreatedAt.UTC().Format("2 Jan 2006")
	}
	c := pageChrome{
		header: `<div></div>`,
		footer: fmt.Sprintf(`<div style="%s"><span>%s</span><span>%s</span>`+
			`<span>Page <span class="pageNumber"></span> of <span class="totalPages"></span></span></div>`,
			pageChromeStyle, html.EscapeString(rep.Title()), generated),
	}
	if rep.Mode == businesscase.ReportModeDegraded {
		c.header = fmt.Sprintf(`<div style="%scolor:#b45309;font-weight:600;"><span>Degraded report: %d narrative section(s) use fallback content</span></div>`,
			pageChromeStyle, len(rep.FailedSections))
	}
	return c
}

func NewPDFRenderer(cfg config.ExportConfig) *PDFRenderer {
	r := &PDFRenderer{
		chromePath: cfg.ChromePath,
		timeout:    time.Duration(cfg.PDFTimeoutSecs) * time.Second,
		paper:      paperSizes["A4"],
	}
	if p, ok := paperSizes[cfg.PageFormat]; ok {
		r.paper = p
	}
	if r.chromePath == "" {
		r.chromePath = detectChromePath()
	}
	if r.timeout <= 0 {
		r.timeout = 30 * time.Second
	}
	r.print = r.printChromium
	return r
}

func (r *PDFRenderer) Render(ctx context.Context, rep businesscase.ReportData) ([]byte, error) {
	htmlDoc, err := RenderHTML(rep)
	if err != nil {
		return nil, err
	}
	return r.print(ctx, htmlDoc, pageChromeFor(rep))
}

func (r *PDFRenderer) printChromium(ctx context.Context, htmlDoc []byte, chrome pageChrome) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
	}
	if r.chromePath != "" {
		opts = append(opts, chromedp.ExecPath(r.chromePath))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(timeoutCtx, append(chromedp.DefaultExecAllocatorOptions[:], opts...)...)
	defer allocCancel()

	taskCtx, taskCancel := chromedp.NewContext(allocCtx)
	defer taskCancel()

	var pdf []byte
	dataURL := "data:text/html;base64," + base64.StdEncoding.EncodeToString(htmlDoc)
	if err := chromedp.Run(taskCtx,
		chromedp.Navigate(dataURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			out, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithDisplayHeaderFooter(true).
				WithHeaderTemplate(chrome.header).
				WithFooterTemplate(chrome.footer).
				WithPaperWidth(r.paper.width).
				WithPaperHeight(r.paper.height).
				WithMarginTop(0.6).
				WithMarginBottom(0.75).
				WithMarginLeft(0.45).
				WithMarginRight(0.45).
				Do(ctx)
			if err != nil {
				return err
			}
			pdf = out
			return nil
		}),
	); err != nil {
		return nil, eris.Wrap(err, "print pdf")
	}
	return pdf, nil
}

func detectChromePath() string {
	candidates := []string{
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/usr/bin/google-chrome",
		"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
