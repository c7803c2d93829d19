package export

import (
	"bytes"
	"embed"
	"html/template"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/joelkehle/bizcase/internal/businesscase"
	"github.com/joelkehle/bizcase/internal/report"
)

//go:embed templates/report.html.tmpl templates/style.css
var assets embed.FS

var (
	reportTmpl = template.Must(template.ParseFS(assets, "templates/report.html.tmpl"))
	markdown   = goldmark.New(goldmark.WithExtensions(extension.GFM))
)

type Download struct {
	Label string
	URL   string
}

type HTMLOptions struct {
	// Downloads are links shown above the report in the browser preview.
	Downloads []Download
}

type pageData struct {
	Title     string
	Style     template.CSS
	Report    businesscase.ReportData
	NPV       string
	Degraded  bool
	Downloads []Download
	Content   template.HTML
}

func RenderHTML(r businesscase.ReportData) ([]byte, error) {
	return RenderHTMLWith(r, HTMLOptions{})
}

// RenderHTMLWith renders the standalone preview page: the report markdown
// converted to HTML with the projection charts inserted after the
// projections table.
func RenderHTMLWith(r businesscase.ReportData, opts HTMLOptions) ([]byte, error) {
	var content bytes.Buffer
	if err := markdown.Convert([]byte(report.BuildMarkdown(r)), &content); err != nil {
		return nil, eris.Wrap(err, "markdown convert")
	}
	charts, err := chartsHTML(r.FinancialProjections)
	if err != nil {
		return nil, err
	}
	body := applyLayoutHooks(content.String(), charts)

	style, err := assets.ReadFile("templates/style.css")
	if err != nil {
		return nil, eris.Wrap(err, "read style.css")
	}

	var out bytes.Buffer
	if err := reportTmpl.Execute(&out, pageData{
		Title:     r.Title(),
		Style:     template.CSS(style),
		Report:    r,
		NPV:       report.FormatUSD(r.FinancialMetrics.NPV),
		Degraded:  r.Mode == businesscase.ReportModeDegraded,
		Downloads: opts.Downloads,
		Content:   template.HTML(body),
	}); err != nil {
		return nil, eris.Wrap(err, "render html")
	}
	return out.Bytes(), nil
}

func chartsHTML(p []businesscase.YearlyProjection) (string, error) {
	if len(p) == 0 {
		return "", nil
	}
	bars, err := revenueCostChart(p)
	if err != nil {
		return "", eris.Wrap(err, "revenue chart")
	}
	line, err := cashFlowChart(p)
	if err != nil {
		return "", eris.Wrap(err, "cash flow chart")
	}
	var b strings.Builder
	b.WriteString(`<div class="charts">`)
	b.WriteString(`<figure><figcaption class="chart-title">Revenue <span class="key revenue"></span> vs costs <span class="key costs"></span></figcaption>`)
	b.WriteString(bars)
	b.WriteString(`</figure><figure><figcaption class="chart-title">Cumulative cash flow</figcaption>`)
	b.WriteString(line)
	b.WriteString(`</figure></div>`)
	return b.String(), nil
}

var (
	reMetricsHeading = regexp.MustCompile(`(?i)<h2([^>]*)>\s*Financial Metrics\s*</h2>`)
	reRiskHeading    = regexp.MustCompile(`(?i)<h2([^>]*)>\s*Risk Assessment\s*</h2>`)
)

// applyLayoutHooks places charts ahead of the metrics section and starts the
// risk section on a new printed page.
func applyLayoutHooks(contentHTML, charts string) string {
	out := contentHTML
	if charts != "" {
		loc := reMetricsHeading.FindStringIndex(out)
		if loc != nil {
			out = out[:loc[0]] + charts + out[loc[0]:]
		}
	}
	return reRiskHeading.ReplaceAllString(out, `<h2$1 data-page-break-before="true">Risk Assessment</h2>`)
}
