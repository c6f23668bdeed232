// Package report renders the outcomes of a scenario run as Markdown, HTML or JSON.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/microcosm-cc/bluemonday"

	"github.com/kuitang/quoteform-e2e/internal/errs"
	"github.com/kuitang/quoteform-e2e/internal/matrix"
)

// Format is an output format.
type Format string

const (
	FormatMarkdown Format = "md"
	FormatHTML     Format = "html"
	FormatJSON     Format = "json"
)

// ParseFormat accepts md, markdown, html or json.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "md", "markdown":
		return FormatMarkdown, nil
	case "html":
		return FormatHTML, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", errs.New(errs.InvalidArgument, fmt.Sprintf("unknown report format %q (want md, html or json)", s))
	}
}

// Report is one run's results.
type Report struct {
	RunID      string           `json:"run_id"`
	Target     string           `json:"target"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Summary    matrix.Summary   `json:"summary"`
	Outcomes   []matrix.Outcome `json:"outcomes"`
}

// New builds a report and computes its summary.
func New(runID, target string, started, finished time.Time, outcomes []matrix.Outcome) Report {
	return Report{
		RunID:      runID,
		Target:     target,
		StartedAt:  started.UTC(),
		FinishedAt: finished.UTC(),
		Summary:    matrix.Summarize(outcomes),
		Outcomes:   outcomes,
	}
}

// Write renders r to w in format f.
func Write(w io.Writer, f Format, r Report) error {
	switch f {
	case FormatMarkdown:
		_, err := io.WriteString(w, Markdown(r))
		return err
	case FormatHTML:
		_, err := w.Write(HTML(r))
		return err
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	default:
		return errs.New(errs.InvalidArgument, fmt.Sprintf("unknown report format %q", f))
	}
}

// Markdown renders r as a Markdown document with one table row per outcome
// and a section per failure.
func Markdown(r Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Quote form run %s\n\n", r.RunID)
	fmt.Fprintf(&b, "Target: `%s`\n\n", r.Target)
	fmt.Fprintf(&b, "**%d passed, %d failed** of %d in %s\n\n",
		r.Summary.Passed, r.Summary.Failed, r.Summary.Total,
		r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))

	b.WriteString("| Scenario | Result | Expected | Actual | Duration |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for _, o := range r.Outcomes {
		result := "PASS"
		if !o.Passed {
			result = "FAIL"
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
			cell(o.Scenario), result, cell(o.Expected), cell(o.Actual),
			o.Duration.Round(time.Millisecond))
	}

	var failed []matrix.Outcome
	for _, o := range r.Outcomes {
		if !o.Passed {
			failed = append(failed, o)
		}
	}
	if len(failed) == 0 {
		return b.String()
	}

	b.WriteString("\n## Failures\n")
	for _, o := range failed {
		fmt.Fprintf(&b, "\n### %s\n\n", o.Scenario)
		fmt.Fprintf(&b, "- reason: %s\n", inline(o.Failure()))
		fmt.Fprintf(&b, "- reached: `%s`\n", o.Reached)
		if o.Code != "" {
			fmt.Fprintf(&b, "- code: `%s`\n", o.Code)
		}
		for _, a := range o.Artifacts {
			fmt.Fprintf(&b, "- %s: `%s`\n", a.Kind, a.Location)
		}
	}
	return b.String()
}

func cell(s string) string {
	if s == "" {
		return "–"
	}
	return strings.ReplaceAll(inline(s), "|", `\|`)
}

func inline(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Quote form run {{.RunID}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif; max-width: 1100px; margin: 2em auto; padding: 0 1em; }
        table { border-collapse: collapse; width: 100%; }
        th, td { border: 1px solid #ccc; padding: 0.4em 0.6em; text-align: left; }
        th { background-color: #f4f4f4; }
        code { background-color: #f4f4f4; padding: 0 0.2em; }
    </style>
</head>
<body class="{{.Status}}">
    <article>
        {{.Content}}
    </article>
</body>
</html>`

var pageTemplate = template.Must(template.New("report").Parse(htmlTemplate))

// HTML renders the Markdown report as a standalone, sanitized HTML page.
func HTML(r Report) []byte {
	extensions := parser.CommonExtensions | parser.AutoHeadingIDs | parser.NoEmptyLineBeforeBlock
	doc := parser.NewWithExtensions(extensions).Parse([]byte(Markdown(r)))

	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{Flags: mdhtml.CommonFlags})
	content := bluemonday.UGCPolicy().SanitizeBytes(markdown.Render(doc, renderer))

	status := "passed"
	if r.Summary.Failed > 0 {
		status = "failed"
	}
	var buf bytes.Buffer
	err := pageTemplate.Execute(&buf, struct {
		RunID   string
		Status  string
		Content template.HTML
	}{r.RunID, status, template.HTML(content)})
	if err != nil {
		return []byte("<!DOCTYPE html><html><head><title>Error</title></head><body><h1>Error rendering report</h1></body></html>")
	}
	return buf.Bytes()
}
