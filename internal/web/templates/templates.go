// Package templates holds the HTML components of the report server.
package templates

import (
	"context"
	"io"
	"strconv"
	"time"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/txrecover/internal/core"
)

const layoutStyle = `
body{font-family:system-ui,sans-serif;margin:0;background:#f5f6f8;color:#1d2330}
main{max-width:900px;margin:32px auto;background:#fff;border-radius:8px;padding:24px 32px}
.alert{border:1px solid #e5a3a3;background:#fdf1f1;border-radius:6px;padding:12px 16px}
.muted{color:#6b7384}
table{border-collapse:collapse;width:100%}
th,td{border-bottom:1px solid #e1e4ea;padding:6px 8px;text-align:left}
`

type writer struct {
	w   io.Writer
	err error
}

func (w *writer) raw(s string) {
	if w.err != nil {
		return
	}
	_, w.err = io.WriteString(w.w, s)
}

func (w *writer) text(s string) {
	w.raw(templ.EscapeString(s))
}

// ErrorAlert renders a user-facing error with its support code.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := &writer{w: out}
		w.raw(`<div class="alert" role="alert"><strong>`)
		w.text(message)
		w.raw("</strong>")
		if action != "" {
			w.raw("<p>")
			w.text(action)
			w.raw("</p>")
		}
		w.raw(`<p class="muted">Code: `)
		w.text(code)
		w.raw("</p></div>")
		return w.err
	})
}

// ErrorPage wraps ErrorAlert in a full document.
func ErrorPage(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := &writer{w: out}
		w.raw(`<!doctype html><html lang="en"><head><meta charset="utf-8"><title>Error</title><style>` + layoutStyle + `</style></head><body><main>`)
		if w.err != nil {
			return w.err
		}
		if err := ErrorAlert(message, action, code).Render(ctx, out); err != nil {
			return err
		}
		w.raw(`<p><a href="/">Back to uploads</a></p></main></body></html>`)
		return w.err
	})
}

// Index is the upload page with the analyses still held in memory.
func Index(recent []core.AnalysisSummary) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := &writer{w: out}
		w.raw(`<!doctype html><html lang="en"><head><meta charset="utf-8"><title>Transaction recovery</title><style>` + layoutStyle + `</style></head><body><main>`)
		w.raw(`<h1>Analyze a payment export</h1>`)
		w.raw(`<form action="/api/analyze?redirect=1" method="post" enctype="multipart/form-data">`)
		w.raw(`<input type="file" name="file" accept=".csv,text/csv" required> <button type="submit">Analyze</button></form>`)
		w.raw(`<h2>Recent analyses</h2>`)
		if len(recent) == 0 {
			w.raw(`<p class="muted">No analyses yet.</p></main></body></html>`)
			return w.err
		}
		w.raw(`<table><thead><tr><th>File</th><th>Created</th><th>Transactions</th><th>Rejected</th><th></th></tr></thead><tbody>`)
		for _, a := range recent {
			w.raw("<tr><td>")
			w.text(a.FileName)
			w.raw("</td><td>")
			w.text(a.CreatedAt.Format(time.RFC1123))
			w.raw("</td><td>")
			w.text(strconv.Itoa(a.Transactions))
			w.raw("</td><td>")
			w.text(strconv.Itoa(a.Rejected))
			w.raw(`</td><td><a href="/reports/`)
			w.text(a.ID)
			w.raw(`">Report</a> · <a href="/api/reports/`)
			w.text(a.ID)
			w.raw(`/export.xlsx">XLSX</a></td></tr>`)
		}
		w.raw("</tbody></table></main></body></html>")
		return w.err
	})
}
