// Package templates renders the status server's HTML.
//
// Components are built with templ.ComponentFunc and escape every dynamic value
// with templ.EscapeString.
package templates

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/steamsync/internal/core"
)

// StatusData is everything the status page shows.
type StatusData struct {
	State        string
	Last         *core.RunReport
	Tables       []core.TableStatus
	SoldPackages int
	WishlistApps int
	FollowerApps int
	Now          time.Time
}

const pageHead = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>steamsync</title>
<style>
body { font-family: system-ui, sans-serif; margin: 2rem; color: #1f2937; }
table { border-collapse: collapse; margin-bottom: 1.5rem; }
th, td { border: 1px solid #d1d5db; padding: .35rem .7rem; text-align: left; }
.failed { color: #b91c1c; }
.ok { color: #047857; }
.muted { color: #6b7280; }
</style>
</head>
<body>
`

// Status renders the status page.
func Status(data StatusData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(pageHead)

		fmt.Fprintf(&b, "<h1>steamsync</h1>\n<p>Scheduler: <strong>%s</strong> <span class=\"muted\">at %s</span></p>\n",
			esc(data.State), esc(data.Now.UTC().Format(time.RFC3339)))
		fmt.Fprintf(&b, "<p class=\"muted\">Tracking %d packages, %d wishlist apps, %d follower apps.</p>\n",
			data.SoldPackages, data.WishlistApps, data.FollowerApps)

		b.WriteString("<h2>Tables</h2>\n<table>\n<tr><th>Table</th><th>Rows</th></tr>\n")
		for _, t := range data.Tables {
			rows := fmt.Sprintf("%d", t.Rows)
			if t.Err != "" {
				rows = `<span class="failed">` + esc(t.Err) + `</span>`
			}
			fmt.Fprintf(&b, "<tr><td>%s <span class=\"muted\">%s</span></td><td>%s</td></tr>\n",
				esc(t.Info.Label), esc(t.Info.Key), rows)
		}
		b.WriteString("</table>\n")

		b.WriteString("<h2>Last run</h2>\n")
		if data.Last == nil {
			b.WriteString("<p class=\"muted\">No run has finished yet.</p>\n")
		} else {
			writeReport(&b, *data.Last)
		}

		b.WriteString("</body>\n</html>\n")
		_, err := io.WriteString(w, b.String())
		return err
	})
}

func writeReport(b *strings.Builder, r core.RunReport) {
	fmt.Fprintf(b, "<p>Run <code>%s</code> (%s) started %s, took %s.</p>\n",
		esc(r.RunID.String()), esc(string(r.Trigger)),
		esc(r.StartedAt.Format(time.RFC3339)),
		esc(r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String()))

	b.WriteString("<table>\n<tr><th>Task</th><th>Result</th><th>Inserted</th><th>Duplicates</th>" +
		"<th>Out of window</th><th>Failed rows</th><th>Purged</th></tr>\n")
	for _, t := range r.Tasks {
		outcome := `<span class="ok">ok</span>`
		if t.Failed() {
			outcome = fmt.Sprintf(`<span class="failed">%s: %s</span>`, esc(t.Code), esc(t.Err))
		}
		fmt.Fprintf(b, "<tr><td>%s</td><td>%s</td><td>%d</td><td>%d</td><td>%d</td><td>%d</td><td>%d</td></tr>\n",
			esc(t.Name), outcome,
			t.Result.Inserted, t.Result.Duplicates, t.Result.OutOfWindow, t.Result.Failed, t.Result.Purged)
	}
	b.WriteString("</table>\n")
}

// ErrorAlert renders an error fragment with its code and suggested action.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, "<div class=\"failed\" role=\"alert\"><strong>%s</strong> (Code: %s)<br>%s</div>\n",
			esc(message), esc(code), esc(action))
		return err
	})
}

func esc(s string) string {
	return templ.EscapeString(s)
}
