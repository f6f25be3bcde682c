package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/matheuskafuri/xupdate/internal/feed"
)

const (
	NoUpdatesTitle = "No updates"
	NoUpdatesText  = "Either nothing happened, or your API didn't return anything. Both are believable."

	UnreachableTitle = "Can't reach API"
	UnreachableText  = "Check api_base in your config, and make sure the API is up and allows requests from this host."
)

// ListHTML renders the filtered records as item blocks, or the "No updates"
// placeholder when nothing is left after filtering.
func ListHTML(records []feed.Record, query string, loc *time.Location) string {
	filtered := Filter(records, query)
	if len(filtered) == 0 {
		return placeholderHTML(NoUpdatesTitle, NoUpdatesText)
	}

	var b strings.Builder
	for _, it := range Items(filtered, loc) {
		b.WriteString(`<div class="item">`)
		fmt.Fprintf(&b, `<div class="title">%s</div>`, Escape(it.Title))
		fmt.Fprintf(&b, `<div class="meta"><span class="mono">%s</span><span>%s</span></div>`, Escape(it.Tag), Escape(it.When))
		if it.Text != "" {
			fmt.Fprintf(&b, `<div class="text">%s</div>`, Escape(it.Text))
		}
		b.WriteString("</div>\n")
	}
	return b.String()
}

// UnreachableHTML is the list content when the API failed and nothing is cached.
func UnreachableHTML() string {
	return placeholderHTML(UnreachableTitle, UnreachableText)
}

func placeholderHTML(title, text string) string {
	return fmt.Sprintf(`<div class="item"><div class="title">%s</div><div class="text">%s</div></div>`+"\n",
		Escape(title), Escape(text))
}

// PageData is everything a full page render needs.
type PageData struct {
	APIBase     string
	Status      feed.Status
	Records     []feed.Record
	Unreachable bool
	Query       string
	Note        string
	Stats       string
	Location    *time.Location
	// RefreshAction is the form target for the refresh button; empty hides it.
	RefreshAction string
	// ReloadSeconds adds a meta refresh to the page when positive.
	ReloadSeconds int
}

// Page renders a complete standalone HTML document.
func Page(d PageData) string {
	list := ListHTML(d.Records, d.Query, d.Location)
	if d.Unreachable {
		list = UnreachableHTML()
	}

	dot := ""
	switch d.Status {
	case feed.StatusOnline:
		dot = " ok"
	case feed.StatusOffline:
		dot = " bad"
	}

	var b strings.Builder
	b.WriteString("<!doctype html>\n<html lang=\"en\">\n<head>\n<meta charset=\"utf-8\">\n")
	b.WriteString(`<meta name="viewport" content="width=device-width, initial-scale=1">` + "\n")
	if d.ReloadSeconds > 0 {
		fmt.Fprintf(&b, `<meta http-equiv="refresh" content="%d">`+"\n", d.ReloadSeconds)
	}
	b.WriteString("<title>Updates</title>\n<style>" + pageCSS + "</style>\n</head>\n<body>\n<main>\n")

	b.WriteString(`<header><h1>Updates</h1>`)
	fmt.Fprintf(&b, `<div class="status"><span id="statusDot" class="dot%s"></span><span id="statusText">%s</span></div>`,
		dot, Escape(d.Status.Label()))
	fmt.Fprintf(&b, `<div id="apiLine" class="mono">API: %s</div></header>`+"\n", Escape(d.APIBase))

	b.WriteString(`<div class="controls">`)
	fmt.Fprintf(&b, `<form method="get" action=""><input id="search" type="search" name="q" placeholder="Filter updates..." value="%s"></form>`,
		Escape(d.Query))
	if d.RefreshAction != "" {
		fmt.Fprintf(&b, `<form method="post" action="%s"><button id="refreshBtn" type="submit">Refresh</button></form>`,
			Escape(d.RefreshAction))
	}
	b.WriteString("</div>\n")

	fmt.Fprintf(&b, "<section id=\"list\">\n%s</section>\n", list)
	fmt.Fprintf(&b, "<p id=\"note\">%s</p>\n", Escape(d.Note))
	fmt.Fprintf(&b, "<h2>Stats</h2>\n<pre id=\"statsBox\">%s</pre>\n", Escape(d.Stats))
	b.WriteString("</main>\n</body>\n</html>\n")
	return b.String()
}

const pageCSS = `
body{font-family:system-ui,sans-serif;background:#0f1117;color:#e6e6e6;margin:0}
main{max-width:760px;margin:0 auto;padding:24px}
header{display:flex;flex-wrap:wrap;gap:12px;align-items:center;justify-content:space-between}
.status{display:flex;gap:8px;align-items:center}
.dot{width:10px;height:10px;border-radius:50%;background:#e5b93a;display:inline-block}
.dot.ok{background:#25d366}.dot.bad{background:#f25d94}
.mono{font-family:ui-monospace,monospace;font-size:12px;color:#9b9b9b}
.controls{display:flex;gap:8px;margin:16px 0}
.controls form:first-child{flex:1}
input[type=search]{width:100%;padding:8px;background:#1a1d27;border:1px solid #383838;color:inherit}
button{padding:8px 14px;background:#7571f9;color:#fff;border:0;cursor:pointer}
.item{border:1px solid #383838;border-radius:6px;padding:12px;margin-bottom:10px}
.title{font-weight:600;color:#7571f9}
.meta{display:flex;gap:10px;margin:4px 0;font-size:12px;color:#9b9b9b}
.text{white-space:pre-wrap}
#note{color:#9b9b9b;font-size:13px}
pre{background:#1a1d27;padding:12px;overflow:auto}
`
