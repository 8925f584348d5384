package blogservice

import "github.com/microcosm-cc/bluemonday"

// ugc allows the formatting the rich text editor produces and strips scripts, event
// handlers and javascript: URLs.
var ugc = bluemonday.UGCPolicy()

func sanitizeHTML(html string) string {
	return ugc.Sanitize(html)
}
