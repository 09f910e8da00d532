// Package processor holds the asset transforms the compiler runs over one
// document: the stylesheet processor (import inlining, nesting flattening,
// minify or pretty print), the script minifier and the HTML formatter.
//
// Minification is delegated to tdewolff/minify. Each concern keeps its own
// minify.M so that markup minification never re-minifies (and never fails on)
// script or style content the other stages already produced.
package processor

import (
	"mime"
	"path/filepath"
	"strings"

	"github.com/tdewolff/minify/v2"
	mcss "github.com/tdewolff/minify/v2/css"
	mhtml "github.com/tdewolff/minify/v2/html"
	mjs "github.com/tdewolff/minify/v2/js"
)

const (
	mimeCSS  = "text/css"
	mimeJS   = "application/javascript"
	mimeHTML = "text/html"
)

// Reader loads stylesheet imports.
type Reader interface {
	Read(path string) (string, error)
}

// Processor bundles the stylesheet, script and markup transforms.
type Processor struct {
	reader Reader
	css    *minify.M
	js     *minify.M
	html   *minify.M
}

// New returns a Processor reading @import targets through r.
func New(r Reader) *Processor {
	css := minify.New()
	css.AddFunc(mimeCSS, mcss.Minify)

	js := minify.New()
	js.AddFunc(mimeJS, mjs.Minify)

	markup := minify.New()
	markup.Add(mimeHTML, &mhtml.Minifier{
		KeepDocumentTags: true,
		KeepEndTags:      true,
		KeepQuotes:       true,
	})

	return &Processor{
		reader: r,
		css:    css,
		js:     js,
		html:   markup,
	}
}

// MinifyJS minifies a script.
func (p *Processor) MinifyJS(js string) (string, error) {
	return p.js.String(mimeJS, js)
}

// MimeType returns the media type for a file name, judged by its extension.
// Unknown extensions map to application/octet-stream.
func MimeType(name string) string {
	t := mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
	if t == "" {
		return "application/octet-stream"
	}
	if i := strings.IndexByte(t, ';'); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	return t
}
