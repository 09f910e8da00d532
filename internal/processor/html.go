package processor

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/tdewolff/parse/v2"
	phtml "github.com/tdewolff/parse/v2/html"
	"github.com/yosssi/gohtml"
)

// FormatHTML finishes serialized markup. With compress it collapses
// whitespace and strips comments; otherwise it re-indents the document with
// two spaces per level and normalizes line endings to "\n". Script and style
// bodies are never re-indented.
func (p *Processor) FormatHTML(markup string, compress bool) (string, error) {
	if compress {
		return p.html.String(mimeHTML, markup)
	}

	bodies, err := rawBodies(markup)
	if err != nil {
		return "", err
	}
	masked, keys := maskBodies(markup, bodies)

	pretty := unmaskBodies(gohtml.Format(masked), keys)
	pretty = strings.ReplaceAll(pretty, "\r\n", "\n")
	pretty = strings.ReplaceAll(pretty, "\r", "\n")
	if !strings.HasSuffix(pretty, "\n") {
		pretty += "\n"
	}
	return pretty, nil
}

// rawBodies lists the non-empty contents of script and style elements in
// document order.
func rawBodies(markup string) ([]string, error) {
	l := phtml.NewLexer(parse.NewInputString(markup))

	var (
		bodies []string
		raw    bool
	)
	for {
		tt, data := l.Next()
		switch tt {
		case phtml.ErrorToken:
			if err := l.Err(); err != nil && err != io.EOF {
				return nil, err
			}
			return bodies, nil
		case phtml.StartTagToken:
			name := l.Text()
			raw = bytes.EqualFold(name, []byte("script")) || bytes.EqualFold(name, []byte("style"))
		case phtml.AttributeToken, phtml.StartTagCloseToken:
		case phtml.TextToken:
			if raw && len(data) > 0 {
				bodies = append(bodies, string(data))
			}
			raw = false
		default:
			raw = false
		}
	}
}

type maskedBody struct {
	key  string
	body string
}

// maskBodies swaps every body for a placeholder the formatter leaves alone.
func maskBodies(markup string, bodies []string) (string, []maskedBody) {
	var (
		sb     strings.Builder
		keys   []maskedBody
		cursor int
	)
	for i, body := range bodies {
		at := strings.Index(markup[cursor:], body)
		if at < 0 {
			continue
		}
		key := fmt.Sprintf("__htmlc_raw_%d__", i)
		sb.WriteString(markup[cursor : cursor+at])
		sb.WriteString(key)
		cursor += at + len(body)
		keys = append(keys, maskedBody{key: key, body: body})
	}
	sb.WriteString(markup[cursor:])
	return sb.String(), keys
}

// unmaskBodies puts the bodies back, dropping the indentation the formatter
// placed in front of each placeholder.
func unmaskBodies(pretty string, keys []maskedBody) string {
	for _, k := range keys {
		at := strings.Index(pretty, k.key)
		if at < 0 {
			continue
		}
		start := at
		for start > 0 && (pretty[start-1] == ' ' || pretty[start-1] == '\t') {
			start--
		}
		pretty = pretty[:start] + k.body + pretty[at+len(k.key):]
	}
	return pretty
}
