package processor

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
)

// ProcessCSS turns a stylesheet that may use nested rules into plain CSS.
// Local @import statements are inlined, resolved against baseDir (nested
// imports against the importing file's directory). With compress the result
// is minified, otherwise it is printed expanded with two-space indentation.
func (p *Processor) ProcessCSS(src, baseDir string, compress bool) (string, error) {
	toks, err := tokenize(src)
	if err != nil {
		return "", err
	}
	toks, err = p.inlineImports(toks, baseDir, map[string]bool{})
	if err != nil {
		return "", err
	}

	ps := &cssParser{toks: toks}
	items, err := ps.parseBlock(true)
	if err != nil {
		return "", err
	}
	blocks, err := flattenTop(items)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	render(&sb, blocks, 0)
	if !compress {
		return sb.String(), nil
	}
	return p.css.String(mimeCSS, sb.String())
}

type token struct {
	typ  css.TokenType
	text string
}

func tokenize(src string) ([]token, error) {
	l := css.NewLexer(parse.NewInputString(src))
	var toks []token
	for {
		tt, data := l.Next()
		switch tt {
		case css.ErrorToken:
			if err := l.Err(); err != nil && err != io.EOF {
				return nil, err
			}
			return toks, nil
		case css.CommentToken, css.CDOToken, css.CDCToken:
			continue
		}
		toks = append(toks, token{typ: tt, text: string(data)})
	}
}

// inlineImports replaces top-level `@import "x.css";` statements with the
// tokens of the imported file. Imports carrying media queries and remote
// URLs stay untouched.
func (p *Processor) inlineImports(toks []token, dir string, seen map[string]bool) ([]token, error) {
	out := make([]token, 0, len(toks))
	depth := 0
	for i := 0; i < len(toks); i++ {
		t := toks[i]
		switch t.typ {
		case css.LeftBraceToken:
			depth++
		case css.RightBraceToken:
			depth--
		}
		if depth != 0 || t.typ != css.AtKeywordToken || !strings.EqualFold(t.text, "@import") {
			out = append(out, t)
			continue
		}

		end := i + 1
		for end < len(toks) && toks[end].typ != css.SemicolonToken {
			end++
		}
		target, plain := importTarget(toks[i+1 : end])
		if !plain || target == "" || isRemote(target) || p.reader == nil {
			out = append(out, toks[i:min(end+1, len(toks))]...)
			i = end
			continue
		}

		path := filepath.Join(dir, target)
		if seen[path] {
			return nil, fmt.Errorf("import cycle through %s", path)
		}
		src, err := p.readImport(path)
		if err != nil {
			return nil, err
		}
		nested, err := tokenize(src)
		if err != nil {
			return nil, err
		}
		seen[path] = true
		nested, err = p.inlineImports(nested, filepath.Dir(path), seen)
		delete(seen, path)
		if err != nil {
			return nil, err
		}
		out = append(out, nested...)
		out = append(out, token{typ: css.WhitespaceToken, text: "\n"})
		i = end
	}
	return out, nil
}

func (p *Processor) readImport(path string) (string, error) {
	src, err := p.reader.Read(path)
	if err != nil && filepath.Ext(path) == "" {
		if alt, altErr := p.reader.Read(path + ".css"); altErr == nil {
			return alt, nil
		}
	}
	return src, err
}

// importTarget extracts the URL of an @import prelude. plain is false when
// anything besides the URL follows (media queries, layer(), supports()).
func importTarget(args []token) (target string, plain bool) {
	args = trimSpace(args)
	if len(args) == 0 {
		return "", false
	}

	rest := args[1:]
	switch first := args[0]; first.typ {
	case css.StringToken:
		target = unquote(first.text)
	case css.URLToken:
		inner := strings.TrimSuffix(first.text[strings.IndexByte(first.text, '(')+1:], ")")
		target = unquote(strings.TrimSpace(inner))
	case css.FunctionToken:
		if !strings.EqualFold(first.text, "url(") {
			return "", false
		}
		rest = trimSpace(rest)
		if len(rest) < 2 || rest[0].typ != css.StringToken {
			return "", false
		}
		target = unquote(rest[0].text)
		rest = trimSpace(rest[1:])
		if len(rest) == 0 || rest[0].typ != css.RightParenthesisToken {
			return "", false
		}
		rest = rest[1:]
	default:
		return "", false
	}
	return target, len(trimSpace(rest)) == 0
}

func isRemote(target string) bool {
	return strings.Contains(target, "://") || strings.HasPrefix(target, "//")
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

func trimSpace(toks []token) []token {
	for len(toks) > 0 && toks[0].typ == css.WhitespaceToken {
		toks = toks[1:]
	}
	for len(toks) > 0 && toks[len(toks)-1].typ == css.WhitespaceToken {
		toks = toks[:len(toks)-1]
	}
	return toks
}

// textOf joins tokens, collapsing whitespace runs into one space.
func textOf(toks []token) string {
	var sb strings.Builder
	for _, t := range trimSpace(toks) {
		if t.typ == css.WhitespaceToken {
			sb.WriteByte(' ')
			continue
		}
		sb.WriteString(t.text)
	}
	return sb.String()
}

type itemKind int

const (
	itemDecl itemKind = iota
	itemRule
	itemAt
)

// item is one entry of a block: a declaration, a (possibly nested) style
// rule or an at-rule.
type item struct {
	kind     itemKind
	name     string // at-rule name, lower case, without '@'
	text     string // declaration, selector list or at-rule prelude
	block    bool
	children []item
}

type cssParser struct {
	toks []token
	pos  int
}

func (ps *cssParser) parseBlock(top bool) ([]item, error) {
	var items []item
	for {
		for ps.pos < len(ps.toks) && (ps.toks[ps.pos].typ == css.WhitespaceToken || ps.toks[ps.pos].typ == css.SemicolonToken) {
			ps.pos++
		}
		if ps.pos >= len(ps.toks) {
			if top {
				return items, nil
			}
			return nil, fmt.Errorf("unclosed block at end of stylesheet")
		}
		if ps.toks[ps.pos].typ == css.RightBraceToken {
			if top {
				return nil, fmt.Errorf("unexpected '}'")
			}
			ps.pos++
			return items, nil
		}

		prelude, term := ps.readPrelude()
		it, err := newItem(prelude, term == css.LeftBraceToken)
		if err != nil {
			return nil, err
		}
		if it.block {
			if it.children, err = ps.parseBlock(false); err != nil {
				return nil, err
			}
		}
		items = append(items, it)
	}
}

// readPrelude consumes tokens up to the next top-level ';' or '{' (both
// consumed) or '}' (left for the caller) and reports which one ended it.
func (ps *cssParser) readPrelude() ([]token, css.TokenType) {
	start := ps.pos
	depth := 0
	for ps.pos < len(ps.toks) {
		t := ps.toks[ps.pos]
		switch t.typ {
		case css.LeftParenthesisToken, css.FunctionToken, css.LeftBracketToken:
			depth++
		case css.RightParenthesisToken, css.RightBracketToken:
			if depth > 0 {
				depth--
			}
		case css.SemicolonToken, css.LeftBraceToken:
			if depth == 0 {
				ps.pos++
				return ps.toks[start : ps.pos-1], t.typ
			}
		case css.RightBraceToken:
			if depth == 0 {
				return ps.toks[start:ps.pos], t.typ
			}
		}
		ps.pos++
	}
	return ps.toks[start:], css.ErrorToken
}

func newItem(prelude []token, block bool) (item, error) {
	prelude = trimSpace(prelude)
	if len(prelude) > 0 && prelude[0].typ == css.AtKeywordToken {
		return item{
			kind:  itemAt,
			name:  strings.ToLower(strings.TrimPrefix(prelude[0].text, "@")),
			text:  textOf(prelude[1:]),
			block: block,
		}, nil
	}
	if block {
		return item{kind: itemRule, text: textOf(prelude), block: true}, nil
	}

	for i, t := range prelude {
		if t.typ == css.ColonToken {
			name, value := textOf(prelude[:i]), textOf(prelude[i+1:])
			if name == "" {
				break
			}
			return item{kind: itemDecl, text: name + ": " + value}, nil
		}
	}
	return item{}, fmt.Errorf("invalid declaration %q", textOf(prelude))
}

// conditionalAtRules wrap style rules; their bodies inherit the enclosing
// selector when nested inside a rule.
var conditionalAtRules = map[string]bool{
	"media":          true,
	"supports":       true,
	"container":      true,
	"layer":          true,
	"scope":          true,
	"document":       true,
	"starting-style": true,
}

// block is one flattened output rule or at-rule.
type block struct {
	header    string
	decls     []string
	children  []block
	at        bool
	statement bool
}

func flattenTop(items []item) ([]block, error) {
	var out []block
	for _, it := range items {
		if it.kind == itemDecl {
			return nil, fmt.Errorf("declaration %q outside of a style rule", it.text)
		}
		blocks, err := flattenItem(it, nil)
		if err != nil {
			return nil, err
		}
		out = append(out, blocks...)
	}
	return out, nil
}

// flattenRule emits the declarations of a rule under selectors, followed by
// its nested rules resolved against those selectors.
func flattenRule(selectors []string, children []item) ([]block, error) {
	var decls []string
	var nested []block
	for _, it := range children {
		if it.kind == itemDecl {
			decls = append(decls, it.text)
			continue
		}
		blocks, err := flattenItem(it, selectors)
		if err != nil {
			return nil, err
		}
		nested = append(nested, blocks...)
	}

	var out []block
	if len(decls) > 0 {
		out = append(out, block{header: strings.Join(selectors, ", "), decls: decls})
	}
	return append(out, nested...), nil
}

func flattenItem(it item, parents []string) ([]block, error) {
	switch it.kind {
	case itemRule:
		return flattenRule(resolveSelectors(parents, splitList(it.text)), it.children)
	case itemAt:
		header := "@" + it.name
		if it.text != "" {
			header += " " + it.text
		}
		if !it.block {
			return []block{{header: header, at: true, statement: true}}, nil
		}

		if conditionalAtRules[it.name] {
			var inner []block
			var err error
			if parents != nil {
				inner, err = flattenRule(parents, it.children)
			} else {
				inner, err = flattenTop(it.children)
			}
			if err != nil {
				return nil, err
			}
			return []block{{header: header, at: true, children: inner}}, nil
		}

		// @keyframes, @font-face, @page and friends: declarations stay on the
		// at-rule and inner selectors are not scoped by the enclosing rule.
		at := block{header: header, at: true}
		for _, child := range it.children {
			if child.kind == itemDecl {
				at.decls = append(at.decls, child.text)
				continue
			}
			blocks, err := flattenItem(child, nil)
			if err != nil {
				return nil, err
			}
			at.children = append(at.children, blocks...)
		}
		return []block{at}, nil
	default:
		return nil, fmt.Errorf("declaration %q outside of a style rule", it.text)
	}
}

// resolveSelectors combines every parent selector with every child
// selector. '&' stands for the parent; a child without '&' is a descendant.
func resolveSelectors(parents, children []string) []string {
	if parents == nil {
		return children
	}
	out := make([]string, 0, len(parents)*len(children))
	for _, parent := range parents {
		for _, child := range children {
			if strings.Contains(child, "&") {
				out = append(out, strings.ReplaceAll(child, "&", parent))
			} else {
				out = append(out, parent+" "+child)
			}
		}
	}
	return out
}

// splitList splits a selector list on top-level commas.
func splitList(s string) []string {
	var out []string
	depth := 0
	var quote byte
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '(' || c == '[':
			depth++
		case c == ')' || c == ']':
			if depth > 0 {
				depth--
			}
		case c == ',' && depth == 0:
			if part := strings.TrimSpace(s[start:i]); part != "" {
				out = append(out, part)
			}
			start = i + 1
		}
	}
	if part := strings.TrimSpace(s[start:]); part != "" {
		out = append(out, part)
	}
	return out
}

func render(sb *strings.Builder, blocks []block, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, b := range blocks {
		if b.statement {
			sb.WriteString(indent + b.header + ";\n")
			continue
		}
		if len(b.decls) == 0 && len(b.children) == 0 {
			continue
		}
		sb.WriteString(indent + b.header + " {\n")
		for _, d := range b.decls {
			sb.WriteString(indent + "  " + d + ";\n")
		}
		render(sb, b.children, depth+1)
		sb.WriteString(indent + "}\n")
	}
}
