package processor

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapReader serves imports from memory.
type mapReader map[string]string

func (m mapReader) Read(path string) (string, error) {
	if src, ok := m[filepath.Clean(path)]; ok {
		return src, nil
	}
	return "", fmt.Errorf("open %s: file does not exist", path)
}

func TestProcessCSSFlattensNesting(t *testing.T) {
	p := New(mapReader{})

	out, err := p.ProcessCSS(`.a {
		color: red;
		.b { color: blue }
		&:hover { color: green; }
		> .c { margin: 0 }
	}`, "/src", false)
	require.NoError(t, err)

	expected := `.a {
  color: red;
}
.a .b {
  color: blue;
}
.a:hover {
  color: green;
}
.a > .c {
  margin: 0;
}
`
	assert.Equal(t, expected, out)
}

func TestProcessCSSSelectorLists(t *testing.T) {
	p := New(mapReader{})

	out, err := p.ProcessCSS(`.a, .b { .c, &.d { x: y } }`, "/src", false)
	require.NoError(t, err)
	assert.Equal(t, ".a .c, .a.d, .b .c, .b.d {\n  x: y;\n}\n", out)
}

func TestProcessCSSNestedMedia(t *testing.T) {
	p := New(mapReader{})

	out, err := p.ProcessCSS(`.a { @media (min-width: 10px) { color: red; .b { color: blue } } }`, "/src", false)
	require.NoError(t, err)

	expected := `@media (min-width: 10px) {
  .a {
    color: red;
  }
  .a .b {
    color: blue;
  }
}
`
	assert.Equal(t, expected, out)
}

func TestProcessCSSKeyframesKeepSelectors(t *testing.T) {
	p := New(mapReader{})

	out, err := p.ProcessCSS(`@keyframes spin { from { transform: rotate(0deg) } to { transform: rotate(360deg) } }
@font-face { font-family: "X"; src: url(x.woff2) }`, "/src", false)
	require.NoError(t, err)

	expected := `@keyframes spin {
  from {
    transform: rotate(0deg);
  }
  to {
    transform: rotate(360deg);
  }
}
@font-face {
  font-family: "X";
  src: url(x.woff2);
}
`
	assert.Equal(t, expected, out)
}

func TestProcessCSSOrderPreserved(t *testing.T) {
	p := New(mapReader{})

	out, err := p.ProcessCSS(".first { a: 1 }\n.second { b: 2 }\n.third { c: 3 }", "/src", true)
	require.NoError(t, err)

	first := strings.Index(out, ".first")
	second := strings.Index(out, ".second")
	third := strings.Index(out, ".third")
	assert.True(t, first >= 0 && first < second && second < third, out)
}

func TestProcessCSSCompress(t *testing.T) {
	p := New(mapReader{})

	out, err := p.ProcessCSS(".a {\n  .b {\n    color: red;\n  }\n}\n", "/src", true)
	require.NoError(t, err)
	assert.Equal(t, ".a .b{color:red}", out)
}

func TestProcessCSSImports(t *testing.T) {
	reader := mapReader{
		"/site/assets/base.css":         "@import 'parts/reset';\n.base { color: red }",
		"/site/assets/parts/reset.css":  "* { margin: 0 }",
		"/site/assets/print.css":        ".print { display: none }",
		"/site/assets/theme/colors.css": ".c { color: blue }",
	}
	p := New(reader)

	out, err := p.ProcessCSS(`@import "base.css";
@import url(theme/colors.css);
@import url("print.css") print;
@import "https://cdn.example.com/x.css";
.page { .title { font-weight: bold } }`, "/site/assets", false)
	require.NoError(t, err)

	expected := `* {
  margin: 0;
}
.base {
  color: red;
}
.c {
  color: blue;
}
@import url("print.css") print;
@import "https://cdn.example.com/x.css";
.page .title {
  font-weight: bold;
}
`
	assert.Equal(t, expected, out)
}

func TestProcessCSSImportErrors(t *testing.T) {
	t.Run("missing", func(t *testing.T) {
		p := New(mapReader{})
		_, err := p.ProcessCSS(`@import "nope.css";`, "/src", false)
		assert.Error(t, err)
	})

	t.Run("cycle", func(t *testing.T) {
		p := New(mapReader{
			"/src/a.css": `@import "b.css"; .a { x: y }`,
			"/src/b.css": `@import "a.css"; .b { x: y }`,
		})
		_, err := p.ProcessCSS(`@import "a.css";`, "/src", false)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "import cycle")
	})
}

func TestProcessCSSInvalid(t *testing.T) {
	p := New(mapReader{})

	testCases := []struct {
		name string
		src  string
	}{
		{"top-level declaration", "color: red;"},
		{"unclosed block", ".a { color: red"},
		{"stray brace", "}"},
		{"declaration without colon", ".a { color red }"},
		{"declaration in top-level media", "@media print { color: red }"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := p.ProcessCSS(tc.src, "/src", false)
			assert.Error(t, err)
		})
	}
}

func TestProcessCSSEmpty(t *testing.T) {
	p := New(mapReader{})

	out, err := p.ProcessCSS("  /* nothing */  ", "/src", true)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestMinifyJS(t *testing.T) {
	p := New(nil)

	src := "var answer = 42 ;\n\nfunction add ( x ) {\n  return x + answer\n}\n"
	out, err := p.MinifyJS(src)
	require.NoError(t, err)
	assert.Less(t, len(out), len(src))
	assert.NotContains(t, out, "\n\n")

	_, err = p.MinifyJS("function ( {")
	assert.Error(t, err)
}

func TestFormatHTMLCompress(t *testing.T) {
	p := New(nil)

	out, err := p.FormatHTML("<!DOCTYPE html><html><head></head><body>\n  <!-- note -->\n  <p>a   b</p>\n</body></html>", true)
	require.NoError(t, err)
	assert.NotContains(t, out, "<!--")
	assert.NotContains(t, out, "\n")
	assert.Contains(t, out, "<p>a b</p>")
}

func TestFormatHTMLPretty(t *testing.T) {
	p := New(nil)

	out, err := p.FormatHTML("<html>\r\n<body><p>x</p></body></html>", false)
	require.NoError(t, err)
	assert.NotContains(t, out, "\r")
	assert.Contains(t, out, "\n  <body>")
	assert.True(t, strings.HasSuffix(out, "\n"))
}

func TestFormatHTMLPrettyKeepsRawText(t *testing.T) {
	p := New(nil)

	script := "\nconst s = `a\nb`;\nif (x) {\nrun();\n}"
	style := "\n.a {\n  color: red;\n}\n"
	markup := "<html><head><style>" + style + "</style></head><body><div><p>x</p></div><script>" + script + "</script></body></html>"

	out, err := p.FormatHTML(markup, false)
	require.NoError(t, err)
	assert.Contains(t, out, script)
	assert.Contains(t, out, style)
	assert.Contains(t, out, "\n  <body>")
	assert.NotContains(t, out, "__htmlc_raw_")
}

func TestFormatHTMLPrettyEmptyScript(t *testing.T) {
	p := New(nil)

	out, err := p.FormatHTML("<html><head></head><body><script></script><p>x</p></body></html>", false)
	require.NoError(t, err)
	assert.Contains(t, out, "<script>")
	assert.Contains(t, out, "</script>")
	assert.NotContains(t, out, "__htmlc_raw_")
}

func TestMimeType(t *testing.T) {
	testCases := map[string]string{
		"logo.png":      "image/png",
		"LOGO.PNG":      "image/png",
		"icons/x.svg":   "image/svg+xml",
		"photo.jpg":     "image/jpeg",
		"anim.gif":      "image/gif",
		"blob.unknown1": "application/octet-stream",
	}
	for name, expected := range testCases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, expected, MimeType(name))
		})
	}
}
