// Package build turns entry documents into self-contained output files.
//
// A Compiler handles one entry at a time: it parses the document, inlines or
// copies its images, merges every stylesheet into one <style> and every
// script into one <script>, formats the markup and writes it under the
// distribution root at the entry's path relative to the source root.
// Failures stay local to the entry; the Batch runner and the watch
// orchestrator keep going with the other entries.
package build

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/sync/errgroup"

	"github.com/conneroisu/htmlc/internal/config"
	"github.com/conneroisu/htmlc/internal/dom"
	"github.com/conneroisu/htmlc/internal/errors"
	"github.com/conneroisu/htmlc/internal/logging"
	"github.com/conneroisu/htmlc/internal/processor"
	"github.com/conneroisu/htmlc/internal/storage"
)

// inlineAttr marks an image that should be embedded as a data URI.
const inlineAttr = "inline"

// scriptSeparator joins script bodies so that a body missing its trailing
// semicolon cannot run into the next one.
const scriptSeparator = ";\n"

// Compiler compiles single entry files.
type Compiler struct {
	opts      *config.Options
	store     *storage.Store
	proc      *processor.Processor
	logger    logging.Logger
	revisions *Revisions
	metrics   *BuildMetrics
}

// NewCompiler creates a compiler for opts reading and writing through store.
func NewCompiler(opts *config.Options, store *storage.Store, logger logging.Logger) *Compiler {
	return &Compiler{
		opts:      opts,
		store:     store,
		proc:      processor.New(store),
		logger:    logger.WithComponent("compiler"),
		revisions: NewRevisions(),
		metrics:   NewBuildMetrics(),
	}
}

// Metrics returns the compiler's running build metrics.
func (c *Compiler) Metrics() *BuildMetrics {
	return c.metrics
}

// OutputPath maps an entry to its location under the distribution root.
func (c *Compiler) OutputPath(entry string) (string, error) {
	rel, err := relativeTo(c.opts.SourceRoot, entry)
	if err != nil {
		return "", errors.WrapIO(err, "OUTSIDE_SOURCE", "entry is not below the source root", entry)
	}
	return filepath.Join(c.opts.DistRoot, rel), nil
}

// Compile builds entry and writes its output. The returned error is the
// Result's Err; the Result is always non-nil.
func (c *Compiler) Compile(ctx context.Context, entry string) (*Result, error) {
	start := time.Now()
	result := &Result{Entry: entry, CSS: OK(), JS: OK()}

	result.Err = c.compile(ctx, entry, result)
	result.Duration = time.Since(start)
	c.metrics.RecordBuild(result)

	return result, result.Err
}

func (c *Compiler) compile(ctx context.Context, entry string, result *Result) error {
	out, err := c.OutputPath(entry)
	if err != nil {
		return err
	}
	result.Output = out
	result.Revision = c.revisions.Begin(out)

	markup, err := c.store.Read(entry)
	if err != nil {
		return err
	}
	doc, err := dom.ParseString(markup)
	if err != nil {
		return errors.WrapParse(err, entry)
	}
	base := basePath(entry, doc)

	// Nodes are selected up front and only mutated after every stage has
	// finished, so the stages never touch the tree concurrently.
	images := doc.All(dom.HasAttr(atom.Img, "src"))
	styles := doc.All(dom.Any(dom.IsStylesheetLink, dom.IsElement(atom.Style)))
	scripts := doc.All(dom.IsElement(atom.Script))

	var (
		imageEdits []imageEdit
		css        string
		js         string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		imageEdits, err = c.processImages(gctx, images, base, out)
		return err
	})
	g.Go(func() error {
		var err error
		css, result.CSS, err = c.processStyles(gctx, entry, styles, base)
		return err
	})
	g.Go(func() error {
		var err error
		js, result.JS, err = c.processScripts(gctx, entry, scripts, base)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	for _, n := range images {
		dom.RemoveAttr(n, inlineAttr)
	}
	for _, edit := range imageEdits {
		edit.apply()
	}
	result.Images = len(imageEdits)

	for _, n := range styles {
		dom.Remove(n)
	}
	doc.Head().AppendChild(dom.NewElement(atom.Style, css))

	for _, n := range scripts {
		dom.Remove(n)
	}
	script := dom.NewElement(atom.Script, "\n"+js)
	if c.opts.Module {
		dom.SetAttr(script, "type", "module")
	}
	doc.Body().AppendChild(script)

	serialized, err := doc.Serialize()
	if err != nil {
		return errors.NewInternalError("SERIALIZE_FAILED", "cannot serialize document", err).WithPath(entry)
	}
	formatted, err := c.proc.FormatHTML(serialized, c.opts.Compress)
	if err != nil {
		return errors.NewInternalError("FORMAT_FAILED", "cannot format document", err).WithPath(entry)
	}

	written, err := c.revisions.Commit(out, result.Revision, func() error {
		return c.store.Write(out, []byte(formatted))
	})
	if err != nil {
		return err
	}
	if !written {
		result.Stale = true
		c.logger.Debug(ctx, "Discarded stale build", "entry", entry, "revision", result.Revision)
	}
	return nil
}

// basePath returns the directory an entry's relative references resolve
// against: the first <base href> resolved against the entry's directory, or
// that directory itself.
func basePath(entry string, doc *dom.Document) string {
	dir := filepath.Dir(entry)
	base := doc.First(dom.HasAttr(atom.Base, "href"))
	if base == nil {
		return dir
	}
	href, _ := dom.Attr(base, "href")
	if filepath.IsAbs(href) {
		return filepath.Clean(href)
	}
	return filepath.Join(dir, href)
}

type imageEdit struct {
	node *html.Node
	src  string
}

func (e imageEdit) apply() {
	if e.src != "" {
		dom.SetAttr(e.node, "src", e.src)
	}
}

// processImages embeds images marked inline and copies the others next to
// the output. Copies happen here; attribute changes are returned as edits.
func (c *Compiler) processImages(ctx context.Context, nodes []*html.Node, base, out string) ([]imageEdit, error) {
	var (
		mu    sync.Mutex
		edits []imageEdit
	)
	g, _ := errgroup.WithContext(ctx)
	for _, n := range nodes {
		src, _ := dom.Attr(n, "src")
		local, ok := localPath(src)
		if !ok {
			continue
		}
		_, inline := dom.Attr(n, inlineAttr)
		g.Go(func() error {
			in := filepath.Join(base, local)
			edit := imageEdit{node: n}
			if inline {
				data, err := c.store.ReadBase64(in)
				if err != nil {
					return err
				}
				edit.src = fmt.Sprintf("data:%s;base64,%s", processor.MimeType(local), data)
			} else if err := c.store.Copy(in, c.assetOutputPath(in, local, out)); err != nil {
				return err
			}
			mu.Lock()
			edits = append(edits, edit)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return edits, nil
}

// assetOutputPath mirrors an asset below the source root into the
// distribution root. Assets outside the source root land next to the
// output document, where the unchanged reference still finds them.
func (c *Compiler) assetOutputPath(in, ref, out string) string {
	if rel, err := relativeTo(c.opts.SourceRoot, in); err == nil {
		return filepath.Join(c.opts.DistRoot, rel)
	}
	return filepath.Join(filepath.Dir(out), ref)
}

// processStyles reads every stylesheet in document order and runs the
// concatenation through the stylesheet processor. A processor failure
// degrades to an empty stylesheet; read failures fail the entry.
func (c *Compiler) processStyles(ctx context.Context, entry string, nodes []*html.Node, base string) (string, Outcome, error) {
	parts := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if n.DataAtom == atom.Style {
			parts = append(parts, dom.Text(n))
			continue
		}
		href, _ := dom.Attr(n, "href")
		if strings.TrimSpace(href) == "" {
			continue
		}
		content, err := c.store.Read(filepath.Join(base, href))
		if err != nil {
			return "", OK(), err
		}
		parts = append(parts, content)
	}

	css, err := c.proc.ProcessCSS(strings.Join(parts, "\n"), base, c.opts.Compress)
	if err != nil {
		reason := errors.NewCSSError("CSS_FAILED", "stylesheet processing failed", err).WithPath(entry)
		c.logger.Warn(ctx, reason, "Falling back to an empty stylesheet", "entry", entry)
		return "", Degraded(reason), nil
	}
	return css, OK(), nil
}

// processScripts concatenates every script in document order. With compress
// the result is minified; a minifier failure keeps the unminified code.
func (c *Compiler) processScripts(ctx context.Context, entry string, nodes []*html.Node, base string) (string, Outcome, error) {
	parts := make([]string, 0, len(nodes))
	for _, n := range nodes {
		src, _ := dom.Attr(n, "src")
		if strings.TrimSpace(src) == "" {
			parts = append(parts, dom.Text(n))
			continue
		}
		content, err := c.store.Read(filepath.Join(base, src))
		if err != nil {
			return "", OK(), err
		}
		parts = append(parts, content)
	}
	js := strings.Join(parts, scriptSeparator)

	if !c.opts.Compress {
		return js, OK(), nil
	}
	minified, err := c.proc.MinifyJS(js)
	if err != nil {
		reason := errors.NewJSError("JS_FAILED", "script minification failed", err).WithPath(entry)
		c.logger.Warn(ctx, reason, "Keeping unminified script", "entry", entry)
		return js, Degraded(reason), nil
	}
	return minified, OK(), nil
}

// localPath strips query and fragment from a reference and reports whether
// it names a local file at all.
func localPath(ref string) (string, bool) {
	if ref == "" || strings.HasPrefix(ref, "data:") || strings.HasPrefix(ref, "//") || strings.Contains(ref, "://") {
		return "", false
	}
	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		ref = ref[:i]
	}
	return ref, ref != ""
}

// relativeTo returns path relative to root, failing for paths outside root.
func relativeTo(root, path string) (string, error) {
	if filepath.IsAbs(root) != filepath.IsAbs(path) {
		var err error
		if root, err = filepath.Abs(root); err != nil {
			return "", err
		}
		if path, err = filepath.Abs(path); err != nil {
			return "", err
		}
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside %s", path, root)
	}
	return rel, nil
}
