//go:build property

package build

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestRevisionProperties validates that out-of-order writes never go backwards.
func TestRevisionProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(1234)
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	// Property: whatever order the builds finish in, the newest one's output stays
	properties.Property("newest revision wins", prop.ForAll(
		func(order []int) bool {
			if len(order) == 0 {
				return true
			}

			revs := NewRevisions()
			issued := make([]uint64, len(order))
			for i := range issued {
				issued[i] = revs.Begin("dist/index.html")
			}

			var written uint64
			for _, i := range order {
				rev := issued[i%len(issued)]
				_, err := revs.Commit("dist/index.html", rev, func() error {
					if rev <= written {
						return fmt.Errorf("revision %d written after %d", rev, written)
					}
					written = rev
					return nil
				})
				if err != nil {
					return false
				}
			}

			last := issued[len(issued)-1]
			wroteLast := false
			for _, i := range order {
				if issued[i%len(issued)] == last {
					wroteLast = true
				}
			}
			if wroteLast {
				return written == last && revs.Committed("dist/index.html") == last
			}
			return revs.Committed("dist/index.html") == written
		},
		gen.SliceOf(gen.IntRange(0, 20)),
	))

	properties.TestingRun(t)
}

// TestCompilerProperties validates document-order guarantees of the compiler.
func TestCompilerProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(4321)
	parameters.MinSuccessfulTests = 30

	properties := gopter.NewProperties(parameters)

	// Property: stylesheets appear in the output in document order
	properties.Property("stylesheet order is preserved", prop.ForAll(
		func(count int) bool {
			files := map[string]string{}
			var links strings.Builder
			for i := 0; i < count; i++ {
				name := fmt.Sprintf("s%02d.css", i)
				files["src/"+name] = fmt.Sprintf(".c%02d { color: red; }", i)
				links.WriteString(`<link rel="stylesheet" href="` + name + `">`)
			}
			files["src/index.html"] = "<html><head>" + links.String() + "</head><body></body></html>"

			f := newFixture(t, files)
			result, err := f.compiler.Compile(context.Background(), "src/index.html")
			if err != nil || result.Failed() {
				return false
			}
			content, err := f.store.Read("dist/index.html")
			if err != nil {
				return false
			}

			last := -1
			for i := 0; i < count; i++ {
				at := strings.Index(content, fmt.Sprintf(".c%02d", i))
				if at <= last {
					return false
				}
				last = at
			}
			return !strings.Contains(content, "<link")
		},
		gen.IntRange(1, 8),
	))

	properties.TestingRun(t)
}
