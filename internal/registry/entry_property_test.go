//go:build property

package registry

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

type op struct {
	add  bool
	path string
}

// TestEntryRegistryProperties checks the registry against a reference model
// over random add/remove sequences.
func TestEntryRegistryProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(4242)
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	genOp := gopter.CombineGens(gen.Bool(), gen.IntRange(0, 7)).Map(func(v []interface{}) op {
		return op{add: v[0].(bool), path: fmt.Sprintf("src/%d.html", v[1].(int))}
	})

	properties.Property("registry holds exactly the added and not removed paths", prop.ForAll(
		func(ops []op) bool {
			r := NewEntryRegistry()
			var model []string

			for _, o := range ops {
				if o.add {
					r.Add(o.path)
					if indexOf(model, o.path) < 0 {
						model = append(model, o.path)
					}
					continue
				}
				r.Remove(o.path)
				if i := indexOf(model, o.path); i >= 0 {
					model = append(model[:i], model[i+1:]...)
				}
			}

			got := r.Paths()
			if len(got) != len(model) || r.Len() != len(model) {
				return false
			}
			for i := range got {
				if got[i] != model[i] || !r.Contains(got[i]) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(genOp),
	))

	properties.Property("paths never contain duplicates", prop.ForAll(
		func(ops []op) bool {
			r := NewEntryRegistry()
			for _, o := range ops {
				if o.add {
					r.Add(o.path)
				} else {
					r.Remove(o.path)
				}
			}
			seen := make(map[string]bool)
			for _, p := range r.Paths() {
				if seen[p] {
					return false
				}
				seen[p] = true
			}
			return true
		},
		gen.SliceOf(genOp),
	))

	properties.TestingRun(t)
}

func indexOf(paths []string, path string) int {
	for i, p := range paths {
		if p == path {
			return i
		}
	}
	return -1
}
