//go:build property

package watcher

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestFileWatcherProperties validates properties of the path filters
func TestFileWatcherProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(9876)
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	segments := gen.SliceOfN(4, gen.Identifier())

	// Property: a skipped directory anywhere in the path rejects it
	properties.Property("skipped component rejects path", prop.ForAll(
		func(parts []string, at int) bool {
			withGit := append([]string{}, parts[:at]...)
			withGit = append(withGit, ".git")
			withGit = append(withGit, parts[at:]...)
			return !NoGitFilter(filepath.Join(withGit...))
		},
		segments,
		gen.IntRange(0, 4),
	))

	// Property: paths made of identifiers are always accepted
	properties.Property("plain paths are accepted", prop.ForAll(
		func(parts []string) bool {
			path := filepath.Join(parts...)
			return NoGitFilter(path) && NoNodeModulesFilter(path)
		},
		segments,
	))

	// Property: a name only matches whole components
	properties.Property("prefix of a component is not a match", prop.ForAll(
		func(parts []string, suffix string) bool {
			parts = append(parts, "node_modules"+suffix)
			path := filepath.Join(parts...)
			accepted := NoNodeModulesFilter(path)
			if strings.Contains(path, string(filepath.Separator)+"node_modules"+string(filepath.Separator)) {
				return !accepted
			}
			return accepted
		},
		segments,
		gen.Identifier(),
	))

	properties.TestingRun(t)
}
