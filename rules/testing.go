//go:build ruleguard

package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

// TestContext flags context.Background() inside tests. t.Context() is
// canceled when the test ends, so leaked goroutines and forgotten
// transactions fail the test instead of outliving it.
func TestContext(m dsl.Matcher) {
	m.Match(`context.Background()`).
		Where(m.File().Name.Matches(`.*_test\.go$`)).
		Report("use t.Context() in tests so the context ends with the test")

	m.Match(`context.TODO()`).
		Where(m.File().Name.Matches(`.*_test\.go$`)).
		Report("use t.Context() in tests so the context ends with the test")
}

// RequireInHelpers flags assert usage for errors that make the rest of a
// test meaningless. A failed require stops the test, a failed assert lets
// it continue into nil dereferences.
func RequireInHelpers(m dsl.Matcher) {
	m.Match(`assert.NoError($t, $err); $x := $y`, `assert.NoError($t, $err); $x, $z := $y`).
		Report("use require.NoError when the test cannot continue past a failure")
}
