package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveExternal(t *testing.T) {
	r := New()
	for _, target := range []string{"react", "lodash/fp", "@scope/pkg", "node:fs", ""} {
		res := r.Resolve(target, "src")
		assert.True(t, res.External, target)
		assert.Empty(t, res.Candidates, target)
	}
}

func TestResolveRelative(t *testing.T) {
	r := &Resolver{AliasPrefix: "@/", AliasRoots: []string{"src"}, Extensions: []string{".ts", ".tsx"}}

	res := r.Resolve("./b", "src/lib")
	require.False(t, res.External)
	assert.Equal(t, []string{
		"src/lib/b",
		"src/lib/b.ts", "src/lib/b.tsx",
		"src/lib/b/index.ts", "src/lib/b/index.tsx",
	}, res.Candidates)

	res = r.Resolve("../components/Button", "src/pages")
	assert.Equal(t, "src/components/Button", res.Candidates[0])

	res = r.Resolve("./a", ".")
	assert.Equal(t, "a", res.Candidates[0])
}

func TestResolveEscapingRoot(t *testing.T) {
	res := New().Resolve("../../shared/x", "src")
	assert.True(t, res.External)
}

func TestResolveAlias(t *testing.T) {
	r := &Resolver{AliasPrefix: "@/", AliasRoots: []string{"src", "."}, Extensions: []string{".ts"}}
	res := r.Resolve("@/hooks/useAuth", "src/pages")
	require.False(t, res.External)
	assert.Equal(t, []string{
		"src/hooks/useAuth", "src/hooks/useAuth.ts", "src/hooks/useAuth/index.ts",
		"hooks/useAuth", "hooks/useAuth.ts", "hooks/useAuth/index.ts",
	}, res.Candidates)
}

func TestMatch(t *testing.T) {
	r := New()
	index := map[string]int{
		"src/a.ts":          0,
		"src/b/index.tsx":   1,
		"src/b.js":          2,
		"src/util/index.ts": 3,
	}

	p, v, ok := Match(r.Resolve("./a", "src"), index)
	require.True(t, ok)
	assert.Equal(t, "src/a.ts", p)
	assert.Equal(t, 0, v)

	// extension fallback wins over index fallback
	p, _, ok = Match(r.Resolve("./b", "src"), index)
	require.True(t, ok)
	assert.Equal(t, "src/b.js", p)

	p, _, ok = Match(r.Resolve("@/util", "src/x"), index)
	require.True(t, ok)
	assert.Equal(t, "src/util/index.ts", p)

	_, _, ok = Match(r.Resolve("./missing", "src"), index)
	assert.False(t, ok)

	_, _, ok = Match(r.Resolve("react", "src"), index)
	assert.False(t, ok)
}
