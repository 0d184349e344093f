package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTreeSitterTypeScript(t *testing.T) {
	src := `import React, { useState } from 'react'
import * as api from './api'
import './styles.css'
export { helper } from './helper'
export * from './types'
const { join } = require('path')
const fs = require('fs')

export async function load() {
  const mod = await import('./lazy')
  return mod
}
`
	refs, err := NewTreeSitterTS(nil).Extract([]byte(src))
	require.NoError(t, err)
	require.Len(t, refs, 8)

	want := []struct {
		target  string
		kinds   []Kind
		dynamic bool
		line    int
	}{
		{"react", []Kind{KindDefault, KindNamed}, false, 1},
		{"./api", []Kind{KindNamespace}, false, 2},
		{"./styles.css", []Kind{KindSideEffect}, false, 3},
		{"./helper", []Kind{KindNamed}, false, 4},
		{"./types", []Kind{KindNamespace}, false, 5},
		{"path", []Kind{KindNamed}, false, 6},
		{"fs", []Kind{KindDefault}, false, 7},
		{"./lazy", []Kind{KindNamespace}, true, 10},
	}
	for i, w := range want {
		assert.Equal(t, w.target, refs[i].Target, "ref %d", i)
		assert.Equal(t, w.kinds, refs[i].Kinds, "ref %d", i)
		assert.Equal(t, w.dynamic, refs[i].Dynamic, "ref %d", i)
		assert.Equal(t, w.line, refs[i].Line, "ref %d", i)
	}
}

func TestTreeSitterTSX(t *testing.T) {
	src := `import Button from '../components/Button'

export default function Page() {
  return <Button label="ok" />
}
`
	refs, err := NewTreeSitterTSX(nil).Extract([]byte(src))
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "../components/Button", refs[0].Target)
}

func TestTreeSitterBareRequire(t *testing.T) {
	refs, err := NewTreeSitterJS(nil).Extract([]byte("require('./register')\n"))
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, []Kind{KindSideEffect}, refs[0].Kinds)
}

func TestTreeSitterImportRequire(t *testing.T) {
	refs, err := NewTreeSitterTS(nil).Extract([]byte("import fs = require('./fs')\n"))
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "./fs", refs[0].Target)
	assert.Equal(t, []Kind{KindDefault}, refs[0].Kinds)
	assert.Equal(t, 1, refs[0].Line)
}

func TestTreeSitterFallsBackOnSyntaxError(t *testing.T) {
	src := `import a from './a'
const = = broken {{{
`
	_, err := NewTreeSitterJS(nil).Extract([]byte(src))
	assert.Error(t, err)

	refs, err := NewTreeSitterJS(NewPattern()).Extract([]byte(src))
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "./a", refs[0].Target)
}
