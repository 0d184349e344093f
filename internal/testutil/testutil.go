// Package testutil builds fixture projects and databases for package tests.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zheng/archscan/internal/engine"
	"github.com/zheng/archscan/internal/logging"
	"github.com/zheng/archscan/internal/storage"
)

// ProjectID is the project every fixture is saved under
const ProjectID = "web"

// Layered is a small project: Button -> useUser -> user -> format, with user -> useUser
// closing a cycle that is also a server to client violation
var Layered = map[string]string{
	"src/components/Button.tsx": "import { useUser } from '@/hooks/useUser'\nexport function Button() { return useUser() }\n",
	"src/hooks/useUser.ts":      "import { fetchUser } from '../services/user'\nexport const useUser = () => fetchUser()\n",
	"src/services/user.ts":      "import { format } from '../utils/format'\nimport { useUser } from '../hooks/useUser'\nexport const fetchUser = () => format(useUser)\n",
	"src/utils/format.ts":       "export const format = (v: unknown) => String(v)\n",
}

// WriteTree writes files under a fresh temp dir and returns its path
func WriteTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return root
}

// Scan runs the engine over files and saves the report into a fresh database
func Scan(t *testing.T, files map[string]string) (*storage.DB, *engine.Report) {
	t.Helper()
	root := WriteTree(t, files)

	rep, err := engine.New(engine.WithLogger(logging.Discard())).Run(context.Background(), ProjectID, root)
	require.NoError(t, err)

	db, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.SaveReport(rep))
	return db, rep
}
