package src

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func TestScannerSummarizesFiles(t *testing.T) {
	dir := writeProject(t, map[string]string{
		"app.py": "import os\nfrom utils import helper\n\nclass App:\n    def run(self):\n        pass\n\ndef main():\n    pass\n",
		"utils.py": "def helper():\n    pass\n",
	})

	s := NewProjectScanner(dir)
	require.NoError(t, s.Scan(false))

	files := s.Files()
	require.Len(t, files, 2)

	var app *FileInfo
	for _, f := range files {
		if f.Path == "app.py" {
			app = f
		}
	}
	require.NotNil(t, app)
	assert.Contains(t, app.Imports, "import os")
	assert.Contains(t, app.Imports, "from utils import helper")
	assert.Equal(t, []string{"App"}, app.Classes)
	assert.Equal(t, []string{"run", "main"}, app.Functions)
}

func TestScannerTracksUsage(t *testing.T) {
	dir := writeProject(t, map[string]string{
		"app.py":   "from utils import helper\n",
		"utils.py": "def helper():\n    pass\n",
	})

	s := NewProjectScanner(dir)
	require.NoError(t, s.Scan(false))

	ctx := s.FileContext(filepath.Join(dir, "utils.py"))
	assert.Contains(t, ctx, "Used by: app.py")
}

func TestScannerSkipsIgnoredDirs(t *testing.T) {
	dir := writeProject(t, map[string]string{
		"app.py":                  "import os\n",
		".venv/lib/site.py":       "import sys\n",
		"__pycache__/app.cpython": "garbage",
	})

	s := NewProjectScanner(dir)
	require.NoError(t, s.Scan(false))

	for _, f := range s.Files() {
		assert.Equal(t, "app.py", f.Path)
	}
	require.Len(t, s.Files(), 1)
}

func TestScannerUnknownFileGivesEmptyContext(t *testing.T) {
	dir := writeProject(t, map[string]string{"app.py": "import os\n"})

	s := NewProjectScanner(dir)
	require.NoError(t, s.Scan(false))

	assert.Empty(t, s.FileContext(filepath.Join(dir, "elsewhere.py")))
}
