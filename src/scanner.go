package src

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/schollz/progressbar/v3"
)

// FileInfo is the per-file summary the scanner collects: what a file
// imports, what it defines, and which sibling files mention it.
type FileInfo struct {
	Path      string
	Imports   []string
	Classes   []string
	Functions []string
	UsedBy    []string
}

// ProjectScanner walks a project tree once and answers context queries
// about the files it found.
type ProjectScanner struct {
	root  string
	files map[string]*FileInfo
}

func NewProjectScanner(root string) *ProjectScanner {
	return &ProjectScanner{root: root, files: map[string]*FileInfo{}}
}

func isIgnoredDir(name string) bool {
	switch name {
	case ".git", "node_modules", "vendor", "dist", "build", "target",
		"__pycache__", ".venv", "venv", ".idea", ".vscode":
		return true
	}
	return false
}

// Scan walks the tree collecting summaries for Python sources and then
// cross-references them. Safe to call again to refresh after edits.
func (s *ProjectScanner) Scan(showProgress bool) error {
	var paths []string
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if isIgnoredDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(d.Name(), ".py") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("walk %s: %w", s.root, err)
	}

	var bar *progressbar.ProgressBar
	if showProgress && len(paths) > 0 {
		bar = progressbar.Default(int64(len(paths)), "scanning project")
	}

	s.files = make(map[string]*FileInfo, len(paths))
	for _, p := range paths {
		info, err := summarizeFile(p)
		if err != nil {
			// Unreadable files are skipped, not fatal.
			continue
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			rel = p
		}
		info.Path = rel
		s.files[rel] = info
		if bar != nil {
			_ = bar.Add(1)
		}
	}

	s.analyzeRelationships()
	return nil
}

func summarizeFile(path string) (*FileInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	info := &FileInfo{}
	for _, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "import ") || strings.HasPrefix(trimmed, "from "):
			info.Imports = append(info.Imports, trimmed)
		case strings.HasPrefix(trimmed, "class "):
			info.Classes = append(info.Classes, identAfter(trimmed, "class "))
		case strings.HasPrefix(trimmed, "def "):
			info.Functions = append(info.Functions, identAfter(trimmed, "def "))
		}
	}
	return info, nil
}

// identAfter pulls the bare name out of a "class Foo(Base):" or
// "def bar(x):" line.
func identAfter(line, prefix string) string {
	rest := strings.TrimPrefix(line, prefix)
	for i, r := range rest {
		if r == '(' || r == ':' || r == ' ' {
			return rest[:i]
		}
	}
	return rest
}

// analyzeRelationships records, for every file, which other files mention
// its basename in an import line.
func (s *ProjectScanner) analyzeRelationships() {
	for path, info := range s.files {
		module := strings.TrimSuffix(filepath.Base(path), ".py")
		info.UsedBy = info.UsedBy[:0]
		for other, otherInfo := range s.files {
			if other == path {
				continue
			}
			for _, imp := range otherInfo.Imports {
				if strings.Contains(imp, module) {
					info.UsedBy = append(info.UsedBy, other)
					break
				}
			}
		}
		sort.Strings(info.UsedBy)
	}
}

// FileContext renders the scanner's knowledge of one file as prompt
// context. Unknown files get an empty string, which keeps single-file
// workflows outside a scanned project working.
func (s *ProjectScanner) FileContext(path string) string {
	rel := path
	if abs, err := filepath.Abs(path); err == nil {
		if r, err := filepath.Rel(s.root, abs); err == nil {
			rel = r
		}
	}
	info, ok := s.files[rel]
	if !ok {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "File: %s\n", info.Path)
	if len(info.Imports) > 0 {
		fmt.Fprintf(&b, "Imports:\n  %s\n", strings.Join(info.Imports, "\n  "))
	}
	if len(info.Classes) > 0 {
		fmt.Fprintf(&b, "Classes: %s\n", strings.Join(info.Classes, ", "))
	}
	if len(info.Functions) > 0 {
		fmt.Fprintf(&b, "Functions: %s\n", strings.Join(info.Functions, ", "))
	}
	if len(info.UsedBy) > 0 {
		fmt.Fprintf(&b, "Used by: %s\n", strings.Join(info.UsedBy, ", "))
	}
	return b.String()
}

// Files returns the scanned summaries sorted by path.
func (s *ProjectScanner) Files() []*FileInfo {
	out := make([]*FileInfo, 0, len(s.files))
	for _, info := range s.files {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}
