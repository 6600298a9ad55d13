package tools

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fulmenhq/forge/pkg/ignore"
	"github.com/fulmenhq/forge/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// Supported formatter tools. ToolAuto prefers ruff and falls back to black.
const (
	ToolAuto  = "auto"
	ToolRuff  = "ruff"
	ToolBlack = "black"
)

// DefaultBatchSize is the number of files passed to one formatter process.
const DefaultBatchSize = 50

// ErrUnsafeTarget is returned when asked to format the filesystem root.
var ErrUnsafeTarget = errors.New("refusing to format the filesystem root")

// FormatOptions configures a Formatter.
type FormatOptions struct {
	Tool      string
	Check     bool
	Workers   int
	BatchSize int
	Timeout   time.Duration
}

// FormatResult reports a formatter run.
type FormatResult struct {
	Tool  string `json:"tool"`
	Check bool   `json:"check"`
	Files int    `json:"files"`
	// Changed holds files that were reformatted, or in check mode would be.
	Changed []string `json:"changed"`
}

// Formatter formats Python sources with an external tool.
type Formatter struct {
	exec ToolExecutor
	opts FormatOptions
}

// NewFormatter returns a Formatter running tools through exec.
func NewFormatter(exec ToolExecutor, opts FormatOptions) *Formatter {
	if opts.Tool == "" {
		opts.Tool = ToolAuto
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	return &Formatter{exec: exec, opts: opts}
}

// SelectTool resolves the configured tool against what is installed.
func (f *Formatter) SelectTool(dir string) (string, error) {
	switch f.opts.Tool {
	case ToolRuff, ToolBlack:
		if !f.exec.IsAvailable(f.opts.Tool, dir) {
			return "", fmt.Errorf("%w: %s", ErrToolNotFound, f.opts.Tool)
		}
		return f.opts.Tool, nil
	case ToolAuto:
		for _, t := range []string{ToolRuff, ToolBlack} {
			if f.exec.IsAvailable(t, dir) {
				return t, nil
			}
		}
		return "", fmt.Errorf("%w: no Python formatter available (install ruff or black)", ErrToolNotFound)
	default:
		return "", fmt.Errorf("unknown formatter %q (want auto, ruff or black)", f.opts.Tool)
	}
}

// Run formats files from dir. Batches run concurrently, bounded by the
// configured worker count.
func (f *Formatter) Run(ctx context.Context, dir string, files []string) (*FormatResult, error) {
	tool, err := f.SelectTool(dir)
	if err != nil {
		return nil, err
	}
	res := &FormatResult{Tool: tool, Check: f.opts.Check, Files: len(files), Changed: []string{}}
	if len(files) == 0 {
		return res, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.opts.Workers)
	for _, batch := range batches(files, f.opts.BatchSize) {
		g.Go(func() error {
			changed, err := f.runBatch(gctx, tool, dir, batch)
			if err != nil {
				return err
			}
			mu.Lock()
			res.Changed = append(res.Changed, changed...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sort.Strings(res.Changed)
	logger.Debug("format finished", logger.String("tool", tool), logger.Int("files", len(files)), logger.Int("changed", len(res.Changed)))
	return res, nil
}

func (f *Formatter) runBatch(ctx context.Context, tool, dir string, files []string) ([]string, error) {
	switch tool {
	case ToolRuff:
		// ruff only reports file names in check mode, so learn the set
		// first and then format just those files.
		out, err := f.run(ctx, tool, dir, append([]string{"format", "--check"}, files...), 0, 1)
		if err != nil {
			return nil, err
		}
		changed := parseChanged(out, dir, "Would reformat:")
		if f.opts.Check || len(changed) == 0 {
			return changed, nil
		}
		if _, err := f.run(ctx, tool, dir, append([]string{"format"}, changed...), 0); err != nil {
			return nil, err
		}
		return changed, nil
	case ToolBlack:
		if f.opts.Check {
			out, err := f.run(ctx, tool, dir, append([]string{"--check"}, files...), 0, 1)
			if err != nil {
				return nil, err
			}
			return parseChanged(out, dir, "would reformat"), nil
		}
		out, err := f.run(ctx, tool, dir, files, 0)
		if err != nil {
			return nil, err
		}
		return parseChanged(out, dir, "reformatted"), nil
	}
	return nil, fmt.Errorf("unsupported formatter %q", tool)
}

// run executes tool and fails unless the exit code is one of okCodes.
func (f *Formatter) run(ctx context.Context, tool, dir string, args []string, okCodes ...int) ([]byte, error) {
	res, err := f.exec.Execute(ctx, ExecuteOptions{Tool: tool, Args: args, WorkDir: dir, Timeout: f.opts.Timeout})
	if err != nil {
		return nil, err
	}
	for _, c := range okCodes {
		if res.ExitCode == c {
			return res.Output(), nil
		}
	}
	return nil, fmt.Errorf("%s exited with code %d: %s", tool, res.ExitCode, strings.TrimSpace(string(res.Output())))
}

// parseChanged extracts file names from lines starting with prefix, e.g.
// "Would reformat: src/a.py" or "reformatted src/a.py".
func parseChanged(out []byte, dir, prefix string) []string {
	var files []string
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(line, prefix) {
			continue
		}
		p := strings.TrimSpace(strings.TrimPrefix(line, prefix))
		if p == "" {
			continue
		}
		if !filepath.IsAbs(p) {
			p = filepath.Join(dir, p)
		}
		files = append(files, filepath.Clean(p))
	}
	return files
}

func batches(files []string, size int) [][]string {
	var out [][]string
	for len(files) > size {
		out = append(out, files[:size:size])
		files = files[size:]
	}
	return append(out, files)
}

// CollectPythonFiles expands paths into the Python sources beneath them.
// Directories are walked honoring .gitignore/.forgeignore and the exclude
// globs (doublestar, relative to the walked directory). Explicitly named
// files are always included. The result is sorted and absolute.
func CollectPythonFiles(paths, exclude []string) ([]string, error) {
	seen := map[string]bool{}
	var files []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			files = append(files, p)
		}
	}

	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, err
		}
		if isFilesystemRoot(abs) {
			return nil, ErrUnsafeTarget
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			add(abs)
			continue
		}

		matcher, err := ignore.NewMatcher(abs)
		if err != nil {
			return nil, err
		}
		err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if path == abs {
				return nil
			}
			rel, _ := filepath.Rel(abs, path)
			rel = filepath.ToSlash(rel)
			if d.IsDir() {
				if matcher.IsIgnoredDir(rel) || excluded(rel, exclude) {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() || !isPythonSource(path) {
				return nil
			}
			if matcher.IsIgnored(rel) || excluded(rel, exclude) {
				return nil
			}
			add(path)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.Strings(files)
	return files, nil
}

func excluded(rel string, patterns []string) bool {
	for _, pat := range patterns {
		if ok, _ := doublestar.Match(pat, rel); ok {
			return true
		}
	}
	return false
}

func isPythonSource(p string) bool {
	ext := strings.ToLower(filepath.Ext(p))
	return ext == ".py" || ext == ".pyi"
}

func isFilesystemRoot(abs string) bool {
	return filepath.Dir(abs) == abs
}
