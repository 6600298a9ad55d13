package tools

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/fulmenhq/forge/pkg/logger"
)

// ErrToolNotFound is wrapped by errors for tools that cannot be located.
var ErrToolNotFound = errors.New("tool not found")

// virtualenvDirs are checked, in order, below a project directory.
var virtualenvDirs = []string{".venv", "venv", "env"}

// EnvOverride returns the environment variable that pins the binary for
// tool, e.g. FORGE_TOOL_RUFF.
func EnvOverride(tool string) string {
	return "FORGE_TOOL_" + strings.ToUpper(strings.ReplaceAll(tool, "-", "_"))
}

// ResolveBinary finds the path to a tool binary following the resolution order:
// 1. Environment variable override (FORGE_TOOL_<NAME>)
// 2. The project's virtualenv (.venv, venv or env below dir, or $VIRTUAL_ENV)
// 3. PATH
func ResolveBinary(tool, dir string) (string, error) {
	logger.Debug("starting binary resolution", logger.String("tool", tool), logger.String("dir", dir))

	env := EnvOverride(tool)
	if p := os.Getenv(env); p != "" {
		if _, err := os.Stat(p); err == nil {
			logger.Debug("resolution successful: env override", logger.String("path", p))
			return p, nil
		}
		logger.Debug("env override path invalid", logger.String("env_var", env), logger.String("path", p))
	}

	var venvs []string
	if dir != "" {
		for _, v := range virtualenvDirs {
			venvs = append(venvs, filepath.Join(dir, v))
		}
	}
	if v := os.Getenv("VIRTUAL_ENV"); v != "" {
		venvs = append(venvs, v)
	}
	for _, v := range venvs {
		candidate := venvBinary(v, tool)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			logger.Debug("resolution successful: virtualenv", logger.String("path", candidate))
			return candidate, nil
		}
	}

	if p, err := exec.LookPath(tool); err == nil {
		logger.Debug("resolution successful: PATH", logger.String("path", p))
		return p, nil
	}
	return "", fmt.Errorf("%w: %s (install it or set %s)", ErrToolNotFound, tool, env)
}

func venvBinary(venv, tool string) string {
	if runtime.GOOS == "windows" {
		return filepath.Join(venv, "Scripts", tool+".exe")
	}
	return filepath.Join(venv, "bin", tool)
}
