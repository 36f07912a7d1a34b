package venv

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ConfigFile is the file every Python virtual environment carries at its root
const ConfigFile = "pyvenv.cfg"

// parsePyvenvCfg reads the `key = value` lines of pyvenv.cfg. Keys are
// lower-cased; quotes python adds around the prompt are removed.
func parsePyvenvCfg(r io.Reader) (map[string]string, error) {
	values := map[string]string{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		values[strings.ToLower(strings.TrimSpace(key))] = unquote(strings.TrimSpace(value))
	}
	return values, scanner.Err()
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '\'' || s[0] == '"') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

func readPyvenvCfg(path string) (map[string]string, error) {
	f, err := os.Open(filepath.Join(path, ConfigFile))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parsePyvenvCfg(f)
}

// pythonVersion returns the interpreter version recorded by venv or uv
func pythonVersion(cfg map[string]string) string {
	if v := cfg["version"]; v != "" {
		return v
	}
	return cfg["version_info"]
}
