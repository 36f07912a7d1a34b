// Package venv bootstraps the project's Python virtual environment: it
// creates the environment once, through an injected Creator, and computes the
// activation every time.
//
// A directory only counts as a created environment once the completion
// marker has been written, so a creation interrupted half way is redone on
// the next run instead of being activated.
package venv

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/pkg/errors"
)

const (
	// DefaultPath is the environment directory used by the development shell
	DefaultPath = "venv"

	// MarkerFile is written inside the environment after a successful creation
	MarkerFile = ".devenv-complete.json"

	activateScript = "activate"
)

// State is the on-disk state of an environment path
type State int

const (
	// StateAbsent means nothing exists at the path
	StateAbsent State = iota
	// StateComplete means the completion marker is present
	StateComplete
	// StateAdoptable means a working environment without marker, e.g. one
	// created by a plain `uv venv`
	StateAdoptable
	// StatePartial means a directory that is neither complete nor adoptable
	StatePartial
	// StateInvalid means the path exists but is not a directory
	StateInvalid
)

func (s State) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StateComplete:
		return "complete"
	case StateAdoptable:
		return "adoptable"
	case StatePartial:
		return "partial"
	case StateInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// MarshalText renders the state by name in JSON status output
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Marker is the content of MarkerFile
type Marker struct {
	ID            string    `json:"id"`
	Tool          string    `json:"tool"`
	ToolVersion   string    `json:"tool_version,omitempty"`
	Python        string    `json:"python,omitempty"`
	Prompt        string    `json:"prompt,omitempty"`
	Adopted       bool      `json:"adopted,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	DevenvVersion string    `json:"devenv_version"`
}

// Status describes an environment path without changing anything
type Status struct {
	Path          string  `json:"path"`
	State         State   `json:"state"`
	Marker        *Marker `json:"marker,omitempty"`
	PythonVersion string  `json:"python_version,omitempty"`
	Prompt        string  `json:"prompt,omitempty"`
	Active        bool    `json:"active"`
}

// BinDir returns the directory holding the environment's executables
func BinDir(path string) string {
	if runtime.GOOS == "windows" {
		return filepath.Join(path, "Scripts")
	}
	return filepath.Join(path, "bin")
}

// ActivationScript returns the location of the POSIX activation script
func ActivationScript(path string) string {
	return filepath.Join(BinDir(path), activateScript)
}

// Inspect classifies the environment at path
func Inspect(path string) (*Status, error) {
	status := &Status{Path: path}

	info, err := os.Stat(path)
	switch {
	case os.IsNotExist(err):
		status.State = StateAbsent
		return status, nil
	case err != nil:
		return nil, errors.Wrapf(err, "failed to stat %s", path)
	case !info.IsDir():
		status.State = StateInvalid
		return status, nil
	}

	if cfg, err := readPyvenvCfg(path); err == nil {
		status.PythonVersion = pythonVersion(cfg)
		status.Prompt = cfg["prompt"]
	}

	marker, err := readMarker(path)
	switch {
	case err == nil:
		status.State = StateComplete
		status.Marker = marker
	case fileExists(filepath.Join(path, ConfigFile)) && fileExists(ActivationScript(path)):
		status.State = StateAdoptable
	default:
		status.State = StatePartial
	}

	return status, nil
}

func readMarker(path string) (*Marker, error) {
	data, err := os.ReadFile(filepath.Join(path, MarkerFile))
	if err != nil {
		return nil, err
	}
	var m Marker
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(err, "corrupt completion marker")
	}
	return &m, nil
}

// writeMarker writes the marker through a temporary file and a rename, so a
// reader never observes a half written marker.
func writeMarker(path string, m Marker) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode completion marker")
	}

	tmp, err := os.CreateTemp(path, MarkerFile+".*")
	if err != nil {
		return errors.Wrap(err, "failed to create completion marker")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "failed to write completion marker")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "failed to write completion marker")
	}
	if err := os.Rename(tmp.Name(), filepath.Join(path, MarkerFile)); err != nil {
		return errors.Wrap(err, "failed to commit completion marker")
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
