// Package shell renders environment changes as scripts for the shell that
// will eval them, and detects which shell that is.
package shell

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/v4/process"
)

// Kind is a supported shell dialect
type Kind string

const (
	Sh   Kind = "sh"
	Bash Kind = "bash"
	Zsh  Kind = "zsh"
	Fish Kind = "fish"

	// Auto asks for detection
	Auto Kind = "auto"
)

// Var is an environment variable assignment
type Var struct {
	Name  string
	Value string
}

// ParseKind validates a --shell flag value
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case Sh, Bash, Zsh, Fish, Auto:
		return k, nil
	case "":
		return Auto, nil
	default:
		return "", errors.Errorf("unsupported shell %q (supported: auto, sh, bash, zsh, fish)", s)
	}
}

// Detect guesses the shell that invoked devenv: the parent process name
// first, then $SHELL, then sh.
func Detect(ctx context.Context) Kind {
	var parent string
	if p, err := process.NewProcessWithContext(ctx, int32(os.Getppid())); err == nil {
		if name, err := p.NameWithContext(ctx); err == nil {
			parent = name
		}
	}
	return detectFrom(parent, os.Getenv("SHELL"))
}

func detectFrom(parentName, shellEnv string) Kind {
	if k, ok := kindFromName(parentName); ok {
		return k
	}
	if k, ok := kindFromName(filepath.Base(shellEnv)); ok {
		return k
	}
	return Sh
}

func kindFromName(name string) (Kind, bool) {
	name = strings.TrimPrefix(strings.ToLower(name), "-") // login shells
	name = strings.TrimSuffix(name, ".exe")
	switch name {
	case "bash":
		return Bash, true
	case "zsh":
		return Zsh, true
	case "fish":
		return Fish, true
	case "sh", "dash", "ash", "ksh", "mksh":
		return Sh, true
	}
	return "", false
}

// Render produces a script applying the given changes. Unsets come first so a
// variable that is both unset and set ends up set.
func Render(kind Kind, set []Var, unset []string) string {
	var b strings.Builder
	for _, name := range unset {
		if kind == Fish {
			b.WriteString("set -e " + name + "\n")
		} else {
			b.WriteString("unset " + name + "\n")
		}
	}
	for _, v := range set {
		b.WriteString(assign(kind, v))
		b.WriteString("\n")
	}
	return b.String()
}

func assign(kind Kind, v Var) string {
	if kind != Fish {
		return "export " + v.Name + "=" + Quote(kind, v.Value)
	}
	// fish keeps PATH-like variables as lists
	if strings.HasSuffix(v.Name, "PATH") {
		parts := filepath.SplitList(v.Value)
		quoted := make([]string, 0, len(parts))
		for _, p := range parts {
			quoted = append(quoted, Quote(kind, p))
		}
		return "set -gx " + v.Name + " " + strings.Join(quoted, " ")
	}
	return "set -gx " + v.Name + " " + Quote(kind, v.Value)
}

// PrefixPrompt renders an assignment that prepends prefix to the evaluating
// shell's own PS1, which is a shell variable the child never sees. When the
// prompt starts with stale (the prefix of a previously active environment)
// that part is dropped first. PS1 is not exported. fish prompts are functions,
// so nothing is rendered for fish.
func PrefixPrompt(kind Kind, prefix, stale string) string {
	if kind == Fish || prefix == "" {
		return ""
	}
	if stale == "" {
		return "PS1=" + Quote(kind, prefix) + `"${PS1:-}"` + "\n"
	}
	return "_devenv_stale=" + Quote(kind, stale) + "\n" +
		"PS1=" + Quote(kind, prefix) + `"${PS1#"$_devenv_stale"}"` + "\n" +
		"unset _devenv_stale\n"
}

// Echo renders a command printing msg
func Echo(kind Kind, msg string) string {
	return "echo " + Quote(kind, msg)
}

// FailCommand makes the surrounding eval exit non-zero in every supported shell
const FailCommand = "false"

// Quote single-quotes s for the given shell
func Quote(kind Kind, s string) string {
	if kind == Fish {
		s = strings.ReplaceAll(s, `\`, `\\`)
		s = strings.ReplaceAll(s, `'`, `\'`)
		return "'" + s + "'"
	}
	return "'" + strings.ReplaceAll(s, `'`, `'\''`) + "'"
}
