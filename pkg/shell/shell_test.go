package shell

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		input    string
		expected Kind
		wantErr  bool
	}{
		{"bash", Bash, false},
		{"ZSH", Zsh, false},
		{" fish ", Fish, false},
		{"", Auto, false},
		{"auto", Auto, false},
		{"powershell", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			k, err := ParseKind(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, k)
		})
	}
}

func TestDetectFrom(t *testing.T) {
	tests := []struct {
		name     string
		parent   string
		shellEnv string
		expected Kind
	}{
		{"parent bash", "bash", "/bin/zsh", Bash},
		{"login shell", "-zsh", "", Zsh},
		{"dash is sh", "dash", "", Sh},
		{"parent not a shell", "make", "/usr/bin/fish", Fish},
		{"nothing known", "nix", "", Sh},
		{"windows exe", "bash.exe", "", Bash},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, detectFrom(tt.parent, tt.shellEnv))
		})
	}
}

func TestRender_Posix(t *testing.T) {
	script := Render(Bash, []Var{
		{Name: "VIRTUAL_ENV", Value: "/work/venv"},
		{Name: "PS1", Value: "(venv) it's $ "},
	}, []string{"PYTHONHOME"})

	assert.Equal(t, "unset PYTHONHOME\n"+
		"export VIRTUAL_ENV='/work/venv'\n"+
		"export PS1='(venv) it'\\''s $ '\n", script)
}

func TestRender_FishSplitsPath(t *testing.T) {
	script := Render(Fish, []Var{
		{Name: "PATH", Value: "/work/venv/bin:/usr/bin"},
		{Name: "VIRTUAL_ENV_PROMPT", Value: "venv"},
	}, []string{"PYTHONHOME"})

	assert.Equal(t, "set -e PYTHONHOME\n"+
		"set -gx PATH '/work/venv/bin' '/usr/bin'\n"+
		"set -gx VIRTUAL_ENV_PROMPT 'venv'\n", script)
}

func TestPrefixPrompt(t *testing.T) {
	tests := []struct {
		name     string
		kind     Kind
		prefix   string
		stale    string
		expected string
	}{
		{"prefixes the shell's own prompt", Bash, "(venv) ", "", `PS1='(venv) '"${PS1:-}"` + "\n"},
		{"replaces a previous prefix", Zsh, "(venv) ", "(old) ",
			"_devenv_stale='(old) '\n" +
				`PS1='(venv) '"${PS1#"$_devenv_stale"}"` + "\n" +
				"unset _devenv_stale\n"},
		{"fish has no PS1", Fish, "(venv) ", "", ""},
		{"prompt disabled", Sh, "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PrefixPrompt(tt.kind, tt.prefix, tt.stale)
			assert.Equal(t, tt.expected, got)
			assert.NotContains(t, got, "export")
		})
	}
}

func TestQuote(t *testing.T) {
	assert.Equal(t, `'a b'`, Quote(Sh, "a b"))
	assert.Equal(t, `'a'\''b'`, Quote(Zsh, "a'b"))
	assert.Equal(t, `'a\'b\\c'`, Quote(Fish, `a'b\c`))
}

func TestEcho(t *testing.T) {
	assert.Equal(t, "echo 'Activated venv'", Echo(Bash, "Activated venv"))
}
