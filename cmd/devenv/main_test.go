package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/esafeeds/devenv/pkg/version"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExitCode(t *testing.T) {
	assert.Equal(t, 1, exitCode(errors.New("boom")))
	assert.Equal(t, 3, exitCode(&exitCodeError{code: 3}))
	assert.Equal(t, 4, exitCode(errors.Wrap(&exitCodeError{code: 4}, "run")))
	assert.Equal(t, "exit status 3", (&exitCodeError{code: 3}).Error())
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	defer versionCmd.SetOut(nil)

	require.NoError(t, versionCmd.RunE(versionCmd, nil))

	var info version.Info
	require.NoError(t, json.Unmarshal(out.Bytes(), &info))
	assert.Equal(t, version.Version, info.Version)
	assert.Equal(t, runtime.Version(), info.GoVersion)
}

func TestBindCommandFlags(t *testing.T) {
	v := viper.New()
	cmd := &cobra.Command{Use: "extract"}
	cmd.Flags().Int("concurrency", 50, "")
	cmd.Flags().String("file", "feed.json", "")
	require.NoError(t, cmd.ParseFlags([]string{"--concurrency", "7"}))

	require.NoError(t, bindCommandFlags(v, cmd))

	assert.Equal(t, 7, v.GetInt("extract.concurrency"))
	assert.Equal(t, "feed.json", v.GetString("extract.file"))
	assert.False(t, v.IsSet("scan.concurrency"))
}

func TestBindCommandFlags_UnknownCommand(t *testing.T) {
	v := viper.New()
	require.NoError(t, bindCommandFlags(v, &cobra.Command{Use: "version"}))
	assert.Empty(t, v.AllKeys())
}

func TestLookPathIn(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("executable bits are not used on windows")
	}
	dir := t.TempDir()
	tool := filepath.Join(dir, "pytest")
	require.NoError(t, os.WriteFile(tool, []byte("#!/bin/sh\n"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes"), nil, 0o644))

	found, err := lookPathIn(dir, "pytest")
	require.NoError(t, err)
	assert.Equal(t, tool, found)

	found, err = lookPathIn(dir, "./script.sh")
	require.NoError(t, err)
	assert.Equal(t, "./script.sh", found)

	_, err = lookPathIn(dir, "notes-devenv-missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestUserShell(t *testing.T) {
	t.Setenv("SHELL", "/usr/bin/fish")
	assert.Equal(t, "/usr/bin/fish", userShell())

	t.Setenv("SHELL", "")
	assert.NotEmpty(t, userShell())
}
