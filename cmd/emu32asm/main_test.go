package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunAssemblesSimpleProgram(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "prog.s")
	require.NoError(t, os.WriteFile(src, []byte(".text\nadd x0, x1, #5\nhlt\n"), 0644))

	code := run([]string{"-o", filepath.Join(dir, "prog.o"), src})
	assert.Equal(t, exitOK, code)

	info, err := os.Stat(filepath.Join(dir, "prog.o"))
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestRunReportsAssemblerErrorExitCode(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "bad.s")
	require.NoError(t, os.WriteFile(src, []byte(".text\nadd x0, x1, #999999\nhlt\n"), 0644))

	code := run([]string{"-o", filepath.Join(dir, "bad.o"), src})
	assert.Equal(t, exitAssemblerError, code)
}

func TestRunReportsUsageErrorWithNoSources(t *testing.T) {
	code := run(nil)
	assert.Equal(t, exitUsageError, code)
}

func TestRunReportsIOErrorOnMissingSource(t *testing.T) {
	code := run([]string{filepath.Join(t.TempDir(), "does-not-exist.s")})
	assert.Equal(t, exitIOError, code)
}

func TestRunRejectsOutputFlagWithMultipleSources(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.s")
	b := filepath.Join(dir, "b.s")
	require.NoError(t, os.WriteFile(a, []byte(".text\nhlt\n"), 0644))
	require.NoError(t, os.WriteFile(b, []byte(".text\nhlt\n"), 0644))

	code := run([]string{"-o", filepath.Join(dir, "out.o"), a, b})
	assert.Equal(t, exitUsageError, code)
}

func TestRunAssemblesEachSourceIndependentlyWhenNoOutputGiven(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer func() { _ = os.Chdir(wd) }()

	require.NoError(t, os.WriteFile("a.s", []byte(".text\nhlt\n"), 0644))
	require.NoError(t, os.WriteFile("b.s", []byte(".text\nhlt\n"), 0644))

	code := run([]string{"a.s", "b.s"})
	assert.Equal(t, exitOK, code)
	assert.FileExists(t, "a.o")
	assert.FileExists(t, "b.o")
}

func TestRunPrintsVersionAndExitsOK(t *testing.T) {
	assert.Equal(t, exitOK, run([]string{"-v"}))
}

func TestDefineListSetSplitsNameAndValue(t *testing.T) {
	d := defineList{}
	require.NoError(t, d.Set("DEBUG=1"))
	require.NoError(t, d.Set("FEATURE_X"))
	assert.Equal(t, "1", d["DEBUG"])
	assert.Equal(t, "", d["FEATURE_X"])
}

func TestDefineListSetRejectsEmptyName(t *testing.T) {
	d := defineList{}
	assert.Error(t, d.Set("=1"))
}
