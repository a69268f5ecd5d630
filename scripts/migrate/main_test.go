package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckCmd_BuiltinCatalog(t *testing.T) {
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"check", "--content", "", "--languages", ""})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "Basics")
	assert.Contains(t, out.String(), "rust")
}

func TestCheckCmd_RejectsBrokenCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "questions.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"questions":[]}`), 0o644))

	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"check", "--content", path, "--languages", ""})
	assert.Error(t, root.Execute())
}

func TestUpCmd_RequiresEnvFile(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"up", "--env", filepath.Join(t.TempDir(), "missing.env")})
	assert.Error(t, root.Execute())
}
