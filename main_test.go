package main

import (
	"bytes"
	"testing"

	"bakery/cli"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMainHelp(t *testing.T) {
	cmd := cli.NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--help"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "bakery")
	assert.Contains(t, out.String(), "write")
	assert.Contains(t, out.String(), "history")
}

func TestMainUnknownCommand(t *testing.T) {
	cmd := cli.NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"provision"})

	assert.Error(t, cmd.Execute())
}
