package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glimpsebot/glimpse/api/schemas"
)

func TestNewRootCommandHasSubcommands(t *testing.T) {
	rootCmd := NewRootCommand()

	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"run", "memory", "sequence", "train"} {
		assert.True(t, names[want], "missing subcommand %q", want)
	}
}

func TestReadObservationRoundTrip(t *testing.T) {
	state := &schemas.ScreenState{
		ID: "obs-1",
		Blocks: []schemas.OcrBlock{
			{Text: "Settings", Box: schemas.BoundingBox{Left: 100, Top: 200, Right: 180, Bottom: 230}},
		},
		ImageWidth:  1920,
		ImageHeight: 1080,
	}
	data, err := json.Marshal(state)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "obs.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	loaded, err := readObservation(path)
	require.NoError(t, err)
	assert.Equal(t, "obs-1", loaded.ID)
	require.Len(t, loaded.Blocks, 1)
	assert.Equal(t, "Settings", loaded.Blocks[0].Text)
}

func TestReadObservationRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "obs.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	_, err := readObservation(path)
	assert.Error(t, err)
}

func TestEmitWritesOneJSONLine(t *testing.T) {
	var out bytes.Buffer
	c := &cobra.Command{}
	c.SetOut(&out)

	require.NoError(t, emit(c, schemas.Action{Type: schemas.ActionClick, TargetText: "OK"}))
	assert.JSONEq(t, `{"type":"click","target_text":"OK"}`, out.String())
}

func TestMemoryResetRequiresConfirmation(t *testing.T) {
	memoryCmd := newMemoryCommand()
	memoryCmd.SetArgs([]string{"reset"})
	memoryCmd.SetOut(new(bytes.Buffer))
	memoryCmd.SetErr(new(bytes.Buffer))

	err := memoryCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--yes")
}
