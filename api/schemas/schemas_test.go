package schemas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeActionClosedVariants(t *testing.T) {
	action, err := DecodeAction(map[string]interface{}{
		"type":        "click",
		"target_text": "Settings",
	})
	require.NoError(t, err)
	assert.Equal(t, ActionClick, action.Type)
	assert.Equal(t, "Settings", action.TargetText)

	action, err = DecodeAction(map[string]interface{}{
		"type":        "type",
		"target_text": "Username",
		"text":        "admin",
	})
	require.NoError(t, err)
	assert.Equal(t, ActionInputText, action.Type)
	assert.Equal(t, "admin", action.Text)

	_, err = DecodeAction(map[string]interface{}{"type": "teleport"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "teleport")
}

func TestNeedsGrounding(t *testing.T) {
	assert.True(t, Action{Type: ActionClick, TargetText: "OK"}.NeedsGrounding())
	assert.True(t, Action{Type: ActionInputText, TargetText: "Username"}.NeedsGrounding())
	assert.False(t, Action{Type: ActionClick}.NeedsGrounding())
	assert.False(t, Action{Type: ActionKey, KeyName: "enter"}.NeedsGrounding())
	assert.False(t, Action{Type: ActionOpen, TargetText: "firefox"}.NeedsGrounding())
}

func TestBoundingBoxCenter(t *testing.T) {
	box := BoundingBox{Left: 100, Top: 200, Right: 180, Bottom: 230}
	x, y := box.Center()
	assert.Equal(t, 140.0, x)
	assert.Equal(t, 215.0, y)
}

func TestDescribeIsOrderStable(t *testing.T) {
	a := &ScreenState{Blocks: []OcrBlock{{Text: "File"}, {Text: "Edit"}, {Text: "View"}}}
	b := &ScreenState{Blocks: []OcrBlock{{Text: "View"}, {Text: "File"}, {Text: "Edit"}}}

	// OCR emission order varies between captures of the same screen; the
	// embeddable description must not.
	assert.Equal(t, a.Describe(), b.Describe())
}

func TestContainsTextIsCaseInsensitiveSubstring(t *testing.T) {
	state := &ScreenState{Blocks: []OcrBlock{{Text: "Open Settings Panel"}}}
	assert.True(t, state.ContainsText("settings"))
	assert.False(t, state.ContainsText("Preferences"))
}
