package view

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"story-studio/internal/interfaces/http/dto"
)

func TestHomeRendersLinksAndDisablesSubmit(t *testing.T) {
	tmpl, err := Templates()
	require.NoError(t, err)

	var buf bytes.Buffer
	err = tmpl.ExecuteTemplate(&buf, HomePage, Home{
		Title: "Capitol AI",
		Session: dto.SessionResponse{
			InFlight: true,
			Stories:  []dto.StoryLinkResponse{{ID: "abc123", Label: "Edit Story: abc123", URL: "/story/abc123"}},
		},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `<a href="/story/abc123">Edit Story: abc123</a>`)
	assert.Contains(t, out, "disabled")
	assert.Contains(t, out, `http-equiv="refresh"`)
}

func TestEditorEscapesContent(t *testing.T) {
	tmpl, err := Templates()
	require.NoError(t, err)

	var buf bytes.Buffer
	err = tmpl.ExecuteTemplate(&buf, EditorPage, Editor{
		Title: "Capitol AI",
		Story: dto.StoryResponse{ID: "story-id-1", Found: true, Content: "</textarea><b>x</b>", HTML: "<p>ok</p>"},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Story story-id-1")
	assert.Contains(t, out, "&lt;/textarea&gt;")
	assert.Contains(t, out, "<p>ok</p>")
	assert.NotContains(t, out, `http-equiv="refresh"`)
}
