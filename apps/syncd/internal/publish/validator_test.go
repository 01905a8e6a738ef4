package publish_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synclinehq/syncline/apps/syncd/internal/gitstore"
	"github.com/synclinehq/syncline/apps/syncd/internal/publish"
)

// TestValidate_DropsWhitespaceOnlyContent verifies that files whose content
// is empty or whitespace-only are removed.
func TestValidate_DropsWhitespaceOnlyContent(t *testing.T) {
	out := publish.Validate([]gitstore.FileRecord{
		{Path: "a.txt", Content: "hello"},
		{Path: "b.txt", Content: "   \n\t  "},
		{Path: "c.txt", Content: ""},
	})

	require.Len(t, out, 1)
	assert.Equal(t, "a.txt", out[0].Path)
}

// TestValidate_NormalizesPathSeparators verifies that backslashes become
// forward slashes and surrounding whitespace is trimmed.
func TestValidate_NormalizesPathSeparators(t *testing.T) {
	out := publish.Validate([]gitstore.FileRecord{
		{Path: `src\app\main.go`, Content: "package main"},
		{Path: "  docs/readme.md  ", Content: "# hi"},
	})

	require.Len(t, out, 2)
	assert.Equal(t, "src/app/main.go", out[0].Path)
	assert.Equal(t, "docs/readme.md", out[1].Path)
}

// TestValidate_DropsInvalidPaths verifies that empty paths and paths with
// forbidden or control characters are removed.
func TestValidate_DropsInvalidPaths(t *testing.T) {
	out := publish.Validate([]gitstore.FileRecord{
		{Path: "", Content: "x"},
		{Path: "   ", Content: "x"},
		{Path: "bad<name>.txt", Content: "x"},
		{Path: "bad|pipe.txt", Content: "x"},
		{Path: "bad\x00null.txt", Content: "x"},
		{Path: "ok.txt", Content: "x"},
	})

	require.Len(t, out, 1)
	assert.Equal(t, "ok.txt", out[0].Path)
}

// TestValidate_ControlCharsAtPathEnds verifies that control characters at
// either end of a path drop the record outright; trimming never rescues
// such a path into a valid one.
func TestValidate_ControlCharsAtPathEnds(t *testing.T) {
	out := publish.Validate([]gitstore.FileRecord{
		{Path: "a.txt\n", Content: "x"},
		{Path: "\tb.txt", Content: "x"},
		{Path: "c.txt\r\n", Content: "x"},
		{Path: "  spaced.txt  ", Content: "x"},
	})

	require.Len(t, out, 1)
	assert.Equal(t, "spaced.txt", out[0].Path)
}

// TestValidate_PreservesInputOrder verifies that surviving files keep their
// relative order, which keeps the published tree deterministic.
func TestValidate_PreservesInputOrder(t *testing.T) {
	out := publish.Validate([]gitstore.FileRecord{
		{Path: "z.txt", Content: "1"},
		{Path: "bad:colon", Content: "2"},
		{Path: "a.txt", Content: "3"},
		{Path: "m.txt", Content: "4"},
	})

	require.Len(t, out, 3)
	assert.Equal(t, "z.txt", out[0].Path)
	assert.Equal(t, "a.txt", out[1].Path)
	assert.Equal(t, "m.txt", out[2].Path)
}

// TestValidate_AllInvalid verifies that an input with no surviving files
// yields an empty result rather than an error.
func TestValidate_AllInvalid(t *testing.T) {
	out := publish.Validate([]gitstore.FileRecord{
		{Path: "a.txt", Content: "  "},
		{Path: "", Content: "x"},
	})
	assert.Empty(t, out)
}
