package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListCmd_EmptyArchive(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Archive is empty.")
}

func TestListCmd_ShowsDocuments(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	dir := t.TempDir()
	writeTestFile(t, dir, "a.txt", "alpha")
	writeTestFile(t, dir, "b.md", "# beta")
	_, err := execute(t, "ingest", dir)
	require.NoError(t, err)

	out, err := execute(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "a.txt")
	assert.Contains(t, out, "b.md")
	assert.Contains(t, out, "2 documents")
	assert.Contains(t, out, "extracted")
}

func TestListCmd_RejectsUnknownSort(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	defer func() { listSort = "name" }()

	_, err := execute(t, "list", "--sort", "size")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown sort order")
}

func TestInfoCmd_ShowsDocument(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	path := writeTestFile(t, t.TempDir(), "a.txt", "some content here")
	_, err := execute(t, "ingest", path)
	require.NoError(t, err)

	out, err := execute(t, "info", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Status:     extracted")
	assert.Contains(t, out, "Chunks:     1")
	assert.Contains(t, out, path)
}

func TestInfoCmd_UnknownPath(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "info", "/no/such/doc.txt")
	assert.Error(t, err)
}

func TestValidateCmd_CleanArchive(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	path := writeTestFile(t, t.TempDir(), "a.txt", "content")
	_, err := execute(t, "ingest", path)
	require.NoError(t, err)

	out, err := execute(t, "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "Documents: 1")
	assert.Contains(t, out, "Archive is consistent.")
}
