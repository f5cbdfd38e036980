package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchCmd_Use(t *testing.T) {
	assert.Equal(t, "search [query]", searchCmd.Use)
}

func TestSearchCmd_RequiresExactlyOneArg(t *testing.T) {
	out, err := execute(t, "search")
	assert.Error(t, err)
	assert.Contains(t, out, "accepts 1 arg(s)")
}

func TestSearchCmd_HasLimitFlag(t *testing.T) {
	flag := searchCmd.Flags().Lookup("limit")
	require.NotNil(t, flag)
	assert.Equal(t, "n", flag.Shorthand)
	assert.Equal(t, "10", flag.DefValue)
}

func TestSearchCmd_FindsIngestedContent(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	dir := t.TempDir()
	writeTestFile(t, dir, "tax.txt", "income tax return documents")
	writeTestFile(t, dir, "recipe.txt", "banana smoothie recipe")
	_, err := execute(t, "ingest", dir)
	require.NoError(t, err)

	out, err := execute(t, "search", "tax documents")
	require.NoError(t, err)
	assert.Contains(t, out, "Results:")
	assert.Contains(t, out, "tax.txt")
}

func TestSearchCmd_NoResults(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "search", "anything at all")
	require.NoError(t, err)
	assert.Contains(t, out, "No results found.")
}

func TestSearchCmd_JSONOutput(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	defer func() { searchJSON = false }()

	path := writeTestFile(t, t.TempDir(), "a.txt", "json output content")
	_, err := execute(t, "ingest", path)
	require.NoError(t, err)

	out, err := execute(t, "search", "--json", "json output")
	require.NoError(t, err)
	assert.Contains(t, out, "\"Score\"")
	assert.Contains(t, out, "\"Snippet\"")
}

func TestSearchCmd_InvalidAfterDate(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	defer func() { searchAfter = "" }()

	_, err := execute(t, "search", "--after", "not-a-date", "query")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --after date")
}

func TestSearchCmd_ContextFlag(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	defer func() { searchContext = 0 }()

	path := writeTestFile(t, t.TempDir(), "a.txt", "context flag content")
	_, err := execute(t, "ingest", path)
	require.NoError(t, err)

	out, err := execute(t, "search", "--context", "1", "context flag")
	require.NoError(t, err)
	assert.Contains(t, out, "Context around the best hit:")
	assert.Contains(t, out, "> [0]")
}

func TestSimilarCmd_ExcludesSelf(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	dir := t.TempDir()
	a := writeTestFile(t, dir, "a.txt", "invoice payment records yearly")
	writeTestFile(t, dir, "b.txt", "invoice payment records monthly")
	_, err := execute(t, "ingest", dir)
	require.NoError(t, err)

	out, err := execute(t, "similar", a)
	require.NoError(t, err)
	assert.Contains(t, out, "b.txt")
	assert.NotContains(t, out, "a.txt (")
}
