package plaintext

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neonarc/neonarc/internal/core/domain"
)

func TestExtract_Plain(t *testing.T) {
	e := New()
	res, err := e.Extract(context.Background(), &domain.RawFile{
		Path:    "/x/a.txt",
		Content: []byte("quarterly tax filing for 2022"),
	})
	require.NoError(t, err)
	assert.Equal(t, "quarterly tax filing for 2022", res.Text)
	assert.Equal(t, "utf-8", res.Metadata["encoding"])
}

func TestExtract_StripsBOM(t *testing.T) {
	e := New()
	res, err := e.Extract(context.Background(), &domain.RawFile{
		Content: []byte("\xef\xbb\xbfhello"),
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", res.Text)
	assert.Equal(t, true, res.Metadata["bom"])
}

func TestExtract_InvalidUTF8Flagged(t *testing.T) {
	e := New()
	res, err := e.Extract(context.Background(), &domain.RawFile{
		Content: []byte("ok\xffbad"),
	})
	require.NoError(t, err)
	assert.Equal(t, true, res.Metadata["invalid_utf8_replaced"])
	assert.Contains(t, res.Text, "ok")
}

func TestExtract_EmptyFlagged(t *testing.T) {
	e := New()
	res, err := e.Extract(context.Background(), &domain.RawFile{Content: []byte("  \n\t")})
	require.NoError(t, err)
	assert.Empty(t, res.Text)
	assert.Equal(t, true, res.Metadata["empty"])
}

func TestExtract_NilRaw(t *testing.T) {
	e := New()
	_, err := e.Extract(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
