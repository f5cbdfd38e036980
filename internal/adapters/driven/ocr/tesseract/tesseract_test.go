package tesseract

import (
	"context"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neonarc/neonarc/internal/core/domain"
)

// scriptedRunner returns canned output and records its invocations.
type scriptedRunner struct {
	output []byte
	err    error
	calls  [][]string
}

func (r *scriptedRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	r.calls = append(r.calls, append([]string{name}, args...))
	return r.output, r.err
}

const sampleTSV = "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n" +
	"1\t1\t0\t0\t0\t0\t0\t0\t800\t600\t-1\t\n" +
	"5\t1\t1\t1\t1\t1\t10\t10\t50\t20\t96\tHello\n" +
	"5\t1\t1\t1\t1\t2\t70\t10\t50\t20\t88\tworld\n" +
	"5\t1\t1\t1\t2\t1\t10\t40\t60\t20\t72\tsecond\n" +
	"5\t1\t1\t1\t2\t2\t80\t40\t40\t20\t64\tline\n"

func TestRecognise_ParsesTSV(t *testing.T) {
	runner := &scriptedRunner{output: []byte(sampleTSV)}
	backend := NewWithRunner(runner, Config{})

	result, err := backend.Recognise(context.Background(), []byte{0x89, 0x50, 0x4E, 0x47})
	require.NoError(t, err)

	assert.Equal(t, "Hello world\nsecond line", result.Text)
	assert.InDelta(t, 80.0, result.Confidence, 1e-9, "mean of 96, 88, 72, 64")
	assert.Equal(t, "eng", result.Language)

	require.Len(t, runner.calls, 1)
	call := runner.calls[0]
	assert.Equal(t, "tesseract", call[0])
	assert.Contains(t, call, "stdout")
	assert.Contains(t, call, "tsv")
	assert.Contains(t, call, "eng")
}

func TestRecognise_LanguageConfig(t *testing.T) {
	runner := &scriptedRunner{output: []byte(sampleTSV)}
	backend := NewWithRunner(runner, Config{Language: "deu"})

	result, err := backend.Recognise(context.Background(), []byte{1})
	require.NoError(t, err)
	assert.Equal(t, "deu", result.Language)
	assert.Contains(t, runner.calls[0], "deu")
}

func TestRecognise_MinWordConfidenceDropsWords(t *testing.T) {
	runner := &scriptedRunner{output: []byte(sampleTSV)}
	backend := NewWithRunner(runner, Config{MinWordConfidence: 80})

	result, err := backend.Recognise(context.Background(), []byte{1})
	require.NoError(t, err)

	assert.Equal(t, "Hello world", result.Text)
	assert.InDelta(t, 92.0, result.Confidence, 1e-9)
}

func TestRecognise_EmptyImage(t *testing.T) {
	backend := NewWithRunner(&scriptedRunner{}, Config{})

	_, err := backend.Recognise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRecognise_CommandFailure(t *testing.T) {
	runner := &scriptedRunner{err: assert.AnError}
	backend := NewWithRunner(runner, Config{})

	_, err := backend.Recognise(context.Background(), []byte{1})
	assert.ErrorIs(t, err, domain.ErrOCRUnavailable)
}

func TestRecognise_NoWords(t *testing.T) {
	header := "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n"
	runner := &scriptedRunner{output: []byte(header)}
	backend := NewWithRunner(runner, Config{})

	result, err := backend.Recognise(context.Background(), []byte{1})
	require.NoError(t, err)
	assert.Empty(t, result.Text)
	assert.Zero(t, result.Confidence)
}

func TestAvailable(t *testing.T) {
	backend := New(Config{})
	_, lookErr := exec.LookPath("tesseract")
	assert.Equal(t, lookErr == nil, backend.Available(context.Background()))
}

func TestInstallInstructions(t *testing.T) {
	assert.NotEmpty(t, InstallInstructions())
}
