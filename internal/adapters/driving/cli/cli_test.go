package cli

import (
	"bytes"
	"testing"

	"github.com/neonarc/neonarc/internal/adapters/driven/embedding/static"
	"github.com/neonarc/neonarc/internal/adapters/driven/storage/memory"
	"github.com/neonarc/neonarc/internal/core/domain"
	"github.com/neonarc/neonarc/internal/core/services"
	"github.com/neonarc/neonarc/internal/extractors"
	"github.com/neonarc/neonarc/internal/extractors/markdown"
	"github.com/neonarc/neonarc/internal/extractors/plaintext"
)

// setupTestServices wires the command vars to in-memory services and
// returns a cleanup restoring the previous state.
func setupTestServices() func() {
	oldIngest := ingestService
	oldSearch := searchService
	oldDocuments := documentService
	oldWatch := watchService

	docStore := memory.NewDocumentStore()
	vectorIndex := memory.NewVectorIndex()
	embedder := static.NewEmbeddingService(64)
	registry := extractors.NewRegistry(plaintext.New(), markdown.New())
	coordinator := services.NewCoordinator(docStore, vectorIndex)

	ingestService = services.NewIngestService(coordinator, docStore, registry, testSplitter{}, embedder, 2, domain.DefaultMaxFileSize)
	searchService = services.NewSearchService(docStore, vectorIndex, embedder)
	documentService = services.NewDocumentQueryService(docStore, vectorIndex, coordinator)

	return func() {
		ingestService = oldIngest
		searchService = oldSearch
		documentService = oldDocuments
		watchService = oldWatch
	}
}

// testSplitter emits the whole text as one chunk.
type testSplitter struct{}

func (testSplitter) Split(documentID, text string) []domain.Chunk {
	if text == "" {
		return nil
	}
	return []domain.Chunk{{
		ID:         "chunk-" + documentID,
		DocumentID: documentID,
		Content:    text,
		EndOffset:  len(text),
	}}
}

// execute runs the root command with args and returns combined output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}
