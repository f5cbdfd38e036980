package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/neonarc/neonarc/internal/core/domain"
	"github.com/neonarc/neonarc/internal/core/ports/driven"
	"github.com/neonarc/neonarc/internal/core/ports/driving"
	"github.com/neonarc/neonarc/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.Ingestor = (*IngestService)(nil)

// detectHeadLen is how many leading bytes media detection reads.
const detectHeadLen = 512

// Splitter turns extracted text into chunks. Satisfied by the chunker
// package; tests inject simpler doubles.
type Splitter interface {
	Split(documentID, text string) []domain.Chunk
}

// IngestService runs the per-file pipeline: discover, hash, extract,
// chunk, embed, store. Files are processed by a bounded worker pool;
// one file's failure is recorded and never aborts its siblings.
type IngestService struct {
	coordinator *Coordinator
	docStore    driven.DocumentStore
	registry    driven.ExtractorRegistry
	splitter    Splitter
	embedder    driven.EmbeddingService

	locks       *pathLocks
	workers     int
	maxFileSize int64
}

// NewIngestService creates an ingestion service.
func NewIngestService(
	coordinator *Coordinator,
	docStore driven.DocumentStore,
	registry driven.ExtractorRegistry,
	splitter Splitter,
	embedder driven.EmbeddingService,
	workers int,
	maxFileSize int64,
) *IngestService {
	if workers <= 0 {
		workers = domain.DefaultWorkers
	}
	if maxFileSize <= 0 {
		maxFileSize = domain.DefaultMaxFileSize
	}
	return &IngestService{
		coordinator: coordinator,
		docStore:    docStore,
		registry:    registry,
		splitter:    splitter,
		embedder:    embedder,
		locks:       newPathLocks(),
		workers:     workers,
		maxFileSize: maxFileSize,
	}
}

// Ingest processes the given files or directories.
func (s *IngestService) Ingest(ctx context.Context, paths []string, opts driving.IngestOptions) (*domain.BatchResult, error) {
	logger.Section("Ingestion")

	files, err := discoverFiles(paths, opts.Recursive)
	if err != nil {
		return nil, err
	}
	logger.Debug("discovered %d files", len(files))

	// A dead embedding backend would fail every file the same way;
	// catch it once up front instead of producing N identical failures.
	if err := s.embedder.Ping(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	if err := s.ensureModelMeta(ctx); err != nil {
		return nil, err
	}

	var (
		mu     sync.Mutex
		result domain.BatchResult
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for _, path := range files {
		path := path
		g.Go(func() error {
			outcome := s.processFile(gctx, path, opts)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case outcome.unsupported:
				result.Unsupported++
				result.Failures = append(result.Failures, domain.Failure{Path: path, Cause: outcome.cause})
			case outcome.state == domain.StateDone:
				result.Ingested++
			case outcome.state == domain.StateUnchanged:
				result.Unchanged++
			default:
				result.Failed++
				result.Failures = append(result.Failures, domain.Failure{Path: path, Cause: outcome.cause})
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if opts.Prune {
		removed, err := s.prune(ctx, paths, files, opts.DryRun)
		if err != nil {
			return nil, err
		}
		result.Removed = removed
	}

	logger.Info("ingestion finished: %d ingested, %d unchanged, %d failed, %d unsupported, %d removed",
		result.Ingested, result.Unchanged, result.Failed, result.Unsupported, result.Removed)
	return &result, nil
}

// Remove tombstones the document at path.
func (s *IngestService) Remove(ctx context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving path: %w", err)
	}

	if err := s.locks.acquire(ctx, abs); err != nil {
		return err
	}
	defer s.locks.unlock(abs)

	return s.coordinator.Tombstone(ctx, abs)
}

// fileOutcome is the terminal state of one file's pipeline run.
type fileOutcome struct {
	state       domain.FileState
	unsupported bool
	cause       string
}

func (s *IngestService) processFile(ctx context.Context, path string, opts driving.IngestOptions) fileOutcome {
	report := func(state domain.FileState) {
		if opts.Progress != nil {
			opts.Progress(path, state)
		}
	}
	fail := func(cause string) fileOutcome {
		report(domain.StateFailed)
		return fileOutcome{state: domain.StateFailed, cause: cause}
	}

	report(domain.StateDiscovered)

	if err := s.locks.acquire(ctx, path); err != nil {
		return fail(err.Error())
	}
	defer s.locks.unlock(path)

	info, err := os.Stat(path)
	if err != nil {
		return fail("stat: " + err.Error())
	}

	if info.Size() > s.maxFileSize {
		cause := fmt.Sprintf("%v (%d bytes)", domain.ErrFileTooLarge, info.Size())
		if !opts.DryRun {
			s.recordSkipped(ctx, path, info, domain.MediaUnknown, cause)
		}
		report(domain.StateFailed)
		return fileOutcome{state: domain.StateFailed, unsupported: true, cause: cause}
	}

	report(domain.StateHashing)
	content, err := os.ReadFile(path)
	if err != nil {
		return fail("read: " + err.Error())
	}
	hash := hashBytes(content)

	existing, err := s.docStore.GetDocumentByPath(ctx, path)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fail("lookup: " + err.Error())
	}

	// Idempotence short-circuit: unchanged content never re-runs
	// extraction or embedding.
	if existing != nil && existing.ContentHash == hash && existing.Status == domain.StatusExtracted {
		report(domain.StateUnchanged)
		return fileOutcome{state: domain.StateUnchanged}
	}

	// A file that appeared at a new path with a hash some vanished
	// document still holds is a move: update metadata in place.
	if existing == nil && !opts.DryRun {
		if moved := s.adoptMoved(ctx, path, hash); moved {
			report(domain.StateDone)
			return fileOutcome{state: domain.StateDone}
		}
	}

	report(domain.StateChanged)
	if opts.DryRun {
		return fileOutcome{state: domain.StateDone}
	}

	head := content
	if len(head) > detectHeadLen {
		head = head[:detectHeadLen]
	}
	mediaType := s.registry.Detect(path, head)
	if mediaType == domain.MediaUnknown {
		cause := domain.ErrUnsupportedType.Error()
		s.recordSkipped(ctx, path, info, mediaType, cause)
		report(domain.StateFailed)
		return fileOutcome{state: domain.StateFailed, unsupported: true, cause: cause}
	}

	report(domain.StateExtracting)
	raw := &domain.RawFile{Path: path, MediaType: mediaType, Content: content}
	extracted, err := s.registry.Extract(ctx, raw)
	if errors.Is(err, domain.ErrUnsupportedType) {
		// Detected type with no extractor wired, e.g. images with OCR
		// disabled.
		s.recordSkipped(ctx, path, info, mediaType, err.Error())
		report(domain.StateFailed)
		return fileOutcome{state: domain.StateFailed, unsupported: true, cause: err.Error()}
	}
	if err != nil {
		s.recordFailed(ctx, path, info, mediaType, hash, "extraction: "+err.Error())
		return fail("extraction: " + err.Error())
	}

	docID := uuid.NewString()
	if existing != nil {
		docID = existing.ID
	}

	chunks := s.splitter.Split(docID, extracted.Text)

	report(domain.StateEmbedding)
	if len(chunks) > 0 {
		texts := make([]string, len(chunks))
		for i, chunk := range chunks {
			texts[i] = chunk.Content
		}
		embeddings, err := s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			s.recordFailed(ctx, path, info, mediaType, hash, "embedding: "+err.Error())
			return fail("embedding: " + err.Error())
		}
		if len(embeddings) != len(chunks) {
			cause := fmt.Sprintf("embedding: got %d vectors for %d chunks", len(embeddings), len(chunks))
			s.recordFailed(ctx, path, info, mediaType, hash, cause)
			return fail(cause)
		}
		for i := range chunks {
			chunks[i].Embedding = embeddings[i]
		}
	}

	report(domain.StateStoring)
	// A cancel mid-commit would leave the stores for Reconcile to
	// repair; let the in-flight transaction run to completion instead.
	commitCtx := context.WithoutCancel(ctx)
	doc := &domain.Document{
		ID:          docID,
		Path:        path,
		ContentHash: hash,
		MediaType:   mediaType,
		Size:        info.Size(),
		ModifiedAt:  info.ModTime().UTC(),
		Metadata:    extracted.Metadata,
	}
	if err := s.coordinator.CommitDocument(commitCtx, doc, chunks); err != nil {
		return fail("storing: " + err.Error())
	}

	report(domain.StateDone)
	return fileOutcome{state: domain.StateDone}
}

// adoptMoved looks for a document whose file vanished but whose hash
// matches the new path, and moves it in place instead of re-ingesting.
func (s *IngestService) adoptMoved(ctx context.Context, path, hash string) bool {
	docs, err := s.docStore.ListDocuments(ctx, domain.SearchFilters{})
	if err != nil {
		return false
	}
	for i := range docs {
		doc := &docs[i]
		if doc.ContentHash != hash || doc.Status != domain.StatusExtracted {
			continue
		}
		if _, statErr := os.Stat(doc.Path); statErr == nil {
			continue // old file still exists: a copy, not a move
		}
		if err := s.docStore.UpdateDocumentPath(ctx, doc.ID, path); err != nil {
			logger.Warn("move detection: updating path for %s: %v", doc.Path, err)
			return false
		}
		logger.Info("detected move %s -> %s, metadata updated in place", doc.Path, path)
		return true
	}
	return false
}

// prune removes documents under the ingested roots whose file no
// longer exists. Returns how many were removed.
func (s *IngestService) prune(ctx context.Context, roots, ingested []string, dryRun bool) (int, error) {
	current := make(map[string]bool, len(ingested))
	for _, p := range ingested {
		current[p] = true
	}

	removed := 0
	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			continue
		}
		docs, err := s.docStore.ListDocuments(ctx, domain.SearchFilters{PathPrefix: abs})
		if err != nil {
			return removed, fmt.Errorf("listing documents for prune: %w", err)
		}
		for i := range docs {
			if current[docs[i].Path] {
				continue
			}
			if _, statErr := os.Stat(docs[i].Path); statErr == nil {
				continue
			}
			if dryRun {
				removed++
				continue
			}
			if err := s.Remove(ctx, docs[i].Path); err != nil && !errors.Is(err, domain.ErrNotFound) {
				return removed, fmt.Errorf("pruning %s: %w", docs[i].Path, err)
			}
			removed++
		}
	}
	return removed, nil
}

// recordSkipped upserts a document row in unsupported state so the
// skip is visible in listings.
func (s *IngestService) recordSkipped(ctx context.Context, path string, info fs.FileInfo, mediaType domain.MediaType, cause string) {
	doc := &domain.Document{
		ID:         uuid.NewString(),
		Path:       path,
		MediaType:  mediaType,
		Size:       info.Size(),
		ModifiedAt: info.ModTime().UTC(),
		Status:     domain.StatusUnsupported,
	}
	doc.ContentHash = "-"
	doc.FailureReason = cause
	if err := s.docStore.UpsertDocument(ctx, doc); err != nil {
		logger.Warn("recording unsupported file %s: %v", path, err)
	}
}

// recordFailed upserts a document row in failed state.
func (s *IngestService) recordFailed(ctx context.Context, path string, info fs.FileInfo, mediaType domain.MediaType, hash, cause string) {
	doc := &domain.Document{
		ID:          uuid.NewString(),
		Path:        path,
		ContentHash: hash,
		MediaType:   mediaType,
		Size:        info.Size(),
		ModifiedAt:  info.ModTime().UTC(),
		Status:      domain.StatusFailed,
	}
	doc.FailureReason = cause
	if err := s.docStore.UpsertDocument(ctx, doc); err != nil {
		logger.Warn("recording failed file %s: %v", path, err)
	}
}

// ensureModelMeta pins the embedding model identity on first use and
// rejects a changed model afterwards.
func (s *IngestService) ensureModelMeta(ctx context.Context) error {
	return ensureModel(ctx, s.docStore, s.embedder, true)
}

// ensureModel compares the store's recorded model identity with the
// configured embedder. When record is true and nothing is recorded yet,
// the current identity is persisted.
func ensureModel(ctx context.Context, store driven.DocumentStore, embedder driven.EmbeddingService, record bool) error {
	model, err := store.GetMeta(ctx, driven.MetaEmbeddingModel)
	if errors.Is(err, domain.ErrNotFound) {
		if !record {
			return nil
		}
		if err := store.SetMeta(ctx, driven.MetaEmbeddingModel, embedder.ModelName()); err != nil {
			return fmt.Errorf("recording embedding model: %w", err)
		}
		dims := fmt.Sprintf("%d", embedder.Dimensions())
		if err := store.SetMeta(ctx, driven.MetaEmbeddingDimensions, dims); err != nil {
			return fmt.Errorf("recording embedding dimensions: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading embedding model meta: %w", err)
	}

	if model != embedder.ModelName() {
		return fmt.Errorf("%w: index built with %q, configured %q (re-ingest from scratch to switch models)",
			domain.ErrModelMismatch, model, embedder.ModelName())
	}
	return nil
}

// discoverFiles expands the argument paths into a sorted list of
// absolute file paths.
func discoverFiles(paths []string, recursive bool) ([]string, error) {
	seen := make(map[string]bool)
	var files []string

	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			files = append(files, p)
		}
	}

	for _, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", path, err)
		}

		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, abs)
		}

		if !info.IsDir() {
			add(abs)
			continue
		}

		if recursive {
			walkErr := filepath.WalkDir(abs, func(p string, d fs.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if d.IsDir() {
					if isHiddenDir(d.Name(), p, abs) {
						return filepath.SkipDir
					}
					return nil
				}
				add(p)
				return nil
			})
			if walkErr != nil {
				return nil, fmt.Errorf("walking %s: %w", abs, walkErr)
			}
			continue
		}

		entries, err := os.ReadDir(abs)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", abs, err)
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				add(filepath.Join(abs, entry.Name()))
			}
		}
	}

	sort.Strings(files)
	return files, nil
}

// isHiddenDir skips dot-directories below the root (.git and friends).
func isHiddenDir(name, path, root string) bool {
	return path != root && len(name) > 1 && name[0] == '.'
}

// hashBytes returns the hex SHA-256 of content.
func hashBytes(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
