package chromemdb

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"telecom-assistant/internal/config"
	"telecom-assistant/internal/models"
)

const (
	metaDocumentID  = "document_id"
	metaPageNumber  = "page_number"
	metaSection     = "section"
	metaOffset      = "offset"
	metaChunkID     = "chunk_id"
	metaFingerprint = "fingerprint"

	fingerprintLen = 16
)

var ErrNoCollection = errors.New("no active collection")

// VectorDBManager keeps one chromem collection per document-set fingerprint.
type VectorDBManager struct {
	db            *chromem.DB
	collection    *chromem.Collection
	prefix        string
	dbPath        string
	compress      bool
	encryptionKey string
	filePath      string
}

// NewVectorDBManager opens an in-memory or on-disk chromem database.
func NewVectorDBManager(cfg config.IndexConfig) (*VectorDBManager, error) {
	var (
		db  *chromem.DB
		err error
	)
	if cfg.InMemory {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(cfg.Path, cfg.Compress)
		if err != nil {
			return nil, fmt.Errorf("failed to create database: %w", err)
		}
	}

	return &VectorDBManager{
		db:            db,
		prefix:        cfg.Collection,
		dbPath:        cfg.Path,
		compress:      cfg.Compress,
		encryptionKey: cfg.EncryptionKey,
		filePath:      filepath.Join(cfg.Path, cfg.Collection+".chromem"),
	}, nil
}

func (m *VectorDBManager) collectionName(fingerprint string) string {
	if len(fingerprint) > fingerprintLen {
		fingerprint = fingerprint[:fingerprintLen]
	}
	return m.prefix + "-" + fingerprint
}

// Has reports whether a non-empty collection exists for fingerprint and makes it active.
func (m *VectorDBManager) Has(ctx context.Context, fingerprint string) (bool, error) {
	c := m.db.GetCollection(m.collectionName(fingerprint), nil)
	if c == nil || c.Count() == 0 {
		return false, nil
	}
	m.collection = c
	return true, nil
}

// Replace drops the collections of older document sets and stores items under fingerprint.
func (m *VectorDBManager) Replace(ctx context.Context, fingerprint string, items []models.ChunkEmbedding) error {
	name := m.collectionName(fingerprint)
	for existing := range m.db.ListCollections() {
		if strings.HasPrefix(existing, m.prefix+"-") {
			if err := m.db.DeleteCollection(existing); err != nil {
				return fmt.Errorf("failed to drop collection %s: %w", existing, err)
			}
			log.Debug().Str("collection", existing).Msg("Dropped stale collection")
		}
	}

	c, err := m.db.GetOrCreateCollection(name, map[string]string{metaFingerprint: fingerprint}, nil)
	if err != nil {
		return fmt.Errorf("failed to create/get collection: %w", err)
	}

	docs := make([]chromem.Document, len(items))
	for i, item := range items {
		docs[i] = toDocument(item)
	}
	if err := c.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add documents: %w", err)
	}
	m.collection = c
	log.Info().Str("collection", name).Int("documents", len(docs)).Msg("Stored embeddings")
	return nil
}

// Search returns the k most similar chunks by cosine similarity.
func (m *VectorDBManager) Search(ctx context.Context, vector []float32, k int) ([]models.SearchResult, error) {
	if m.collection == nil {
		return nil, ErrNoCollection
	}
	k = min(k, m.collection.Count())
	if k <= 0 {
		return nil, nil
	}

	results, err := m.collection.QueryEmbedding(ctx, vector, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %w", err)
	}

	out := make([]models.SearchResult, len(results))
	for i, r := range results {
		out[i] = models.SearchResult{Chunk: toChunk(r.ID, r.Content, r.Metadata), Similarity: r.Similarity}
	}
	return out, nil
}

// Count returns the number of vectors in the active collection.
func (m *VectorDBManager) Count() int {
	if m.collection == nil {
		return 0
	}
	return m.collection.Count()
}

// Export writes the active collection to an encrypted snapshot file.
func (m *VectorDBManager) Export(ctx context.Context) (string, error) {
	if m.encryptionKey == "" {
		return "", fmt.Errorf("encryption key is required")
	}
	if m.collection == nil {
		return "", ErrNoCollection
	}
	if m.dbPath == "" {
		return "", fmt.Errorf("db path is required")
	}

	log.Debug().
		Str("collection", m.collection.Name).
		Str("file", m.filePath).
		Bool("compress", m.compress).
		Msg("Exporting collection")
	if err := m.db.ExportToFile(m.filePath, m.compress, m.encryptionKey, m.collection.Name); err != nil {
		return "", fmt.Errorf("failed to export database: %w", err)
	}
	return m.filePath, nil
}

// Import loads collections from a snapshot written by Export. A missing file is not an error.
func (m *VectorDBManager) Import(ctx context.Context, path string) error {
	if path == "" {
		path = m.filePath
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := m.db.ImportFromFile(path, m.encryptionKey); err != nil {
		return fmt.Errorf("failed to import database: %w", err)
	}
	log.Info().Str("file", path).Msg("Imported snapshot")
	return nil
}

func toDocument(item models.ChunkEmbedding) chromem.Document {
	c := item.Chunk
	return chromem.Document{
		ID:      c.ID,
		Content: c.Content,
		Metadata: map[string]string{
			metaDocumentID: c.DocumentID,
			metaPageNumber: strconv.Itoa(c.PageNumber),
			metaSection:    c.Section,
			metaOffset:     strconv.Itoa(c.Offset),
			metaChunkID:    strconv.Itoa(c.ChunkID),
		},
		Embedding: item.Embedding,
	}
}

func toChunk(id, content string, meta map[string]string) models.Chunk {
	page, _ := strconv.Atoi(meta[metaPageNumber])
	offset, _ := strconv.Atoi(meta[metaOffset])
	ordinal, _ := strconv.Atoi(meta[metaChunkID])
	return models.Chunk{
		ID:         id,
		DocumentID: meta[metaDocumentID],
		PageNumber: page,
		Section:    meta[metaSection],
		Offset:     offset,
		ChunkID:    ordinal,
		Content:    content,
	}
}
