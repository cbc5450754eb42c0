package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"telecom-assistant/internal/config"
	"telecom-assistant/internal/models"
)

const insertBatchSize = 500

// Chunk is one embedded chunk row of the document set identified by Fingerprint.
type Chunk struct {
	bun.BaseModel `bun:"table:chunks,alias:c"`
	ID            string  `bun:"id,pk"`
	Fingerprint   string  `bun:"fingerprint,notnull"`
	DocumentID    string  `bun:"document_id,notnull"`
	PageNumber    int     `bun:"page_number"`
	Section       string  `bun:"section"`
	Offset        int     `bun:"char_offset"`
	Ordinal       int     `bun:"ordinal"`
	Content       string  `bun:"content,notnull"`
	Embedding     Vector  `bun:"embedding,notnull,type:vector"`
	Similarity    float32 `bun:"similarity,scanonly"`
}

// Store is a pgvector backed chunk index.
type Store struct {
	db          *bun.DB
	fingerprint string
	count       int
}

func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	db.AddQueryHook(bundebug.NewQueryHook(
		bundebug.WithEnabled(debug),
		bundebug.WithVerbose(true),
	))
	return db
}

func ConnectDB(cfg config.DatabaseConfig) *sql.DB {
	opts := []pgdriver.Option{pgdriver.WithDSN(cfg.DSN)}
	if cfg.Password != "" {
		opts = append(opts, pgdriver.WithPassword(cfg.Password))
	}
	return sql.OpenDB(pgdriver.NewConnector(opts...))
}

// NewStore connects to postgres and creates the chunks table if needed.
func NewStore(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	db := NewDB(ConnectDB(cfg), cfg.Debug)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := InitDB(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("init database: %w", err)
	}
	return &Store{db: db}, nil
}

func InitDB(ctx context.Context, db *bun.DB) error {
	if _, err := db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return err
	}
	_, err := db.NewCreateTable().Model((*Chunk)(nil)).IfNotExists().Exec(ctx)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Has reports whether rows for fingerprint exist and makes them the active set.
func (s *Store) Has(ctx context.Context, fingerprint string) (bool, error) {
	n, err := s.db.NewSelect().Model((*Chunk)(nil)).Where("fingerprint = ?", fingerprint).Count(ctx)
	if err != nil {
		return false, fmt.Errorf("count chunks: %w", err)
	}
	if n == 0 {
		return false, nil
	}
	s.fingerprint, s.count = fingerprint, n
	return true, nil
}

// Replace deletes every stored chunk and inserts items in a single transaction.
func (s *Store) Replace(ctx context.Context, fingerprint string, items []models.ChunkEmbedding) error {
	rows := make([]Chunk, len(items))
	for i, item := range items {
		c := item.Chunk
		rows[i] = Chunk{
			ID:          c.ID,
			Fingerprint: fingerprint,
			DocumentID:  c.DocumentID,
			PageNumber:  c.PageNumber,
			Section:     c.Section,
			Offset:      c.Offset,
			Ordinal:     c.ChunkID,
			Content:     c.Content,
			Embedding:   Vector(item.Embedding),
		}
	}

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*Chunk)(nil)).Where("TRUE").Exec(ctx); err != nil {
			return fmt.Errorf("delete chunks: %w", err)
		}
		for start := 0; start < len(rows); start += insertBatchSize {
			batch := rows[start:min(start+insertBatchSize, len(rows))]
			if _, err := tx.NewInsert().Model(&batch).Exec(ctx); err != nil {
				return fmt.Errorf("insert chunks: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.fingerprint, s.count = fingerprint, len(rows)
	log.Info().Int("chunks", len(rows)).Msg("Stored embeddings in postgres")
	return nil
}

// Search orders the active set by cosine distance to vector.
func (s *Store) Search(ctx context.Context, vector []float32, k int) ([]models.SearchResult, error) {
	if k <= 0 || s.count == 0 {
		return nil, nil
	}

	var rows []Chunk
	err := s.db.NewSelect().
		Model(&rows).
		Column("id", "document_id", "page_number", "section", "char_offset", "ordinal", "content").
		ColumnExpr("1 - (embedding <=> ?) AS similarity", Vector(vector)).
		Where("fingerprint = ?", s.fingerprint).
		OrderExpr("embedding <=> ?", Vector(vector)).
		Limit(k).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("search chunks: %w", err)
	}

	out := make([]models.SearchResult, len(rows))
	for i, r := range rows {
		out[i] = models.SearchResult{
			Chunk: models.Chunk{
				ID:         r.ID,
				DocumentID: r.DocumentID,
				PageNumber: r.PageNumber,
				Section:    r.Section,
				Offset:     r.Offset,
				ChunkID:    r.Ordinal,
				Content:    r.Content,
			},
			Similarity: r.Similarity,
		}
	}
	return out, nil
}

// Count returns the number of chunks in the active set.
func (s *Store) Count() int {
	return s.count
}
