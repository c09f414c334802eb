package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/MKhiriev/reflog-sync/internal/logger"
	"github.com/MKhiriev/reflog-sync/models"
)

// sqliteRepository is the innermost [Repository]. It persists each document
// as one JSON row of the records table and knows nothing about encryption or
// sync.
type sqliteRepository struct {
	*DB
	logger *logger.Logger
}

// NewSQLiteRepository constructs the base local [Repository].
func NewSQLiteRepository(db *DB, logger *logger.Logger) Repository {
	return &sqliteRepository{
		DB:     db,
		logger: logger,
	}
}

func (r *sqliteRepository) Get(ctx context.Context, table, id string) (models.Document, error) {
	var data string
	err := r.QueryRowContext(ctx, getDocument, table, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "sqliteRepository.Get").
			Str("table", table).
			Str("id", id).
			Msg("failed to read record")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	var doc models.Document
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncodingDocument, err)
	}

	return doc, nil
}

// Put writes all docs in one transaction.
func (r *sqliteRepository) Put(ctx context.Context, table string, docs ...models.Document) error {
	if len(docs) == 0 {
		return nil
	}

	return r.inTx(ctx, "sqliteRepository.Put", func(tx *sql.Tx) error {
		for _, doc := range docs {
			id := doc.ID()
			if id == "" {
				return fmt.Errorf("%w: document without id", ErrEncodingDocument)
			}

			data, err := json.Marshal(doc)
			if err != nil {
				return fmt.Errorf("%w: %w", ErrEncodingDocument, err)
			}

			if _, err := tx.ExecContext(ctx, putDocument, table, id, string(data)); err != nil {
				logger.FromContext(ctx).Err(err).
					Str("func", "sqliteRepository.Put").
					Str("table", table).
					Str("id", id).
					Msg("failed to write record")
				return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
			}
		}

		return nil
	})
}

// Delete removes the given ids; unknown ids are ignored.
func (r *sqliteRepository) Delete(ctx context.Context, table string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}

	return r.inTx(ctx, "sqliteRepository.Delete", func(tx *sql.Tx) error {
		for _, id := range ids {
			if _, err := tx.ExecContext(ctx, deleteDocument, table, id); err != nil {
				logger.FromContext(ctx).Err(err).
					Str("func", "sqliteRepository.Delete").
					Str("table", table).
					Str("id", id).
					Msg("failed to delete record")
				return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
			}
		}

		return nil
	})
}

func (r *sqliteRepository) Query(ctx context.Context, table string) ([]models.Document, error) {
	rows, err := r.QueryContext(ctx, queryDocuments, table)
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "sqliteRepository.Query").
			Str("table", table).
			Msg("failed to query records")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	docs := make([]models.Document, 0, 16)
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrScanningRow, err)
		}

		var doc models.Document
		if err := json.Unmarshal([]byte(data), &doc); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrEncodingDocument, err)
		}
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
	}

	return docs, nil
}
