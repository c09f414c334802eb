package store

import (
	"context"
	"fmt"

	"github.com/MKhiriev/reflog-sync/internal/config"
	"github.com/MKhiriev/reflog-sync/internal/logger"
	"github.com/MKhiriev/reflog-sync/internal/session"
)

// ClientStorages groups the client-side repositories.
type ClientStorages struct {
	// Records is the fully decorated repository used by application code
	// and by the sync engine.
	Records Repository
	Queue   QueueRepository
	Meta    MetaRepository

	db *DB
}

// NewClientStorages opens the local SQLite database (creating the file when
// needed), applies migrations and wires the repository decorators:
//
//	tracking -> encryption -> sqlite
//
// onChange is called after every tracked local mutation and may be nil.
func NewClientStorages(ctx context.Context, cfg config.ClientStorage, sess *session.Session, onChange func(), logger *logger.Logger) (*ClientStorages, error) {
	logger.Info().Msg("creating new storages...")

	db, err := NewConnectSQLite(ctx, cfg.DB, logger)
	if err != nil {
		return nil, fmt.Errorf("sqlite connection error: %w", err)
	}

	return newClientStorages(db, sess, onChange, logger), nil
}

func newClientStorages(db *DB, sess *session.Session, onChange func(), logger *logger.Logger) *ClientStorages {
	queue := NewQueueRepository(db, logger)
	base := NewSQLiteRepository(db, logger)
	encrypted := NewEncryptedRepository(base, sess)

	return &ClientStorages{
		Records: NewTrackingRepository(encrypted, queue, sess, onChange),
		Queue:   queue,
		Meta:    NewMetaRepository(db, logger),
		db:      db,
	}
}

// Close closes the underlying database.
func (s *ClientStorages) Close() error {
	return s.db.Close()
}
