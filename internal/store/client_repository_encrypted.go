// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/MKhiriev/reflog-sync/internal/crypto"
	"github.com/MKhiriev/reflog-sync/internal/session"
	"github.com/MKhiriev/reflog-sync/models"
)

// EncryptedFields lists, per table, the document fields stored encrypted.
var EncryptedFields = map[string][]string{
	models.TableEntries:  {"title", "body", "tags"},
	models.TableSettings: {"value"},
}

// encryptedRepository encrypts designated fields on write and decrypts them
// on read. Tables without designated fields pass through untouched.
type encryptedRepository struct {
	next    Repository
	session *session.Session
	fields  map[string][]string
}

// NewEncryptedRepository wraps next with field encryption under the key held
// by sess.
func NewEncryptedRepository(next Repository, sess *session.Session) Repository {
	return &encryptedRepository{
		next:    next,
		session: sess,
		fields:  EncryptedFields,
	}
}

func (r *encryptedRepository) Get(ctx context.Context, table, id string) (models.Document, error) {
	doc, err := r.next.Get(ctx, table, id)
	if err != nil {
		return nil, err
	}

	return r.decrypt(table, doc)
}

// Put fails with session.ErrVaultLocked when a designated table is written
// while no key is held.
func (r *encryptedRepository) Put(ctx context.Context, table string, docs ...models.Document) error {
	fields, ok := r.fields[table]
	if !ok {
		return r.next.Put(ctx, table, docs...)
	}

	key, err := r.session.Key()
	if err != nil {
		return err
	}

	sealed := make([]models.Document, 0, len(docs))
	for _, doc := range docs {
		out := doc.Clone()
		for _, field := range fields {
			raw, present := doc[field]
			if !present {
				continue
			}

			enc, err := crypto.EncryptField(raw, key)
			if err != nil {
				return err
			}
			if out[field], err = json.Marshal(enc); err != nil {
				return fmt.Errorf("%w: %w", ErrEncodingDocument, err)
			}
		}
		sealed = append(sealed, out)
	}

	return r.next.Put(ctx, table, sealed...)
}

func (r *encryptedRepository) Delete(ctx context.Context, table string, ids ...string) error {
	return r.next.Delete(ctx, table, ids...)
}

func (r *encryptedRepository) Query(ctx context.Context, table string) ([]models.Document, error) {
	docs, err := r.next.Query(ctx, table)
	if err != nil {
		return nil, err
	}

	for i, doc := range docs {
		if docs[i], err = r.decrypt(table, doc); err != nil {
			return nil, err
		}
	}

	return docs, nil
}

// decrypt replaces every designated field shaped like an encrypted value with
// its plaintext. Fields of any other shape are returned unchanged, so rows
// written before encryption was enabled stay readable.
func (r *encryptedRepository) decrypt(table string, doc models.Document) (models.Document, error) {
	fields, ok := r.fields[table]
	if !ok {
		return doc, nil
	}

	out := doc.Clone()
	for _, field := range fields {
		enc, ok := asEncryptedField(doc[field])
		if !ok {
			continue
		}

		key, err := r.session.Key()
		if err != nil {
			return nil, err
		}

		plain, err := crypto.DecryptField(enc, key)
		if err != nil {
			return nil, err
		}
		out[field] = json.RawMessage(plain)
	}

	return out, nil
}

func asEncryptedField(raw json.RawMessage) (models.EncryptedField, bool) {
	if len(raw) == 0 || raw[0] != '{' {
		return models.EncryptedField{}, false
	}

	var shape map[string]json.RawMessage
	if err := json.Unmarshal(raw, &shape); err != nil || len(shape) != 2 {
		return models.EncryptedField{}, false
	}

	var enc models.EncryptedField
	if err := json.Unmarshal(raw, &enc); err != nil {
		return models.EncryptedField{}, false
	}
	if len(enc.Ciphertext) == 0 || len(enc.Nonce) == 0 {
		return models.EncryptedField{}, false
	}

	return enc, true
}
