package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/MKhiriev/reflog-sync/internal/store"
	"github.com/MKhiriev/reflog-sync/internal/utils"
	"github.com/MKhiriev/reflog-sync/models"
)

type entryService struct {
	records store.Repository
	ids     *utils.UUIDGenerator
	now     func() time.Time
}

// NewEntryService works on the decorated repository, so every write is
// encrypted at rest and queued for sync.
func NewEntryService(records store.Repository) EntryService {
	return &entryService{records: records, ids: utils.NewUUIDGenerator(), now: time.Now}
}

func (s *entryService) Create(ctx context.Context, title, body string, tags []string) (models.Entry, error) {
	if tags == nil {
		tags = []string{}
	}

	now := s.now().UTC()
	entry := models.Entry{
		ID:        s.ids.Generate(),
		Title:     title,
		Body:      body,
		Tags:      tags,
		Status:    models.EntryStatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.put(ctx, entry); err != nil {
		return models.Entry{}, fmt.Errorf("create entry: %w", err)
	}
	return entry, nil
}

// Update stamps entry with a fresh updatedAt, always later than the stored
// one, so the edit wins last-write-wins on other devices.
func (s *entryService) Update(ctx context.Context, entry models.Entry) (models.Entry, error) {
	current, err := s.Get(ctx, entry.ID)
	if err != nil {
		return models.Entry{}, err
	}

	now := s.now().UTC()
	if !now.After(current.UpdatedAt) {
		now = current.UpdatedAt.Add(time.Millisecond)
	}
	entry.CreatedAt = current.CreatedAt
	entry.UpdatedAt = now
	if entry.Tags == nil {
		entry.Tags = []string{}
	}
	if entry.Status == "" {
		entry.Status = current.Status
	}

	if err = s.put(ctx, entry); err != nil {
		return models.Entry{}, fmt.Errorf("update entry: %w", err)
	}
	return entry, nil
}

func (s *entryService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.records.Delete(ctx, models.TableEntries, id); err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return nil
}

func (s *entryService) Get(ctx context.Context, id string) (models.Entry, error) {
	doc, err := s.records.Get(ctx, models.TableEntries, id)
	if errors.Is(err, store.ErrRecordNotFound) {
		return models.Entry{}, ErrEntryNotFound
	}
	if err != nil {
		return models.Entry{}, fmt.Errorf("get entry: %w", err)
	}

	var entry models.Entry
	if err = doc.Decode(&entry); err != nil {
		return models.Entry{}, fmt.Errorf("decode entry %s: %w", id, err)
	}
	return entry, nil
}

// List returns every entry, most recently updated first.
func (s *entryService) List(ctx context.Context) ([]models.Entry, error) {
	docs, err := s.records.Query(ctx, models.TableEntries)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}

	entries := make([]models.Entry, 0, len(docs))
	for _, doc := range docs {
		var entry models.Entry
		if err = doc.Decode(&entry); err != nil {
			return nil, fmt.Errorf("decode entry %s: %w", doc.ID(), err)
		}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].UpdatedAt.After(entries[j].UpdatedAt)
	})
	return entries, nil
}

func (s *entryService) put(ctx context.Context, entry models.Entry) error {
	doc, err := models.NewDocument(entry)
	if err != nil {
		return err
	}
	return s.records.Put(ctx, models.TableEntries, doc)
}
