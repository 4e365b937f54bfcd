package store

import (
	"context"

	"github.com/sanathsadiga/jobautomate/internal/model"
)

// NopStore is a no-op store used in dry-run mode. Nothing is written, so
// every storable posting counts as newly inserted.
type NopStore struct{}

var _ model.JobStore = (*NopStore)(nil)

func NewNopStore() *NopStore { return &NopStore{} }

func (s *NopStore) Upsert(_ context.Context, postings []model.Posting) (model.UpsertResult, error) {
	var res model.UpsertResult
	for _, p := range postings {
		if !p.Storable() {
			res.Skipped++
			continue
		}
		res.Stored++
		res.Inserted = append(res.Inserted, p.ApplyURL)
	}
	return res, nil
}

func (s *NopStore) List(context.Context, model.ListFilter) ([]model.StoredJob, error) {
	return []model.StoredJob{}, nil
}

func (s *NopStore) Ping(context.Context) error { return nil }
func (s *NopStore) Close() error               { return nil }
