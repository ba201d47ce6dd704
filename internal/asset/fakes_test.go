package asset

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/assetvault/service/internal/apperr"
	"github.com/assetvault/service/internal/optimizer"
	"github.com/assetvault/service/internal/reconcile"
	"github.com/assetvault/service/internal/storage"
)

const testEndpoint = "https://oss.example.com"

var fixedNow = time.Date(2026, 10, 15, 12, 30, 0, 0, time.UTC)

// memStore is an in-memory Store.
type memStore struct {
	mu        sync.Mutex
	records   []Asset
	createErr error
	statsErr  error
	stats     *Stats
	gets      int
	since     time.Time
}

func (s *memStore) Create(_ context.Context, in NewAsset) (*Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return nil, s.createErr
	}
	for _, r := range s.records {
		if r.ObjectKey == in.ObjectKey {
			return nil, ErrDuplicateKey
		}
	}
	created := fixedNow.Add(time.Duration(len(s.records)) * time.Minute)
	a := Asset{
		ID:               int64(len(s.records) + 1),
		OriginalFilename: in.OriginalFilename,
		Bucket:           in.Bucket,
		ObjectKey:        in.ObjectKey,
		PublicURL:        in.PublicURL,
		SizeBytes:        in.SizeBytes,
		Width:            in.Width,
		Height:           in.Height,
		Format:           in.Format.OrBinary(),
		Tags:             in.Tags,
		CreatedAt:        created,
		UpdatedAt:        created,
	}
	s.records = append(s.records, a)
	return &a, nil
}

func (s *memStore) GetByID(_ context.Context, id int64) (*Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	for _, r := range s.records {
		if r.ID == id {
			return &r, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (s *memStore) List(_ context.Context, q ListQuery) (*ListResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var items []Asset
	for _, r := range s.records {
		if q.Bucket != "" && r.Bucket != q.Bucket {
			continue
		}
		if q.Tag != "" && !slices.Contains(r.Tags, q.Tag) {
			continue
		}
		if q.Format != "" && string(r.Format) != q.Format {
			continue
		}
		items = append(items, r)
	}
	sort.SliceStable(items, func(i, j int) bool {
		if q.Ascending {
			return items[i].CreatedAt.Before(items[j].CreatedAt)
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})

	total := int64(len(items))
	start := min(q.Offset(), len(items))
	end := min(start+q.Size, len(items))
	return &ListResult{Total: total, Page: q.Page, Size: q.Size, Items: items[start:end]}, nil
}

func (s *memStore) Stats(_ context.Context, since time.Time) (*Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.since = since
	if s.statsErr != nil {
		return nil, s.statsErr
	}
	if s.stats != nil {
		c := *s.stats
		return &c, nil
	}
	return &Stats{ByFormat: map[string]int64{}, ByBucket: map[string]int64{}}, nil
}

func (s *memStore) HasRecord(_ context.Context, bucket, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.Bucket == bucket && r.ObjectKey == key {
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// stubOptimizer records its input and returns a canned result.
type stubOptimizer struct {
	calls  int
	opts   optimizer.Options
	result optimizer.Result
	err    error
}

func (o *stubOptimizer) Optimize(_ context.Context, data []byte, opts optimizer.Options) (optimizer.Result, error) {
	o.calls++
	o.opts = opts
	if o.err != nil {
		return optimizer.Result{}, o.err
	}
	res := o.result
	if res.Data == nil {
		res.Data = data
	}
	return res, nil
}

// failingStorage rejects every Put.
type failingStorage struct {
	*storage.MemoryStorage
	err error
}

func (s *failingStorage) Put(context.Context, string, string, io.Reader, int64, string) error {
	return s.err
}

type fixture struct {
	svc     *Service
	storage *storage.MemoryStorage
	store   *memStore
	orphans *reconcile.MemoryQueue
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newFixture builds a Service over in-memory dependencies. The default
// policy allows any bucket and falls back to "common".
func newFixture(t *testing.T, customize ...func(*Options)) *fixture {
	t.Helper()
	f := &fixture{
		storage: storage.NewMemoryStorage(testEndpoint),
		store:   &memStore{},
		orphans: reconcile.NewMemoryQueue(8),
	}
	opts := Options{
		Policy:    BucketPolicy{Default: "common"},
		Optimizer: optimizer.Passthrough{},
		Storage:   f.storage,
		Store:     f.store,
		Orphans:   f.orphans,
		Logger:    discardLogger(),
		Now:       func() time.Time { return fixedNow },
	}
	for _, c := range customize {
		c(&opts)
	}
	f.svc = NewService(opts)
	return f
}
