package asset

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assetvault/service/internal/apperr"
	"github.com/assetvault/service/internal/media"
	"github.com/assetvault/service/internal/optimizer"
	"github.com/assetvault/service/internal/testsupport"
)

func ptr(v int) *int { return &v }

func TestUploadPassthroughPNG(t *testing.T) {
	f := newFixture(t)
	data := testsupport.PNG(t, 40, 30)

	a, err := f.svc.Upload(context.Background(), UploadInput{Filename: "photo.png", Data: data, Tags: "banner, home"})
	require.NoError(t, err)

	assert.Equal(t, media.PNG, a.Format)
	assert.Equal(t, int64(len(data)), a.SizeBytes)
	assert.Equal(t, "common", a.Bucket)
	assert.Equal(t, "photo.png", a.OriginalFilename)
	assert.Equal(t, []string{"banner", "home"}, a.Tags)
	assert.Regexp(t, `^uploads/[0-9a-f]{32}\.png$`, a.ObjectKey)
	require.NotNil(t, a.Width)
	require.NotNil(t, a.Height)
	assert.Equal(t, 40, *a.Width)
	assert.Equal(t, 30, *a.Height)
	require.NotNil(t, a.PublicURL)
	assert.Equal(t, "https://common.oss.example.com/"+a.ObjectKey, *a.PublicURL)

	obj, ok := f.storage.Object("common", a.ObjectKey)
	require.True(t, ok)
	assert.Equal(t, data, obj.Data, "passthrough must store the input unchanged")
	assert.Equal(t, "image/png", obj.ContentType)
}

func TestUploadPDFIsStoredAsBinary(t *testing.T) {
	f := newFixture(t)

	a, err := f.svc.Upload(context.Background(), UploadInput{Filename: "contract.pdf", Data: testsupport.PDF})
	require.NoError(t, err)

	assert.Equal(t, media.Binary, a.Format)
	assert.Nil(t, a.Width)
	assert.Nil(t, a.Height)
	assert.True(t, strings.HasSuffix(a.ObjectKey, ".pdf"))

	obj, ok := f.storage.Object(a.Bucket, a.ObjectKey)
	require.True(t, ok)
	assert.Equal(t, "application/pdf", obj.ContentType)
}

func TestUploadSniffsExtensionlessImage(t *testing.T) {
	f := newFixture(t)

	a, err := f.svc.Upload(context.Background(), UploadInput{Filename: "blob", Data: testsupport.JPEG(t, 8, 8)})
	require.NoError(t, err)
	assert.Equal(t, media.JPG, a.Format)
	assert.True(t, strings.HasSuffix(a.ObjectKey, ".jpg"))
}

func TestUploadDisallowedBucketFallsBackToDefault(t *testing.T) {
	f := newFixture(t, func(o *Options) {
		o.Policy = BucketPolicy{Allowed: []string{"public"}, Default: "public"}
	})

	a, err := f.svc.Upload(context.Background(), UploadInput{Filename: "photo.png", Data: testsupport.PNG(t, 4, 4), Bucket: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "public", a.Bucket)
}

func TestUploadRejectedBeforeAnyExternalCall(t *testing.T) {
	tests := []struct {
		name    string
		policy  BucketPolicy
		in      UploadInput
		status  int
		message string
	}{
		{
			name:    "no bucket and no default",
			in:      UploadInput{Filename: "photo.png", Data: []byte("x")},
			status:  http.StatusBadRequest,
			message: "no bucket provided and no default configured",
		},
		{
			name:    "empty payload",
			policy:  BucketPolicy{Default: "common"},
			in:      UploadInput{Filename: "photo.png"},
			status:  http.StatusBadRequest,
			message: "uploaded file is empty",
		},
		{
			name:    "bad width",
			policy:  BucketPolicy{Default: "common"},
			in:      UploadInput{Filename: "photo.png", Data: []byte("x"), Width: "wide"},
			status:  http.StatusBadRequest,
			message: "width must be a positive integer",
		},
		{
			name:    "negative height",
			policy:  BucketPolicy{Default: "common"},
			in:      UploadInput{Filename: "photo.png", Data: []byte("x"), Height: "-3"},
			status:  http.StatusBadRequest,
			message: "height must be a positive integer",
		},
		{
			name:    "filename too long",
			policy:  BucketPolicy{Default: "common"},
			in:      UploadInput{Filename: strings.Repeat("a", 252) + ".png", Data: []byte("x")},
			status:  http.StatusBadRequest,
			message: "filename must be at most 255 characters",
		},
		{
			name:    "filename not utf-8",
			policy:  BucketPolicy{Default: "common"},
			in:      UploadInput{Filename: "photo\xff.png", Data: []byte("x")},
			status:  http.StatusBadRequest,
			message: "filename must be valid UTF-8 text",
		},
		{
			name:    "tag with nul byte",
			policy:  BucketPolicy{Default: "common"},
			in:      UploadInput{Filename: "photo.png", Data: []byte("x"), Tags: "home,ba\x00d"},
			status:  http.StatusBadRequest,
			message: "tags must be valid UTF-8 text",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opt := &stubOptimizer{}
			f := newFixture(t, func(o *Options) {
				o.Policy = tt.policy
				o.Optimizer = opt
			})

			_, err := f.svc.Upload(context.Background(), tt.in)
			status, message := apperr.Status(err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.message, message)

			assert.Zero(t, opt.calls)
			assert.Zero(t, f.storage.Len())
			assert.Zero(t, f.store.len())
		})
	}
}

func TestUploadAcceptsMultibyteFilenameAtLimit(t *testing.T) {
	f := newFixture(t)
	name := strings.Repeat("é", MaxFilenameLength-4) + ".png"

	a, err := f.svc.Upload(context.Background(), UploadInput{Filename: name, Data: testsupport.PNG(t, 2, 2)})
	require.NoError(t, err)
	assert.Equal(t, name, a.OriginalFilename)
}

func TestUploadIsNotDeduplicated(t *testing.T) {
	f := newFixture(t)
	in := UploadInput{Filename: "photo.png", Data: testsupport.PNG(t, 4, 4)}

	first, err := f.svc.Upload(context.Background(), in)
	require.NoError(t, err)
	second, err := f.svc.Upload(context.Background(), in)
	require.NoError(t, err)

	assert.NotEqual(t, first.ObjectKey, second.ObjectKey)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, 2, f.storage.Len())
}

func TestUploadTargetFormatWithoutOptimizer(t *testing.T) {
	f := newFixture(t)

	a, err := f.svc.Upload(context.Background(), UploadInput{
		Filename: "photo.png", Data: testsupport.PNG(t, 4, 4), TargetFormat: "JPEG",
	})
	require.NoError(t, err)
	assert.Equal(t, media.JPG, a.Format)
	assert.True(t, strings.HasSuffix(a.ObjectKey, ".jpg"))

	obj, _ := f.storage.Object(a.Bucket, a.ObjectKey)
	assert.Equal(t, "image/jpeg", obj.ContentType)
}

func TestUploadUsesOptimizerResult(t *testing.T) {
	opt := &stubOptimizer{result: optimizer.Result{
		Data:        []byte("optimized"),
		Width:       ptr(10),
		Height:      ptr(5),
		Format:      media.WEBP,
		Transformed: true,
	}}
	f := newFixture(t, func(o *Options) { o.Optimizer = opt })

	a, err := f.svc.Upload(context.Background(), UploadInput{
		Filename:     "photo.png",
		Data:         testsupport.PNG(t, 40, 20),
		Width:        " 10 ",
		Height:       "5",
		TargetFormat: "webp",
	})
	require.NoError(t, err)

	require.Equal(t, 1, opt.calls)
	require.NotNil(t, opt.opts.Width)
	require.NotNil(t, opt.opts.Height)
	assert.Equal(t, 10, *opt.opts.Width)
	assert.Equal(t, 5, *opt.opts.Height)
	assert.Equal(t, media.WEBP, opt.opts.Format)

	assert.Equal(t, media.WEBP, a.Format)
	assert.Equal(t, int64(len("optimized")), a.SizeBytes)
	assert.Equal(t, 10, *a.Width)
	assert.Equal(t, 5, *a.Height)
	assert.True(t, strings.HasSuffix(a.ObjectKey, ".webp"))

	obj, _ := f.storage.Object(a.Bucket, a.ObjectKey)
	assert.Equal(t, []byte("optimized"), obj.Data)
	assert.Equal(t, "image/webp", obj.ContentType)
}

func TestUploadPassesResolvedFormatToOptimizer(t *testing.T) {
	opt := &stubOptimizer{}
	f := newFixture(t, func(o *Options) { o.Optimizer = opt })

	_, err := f.svc.Upload(context.Background(), UploadInput{Filename: "photo.JPEG", Data: testsupport.JPEG(t, 4, 4), TargetFormat: "gif"})
	require.NoError(t, err)
	assert.Equal(t, media.JPG, opt.opts.Format)
	assert.Nil(t, opt.opts.Width)
	assert.Nil(t, opt.opts.Height)
}

func TestUploadOptimizerFailure(t *testing.T) {
	opt := &stubOptimizer{err: &apperr.Upstream{Service: "optimizer", Code: "Unauthorized", Message: "Credentials are invalid"}}
	f := newFixture(t, func(o *Options) { o.Optimizer = opt })

	_, err := f.svc.Upload(context.Background(), UploadInput{Filename: "photo.png", Data: testsupport.PNG(t, 4, 4)})
	status, message := apperr.Status(err)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "optimizer error Unauthorized: Credentials are invalid", message)
	assert.Zero(t, f.storage.Len())
}

func TestUploadStorageFailure(t *testing.T) {
	f := newFixture(t)
	failing := &failingStorage{
		MemoryStorage: f.storage,
		err:           &apperr.Upstream{Service: "storage", Code: "AccessDenied", Message: "Access Denied."},
	}
	f.svc = NewService(Options{
		Policy:  BucketPolicy{Default: "common"},
		Storage: failing,
		Store:   f.store,
		Logger:  discardLogger(),
	})

	_, err := f.svc.Upload(context.Background(), UploadInput{Filename: "photo.png", Data: testsupport.PNG(t, 4, 4)})
	status, message := apperr.Status(err)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "storage error AccessDenied: Access Denied.", message)
	assert.Zero(t, f.store.len())
}

func TestUploadPersistFailureQueuesOrphan(t *testing.T) {
	f := newFixture(t)
	f.store.createErr = errors.New("connection reset")

	ctx, cancel := context.WithCancel(context.Background())
	_, err := f.svc.Upload(ctx, UploadInput{Filename: "photo.png", Data: testsupport.PNG(t, 4, 4)})
	cancel()

	status, message := apperr.Status(err)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal server error", message)

	require.Equal(t, 1, f.orphans.Len())
	d, err := f.orphans.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "common", d.Orphan.Bucket)
	assert.Contains(t, d.Orphan.Reason, "connection reset")
	assert.Equal(t, fixedNow, d.Orphan.At)

	_, stored := f.storage.Object("common", d.Orphan.Key)
	assert.True(t, stored, "object stays until the reconciler deletes it")
}

func TestUploadDuplicateKeyIsNotQueued(t *testing.T) {
	f := newFixture(t)
	f.store.createErr = fmt.Errorf("create asset: %w", ErrDuplicateKey)

	_, err := f.svc.Upload(context.Background(), UploadInput{Filename: "photo.png", Data: testsupport.PNG(t, 4, 4)})

	status, _ := apperr.Status(err)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Zero(t, f.orphans.Len(), "a recorded key must not reach the reconciler")
}

func TestGetNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Get(context.Background(), 42)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestListReturnsEmptyItems(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.List(context.Background(), ListQuery{Page: 1, Size: 20})
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.Total)
	assert.NotNil(t, res.Items)
}

func TestStatsFillsThirtyDays(t *testing.T) {
	f := newFixture(t)
	f.store.stats = &Stats{
		TotalImages:    3,
		TotalSizeBytes: 300,
		ByFormat:       map[string]int64{"png": 2, "bin": 1},
		ByBucket:       map[string]int64{"common": 3},
		UploadsByDay: []DayCount{
			{Date: "2026-09-16", Count: 1},
			{Date: "2026-10-15", Count: 2},
		},
	}

	st, err := f.svc.Stats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, time.Date(2026, 9, 16, 0, 0, 0, 0, time.UTC), f.store.since)
	require.Len(t, st.UploadsByDay, 30)
	assert.Equal(t, DayCount{Date: "2026-09-16", Count: 1}, st.UploadsByDay[0])
	assert.Equal(t, DayCount{Date: "2026-10-01", Count: 0}, st.UploadsByDay[15])
	assert.Equal(t, DayCount{Date: "2026-10-15", Count: 2}, st.UploadsByDay[29])
	assert.Equal(t, int64(3), st.TotalImages)
	assert.Equal(t, map[string]int64{"png": 2, "bin": 1}, st.ByFormat)
}

func TestStatsFailure(t *testing.T) {
	f := newFixture(t)
	f.store.statsErr = errors.New("boom")

	_, err := f.svc.Stats(context.Background())
	status, _ := apperr.Status(err)
	assert.Equal(t, http.StatusInternalServerError, status)
}
