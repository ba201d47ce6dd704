package asset

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/assetvault/service/internal/apperr"
	"github.com/assetvault/service/internal/media"
)

// ErrDuplicateKey is returned when an object key is already recorded.
var ErrDuplicateKey = errors.New("object key already recorded")

const assetColumns = `id, original_filename, bucket, object_key, public_url, size_bytes,
	width, height, format, tags, created_at, updated_at`

// Repository handles all asset database operations.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository with the given connection pool.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Create inserts a record and returns it with id and timestamps filled in.
func (r *Repository) Create(ctx context.Context, in NewAsset) (*Asset, error) {
	tags := in.Tags
	if tags == nil {
		tags = []string{}
	}
	rows, err := r.db.Query(ctx,
		`INSERT INTO assets (original_filename, bucket, object_key, public_url, size_bytes, width, height, format, tags)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING `+assetColumns,
		in.OriginalFilename, in.Bucket, in.ObjectKey, in.PublicURL, in.SizeBytes,
		in.Width, in.Height, string(in.Format.OrBinary()), tags,
	)
	var a Asset
	if err == nil {
		a, err = pgx.CollectExactlyOneRow(rows, scanAsset)
	}
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateKey
		}
		return nil, fmt.Errorf("create asset: %w", err)
	}
	return &a, nil
}

// GetByID fetches a record by id.
func (r *Repository) GetByID(ctx context.Context, id int64) (*Asset, error) {
	rows, err := r.db.Query(ctx, `SELECT `+assetColumns+` FROM assets WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get asset by id: %w", err)
	}
	a, err := pgx.CollectExactlyOneRow(rows, scanAsset)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get asset by id: %w", err)
	}
	return &a, nil
}

// HasRecord reports whether a record references bucket/key.
func (r *Repository) HasRecord(ctx context.Context, bucket, key string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM assets WHERE bucket = $1 AND object_key = $2)`,
		bucket, key,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check asset record: %w", err)
	}
	return exists, nil
}

// List returns one page of records matching q, ordered by creation time.
func (r *Repository) List(ctx context.Context, q ListQuery) (*ListResult, error) {
	where, args := listFilter(q)

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM assets`+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count assets: %w", err)
	}

	order := "DESC"
	if q.Ascending {
		order = "ASC"
	}
	args = append(args, q.Size, q.Offset())
	rows, err := r.db.Query(ctx,
		fmt.Sprintf(`SELECT %s FROM assets%s ORDER BY created_at %s, id %s LIMIT $%d OFFSET $%d`,
			assetColumns, where, order, order, len(args)-1, len(args)),
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	items, err := pgx.CollectRows(rows, scanAsset)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}

	return &ListResult{Total: total, Page: q.Page, Size: q.Size, Items: items}, nil
}

// Stats aggregates totals, per format and bucket counts, and daily upload
// counts (UTC) since the given time.
func (r *Repository) Stats(ctx context.Context, since time.Time) (*Stats, error) {
	s := &Stats{ByFormat: map[string]int64{}, ByBucket: map[string]int64{}}

	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(size_bytes), 0)::BIGINT FROM assets`,
	).Scan(&s.TotalImages, &s.TotalSizeBytes)
	if err != nil {
		return nil, fmt.Errorf("stats totals: %w", err)
	}

	if err := r.countBy(ctx, `SELECT format, COUNT(*) FROM assets GROUP BY format`, s.ByFormat); err != nil {
		return nil, fmt.Errorf("stats by format: %w", err)
	}
	if err := r.countBy(ctx, `SELECT bucket, COUNT(*) FROM assets GROUP BY bucket`, s.ByBucket); err != nil {
		return nil, fmt.Errorf("stats by bucket: %w", err)
	}

	rows, err := r.db.Query(ctx,
		`SELECT to_char((created_at AT TIME ZONE 'UTC')::date, 'YYYY-MM-DD') AS day, COUNT(*)
		 FROM assets
		 WHERE created_at >= $1
		 GROUP BY day
		 ORDER BY day`,
		since,
	)
	if err != nil {
		return nil, fmt.Errorf("stats by day: %w", err)
	}
	s.UploadsByDay, err = pgx.CollectRows(rows, pgx.RowToStructByPos[DayCount])
	if err != nil {
		return nil, fmt.Errorf("stats by day: %w", err)
	}
	return s, nil
}

func (r *Repository) countBy(ctx context.Context, sql string, into map[string]int64) error {
	rows, err := r.db.Query(ctx, sql)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			name  string
			count int64
		)
		if err := rows.Scan(&name, &count); err != nil {
			return err
		}
		if name == "" {
			name = "unknown"
		}
		into[name] = count
	}
	return rows.Err()
}

// listFilter builds the WHERE clause for q. A canonical format filter is
// normalized; anything else is matched verbatim.
func listFilter(q ListQuery) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if q.Bucket != "" {
		args = append(args, q.Bucket)
		conds = append(conds, fmt.Sprintf("bucket = $%d", len(args)))
	}
	if q.Tag != "" {
		args = append(args, q.Tag)
		conds = append(conds, fmt.Sprintf("$%d = ANY(tags)", len(args)))
	}
	if q.Format != "" {
		f := q.Format
		if n, ok := media.Normalize(f); ok {
			f = string(n)
		}
		args = append(args, f)
		conds = append(conds, fmt.Sprintf("format = $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func scanAsset(row pgx.CollectableRow) (Asset, error) {
	var (
		a      Asset
		format string
	)
	err := row.Scan(&a.ID, &a.OriginalFilename, &a.Bucket, &a.ObjectKey, &a.PublicURL, &a.SizeBytes,
		&a.Width, &a.Height, &format, &a.Tags, &a.CreatedAt, &a.UpdatedAt)
	if a.Tags == nil {
		a.Tags = []string{}
	}
	a.Format = media.Format(format)
	return a, err
}

// isUniqueViolation checks whether an error is a PostgreSQL unique_violation (code 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
