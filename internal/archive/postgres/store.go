// Package postgres provides an optional PostgreSQL archive of committed
// caption segments. The captioning session writes to it fire-and-forget:
// archive failures are logged and counted but never affect segmentation.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrWong99/scriptpace/internal/caption"
)

// schema creates the caption_segments table if it does not exist.
const schema = `
CREATE TABLE IF NOT EXISTS caption_segments (
    id          BIGSERIAL PRIMARY KEY,
    session_id  TEXT        NOT NULL,
    sequence    BIGINT      NOT NULL,
    source_text TEXT        NOT NULL,
    translated  TEXT        NOT NULL DEFAULT '',
    reason      TEXT        NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL,
    UNIQUE (session_id, sequence)
);
CREATE INDEX IF NOT EXISTS caption_segments_session_idx
    ON caption_segments (session_id, sequence);`

// Store persists committed segments to a caption_segments table.
// All methods are safe for concurrent use.
type Store struct {
	pool      *pgxpool.Pool
	sessionID string
}

// New connects to the database at dsn, ensures the schema exists, and
// returns a Store scoped to sessionID.
func New(ctx context.Context, dsn, sessionID string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("archive: connect: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("archive: ensure schema: %w", err)
	}
	return &Store{pool: pool, sessionID: sessionID}, nil
}

// Save implements [caption.Archiver]. It upserts the segment so that a
// retried save after a transient failure does not duplicate rows.
func (s *Store) Save(ctx context.Context, seg caption.Segment) error {
	const q = `
		INSERT INTO caption_segments
		    (session_id, sequence, source_text, translated, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (session_id, sequence) DO UPDATE
		SET translated = EXCLUDED.translated`

	_, err := s.pool.Exec(ctx, q,
		s.sessionID,
		seg.Sequence,
		seg.SourceText,
		seg.TranslatedText,
		string(seg.Reason),
		seg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("archive: save segment %d: %w", seg.Sequence, err)
	}
	return nil
}

// Recent returns up to limit archived segments for this session, newest
// first.
func (s *Store) Recent(ctx context.Context, limit int) ([]caption.Segment, error) {
	const q = `
		SELECT sequence, source_text, translated, reason, created_at
		FROM   caption_segments
		WHERE  session_id = $1
		ORDER  BY sequence DESC
		LIMIT  $2`

	rows, err := s.pool.Query(ctx, q, s.sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("archive: recent: %w", err)
	}
	defer rows.Close()

	var out []caption.Segment
	for rows.Next() {
		var seg caption.Segment
		var reason string
		if err := rows.Scan(&seg.Sequence, &seg.SourceText, &seg.TranslatedText, &reason, &seg.CreatedAt); err != nil {
			return nil, fmt.Errorf("archive: scan: %w", err)
		}
		seg.Reason = caption.Reason(reason)
		out = append(out, seg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("archive: rows: %w", err)
	}
	return out, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Compile-time assertion that Store satisfies caption.Archiver.
var _ caption.Archiver = (*Store)(nil)
