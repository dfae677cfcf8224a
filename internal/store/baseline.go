package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/invitetrack/internal/invite"
)

// upsertBaselineSQL keeps an existing creator_id/created_at (first write wins)
// and always takes the newest uses/updated_at.
const upsertBaselineSQL = `
	INSERT INTO invite_baseline (community_id, code, uses, creator_id, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(community_id, code) DO UPDATE SET
		uses       = excluded.uses,
		creator_id = COALESCE(invite_baseline.creator_id, excluded.creator_id),
		created_at = COALESCE(invite_baseline.created_at, excluded.created_at),
		updated_at = excluded.updated_at
`

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// UpsertBaseline writes a single baseline row.
//
// Re-applying the same row is a no-op apart from updated_at. A stored
// creator_id or created_at is never replaced by a later value.
func (s *Store) UpsertBaseline(ctx context.Context, b invite.Baseline) error {
	if err := upsertBaseline(ctx, s.db, b); err != nil {
		return fmt.Errorf("upsert baseline: %w", err)
	}
	return nil
}

// UpsertBaselines writes a whole snapshot for one community in a single
// transaction. Each row follows the UpsertBaseline rules.
func (s *Store) UpsertBaselines(ctx context.Context, rows []invite.Baseline) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("upsert baselines: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	for _, b := range rows {
		if err := upsertBaseline(ctx, tx, b); err != nil {
			return fmt.Errorf("upsert baselines: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("upsert baselines: commit: %w", err)
	}
	return nil
}

func upsertBaseline(ctx context.Context, ex execer, b invite.Baseline) error {
	if b.CommunityID == "" || b.Code == "" {
		return fmt.Errorf("community id and code are required (community=%q code=%q)", b.CommunityID, b.Code)
	}
	uses := b.Uses
	if uses < 0 {
		uses = 0
	}
	_, err := ex.ExecContext(ctx, upsertBaselineSQL,
		b.CommunityID,
		b.Code,
		uses,
		nullString(b.CreatorID),
		nullTime(b.CreatedAt),
		formatTime(b.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("code %s: %w", b.Code, err)
	}
	return nil
}

// ClaimCreator records creatorID as the authoritative creator of a code,
// replacing whatever a snapshot stored before. Later snapshots keep the
// claimed value because of the first-write-wins rule.
//
// If the row does not exist yet it is created with the given uses.
func (s *Store) ClaimCreator(ctx context.Context, b invite.Baseline) error {
	if b.CommunityID == "" || b.Code == "" || b.CreatorID == "" {
		return fmt.Errorf("claim creator: community id, code and creator are required")
	}
	uses := b.Uses
	if uses < 0 {
		uses = 0
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO invite_baseline (community_id, code, uses, creator_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(community_id, code) DO UPDATE SET
			creator_id = excluded.creator_id,
			created_at = COALESCE(invite_baseline.created_at, excluded.created_at),
			updated_at = excluded.updated_at
	`,
		b.CommunityID,
		b.Code,
		uses,
		b.CreatorID,
		nullTime(b.CreatedAt),
		formatTime(b.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("claim creator: %w", err)
	}
	return nil
}

// ListBaselines returns every stored row for a community ordered by code.
//
// Returns an empty slice (not nil) if the community has no rows.
func (s *Store) ListBaselines(ctx context.Context, communityID string) ([]invite.Baseline, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT community_id, code, uses, creator_id, created_at, updated_at
		FROM invite_baseline
		WHERE community_id = ?
		ORDER BY code COLLATE BINARY ASC
	`, communityID)
	if err != nil {
		return nil, fmt.Errorf("query baselines: %w", err)
	}
	defer rows.Close()

	out := []invite.Baseline{}
	for rows.Next() {
		b, err := scanBaseline(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate baselines: %w", err)
	}
	return out, nil
}

// ReadBaselines returns the stored baseline for a community keyed by code.
// This is the "before" side of an attribution diff.
func (s *Store) ReadBaselines(ctx context.Context, communityID string) (map[string]invite.Baseline, error) {
	list, err := s.ListBaselines(ctx, communityID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]invite.Baseline, len(list))
	for _, b := range list {
		out[b.Code] = b
	}
	return out, nil
}

// ListCommunities returns every community with at least one baseline row.
func (s *Store) ListCommunities(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT community_id FROM invite_baseline
		ORDER BY community_id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query communities: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan community: %w", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate communities: %w", err)
	}
	return out, nil
}

func scanBaseline(rows *sql.Rows) (invite.Baseline, error) {
	var (
		b         invite.Baseline
		creatorID sql.NullString
		createdAt sql.NullString
		updatedAt sql.NullString
	)
	if err := rows.Scan(&b.CommunityID, &b.Code, &b.Uses, &creatorID, &createdAt, &updatedAt); err != nil {
		return invite.Baseline{}, fmt.Errorf("scan baseline: %w", err)
	}
	b.CreatorID = creatorID.String

	var err error
	if b.CreatedAt, err = parseTime(createdAt); err != nil {
		return invite.Baseline{}, fmt.Errorf("scan baseline %s: %w", b.Code, err)
	}
	if b.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return invite.Baseline{}, fmt.Errorf("scan baseline %s: %w", b.Code, err)
	}
	return b, nil
}
