package store

import (
	"context"
	"database/sql"
	"fmt"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/invitetrack/internal/invite"
)

// WriteJoin appends one row to the join log and returns its id.
//
// A nil Attribution is stored as NULL attribution columns. Rows are never
// updated after insert; there is no idempotency key, so callers must invoke
// WriteJoin exactly once per join.
func (s *Store) WriteJoin(ctx context.Context, rec invite.JoinRecord) (int64, error) {
	if rec.CommunityID == "" || rec.MemberID == "" {
		return 0, fmt.Errorf("write join: community id and member id are required")
	}
	if rec.JoinedAt.IsZero() {
		return 0, fmt.Errorf("write join: joined_at is required")
	}

	var (
		code       sql.NullString
		inviterID  sql.NullString
		usesBefore sql.NullInt64
		usesAfter  sql.NullInt64
	)
	if a := rec.Attribution; a != nil {
		code = sql.NullString{String: a.Code, Valid: true}
		inviterID = nullString(a.InviterID)
		usesBefore = sql.NullInt64{Int64: int64(a.UsesBefore), Valid: true}
		usesAfter = sql.NullInt64{Int64: int64(a.UsesAfter), Valid: true}
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO invite_join_log
		(community_id, member_id, member_display, joined_at, invite_code, inviter_id, uses_before, uses_after, attempt_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.CommunityID,
		rec.MemberID,
		nullString(norm.NFC.String(rec.MemberDisplay)),
		formatTime(rec.JoinedAt),
		code,
		inviterID,
		usesBefore,
		usesAfter,
		rec.AttemptID,
	)
	if err != nil {
		return 0, fmt.Errorf("write join: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("write join: last insert id: %w", err)
	}
	return id, nil
}

// ReadJoins returns the most recent join records for a community, newest
// first. A limit <= 0 returns every row.
func (s *Store) ReadJoins(ctx context.Context, communityID string, limit int) ([]invite.JoinRecord, error) {
	if limit <= 0 {
		limit = -1 // SQLite: negative LIMIT means no limit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, community_id, member_id, member_display, joined_at,
		       invite_code, inviter_id, uses_before, uses_after, attempt_id
		FROM invite_join_log
		WHERE community_id = ?
		ORDER BY id DESC
		LIMIT ?
	`, communityID, limit)
	if err != nil {
		return nil, fmt.Errorf("query joins: %w", err)
	}
	defer rows.Close()

	out := []invite.JoinRecord{}
	for rows.Next() {
		rec, err := scanJoin(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate joins: %w", err)
	}
	return out, nil
}

// CountJoins returns the number of join records for a community.
func (s *Store) CountJoins(ctx context.Context, communityID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM invite_join_log WHERE community_id = ?
	`, communityID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count joins: %w", err)
	}
	return count, nil
}

func scanJoin(rows *sql.Rows) (invite.JoinRecord, error) {
	var (
		rec        invite.JoinRecord
		display    sql.NullString
		joinedAt   sql.NullString
		code       sql.NullString
		inviterID  sql.NullString
		usesBefore sql.NullInt64
		usesAfter  sql.NullInt64
	)
	err := rows.Scan(
		&rec.ID, &rec.CommunityID, &rec.MemberID, &display, &joinedAt,
		&code, &inviterID, &usesBefore, &usesAfter, &rec.AttemptID,
	)
	if err != nil {
		return invite.JoinRecord{}, fmt.Errorf("scan join: %w", err)
	}
	rec.MemberDisplay = display.String

	if rec.JoinedAt, err = parseTime(joinedAt); err != nil {
		return invite.JoinRecord{}, fmt.Errorf("scan join %d: %w", rec.ID, err)
	}

	if code.Valid {
		rec.Attribution = &invite.Attribution{
			Code:       code.String,
			InviterID:  inviterID.String,
			UsesBefore: int(usesBefore.Int64),
			UsesAfter:  int(usesAfter.Int64),
		}
	}
	return rec, nil
}
