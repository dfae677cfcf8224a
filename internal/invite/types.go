package invite

import "time"

// Invite is one invitation code as reported live by the platform.
type Invite struct {
	Code      string
	Uses      int
	CreatorID string    // empty when the platform reports no inviter (e.g. vanity URL)
	CreatedAt time.Time // zero when unknown
}

// Baseline is the last observed state of a code, keyed by (CommunityID, Code).
//
// CreatorID and CreatedAt are first-write-wins: once stored, a later snapshot
// never replaces them. Uses and UpdatedAt are always overwritten.
type Baseline struct {
	CommunityID string
	Code        string
	Uses        int
	CreatorID   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// BaselineFromInvite converts a live invite into the row a snapshot writes.
func BaselineFromInvite(communityID string, inv Invite, now time.Time) Baseline {
	uses := inv.Uses
	if uses < 0 {
		uses = 0
	}
	return Baseline{
		CommunityID: communityID,
		Code:        inv.Code,
		Uses:        uses,
		CreatorID:   inv.CreatorID,
		CreatedAt:   inv.CreatedAt,
		UpdatedAt:   now,
	}
}

// Attribution is the engine's best guess at which code a join used.
type Attribution struct {
	Code       string `json:"code"`
	InviterID  string `json:"inviter_id,omitempty"`
	UsesBefore int    `json:"uses_before"`
	UsesAfter  int    `json:"uses_after"`
}

// Delta returns the counter increase that selected this code.
func (a Attribution) Delta() int {
	return a.UsesAfter - a.UsesBefore
}

// JoinRecord is one append-only row of the join log.
//
// Attribution is nil when the join could not be attributed; the store maps
// that to NULL attribution columns.
type JoinRecord struct {
	ID            int64
	CommunityID   string
	MemberID      string
	MemberDisplay string
	JoinedAt      time.Time
	AttemptID     string
	Attribution   *Attribution
}

// Attributed reports whether the record carries an attribution.
func (r JoinRecord) Attributed() bool {
	return r.Attribution != nil
}
