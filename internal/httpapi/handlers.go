package httpapi

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/roach88/invitetrack/internal/engine"
	"github.com/roach88/invitetrack/internal/invite"
)

const (
	defaultJoinLimit = 50
	maxJoinLimit     = 500
)

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

type joinView struct {
	ID            int64               `json:"id"`
	MemberID      string              `json:"member_id"`
	MemberDisplay string              `json:"member_display,omitempty"`
	JoinedAt      time.Time           `json:"joined_at"`
	AttemptID     string              `json:"attempt_id,omitempty"`
	Attribution   *invite.Attribution `json:"attribution"`
}

type baselineView struct {
	Code      string     `json:"code"`
	Uses      int        `json:"uses"`
	CreatorID string     `json:"creator_id,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (s *Server) health(c *gin.Context) {
	if err := s.deps.Store.Ping(c.Request.Context()); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) listJoins(c *gin.Context) {
	limit := defaultJoinLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxJoinLimit {
			c.JSON(http.StatusBadRequest, errorBody{Error: "limit must be between 1 and 500"})
			return
		}
		limit = n
	}

	recs, err := s.deps.Store.ReadJoins(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, errorBody{Error: "read joins failed", Code: string(engine.ErrCodeStorage)})
		return
	}

	out := make([]joinView, 0, len(recs))
	for _, r := range recs {
		out = append(out, joinView{
			ID:            r.ID,
			MemberID:      r.MemberID,
			MemberDisplay: r.MemberDisplay,
			JoinedAt:      r.JoinedAt,
			AttemptID:     r.AttemptID,
			Attribution:   r.Attribution,
		})
	}
	c.JSON(http.StatusOK, gin.H{"community_id": c.Param("id"), "joins": out})
}

func (s *Server) listBaseline(c *gin.Context) {
	rows, err := s.deps.Store.ListBaselines(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, errorBody{Error: "read baseline failed", Code: string(engine.ErrCodeStorage)})
		return
	}

	out := make([]baselineView, 0, len(rows))
	for _, b := range rows {
		v := baselineView{
			Code:      b.Code,
			Uses:      b.Uses,
			CreatorID: b.CreatorID,
			UpdatedAt: b.UpdatedAt,
		}
		if !b.CreatedAt.IsZero() {
			created := b.CreatedAt
			v.CreatedAt = &created
		}
		out = append(out, v)
	}
	c.JSON(http.StatusOK, gin.H{"community_id": c.Param("id"), "codes": out})
}

func (s *Server) snapshot(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	key := "snapshot:" + id

	// A failed snapshot still holds the window.
	if s.deps.Cooldown != nil {
		ok, remaining, err := s.deps.Cooldown.Claim(ctx, key)
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusServiceUnavailable, errorBody{Error: "cooldown unavailable"})
			return
		}
		if !ok {
			s.deps.Metrics.ObserveCooldownRejection()
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(remaining.Seconds()))))
			c.JSON(http.StatusTooManyRequests, errorBody{Error: "snapshot on cooldown"})
			return
		}
	}

	if err := s.deps.Snapshotter.Snapshot(ctx, id); err != nil {
		_ = c.Error(err)
		switch {
		case engine.IsPermissionError(err):
			c.JSON(http.StatusForbidden, errorBody{Error: "missing permission to list invites", Code: string(engine.ErrCodePermissionDenied)})
		case engine.IsStorageError(err):
			c.JSON(http.StatusInternalServerError, errorBody{Error: "baseline write failed", Code: string(engine.ErrCodeStorage)})
		default:
			c.JSON(http.StatusBadGateway, errorBody{Error: "invite list unavailable", Code: string(engine.ErrCodeUnavailable)})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"community_id": id, "status": "ok"})
}
