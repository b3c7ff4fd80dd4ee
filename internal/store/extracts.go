package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/MikeSquared-Agency/chatreport/internal/analyzer"
)

const (
	// MaxKeyInsights caps the recommendations stored with an extract.
	MaxKeyInsights = 5
	// RecentLimit caps the cross-project summary listing.
	RecentLimit = 50
)

// ErrNotFound is returned when an update names an unknown extract.
var ErrNotFound = errors.New("extract not found")

// Extract is one persisted analysis of a chat.
type Extract struct {
	ID                 uuid.UUID `json:"id"`
	ChatName           string    `json:"chat_name"`
	AnalysisDate       time.Time `json:"analysis_date"`
	Summary            string    `json:"summary"`
	Milestones         []string  `json:"milestones"`
	ProgressPercentage float64   `json:"progress_percentage"`
	KeyInsights        []string  `json:"key_insights"`
	CreatedAt          time.Time `json:"created_at"`
}

// ProjectSummary is the short listing row for one extract.
type ProjectSummary struct {
	ChatName           string    `json:"chat_name"`
	AnalysisDate       time.Time `json:"analysis_date"`
	ProgressPercentage float64   `json:"progress_percentage"`
	Summary            string    `json:"summary"`
}

// NewExtract derives the persisted record from an analysis.
func NewExtract(chatName string, a *analyzer.Analysis, now time.Time) Extract {
	insights := a.Recommendations
	if len(insights) > MaxKeyInsights {
		insights = insights[:MaxKeyInsights]
	}
	return Extract{
		ID:                 uuid.New(),
		ChatName:           chatName,
		AnalysisDate:       now,
		Summary:            a.Summary,
		Milestones:         nonNil(a.KeyMilestones),
		ProgressPercentage: ProgressPercentage(a),
		KeyInsights:        nonNil(insights),
		CreatedAt:          now,
	}
}

// ProgressPercentage scores an analysis: 15 points per milestone up to 60,
// 10 per indicator up to 30, minus 5 per challenge up to 20, within [0,100].
func ProgressPercentage(a *analyzer.Analysis) float64 {
	score := min(len(a.KeyMilestones)*15, 60) +
		min(len(a.ProgressIndicators)*10, 30) -
		min(len(a.Challenges)*5, 20)
	return float64(max(0, min(100, score)))
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// SaveExtract inserts e and returns its id.
func (s *Store) SaveExtract(ctx context.Context, e Extract) (uuid.UUID, error) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO project_extracts (id, chat_name, analysis_date, summary, milestones, progress_percentage, key_insights, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.ChatName, e.AnalysisDate, e.Summary, nonNil(e.Milestones), e.ProgressPercentage, nonNil(e.KeyInsights), e.CreatedAt,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert extract: %w", err)
	}
	return e.ID, nil
}

// History returns every extract of one chat, newest first.
func (s *Store) History(ctx context.Context, chatName string) ([]Extract, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, chat_name, analysis_date, summary, milestones, progress_percentage, key_insights, created_at
		FROM project_extracts
		WHERE chat_name = $1
		ORDER BY created_at DESC`, chatName)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	out := []Extract{}
	for rows.Next() {
		var e Extract
		if err := rows.Scan(&e.ID, &e.ChatName, &e.AnalysisDate, &e.Summary, &e.Milestones, &e.ProgressPercentage, &e.KeyInsights, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan extract: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Recent lists the latest extracts across all chats, at most RecentLimit.
func (s *Store) Recent(ctx context.Context) ([]ProjectSummary, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT chat_name, analysis_date, progress_percentage, summary
		FROM project_extracts
		ORDER BY analysis_date DESC
		LIMIT $1`, RecentLimit)
	if err != nil {
		return nil, fmt.Errorf("query recent: %w", err)
	}
	defer rows.Close()

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (ProjectSummary, error) {
		var p ProjectSummary
		err := row.Scan(&p.ChatName, &p.AnalysisDate, &p.ProgressPercentage, &p.Summary)
		return p, err
	})
}

// UpdateProgress replaces the score and insights of an extract and bumps its
// analysis date.
func (s *Store) UpdateProgress(ctx context.Context, id uuid.UUID, progress float64, insights []string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE project_extracts
		SET progress_percentage = $1, key_insights = $2, analysis_date = now()
		WHERE id = $3`,
		progress, nonNil(insights), id,
	)
	if err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteOlderThan removes extracts created more than days ago and returns
// how many were deleted.
func (s *Store) DeleteOlderThan(ctx context.Context, days int) (int64, error) {
	if days <= 0 {
		return 0, fmt.Errorf("delete old extracts: days must be positive, got %d", days)
	}
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM project_extracts
		WHERE created_at < now() - make_interval(days => $1)`, days)
	if err != nil {
		return 0, fmt.Errorf("delete old extracts: %w", err)
	}
	return tag.RowsAffected(), nil
}
