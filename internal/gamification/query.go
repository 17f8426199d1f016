package gamification

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"

	"github.com/coachlab/coach-api/internal/models"
	"gorm.io/gorm"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type Summary struct {
	StreakDays     int               `json:"streak_days"`
	TotalPoints    int64             `json:"total_points"`
	Achievements   []AchievementCode `json:"achievements"`
	LastCheckinDay string            `json:"last_checkin_day,omitempty"`
}

type PageRequest struct {
	Take   int
	Cursor string
}

type PointsPage struct {
	Items      []models.PointsLedgerEntry `json:"items"`
	NextCursor string                     `json:"next_cursor,omitempty"`
}

// Query is the read side. It never writes.
type Query struct {
	db *gorm.DB
}

func NewQuery(db *gorm.DB) *Query {
	return &Query{db: db}
}

// Summary reads streak, total and achievements in one transaction so the
// three agree with each other.
func (q *Query) Summary(ctx context.Context, userID uint) (*Summary, error) {
	if userID == 0 {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}

	summary := &Summary{Achievements: []AchievementCode{}}
	err := q.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		streak, err := NewStreaks(tx).Get(ctx, userID)
		if err != nil {
			return fmt.Errorf("load streak: %w", err)
		}
		if streak != nil {
			summary.StreakDays = streak.CurrentDays
			if streak.LastCountedDay != nil {
				summary.LastCheckinDay = FormatDay(dateOf(*streak.LastCountedDay))
			}
		}

		summary.TotalPoints, err = NewLedger(tx).TotalPoints(ctx, userID)
		if err != nil {
			return fmt.Errorf("sum points: %w", err)
		}

		unlocks, err := NewRegistry(tx).List(ctx, userID)
		if err != nil {
			return fmt.Errorf("list achievements: %w", err)
		}
		for _, u := range unlocks {
			summary.Achievements = append(summary.Achievements, AchievementCode(u.AchievementCode))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("gamification: summary of user %d: %w", userID, err)
	}
	return summary, nil
}

// ListPoints pages through the ledger newest first. Entries appended after a
// cursor was handed out have larger ids and never show up behind it.
func (q *Query) ListPoints(ctx context.Context, userID uint, req PageRequest) (*PointsPage, error) {
	if userID == 0 {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	take := req.Take
	if take == 0 {
		take = DefaultPageSize
	}
	if take < 1 || take > MaxPageSize {
		return nil, fmt.Errorf("%w: take must be between 1 and %d", ErrInvalidInput, MaxPageSize)
	}
	var before uint
	if req.Cursor != "" {
		id, err := DecodeCursor(req.Cursor)
		if err != nil {
			return nil, err
		}
		before = id
	}

	// One extra row tells whether there is a next page.
	entries, err := NewLedger(q.db).Before(ctx, userID, before, take+1)
	if err != nil {
		return nil, fmt.Errorf("gamification: list points of user %d: %w", userID, err)
	}

	page := &PointsPage{Items: entries}
	if len(entries) > take {
		page.Items = entries[:take]
		page.NextCursor = EncodeCursor(page.Items[take-1].ID)
	}
	return page, nil
}

func EncodeCursor(id uint) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.FormatUint(uint64(id), 10)))
}

func DecodeCursor(cursor string) (uint, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return 0, fmt.Errorf("%w: malformed cursor", ErrInvalidInput)
	}
	id, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: malformed cursor", ErrInvalidInput)
	}
	return uint(id), nil
}
