package gamification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Points for the daily check-in itself; achievement points live in their
// Definition.
const DailyCheckinPoints = 10

// Event is the confirmation that a user checked in. Date may be any instant
// inside the day; the engine reduces it with its Calendar.
type Event struct {
	UserID uint
	Date   time.Time
}

type Result struct {
	StreakDays  int               `json:"streak_days"`
	PointsAdded int               `json:"points_added"`
	Unlocked    []AchievementCode `json:"unlocked"`
}

type Options struct {
	// RejectBackdated turns a check-in for a day before the last counted day
	// into ErrBackdated instead of a streak reset.
	RejectBackdated bool
}

// Engine is the only writer of streak, ledger and achievement state.
type Engine struct {
	db     *gorm.DB
	cal    Calendar
	opts   Options
	logger *zap.Logger
	now    func() time.Time
}

func NewEngine(db *gorm.DB, cal Calendar, logger *zap.Logger, opts Options) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{db: db, cal: cal, opts: opts, logger: logger, now: time.Now}
}

func (e *Engine) Calendar() Calendar {
	return e.cal
}

// OnDailyCheckin runs the whole gamification step for one confirmed
// check-in in a single transaction. Calling it again with the same event
// leaves the state unchanged and reports no points and no unlocks.
func (e *Engine) OnDailyCheckin(ctx context.Context, ev Event) (*Result, error) {
	var res *Result
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		res, err = e.OnDailyCheckinTx(ctx, tx, ev)
		return err
	})
	if err != nil {
		if !errors.Is(err, ErrBackdated) && !errors.Is(err, ErrInvalidInput) {
			e.logger.Warn("gamification transaction rolled back",
				zap.Uint("user_id", ev.UserID),
				zap.Error(err),
			)
		}
		return nil, err
	}
	e.LogResult(ev, res)
	return res, nil
}

// OnDailyCheckinTx is OnDailyCheckin inside a transaction owned by the
// caller, so the check-in that triggers the step commits or rolls back
// together with its rewards.
func (e *Engine) OnDailyCheckinTx(ctx context.Context, tx *gorm.DB, ev Event) (*Result, error) {
	if ev.UserID == 0 {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if ev.Date.IsZero() {
		return nil, fmt.Errorf("%w: date is required", ErrInvalidInput)
	}
	day := e.cal.Day(ev.Date)

	res, err := e.apply(ctx, tx, ev.UserID, day)
	if err != nil {
		return nil, fmt.Errorf("gamification: check-in of user %d on %s: %w", ev.UserID, FormatDay(day), err)
	}
	return res, nil
}

// LogResult records a committed step that awarded points.
func (e *Engine) LogResult(ev Event, res *Result) {
	if res == nil || res.PointsAdded == 0 {
		return
	}
	e.logger.Info("check-in rewarded",
		zap.Uint("user_id", ev.UserID),
		zap.String("day", FormatDay(e.cal.Day(ev.Date))),
		zap.Int("streak_days", res.StreakDays),
		zap.Int("points_added", res.PointsAdded),
		zap.Any("unlocked", res.Unlocked),
	)
}

func (e *Engine) apply(ctx context.Context, tx *gorm.DB, userID uint, day time.Time) (*Result, error) {
	streaks := NewStreaks(tx)
	ledger := NewLedger(tx)
	registry := NewRegistry(tx)
	registry.now = e.now

	row, err := streaks.lockForUpdate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("lock streak: %w", err)
	}
	existing := stateOf(row)
	if e.opts.RejectBackdated && existing != nil && day.Before(existing.LastCountedDay) {
		return nil, ErrBackdated
	}

	next := ComputeNext(existing, day)
	row.CurrentDays = next.NewDays
	row.LastCountedDay = &day
	if err := streaks.save(ctx, row); err != nil {
		return nil, fmt.Errorf("save streak: %w", err)
	}

	res := &Result{StreakDays: next.NewDays, Unlocked: []AchievementCode{}}
	if !next.IsNewDayForUser {
		return res, nil
	}

	award := func(delta int, reason Reason, meta map[string]any) error {
		if _, err := ledger.Append(ctx, userID, delta, reason, meta); err != nil {
			return fmt.Errorf("append %s: %w", reason, err)
		}
		res.PointsAdded += delta
		return nil
	}
	unlock := func(code AchievementCode, meta map[string]any) error {
		def, ok := code.Definition()
		if !ok {
			return fmt.Errorf("%w: unknown achievement %q", ErrInvalidInput, code)
		}
		already, err := registry.Unlock(ctx, userID, code)
		if err != nil {
			return fmt.Errorf("unlock %s: %w", code, err)
		}
		if already {
			return nil
		}
		res.Unlocked = append(res.Unlocked, code)
		return award(def.Points, def.Reason, meta)
	}

	date := FormatDay(day)
	if existing == nil {
		if err := unlock(AchievementFirstCheckin, map[string]any{"date": date}); err != nil {
			return nil, err
		}
	}
	if err := award(DailyCheckinPoints, ReasonDailyCheckin, map[string]any{"date": date}); err != nil {
		return nil, err
	}
	for _, code := range Achievements {
		def, _ := code.Definition()
		if def.StreakDays == 0 || next.NewDays < def.StreakDays {
			continue
		}
		if err := unlock(code, map[string]any{"days": next.NewDays}); err != nil {
			return nil, err
		}
	}
	return res, nil
}
