// Package reschedule owns the override map of one plan while a user moves
// sessions around: every change is applied locally first, then written to the
// store as a whole map, and restored exactly from a snapshot if the write fails.
package reschedule

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"alcyxob/plan-calendar/internal/domain"
	"alcyxob/plan-calendar/internal/metrics"
	"alcyxob/plan-calendar/internal/schedule"

	"github.com/sirupsen/logrus"
)

// State of the drag-and-drop interaction.
type State string

const (
	StateIdle       State = "idle"
	StateDragging   State = "dragging"
	StateCommitting State = "committing"
	StateReverted   State = "reverted"
)

// Action names a user gesture that mutates the override map.
type Action string

const (
	ActionMove      Action = "move"
	ActionUndo      Action = "undo"
	ActionResetWeek Action = "reset_week"
)

// FailureMessage is the short user-facing text shown when the action could not be saved.
func (a Action) FailureMessage() string {
	switch a {
	case ActionMove:
		return "Session could not be moved."
	case ActionUndo:
		return "Session could not be reset."
	case ActionResetWeek:
		return "Week could not be reset."
	default:
		return "Change could not be saved."
	}
}

var (
	ErrUnknownSession    = errors.New("session not found in plan")
	ErrNotDragging       = errors.New("no session is being dragged")
	ErrDragInProgress    = errors.New("another session is already being dragged")
	ErrInvalidWeekBounds = errors.New("week bounds must be a monday and the sunday six days later")
)

// ActionError reports a failed write. The local override map has already been
// restored to its state before the action when this error is returned.
type ActionError struct {
	Action Action
	Err    error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Action, e.Err)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

// Message is the user-facing failure text.
func (e *ActionError) Message() string {
	return e.Action.FailureMessage()
}

// Store persists the whole override map of a plan. SaveOverrides must only
// succeed when the stored version still equals expectedVersion and returns the
// new version.
type Store interface {
	LoadOverrides(ctx context.Context, planID string) (schedule.OverrideMap, int64, error)
	SaveOverrides(ctx context.Context, planID string, expectedVersion int64, overrides schedule.OverrideMap) (int64, error)
}

// Notifier surfaces failed actions to the user.
type Notifier interface {
	NotifyFailure(action Action, message string, err error)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(action Action, message string, err error)

func (f NotifierFunc) NotifyFailure(action Action, message string, err error) {
	f(action, message, err)
}

// Config carries the plan and the override map state the controller starts from.
type Config struct {
	PlanID    string
	Plan      *domain.Plan
	StartDate string
	Overrides schedule.OverrideMap
	Version   int64
}

type Option func(*Controller)

func WithNotifier(n Notifier) Option {
	return func(c *Controller) { c.notifier = n }
}

func WithMetrics(m *metrics.Manager) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithTransitionHook registers a callback for state changes. It runs while the
// controller lock is held and must not call back into the controller.
func WithTransitionHook(fn func(from, to State)) Option {
	return func(c *Controller) { c.onTransition = fn }
}

// Controller serialises override mutations of one plan. Reads (Overrides,
// Resolved, State) are never blocked by an in-flight write and observe the
// optimistic map during it.
type Controller struct {
	planID    string
	plan      *domain.Plan
	startDate string
	store     Store

	notifier     Notifier
	metrics      *metrics.Manager
	onTransition func(from, to State)

	opMu sync.Mutex // held for the whole apply -> persist -> settle sequence

	mu          sync.RWMutex
	overrides   schedule.OverrideMap
	version     int64
	state       State
	dragSubject string
}

// New creates a controller from an already loaded override map.
func New(cfg Config, store Store, opts ...Option) *Controller {
	c := &Controller{
		planID:    cfg.PlanID,
		plan:      cfg.Plan,
		startDate: cfg.StartDate,
		store:     store,
		overrides: cfg.Overrides.Clone(),
		version:   cfg.Version,
		state:     StateIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load creates a controller and hydrates its override map from the store.
func Load(ctx context.Context, planID string, plan *domain.Plan, startDate string, store Store, opts ...Option) (*Controller, error) {
	overrides, version, err := store.LoadOverrides(ctx, planID)
	if err != nil {
		return nil, fmt.Errorf("load overrides: %w", err)
	}
	return New(Config{
		PlanID:    planID,
		Plan:      plan,
		StartDate: startDate,
		Overrides: overrides,
		Version:   version,
	}, store, opts...), nil
}

// Overrides returns a copy of the current (possibly optimistic) override map.
func (c *Controller) Overrides() schedule.OverrideMap {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.overrides.Clone()
}

// Version is the store version the local map was last synchronised with.
func (c *Controller) Version() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Resolved projects the plan onto the calendar using the current override map.
func (c *Controller) Resolved() ([]schedule.ResolvedSession, error) {
	return schedule.Resolve(c.plan, c.startDate, c.Overrides())
}

// BeginDrag records sessionID as the subject of a drag gesture.
func (c *Controller) BeginDrag(sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("%w: empty session id", ErrUnknownSession)
	}
	resolved, err := c.Resolved()
	if err != nil {
		return err
	}
	if _, ok := schedule.FindSession(resolved, sessionID); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSession, sessionID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dragSubject != "" {
		return ErrDragInProgress
	}
	c.dragSubject = sessionID
	c.setState(StateDragging)
	return nil
}

// CancelDrag ends a drag outside any drop target. Nothing is mutated.
func (c *Controller) CancelDrag() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dragSubject == "" {
		return
	}
	c.dragSubject = ""
	c.setState(c.restingState())
}

// Drop ends the drag on targetDate. An empty target (not a day cell) or the
// session's current date is a no-op. It reports whether the map changed.
func (c *Controller) Drop(ctx context.Context, targetDate string) (bool, error) {
	c.mu.Lock()
	subject := c.dragSubject
	c.dragSubject = ""
	if subject == "" {
		c.mu.Unlock()
		return false, ErrNotDragging
	}
	if targetDate == "" {
		c.setState(c.restingState())
		c.mu.Unlock()
		return false, nil
	}
	c.mu.Unlock()

	changed, err := c.ApplyOverride(ctx, subject, targetDate)
	var actionErr *ActionError
	if !changed && !errors.As(err, &actionErr) {
		// no-op or rejected before any write; a failed write has settled already
		c.mu.Lock()
		c.setState(c.restingState())
		c.mu.Unlock()
	}
	return changed, err
}

// ApplyOverride moves a session to date. Moving a session onto its current
// resolved date does nothing and does not touch the store.
func (c *Controller) ApplyOverride(ctx context.Context, sessionID, date string) (bool, error) {
	// Sessions without an id cannot be keyed in the override map
	if sessionID == "" {
		return false, fmt.Errorf("%w: empty session id", ErrUnknownSession)
	}
	if _, err := schedule.ParseDate(date); err != nil {
		return false, err
	}

	c.opMu.Lock()
	defer c.opMu.Unlock()

	before, version := c.snapshot()
	resolved, err := schedule.Resolve(c.plan, c.startDate, before)
	if err != nil {
		return false, err
	}
	current, ok := schedule.FindSession(resolved, sessionID)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownSession, sessionID)
	}
	if current.ResolvedDate == date {
		return false, nil
	}

	if err := c.commit(ctx, ActionMove, before, version, before.Set(sessionID, date)); err != nil {
		return false, err
	}
	return true, nil
}

// ClearOverride puts a moved session back on its computed date. Sessions
// without an override are left alone.
func (c *Controller) ClearOverride(ctx context.Context, sessionID string) (bool, error) {
	if sessionID == "" {
		return false, fmt.Errorf("%w: empty session id", ErrUnknownSession)
	}
	c.opMu.Lock()
	defer c.opMu.Unlock()

	before, version := c.snapshot()
	if !before.Has(sessionID) {
		return false, nil
	}
	if err := c.commit(ctx, ActionUndo, before, version, before.Clear(sessionID)); err != nil {
		return false, err
	}
	return true, nil
}

// PreviewWeekReset lists the sessions ResetWeek would put back, for the
// confirmation prompt. An empty list means the reset affordance is hidden.
func (c *Controller) PreviewWeekReset(monday, sunday string) ([]string, error) {
	if err := validateWeekBounds(monday, sunday); err != nil {
		return nil, err
	}
	overrides := c.Overrides()
	resolved, err := schedule.Resolve(c.plan, c.startDate, overrides)
	if err != nil {
		return nil, err
	}
	return schedule.OverriddenInWeek(resolved, overrides, monday, sunday), nil
}

// ResetWeek clears every override moved into or out of [monday, sunday] in
// one write and returns the cleared session ids.
func (c *Controller) ResetWeek(ctx context.Context, monday, sunday string) ([]string, error) {
	if err := validateWeekBounds(monday, sunday); err != nil {
		return nil, err
	}

	c.opMu.Lock()
	defer c.opMu.Unlock()

	before, version := c.snapshot()
	resolved, err := schedule.Resolve(c.plan, c.startDate, before)
	if err != nil {
		return nil, err
	}
	affected := schedule.OverriddenInWeek(resolved, before, monday, sunday)
	if len(affected) == 0 {
		return affected, nil
	}
	if err := c.commit(ctx, ActionResetWeek, before, version, before.ClearBatch(affected)); err != nil {
		return nil, err
	}
	return affected, nil
}

// Reload replaces the local map with the stored one, e.g. after a version conflict.
func (c *Controller) Reload(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	overrides, version, err := c.store.LoadOverrides(ctx, c.planID)
	if err != nil {
		return fmt.Errorf("reload overrides: %w", err)
	}
	c.mu.Lock()
	c.overrides = overrides.Clone()
	c.version = version
	c.mu.Unlock()
	return nil
}

func (c *Controller) snapshot() (schedule.OverrideMap, int64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.overrides.Clone(), c.version
}

// commit applies after optimistically, writes it, and on failure restores
// before. Callers hold opMu.
func (c *Controller) commit(ctx context.Context, action Action, before schedule.OverrideMap, version int64, after schedule.OverrideMap) error {
	c.mu.Lock()
	c.overrides = after
	c.setState(StateCommitting)
	c.mu.Unlock()

	// A write that has been issued always runs to completion.
	started := time.Now()
	newVersion, err := c.store.SaveOverrides(context.WithoutCancel(ctx), c.planID, version, after.Clone())
	if c.metrics != nil {
		c.metrics.HistPersistDuration.Observe(time.Since(started).Seconds())
	}

	c.mu.Lock()
	if err != nil {
		c.overrides = before
		c.setState(StateReverted)
		c.setState(c.restingState())
		c.mu.Unlock()

		logrus.WithFields(logrus.Fields{
			"planId": c.planID,
			"action": action,
			"error":  err,
		}).Error("override write failed, local change rolled back")
		if c.metrics != nil {
			c.metrics.CounterOverrideCommits.WithLabelValues(string(action), "failed").Inc()
			c.metrics.CounterRollbacks.WithLabelValues(string(action)).Inc()
		}
		if c.notifier != nil {
			c.notifier.NotifyFailure(action, action.FailureMessage(), err)
		}
		return &ActionError{Action: action, Err: err}
	}

	c.version = newVersion
	c.setState(c.restingState())
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.CounterOverrideCommits.WithLabelValues(string(action), "ok").Inc()
	}
	logrus.WithFields(logrus.Fields{
		"planId":  c.planID,
		"action":  action,
		"version": newVersion,
	}).Debug("override map saved")
	return nil
}

// restingState is where the machine settles after a gesture: dragging if a new
// drag started meanwhile, idle otherwise. Callers hold mu.
func (c *Controller) restingState() State {
	if c.dragSubject != "" {
		return StateDragging
	}
	return StateIdle
}

// setState records a transition. Callers hold mu.
func (c *Controller) setState(to State) {
	from := c.state
	c.state = to
	if c.onTransition != nil && from != to {
		c.onTransition(from, to)
	}
}

func validateWeekBounds(monday, sunday string) error {
	mon, err := schedule.ParseDate(monday)
	if err != nil {
		return err
	}
	sun, err := schedule.ParseDate(sunday)
	if err != nil {
		return err
	}
	if mon.Weekday() != time.Monday || !sun.Equal(schedule.AddDays(mon, 6)) {
		return fmt.Errorf("%w: got %s..%s", ErrInvalidWeekBounds, monday, sunday)
	}
	return nil
}
