// Command plancal resolves a training plan file onto calendar dates and edits
// its override file offline, using the same rules as the server.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"alcyxob/plan-calendar/internal/domain"
	"alcyxob/plan-calendar/internal/logging"
	"alcyxob/plan-calendar/internal/reschedule"
	"alcyxob/plan-calendar/internal/schedule"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

const filePlanID = "file"

type dayView struct {
	Date     string                     `json:"date"`
	Weekday  string                     `json:"weekday"`
	Sessions []schedule.ResolvedSession `json:"sessions"`
}

type weekView struct {
	WeekNumber   int       `json:"weekNumber"`
	Monday       string    `json:"monday"`
	Sunday       string    `json:"sunday"`
	HasOverrides bool      `json:"hasOverrides"`
	Days         []dayView `json:"days"`
}

func readPlan(path string) (*domain.Plan, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc domain.PlanDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse plan file %s: %w", path, err)
	}
	missing := 0
	for _, b := range doc.Plan.Blocks {
		for _, w := range b.Weeks {
			for _, s := range w.Sessions {
				if s.SessionID == "" {
					missing++
				}
			}
		}
	}
	if missing > 0 {
		log.WithField("sessions", missing).Warn("plan file has sessions without an id; they cannot be moved")
	}
	return &doc.Plan, nil
}

func newController(c *cli.Context) (*reschedule.Controller, error) {
	plan, err := readPlan(c.String("plan"))
	if err != nil {
		return nil, err
	}
	store := &fileStore{path: c.String("overrides")}
	notifier := reschedule.NotifierFunc(func(action reschedule.Action, message string, err error) {
		log.WithError(err).WithField("action", action).Warn(message)
	})
	return reschedule.Load(c.Context, filePlanID, plan, c.String("start"), store, reschedule.WithNotifier(notifier))
}

func encode(c *cli.Context, v interface{}) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func resolve(c *cli.Context) error {
	ctrl, err := newController(c)
	if err != nil {
		return err
	}
	resolved, err := ctrl.Resolved()
	if err != nil {
		return err
	}
	return encode(c, resolved)
}

func week(c *cli.Context) error {
	ctrl, err := newController(c)
	if err != nil {
		return err
	}
	resolved, err := ctrl.Resolved()
	if err != nil {
		return err
	}
	start, err := schedule.ParseStartDate(c.String("start"))
	if err != nil {
		return err
	}
	dates, err := schedule.WeekDates(start, c.Int("week"))
	if err != nil {
		return err
	}

	view := weekView{
		WeekNumber:   c.Int("week"),
		Monday:       dates[0],
		Sunday:       dates[len(dates)-1],
		HasOverrides: schedule.WeekHasOverrides(resolved, ctrl.Overrides(), dates[0], dates[len(dates)-1]),
	}
	for i, date := range dates {
		view.Days = append(view.Days, dayView{
			Date:     date,
			Weekday:  schedule.WeekdayName(i),
			Sessions: schedule.SessionsOnDate(resolved, date),
		})
	}
	return encode(c, view)
}

func day(c *cli.Context) error {
	date := c.String("date")
	parsed, err := schedule.ParseDate(date)
	if err != nil {
		return err
	}
	ctrl, err := newController(c)
	if err != nil {
		return err
	}
	resolved, err := ctrl.Resolved()
	if err != nil {
		return err
	}
	offset := int(parsed.Weekday()+6) % 7
	return encode(c, dayView{
		Date:     date,
		Weekday:  schedule.WeekdayName(offset),
		Sessions: schedule.SessionsOnDate(resolved, date),
	})
}

func move(c *cli.Context) error {
	ctrl, err := newController(c)
	if err != nil {
		return err
	}
	if err := ctrl.BeginDrag(c.String("session")); err != nil {
		return err
	}
	changed, err := ctrl.Drop(c.Context, c.String("date"))
	if err != nil {
		return err
	}
	return encode(c, map[string]interface{}{"changed": changed, "version": ctrl.Version()})
}

func undo(c *cli.Context) error {
	ctrl, err := newController(c)
	if err != nil {
		return err
	}
	changed, err := ctrl.ClearOverride(c.Context, c.String("session"))
	if err != nil {
		return err
	}
	return encode(c, map[string]interface{}{"changed": changed, "version": ctrl.Version()})
}

func resetWeek(c *cli.Context) error {
	ctrl, err := newController(c)
	if err != nil {
		return err
	}
	monday, sunday := c.String("monday"), c.String("sunday")
	if !c.Bool("confirm") {
		affected, err := ctrl.PreviewWeekReset(monday, sunday)
		if err != nil {
			return err
		}
		return encode(c, map[string]interface{}{"affected": affected, "applied": false})
	}
	cleared, err := ctrl.ResetWeek(c.Context, monday, sunday)
	if err != nil {
		return err
	}
	return encode(c, map[string]interface{}{"affected": cleared, "applied": true, "version": ctrl.Version()})
}

func newApp() *cli.App {
	sessionFlag := &cli.StringFlag{Name: "session", Required: true, Usage: "session id"}
	return &cli.App{
		Name:     "plancal",
		HelpName: "plancal",
		Usage:    "Resolve and reschedule training plan sessions",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "plan",
				Required: true,
				Usage:    "plan document JSON file",
				EnvVars:  []string{"PLANCAL_PLAN"},
			},
			&cli.StringFlag{
				Name:     "start",
				Required: true,
				Usage:    "plan start date (yyyy-mm-dd)",
				EnvVars:  []string{"PLANCAL_START"},
			},
			&cli.StringFlag{
				Name:    "overrides",
				Usage:   "override map JSON file, created on first write",
				EnvVars: []string{"PLANCAL_OVERRIDES"},
			},
			&cli.StringFlag{
				Name:  "log-level",
				Value: "warn",
				Usage: "log level",
			},
		},
		Before: func(c *cli.Context) error {
			logging.Setup(logging.SetupParams{LogLevel: c.String("log-level"), Output: c.App.ErrWriter})
			return nil
		},
		ExitErrHandler: func(c *cli.Context, err error) {
			if err == nil {
				return
			}
			log.WithError(err).Error(c.App.Name)
		},
		Commands: []*cli.Command{
			{
				Name:   "resolve",
				Usage:  "print every session with its original and effective date",
				Action: resolve,
			},
			{
				Name:   "week",
				Usage:  "print one plan week, Monday to Sunday",
				Flags:  []cli.Flag{&cli.IntFlag{Name: "week", Value: 1, Usage: "plan week number"}},
				Action: week,
			},
			{
				Name:   "day",
				Usage:  "print the sessions on one date",
				Flags:  []cli.Flag{&cli.StringFlag{Name: "date", Required: true, Usage: "date (yyyy-mm-dd)"}},
				Action: day,
			},
			{
				Name:  "move",
				Usage: "move a session to another date",
				Flags: []cli.Flag{
					sessionFlag,
					&cli.StringFlag{Name: "date", Required: true, Usage: "target date (yyyy-mm-dd)"},
				},
				Action: move,
			},
			{
				Name:   "undo",
				Usage:  "put a session back on its computed date",
				Flags:  []cli.Flag{sessionFlag},
				Action: undo,
			},
			{
				Name:  "reset-week",
				Usage: "list, or with --confirm clear, every move into or out of a week",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "monday", Required: true},
					&cli.StringFlag{Name: "sunday", Required: true},
					&cli.BoolFlag{Name: "confirm"},
				},
				Action: resetWeek,
			},
		},
	}
}

func main() {
	if err := newApp().RunContext(context.Background(), os.Args); err != nil {
		os.Exit(1)
	}
}
