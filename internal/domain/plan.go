// internal/domain/plan.go
package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// PlanDocument is the envelope delivered by the plan generator.
type PlanDocument struct {
	Plan Plan `bson:"plan" json:"plan"`
}

// Plan is the periodized plan: blocks of consecutive weeks, each week a list of sessions.
// Week numbers are global across the plan and do not restart per block.
type Plan struct {
	RaceDate   string  `bson:"raceDate,omitempty" json:"raceDate,omitempty"`
	TotalWeeks int     `bson:"totalWeeks,omitempty" json:"totalWeeks,omitempty"`
	Blocks     []Block `bson:"blocks" json:"blocks"`
}

type Block struct {
	BlockNumber int    `bson:"blockNumber,omitempty" json:"blockNumber,omitempty"`
	BlockName   string `bson:"blockName,omitempty" json:"blockName,omitempty"`
	WeekStart   int    `bson:"weekStart" json:"weekStart"` // Inclusive
	WeekEnd     int    `bson:"weekEnd" json:"weekEnd"`     // Inclusive
	Weeks       []Week `bson:"weeks" json:"weeks"`
}

type Week struct {
	WeekNumber   int       `bson:"weekNumber" json:"weekNumber"`
	WeekGoal     string    `bson:"weekGoal,omitempty" json:"weekGoal,omitempty"`
	CoachNote    string    `bson:"coachNote,omitempty" json:"coachNote,omitempty"`
	IsDeloadWeek bool      `bson:"isDeloadWeek" json:"isDeloadWeek"`
	Sessions     []Session `bson:"sessions" json:"sessions"`
}

// Session is one workout of a week. SessionID is assigned when the plan is
// generated and is the key of the override map; it is never recomputed.
type Session struct {
	SessionID       string     `bson:"sessionId" json:"sessionId"`
	DayOfWeek       string     `bson:"dayOfWeek" json:"dayOfWeek"` // Weekday name in the plan's locale, e.g. "Freitag"
	SessionType     string     `bson:"sessionType,omitempty" json:"sessionType,omitempty"`
	Focus           string     `bson:"focus,omitempty" json:"focus,omitempty"`
	DurationMin     int        `bson:"durationMin,omitempty" json:"durationMin,omitempty"`
	DurationMinutes int        `bson:"durationMinutes,omitempty" json:"durationMinutes,omitempty"` // Older generator output
	Exercises       []Exercise `bson:"exercises,omitempty" json:"exercises,omitempty"`
	MainBlock       []Exercise `bson:"mainBlock,omitempty" json:"mainBlock,omitempty"` // Older generator output
}

// Duration returns the planned duration in minutes, 0 if unknown.
func (s Session) Duration() int {
	if s.DurationMin > 0 {
		return s.DurationMin
	}
	return s.DurationMinutes
}

// AllExercises returns the exercise list regardless of which field the generator used.
func (s Session) AllExercises() []Exercise {
	if len(s.Exercises) > 0 {
		return s.Exercises
	}
	return s.MainBlock
}

// Title is the display title used by exports.
func (s Session) Title() string {
	if s.Focus != "" {
		return s.Focus
	}
	if s.SessionType != "" {
		return s.SessionType
	}
	return "Training"
}

// Exercise content is opaque to scheduling; it is stored and returned as delivered.
type Exercise struct {
	Name     string     `bson:"name,omitempty" json:"name,omitempty"`
	Sets     int        `bson:"sets,omitempty" json:"sets,omitempty"`
	Reps     FlexString `bson:"reps,omitempty" json:"reps,omitempty"`
	Zone     string     `bson:"zone,omitempty" json:"zone,omitempty"`
	Notes    string     `bson:"notes,omitempty" json:"notes,omitempty"`
	Distance string     `bson:"distance,omitempty" json:"distance,omitempty"`
	Duration string     `bson:"duration,omitempty" json:"duration,omitempty"`
	Pace     string     `bson:"pace,omitempty" json:"pace,omitempty"`
	Weight   string     `bson:"weight,omitempty" json:"weight,omitempty"`
}

// FlexString accepts either a JSON string or a JSON number ("8-10" or 10 reps).
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	if _, err := strconv.ParseFloat(n.String(), 64); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}
