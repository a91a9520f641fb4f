// internal/domain/session_log.go
package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SessionLog records completion of one session on the date it was scheduled on.
// At most one log exists per (user, plan, session, scheduled date).
type SessionLog struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID        string             `bson:"userId" json:"userId"`
	PlanID        primitive.ObjectID `bson:"planId" json:"planId"`
	SessionID     string             `bson:"sessionId" json:"sessionId"`
	ScheduledDate string             `bson:"scheduledDate" json:"scheduledDate"` // Resolved date at the time of logging, yyyy-mm-dd
	Completed     bool               `bson:"completed" json:"completed"`
	RPE           *int               `bson:"rpe,omitempty" json:"rpe,omitempty"`     // Effort rating 1-10
	Notes         *string            `bson:"notes,omitempty" json:"notes,omitempty"` // Free text, bounded
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Log field bounds.
const (
	MinRPE         = 1
	MaxRPE         = 10
	MaxNotesLength = 1000
)
