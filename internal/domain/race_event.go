// internal/domain/race_event.go
package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RaceEvent is a catalog entry users pick their target race from during
// onboarding. Name and race date together identify an event.
type RaceEvent struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	RaceDate  string             `bson:"raceDate" json:"race_date"` // yyyy-mm-dd
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}
