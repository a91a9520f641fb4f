// internal/repository/mongo/race_event_repo.go
package mongo

import (
	"alcyxob/plan-calendar/internal/domain"
	"alcyxob/plan-calendar/internal/repository"
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const raceEventCollectionName = "race_events"

// mongoRaceEventRepository implements repository.RaceEventRepository
type mongoRaceEventRepository struct {
	collection *mongo.Collection
	now        func() time.Time
}

func NewMongoRaceEventRepository(db *mongo.Database) repository.RaceEventRepository {
	return &mongoRaceEventRepository{
		collection: db.Collection(raceEventCollectionName),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// UpsertMany writes all events in one unordered bulk. Rows that already
// exist only get their updatedAt refreshed.
func (r *mongoRaceEventRepository) UpsertMany(ctx context.Context, events []domain.RaceEvent) (int64, error) {
	if len(events) == 0 {
		return 0, nil
	}
	now := r.now()
	models := make([]mongo.WriteModel, 0, len(events))
	for _, e := range events {
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"name": e.Name, "raceDate": e.RaceDate}).
			SetUpdate(bson.M{
				"$set":         bson.M{"updatedAt": now},
				"$setOnInsert": bson.M{"createdAt": now},
			}).
			SetUpsert(true))
	}

	result, err := r.collection.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return 0, fmt.Errorf("upsert race events: %w", repository.ErrDuplicate)
		}
		return 0, fmt.Errorf("upsert race events: %w", err)
	}
	return result.MatchedCount + result.UpsertedCount, nil
}

func (r *mongoRaceEventRepository) ListFrom(ctx context.Context, from string) ([]domain.RaceEvent, error) {
	events := []domain.RaceEvent{}
	findOptions := options.Find().SetSort(bson.D{{Key: "raceDate", Value: 1}, {Key: "name", Value: 1}})

	cursor, err := r.collection.Find(ctx, bson.M{"raceDate": bson.M{"$gte": from}}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// EnsureRaceEventIndexes creates the unique catalog key. Call during startup.
func EnsureRaceEventIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "name", Value: 1}, {Key: "raceDate", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("race_event_key"),
		},
		{
			Keys:    bson.D{{Key: "raceDate", Value: 1}},
			Options: options.Index(),
		},
	}
	_, err := db.Collection(raceEventCollectionName).Indexes().CreateMany(ctx, indexes)
	return err
}
