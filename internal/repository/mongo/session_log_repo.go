// internal/repository/mongo/session_log_repo.go
package mongo

import (
	"alcyxob/plan-calendar/internal/domain"
	"alcyxob/plan-calendar/internal/repository"
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const sessionLogCollectionName = "session_logs"

// mongoSessionLogRepository implements repository.SessionLogRepository
type mongoSessionLogRepository struct {
	collection *mongo.Collection
	now        func() time.Time
}

// NewMongoSessionLogRepository creates a new SessionLog repository.
func NewMongoSessionLogRepository(db *mongo.Database) repository.SessionLogRepository {
	return &mongoSessionLogRepository{
		collection: db.Collection(sessionLogCollectionName),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func logKey(userID string, planID primitive.ObjectID, sessionID, scheduledDate string) bson.M {
	return bson.M{
		"userId":        userID,
		"planId":        planID,
		"sessionId":     sessionID,
		"scheduledDate": scheduledDate,
	}
}

// Upsert writes the log for its key tuple. Nil RPE or notes are removed from
// an existing row rather than left behind.
func (r *mongoSessionLogRepository) Upsert(ctx context.Context, log *domain.SessionLog) (*domain.SessionLog, error) {
	if log.UserID == "" || log.PlanID == primitive.NilObjectID || log.SessionID == "" || log.ScheduledDate == "" {
		return nil, errors.New("log requires userId, planId, sessionId and scheduledDate")
	}
	now := r.now()
	filter := logKey(log.UserID, log.PlanID, log.SessionID, log.ScheduledDate)

	set := bson.M{
		"completed": log.Completed,
		"updatedAt": now,
	}
	unset := bson.M{}
	if log.RPE != nil {
		set["rpe"] = *log.RPE
	} else {
		unset["rpe"] = ""
	}
	if log.Notes != nil {
		set["notes"] = *log.Notes
	} else {
		unset["notes"] = ""
	}
	update := bson.M{
		"$set":         set,
		"$setOnInsert": bson.M{"createdAt": now},
	}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// Lost a race against a concurrent first write of the same key.
			return nil, fmt.Errorf("upsert session log: %w", repository.ErrDuplicate)
		}
		return nil, fmt.Errorf("upsert session log: %w", err)
	}
	return r.Get(ctx, log.UserID, log.PlanID, log.SessionID, log.ScheduledDate)
}

func (r *mongoSessionLogRepository) Get(ctx context.Context, userID string, planID primitive.ObjectID, sessionID, scheduledDate string) (*domain.SessionLog, error) {
	var log domain.SessionLog
	err := r.collection.FindOne(ctx, logKey(userID, planID, sessionID, scheduledDate)).Decode(&log)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &log, nil
}

func (r *mongoSessionLogRepository) ListByUser(ctx context.Context, userID string) ([]domain.SessionLog, error) {
	return r.find(ctx, bson.M{"userId": userID})
}

func (r *mongoSessionLogRepository) ListByPlan(ctx context.Context, userID string, planID primitive.ObjectID) ([]domain.SessionLog, error) {
	return r.find(ctx, bson.M{"userId": userID, "planId": planID})
}

func (r *mongoSessionLogRepository) find(ctx context.Context, filter bson.M) ([]domain.SessionLog, error) {
	logs := []domain.SessionLog{}
	// Sort by scheduled date, oldest first
	findOptions := options.Find().SetSort(bson.D{{Key: "scheduledDate", Value: 1}, {Key: "sessionId", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

// EnsureSessionLogIndexes creates the unique key index. Call during startup.
func EnsureSessionLogIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "userId", Value: 1},
				{Key: "planId", Value: 1},
				{Key: "sessionId", Value: 1},
				{Key: "scheduledDate", Value: 1},
			},
			Options: options.Index().SetUnique(true).SetName("session_log_key"),
		},
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "scheduledDate", Value: 1}},
			Options: options.Index(),
		},
	}
	_, err := db.Collection(sessionLogCollectionName).Indexes().CreateMany(ctx, indexes)
	return err
}
