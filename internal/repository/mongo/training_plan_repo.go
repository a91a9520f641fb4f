// internal/repository/mongo/training_plan_repo.go
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

const trainingPlanCollectionName = "training_plans"

// mongoTrainingPlanRepository implements repository.TrainingPlanRepository
type mongoTrainingPlanRepository struct {
	collection *mongo.Collection
	now        func() time.Time
}

// NewMongoTrainingPlanRepository creates a new TrainingPlan repository.
func NewMongoTrainingPlanRepository(db *mongo.Database) repository.TrainingPlanRepository {
	return &mongoTrainingPlanRepository{
		collection: db.Collection(trainingPlanCollectionName),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Create inserts a new training plan row. A nil override map is stored as an empty document.
func (r *mongoTrainingPlanRepository) Create(ctx context.Context, plan *domain.TrainingPlan) (primitive.ObjectID, error) {
	if plan.UserID == "" {
		return primitive.NilObjectID, errors.New("plan requires userId")
	}
	plan.ID = primitive.NewObjectID()
	now := r.now()
	plan.CreatedAt = now
	plan.UpdatedAt = now
	if plan.SessionOverrides == nil {
		plan.SessionOverrides = map[string]string{}
	}

	result, err := r.collection.InsertOne(ctx, plan)
	if err != nil {
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted plan ID")
	}
	return insertedID, nil
}

// GetByID retrieves a single training plan by its ID.
func (r *mongoTrainingPlanRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.TrainingPlan, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *mongoTrainingPlanRepository) GetLatestByUser(ctx context.Context, userID string) (*domain.TrainingPlan, error) {
	return r.findOne(ctx, bson.M{"userId": userID})
}

func (r *mongoTrainingPlanRepository) GetLatestReadyByUser(ctx context.Context, userID string) (*domain.TrainingPlan, error) {
	return r.findOne(ctx, bson.M{"userId": userID, "status": domain.PlanStatusReady})
}

// findOne returns the newest plan matching filter.
func (r *mongoTrainingPlanRepository) findOne(ctx context.Context, filter bson.M) (*domain.TrainingPlan, error) {
	var plan domain.TrainingPlan
	findOptions := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	err := r.collection.FindOne(ctx, filter, findOptions).Decode(&plan)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	if plan.SessionOverrides == nil {
		plan.SessionOverrides = map[string]string{}
	}
	return &plan, nil
}

// MarkReady stores the delivered plan document on a row still waiting for it.
// The filter excludes ready rows so a repeated delivery cannot clobber the
// override map. The version is bumped to invalidate writers holding the old one.
func (r *mongoTrainingPlanRepository) MarkReady(ctx context.Context, id primitive.ObjectID, doc *domain.PlanDocument) error {
	if doc == nil {
		return errors.New("plan document is required")
	}
	filter := bson.M{
		"_id":    id,
		"status": bson.M{"$in": bson.A{domain.PlanStatusPending, domain.PlanStatusFailed}},
	}
	update := bson.M{
		"$set": bson.M{
			"status":    domain.PlanStatusReady,
			"planData":  doc,
			"updatedAt": r.now(),
		},
		"$unset": bson.M{"failureReason": ""},
		"$inc":   bson.M{"overridesVersion": 1},
	}
	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("mark plan ready: %w", err)
	}
	if result.MatchedCount == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return repository.ErrAlreadyReady
	}
	return nil
}

// MarkFailed flags a pending row so the user can ask for a new plan.
func (r *mongoTrainingPlanRepository) MarkFailed(ctx context.Context, id primitive.ObjectID, reason string) error {
	filter := bson.M{"_id": id, "status": domain.PlanStatusPending}
	update := bson.M{"$set": bson.M{
		"status":        domain.PlanStatusFailed,
		"failureReason": reason,
		"updatedAt":     r.now(),
	}}
	if _, err := r.collection.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("mark plan failed: %w", err)
	}
	return nil
}

func (r *mongoTrainingPlanRepository) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	if userID == "" {
		return 0, errors.New("userId is required")
	}
	result, err := r.collection.DeleteMany(ctx, bson.M{"userId": userID})
	if err != nil {
		return 0, fmt.Errorf("delete plans: %w", err)
	}
	return result.DeletedCount, nil
}

type overridesProjection struct {
	SessionOverrides map[string]string `bson:"sessionOverrides"`
	OverridesVersion int64             `bson:"overridesVersion"`
}

func (r *mongoTrainingPlanRepository) LoadOverrides(ctx context.Context, id primitive.ObjectID) (map[string]string, int64, error) {
	var doc overridesProjection
	findOptions := options.FindOne().SetProjection(bson.M{"sessionOverrides": 1, "overridesVersion": 1})
	err := r.collection.FindOne(ctx, bson.M{"_id": id}, findOptions).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, 0, repository.ErrNotFound
		}
		return nil, 0, err
	}
	if doc.SessionOverrides == nil {
		doc.SessionOverrides = map[string]string{}
	}
	return doc.SessionOverrides, doc.OverridesVersion, nil
}

// CompareAndSwapOverrides writes the whole map in one conditional update.
// Rows written before versioning existed carry no overridesVersion and count as version 0.
func (r *mongoTrainingPlanRepository) CompareAndSwapOverrides(ctx context.Context, id primitive.ObjectID, expectedVersion int64, overrides map[string]string) (int64, error) {
	if overrides == nil {
		overrides = map[string]string{}
	}

	filter := bson.M{"_id": id, "overridesVersion": expectedVersion}
	if expectedVersion == 0 {
		filter = bson.M{
			"_id": id,
			"$or": bson.A{
				bson.M{"overridesVersion": 0},
				bson.M{"overridesVersion": bson.M{"$exists": false}},
			},
		}
	}
	update := bson.M{
		"$set": bson.M{
			"sessionOverrides": overrides,
			"updatedAt":        r.now(),
		},
		"$inc": bson.M{"overridesVersion": 1},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("write overrides: %w", err)
	}
	if result.MatchedCount == 0 {
		// Either the plan is gone or someone else wrote first.
		if _, _, err := r.LoadOverrides(ctx, id); err != nil {
			return 0, err
		}
		return 0, repository.ErrVersionConflict
	}
	return expectedVersion + 1, nil
}

// EnsureTrainingPlanIndexes creates necessary indexes. Call during startup.
func EnsureTrainingPlanIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := []mongo.IndexModel{
		{
			// Latest plan of a user, optionally filtered by status
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "status", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index(),
		},
	}
	_, err := db.Collection(trainingPlanCollectionName).Indexes().CreateMany(ctx, indexes)
	return err
}
