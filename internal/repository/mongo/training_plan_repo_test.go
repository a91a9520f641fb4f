package mongo

import (
	"context"
	"testing"
	"time"

	"alcyxob/plan-calendar/internal/domain"
	"alcyxob/plan-calendar/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

const planNS = "test.training_plans"

func TestTrainingPlanRepository_CompareAndSwapOverrides(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	planID := primitive.NewObjectID()

	mt.Run("matching version bumps it", func(mt *mtest.T) {
		repo := NewMongoTrainingPlanRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 1},
		))

		version, err := repo.CompareAndSwapOverrides(context.Background(), planID, 4, map[string]string{"w1-fri": "2024-01-03"})
		require.NoError(mt, err)
		assert.Equal(mt, int64(5), version)
	})

	mt.Run("stale version conflicts", func(mt *mtest.T) {
		repo := NewMongoTrainingPlanRepository(mt.DB)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
			mtest.CreateCursorResponse(0, planNS, mtest.FirstBatch, bson.D{
				{Key: "_id", Value: planID},
				{Key: "sessionOverrides", Value: bson.D{{Key: "w2-sun", Value: "2024-01-11"}}},
				{Key: "overridesVersion", Value: int64(5)},
			}),
		)

		_, err := repo.CompareAndSwapOverrides(context.Background(), planID, 4, nil)
		assert.ErrorIs(mt, err, repository.ErrVersionConflict)
	})

	mt.Run("missing plan", func(mt *mtest.T) {
		repo := NewMongoTrainingPlanRepository(mt.DB)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
			mtest.CreateCursorResponse(0, planNS, mtest.FirstBatch),
		)

		_, err := repo.CompareAndSwapOverrides(context.Background(), planID, 0, nil)
		assert.ErrorIs(mt, err, repository.ErrNotFound)
	})

	mt.Run("driver error", func(mt *mtest.T) {
		repo := NewMongoTrainingPlanRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    2,
			Message: "bad value",
			Name:    "BadValue",
		}))

		_, err := repo.CompareAndSwapOverrides(context.Background(), planID, 1, nil)
		require.Error(mt, err)
		assert.NotErrorIs(mt, err, repository.ErrVersionConflict)
	})
}

func TestTrainingPlanRepository_LoadOverrides(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	planID := primitive.NewObjectID()

	mt.Run("found", func(mt *mtest.T) {
		repo := NewMongoTrainingPlanRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, planNS, mtest.FirstBatch, bson.D{
			{Key: "_id", Value: planID},
			{Key: "sessionOverrides", Value: bson.D{{Key: "w1-fri", Value: "2024-01-03"}}},
			{Key: "overridesVersion", Value: int64(3)},
		}))

		overrides, version, err := repo.LoadOverrides(context.Background(), planID)
		require.NoError(mt, err)
		assert.Equal(mt, map[string]string{"w1-fri": "2024-01-03"}, overrides)
		assert.Equal(mt, int64(3), version)
	})

	mt.Run("legacy row without map", func(mt *mtest.T) {
		repo := NewMongoTrainingPlanRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, planNS, mtest.FirstBatch, bson.D{
			{Key: "_id", Value: planID},
		}))

		overrides, version, err := repo.LoadOverrides(context.Background(), planID)
		require.NoError(mt, err)
		assert.NotNil(mt, overrides)
		assert.Empty(mt, overrides)
		assert.Zero(mt, version)
	})

	mt.Run("not found", func(mt *mtest.T) {
		repo := NewMongoTrainingPlanRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, planNS, mtest.FirstBatch))

		_, _, err := repo.LoadOverrides(context.Background(), planID)
		assert.ErrorIs(mt, err, repository.ErrNotFound)
	})
}

func TestTrainingPlanRepository_CreateAndGet(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("create fills ids and timestamps", func(mt *mtest.T) {
		repo := NewMongoTrainingPlanRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		plan := &domain.TrainingPlan{UserID: "user-1", Status: domain.PlanStatusPending}
		id, err := repo.Create(context.Background(), plan)
		require.NoError(mt, err)
		assert.Equal(mt, plan.ID, id)
		assert.False(mt, plan.CreatedAt.IsZero())
		assert.NotNil(mt, plan.SessionOverrides)
	})

	mt.Run("create requires user", func(mt *mtest.T) {
		repo := NewMongoTrainingPlanRepository(mt.DB)
		_, err := repo.Create(context.Background(), &domain.TrainingPlan{})
		assert.Error(mt, err)
	})

	mt.Run("latest ready plan", func(mt *mtest.T) {
		repo := NewMongoTrainingPlanRepository(mt.DB)
		planID := primitive.NewObjectID()
		created := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, planNS, mtest.FirstBatch, bson.D{
			{Key: "_id", Value: planID},
			{Key: "userId", Value: "user-1"},
			{Key: "status", Value: "ready"},
			{Key: "onboardingData", Value: bson.D{{Key: "startDate", Value: "2024-01-01"}}},
			{Key: "planData", Value: bson.D{{Key: "plan", Value: bson.D{{Key: "totalWeeks", Value: 12}}}}},
			{Key: "createdAt", Value: created},
		}))

		plan, err := repo.GetLatestReadyByUser(context.Background(), "user-1")
		require.NoError(mt, err)
		assert.Equal(mt, planID, plan.ID)
		assert.True(mt, plan.IsReady())
		assert.Equal(mt, "2024-01-01", plan.StartDate())
		assert.Equal(mt, 12, plan.PlanData.Plan.TotalWeeks)
		assert.NotNil(mt, plan.SessionOverrides)
	})

	mt.Run("no plan", func(mt *mtest.T) {
		repo := NewMongoTrainingPlanRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, planNS, mtest.FirstBatch))

		_, err := repo.GetLatestByUser(context.Background(), "user-1")
		assert.ErrorIs(mt, err, repository.ErrNotFound)
	})
}

func TestTrainingPlanRepository_MarkReady(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("updated", func(mt *mtest.T) {
		repo := NewMongoTrainingPlanRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))

		err := repo.MarkReady(context.Background(), primitive.NewObjectID(), &domain.PlanDocument{})
		assert.NoError(mt, err)
	})

	mt.Run("missing row", func(mt *mtest.T) {
		repo := NewMongoTrainingPlanRepository(mt.DB)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
			mtest.CreateCursorResponse(0, planNS, mtest.FirstBatch),
		)

		err := repo.MarkReady(context.Background(), primitive.NewObjectID(), &domain.PlanDocument{})
		assert.ErrorIs(mt, err, repository.ErrNotFound)
	})

	mt.Run("ready row keeps its overrides", func(mt *mtest.T) {
		repo := NewMongoTrainingPlanRepository(mt.DB)
		planID := primitive.NewObjectID()
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
			mtest.CreateCursorResponse(0, planNS, mtest.FirstBatch, bson.D{
				{Key: "_id", Value: planID},
				{Key: "userId", Value: "user-1"},
				{Key: "status", Value: "ready"},
				{Key: "sessionOverrides", Value: bson.D{{Key: "w1-fri", Value: "2024-01-06"}}},
				{Key: "overridesVersion", Value: int64(2)},
			}),
		)

		err := repo.MarkReady(context.Background(), planID, &domain.PlanDocument{})
		assert.ErrorIs(mt, err, repository.ErrAlreadyReady)
	})
}

func TestTrainingPlanRepository_MarkFailed(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("pending row", func(mt *mtest.T) {
		repo := NewMongoTrainingPlanRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))

		err := repo.MarkFailed(context.Background(), primitive.NewObjectID(), "generator responded 502")
		assert.NoError(mt, err)
	})

	mt.Run("server error", func(mt *mtest.T) {
		repo := NewMongoTrainingPlanRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 2, Message: "boom"}))

		err := repo.MarkFailed(context.Background(), primitive.NewObjectID(), "timeout")
		assert.ErrorContains(mt, err, "mark plan failed")
	})
}

func TestTrainingPlanRepository_DeleteByUser(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("deletes every row", func(mt *mtest.T) {
		repo := NewMongoTrainingPlanRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 3}))

		n, err := repo.DeleteByUser(context.Background(), "user-1")
		require.NoError(mt, err)
		assert.Equal(mt, int64(3), n)
	})

	mt.Run("requires user", func(mt *mtest.T) {
		repo := NewMongoTrainingPlanRepository(mt.DB)

		_, err := repo.DeleteByUser(context.Background(), "")
		assert.Error(mt, err)
	})
}
