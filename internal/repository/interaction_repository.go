package repository

import (
	"context"

	"github.com/Kevin-nav/AskTheSage/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// InteractionRepository is the append-only audit log, one row per attempt.
type InteractionRepository struct {
	Col *mongo.Collection
}

func NewInteractionRepository(db *mongo.Database) *InteractionRepository {
	return &InteractionRepository{Col: db.Collection("interaction_logs")}
}

func (r *InteractionRepository) Append(ctx context.Context, entry *models.InteractionLog) error {
	if entry.ID == "" {
		entry.ID = primitive.NewObjectID().Hex()
	}
	_, err := r.Col.InsertOne(ctx, entry)
	return err
}

func (r *InteractionRepository) CountForQuestion(ctx context.Context, userID, questionID string) (int, error) {
	n, err := r.Col.CountDocuments(ctx, bson.M{
		"user_id":     userID,
		"question_id": questionID,
	})
	return int(n), err
}

// LifetimeStats returns total and correct attempt counts across all courses.
func (r *InteractionRepository) LifetimeStats(ctx context.Context, userID string) (int, int, error) {
	attempts, err := r.Col.CountDocuments(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, 0, err
	}
	correct, err := r.Col.CountDocuments(ctx, bson.M{"user_id": userID, "is_correct": true})
	if err != nil {
		return 0, 0, err
	}
	return int(attempts), int(correct), nil
}
