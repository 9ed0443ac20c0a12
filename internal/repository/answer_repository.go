package repository

import (
	"context"

	"github.com/Kevin-nav/AskTheSage/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// AnswerRepository holds the append-only per-user answer history that the
// selection read model is rebuilt from.
type AnswerRepository struct {
	Col *mongo.Collection
}

func NewAnswerRepository(db *mongo.Database) *AnswerRepository {
	return &AnswerRepository{Col: db.Collection("user_answers")}
}

func (r *AnswerRepository) Append(ctx context.Context, answer *models.UserAnswer) error {
	if answer.ID == "" {
		answer.ID = primitive.NewObjectID().Hex()
	}
	_, err := r.Col.InsertOne(ctx, answer)
	return err
}

// Latest returns the most recent answer for a user × question pair, or nil
// when the user has never attempted it.
func (r *AnswerRepository) Latest(ctx context.Context, userID, questionID string) (*models.UserAnswer, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	var answer models.UserAnswer
	err := r.Col.FindOne(ctx, bson.M{
		"user_id":     userID,
		"question_id": questionID,
	}, opts).Decode(&answer)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &answer, nil
}

// HistoryForQuestions returns the user's full answer history restricted to
// the given question ids, oldest first.
func (r *AnswerRepository) HistoryForQuestions(ctx context.Context, userID string, questionIDs []string) ([]models.UserAnswer, error) {
	if len(questionIDs) == 0 {
		return nil, nil
	}
	filter := bson.M{
		"user_id":     userID,
		"question_id": bson.M{"$in": questionIDs},
	}
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}})
	cur, err := r.Col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var answers []models.UserAnswer
	for cur.Next(ctx) {
		var a models.UserAnswer
		if err := cur.Decode(&a); err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, nil
}
