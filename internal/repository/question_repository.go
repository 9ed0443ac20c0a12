package repository

import (
	"context"

	"github.com/Kevin-nav/AskTheSage/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type QuestionRepository struct {
	Col *mongo.Collection
}

func NewQuestionRepository(db *mongo.Database) *QuestionRepository {
	return &QuestionRepository{Col: db.Collection("questions")}
}

func (r *QuestionRepository) FindByID(ctx context.Context, id string) (*models.Question, error) {
	var question models.Question
	err := r.Col.FindOne(ctx, bson.M{"_id": id}).Decode(&question)
	if err != nil {
		return nil, err
	}
	return &question, nil
}

func (r *QuestionRepository) FindByCourse(ctx context.Context, courseID string) ([]models.Question, error) {
	cur, err := r.Col.Find(ctx, bson.M{"course_id": courseID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var questions []models.Question
	for cur.Next(ctx) {
		var q models.Question
		if err := cur.Decode(&q); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, nil
}

// FindMetaByCourse loads only what selection needs: ids and difficulty scores.
func (r *QuestionRepository) FindMetaByCourse(ctx context.Context, courseID string) ([]models.QuestionMeta, error) {
	opts := options.Find().SetProjection(bson.M{"_id": 1, "difficulty_score": 1})
	cur, err := r.Col.Find(ctx, bson.M{"course_id": courseID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var meta []models.QuestionMeta
	for cur.Next(ctx) {
		var row struct {
			ID              string   `bson:"_id"`
			DifficultyScore *float64 `bson:"difficulty_score"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		meta = append(meta, models.QuestionMeta{ID: row.ID, DifficultyScore: row.DifficultyScore})
	}
	return meta, nil
}

func (r *QuestionRepository) Create(ctx context.Context, question *models.Question) error {
	if question.ID == "" {
		question.ID = primitive.NewObjectID().Hex()
	}
	_, err := r.Col.InsertOne(ctx, question)
	return err
}

// IncrementStats bumps the global attempt counters shown in course analytics.
func (r *QuestionRepository) IncrementStats(ctx context.Context, id string, incorrect bool) error {
	inc := bson.M{"total_attempts": 1}
	if incorrect {
		inc["total_incorrect"] = 1
	}
	_, err := r.Col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": inc})
	return err
}
