package repository

import (
	"context"
	"time"

	"github.com/Kevin-nav/AskTheSage/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// RosterRepository holds the frozen per-session question lists.
type RosterRepository struct {
	Col *mongo.Collection
}

func NewRosterRepository(db *mongo.Database) *RosterRepository {
	return &RosterRepository{Col: db.Collection("session_questions")}
}

func (r *RosterRepository) InsertMany(ctx context.Context, roster []models.QuizSessionQuestion) error {
	docs := make([]interface{}, len(roster))
	for i := range roster {
		if roster[i].ID == "" {
			roster[i].ID = primitive.NewObjectID().Hex()
		}
		docs[i] = roster[i]
	}
	_, err := r.Col.InsertMany(ctx, docs)
	return err
}

// NextUnanswered returns the lowest-order unanswered, non-reported entry, or
// nil when the session has none left.
func (r *RosterRepository) NextUnanswered(ctx context.Context, sessionID string, excludeIDs []string) (*models.QuizSessionQuestion, error) {
	filter := bson.M{
		"session_id":  sessionID,
		"is_answered": false,
		"is_reported": false,
	}
	if len(excludeIDs) > 0 {
		filter["question_id"] = bson.M{"$nin": excludeIDs}
	}
	opts := options.FindOne().SetSort(bson.D{{Key: "order_number", Value: 1}})

	var entry models.QuizSessionQuestion
	err := r.Col.FindOne(ctx, filter, opts).Decode(&entry)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *RosterRepository) Entry(ctx context.Context, sessionID, questionID string) (*models.QuizSessionQuestion, error) {
	var entry models.QuizSessionQuestion
	err := r.Col.FindOne(ctx, bson.M{
		"session_id":  sessionID,
		"question_id": questionID,
	}).Decode(&entry)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *RosterRepository) MarkAnswered(ctx context.Context, sessionID, questionID, userAnswer string, isCorrect bool, timeTaken int, answeredAt time.Time) error {
	update := bson.M{
		"is_answered":        true,
		"user_answer":        userAnswer,
		"is_correct":         isCorrect,
		"time_taken_seconds": timeTaken,
		"answered_at":        answeredAt,
	}
	_, err := r.Col.UpdateOne(ctx, bson.M{
		"session_id":  sessionID,
		"question_id": questionID,
	}, bson.M{"$set": update})
	return err
}

func (r *RosterRepository) MarkReported(ctx context.Context, sessionID, questionID string) error {
	_, err := r.Col.UpdateOne(ctx, bson.M{
		"session_id":  sessionID,
		"question_id": questionID,
	}, bson.M{"$set": bson.M{"is_reported": true}})
	return err
}

func (r *RosterRepository) DeleteBySession(ctx context.Context, sessionID string) error {
	_, err := r.Col.DeleteMany(ctx, bson.M{"session_id": sessionID})
	return err
}

func (r *RosterRepository) FindBySession(ctx context.Context, sessionID string) ([]models.QuizSessionQuestion, error) {
	opts := options.Find().SetSort(bson.D{{Key: "order_number", Value: 1}})
	cur, err := r.Col.Find(ctx, bson.M{"session_id": sessionID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var roster []models.QuizSessionQuestion
	for cur.Next(ctx) {
		var row models.QuizSessionQuestion
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		roster = append(roster, row)
	}
	return roster, nil
}
