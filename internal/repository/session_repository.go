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

type SessionRepository struct {
	Col *mongo.Collection
}

func NewSessionRepository(db *mongo.Database) *SessionRepository {
	return &SessionRepository{Col: db.Collection("quiz_sessions")}
}

func (r *SessionRepository) FindByID(ctx context.Context, id string) (*models.QuizSession, error) {
	var session models.QuizSession
	err := r.Col.FindOne(ctx, bson.M{"_id": id}).Decode(&session)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// Create inserts the session. The partial unique index on in_progress
// sessions makes a concurrent second start fail with a duplicate key error;
// the caller maps that to its own sentinel.
func (r *SessionRepository) Create(ctx context.Context, session *models.QuizSession) error {
	if session.ID == "" {
		session.ID = primitive.NewObjectID().Hex()
	}
	_, err := r.Col.InsertOne(ctx, session)
	return err
}

func (r *SessionRepository) Finish(ctx context.Context, id, status string, finalScore float64, completedAt time.Time) error {
	update := bson.M{
		"status":       status,
		"final_score":  finalScore,
		"completed_at": completedAt,
	}
	_, err := r.Col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": update})
	return err
}

func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	_, err := r.Col.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// FinishedByUser returns the user's terminal sessions, most recent first.
func (r *SessionRepository) FinishedByUser(ctx context.Context, userID string) ([]models.QuizSession, error) {
	filter := bson.M{
		"user_id": userID,
		"status":  bson.M{"$ne": models.StatusInProgress},
	}
	opts := options.Find().SetSort(bson.D{{Key: "completed_at", Value: -1}})
	cur, err := r.Col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var sessions []models.QuizSession
	for cur.Next(ctx) {
		var s models.QuizSession
		if err := cur.Decode(&s); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, nil
}

// StaleBefore returns in_progress sessions started before the cutoff, for the
// maintenance sweep that marks abandoned quizzes incomplete.
func (r *SessionRepository) StaleBefore(ctx context.Context, cutoff time.Time) ([]models.QuizSession, error) {
	filter := bson.M{
		"status":     models.StatusInProgress,
		"started_at": bson.M{"$lt": cutoff},
	}
	cur, err := r.Col.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var sessions []models.QuizSession
	for cur.Next(ctx) {
		var s models.QuizSession
		if err := cur.Decode(&s); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, nil
}
