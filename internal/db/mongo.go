package db

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var Client *mongo.Client

func InitMongo(uri string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		log.Fatalf("Failed to ping MongoDB: %v", err)
	}
	Client = client
	log.Println("Connected to MongoDB")
}

// EnsureIndexes creates the indexes the engine depends on. The partial unique
// index on quiz_sessions is the duplicate-start guard: two concurrent starts
// for one user race at the insert, and mongo rejects the loser with a
// duplicate key error.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection("quiz_sessions").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}},
		Options: options.Index().
			SetName("one_in_progress_per_user").
			SetUnique(true).
			SetPartialFilterExpression(bson.M{"status": "in_progress"}),
	})
	if err != nil {
		return err
	}

	_, err = db.Collection("session_questions").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "session_id", Value: 1}, {Key: "question_id", Value: 1}},
			Options: options.Index().
				SetName("roster_entry").
				SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "session_id", Value: 1}, {Key: "order_number", Value: 1}},
			Options: options.Index().SetName("roster_order"),
		},
	})
	if err != nil {
		return err
	}

	_, err = db.Collection("user_answers").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "question_id", Value: 1}, {Key: "timestamp", Value: -1}},
		Options: options.Index().SetName("answer_history"),
	})
	if err != nil {
		return err
	}

	_, err = db.Collection("interaction_logs").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "question_id", Value: 1}},
		Options: options.Index().SetName("interaction_counts"),
	})
	if err != nil {
		return err
	}

	_, err = db.Collection("questions").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "course_id", Value: 1}},
		Options: options.Index().SetName("questions_by_course"),
	})
	return err
}
