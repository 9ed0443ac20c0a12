package repository

import (
	"context"

	"github.com/Kevin-nav/AskTheSage/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type CourseRepository struct {
	Col *mongo.Collection
}

func NewCourseRepository(db *mongo.Database) *CourseRepository {
	return &CourseRepository{Col: db.Collection("courses")}
}

func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	var course models.Course
	err := r.Col.FindOne(ctx, bson.M{"_id": id}).Decode(&course)
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *CourseRepository) FindAll(ctx context.Context) ([]models.Course, error) {
	cur, err := r.Col.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var courses []models.Course
	for cur.Next(ctx) {
		var c models.Course
		if err := cur.Decode(&c); err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}
	return courses, nil
}

func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = primitive.NewObjectID().Hex()
	}
	_, err := r.Col.InsertOne(ctx, course)
	return err
}

// RecalculateDifficultyRange recomputes a course's min/max difficulty from its
// scored questions and stores the result. Courses with no scored questions get
// their bounds cleared.
func (r *CourseRepository) RecalculateDifficultyRange(ctx context.Context, questions *mongo.Collection, courseID string) error {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"course_id":        courseID,
			"difficulty_score": bson.M{"$ne": nil},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id": nil,
			"min": bson.M{"$min": "$difficulty_score"},
			"max": bson.M{"$max": "$difficulty_score"},
		}}},
	}

	cur, err := questions.Aggregate(ctx, pipeline)
	if err != nil {
		return err
	}
	defer cur.Close(ctx)

	var result struct {
		Min *float64 `bson:"min"`
		Max *float64 `bson:"max"`
	}
	if cur.Next(ctx) {
		if err := cur.Decode(&result); err != nil {
			return err
		}
	}

	update := bson.M{
		"min_difficulty": result.Min,
		"max_difficulty": result.Max,
	}
	_, err = r.Col.UpdateOne(ctx, bson.M{"_id": courseID}, bson.M{"$set": update})
	return err
}
