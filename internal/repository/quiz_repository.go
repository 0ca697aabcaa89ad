package repository

import (
	"context"
	"errors"
	"fmt"

	"yesteryear/internal/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoQuizRepository implements domain.QuizRepository. One document per
// (group, week); saves replace the document wholesale.
type MongoQuizRepository struct {
	collection *mongo.Collection
}

// NewMongoQuizRepository creates a quiz repository on the given database.
func NewMongoQuizRepository(db *mongo.Database) *MongoQuizRepository {
	return &MongoQuizRepository{collection: db.Collection(collectionWeeklyQuizzes)}
}

func quizDocumentID(groupID, weekID string) string {
	return fmt.Sprintf("%s:%s", groupID, weekID)
}

// GetDefinition returns the stored quiz, or (nil, nil) when none exists.
func (r *MongoQuizRepository) GetDefinition(ctx context.Context, groupID, weekID string) (*domain.QuizDefinition, error) {
	var def domain.QuizDefinition
	err := r.collection.FindOne(ctx, bson.M{"_id": quizDocumentID(groupID, weekID)}).Decode(&def)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &def, nil
}

// SaveDefinition overwrites the quiz document, creating it if needed.
func (r *MongoQuizRepository) SaveDefinition(ctx context.Context, def *domain.QuizDefinition) error {
	def.ID = quizDocumentID(def.GroupID, def.WeekID)
	_, err := r.collection.ReplaceOne(ctx,
		bson.M{"_id": def.ID},
		def,
		options.Replace().SetUpsert(true),
	)
	return err
}
