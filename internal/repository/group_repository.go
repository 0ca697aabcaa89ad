package repository

import (
	"context"
	"errors"

	"yesteryear/internal/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoGroupRepository implements domain.GroupRepository.
type MongoGroupRepository struct {
	collection *mongo.Collection
}

// NewMongoGroupRepository creates a group repository on the given database.
func NewMongoGroupRepository(db *mongo.Database) *MongoGroupRepository {
	return &MongoGroupRepository{collection: db.Collection(collectionGroups)}
}

// GetGroup returns the group document, or (nil, nil) when it does not exist.
func (r *MongoGroupRepository) GetGroup(ctx context.Context, groupID string) (*domain.Group, error) {
	var group domain.Group
	err := r.collection.FindOne(ctx, bson.M{"_id": groupID}).Decode(&group)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &group, nil
}

// IsMember reports whether uid belongs to the group.
func (r *MongoGroupRepository) IsMember(ctx context.Context, groupID, uid string) (bool, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"_id": groupID, "memberUids": uid})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
