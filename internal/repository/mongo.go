package repository

import (
	"context"
	"fmt"
	"time"

	"yesteryear/internal/config"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Collection names within the application database.
const (
	collectionGroups        = "groups"
	collectionWeeklyQuizzes = "weekly_quizzes"
	collectionYearNews      = "year_news"
	collectionArticles      = "year_news_articles"
)

// NewMongoDatabase connects to MongoDB and verifies the connection.
func NewMongoDatabase(ctx context.Context, mongoCfg config.MongoConfig) (*mongo.Database, error) {
	if mongoCfg.URI == "" {
		return nil, fmt.Errorf("mongo configuration is missing or URI is empty")
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(mongoCfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return client.Database(mongoCfg.Database), nil
}
