package repository

import (
	"context"
	"errors"
	"time"

	"yesteryear/internal/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoNewsRepository implements domain.NewsRepository over the year_news
// and year_news_articles collections.
type MongoNewsRepository struct {
	packages *mongo.Collection
	articles *mongo.Collection
}

// NewMongoNewsRepository creates a news repository on the given database.
func NewMongoNewsRepository(db *mongo.Database) *MongoNewsRepository {
	return &MongoNewsRepository{
		packages: db.Collection(collectionYearNews),
		articles: db.Collection(collectionArticles),
	}
}

// GetPackage returns the year's package, or (nil, nil) when none exists.
func (r *MongoNewsRepository) GetPackage(ctx context.Context, year int) (*domain.YearNewsPackage, error) {
	var pkg domain.YearNewsPackage
	err := r.packages.FindOne(ctx, bson.M{"_id": year}).Decode(&pkg)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &pkg, nil
}

// SavePackage overwrites the year's package wholesale.
func (r *MongoNewsRepository) SavePackage(ctx context.Context, pkg *domain.YearNewsPackage) error {
	_, err := r.packages.ReplaceOne(ctx,
		bson.M{"_id": pkg.Year},
		pkg,
		options.Replace().SetUpsert(true),
	)
	return err
}

// PatchPackage merges only the reconciled fields into the stored package so
// it cannot clobber content added since the package was read.
func (r *MongoNewsRepository) PatchPackage(ctx context.Context, year int, hero []domain.NewsItem, byMonth map[string][]domain.NewsItem, updatedAt time.Time) error {
	_, err := r.packages.UpdateOne(ctx,
		bson.M{"_id": year},
		bson.M{"$set": bson.M{
			"hero":      hero,
			"byMonth":   byMonth,
			"updatedAt": updatedAt,
		}},
	)
	return err
}

// GetArticle returns the stored article, or (nil, nil) when none exists.
func (r *MongoNewsRepository) GetArticle(ctx context.Context, storyKey string) (*domain.Article, error) {
	var article domain.Article
	err := r.articles.FindOne(ctx, bson.M{"_id": storyKey}).Decode(&article)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &article, nil
}

// SaveArticle writes the article document once; articles are immutable
// after creation.
func (r *MongoNewsRepository) SaveArticle(ctx context.Context, article *domain.Article) error {
	_, err := r.articles.ReplaceOne(ctx,
		bson.M{"_id": article.StoryKey},
		article,
		options.Replace().SetUpsert(true),
	)
	return err
}
