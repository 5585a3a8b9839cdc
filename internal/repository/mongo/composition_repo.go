package mongo

import (
	"alcyxob/composer/internal/domain"
	"alcyxob/composer/internal/repository"
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const compositionCollectionName = "compositions"

// mongoCompositionRepository implements repository.CompositionRepository
type mongoCompositionRepository struct {
	collection *mongo.Collection
	now        func() time.Time
}

// NewMongoCompositionRepository creates a composition repository backed by MongoDB.
func NewMongoCompositionRepository(db *mongo.Database) repository.CompositionRepository {
	return newCompositionRepository(db.Collection(compositionCollectionName))
}

func newCompositionRepository(collection *mongo.Collection) *mongoCompositionRepository {
	return &mongoCompositionRepository{
		collection: collection,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Create inserts a new composition. Empty slices are stored as empty arrays, never null.
func (r *mongoCompositionRepository) Create(ctx context.Context, seed *domain.Composition) (*domain.Composition, error) {
	if err := repository.ValidateContent(domain.Content{
		CompositionType: seed.CompositionType,
		MediaFiles:      seed.MediaFiles,
		Elements:        seed.Elements,
	}); err != nil {
		return nil, err
	}

	created := *seed
	created.ID = primitive.NewObjectID()
	now := r.now()
	created.CreatedAt = now
	created.UpdatedAt = now
	if created.MediaFiles == nil {
		created.MediaFiles = []domain.MediaFile{}
	}
	if created.Elements == nil {
		created.Elements = []domain.Element{}
	}

	if _, err := r.collection.InsertOne(ctx, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// GetByID retrieves a composition by its ID.
func (r *mongoCompositionRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Composition, error) {
	var composition domain.Composition
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&composition)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &composition, nil
}

// List returns all compositions sorted by creation time, newest first.
func (r *mongoCompositionRepository) List(ctx context.Context) ([]domain.Composition, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, bson.M{}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	compositions := []domain.Composition{}
	if err = cursor.All(ctx, &compositions); err != nil {
		return nil, err
	}
	return compositions, nil
}

// Replace overwrites elements, mediaFiles, backgroundColor and compositionType
// in one findAndModify, and title/description when given.
func (r *mongoCompositionRepository) Replace(ctx context.Context, id primitive.ObjectID, content domain.Content) (*domain.Composition, error) {
	if err := repository.ValidateContent(content); err != nil {
		return nil, err
	}

	elements := content.Elements
	if elements == nil {
		elements = []domain.Element{}
	}
	mediaFiles := content.MediaFiles
	if mediaFiles == nil {
		mediaFiles = []domain.MediaFile{}
	}

	set := bson.M{
		"elements":        elements,
		"mediaFiles":      mediaFiles,
		"backgroundColor": content.BackgroundColor,
		"compositionType": content.CompositionType,
		"updatedAt":       r.now(),
	}
	if content.Title != nil {
		set["title"] = *content.Title
	}
	if content.Description != nil {
		set["description"] = *content.Description
	}

	return r.findAndUpdate(ctx, id, bson.M{"$set": set})
}

// AppendMediaFiles pushes files onto mediaFiles with $each so the append is atomic.
func (r *mongoCompositionRepository) AppendMediaFiles(ctx context.Context, id primitive.ObjectID, files ...domain.MediaFile) (*domain.Composition, error) {
	for _, f := range files {
		if !f.Type.Valid() {
			return nil, fmt.Errorf("%w: media file type %q", repository.ErrInvalidContent, f.Type)
		}
	}

	update := bson.M{
		"$push": bson.M{"mediaFiles": bson.M{"$each": files}},
		"$set":  bson.M{"updatedAt": r.now()},
	}
	return r.findAndUpdate(ctx, id, update)
}

// Delete removes a composition document.
func (r *mongoCompositionRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *mongoCompositionRepository) findAndUpdate(ctx context.Context, id primitive.ObjectID, update bson.M) (*domain.Composition, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var composition domain.Composition
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&composition)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &composition, nil
}

// EnsureCompositionIndexes creates the index backing the newest-first gallery listing.
func EnsureCompositionIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("compositions_created_at"),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}

// EnsureIndexes creates every index the repositories in db rely on.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	if err := EnsureCompositionIndexes(ctx, db.Collection(compositionCollectionName)); err != nil {
		return fmt.Errorf("ensure %s indexes: %w", compositionCollectionName, err)
	}
	return nil
}
