package mongo

import (
	"alcyxob/classroom/internal/domain"
	"alcyxob/classroom/internal/repository"
	"context"
	"errors"
	"fmt"
	"log"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultCourseCollection is where course documents live; each document is
// keyed by course id.
const DefaultCourseCollection = "subjects"

// mongoCourseRepository implements repository.CourseStore
type mongoCourseRepository struct {
	collection *mongo.Collection
}

// NewMongoCourseRepository creates a course document store backed by MongoDB.
func NewMongoCourseRepository(db *mongo.Database, collectionName string) repository.CourseStore {
	if collectionName == "" {
		collectionName = DefaultCourseCollection
	}
	return &mongoCourseRepository{
		collection: db.Collection(collectionName),
	}
}

// Get retrieves a course document by its course id.
func (r *mongoCourseRepository) Get(ctx context.Context, courseID string) (*domain.CourseDocument, error) {
	var doc domain.CourseDocument
	err := r.collection.FindOne(ctx, bson.M{"_id": courseID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &doc, nil
}

// Replace overwrites the subject list of a course, creating the document if
// it does not exist. lastUpdated is stamped by the server.
func (r *mongoCourseRepository) Replace(ctx context.Context, doc *domain.CourseDocument) error {
	if doc == nil || doc.CourseID == "" {
		return errors.New("course document requires a course id")
	}
	subjects := doc.Subjects
	if subjects == nil {
		subjects = []domain.Subject{}
	}

	update := bson.M{
		"$set":         bson.M{"subjects": subjects},
		"$currentDate": bson.M{"lastUpdated": true},
	}
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": doc.CourseID}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("%w: course %s: %w", repository.ErrUpdateFailed, doc.CourseID, err)
	}
	return nil
}

// courseChangeEvent is the subset of a change stream event we decode.
type courseChangeEvent struct {
	OperationType string                 `bson:"operationType"`
	FullDocument  *domain.CourseDocument `bson:"fullDocument"`
}

// Watch opens a change stream filtered to one course document. Updates are
// delivered with the full post-image so listeners always see a whole document.
func (r *mongoCourseRepository) Watch(ctx context.Context, courseID string, onChange func(*domain.CourseDocument), onError func(error)) (func(), error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{
			{Key: "documentKey._id", Value: courseID},
			{Key: "operationType", Value: bson.M{"$in": bson.A{"insert", "replace", "update"}}},
		}}},
	}
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)

	watchCtx, cancel := context.WithCancel(ctx)
	stream, err := r.collection.Watch(watchCtx, pipeline, opts)
	if err != nil {
		cancel()
		return nil, err
	}

	go func() {
		defer stream.Close(context.Background())
		for stream.Next(watchCtx) {
			var event courseChangeEvent
			if err := stream.Decode(&event); err != nil {
				log.Printf("WARN: Skipping undecodable change event for course '%s': %v", courseID, err)
				continue
			}
			if event.FullDocument == nil {
				continue
			}
			onChange(event.FullDocument)
		}
		if watchCtx.Err() != nil {
			return // cancelled by the caller
		}
		err := stream.Err()
		if err == nil {
			err = repository.ErrWatchClosed
		}
		if onError != nil {
			onError(err)
		}
	}()

	return cancel, nil
}

// List retrieves every course document in the collection.
func (r *mongoCourseRepository) List(ctx context.Context) ([]domain.CourseDocument, error) {
	var docs []domain.CourseDocument
	cursor, err := r.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}

// EnsureCourseIndexes creates necessary indexes for the course collection.
func EnsureCourseIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			// Resolving a course from a cached subject id
			Keys:    bson.D{{Key: "subjects.id", Value: 1}},
			Options: options.Index(),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		log.Printf("WARN: Failed to create indexes for collection %s: %v", collection.Name(), err)
	}
}
