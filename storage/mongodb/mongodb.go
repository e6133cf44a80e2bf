// Package mongodb provides a core.Storage backend on MongoDB.
package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/lanternsoft/authbridge/core"
)

// Store is a MongoDB core.Storage implementation. Each model maps to a
// collection.
type Store struct {
	client   *mongo.Client
	database *mongo.Database
}

// New connects to MongoDB.
func New(uri, database string) (*Store, error) {
	if uri == "" || database == "" {
		return nil, fmt.Errorf("mongodb requires uri and database")
	}
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}
	return &Store{client: client, database: client.Database(database)}, nil
}

// ID returns the storage identifier.
func (s *Store) ID() string {
	return "mongodb"
}

func (s *Store) collection(model string) *mongo.Collection {
	return s.database.Collection(model)
}

// Create inserts a document.
func (s *Store) Create(ctx context.Context, model string, data map[string]interface{}) (map[string]interface{}, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("mongodb create: no data provided")
	}
	if _, err := s.collection(model).InsertOne(ctx, data); err != nil {
		return nil, fmt.Errorf("mongodb create: %w", err)
	}
	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out, nil
}

// FindOne returns the first matching document, or nil.
func (s *Store) FindOne(ctx context.Context, query *core.Query) (map[string]interface{}, error) {
	res := s.collection(query.Model).FindOne(ctx, buildFilter(query.Where))
	if res.Err() == mongo.ErrNoDocuments {
		return nil, nil
	}
	if res.Err() != nil {
		return nil, fmt.Errorf("mongodb find one: %w", res.Err())
	}
	var out map[string]interface{}
	if err := res.Decode(&out); err != nil {
		return nil, fmt.Errorf("mongodb decode: %w", err)
	}
	delete(out, "_id")
	return out, nil
}

// FindMany returns all matching documents.
func (s *Store) FindMany(ctx context.Context, query *core.Query) ([]map[string]interface{}, error) {
	opts := options.Find()
	if query.Limit > 0 {
		opts.SetLimit(int64(query.Limit))
	}
	if query.Offset > 0 {
		opts.SetSkip(int64(query.Offset))
	}
	if len(query.OrderBy) > 0 {
		sortDoc := bson.D{}
		for _, ob := range query.OrderBy {
			dir := 1
			if ob.Desc {
				dir = -1
			}
			sortDoc = append(sortDoc, bson.E{Key: ob.Field, Value: dir})
		}
		opts.SetSort(sortDoc)
	}

	cursor, err := s.collection(query.Model).Find(ctx, buildFilter(query.Where), opts)
	if err != nil {
		return nil, fmt.Errorf("mongodb find many: %w", err)
	}
	defer cursor.Close(ctx)

	var out []map[string]interface{}
	for cursor.Next(ctx) {
		var doc map[string]interface{}
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("mongodb decode: %w", err)
		}
		delete(doc, "_id")
		out = append(out, doc)
	}
	return out, cursor.Err()
}

// Update merges data into the first matching document and returns it.
func (s *Store) Update(ctx context.Context, query *core.Query, data map[string]interface{}) (map[string]interface{}, error) {
	after := options.After
	res := s.collection(query.Model).FindOneAndUpdate(ctx,
		buildFilter(query.Where),
		bson.M{"$set": data},
		options.FindOneAndUpdate().SetReturnDocument(after),
	)
	if res.Err() == mongo.ErrNoDocuments {
		return nil, nil
	}
	if res.Err() != nil {
		return nil, fmt.Errorf("mongodb update: %w", res.Err())
	}
	var out map[string]interface{}
	if err := res.Decode(&out); err != nil {
		return nil, fmt.Errorf("mongodb decode: %w", err)
	}
	delete(out, "_id")
	return out, nil
}

// Delete removes all matching documents.
func (s *Store) Delete(ctx context.Context, query *core.Query) error {
	if _, err := s.collection(query.Model).DeleteMany(ctx, buildFilter(query.Where)); err != nil {
		return fmt.Errorf("mongodb delete: %w", err)
	}
	return nil
}

// Count returns the number of matching documents.
func (s *Store) Count(ctx context.Context, query *core.Query) (int64, error) {
	count, err := s.collection(query.Model).CountDocuments(ctx, buildFilter(query.Where))
	if err != nil {
		return 0, fmt.Errorf("mongodb count: %w", err)
	}
	return count, nil
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Close disconnects the client.
func (s *Store) Close() error {
	return s.client.Disconnect(context.Background())
}

func buildFilter(where []core.WhereClause) bson.M {
	filter := bson.M{}
	for _, w := range where {
		switch w.Operator {
		case core.OpNotEqual:
			filter[w.Field] = bson.M{"$ne": w.Value}
		case core.OpGreaterThan:
			filter[w.Field] = bson.M{"$gt": w.Value}
		case core.OpLessThan:
			filter[w.Field] = bson.M{"$lt": w.Value}
		case core.OpIn:
			filter[w.Field] = bson.M{"$in": w.Value}
		default:
			filter[w.Field] = w.Value
		}
	}
	return filter
}
