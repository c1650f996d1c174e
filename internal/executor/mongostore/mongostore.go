// Package mongostore is the executor.Store implementation backing the Step
// Executor's durability guarantee with a schemaless MongoDB collection,
// upserted by entity id.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// stepRecord is the document shape persisted per (workflowID, stepName).
// Result carries the step's JSON-encoded return value verbatim; the store
// never interprets it.
type stepRecord struct {
	WorkflowID string    `bson:"workflow_id"`
	StepName   string    `bson:"step_name"`
	Result     []byte    `bson:"result"`
	UpdatedAt  time.Time `bson:"updated_at"`
}

// Store is the Mongo-backed executor.Store.
type Store struct {
	db         *mongo.Database
	collection string
}

// New wires a Store against db's step_results collection (or name, if given).
func New(db *mongo.Database, collectionName string) *Store {
	if collectionName == "" {
		collectionName = "step_results"
	}

	return &Store{db: db, collection: collectionName}
}

func (s *Store) coll() *mongo.Collection {
	return s.db.Collection(s.collection)
}

func (s *Store) Load(ctx context.Context, workflowID, stepName string) ([]byte, bool, error) {
	var record stepRecord

	err := s.coll().FindOne(ctx, bson.M{
		"workflow_id": workflowID,
		"step_name":   stepName,
	}).Decode(&record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("mongostore: find %s/%s: %w", workflowID, stepName, err)
	}

	return record.Result, true, nil
}

func (s *Store) Save(ctx context.Context, workflowID, stepName string, result []byte) error {
	filter := bson.M{
		"workflow_id": workflowID,
		"step_name":   stepName,
	}

	update := bson.M{
		"$set": bson.M{
			"result":     result,
			"updated_at": time.Now(),
		},
		"$setOnInsert": bson.M{
			"workflow_id": workflowID,
			"step_name":   stepName,
		},
	}

	opts := options.Update().SetUpsert(true)

	if _, err := s.coll().UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("mongostore: upsert %s/%s: %w", workflowID, stepName, err)
	}

	return nil
}
