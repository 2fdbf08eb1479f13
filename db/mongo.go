package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"bifurcation/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	runsCollection = "runs"
	gapsCollection = "gaps"
)

type MongoClient struct {
	client   *mongo.Client
	database *mongo.Database
}

type runDocument struct {
	ID          string    `bson:"_id"`
	CreatedAt   time.Time `bson:"createdAt"`
	SeriesPath  string    `bson:"seriesPath,omitempty"`
	Spectrum    string    `bson:"spectrum"`
	Seed        int64     `bson:"seed"`
	StepSize    float64   `bson:"stepSize"`
	Alpha       float64   `bson:"alpha"`
	Samples     int       `bson:"samples"`
	Transitions int       `bson:"transitions"`
	FinalState  float64   `bson:"finalState"`
	Stats       string    `bson:"stats,omitempty"`
}

type gapsDocument struct {
	RunID  string    `bson:"_id"`
	Values []float64 `bson:"values"`
}

func NewMongoClient(ctx context.Context, uri, database string) (*MongoClient, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("error connecting to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("error pinging MongoDB: %w", err)
	}

	return &MongoClient{client: client, database: client.Database(database)}, nil
}

func (db *MongoClient) Close() error {
	if db.client != nil {
		return db.client.Disconnect(context.Background())
	}
	return nil
}

func toRunDocument(run models.Run) runDocument {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	return runDocument{
		ID:          run.ID,
		CreatedAt:   run.CreatedAt,
		SeriesPath:  run.SeriesPath,
		Spectrum:    run.Spectrum,
		Seed:        run.Seed,
		StepSize:    run.StepSize,
		Alpha:       run.Alpha,
		Samples:     run.Samples,
		Transitions: run.Transitions,
		FinalState:  run.FinalState,
		Stats:       string(run.Stats),
	}
}

func fromRunDocument(doc runDocument) models.Run {
	run := models.Run{
		ID:          doc.ID,
		CreatedAt:   doc.CreatedAt,
		SeriesPath:  doc.SeriesPath,
		Spectrum:    doc.Spectrum,
		Seed:        doc.Seed,
		StepSize:    doc.StepSize,
		Alpha:       doc.Alpha,
		Samples:     doc.Samples,
		Transitions: doc.Transitions,
		FinalState:  doc.FinalState,
	}
	if doc.Stats != "" {
		run.Stats = json.RawMessage(doc.Stats)
	}
	return run
}

// SaveRun upserts a run summary.
func (db *MongoClient) SaveRun(ctx context.Context, run models.Run) error {
	if run.ID == "" {
		return fmt.Errorf("run without id: %w", models.ErrInvalidArgument)
	}
	doc := toRunDocument(run)
	_, err := db.database.Collection(runsCollection).ReplaceOne(
		ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("error storing run: %w", err)
	}
	return nil
}

// SaveGaps upserts the gaps of runID as one document.
func (db *MongoClient) SaveGaps(ctx context.Context, runID string, gaps []float64) error {
	doc := gapsDocument{RunID: runID, Values: gaps}
	_, err := db.database.Collection(gapsCollection).ReplaceOne(
		ctx, bson.M{"_id": runID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("error storing gaps: %w", err)
	}
	return nil
}

// GetRun retrieves a run by id.
func (db *MongoClient) GetRun(ctx context.Context, id string) (models.Run, bool, error) {
	var doc runDocument
	err := db.database.Collection(runsCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Run{}, false, nil
		}
		return models.Run{}, false, fmt.Errorf("failed to retrieve run: %w", err)
	}
	return fromRunDocument(doc), true, nil
}

// GetGaps returns the gaps of runID, or an empty slice when none were stored.
func (db *MongoClient) GetGaps(ctx context.Context, runID string) ([]float64, error) {
	var doc gapsDocument
	err := db.database.Collection(gapsCollection).FindOne(ctx, bson.M{"_id": runID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return []float64{}, nil
		}
		return nil, fmt.Errorf("error querying gaps: %w", err)
	}
	if doc.Values == nil {
		return []float64{}, nil
	}
	return doc.Values, nil
}

// ListRuns returns every run, newest first.
func (db *MongoClient) ListRuns(ctx context.Context) ([]models.Run, error) {
	cursor, err := db.database.Collection(runsCollection).Find(
		ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("error querying runs: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []runDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("error decoding runs: %w", err)
	}

	runs := make([]models.Run, len(docs))
	for i, doc := range docs {
		runs[i] = fromRunDocument(doc)
	}
	return runs, nil
}
