// Package mongo stores the ledger and archive namespaces in two MongoDB
// collections, one document per key with the key as _id.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ledgerbook/internal/store"
)

// Collection names.
const (
	LedgerCollection  = "ledger"
	ArchiveCollection = "archive"
)

const connectTimeout = 10 * time.Second

// DB wraps a MongoDB client and its two namespaces.
type DB struct {
	client  *mongo.Client
	ledger  *Store
	archive *Store
}

// Store implements store.Store on a single collection.
type Store struct {
	coll *mongo.Collection
}

var (
	_ store.Store  = (*Store)(nil)
	_ store.Pinger = (*Store)(nil)
)

type document struct {
	Key       string    `bson:"_id"`
	Value     []byte    `bson:"value"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// Connect opens a client against uri and uses database dbName.
func Connect(ctx context.Context, uri, dbName string) (*DB, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping MongoDB: %w", err)
	}

	database := client.Database(dbName)
	slog.InfoContext(ctx, "Connected to MongoDB", "database", dbName)

	return &DB{
		client:  client,
		ledger:  &Store{coll: database.Collection(LedgerCollection)},
		archive: &Store{coll: database.Collection(ArchiveCollection)},
	}, nil
}

func (d *DB) Ledger() *Store { return d.ledger }

func (d *DB) Archive() *Store { return d.archive }

func (d *DB) Close(ctx context.Context) error {
	return d.client.Disconnect(ctx)
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var doc document
	err := s.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, store.ReadError("get", key, err)
	}
	return doc.Value, true, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	doc := document{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	opts := options.Replace().SetUpsert(true)
	if _, err := s.coll.ReplaceOne(ctx, bson.M{"_id": key}, doc, opts); err != nil {
		return store.WriteError("set", key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": key}); err != nil {
		return store.WriteError("delete", key, err)
	}
	return nil
}

// ListKeysWithPrefix uses an anchored regex on _id, which MongoDB serves
// from the primary key index.
func (s *Store) ListKeysWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetProjection(bson.M{"_id": 1})

	cursor, err := s.coll.Find(ctx, prefixFilter(prefix), opts)
	if err != nil {
		return nil, store.ReadError("list", prefix, err)
	}
	defer cursor.Close(ctx)

	var keys []string
	for cursor.Next(ctx) {
		var doc struct {
			Key string `bson:"_id"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, store.ReadError("list", prefix, err)
		}
		keys = append(keys, doc.Key)
	}
	if err := cursor.Err(); err != nil {
		return nil, store.ReadError("list", prefix, err)
	}
	return keys, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.coll.Database().Client().Ping(ctx, nil)
}

func prefixFilter(prefix string) bson.M {
	if prefix == "" {
		return bson.M{}
	}
	return bson.M{"_id": bson.M{"$regex": "^" + regexp.QuoteMeta(prefix)}}
}
