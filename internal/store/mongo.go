package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"plaksha/ocr-api/internal/model"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	accountCollection    = "accounts"
	extractionCollection = "extractions"
)

type MongoAccounts struct {
	coll *mongo.Collection
}

type MongoExtractions struct {
	coll *mongo.Collection
}

// NewMongoStores creates the collections' indexes and returns both stores
func NewMongoStores(ctx context.Context, db *mongo.Database) (*MongoAccounts, *MongoExtractions, error) {
	accounts := db.Collection(accountCollection)
	extractions := db.Collection(extractionCollection)

	// Strength 2 compares case-insensitively, so "A@x.com" and "a@x.com"
	// can't both be inserted by racing registrations
	_, err := accounts.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "email", Value: 1}},
		Options: options.Index().
			SetUnique(true).
			SetCollation(&options.Collation{Locale: "en", Strength: 2}),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create account indexes, %w", err)
	}

	_, err = extractions.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create extraction indexes, %w", err)
	}

	return &MongoAccounts{coll: accounts}, &MongoExtractions{coll: extractions}, nil
}

// emailFilter matches the whole email ignoring case. The input is escaped
// so it can't smuggle regex syntax into the query
func emailFilter(email string) bson.M {
	return bson.M{"email": bson.M{
		"$regex":   "^" + regexp.QuoteMeta(email) + "$",
		"$options": "i",
	}}
}

func consumeFilter(email, code string, now time.Time) bson.M {
	f := emailFilter(email)
	f["verifyCode"] = code
	f["verifyCodeExpiry"] = bson.M{"$gt": now}
	f["isVerified"] = false

	return f
}

func translateMongo(err error) error {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return ErrDuplicate
	default:
		return err
	}
}

func (s *MongoAccounts) FindByEmail(ctx context.Context, email string) (*model.Account, error) {
	var a model.Account
	if err := s.coll.FindOne(ctx, emailFilter(email)).Decode(&a); err != nil {
		return nil, translateMongo(err)
	}

	return &a, nil
}

func (s *MongoAccounts) Create(ctx context.Context, a *model.Account) error {
	id, err := newID()
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	a.ID = id
	a.CreatedAt = now
	a.UpdatedAt = now

	_, err = s.coll.InsertOne(ctx, a)
	return translateMongo(err)
}

func (s *MongoAccounts) UpdatePending(ctx context.Context, id string, u PendingUpdate) error {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": id, "isVerified": false},
		bson.M{"$set": bson.M{
			"password":         u.PasswordHash,
			"verifyCode":       u.VerifyCode,
			"verifyCodeExpiry": u.VerifyCodeExpiry,
			"updatedAt":        time.Now().UTC(),
		}},
	)
	if err != nil {
		return translateMongo(err)
	}

	if res.MatchedCount == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *MongoAccounts) ConsumeCode(ctx context.Context, email, code string, now time.Time) (*model.Account, error) {
	res := s.coll.FindOneAndUpdate(ctx,
		consumeFilter(email, code, now),
		bson.M{"$set": bson.M{
			"isVerified":       true,
			"verifyCode":       "",
			"verifyCodeExpiry": now,
			"updatedAt":        now,
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)

	var a model.Account
	if err := res.Decode(&a); err != nil {
		return nil, translateMongo(err)
	}

	return &a, nil
}

func (s *MongoExtractions) Create(ctx context.Context, r *model.ExtractionRecord) error {
	id, err := newID()
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	r.ID = id
	r.CreatedAt = now
	r.UpdatedAt = now

	_, err = s.coll.InsertOne(ctx, r)
	return translateMongo(err)
}

func (s *MongoExtractions) ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.ExtractionRecord, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(clampLimit(limit))).
		SetSkip(int64(max(offset, 0)))

	cursor, err := s.coll.Find(ctx, bson.M{"user": userID}, opts)
	if err != nil {
		return nil, translateMongo(err)
	}
	defer cursor.Close(ctx)

	records := []model.ExtractionRecord{}
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}

	return records, nil
}

func (s *MongoExtractions) FindByID(ctx context.Context, userID, id string) (*model.ExtractionRecord, error) {
	var r model.ExtractionRecord
	if err := s.coll.FindOne(ctx, bson.M{"_id": id, "user": userID}).Decode(&r); err != nil {
		return nil, translateMongo(err)
	}

	return &r, nil
}
