package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/medirank/medirank-api/internal/models"
)

const (
	inspectionsCollection = "inspections"
	usersCollection       = "users"
)

type inspectionDocument struct {
	ID                primitive.ObjectID `bson:"_id,omitempty"`
	models.Inspection `bson:",inline"`
}

func (d inspectionDocument) model() models.Inspection {
	out := d.Inspection
	out.ID = d.ID.Hex()
	fillDefaults(&out)
	return out
}

type userDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	models.User `bson:",inline"`
}

func (d userDocument) model() models.User {
	out := d.User
	out.ID = d.ID.Hex()
	return out
}

// MongoInspectionRepository stores inspections in the inspections collection.
type MongoInspectionRepository struct {
	col *mongo.Collection
}

func NewMongoInspectionRepository(db *mongo.Database) *MongoInspectionRepository {
	return &MongoInspectionRepository{col: db.Collection(inspectionsCollection)}
}

// EnsureIndexes creates the created_at and status indexes.
func (r *MongoInspectionRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
	})
	if err != nil {
		return mongoErr("create inspection indexes", err)
	}
	return nil
}

func (r *MongoInspectionRepository) Create(ctx context.Context, in *models.Inspection) error {
	fillDefaults(in)
	doc := inspectionDocument{ID: primitive.NewObjectID(), Inspection: *in}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return mongoErr("insert inspection", err)
	}
	in.ID = doc.ID.Hex()
	return nil
}

func (r *MongoInspectionRepository) Replace(ctx context.Context, id string, in models.Inspection) (models.Inspection, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.Inspection{}, ErrNotFound
	}
	fillDefaults(&in)
	set, err := mutableFields(in)
	if err != nil {
		return models.Inspection{}, fmt.Errorf("encode inspection: %w", err)
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc inspectionDocument
	err = r.col.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&doc)
	if err != nil {
		return models.Inspection{}, mongoErr("replace inspection", err)
	}
	return doc.model(), nil
}

// mutableFields encodes in without created_at, which an update never touches.
func mutableFields(in models.Inspection) (bson.D, error) {
	raw, err := bson.Marshal(in)
	if err != nil {
		return nil, err
	}
	var fields bson.D
	if err := bson.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	out := make(bson.D, 0, len(fields))
	for _, e := range fields {
		if e.Key == "created_at" {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *MongoInspectionRepository) FindByID(ctx context.Context, id string) (models.Inspection, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.Inspection{}, ErrNotFound
	}
	var doc inspectionDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return models.Inspection{}, mongoErr("find inspection", err)
	}
	return doc.model(), nil
}

func (r *MongoInspectionRepository) List(ctx context.Context, limit int) ([]models.Inspection, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(clampLimit(limit)))

	cur, err := r.col.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, mongoErr("list inspections", err)
	}
	defer cur.Close(ctx)

	out := make([]models.Inspection, 0)
	for cur.Next(ctx) {
		var doc inspectionDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode inspection: %w", err)
		}
		out = append(out, doc.model())
	}
	if err := cur.Err(); err != nil {
		return nil, mongoErr("list inspections", err)
	}
	return out, nil
}

type statusGroup struct {
	Status interface{} `bson:"_id"`
	Count  int64       `bson:"count"`
}

func (r *MongoInspectionRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$status"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}
	cur, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, mongoErr("aggregate statuses", err)
	}
	defer cur.Close(ctx)

	var rows []statusGroup
	if err := cur.All(ctx, &rows); err != nil {
		return nil, mongoErr("aggregate statuses", err)
	}
	return foldStatusGroups(rows), nil
}

func foldStatusGroups(rows []statusGroup) map[string]int64 {
	groups := make(map[string]int64, len(rows))
	for _, row := range rows {
		groups[statusKey(row.Status)] += row.Count
	}
	return groups
}

func statusKey(v interface{}) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(s)
	}
}

func (r *MongoInspectionRepository) Count(ctx context.Context) (int64, error) {
	n, err := r.col.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, mongoErr("count inspections", err)
	}
	return n, nil
}

func (r *MongoInspectionRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return mongoErr("delete inspection", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// MongoUserRepository stores users in the users collection.
type MongoUserRepository struct {
	col *mongo.Collection
}

func NewMongoUserRepository(db *mongo.Database) *MongoUserRepository {
	return &MongoUserRepository{col: db.Collection(usersCollection)}
}

// EnsureIndexes creates the unique email index.
func (r *MongoUserRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return mongoErr("create user indexes", err)
	}
	return nil
}

func (r *MongoUserRepository) Create(ctx context.Context, u *models.User) error {
	doc := userDocument{ID: primitive.NewObjectID(), User: *u}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return mongoErr("insert user", err)
	}
	u.ID = doc.ID.Hex()
	return nil
}

func (r *MongoUserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	var doc userDocument
	if err := r.col.FindOne(ctx, bson.M{"email": email}).Decode(&doc); err != nil {
		return models.User{}, mongoErr("find user", err)
	}
	return doc.model(), nil
}

// mongoErr maps driver errors onto the package sentinels.
func mongoErr(op string, err error) error {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%s: %w", op, ErrDuplicate)
	case isMongoUnavailable(err):
		return fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func isMongoUnavailable(err error) bool {
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) {
		return true
	}
	if errors.Is(err, mongo.ErrClientDisconnected) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return strings.Contains(err.Error(), "server selection")
}
