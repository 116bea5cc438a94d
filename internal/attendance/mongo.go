package attendance

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore keeps day records in MongoDB. Apply is an optimistic
// compare-and-set on the record version and the target slot still being
// empty; a lost race re-reads and re-runs the mutation.
type MongoStore struct {
	coll *mongo.Collection
	now  func() time.Time
}

// NewMongoStore creates a store on an open database handle.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{coll: db.Collection(attendanceCollection), now: time.Now}
}

// EnsureIndexes creates the day/class index used by reports.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "date", Value: 1}, {Key: "class", Value: 1}},
	})
	return errors.Wrap(err, "attendance indexes")
}

func (s *MongoStore) Get(ctx context.Context, key string) (Record, error) {
	var rec Record
	err := s.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&rec)
	if err == mongo.ErrNoDocuments {
		return Record{}, ErrRecordNotFound
	}
	if err != nil {
		return Record{}, errors.Wrap(err, "get attendance record")
	}
	return rec, nil
}

func (s *MongoStore) Apply(ctx context.Context, key string, fn MutateFunc) (Record, error) {
	for attempt := 0; attempt < maxApplyAttempts; attempt++ {
		cur, err := s.Get(ctx, key)
		exists := true
		if errors.Is(err, ErrRecordNotFound) {
			cur, exists = Record{}, false
		} else if err != nil {
			return Record{}, err
		}

		patch, err := fn(cur, exists)
		if err != nil {
			return Record{}, err
		}

		out := cur
		out.Apply(key, patch, exists)
		out.Version = cur.Version + 1
		out.UpdatedAt = s.now().UTC()

		if !exists {
			_, err := s.coll.InsertOne(ctx, out)
			if mongo.IsDuplicateKeyError(err) {
				continue
			}
			if err != nil {
				return Record{}, errors.Wrap(err, "insert attendance record")
			}
			return out, nil
		}

		filter := bson.M{
			"_id":     key,
			"version": cur.Version,
			// records written by other tools may lack the slot field entirely
			"$or": bson.A{
				bson.M{string(patch.Slot): bson.M{"$in": bson.A{"", "-"}}},
				bson.M{string(patch.Slot): bson.M{"$exists": false}},
			},
		}
		update := bson.M{
			"$set": bson.M{
				string(patch.Slot): patch.Value,
				"status":           patch.Status,
				"studentName":      patch.StudentName,
				"class":            patch.Class,
				"idUnik":           patch.IDUnik,
			},
			"$inc":         bson.M{"version": 1},
			"$currentDate": bson.M{"updatedAt": true},
		}
		res, err := s.coll.UpdateOne(ctx, filter, update)
		if err != nil {
			return Record{}, errors.Wrap(err, "update attendance record")
		}
		if res.MatchedCount == 0 {
			continue
		}
		return out, nil
	}
	return Record{}, ErrContention
}

func (s *MongoStore) ListByDate(ctx context.Context, date, class string) ([]Record, error) {
	filter := bson.M{"date": date}
	if class != "" {
		filter["class"] = class
	}
	opts := options.Find().SetSort(bson.D{{Key: "studentName", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, errors.Wrap(err, "list attendance records")
	}
	res := []Record{}
	if err := cur.All(ctx, &res); err != nil {
		return nil, errors.Wrap(err, "decode attendance records")
	}
	return res, nil
}
