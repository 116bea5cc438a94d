package attendance

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/pkg/errors"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const attendanceCollection = "attendance"

// FirestoreStore keeps day records in the attendance collection. Apply runs
// inside a Firestore transaction, which retries on contention and so turns
// the slot check into a compare-and-set.
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore creates a store on an open client.
func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

func (s *FirestoreStore) Get(ctx context.Context, key string) (Record, error) {
	doc, err := s.client.Collection(attendanceCollection).Doc(key).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return Record{}, ErrRecordNotFound
	}
	if err != nil {
		return Record{}, errors.Wrap(err, "get attendance record")
	}
	return recordFromDoc(doc)
}

func (s *FirestoreStore) Apply(ctx context.Context, key string, fn MutateFunc) (Record, error) {
	ref := s.client.Collection(attendanceCollection).Doc(key)
	var out Record
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		var cur Record
		exists := true
		doc, err := tx.Get(ref)
		switch {
		case status.Code(err) == codes.NotFound:
			exists = false
		case err != nil:
			return errors.Wrap(err, "read attendance record")
		default:
			if cur, err = recordFromDoc(doc); err != nil {
				return err
			}
		}

		patch, err := fn(cur, exists)
		if err != nil {
			return err
		}

		data := map[string]interface{}{
			string(patch.Slot): patch.Value,
			"status":           patch.Status,
			"studentName":      patch.StudentName,
			"class":            patch.Class,
			"idUnik":           patch.IDUnik,
			"version":          cur.Version + 1,
			"updatedAt":        firestore.ServerTimestamp,
		}
		if !exists {
			data["studentId"] = patch.StudentID
			data["date"] = patch.Date
			for _, slot := range Slots {
				if slot != patch.Slot {
					data[string(slot)] = ""
				}
			}
		}

		out = cur
		out.Apply(key, patch, exists)
		out.Version = cur.Version + 1
		out.UpdatedAt = time.Now().UTC()
		return tx.Set(ref, data, firestore.MergeAll)
	})
	if err != nil {
		return Record{}, err
	}
	return out, nil
}

func (s *FirestoreStore) ListByDate(ctx context.Context, date, class string) ([]Record, error) {
	q := s.client.Collection(attendanceCollection).Where("date", "==", date)
	if class != "" {
		q = q.Where("class", "==", class)
	}
	iter := q.Documents(ctx)
	defer iter.Stop()
	res := []Record{}
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "list attendance records")
		}
		rec, err := recordFromDoc(doc)
		if err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	sortRecords(res)
	return res, nil
}

func recordFromDoc(doc *firestore.DocumentSnapshot) (Record, error) {
	var rec Record
	if err := doc.DataTo(&rec); err != nil {
		return Record{}, errors.Wrap(err, "decode attendance record")
	}
	rec.ID = doc.Ref.ID
	return rec, nil
}
