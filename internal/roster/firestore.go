package roster

import (
	"context"
	"strings"

	"cloud.google.com/go/firestore"
	"github.com/pkg/errors"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	studentsCollection = "students"
	teachersCollection = "teachers"
)

// FirestoreRepository keeps the roster in Firestore collections keyed by
// the internal id.
type FirestoreRepository struct {
	client *firestore.Client
}

// NewFirestoreRepository creates a repo on an open client.
func NewFirestoreRepository(client *firestore.Client) *FirestoreRepository {
	return &FirestoreRepository{client: client}
}

func (r *FirestoreRepository) GetStudent(ctx context.Context, id string) (Student, error) {
	// scanned payloads are tried as keys first, so any string may arrive here
	if !validDocID(id) {
		return Student{}, ErrNotFound
	}
	doc, err := r.client.Collection(studentsCollection).Doc(id).Get(ctx)
	switch status.Code(err) {
	case codes.NotFound, codes.InvalidArgument:
		return Student{}, ErrNotFound
	}
	if err != nil {
		return Student{}, errors.Wrap(err, "get student")
	}
	return studentFromDoc(doc)
}

// maxDocIDBytes is the Firestore limit on a document id.
const maxDocIDBytes = 1500

// validDocID reports whether id can name a document: non-empty, at most 1500
// bytes, no "/", not "." or "..", and not of the reserved form __x__.
func validDocID(id string) bool {
	switch {
	case id == "", id == ".", id == "..", len(id) > maxDocIDBytes, strings.Contains(id, "/"):
		return false
	case len(id) >= 4 && strings.HasPrefix(id, "__") && strings.HasSuffix(id, "__"):
		return false
	}
	return true
}

func (r *FirestoreRepository) FindStudent(ctx context.Context, field StudentField, value string) (Student, error) {
	iter := r.client.Collection(studentsCollection).Where(string(field), "==", value).Limit(1).Documents(ctx)
	defer iter.Stop()
	doc, err := iter.Next()
	if err == iterator.Done {
		return Student{}, ErrNotFound
	}
	if err != nil {
		return Student{}, errors.Wrap(err, "find student")
	}
	return studentFromDoc(doc)
}

func (r *FirestoreRepository) ListStudents(ctx context.Context) ([]Student, error) {
	q := r.client.Collection(studentsCollection).OrderBy("name", firestore.Asc)
	return r.queryStudents(ctx, q)
}

// ListStudentsByClass filters by class only; Firestore would need a composite
// index to order by name as well, so ordering is left to the caller.
func (r *FirestoreRepository) ListStudentsByClass(ctx context.Context, class string, limit int) ([]Student, error) {
	q := r.client.Collection(studentsCollection).Where("class", "==", class).Limit(limit)
	return r.queryStudents(ctx, q)
}

func (r *FirestoreRepository) queryStudents(ctx context.Context, q firestore.Query) ([]Student, error) {
	iter := q.Documents(ctx)
	defer iter.Stop()
	res := []Student{}
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "list students")
		}
		st, err := studentFromDoc(doc)
		if err != nil {
			return nil, err
		}
		res = append(res, st)
	}
	return res, nil
}

func (r *FirestoreRepository) CreateStudent(ctx context.Context, st Student) (Student, error) {
	_, err := r.client.Collection(studentsCollection).Doc(st.ID).Create(ctx, st)
	if status.Code(err) == codes.AlreadyExists {
		return Student{}, ErrDuplicate
	}
	return st, errors.Wrap(err, "create student")
}

func (r *FirestoreRepository) UpdateStudent(ctx context.Context, st Student) (Student, error) {
	ref := r.client.Collection(studentsCollection).Doc(st.ID)
	_, err := ref.Update(ctx, []firestore.Update{
		{Path: "schoolId", Value: st.SchoolID},
		{Path: "name", Value: st.Name},
		{Path: "idUnik", Value: st.IDUnik},
		{Path: "nisn", Value: st.NISN},
		{Path: "class", Value: st.Class},
		{Path: "gender", Value: st.Gender},
		{Path: "status", Value: st.Status},
		{Path: "updatedAt", Value: st.UpdatedAt},
	})
	if status.Code(err) == codes.NotFound {
		return Student{}, ErrNotFound
	}
	if err != nil {
		return Student{}, errors.Wrap(err, "update student")
	}
	return r.GetStudent(ctx, st.ID)
}

func (r *FirestoreRepository) DeleteStudent(ctx context.Context, id string) error {
	return r.delete(ctx, studentsCollection, id)
}

func (r *FirestoreRepository) ListTeachers(ctx context.Context) ([]Teacher, error) {
	iter := r.client.Collection(teachersCollection).OrderBy("name", firestore.Asc).Documents(ctx)
	defer iter.Stop()
	res := []Teacher{}
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "list teachers")
		}
		var t Teacher
		if err := doc.DataTo(&t); err != nil {
			return nil, errors.Wrap(err, "decode teacher")
		}
		t.ID = doc.Ref.ID
		res = append(res, t)
	}
	return res, nil
}

func (r *FirestoreRepository) CreateTeacher(ctx context.Context, t Teacher) (Teacher, error) {
	_, err := r.client.Collection(teachersCollection).Doc(t.ID).Create(ctx, t)
	if status.Code(err) == codes.AlreadyExists {
		return Teacher{}, ErrDuplicate
	}
	return t, errors.Wrap(err, "create teacher")
}

func (r *FirestoreRepository) UpdateTeacher(ctx context.Context, t Teacher) (Teacher, error) {
	ref := r.client.Collection(teachersCollection).Doc(t.ID)
	_, err := ref.Update(ctx, []firestore.Update{
		{Path: "schoolId", Value: t.SchoolID},
		{Path: "name", Value: t.Name},
		{Path: "nip", Value: t.NIP},
		{Path: "subject", Value: t.Subject},
		{Path: "gender", Value: t.Gender},
		{Path: "status", Value: t.Status},
		{Path: "updatedAt", Value: t.UpdatedAt},
	})
	if status.Code(err) == codes.NotFound {
		return Teacher{}, ErrNotFound
	}
	if err != nil {
		return Teacher{}, errors.Wrap(err, "update teacher")
	}
	doc, err := ref.Get(ctx)
	if err != nil {
		return Teacher{}, errors.Wrap(err, "get teacher")
	}
	var out Teacher
	if err := doc.DataTo(&out); err != nil {
		return Teacher{}, errors.Wrap(err, "decode teacher")
	}
	out.ID = doc.Ref.ID
	return out, nil
}

func (r *FirestoreRepository) DeleteTeacher(ctx context.Context, id string) error {
	return r.delete(ctx, teachersCollection, id)
}

func (r *FirestoreRepository) delete(ctx context.Context, collection, id string) error {
	_, err := r.client.Collection(collection).Doc(id).Delete(ctx, firestore.Exists)
	if status.Code(err) == codes.NotFound {
		return ErrNotFound
	}
	return errors.Wrap(err, "delete "+collection)
}

func studentFromDoc(doc *firestore.DocumentSnapshot) (Student, error) {
	var st Student
	if err := doc.DataTo(&st); err != nil {
		return Student{}, errors.Wrap(err, "decode student")
	}
	st.ID = doc.Ref.ID
	return st, nil
}
