package roster

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRepository keeps the roster in MongoDB, one collection per roster.
type MongoRepository struct {
	students *mongo.Collection
	teachers *mongo.Collection
}

// NewMongoRepository creates a repo on an open database handle.
func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{
		students: db.Collection(studentsCollection),
		teachers: db.Collection(teachersCollection),
	}
}

// EnsureIndexes creates the unique and lookup indexes the roster relies on.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.students.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "idUnik", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "nisn", Value: 1}}},
		{Keys: bson.D{{Key: "class", Value: 1}, {Key: "name", Value: 1}}},
	})
	return errors.Wrap(err, "student indexes")
}

func (r *MongoRepository) GetStudent(ctx context.Context, id string) (Student, error) {
	return r.findOneStudent(ctx, bson.M{"_id": id})
}

func (r *MongoRepository) FindStudent(ctx context.Context, field StudentField, value string) (Student, error) {
	return r.findOneStudent(ctx, bson.M{string(field): value})
}

func (r *MongoRepository) findOneStudent(ctx context.Context, filter bson.M) (Student, error) {
	var st Student
	err := r.students.FindOne(ctx, filter).Decode(&st)
	if err == mongo.ErrNoDocuments {
		return Student{}, ErrNotFound
	}
	if err != nil {
		return Student{}, errors.Wrap(err, "find student")
	}
	return st, nil
}

func (r *MongoRepository) ListStudents(ctx context.Context) ([]Student, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}})
	return r.findStudents(ctx, bson.M{}, opts)
}

func (r *MongoRepository) ListStudentsByClass(ctx context.Context, class string, limit int) ([]Student, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}}).SetLimit(int64(limit))
	return r.findStudents(ctx, bson.M{"class": class}, opts)
}

func (r *MongoRepository) findStudents(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]Student, error) {
	cur, err := r.students.Find(ctx, filter, opts)
	if err != nil {
		return nil, errors.Wrap(err, "list students")
	}
	res := []Student{}
	if err := cur.All(ctx, &res); err != nil {
		return nil, errors.Wrap(err, "decode students")
	}
	return res, nil
}

func (r *MongoRepository) CreateStudent(ctx context.Context, st Student) (Student, error) {
	_, err := r.students.InsertOne(ctx, st)
	if mongo.IsDuplicateKeyError(err) {
		return Student{}, ErrDuplicate
	}
	return st, errors.Wrap(err, "create student")
}

func (r *MongoRepository) UpdateStudent(ctx context.Context, st Student) (Student, error) {
	var prev Student
	err := r.students.FindOneAndUpdate(ctx, bson.M{"_id": st.ID}, bson.M{"$set": bson.M{
		"schoolId":  st.SchoolID,
		"name":      st.Name,
		"idUnik":    st.IDUnik,
		"nisn":      st.NISN,
		"class":     st.Class,
		"gender":    st.Gender,
		"status":    st.Status,
		"updatedAt": st.UpdatedAt,
	}}).Decode(&prev)
	switch {
	case err == mongo.ErrNoDocuments:
		return Student{}, ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return Student{}, ErrDuplicate
	case err != nil:
		return Student{}, errors.Wrap(err, "update student")
	}
	st.CreatedAt = prev.CreatedAt
	return st, nil
}

func (r *MongoRepository) DeleteStudent(ctx context.Context, id string) error {
	return deleteOne(ctx, r.students, id)
}

func (r *MongoRepository) ListTeachers(ctx context.Context) ([]Teacher, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.teachers.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, errors.Wrap(err, "list teachers")
	}
	res := []Teacher{}
	if err := cur.All(ctx, &res); err != nil {
		return nil, errors.Wrap(err, "decode teachers")
	}
	return res, nil
}

func (r *MongoRepository) CreateTeacher(ctx context.Context, t Teacher) (Teacher, error) {
	_, err := r.teachers.InsertOne(ctx, t)
	if mongo.IsDuplicateKeyError(err) {
		return Teacher{}, ErrDuplicate
	}
	return t, errors.Wrap(err, "create teacher")
}

func (r *MongoRepository) UpdateTeacher(ctx context.Context, t Teacher) (Teacher, error) {
	var prev Teacher
	err := r.teachers.FindOneAndUpdate(ctx, bson.M{"_id": t.ID}, bson.M{"$set": bson.M{
		"schoolId":  t.SchoolID,
		"name":      t.Name,
		"nip":       t.NIP,
		"subject":   t.Subject,
		"gender":    t.Gender,
		"status":    t.Status,
		"updatedAt": t.UpdatedAt,
	}}).Decode(&prev)
	if err == mongo.ErrNoDocuments {
		return Teacher{}, ErrNotFound
	}
	if err != nil {
		return Teacher{}, errors.Wrap(err, "update teacher")
	}
	t.CreatedAt = prev.CreatedAt
	return t, nil
}

func (r *MongoRepository) DeleteTeacher(ctx context.Context, id string) error {
	return deleteOne(ctx, r.teachers, id)
}

func deleteOne(ctx context.Context, coll *mongo.Collection, id string) error {
	res, err := coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return errors.Wrap(err, "delete")
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
