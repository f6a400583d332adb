package mongo

import (
	"alcyxob/classroom-app/internal/domain"
	"alcyxob/classroom-app/internal/repository"
	"context"
	"errors"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const classCollectionName = "classes"

// mongoClassRepository implements repository.ClassRepository
type mongoClassRepository struct {
	collection *mongo.Collection
}

// NewMongoClassRepository creates a new Class repository backed by MongoDB.
func NewMongoClassRepository(db *mongo.Database) repository.ClassRepository {
	return &mongoClassRepository{
		collection: db.Collection(classCollectionName),
	}
}

// Create inserts a new class. The unique joinCode index turns collisions into ErrDuplicate.
func (r *mongoClassRepository) Create(ctx context.Context, class *domain.Class) (primitive.ObjectID, error) {
	if class.TeacherID == primitive.NilObjectID || class.Name == "" || class.JoinCode == "" {
		return primitive.NilObjectID, errors.New("class requires teacherId, name and joinCode")
	}

	class.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	class.CreatedAt = now
	class.UpdatedAt = now
	if class.StudentIDs == nil {
		class.StudentIDs = []primitive.ObjectID{}
	}
	if class.AssignmentIDs == nil {
		class.AssignmentIDs = []primitive.ObjectID{}
	}

	result, err := r.collection.InsertOne(ctx, class)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted class ID")
	}
	return insertedID, nil
}

// GetByID retrieves a class by its ID.
func (r *mongoClassRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Class, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

// GetByJoinCode resolves a join code to its class.
func (r *mongoClassRepository) GetByJoinCode(ctx context.Context, code string) (*domain.Class, error) {
	return r.findOne(ctx, bson.M{"joinCode": code})
}

func (r *mongoClassRepository) findOne(ctx context.Context, filter bson.M) (*domain.Class, error) {
	var class domain.Class
	err := r.collection.FindOne(ctx, filter).Decode(&class)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &class, nil
}

// GetByTeacherID lists classes taught by teacherID.
func (r *mongoClassRepository) GetByTeacherID(ctx context.Context, teacherID primitive.ObjectID) ([]domain.Class, error) {
	return r.find(ctx, bson.M{"teacherId": teacherID})
}

// GetByStudentID lists classes whose roster contains studentID.
func (r *mongoClassRepository) GetByStudentID(ctx context.Context, studentID primitive.ObjectID) ([]domain.Class, error) {
	return r.find(ctx, bson.M{"studentIds": studentID})
}

func (r *mongoClassRepository) find(ctx context.Context, filter bson.M) ([]domain.Class, error) {
	classes := []domain.Class{}
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &classes); err != nil {
		return nil, err
	}
	return classes, nil
}

// Update writes name and description.
func (r *mongoClassRepository) Update(ctx context.Context, class *domain.Class) error {
	if class.ID == primitive.NilObjectID {
		return errors.New("class ID is required for update")
	}

	class.UpdatedAt = time.Now().UTC()
	update := bson.M{"$set": bson.M{
		"name":        class.Name,
		"description": class.Description,
		"updatedAt":   class.UpdatedAt,
	}}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": class.ID}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Delete removes a class document.
func (r *mongoClassRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// AddStudent puts studentID on the roster, failing with ErrDuplicate if already there.
func (r *mongoClassRepository) AddStudent(ctx context.Context, classID, studentID primitive.ObjectID) error {
	filter := bson.M{"_id": classID, "studentIds": bson.M{"$ne": studentID}}
	update := bson.M{
		"$push": bson.M{"studentIds": studentID},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	}
	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return r.missOrDuplicate(ctx, classID)
	}
	return nil
}

// missOrDuplicate tells apart "class missing" from "guard filter excluded it".
func (r *mongoClassRepository) missOrDuplicate(ctx context.Context, classID primitive.ObjectID) error {
	count, err := r.collection.CountDocuments(ctx, bson.M{"_id": classID})
	if err != nil {
		return err
	}
	if count == 0 {
		return repository.ErrNotFound
	}
	return repository.ErrDuplicate
}

// RemoveStudent takes studentID off the roster.
func (r *mongoClassRepository) RemoveStudent(ctx context.Context, classID, studentID primitive.ObjectID) error {
	filter := bson.M{"_id": classID, "studentIds": studentID}
	update := bson.M{
		"$pull": bson.M{"studentIds": studentID},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	}
	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// RemoveStudentFromAll takes studentID off every roster.
func (r *mongoClassRepository) RemoveStudentFromAll(ctx context.Context, studentID primitive.ObjectID) error {
	update := bson.M{
		"$pull": bson.M{"studentIds": studentID},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	}
	_, err := r.collection.UpdateMany(ctx, bson.M{"studentIds": studentID}, update)
	return err
}

// AddAssignment records an assignment reference on the class.
func (r *mongoClassRepository) AddAssignment(ctx context.Context, classID, assignmentID primitive.ObjectID) error {
	update := bson.M{
		"$addToSet": bson.M{"assignmentIds": assignmentID},
		"$set":      bson.M{"updatedAt": time.Now().UTC()},
	}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": classID}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// RemoveAssignment drops an assignment reference from the class.
func (r *mongoClassRepository) RemoveAssignment(ctx context.Context, classID, assignmentID primitive.ObjectID) error {
	update := bson.M{
		"$pull": bson.M{"assignmentIds": assignmentID},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	}
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": classID}, update)
	return err
}

// DeleteByTeacherID removes every class taught by teacherID and returns their ids.
func (r *mongoClassRepository) DeleteByTeacherID(ctx context.Context, teacherID primitive.ObjectID) ([]primitive.ObjectID, error) {
	classes, err := r.GetByTeacherID(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(classes))
	for _, c := range classes {
		ids = append(ids, c.ID)
	}
	if len(ids) == 0 {
		return ids, nil
	}
	if _, err := r.collection.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}}); err != nil {
		return nil, err
	}
	return ids, nil
}

// EnsureClassIndexes creates necessary indexes for the classes collection.
func EnsureClassIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			// Join codes are globally unique
			Keys:    bson.D{{Key: "joinCode", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "teacherId", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "studentIds", Value: 1}},
			Options: options.Index(),
		},
	}

	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		log.Printf("WARN: Failed to create indexes for collection %s: %v", collection.Name(), err)
	}
}
