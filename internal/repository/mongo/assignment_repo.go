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

const assignmentCollectionName = "assignments"

// mongoAssignmentRepository implements repository.AssignmentRepository.
// Submissions are embedded in the assignment document; every submission
// mutation is a single conditional update so concurrent writers cannot
// lose entries or create duplicates.
type mongoAssignmentRepository struct {
	collection *mongo.Collection
}

// NewMongoAssignmentRepository creates a new Assignment repository backed by MongoDB.
func NewMongoAssignmentRepository(db *mongo.Database) repository.AssignmentRepository {
	return &mongoAssignmentRepository{
		collection: db.Collection(assignmentCollectionName),
	}
}

// Create inserts a new assignment into the database.
func (r *mongoAssignmentRepository) Create(ctx context.Context, assignment *domain.Assignment) (primitive.ObjectID, error) {
	if assignment.TrainerID == primitive.NilObjectID || assignment.ClassID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("assignment requires trainerId and classId")
	}

	assignment.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	if assignment.AssignDate.IsZero() {
		assignment.AssignDate = now
	}
	assignment.CreatedAt = now
	assignment.UpdatedAt = now
	if assignment.Submissions == nil {
		// $push needs an array, never null
		assignment.Submissions = []domain.Submission{}
	}

	result, err := r.collection.InsertOne(ctx, assignment)
	if err != nil {
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted assignment ID")
	}
	return insertedID, nil
}

// GetByID retrieves an assignment by its ID.
func (r *mongoAssignmentRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Assignment, error) {
	var assignment domain.Assignment
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&assignment)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &assignment, nil
}

// GetByTrainerID retrieves all assignments owned by a specific trainer.
func (r *mongoAssignmentRepository) GetByTrainerID(ctx context.Context, trainerID primitive.ObjectID) ([]domain.Assignment, error) {
	return r.find(ctx, bson.M{"trainerId": trainerID})
}

// GetByClassID retrieves all assignments issued in a class.
func (r *mongoAssignmentRepository) GetByClassID(ctx context.Context, classID primitive.ObjectID) ([]domain.Assignment, error) {
	return r.find(ctx, bson.M{"classId": classID})
}

// GetByClassIDs retrieves all assignments of several classes at once.
func (r *mongoAssignmentRepository) GetByClassIDs(ctx context.Context, classIDs []primitive.ObjectID) ([]domain.Assignment, error) {
	if len(classIDs) == 0 {
		return []domain.Assignment{}, nil
	}
	return r.find(ctx, bson.M{"classId": bson.M{"$in": classIDs}})
}

func (r *mongoAssignmentRepository) find(ctx context.Context, filter bson.M) ([]domain.Assignment, error) {
	assignments := []domain.Assignment{}
	// Soonest due first
	findOptions := options.Find().SetSort(bson.D{{Key: "dueDate", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &assignments); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return assignments, nil
}

// Update writes the metadata fields of an assignment. Ownership, class and
// submissions are deliberately absent from the $set document.
func (r *mongoAssignmentRepository) Update(ctx context.Context, assignment *domain.Assignment) error {
	if assignment.ID == primitive.NilObjectID {
		return errors.New("assignment ID is required for update")
	}

	assignment.UpdatedAt = time.Now().UTC()
	update := bson.M{"$set": bson.M{
		"title":       assignment.Title,
		"description": assignment.Description,
		"dueDate":     assignment.DueDate,
		"totalMarks":  assignment.TotalMarks,
		"fileLink":    assignment.FileLink,
		"updatedAt":   assignment.UpdatedAt,
	}}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": assignment.ID}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Delete removes an assignment.
func (r *mongoAssignmentRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeleteByTrainerID removes every assignment owned by trainerID.
func (r *mongoAssignmentRepository) DeleteByTrainerID(ctx context.Context, trainerID primitive.ObjectID) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{"trainerId": trainerID})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

// DeleteByClassID removes the assignments of classID and returns what was removed.
func (r *mongoAssignmentRepository) DeleteByClassID(ctx context.Context, classID primitive.ObjectID) ([]domain.Assignment, error) {
	assignments, err := r.GetByClassID(ctx, classID)
	if err != nil {
		return nil, err
	}
	if len(assignments) == 0 {
		return assignments, nil
	}
	if _, err := r.collection.DeleteMany(ctx, bson.M{"classId": classID}); err != nil {
		return nil, err
	}
	return assignments, nil
}

// AppendSubmission pushes sub only when no entry for the same student exists.
func (r *mongoAssignmentRepository) AppendSubmission(ctx context.Context, assignmentID primitive.ObjectID, sub domain.Submission) error {
	filter := bson.M{
		"_id":                   assignmentID,
		"submissions.studentId": bson.M{"$ne": sub.StudentID},
	}
	update := bson.M{
		"$push": bson.M{"submissions": sub},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return r.missOrDuplicate(ctx, assignmentID)
	}
	return nil
}

// RemoveSubmission pulls the entry of studentID.
func (r *mongoAssignmentRepository) RemoveSubmission(ctx context.Context, assignmentID, studentID primitive.ObjectID) error {
	filter := bson.M{"_id": assignmentID, "submissions.studentId": studentID}
	update := bson.M{
		"$pull": bson.M{"submissions": bson.M{"studentId": studentID}},
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

// SetEvaluation sets marks, rating and remark on the entry of studentID using the positional operator.
func (r *mongoAssignmentRepository) SetEvaluation(ctx context.Context, assignmentID, studentID primitive.ObjectID, eval domain.Evaluation) error {
	filter := bson.M{"_id": assignmentID, "submissions.studentId": studentID}
	update := bson.M{"$set": bson.M{
		"submissions.$.marks":  eval.Marks,
		"submissions.$.rating": eval.Rating,
		"submissions.$.remark": eval.Remark,
		"updatedAt":            time.Now().UTC(),
	}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// RemoveStudentSubmissions drops the student's entries from every assignment.
func (r *mongoAssignmentRepository) RemoveStudentSubmissions(ctx context.Context, studentID primitive.ObjectID) error {
	filter := bson.M{"submissions.studentId": studentID}
	update := bson.M{
		"$pull": bson.M{"submissions": bson.M{"studentId": studentID}},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	}
	_, err := r.collection.UpdateMany(ctx, filter, update)
	return err
}

func (r *mongoAssignmentRepository) missOrDuplicate(ctx context.Context, id primitive.ObjectID) error {
	count, err := r.collection.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if count == 0 {
		return repository.ErrNotFound
	}
	return repository.ErrDuplicate
}

// EnsureAssignmentIndexes creates necessary indexes for the assignments collection.
func EnsureAssignmentIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "trainerId", Value: 1}},
			Options: options.Index(),
		},
		{
			// Class listings sorted by due date
			Keys:    bson.D{{Key: "classId", Value: 1}, {Key: "dueDate", Value: 1}},
			Options: options.Index(),
		},
		{
			// Student-centric lookups (submitted/pending views, account deletion)
			Keys:    bson.D{{Key: "submissions.studentId", Value: 1}},
			Options: options.Index(),
		},
	}

	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		log.Printf("WARN: Failed to create indexes for collection %s: %v", collection.Name(), err)
	}
}
