package repository

import (
	"alcyxob/classroom-app/internal/domain"
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error constants for repository layer
var (
	ErrNotFound     = RepositoryError("not found")
	ErrDuplicate    = RepositoryError("duplicate key")
	ErrUpdateFailed = RepositoryError("update failed")
	ErrDeleteFailed = RepositoryError("delete failed")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// UserRepository defines the interface for interacting with user data.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	// ListByRole returns every user when role is empty.
	ListByRole(ctx context.Context, role domain.Role) ([]domain.User, error)
	// Update writes name, email and password hash. ErrDuplicate when the email is taken.
	Update(ctx context.Context, user *domain.User) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	AddClassRef(ctx context.Context, userID, classID primitive.ObjectID) error
	RemoveClassRef(ctx context.Context, userID, classID primitive.ObjectID) error
	// RemoveClassRefsFromAll pulls the given class ids from every user.
	RemoveClassRefsFromAll(ctx context.Context, classIDs []primitive.ObjectID) error
}

// ClassRepository defines the interface for interacting with class data.
type ClassRepository interface {
	// Create returns ErrDuplicate when the join code is already taken.
	Create(ctx context.Context, class *domain.Class) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Class, error)
	GetByJoinCode(ctx context.Context, code string) (*domain.Class, error)
	GetByTeacherID(ctx context.Context, teacherID primitive.ObjectID) ([]domain.Class, error)
	GetByStudentID(ctx context.Context, studentID primitive.ObjectID) ([]domain.Class, error)
	// Update writes name and description; roster and join code are left untouched.
	Update(ctx context.Context, class *domain.Class) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	// AddStudent returns ErrDuplicate when the student is already on the roster.
	AddStudent(ctx context.Context, classID, studentID primitive.ObjectID) error
	// RemoveStudent returns ErrNotFound when the student is not on the roster.
	RemoveStudent(ctx context.Context, classID, studentID primitive.ObjectID) error
	RemoveStudentFromAll(ctx context.Context, studentID primitive.ObjectID) error
	AddAssignment(ctx context.Context, classID, assignmentID primitive.ObjectID) error
	RemoveAssignment(ctx context.Context, classID, assignmentID primitive.ObjectID) error
	DeleteByTeacherID(ctx context.Context, teacherID primitive.ObjectID) ([]primitive.ObjectID, error)
}

// AssignmentRepository defines the interface for interacting with assignment data.
// Submission mutations are atomic per document, so at most one entry per student survives concurrent writers.
type AssignmentRepository interface {
	Create(ctx context.Context, assignment *domain.Assignment) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Assignment, error)
	GetByTrainerID(ctx context.Context, trainerID primitive.ObjectID) ([]domain.Assignment, error)
	GetByClassID(ctx context.Context, classID primitive.ObjectID) ([]domain.Assignment, error)
	GetByClassIDs(ctx context.Context, classIDs []primitive.ObjectID) ([]domain.Assignment, error)
	// Update writes the mutable metadata fields; submissions are left untouched.
	Update(ctx context.Context, assignment *domain.Assignment) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	DeleteByTrainerID(ctx context.Context, trainerID primitive.ObjectID) (int64, error)
	// DeleteByClassID removes every assignment issued in classID and returns them.
	DeleteByClassID(ctx context.Context, classID primitive.ObjectID) ([]domain.Assignment, error)

	// AppendSubmission adds sub unless an entry for sub.StudentID exists (ErrDuplicate).
	AppendSubmission(ctx context.Context, assignmentID primitive.ObjectID, sub domain.Submission) error
	// RemoveSubmission deletes the entry for studentID (ErrNotFound if none).
	RemoveSubmission(ctx context.Context, assignmentID, studentID primitive.ObjectID) error
	// SetEvaluation records marks/rating/remark in place (ErrNotFound if no entry).
	SetEvaluation(ctx context.Context, assignmentID, studentID primitive.ObjectID, eval domain.Evaluation) error
	// RemoveStudentSubmissions drops every submission made by studentID.
	RemoveStudentSubmissions(ctx context.Context, studentID primitive.ObjectID) error
}
