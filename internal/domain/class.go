package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Class groups students under exactly one teaching trainer.
// The class is owned by its teacher; students hold a non-owning membership reference.
type Class struct {
	ID            primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name          string               `bson:"name" json:"name"`
	Description   string               `bson:"description,omitempty" json:"description,omitempty"`
	TeacherID     primitive.ObjectID   `bson:"teacherId" json:"teacherId"`
	StudentIDs    []primitive.ObjectID `bson:"studentIds" json:"studentIds"`                           // No duplicates
	AssignmentIDs []primitive.ObjectID `bson:"assignmentIds,omitempty" json:"assignmentIds,omitempty"` // Assignments issued in this class
	JoinCode      string               `bson:"joinCode" json:"joinCode"`                               // Globally unique
	CreatedAt     time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// HasStudent reports whether studentID is on the roster.
func (c *Class) HasStudent(studentID primitive.ObjectID) bool {
	for _, id := range c.StudentIDs {
		if id == studentID {
			return true
		}
	}
	return false
}
