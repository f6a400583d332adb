package domain

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role type to distinguish between user roles
type Role string

// Define constants for roles
const (
	RoleStudent Role = "student"
	RoleTrainer Role = "trainer"
	RoleAdmin   Role = "admin"
)

// ParseRole converts a raw string into a Role, rejecting anything outside the closed set.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleStudent, RoleTrainer, RoleAdmin:
		return r, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

// User represents an account in the system (student, trainer or admin).
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Email        string             `bson:"email" json:"email"`    // Unique
	PasswordHash string             `bson:"passwordHash" json:"-"` // Never expose this via JSON
	Role         Role               `bson:"role" json:"role"`      // Immutable after creation
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`

	// Classes taught (trainer) or joined (student).
	// For students this mirrors Class.StudentIDs, see ClassMembership.
	ClassRefs []primitive.ObjectID `bson:"classRefs,omitempty" json:"classRefs,omitempty"`
}

func (u *User) IsStudent() bool {
	return u.Role == RoleStudent
}

func (u *User) IsTrainer() bool {
	return u.Role == RoleTrainer
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// HasClass reports whether classID is among the user's class references.
func (u *User) HasClass(classID primitive.ObjectID) bool {
	for _, id := range u.ClassRefs {
		if id == classID {
			return true
		}
	}
	return false
}
