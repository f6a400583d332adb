// Package memory provides map-backed implementations of the repository
// interfaces. It backs the "memory" database driver and the test suites.
package memory

import (
	"alcyxob/classroom-app/internal/domain"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DB holds every collection behind a single lock so multi-document
// operations observe a consistent snapshot.
type DB struct {
	mutex       sync.RWMutex
	users       map[primitive.ObjectID]*domain.User
	classes     map[primitive.ObjectID]*domain.Class
	assignments map[primitive.ObjectID]*domain.Assignment
}

// Open returns an empty in-memory database.
func Open() *DB {
	return &DB{
		users:       make(map[primitive.ObjectID]*domain.User),
		classes:     make(map[primitive.ObjectID]*domain.Class),
		assignments: make(map[primitive.ObjectID]*domain.Assignment),
	}
}

func copyIDs(ids []primitive.ObjectID) []primitive.ObjectID {
	out := make([]primitive.ObjectID, len(ids))
	copy(out, ids)
	return out
}

func removeID(ids []primitive.ObjectID, target primitive.ObjectID) ([]primitive.ObjectID, bool) {
	for i, id := range ids {
		if id == target {
			return append(ids[:i:i], ids[i+1:]...), true
		}
	}
	return ids, false
}

func containsID(ids []primitive.ObjectID, target primitive.ObjectID) bool {
	for _, id := range ids {
		if id == target {
			return true
		}
	}
	return false
}
