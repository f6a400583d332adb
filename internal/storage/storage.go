package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Default expiry duration for presigned URLs
const DefaultPresignedURLExpiry = 15 * time.Minute

var ErrInvalidObjectKey = errors.New("invalid object key")

// FileStorage defines the interface for object storage operations.
type FileStorage interface {
	// GeneratePresignedUploadURL creates a temporary URL that allows PUT requests
	// for uploading an object directly to the storage provider.
	GeneratePresignedUploadURL(ctx context.Context, objectKey string, contentType string, expires time.Duration) (string, error)

	// GeneratePresignedDownloadURL creates a temporary URL that allows GET requests.
	GeneratePresignedDownloadURL(ctx context.Context, objectKey string, expires time.Duration) (string, error)

	DeleteObject(ctx context.Context, objectKey string) error
}

// AssignmentObjectKey returns a fresh key for a trainer's assignment attachment:
// assignments/<classId>/<uuid><ext>.
func AssignmentObjectKey(classID primitive.ObjectID, fileName string) string {
	return fmt.Sprintf("assignments/%s/%s%s", classID.Hex(), uuid.NewString(), cleanExt(fileName))
}

// SubmissionObjectKey returns a fresh key for a student's submission file:
// submissions/<assignmentId>/<studentId>/<uuid><ext>.
func SubmissionObjectKey(assignmentID, studentID primitive.ObjectID, fileName string) string {
	return fmt.Sprintf("submissions/%s/%s/%s%s", assignmentID.Hex(), studentID.Hex(), uuid.NewString(), cleanExt(fileName))
}

// IsManagedKey reports whether a stored file link points into this bucket's
// key space rather than at an external URL.
func IsManagedKey(link string) bool {
	return strings.HasPrefix(link, "assignments/") || strings.HasPrefix(link, "submissions/")
}

// ValidateKey rejects keys that try to escape the managed prefixes.
func ValidateKey(key string) error {
	if !IsManagedKey(key) || strings.Contains(key, "..") || path.Clean(key) != key {
		return fmt.Errorf("%w: %q", ErrInvalidObjectKey, key)
	}
	return nil
}

func cleanExt(fileName string) string {
	ext := strings.ToLower(path.Ext(path.Base(fileName)))
	if len(ext) > 10 || strings.ContainsAny(ext, "/\\ ") {
		return ""
	}
	return ext
}
