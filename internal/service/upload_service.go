package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"alcyxob/classroom-app/internal/repository"
	"alcyxob/classroom-app/internal/storage"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UploadTicket tells a client where to PUT a file and which key to store as fileLink.
type UploadTicket struct {
	UploadURL string    `json:"uploadUrl"`
	ObjectKey string    `json:"objectKey"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// UploadService hands out presigned URLs for assignment and submission files.
type UploadService interface {
	RequestAssignmentUpload(ctx context.Context, actor Actor, classID primitive.ObjectID, fileName, contentType string) (*UploadTicket, error)
	RequestSubmissionUpload(ctx context.Context, actor Actor, assignmentID primitive.ObjectID, fileName, contentType string) (*UploadTicket, error)
	// DownloadURL resolves the assignment file, or a student's submission file when studentID is set.
	DownloadURL(ctx context.Context, actor Actor, assignmentID primitive.ObjectID, studentID *primitive.ObjectID) (string, error)
}

type uploadService struct {
	assignmentRepo repository.AssignmentRepository
	classRepo      repository.ClassRepository
	guard          *Guard
	files          storage.FileStorage
	expiry         time.Duration
}

// NewUploadService creates the upload service. files may be nil, in which case
// every call fails with ErrStorageUnavailable.
func NewUploadService(
	assignmentRepo repository.AssignmentRepository,
	classRepo repository.ClassRepository,
	guard *Guard,
	files storage.FileStorage,
	expiry time.Duration,
) UploadService {
	if expiry <= 0 {
		expiry = storage.DefaultPresignedURLExpiry
	}
	return &uploadService{
		assignmentRepo: assignmentRepo,
		classRepo:      classRepo,
		guard:          guard,
		files:          files,
		expiry:         expiry,
	}
}

func validateContentType(contentType string) error {
	if contentType == "" || !strings.Contains(contentType, "/") {
		return validationError("contentType must be a MIME type")
	}
	return nil
}

func (s *uploadService) ticket(ctx context.Context, key, contentType string) (*UploadTicket, error) {
	url, err := s.files.GeneratePresignedUploadURL(ctx, key, contentType, s.expiry)
	if err != nil {
		return nil, fmt.Errorf("%w: presign upload: %v", ErrStorageUnavailable, err)
	}
	return &UploadTicket{UploadURL: url, ObjectKey: key, ExpiresAt: time.Now().UTC().Add(s.expiry)}, nil
}

func (s *uploadService) RequestAssignmentUpload(ctx context.Context, actor Actor, classID primitive.ObjectID, fileName, contentType string) (*UploadTicket, error) {
	if s.files == nil {
		return nil, ErrStorageUnavailable
	}
	if err := validateContentType(contentType); err != nil {
		return nil, err
	}
	class, err := s.classRepo.GetByID(ctx, classID)
	if err != nil {
		return nil, translate(err, ErrClassNotFound)
	}
	if err := s.guard.Authorize(ctx, actor, ActionUploadAssignmentFile, Resource{TrainerID: class.TeacherID, ClassID: class.ID}); err != nil {
		return nil, err
	}
	return s.ticket(ctx, storage.AssignmentObjectKey(class.ID, fileName), contentType)
}

func (s *uploadService) RequestSubmissionUpload(ctx context.Context, actor Actor, assignmentID primitive.ObjectID, fileName, contentType string) (*UploadTicket, error) {
	if s.files == nil {
		return nil, ErrStorageUnavailable
	}
	if err := validateContentType(contentType); err != nil {
		return nil, err
	}
	a, err := s.assignmentRepo.GetByID(ctx, assignmentID)
	if err != nil {
		return nil, translate(err, ErrAssignmentNotFound)
	}
	if err := s.guard.Authorize(ctx, actor, ActionUploadSubmissionFile, Resource{ClassID: a.ClassID, StudentID: actor.ID}); err != nil {
		return nil, err
	}
	return s.ticket(ctx, storage.SubmissionObjectKey(a.ID, actor.ID, fileName), contentType)
}

func (s *uploadService) DownloadURL(ctx context.Context, actor Actor, assignmentID primitive.ObjectID, studentID *primitive.ObjectID) (string, error) {
	a, err := s.assignmentRepo.GetByID(ctx, assignmentID)
	if err != nil {
		return "", translate(err, ErrAssignmentNotFound)
	}

	var link string
	if studentID == nil {
		// The assignment handout is readable by anyone allowed to see reports in the class.
		if err := s.guard.Authorize(ctx, actor, ActionViewReport, Resource{TrainerID: a.TrainerID, ClassID: a.ClassID}); err != nil {
			return "", err
		}
		if a.FileLink == "" {
			return "", fmt.Errorf("%w: assignment has no file", ErrNotFound)
		}
		link = a.FileLink
	} else {
		if err := s.guard.Authorize(ctx, actor, ActionViewReport, Resource{TrainerID: a.TrainerID, ClassID: a.ClassID, StudentID: *studentID}); err != nil {
			return "", err
		}
		sub, ok := a.FindSubmission(*studentID)
		if !ok {
			return "", ErrSubmissionNotFound
		}
		link = sub.FileLink
	}

	// External links are handed back untouched
	if !storage.IsManagedKey(link) {
		return link, nil
	}
	if s.files == nil {
		return "", ErrStorageUnavailable
	}
	url, err := s.files.GeneratePresignedDownloadURL(ctx, link, s.expiry)
	if err != nil {
		log.Printf("ERROR: presign download for assignment %s failed: %v", a.ID.Hex(), err)
		return "", fmt.Errorf("%w: presign download: %v", ErrStorageUnavailable, err)
	}
	return url, nil
}

