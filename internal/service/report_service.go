package service

import (
	"context"
	"fmt"

	"alcyxob/classroom-app/internal/domain"
	"alcyxob/classroom-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ReportService composes assignment metadata with submission state. It never mutates.
type ReportService interface {
	StudentReport(ctx context.Context, actor Actor, assignmentID, studentID primitive.ObjectID) (*domain.SubmissionReport, error)
	ClassReportForStudent(ctx context.Context, actor Actor, classID, studentID primitive.ObjectID) ([]domain.SubmissionReport, error)
	// AssignmentsForClass is the caller's own report for one class.
	AssignmentsForClass(ctx context.Context, actor Actor, classID primitive.ObjectID) ([]domain.SubmissionReport, error)
	// Submitted and Pending span every class the calling student is enrolled in.
	Submitted(ctx context.Context, actor Actor) ([]domain.SubmissionReport, error)
	Pending(ctx context.Context, actor Actor) ([]domain.SubmissionReport, error)
}

type reportService struct {
	assignmentRepo repository.AssignmentRepository
	classRepo      repository.ClassRepository
	guard          *Guard
}

func NewReportService(assignmentRepo repository.AssignmentRepository, classRepo repository.ClassRepository, guard *Guard) ReportService {
	return &reportService{assignmentRepo: assignmentRepo, classRepo: classRepo, guard: guard}
}

func (s *reportService) StudentReport(ctx context.Context, actor Actor, assignmentID, studentID primitive.ObjectID) (*domain.SubmissionReport, error) {
	if studentID.IsZero() {
		return nil, validationError("studentId is required")
	}
	a, err := s.assignmentRepo.GetByID(ctx, assignmentID)
	if err != nil {
		return nil, translate(err, ErrAssignmentNotFound)
	}
	if err := s.guard.Authorize(ctx, actor, ActionViewReport, Resource{
		TrainerID: a.TrainerID,
		ClassID:   a.ClassID,
		StudentID: studentID,
	}); err != nil {
		return nil, err
	}
	report := domain.NewSubmissionReport(a, studentID)
	return &report, nil
}

func (s *reportService) ClassReportForStudent(ctx context.Context, actor Actor, classID, studentID primitive.ObjectID) ([]domain.SubmissionReport, error) {
	if studentID.IsZero() {
		return nil, validationError("studentId is required")
	}
	class, err := s.classRepo.GetByID(ctx, classID)
	if err != nil {
		return nil, translate(err, ErrClassNotFound)
	}
	if err := s.guard.Authorize(ctx, actor, ActionViewReport, Resource{
		TrainerID: class.TeacherID,
		ClassID:   class.ID,
		StudentID: studentID,
	}); err != nil {
		return nil, err
	}

	assignments, err := s.assignmentRepo.GetByClassID(ctx, classID)
	if err != nil {
		return nil, translate(err, ErrAssignmentNotFound)
	}
	return buildReports(assignments, studentID, nil), nil
}

func (s *reportService) AssignmentsForClass(ctx context.Context, actor Actor, classID primitive.ObjectID) ([]domain.SubmissionReport, error) {
	return s.ClassReportForStudent(ctx, actor, classID, actor.ID)
}

func (s *reportService) Submitted(ctx context.Context, actor Actor) ([]domain.SubmissionReport, error) {
	return s.acrossClasses(ctx, actor, func(r domain.SubmissionReport) bool { return r.Submitted })
}

func (s *reportService) Pending(ctx context.Context, actor Actor) ([]domain.SubmissionReport, error) {
	return s.acrossClasses(ctx, actor, func(r domain.SubmissionReport) bool { return !r.Submitted })
}

// acrossClasses reports on every assignment in the student's classes. Membership
// is read from the class rosters, so the student can only ever see their own classes.
func (s *reportService) acrossClasses(ctx context.Context, actor Actor, keep func(domain.SubmissionReport) bool) ([]domain.SubmissionReport, error) {
	if actor.Role != domain.RoleStudent {
		return nil, fmt.Errorf("%w: only students have submission views", ErrForbidden)
	}
	classes, err := s.classRepo.GetByStudentID(ctx, actor.ID)
	if err != nil {
		return nil, translate(err, ErrClassNotFound)
	}
	if len(classes) == 0 {
		return []domain.SubmissionReport{}, nil
	}
	ids := make([]primitive.ObjectID, len(classes))
	for i, c := range classes {
		ids[i] = c.ID
	}

	assignments, err := s.assignmentRepo.GetByClassIDs(ctx, ids)
	if err != nil {
		return nil, translate(err, ErrAssignmentNotFound)
	}
	return buildReports(assignments, actor.ID, keep), nil
}

func buildReports(assignments []domain.Assignment, studentID primitive.ObjectID, keep func(domain.SubmissionReport) bool) []domain.SubmissionReport {
	reports := make([]domain.SubmissionReport, 0, len(assignments))
	for i := range assignments {
		r := domain.NewSubmissionReport(&assignments[i], studentID)
		if keep == nil || keep(r) {
			reports = append(reports, r)
		}
	}
	return reports
}
