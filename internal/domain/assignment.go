package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SubmissionState is the per (assignment, student) lifecycle position.
type SubmissionState string

const (
	StateNotSubmitted SubmissionState = "not_submitted" // Implicit: no ledger entry exists
	StateSubmitted    SubmissionState = "submitted"     // Entry exists, marks unset
	StateEvaluated    SubmissionState = "evaluated"     // Entry exists, evaluation recorded
)

// Assignment is issued by a trainer inside one of their classes.
type Assignment struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description" json:"description"`
	AssignDate  time.Time          `bson:"assignDate" json:"assignDate"`
	DueDate     time.Time          `bson:"dueDate" json:"dueDate"`
	TotalMarks  float64            `bson:"totalMarks" json:"totalMarks"`                 // Always > 0
	FileLink    string             `bson:"fileLink,omitempty" json:"fileLink,omitempty"` // Optional attachment (URL or object key)
	TrainerID   primitive.ObjectID `bson:"trainerId" json:"trainerId"`                   // Owner, bound at creation
	ClassID     primitive.ObjectID `bson:"classId" json:"classId"`
	Submissions []Submission       `bson:"submissions" json:"submissions"` // At most one entry per student
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Submission is a student's single recorded response to an assignment.
type Submission struct {
	StudentID      primitive.ObjectID `bson:"studentId" json:"studentId"`
	FileLink       string             `bson:"fileLink" json:"fileLink"`
	SubmissionDate time.Time          `bson:"submissionDate" json:"submissionDate"`
	Marks          *float64           `bson:"marks,omitempty" json:"marks"`
	Rating         *string            `bson:"rating,omitempty" json:"rating"`
	Remark         *string            `bson:"remark,omitempty" json:"remark"`
}

// State derives the lifecycle state of an existing entry.
func (s *Submission) State() SubmissionState {
	if s.Marks != nil {
		return StateEvaluated
	}
	return StateSubmitted
}

// Evaluation is the trainer-authored part of a submission.
type Evaluation struct {
	Marks  float64
	Rating *string
	Remark *string
}

// SubmissionIndex maps student ids to their position in Submissions.
func (a *Assignment) SubmissionIndex() map[primitive.ObjectID]int {
	idx := make(map[primitive.ObjectID]int, len(a.Submissions))
	for i, s := range a.Submissions {
		idx[s.StudentID] = i
	}
	return idx
}

// FindSubmission returns the entry for studentID, if any.
func (a *Assignment) FindSubmission(studentID primitive.ObjectID) (*Submission, bool) {
	for i := range a.Submissions {
		if a.Submissions[i].StudentID == studentID {
			return &a.Submissions[i], true
		}
	}
	return nil, false
}

// StateFor reports the ledger state for studentID.
func (a *Assignment) StateFor(studentID primitive.ObjectID) SubmissionState {
	sub, ok := a.FindSubmission(studentID)
	if !ok {
		return StateNotSubmitted
	}
	return sub.State()
}

// AssignmentPatch carries a merge patch: nil fields are left unchanged.
type AssignmentPatch struct {
	Title       *string
	Description *string
	DueDate     *time.Time
	TotalMarks  *float64
	FileLink    *string
}

// IsEmpty reports whether the patch changes nothing.
func (p AssignmentPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.DueDate == nil && p.TotalMarks == nil && p.FileLink == nil
}

// Apply merges the patch into a.
func (p AssignmentPatch) Apply(a *Assignment) {
	if p.Title != nil {
		a.Title = *p.Title
	}
	if p.Description != nil {
		a.Description = *p.Description
	}
	if p.DueDate != nil {
		a.DueDate = *p.DueDate
	}
	if p.TotalMarks != nil {
		a.TotalMarks = *p.TotalMarks
	}
	if p.FileLink != nil {
		a.FileLink = *p.FileLink
	}
}
