package service

import (
	"context"
	"fmt"

	"alcyxob/classroom-app/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Actor is the identity a request was resolved to.
type Actor struct {
	ID   primitive.ObjectID
	Role domain.Role
}

type actionKind int

const (
	kindRead actionKind = iota
	kindMutate
	kindDestructive
)

type actionScope int

const (
	scopeTrainer actionScope = 1 << iota
	scopeStudent
	scopeAdmin
)

// Action is something an actor attempts against a resource.
type Action struct {
	name  string
	kind  actionKind
	scope actionScope
}

func (a Action) String() string { return a.name }

var (
	ActionCreateAssignment     = Action{"create assignment", kindMutate, scopeTrainer}
	ActionUpdateAssignment     = Action{"update assignment", kindMutate, scopeTrainer}
	ActionDeleteAssignment     = Action{"delete assignment", kindDestructive, scopeTrainer}
	ActionEvaluateSubmission   = Action{"evaluate submission", kindMutate, scopeTrainer}
	ActionViewAssignment       = Action{"view assignment", kindRead, scopeTrainer}
	ActionViewSubmissions      = Action{"view submissions", kindRead, scopeTrainer}
	ActionListClassAssignments = Action{"list class assignments", kindRead, scopeTrainer}
	ActionUploadAssignmentFile = Action{"upload assignment file", kindMutate, scopeTrainer}

	ActionSubmit               = Action{"submit", kindMutate, scopeStudent}
	ActionUnsubmit             = Action{"unsubmit", kindMutate, scopeStudent}
	ActionUploadSubmissionFile = Action{"upload submission file", kindMutate, scopeStudent}

	// ActionViewReport is open to the owning trainer and to the student the report is about.
	ActionViewReport = Action{"view report", kindRead, scopeTrainer | scopeStudent}
	// ActionViewClass covers class detail and roster reads by the teacher or a member.
	ActionViewClass = Action{"view class", kindRead, scopeTrainer | scopeStudent}
	// ActionUnenroll lets a student leave, or the teacher remove a student.
	ActionUnenroll = Action{"unenroll", kindDestructive, scopeTrainer | scopeStudent}

	ActionUpdateClass = Action{"update class", kindMutate, scopeTrainer}
	// ActionDeleteClass removes a class with its assignments, by its teacher or an admin.
	ActionDeleteClass = Action{"delete class", kindDestructive, scopeTrainer}

	ActionDeleteUser = Action{"delete user", kindDestructive, scopeAdmin}
	ActionUpdateUser = Action{"update user", kindMutate, scopeAdmin}
	ActionListUsers  = Action{"list users", kindRead, scopeAdmin}
	ActionCreateUser = Action{"create user", kindMutate, scopeAdmin}
)

// Resource carries the ownership facts an action is judged against.
type Resource struct {
	TrainerID primitive.ObjectID // Owner of the assignment or class
	ClassID   primitive.ObjectID
	StudentID primitive.ObjectID // Target student, if the action names one
	// TargetRole is the role of the account a user-level action targets.
	TargetRole domain.Role
}

// Decision is the outcome of a guard check.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision { return Decision{Allowed: true} }

func deny(reason string) Decision { return Decision{Reason: reason} }

// MembershipChecker answers class membership questions for the guard.
type MembershipChecker interface {
	IsMemberOf(ctx context.Context, userID, classID primitive.ObjectID) (bool, error)
}

// Guard decides whether an actor may perform an action on a resource.
// It holds no state of its own; membership comes from the checker.
type Guard struct {
	members MembershipChecker
}

func NewGuard(members MembershipChecker) *Guard {
	return &Guard{members: members}
}

// Check evaluates the rules for actor's role. The error is non-nil only when
// membership could not be determined.
func (g *Guard) Check(ctx context.Context, actor Actor, action Action, res Resource) (Decision, error) {
	switch actor.Role {
	case domain.RoleAdmin:
		return g.checkAdmin(action, res), nil
	case domain.RoleTrainer:
		return g.checkTrainer(actor, action, res), nil
	case domain.RoleStudent:
		return g.checkStudent(ctx, actor, action, res)
	default:
		return deny("unknown role"), nil
	}
}

// Authorize is Check folded into a single error wrapping ErrForbidden.
func (g *Guard) Authorize(ctx context.Context, actor Actor, action Action, res Resource) error {
	d, err := g.Check(ctx, actor, action, res)
	if err != nil {
		return fmt.Errorf("%w: membership lookup: %v", ErrPersistence, err)
	}
	if !d.Allowed {
		return fmt.Errorf("%w: %s: %s", ErrForbidden, action, d.Reason)
	}
	return nil
}

func (g *Guard) checkAdmin(action Action, res Resource) Decision {
	switch action.kind {
	case kindRead:
		return allow()
	case kindDestructive:
		if res.TargetRole == domain.RoleAdmin {
			return deny("admin accounts cannot be deleted")
		}
		return allow()
	}
	if action.scope&scopeAdmin != 0 {
		return allow()
	}
	return deny("admins cannot perform this action")
}

func (g *Guard) checkTrainer(actor Actor, action Action, res Resource) Decision {
	if action.scope&scopeTrainer == 0 {
		return deny("not authorized")
	}
	if res.TrainerID.IsZero() || res.TrainerID != actor.ID {
		return deny("not authorized")
	}
	return allow()
}

func (g *Guard) checkStudent(ctx context.Context, actor Actor, action Action, res Resource) (Decision, error) {
	if action.scope&scopeStudent == 0 {
		return deny("not authorized"), nil
	}
	if !res.StudentID.IsZero() && res.StudentID != actor.ID {
		return deny("students may only act on their own records"), nil
	}
	if res.ClassID.IsZero() {
		return deny("no class to check membership against"), nil
	}
	member, err := g.members.IsMemberOf(ctx, actor.ID, res.ClassID)
	if err != nil {
		return Decision{}, err
	}
	if !member {
		return deny("not a member of this class"), nil
	}
	return allow(), nil
}
