package authz

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/user"
)

var (
	// ErrUnauthorized means the principal's role or ownership does not
	// permit the action. Maps to 403 at the API boundary.
	ErrUnauthorized = errors.New("permission denied")

	// ErrNotEnrolled means a grading action targets a student without an
	// enrollment in the course. Maps to 400 at the API boundary.
	ErrNotEnrolled = errors.New("student is not enrolled in this course")
)

// Action identifies an operation a principal may attempt.
type Action string

const (
	ActionCreateCourse       Action = "course:create"
	ActionCreateAssignment   Action = "course:create-assignment"
	ActionListCourses        Action = "course:list"
	ActionEnroll             Action = "course:enroll"
	ActionListAssignments    Action = "course:assignments"
	ActionViewCourseStudents Action = "course:students"
	ActionViewStudentGrades  Action = "grades:view"
	ActionExportGrades       Action = "grades:export"
	ActionGradeSubmission    Action = "grading:grade-submission"
	ActionGradeStudent       Action = "grading:grade-student"
	ActionSubmitAssignment   Action = "grading:submit"
	ActionViewSubmissions    Action = "grading:submissions"
	ActionDownloadUpload     Action = "uploads:download"
)

// Principal is the authenticated identity extracted from a verified credential.
type Principal struct {
	UserID   int
	Username string
	Role     string
}

func (p Principal) IsTeacher() bool { return p.Role == user.RoleTeacher }
func (p Principal) IsStudent() bool { return p.Role == user.RoleStudent }

// Resource references the records an action targets. Zero fields mean the
// action does not target that kind of record.
type Resource struct {
	CourseID  int
	StudentID int
}

// CourseDirectory is the single store surface the engine needs: course
// ownership and enrollment facts.
type CourseDirectory interface {
	IsCourseTeacher(ctx context.Context, courseID, teacherID int) (bool, error)
	EnrollmentExists(ctx context.Context, studentID, courseID int) (bool, error)
}

type Engine struct {
	dir CourseDirectory
}

func NewEngine(dir CourseDirectory) *Engine {
	return &Engine{dir: dir}
}

// Authorize decides whether the principal may perform the action on the
// resource. It is total: every known action has an explicit rule and any
// unknown action denies. A nil return means allow.
func (e *Engine) Authorize(ctx context.Context, p Principal, action Action, res Resource) error {
	switch action {
	case ActionCreateCourse:
		return e.requireTeacher(p)

	case ActionListCourses, ActionListAssignments:
		if p.IsTeacher() || p.IsStudent() {
			return nil
		}
		return ErrUnauthorized

	case ActionEnroll:
		return e.requireStudent(p)

	case ActionViewCourseStudents, ActionExportGrades, ActionCreateAssignment:
		if err := e.requireTeacher(p); err != nil {
			return err
		}
		return e.requireCourseOwner(ctx, p, res.CourseID)

	case ActionViewStudentGrades:
		if p.IsStudent() {
			return e.requireSelf(p, res.StudentID)
		}
		if err := e.requireTeacher(p); err != nil {
			return err
		}
		return e.requireCourseOwner(ctx, p, res.CourseID)

	case ActionGradeSubmission:
		if err := e.requireTeacher(p); err != nil {
			return err
		}
		return e.requireCourseOwner(ctx, p, res.CourseID)

	case ActionGradeStudent:
		if err := e.requireTeacher(p); err != nil {
			return err
		}
		if err := e.requireCourseOwner(ctx, p, res.CourseID); err != nil {
			return err
		}
		return e.requireEnrollment(ctx, res.StudentID, res.CourseID)

	case ActionSubmitAssignment:
		if err := e.requireStudent(p); err != nil {
			return err
		}
		return e.requireSelf(p, res.StudentID)

	case ActionViewSubmissions:
		if p.IsTeacher() {
			return nil
		}
		if err := e.requireStudent(p); err != nil {
			return err
		}
		return e.requireSelf(p, res.StudentID)

	case ActionDownloadUpload:
		if p.IsStudent() {
			return e.requireSelf(p, res.StudentID)
		}
		if err := e.requireTeacher(p); err != nil {
			return err
		}
		return e.requireCourseOwner(ctx, p, res.CourseID)
	}

	// unknown actions always deny
	return ErrUnauthorized
}

func (e *Engine) requireTeacher(p Principal) error {
	if !p.IsTeacher() {
		return ErrUnauthorized
	}
	return nil
}

func (e *Engine) requireStudent(p Principal) error {
	if !p.IsStudent() {
		return ErrUnauthorized
	}
	return nil
}

func (e *Engine) requireSelf(p Principal, studentID int) error {
	if p.UserID != studentID {
		return ErrUnauthorized
	}
	return nil
}

func (e *Engine) requireCourseOwner(ctx context.Context, p Principal, courseID int) error {
	owns, err := e.dir.IsCourseTeacher(ctx, courseID, p.UserID)
	if err != nil {
		return errors.Wrap(err, "checking course ownership")
	}
	if !owns {
		return ErrUnauthorized
	}
	return nil
}

func (e *Engine) requireEnrollment(ctx context.Context, studentID, courseID int) error {
	enrolled, err := e.dir.EnrollmentExists(ctx, studentID, courseID)
	if err != nil {
		return errors.Wrap(err, "checking enrollment")
	}
	if !enrolled {
		return ErrNotEnrolled
	}
	return nil
}
