package course

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/authz"
	"github.com/trezcool/academia/core/user"
)

var (
	// errors
	ErrNotFound           = errors.New("course not found")
	ErrAssignmentNotFound = errors.New("assignment not found")
	ErrAlreadyEnrolled    = errors.New("student is already enrolled in this course")

	unknownTeacherName = "Unknown Teacher"
)

type (
	Repository interface {
		CreateCourse(ctx context.Context, crs Course, exec ...core.DBExecutor) (Course, error)
		GetCourseByID(ctx context.Context, id int, exec ...core.DBExecutor) (Course, error)
		QueryCoursesByTeacher(ctx context.Context, teacherID int, exec ...core.DBExecutor) ([]Course, error)
		QueryAllCourses(ctx context.Context, exec ...core.DBExecutor) ([]Course, error)
		IsCourseTeacher(ctx context.Context, courseID, teacherID int) (bool, error)

		CreateEnrollment(ctx context.Context, enr Enrollment, exec ...core.DBExecutor) (Enrollment, error)
		EnrollmentExists(ctx context.Context, studentID, courseID int) (bool, error)
		QueryEnrollmentsByStudent(ctx context.Context, studentID int, exec ...core.DBExecutor) ([]Enrollment, error)
		QueryEnrollmentsByCourse(ctx context.Context, courseID int, exec ...core.DBExecutor) ([]Enrollment, error)

		CreateAssignment(ctx context.Context, asg Assignment, exec ...core.DBExecutor) (Assignment, error)
		GetAssignmentByID(ctx context.Context, id int, exec ...core.DBExecutor) (Assignment, error)
		QueryAssignmentsByCourse(ctx context.Context, courseID int, exec ...core.DBExecutor) ([]Assignment, error)
	}

	ServiceInterface interface {
		Create(ctx context.Context, p authz.Principal, nc NewCourse) (Course, error)
		Get(ctx context.Context, id int) (Course, error)
		ListForPrincipal(ctx context.Context, p authz.Principal) ([]CourseInfo, error)
		Enroll(ctx context.Context, p authz.Principal, ne NewEnrollment) (Enrollment, error)
		Assignments(ctx context.Context, p authz.Principal, courseID int) ([]Assignment, error)
		CreateAssignment(ctx context.Context, p authz.Principal, courseID int, na NewAssignment) (Assignment, error)
	}

	Service struct {
		repo    Repository
		usrRepo user.Repository
		engine  *authz.Engine
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository, usrRepo user.Repository, engine *authz.Engine) *Service {
	return &Service{
		repo:    repo,
		usrRepo: usrRepo,
		engine:  engine,
	}
}

func (svc *Service) Create(ctx context.Context, p authz.Principal, nc NewCourse) (Course, error) {
	if err := svc.engine.Authorize(ctx, p, authz.ActionCreateCourse, authz.Resource{}); err != nil {
		return Course{}, err
	}

	crs := Course{
		Title:       nc.Title,
		Description: nc.Description,
		TeacherID:   p.UserID,
	}
	crs, err := svc.repo.CreateCourse(ctx, crs)
	if err != nil {
		return Course{}, errors.Wrap(err, "creating course")
	}
	return crs, nil
}

func (svc *Service) Get(ctx context.Context, id int) (Course, error) {
	return svc.repo.GetCourseByID(ctx, id)
}

// ListForPrincipal lists courses shaped per role: a teacher sees only their
// own courses; a student sees all courses annotated with their enrollment.
func (svc *Service) ListForPrincipal(ctx context.Context, p authz.Principal) ([]CourseInfo, error) {
	if err := svc.engine.Authorize(ctx, p, authz.ActionListCourses, authz.Resource{}); err != nil {
		return nil, err
	}

	if p.IsTeacher() {
		courses, err := svc.repo.QueryCoursesByTeacher(ctx, p.UserID)
		if err != nil {
			return nil, errors.Wrap(err, "querying teacher courses")
		}
		infos := make([]CourseInfo, 0, len(courses))
		for _, crs := range courses {
			infos = append(infos, CourseInfo{Course: crs, TeacherName: p.Username})
		}
		return infos, nil
	}

	courses, err := svc.repo.QueryAllCourses(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	enrollments, err := svc.repo.QueryEnrollmentsByStudent(ctx, p.UserID)
	if err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}
	teachers, err := svc.usrRepo.QueryUsersByRole(ctx, user.RoleTeacher)
	if err != nil {
		return nil, errors.Wrap(err, "querying teachers")
	}

	enrolledIDs := make(map[int]bool, len(enrollments))
	for _, enr := range enrollments {
		enrolledIDs[enr.CourseID] = true
	}
	teacherNames := make(map[int]string, len(teachers))
	for _, t := range teachers {
		teacherNames[t.ID] = t.Username
	}

	infos := make([]CourseInfo, 0, len(courses))
	for _, crs := range courses {
		name, ok := teacherNames[crs.TeacherID]
		if !ok {
			name = unknownTeacherName
		}
		enrolled := enrolledIDs[crs.ID]
		infos = append(infos, CourseInfo{Course: crs, TeacherName: name, Enrolled: &enrolled})
	}
	return infos, nil
}

func (svc *Service) Enroll(ctx context.Context, p authz.Principal, ne NewEnrollment) (Enrollment, error) {
	if err := svc.engine.Authorize(ctx, p, authz.ActionEnroll, authz.Resource{CourseID: ne.CourseID}); err != nil {
		return Enrollment{}, err
	}

	if _, err := svc.repo.GetCourseByID(ctx, ne.CourseID); err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Enrollment{}, core.NewReferentialError("course", ErrNotFound)
		}
		return Enrollment{}, errors.Wrap(err, "finding course")
	}

	enr := Enrollment{
		StudentID:  p.UserID,
		CourseID:   ne.CourseID,
		EnrolledAt: time.Now().UTC(),
	}
	enr, err := svc.repo.CreateEnrollment(ctx, enr)
	if err != nil {
		if errors.Cause(err) == ErrAlreadyEnrolled {
			return Enrollment{}, core.NewValidationError(err, core.FieldError{Field: "course_id", Error: err.Error()})
		}
		return Enrollment{}, errors.Wrap(err, "creating enrollment")
	}
	return enr, nil
}

func (svc *Service) Assignments(ctx context.Context, p authz.Principal, courseID int) ([]Assignment, error) {
	if err := svc.engine.Authorize(ctx, p, authz.ActionListAssignments, authz.Resource{CourseID: courseID}); err != nil {
		return nil, err
	}
	asgs, err := svc.repo.QueryAssignmentsByCourse(ctx, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "querying assignments")
	}
	return asgs, nil
}

func (svc *Service) CreateAssignment(ctx context.Context, p authz.Principal, courseID int, na NewAssignment) (Assignment, error) {
	if err := svc.engine.Authorize(ctx, p, authz.ActionCreateAssignment, authz.Resource{CourseID: courseID}); err != nil {
		return Assignment{}, err
	}

	asg := Assignment{
		Title:       na.Title,
		Description: na.Description,
		CourseID:    courseID,
		DueDate:     na.DueDate.UTC(),
	}
	asg, err := svc.repo.CreateAssignment(ctx, asg)
	if err != nil {
		return Assignment{}, errors.Wrap(err, "creating assignment")
	}
	return asg, nil
}
