package grading

import (
	"context"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/authz"
	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/user"
)

var (
	// errors
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrFileNotFound       = errors.New("file not found")
)

type (
	Repository interface {
		CreateSubmission(ctx context.Context, sub Submission, exec ...core.DBExecutor) (Submission, error)
		GetSubmissionByID(ctx context.Context, id int, exec ...core.DBExecutor) (Submission, error)
		GetSubmissionByFilePath(ctx context.Context, path string, exec ...core.DBExecutor) (Submission, error)
		QuerySubmissionsByStudent(ctx context.Context, studentID int, exec ...core.DBExecutor) ([]Submission, error)

		CreateGrade(ctx context.Context, grd Grade, exec ...core.DBExecutor) (Grade, error)
		// QueryStudentCourseGrades returns the student's grading history in
		// the course, most recent first; ties keep insertion order.
		QueryStudentCourseGrades(ctx context.Context, studentID, courseID int, exec ...core.DBExecutor) ([]Grade, error)

		// CreateSubmissionGraded inserts a Submission and its first Grade as
		// one atomic write; neither row persists if either insert fails.
		CreateSubmissionGraded(ctx context.Context, sub Submission, grd Grade) (Submission, Grade, error)
	}

	ServiceInterface interface {
		GradeSubmission(ctx context.Context, p authz.Principal, in GradeSubmissionInput) (Grade, error)
		GradeStudent(ctx context.Context, p authz.Principal, in GradeStudentInput) (Submission, Grade, error)
		GetSubmission(ctx context.Context, p authz.Principal, id int) (Submission, error)
		StudentSubmissions(ctx context.Context, p authz.Principal, studentID int) ([]Submission, error)
		StudentCourseGrades(ctx context.Context, p authz.Principal, courseID, studentID int) ([]Grade, error)
		CourseStudents(ctx context.Context, p authz.Principal, courseID int) ([]CourseStudent, error)
		SubmitAssignment(ctx context.Context, p authz.Principal, ns NewSubmission, filename string, file io.Reader) (Submission, error)
		Download(ctx context.Context, p authz.Principal, storedName string) (io.ReadCloser, error)
		ExportGrades(ctx context.Context, p authz.Principal, courseID int, format string) error
	}

	Service struct {
		repo    Repository
		crsRepo course.Repository
		usrRepo user.Repository
		engine  *authz.Engine
		uploads core.UploadStore
		reports core.ReportService
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(
	repo Repository,
	crsRepo course.Repository,
	usrRepo user.Repository,
	engine *authz.Engine,
	uploads core.UploadStore,
	reports core.ReportService,
) *Service {
	return &Service{
		repo:    repo,
		crsRepo: crsRepo,
		usrRepo: usrRepo,
		engine:  engine,
		uploads: uploads,
		reports: reports,
	}
}

// GradeSubmission appends a Grade to an existing Submission. The Submission
// row itself is never mutated; history is preserved by insertion order.
func (svc *Service) GradeSubmission(ctx context.Context, p authz.Principal, in GradeSubmissionInput) (Grade, error) {
	sub, err := svc.repo.GetSubmissionByID(ctx, in.SubmissionID)
	if err != nil {
		return Grade{}, err
	}

	res := authz.Resource{CourseID: sub.CourseID, StudentID: sub.StudentID}
	if err := svc.engine.Authorize(ctx, p, authz.ActionGradeSubmission, res); err != nil {
		return Grade{}, err
	}

	grd := Grade{
		SubmissionID: sub.ID,
		CourseID:     sub.CourseID,
		Value:        in.Grade,
		Feedback:     null.NewString(in.Feedback, in.Feedback != ""),
		GradedAt:     time.Now().UTC(),
	}
	grd, err = svc.repo.CreateGrade(ctx, grd)
	if err != nil {
		return Grade{}, errors.Wrap(err, "creating grade")
	}
	return grd, nil
}

// GradeStudent is the teacher-initiated path: it creates a Submission and
// its first Grade atomically. It requires a prior Enrollment; a failed
// grade insert rolls the submission back.
func (svc *Service) GradeStudent(ctx context.Context, p authz.Principal, in GradeStudentInput) (Submission, Grade, error) {
	res := authz.Resource{CourseID: in.CourseID, StudentID: in.StudentID}
	if err := svc.engine.Authorize(ctx, p, authz.ActionGradeStudent, res); err != nil {
		return Submission{}, Grade{}, err
	}

	now := time.Now().UTC()
	sub := Submission{
		StudentID:   in.StudentID,
		CourseID:    in.CourseID,
		Grade:       null.IntFrom(in.Grade),
		Feedback:    null.NewString(in.Feedback, in.Feedback != ""),
		SubmittedAt: now,
	}
	grd := Grade{
		CourseID: in.CourseID,
		Value:    in.Grade,
		Feedback: null.NewString(in.Feedback, in.Feedback != ""),
		GradedAt: now,
	}
	sub, grd, err := svc.repo.CreateSubmissionGraded(ctx, sub, grd)
	if err != nil {
		return Submission{}, Grade{}, errors.Wrap(err, "creating graded submission")
	}
	return sub, grd, nil
}

func (svc *Service) GetSubmission(ctx context.Context, p authz.Principal, id int) (Submission, error) {
	sub, err := svc.repo.GetSubmissionByID(ctx, id)
	if err != nil {
		return Submission{}, err
	}
	res := authz.Resource{CourseID: sub.CourseID, StudentID: sub.StudentID}
	if err := svc.engine.Authorize(ctx, p, authz.ActionViewSubmissions, res); err != nil {
		return Submission{}, err
	}
	return sub, nil
}

func (svc *Service) StudentSubmissions(ctx context.Context, p authz.Principal, studentID int) ([]Submission, error) {
	if err := svc.engine.Authorize(ctx, p, authz.ActionViewSubmissions, authz.Resource{StudentID: studentID}); err != nil {
		return nil, err
	}
	subs, err := svc.repo.QuerySubmissionsByStudent(ctx, studentID)
	if err != nil {
		return nil, errors.Wrap(err, "querying submissions")
	}
	return subs, nil
}

func (svc *Service) StudentCourseGrades(ctx context.Context, p authz.Principal, courseID, studentID int) ([]Grade, error) {
	res := authz.Resource{CourseID: courseID, StudentID: studentID}
	if err := svc.engine.Authorize(ctx, p, authz.ActionViewStudentGrades, res); err != nil {
		return nil, err
	}
	grades, err := svc.repo.QueryStudentCourseGrades(ctx, studentID, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "querying grades")
	}
	return grades, nil
}

func (svc *Service) CourseStudents(ctx context.Context, p authz.Principal, courseID int) ([]CourseStudent, error) {
	res := authz.Resource{CourseID: courseID}
	if err := svc.engine.Authorize(ctx, p, authz.ActionViewCourseStudents, res); err != nil {
		return nil, err
	}

	enrollments, err := svc.crsRepo.QueryEnrollmentsByCourse(ctx, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}

	students := make([]CourseStudent, 0, len(enrollments))
	for _, enr := range enrollments {
		usr, err := svc.usrRepo.GetUserByID(ctx, enr.StudentID)
		if err != nil {
			if errors.Cause(err) == user.ErrNotFound {
				continue
			}
			return nil, errors.Wrap(err, "finding student")
		}
		grades, err := svc.repo.QueryStudentCourseGrades(ctx, enr.StudentID, courseID)
		if err != nil {
			return nil, errors.Wrap(err, "querying student grades")
		}
		if grades == nil {
			grades = []Grade{}
		}
		students = append(students, CourseStudent{ID: usr.ID, Username: usr.Username, Grades: grades})
	}
	return students, nil
}

// SubmitAssignment is the student self-submission path: the uploaded file is
// stored under a derived key and the Submission is created ungraded against
// the assignment's course.
func (svc *Service) SubmitAssignment(ctx context.Context, p authz.Principal, ns NewSubmission, filename string, file io.Reader) (Submission, error) {
	if err := svc.engine.Authorize(ctx, p, authz.ActionSubmitAssignment, authz.Resource{StudentID: ns.StudentID}); err != nil {
		return Submission{}, err
	}

	asg, err := svc.crsRepo.GetAssignmentByID(ctx, ns.AssignmentID)
	if err != nil {
		if errors.Cause(err) == course.ErrAssignmentNotFound {
			return Submission{}, core.NewReferentialError("assignment", err)
		}
		return Submission{}, errors.Wrap(err, "finding assignment")
	}

	key := core.UploadKey(filename)
	if err := svc.uploads.Save(ctx, key, file); err != nil {
		return Submission{}, errors.Wrap(err, "saving upload")
	}

	sub := Submission{
		StudentID:   ns.StudentID,
		CourseID:    asg.CourseID,
		FilePath:    null.StringFrom(key),
		SubmittedAt: time.Now().UTC(),
	}
	sub, err = svc.repo.CreateSubmission(ctx, sub)
	if err != nil {
		return Submission{}, errors.Wrap(err, "creating submission")
	}
	return sub, nil
}

// Download resolves a stored filename to its owning Submission and streams
// the file only to the submitting student or the course's teacher.
func (svc *Service) Download(ctx context.Context, p authz.Principal, storedName string) (io.ReadCloser, error) {
	sub, err := svc.repo.GetSubmissionByFilePath(ctx, storedName)
	if err != nil {
		if errors.Cause(err) == ErrSubmissionNotFound {
			return nil, ErrFileNotFound
		}
		return nil, errors.Wrap(err, "finding submission by file")
	}

	res := authz.Resource{CourseID: sub.CourseID, StudentID: sub.StudentID}
	if err := svc.engine.Authorize(ctx, p, authz.ActionDownloadUpload, res); err != nil {
		return nil, err
	}
	return svc.uploads.Open(ctx, storedName)
}

func (svc *Service) ExportGrades(ctx context.Context, p authz.Principal, courseID int, format string) error {
	if err := svc.engine.Authorize(ctx, p, authz.ActionExportGrades, authz.Resource{CourseID: courseID}); err != nil {
		return err
	}
	return svc.reports.GenerateGradeReport(ctx, core.ReportRequest{CourseID: courseID, Format: format})
}
