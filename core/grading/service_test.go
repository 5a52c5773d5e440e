package grading_test

import (
	"bytes"
	"context"
	"io/ioutil"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/authz"
	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/grading"
	"github.com/trezcool/academia/core/user"
	reportsvc "github.com/trezcool/academia/services/report"
	inmemdb "github.com/trezcool/academia/storage/database/inmem"
	"github.com/trezcool/academia/storage/uploads"
)

type testEnv struct {
	svc     *grading.Service
	db      *inmemdb.DB
	usrRepo user.Repository
	crsRepo course.Repository
	grdRepo *inmemdb.GradingRepository
	store   *uploads.MemStore
	reports *reportsvc.GeneratorServiceMock

	teacher user.User
	student user.User
	crs     course.Course
}

func setup(t *testing.T) *testEnv {
	db, err := inmemdb.Open()
	require.NoError(t, err)

	env := &testEnv{
		db:      db,
		usrRepo: inmemdb.NewUserRepository(db),
		crsRepo: inmemdb.NewCourseRepository(db),
		grdRepo: inmemdb.NewGradingRepository(db),
		store:   uploads.NewMemStore(),
		reports: reportsvc.NewGeneratorServiceMock(),
	}
	engine := authz.NewEngine(env.crsRepo)
	env.svc = grading.NewService(env.grdRepo, env.crsRepo, env.usrRepo, engine, env.store, env.reports)

	ctx := context.Background()
	env.teacher = createUser(t, env.usrRepo, "bob", user.RoleTeacher)
	env.student = createUser(t, env.usrRepo, "alice", user.RoleStudent)

	env.crs, err = env.crsRepo.CreateCourse(ctx, course.Course{Title: "X", TeacherID: env.teacher.ID})
	require.NoError(t, err)
	_, err = env.crsRepo.CreateEnrollment(ctx, course.Enrollment{
		StudentID:  env.student.ID,
		CourseID:   env.crs.ID,
		EnrolledAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	return env
}

func createUser(t *testing.T, repo user.Repository, uname, role string) user.User {
	t.Helper()
	usr := user.User{Username: uname, Role: role, CreatedAt: time.Now().UTC()}
	require.NoError(t, usr.SetPassword("s3cretphrase"))
	usr, err := repo.CreateUser(context.Background(), usr)
	require.NoError(t, err)
	return usr
}

func principal(usr user.User) authz.Principal {
	return authz.Principal{UserID: usr.ID, Username: usr.Username, Role: usr.Role}
}

func (env *testEnv) createSubmission(t *testing.T) grading.Submission {
	t.Helper()
	sub, err := env.grdRepo.CreateSubmission(context.Background(), grading.Submission{
		StudentID:   env.student.ID,
		CourseID:    env.crs.ID,
		SubmittedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	return sub
}

func TestService_GradeSubmission(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	sub := env.createSubmission(t)

	grd, err := env.svc.GradeSubmission(ctx, principal(env.teacher), grading.GradeSubmissionInput{
		SubmissionID: sub.ID,
		Grade:        85,
		Feedback:     "good",
	})
	require.NoError(t, err)
	assert.Equal(t, sub.ID, grd.SubmissionID)
	assert.Equal(t, 85, grd.Value)
	assert.Equal(t, "good", grd.Feedback.String)
}

func TestService_GradeSubmission_notFound(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	// grader identity does not matter; the lookup fails first
	for _, p := range []authz.Principal{principal(env.teacher), principal(env.student)} {
		_, err := env.svc.GradeSubmission(ctx, p, grading.GradeSubmissionInput{SubmissionID: 999, Grade: 50})
		assert.Equal(t, grading.ErrSubmissionNotFound, err)
	}
}

func TestService_GradeSubmission_notOwner(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	sub := env.createSubmission(t)

	eve := createUser(t, env.usrRepo, "eve", user.RoleTeacher)
	_, err := env.svc.GradeSubmission(ctx, principal(eve), grading.GradeSubmissionInput{SubmissionID: sub.ID, Grade: 50})
	assert.Equal(t, authz.ErrUnauthorized, err)
}

func TestService_GradeStudent(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	sub, grd, err := env.svc.GradeStudent(ctx, principal(env.teacher), grading.GradeStudentInput{
		StudentID: env.student.ID,
		CourseID:  env.crs.ID,
		Grade:     90,
		Feedback:  "solid",
	})
	require.NoError(t, err)
	assert.Equal(t, sub.ID, grd.SubmissionID)
	assert.Equal(t, 90, sub.Grade.Int)
	assert.Equal(t, 90, grd.Value)
}

func TestService_GradeStudent_notEnrolled(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	carol := createUser(t, env.usrRepo, "carol", user.RoleStudent)
	before := env.db.CountSubmissions()

	_, _, err := env.svc.GradeStudent(ctx, principal(env.teacher), grading.GradeStudentInput{
		StudentID: carol.ID,
		CourseID:  env.crs.ID,
		Grade:     90,
	})
	assert.Equal(t, authz.ErrNotEnrolled, err)
	assert.Equal(t, before, env.db.CountSubmissions(), "no Submission row may be created")
	assert.Zero(t, env.db.CountGrades())
}

func TestService_GradeStudent_atomicRollback(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	env.grdRepo.FailGrades = assert.AnError
	before := env.db.CountSubmissions()

	_, _, err := env.svc.GradeStudent(ctx, principal(env.teacher), grading.GradeStudentInput{
		StudentID: env.student.ID,
		CourseID:  env.crs.ID,
		Grade:     90,
	})
	require.Error(t, err)
	assert.Equal(t, before, env.db.CountSubmissions(), "failed grade insert must roll the submission back")
	assert.Zero(t, env.db.CountGrades())
}

func TestService_StudentCourseGrades_ordering(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	sub := env.createSubmission(t)

	now := time.Now().UTC()
	for i, grd := range []grading.Grade{
		{SubmissionID: sub.ID, CourseID: env.crs.ID, Value: 60, GradedAt: now.Add(-2 * time.Hour)},
		{SubmissionID: sub.ID, CourseID: env.crs.ID, Value: 70, GradedAt: now},
		{SubmissionID: sub.ID, CourseID: env.crs.ID, Value: 80, GradedAt: now}, // tie
	} {
		_, err := env.grdRepo.CreateGrade(ctx, grd)
		require.NoError(t, err, "grade %d", i)
	}

	grades, err := env.svc.StudentCourseGrades(ctx, principal(env.student), env.crs.ID, env.student.ID)
	require.NoError(t, err)
	require.Len(t, grades, 3)

	// most recent first; ties keep insertion order
	assert.Equal(t, []int{70, 80, 60}, []int{grades[0].Value, grades[1].Value, grades[2].Value})
}

func TestService_StudentCourseGrades_authz(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	carol := createUser(t, env.usrRepo, "carol", user.RoleStudent)
	_, err := env.svc.StudentCourseGrades(ctx, principal(carol), env.crs.ID, env.student.ID)
	assert.Equal(t, authz.ErrUnauthorized, err)

	// empty history reads as an empty sequence
	grades, err := env.svc.StudentCourseGrades(ctx, principal(env.student), env.crs.ID, env.student.ID)
	require.NoError(t, err)
	assert.Empty(t, grades)
}

func TestService_CourseStudents(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	students, err := env.svc.CourseStudents(ctx, principal(env.teacher), env.crs.ID)
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, env.student.ID, students[0].ID)
	assert.Equal(t, "alice", students[0].Username)
	assert.NotNil(t, students[0].Grades)
	assert.Empty(t, students[0].Grades)

	// only the owning teacher may look
	eve := createUser(t, env.usrRepo, "eve", user.RoleTeacher)
	_, err = env.svc.CourseStudents(ctx, principal(eve), env.crs.ID)
	assert.Equal(t, authz.ErrUnauthorized, err)
}

func TestService_SubmitAssignment(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	asg, err := env.crsRepo.CreateAssignment(ctx, course.Assignment{
		Title:    "hw1",
		CourseID: env.crs.ID,
		DueDate:  time.Now().UTC().Add(24 * time.Hour),
	})
	require.NoError(t, err)

	sub, err := env.svc.SubmitAssignment(
		ctx,
		principal(env.student),
		grading.NewSubmission{AssignmentID: asg.ID, StudentID: env.student.ID},
		"essay.pdf",
		bytes.NewReader([]byte("content")),
	)
	require.NoError(t, err)
	assert.Equal(t, env.crs.ID, sub.CourseID, "the course comes from the assignment")
	assert.False(t, sub.Grade.Valid, "self-submissions start ungraded")
	require.True(t, sub.FilePath.Valid)

	// the stored file is retrievable under the derived key
	f, err := env.store.Open(ctx, sub.FilePath.String)
	require.NoError(t, err)
	defer f.Close()
	data, err := ioutil.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "content", string(data))
}

func TestService_SubmitAssignment_authz(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	carol := createUser(t, env.usrRepo, "carol", user.RoleStudent)

	// a student can only submit as themselves
	_, err := env.svc.SubmitAssignment(
		ctx,
		principal(carol),
		grading.NewSubmission{AssignmentID: 1, StudentID: env.student.ID},
		"essay.pdf",
		bytes.NewReader(nil),
	)
	assert.Equal(t, authz.ErrUnauthorized, err)

	// unknown assignment is a referential failure
	_, err = env.svc.SubmitAssignment(
		ctx,
		principal(env.student),
		grading.NewSubmission{AssignmentID: 999, StudentID: env.student.ID},
		"essay.pdf",
		bytes.NewReader(nil),
	)
	_, ok := err.(*core.ReferentialError)
	assert.True(t, ok, "SubmitAssignment() error = %v, want *core.ReferentialError", err)
}

func TestService_Download(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	asg, err := env.crsRepo.CreateAssignment(ctx, course.Assignment{
		Title:    "hw1",
		CourseID: env.crs.ID,
		DueDate:  time.Now().UTC().Add(24 * time.Hour),
	})
	require.NoError(t, err)

	sub, err := env.svc.SubmitAssignment(
		ctx,
		principal(env.student),
		grading.NewSubmission{AssignmentID: asg.ID, StudentID: env.student.ID},
		"essay.pdf",
		bytes.NewReader([]byte("content")),
	)
	require.NoError(t, err)
	key := sub.FilePath.String

	// owner student and owning teacher may download
	for _, p := range []authz.Principal{principal(env.student), principal(env.teacher)} {
		f, err := env.svc.Download(ctx, p, key)
		require.NoError(t, err)
		f.Close()
	}

	// another student may not
	carol := createUser(t, env.usrRepo, "carol", user.RoleStudent)
	_, err = env.svc.Download(ctx, principal(carol), key)
	assert.Equal(t, authz.ErrUnauthorized, err)

	// unknown keys surface as missing files
	_, err = env.svc.Download(ctx, principal(env.student), "nope.pdf")
	assert.Equal(t, grading.ErrFileNotFound, err)
}

func TestService_ExportGrades(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	err := env.svc.ExportGrades(ctx, principal(env.teacher), env.crs.ID, "csv")
	require.NoError(t, err)
	require.Len(t, env.reports.Requests, 1)
	assert.Equal(t, core.ReportRequest{CourseID: env.crs.ID, Format: "csv"}, env.reports.Requests[0])

	// only the owning teacher may export
	eve := createUser(t, env.usrRepo, "eve", user.RoleTeacher)
	err = env.svc.ExportGrades(ctx, principal(eve), env.crs.ID, "csv")
	assert.Equal(t, authz.ErrUnauthorized, err)

	// formats outside the allow list never reach the generator
	err = env.svc.ExportGrades(ctx, principal(env.teacher), env.crs.ID, "csv; rm -rf /")
	_, ok := err.(*core.ValidationError)
	assert.True(t, ok, "ExportGrades() error = %v, want *core.ValidationError", err)
	assert.Len(t, env.reports.Requests, 1)
}
