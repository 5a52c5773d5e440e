package course_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/authz"
	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/user"
	inmemdb "github.com/trezcool/academia/storage/database/inmem"
)

type testEnv struct {
	svc     *course.Service
	usrRepo user.Repository
	crsRepo course.Repository
}

func setup(t *testing.T) testEnv {
	db, err := inmemdb.Open()
	require.NoError(t, err)

	usrRepo := inmemdb.NewUserRepository(db)
	crsRepo := inmemdb.NewCourseRepository(db)
	engine := authz.NewEngine(crsRepo)
	return testEnv{
		svc:     course.NewService(crsRepo, usrRepo, engine),
		usrRepo: usrRepo,
		crsRepo: crsRepo,
	}
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

func TestService_Create(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	teacher := createUser(t, env.usrRepo, "bob", user.RoleTeacher)
	student := createUser(t, env.usrRepo, "alice", user.RoleStudent)

	crs, err := env.svc.Create(ctx, principal(teacher), course.NewCourse{Title: "X", Description: "desc"})
	require.NoError(t, err)
	assert.Equal(t, teacher.ID, crs.TeacherID)
	assert.Equal(t, "X", crs.Title)

	_, err = env.svc.Create(ctx, principal(student), course.NewCourse{Title: "Y"})
	assert.Equal(t, authz.ErrUnauthorized, err)
}

func TestService_ListForPrincipal(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	bob := createUser(t, env.usrRepo, "bob", user.RoleTeacher)
	eve := createUser(t, env.usrRepo, "eve", user.RoleTeacher)
	alice := createUser(t, env.usrRepo, "alice", user.RoleStudent)

	crs1, err := env.svc.Create(ctx, principal(bob), course.NewCourse{Title: "Bob 101"})
	require.NoError(t, err)
	crs2, err := env.svc.Create(ctx, principal(eve), course.NewCourse{Title: "Eve 101"})
	require.NoError(t, err)

	_, err = env.svc.Enroll(ctx, principal(alice), course.NewEnrollment{CourseID: crs1.ID})
	require.NoError(t, err)

	// a teacher sees only their own courses, without the enrolled flag
	infos, err := env.svc.ListForPrincipal(ctx, principal(bob))
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, crs1.ID, infos[0].ID)
	assert.Equal(t, "bob", infos[0].TeacherName)
	assert.Nil(t, infos[0].Enrolled)

	// a student sees all courses annotated with their enrollment
	infos, err = env.svc.ListForPrincipal(ctx, principal(alice))
	require.NoError(t, err)
	require.Len(t, infos, 2)
	byID := map[int]course.CourseInfo{infos[0].ID: infos[0], infos[1].ID: infos[1]}
	require.NotNil(t, byID[crs1.ID].Enrolled)
	assert.True(t, *byID[crs1.ID].Enrolled)
	assert.Equal(t, "bob", byID[crs1.ID].TeacherName)
	require.NotNil(t, byID[crs2.ID].Enrolled)
	assert.False(t, *byID[crs2.ID].Enrolled)
	assert.Equal(t, "eve", byID[crs2.ID].TeacherName)
}

func TestService_Enroll(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	bob := createUser(t, env.usrRepo, "bob", user.RoleTeacher)
	alice := createUser(t, env.usrRepo, "alice", user.RoleStudent)

	crs, err := env.svc.Create(ctx, principal(bob), course.NewCourse{Title: "X"})
	require.NoError(t, err)

	enr, err := env.svc.Enroll(ctx, principal(alice), course.NewEnrollment{CourseID: crs.ID})
	require.NoError(t, err)
	assert.Equal(t, alice.ID, enr.StudentID)
	assert.Equal(t, crs.ID, enr.CourseID)

	// enrollment is a single fact per (student, course)
	_, err = env.svc.Enroll(ctx, principal(alice), course.NewEnrollment{CourseID: crs.ID})
	vErr, ok := err.(*core.ValidationError)
	require.True(t, ok, "Enroll() error = %v, want *core.ValidationError", err)
	assert.Equal(t, "course_id", vErr.Fields[0].Field)

	// teachers cannot enroll
	_, err = env.svc.Enroll(ctx, principal(bob), course.NewEnrollment{CourseID: crs.ID})
	assert.Equal(t, authz.ErrUnauthorized, err)

	// unknown course is a referential failure
	_, err = env.svc.Enroll(ctx, principal(alice), course.NewEnrollment{CourseID: 999})
	_, ok = err.(*core.ReferentialError)
	assert.True(t, ok, "Enroll() error = %v, want *core.ReferentialError", err)
}

func TestService_Assignments(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	bob := createUser(t, env.usrRepo, "bob", user.RoleTeacher)
	eve := createUser(t, env.usrRepo, "eve", user.RoleTeacher)
	alice := createUser(t, env.usrRepo, "alice", user.RoleStudent)

	crs, err := env.svc.Create(ctx, principal(bob), course.NewCourse{Title: "X"})
	require.NoError(t, err)

	due := time.Now().UTC().Add(7 * 24 * time.Hour)
	asg, err := env.svc.CreateAssignment(ctx, principal(bob), crs.ID, course.NewAssignment{Title: "hw1", DueDate: due})
	require.NoError(t, err)
	assert.Equal(t, crs.ID, asg.CourseID)

	// only the owning teacher can add assignments
	_, err = env.svc.CreateAssignment(ctx, principal(eve), crs.ID, course.NewAssignment{Title: "hw2", DueDate: due})
	assert.Equal(t, authz.ErrUnauthorized, err)

	// any authenticated principal can list
	asgs, err := env.svc.Assignments(ctx, principal(alice), crs.ID)
	require.NoError(t, err)
	require.Len(t, asgs, 1)
	assert.Equal(t, "hw1", asgs[0].Title)

	// empty result is an empty sequence, not an error
	crs2, err := env.svc.Create(ctx, principal(bob), course.NewCourse{Title: "Y"})
	require.NoError(t, err)
	asgs, err = env.svc.Assignments(ctx, principal(alice), crs2.ID)
	require.NoError(t, err)
	assert.Empty(t, asgs)
}
