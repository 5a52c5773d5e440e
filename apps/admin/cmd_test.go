package main

import (
	"context"
	"database/sql"
	"io/fs"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/user"
	inmemdb "github.com/trezcool/academia/storage/database/inmem"
)

func newTestCLI(t *testing.T) *commandLine {
	t.Helper()
	db, err := inmemdb.Open()
	require.NoError(t, err)
	return &commandLine{
		conf:    &core.Config{AppName: "Academia"},
		usrRepo: inmemdb.NewUserRepository(db),
		crsRepo: inmemdb.NewCourseRepository(db),
	}
}

func mockPassword(pwd string) func() {
	orig := readPasswordFunc
	readPasswordFunc = func(fd int) ([]byte, error) { return []byte(pwd), nil }
	return func() { readPasswordFunc = orig }
}

func Test_commandLine_run(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		pwd     string
		wantErr error
	}{
		{name: "no args", args: []string{"admin"}, wantErr: errHelp},
		{name: "unknown command", args: []string{"admin", "frobnicate"}, wantErr: errHelp},
		{name: "adduser missing username", args: []string{"admin", "adduser"}, wantErr: errHelp},
		{name: "adduser empty password", args: []string{"admin", "adduser", "-username", "jdoe"}, pwd: "", wantErr: errHelp},
		{name: "migrate missing subcommand", args: []string{"admin", "migrate"}, wantErr: errHelp},
		{name: "adduser ok", args: []string{"admin", "adduser", "-username", "jdoe"}, pwd: "s3cretphrase"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cli := newTestCLI(t)
			restore := mockPassword(tt.pwd)
			defer restore()

			err := cli.run(tt.args)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	ctx := context.Background()

	t.Run("ok", func(t *testing.T) {
		cli := newTestCLI(t)
		require.NoError(t, cli.addUser(" JDoe ", "s3cretphrase", "Teacher"))

		usr, err := cli.usrRepo.GetUserByUsername(ctx, "jdoe")
		require.NoError(t, err)
		assert.Equal(t, user.RoleTeacher, usr.Role)
		assert.NoError(t, usr.CheckPassword("s3cretphrase"))
	})

	t.Run("unknown role", func(t *testing.T) {
		cli := newTestCLI(t)
		assert.EqualError(t, cli.addUser("jdoe", "s3cretphrase", "admin"), `unknown role "admin"`)
	})

	t.Run("duplicate username", func(t *testing.T) {
		cli := newTestCLI(t)
		require.NoError(t, cli.addUser("jdoe", "s3cretphrase", user.RoleStudent))

		err := cli.addUser("jdoe", "s3cretphrase", user.RoleStudent)
		require.Error(t, err)
		assert.IsType(t, &core.ValidationError{}, err)
	})
}

func Test_commandLine_migrate(t *testing.T) {
	var gotCommand, gotDir string
	var gotArgs []string
	orig := gooseRunFunc
	gooseRunFunc = func(command string, db *sql.DB, fsys fs.FS, dir string, args ...string) error {
		gotCommand, gotDir, gotArgs = command, dir, args
		return nil
	}
	defer func() { gooseRunFunc = orig }()

	cli := newTestCLI(t)
	cli.db = sqlx.NewDb(nil, "postgres")

	require.NoError(t, cli.run([]string{"admin", "migrate", "up-to", "00001"}))
	assert.Equal(t, "up-to", gotCommand)
	assert.Equal(t, "migrations", gotDir)
	assert.Equal(t, []string{"00001"}, gotArgs)
}

func Test_commandLine_seed(t *testing.T) {
	ctx := context.Background()
	cli := newTestCLI(t)

	require.NoError(t, cli.seed())

	teacher, err := cli.usrRepo.GetUserByUsername(ctx, defaultTeacherUsername)
	require.NoError(t, err)
	assert.Equal(t, user.RoleTeacher, teacher.Role)

	courses, err := cli.crsRepo.QueryAllCourses(ctx)
	require.NoError(t, err)
	require.Len(t, courses, len(sampleCourses))
	for i, crs := range courses {
		assert.Equal(t, sampleCourses[i].Title, crs.Title)
		assert.Equal(t, teacher.ID, crs.TeacherID)
	}

	// idempotent
	require.NoError(t, cli.seed())
	courses, err = cli.crsRepo.QueryAllCourses(ctx)
	require.NoError(t, err)
	assert.Len(t, courses, len(sampleCourses))
}
