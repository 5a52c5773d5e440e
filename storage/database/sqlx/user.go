package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/user"
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// isPqError reports whether err is a postgres error with the given code.
func isPqError(err error, code string) bool {
	if pqErr, ok := errors.Cause(err).(*pq.Error); ok {
		return string(pqErr.Code) == code
	}
	return false
}

type userRepository struct {
	exec core.DBExecutor
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(exec core.DBExecutor) *userRepository {
	return &userRepository{exec: exec}
}

func (repo userRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.exec
}

// trapNoRowsErr maps psql "no rows" err to user.ErrNotFound
func (repo userRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return user.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo userRepository) CheckUsernameUniqueness(ctx context.Context, username string, exec ...core.DBExecutor) error {
	var exists bool
	err := repo.getExec(exec).GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM "user" WHERE username = $1)`, username)
	if err != nil {
		return errors.Wrap(err, "checking username uniqueness")
	}
	if exists {
		return user.ErrUsernameExists
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	err := repo.getExec(exec).GetContext(ctx, &usr.ID,
		`INSERT INTO "user" (username, role, password_hash, created_at)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		usr.Username, usr.Role, usr.PasswordHash, usr.CreatedAt)
	if err != nil {
		if isPqError(err, pqUniqueViolation) {
			return user.User{}, user.ErrUsernameExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo userRepository) GetUserByID(ctx context.Context, id int, exec ...core.DBExecutor) (user.User, error) {
	var usr user.User
	err := repo.getExec(exec).GetContext(ctx, &usr, `SELECT * FROM "user" WHERE id = $1`, id)
	if err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "finding user by ID")
	}
	return usr, nil
}

func (repo userRepository) GetUserByUsername(ctx context.Context, username string, exec ...core.DBExecutor) (user.User, error) {
	var usr user.User
	err := repo.getExec(exec).GetContext(ctx, &usr, `SELECT * FROM "user" WHERE username = $1`, username)
	if err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "finding user by username")
	}
	return usr, nil
}

func (repo userRepository) QueryUsersByRole(ctx context.Context, role string, exec ...core.DBExecutor) ([]user.User, error) {
	users := make([]user.User, 0)
	err := repo.getExec(exec).SelectContext(ctx, &users,
		`SELECT * FROM "user" WHERE role = $1 ORDER BY id`, role)
	if err != nil {
		return nil, errors.Wrap(err, "querying users by role")
	}
	return users, nil
}
