package main

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/user"
)

// addUser creates a user.User with the given role.
func (cli *commandLine) addUser(uname, pwd, role string) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	role = core.CleanString(role, true /* lower */)

	if role != user.RoleStudent && role != user.RoleTeacher {
		return errors.Errorf("unknown role %q", role)
	}
	if err := cli.usrRepo.CheckUsernameUniqueness(ctx, uname); err != nil {
		return err
	}

	usr := user.User{
		Username:  uname,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}
	if _, err := cli.usrRepo.CreateUser(ctx, usr); err != nil {
		return err
	}
	return nil
}
