package user

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
)

var (
	// errors
	ErrNotFound       = errors.New("user not found")
	ErrUsernameExists = errors.New("a user with this username already exists")
)

type (
	Repository interface {
		CheckUsernameUniqueness(ctx context.Context, username string, exec ...core.DBExecutor) error
		CreateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		GetUserByID(ctx context.Context, id int, exec ...core.DBExecutor) (User, error)
		GetUserByUsername(ctx context.Context, username string, exec ...core.DBExecutor) (User, error)
		QueryUsersByRole(ctx context.Context, role string, exec ...core.DBExecutor) ([]User, error)
	}

	ServiceInterface interface {
		CheckUniqueness(uname string) error
		Register(ctx context.Context, nu NewUser) (User, error)
		GetByID(ctx context.Context, id int) (User, error)
		GetByUsername(ctx context.Context, uname string) (User, error)
		QueryByRole(ctx context.Context, role string) ([]User, error)
	}

	Service struct {
		repo    Repository
		mailSvc core.EmailService
		conf    *core.Config
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository, mailSvc core.EmailService, conf *core.Config) *Service {
	return &Service{
		repo:    repo,
		mailSvc: mailSvc,
		conf:    conf,
	}
}

func (svc *Service) CheckUniqueness(uname string) error {
	if err := svc.repo.CheckUsernameUniqueness(context.Background(), uname); err != nil {
		if errors.Cause(err) == ErrUsernameExists {
			return core.NewValidationError(err, core.FieldError{Field: "username", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *Service) Register(ctx context.Context, nu NewUser) (User, error) {
	usr := User{
		Username:  nu.Username,
		Role:      nu.Role,
		CreatedAt: time.Now().UTC(),
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}

	usr, err := svc.repo.CreateUser(ctx, usr)
	if err != nil {
		return User{}, errors.Wrap(err, "creating user")
	}

	svc.sendWelcomeEmail(usr)
	return usr, nil
}

func (svc *Service) GetByID(ctx context.Context, id int) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetByUsername(ctx context.Context, uname string) (User, error) {
	return svc.repo.GetUserByUsername(ctx, core.CleanString(uname, true /* lower */))
}

func (svc *Service) QueryByRole(ctx context.Context, role string) ([]User, error) {
	return svc.repo.QueryUsersByRole(ctx, role)
}

func (svc *Service) sendWelcomeEmail(usr User) {
	// usernames are not addresses; only mail when one parses as such
	addr, err := mail.ParseAddress(usr.Username)
	if err != nil {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{*addr},
		Subject: "Welcome to " + svc.conf.AppName,
		BodyStr: fmt.Sprintf("Hi %s,\n\nYour %s account is ready.", usr.Username, svc.conf.AppName),
	})
}
