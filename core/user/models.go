package user

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/academia/core"
)

// Roles. A user's role is fixed at registration.
const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
)

var AllRoles = []string{RoleStudent, RoleTeacher}

type User struct {
	ID           int       `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	Role         string    `json:"role" db:"role"`
	PasswordHash []byte    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) IsTeacher() bool { return u.Role == RoleTeacher }
func (u *User) IsStudent() bool { return u.Role == RoleStudent }

// NewUser contains information needed to register a new User.
type NewUser struct {
	Username string `json:"username" validate:"required,min=3,alphanum_"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role" validate:"required,userrole"`
}

func (nu *NewUser) Validate(validate *validator.Validate, translator ut.Translator, svc ServiceInterface) error {
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	nu.Role = core.CleanString(nu.Role, true /* lower */)

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckUniqueness(nu.Username)
}
