package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/user"
)

const defaultTeacherUsername = "john.smith"

var sampleCourses = []course.NewCourse{
	{Title: "Web Security Basics", Description: "Learn about XSS, CSRF, and SQL Injection"},
	{Title: "Network Security", Description: "Understanding network protocols and security measures"},
	{Title: "Machine Learning & AI", Description: "Understanding Supervised and unsupervised learning."},
}

// seed creates the default teacher and their sample courses. Re-running
// against a seeded database is a no-op.
func (cli *commandLine) seed() error {
	ctx := context.Background()

	if _, err := cli.usrRepo.GetUserByUsername(ctx, defaultTeacherUsername); err == nil {
		fmt.Println("Database already seeded")
		return nil
	} else if errors.Cause(err) != user.ErrNotFound {
		return err
	}

	pwd, err := randomPassword()
	if err != nil {
		return err
	}

	teacher := user.User{
		Username:  defaultTeacherUsername,
		Role:      user.RoleTeacher,
		CreatedAt: time.Now().UTC(),
	}
	if err := teacher.SetPassword(pwd); err != nil {
		return err
	}
	teacher, err = cli.usrRepo.CreateUser(ctx, teacher)
	if err != nil {
		return err
	}
	fmt.Printf("Default teacher created - username: %s, password: %s\n", teacher.Username, pwd)

	for _, nc := range sampleCourses {
		crs := course.Course{
			Title:       nc.Title,
			Description: nc.Description,
			TeacherID:   teacher.ID,
		}
		if _, err := cli.crsRepo.CreateCourse(ctx, crs); err != nil {
			return err
		}
	}
	fmt.Println("Sample courses created")
	return nil
}

func randomPassword() (string, error) {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
