package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/authz"
	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/grading"
	"github.com/trezcool/academia/core/user"
	emailsvc "github.com/trezcool/academia/services/email"
	logsvc "github.com/trezcool/academia/services/logger"
	reportsvc "github.com/trezcool/academia/services/report"
	inmemdb "github.com/trezcool/academia/storage/database/inmem"
	"github.com/trezcool/academia/storage/uploads"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type testEnv struct {
	app     Server
	conf    *core.Config
	db      *inmemdb.DB
	usrRepo user.Repository
	crsRepo course.Repository
	grdRepo *inmemdb.GradingRepository
	store   *uploads.MemStore
	reports *reportsvc.GeneratorServiceMock
}

func setup(t *testing.T) *testEnv {
	db, err := inmemdb.Open()
	require.NoError(t, err)

	conf := &core.Config{
		TestMode:  true,
		AppName:   "Academia",
		SecretKey: []byte("poq5-wer_so-secret"),
		Server: core.ServerConfig{
			JWTExpirationDelta:        10 * time.Minute,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
	}

	env := &testEnv{
		conf:    conf,
		db:      db,
		usrRepo: inmemdb.NewUserRepository(db),
		crsRepo: inmemdb.NewCourseRepository(db),
		grdRepo: inmemdb.NewGradingRepository(db),
		store:   uploads.NewMemStore(),
		reports: reportsvc.NewGeneratorServiceMock(),
	}

	engine := authz.NewEngine(env.crsRepo)
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	usrSvc := user.NewService(env.usrRepo, mailSvc, conf)
	crsSvc := course.NewService(env.crsRepo, env.usrRepo, engine)
	grdSvc := grading.NewService(env.grdRepo, env.crsRepo, env.usrRepo, engine, env.store, env.reports)

	validate := validator.New()
	translator := newTestTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	env.app = NewServer(ServerDeps{
		Conf:           conf,
		Logger:         logsvc.NewTestLogger(log.New(os.Stdout, "TEST : ", log.LstdFlags)),
		UserSvc:        usrSvc,
		CourseSvc:      crsSvc,
		GradingSvc:     grdSvc,
		Validate:       validate,
		Translator:     translator,
		DisableReqLogs: true,
	})
	return env
}

func newTestTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func (env *testEnv) createUser(t *testing.T, uname, role string) user.User {
	t.Helper()
	usr := user.User{Username: uname, Role: role, CreatedAt: time.Now().UTC()}
	require.NoError(t, usr.SetPassword("s3cretphrase"))
	usr, err := env.usrRepo.CreateUser(context.Background(), usr)
	require.NoError(t, err)
	return usr
}

func (env *testEnv) createCourse(t *testing.T, teacher user.User, title string) course.Course {
	t.Helper()
	crs, err := env.crsRepo.CreateCourse(context.Background(), course.Course{Title: title, TeacherID: teacher.ID})
	require.NoError(t, err)
	return crs
}

func (env *testEnv) enroll(t *testing.T, student user.User, crs course.Course) course.Enrollment {
	t.Helper()
	enr, err := env.crsRepo.CreateEnrollment(context.Background(), course.Enrollment{
		StudentID:  student.ID,
		CourseID:   crs.ID,
		EnrolledAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	return enr
}

func (env *testEnv) getToken(t *testing.T, usr user.User) string {
	t.Helper()
	token, err := GenerateToken(env.conf, GetUserClaims(env.conf, usr))
	require.NoError(t, err)
	return token
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func newUploadRequest(t *testing.T, path, token string, fields map[string]string, filename string, content []byte) (*http.Request, *httptest.ResponseRecorder) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if filename != "" {
		fw, err := w.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

// nolint
func marchallList(t *testing.T, objs ...interface{}) []byte {
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst))
}

func drain(t *testing.T, r io.Reader) []byte {
	t.Helper()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	return data
}
