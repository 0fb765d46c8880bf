package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	echoapi "github.com/mavlabs/read/apps/api/echo"
	"github.com/mavlabs/read/core"
	"github.com/mavlabs/read/core/academic"
	"github.com/mavlabs/read/core/catalog"
	"github.com/mavlabs/read/core/school"
	"github.com/mavlabs/read/core/session"
	"github.com/mavlabs/read/core/user"
	emailsvc "github.com/mavlabs/read/services/email"
	dummydb "github.com/mavlabs/read/storage/database/dummy"
)

type nopLogger struct{}

func (nopLogger) Enable(bool)                  {}
func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

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
}

// apiFixture seeds an NGO (school, classroom, enrolled students, levels, one
// book copy) plus users of every role, and wires a full test server on the
// in-memory backend.
type apiFixture struct {
	app     echoapi.Server
	usrRepo user.Repository

	ngoID       string
	yearID      string
	classroomID string
	regLevelID  string
	evalLevelID string
	bookID      string
	inventoryID string
	studentIDs  []string

	fairy      user.User
	supervisor user.User
	admin      user.User
	outsider   user.User // fairy of another NGO
}

func setup(t *testing.T, studentCount int) *apiFixture {
	t.Helper()
	ctx := context.Background()

	core.Conf.Debug = false
	core.Conf.TestMode = true

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open(): %v", err)
	}

	f := &apiFixture{ngoID: core.NewKey()}
	now := time.Now().UTC()

	yearRepo := dummydb.NewAcademicYearRepository(db)
	schoolRepo := dummydb.NewSchoolRepository(db)
	catalogRepo := dummydb.NewCatalogRepository(db)
	f.usrRepo = dummydb.NewUserRepository(db)

	f.yearID = core.NewKey()
	if _, err = yearRepo.CreateYear(ctx, academic.Year{ID: f.yearID, Name: academic.YearName(now), CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("seeding academic year: %v", err)
	}

	schoolID := core.NewKey()
	if _, err = schoolRepo.CreateSchool(ctx, school.School{ID: schoolID, NGOID: f.ngoID, Name: "Hillside Primary", IsActive: true}); err != nil {
		t.Fatalf("seeding school: %v", err)
	}
	f.classroomID = core.NewKey()
	if _, err = schoolRepo.CreateClassroom(ctx, school.Classroom{ID: f.classroomID, SchoolID: schoolID, Standard: "3", Division: "A", IsActive: true}); err != nil {
		t.Fatalf("seeding classroom: %v", err)
	}

	for i := 0; i < studentCount; i++ {
		std := school.Student{
			ID:        core.NewKey(),
			NGOID:     f.ngoID,
			FirstName: fmt.Sprintf("Student%d", i+1),
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if _, err = schoolRepo.CreateStudent(ctx, std); err != nil {
			t.Fatalf("seeding student: %v", err)
		}
		enr := school.Enrollment{
			ID:             core.NewKey(),
			AcademicYearID: f.yearID,
			ClassroomID:    f.classroomID,
			StudentID:      std.ID,
			IsActive:       true,
		}
		if _, err = schoolRepo.Enroll(ctx, enr); err != nil {
			t.Fatalf("enrolling student: %v", err)
		}
		f.studentIDs = append(f.studentIDs, std.ID)
	}

	f.regLevelID = core.NewKey()
	if _, err = catalogRepo.CreateLevel(ctx, catalog.Level{ID: f.regLevelID, NGOID: f.ngoID, Name: "Letters", Rank: 1, ForRegular: true}); err != nil {
		t.Fatalf("seeding level: %v", err)
	}
	f.evalLevelID = core.NewKey()
	if _, err = catalogRepo.CreateLevel(ctx, catalog.Level{ID: f.evalLevelID, NGOID: f.ngoID, Name: "Words", Rank: 2, ForEvaluation: true}); err != nil {
		t.Fatalf("seeding level: %v", err)
	}
	f.bookID = core.NewKey()
	if _, err = catalogRepo.CreateBook(ctx, catalog.Book{ID: f.bookID, NGOID: f.ngoID, Title: "The Hungry Caterpillar"}); err != nil {
		t.Fatalf("seeding book: %v", err)
	}
	f.inventoryID = core.NewKey()
	if _, err = catalogRepo.CreateInventory(ctx, catalog.Inventory{ID: f.inventoryID, BookID: f.bookID, SerialNumber: "BK-001", Status: catalog.StatusGood}); err != nil {
		t.Fatalf("seeding inventory: %v", err)
	}

	f.fairy = f.createUser(t, "Jane Doe", "janedoe", "jane@test.cd", f.ngoID, []string{user.RoleFairy})
	f.supervisor = f.createUser(t, "Sam Boss", "samboss", "sam@test.cd", f.ngoID, []string{user.RoleSupervisor})
	f.admin = f.createUser(t, "Root Admin", "rootadmin", "root@test.cd", "", []string{user.RoleAdmin})

	otherNGO := core.NewKey()
	f.outsider = f.createUser(t, "Far Away", "faraway", "far@test.cd", otherNGO, []string{user.RoleFairy})

	mailSvc := emailsvc.NewConsoleServiceMock()
	usrSvc := user.NewServiceMock(f.usrRepo, mailSvc)
	sessionSvc := session.NewService(
		dummydb.NewTransactor(db),
		dummydb.NewSessionRepository(db),
		schoolRepo,
		catalogRepo,
		dummydb.NewDirectory(db),
		mailSvc,
		nopLogger{},
	)
	academicSvc := academic.NewService(yearRepo)

	f.app = echoapi.NewServer(
		&echoapi.Options{
			DisableReqLogs: true,
			Logger:         nopLogger{},
			UserSvc:        usrSvc,
			SessionSvc:     sessionSvc,
			AcademicSvc:    academicSvc,
		},
	)
	return f
}

func (f *apiFixture) createUser(t *testing.T, name, uname, email, ngoID string, roles []string) user.User {
	t.Helper()

	now := time.Now().UTC()
	usr := user.User{
		ID:        core.NewKey(),
		NGOID:     ngoID,
		Name:      name,
		Username:  uname,
		Email:     email,
		IsActive:  true,
		Roles:     roles,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword("LocalHer0!"); err != nil {
		t.Fatalf("SetPassword(): %v", err)
	}
	usr, err := f.usrRepo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser(): %v", err)
	}
	return usr
}

func getToken(t *testing.T, usr user.User) string {
	t.Helper()

	claims := echoapi.GetUserClaims(usr)
	token, err := echoapi.GenerateToken(claims)
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
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

func jsonMarshal(t *testing.T, v interface{}) []byte {
	t.Helper()

	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("json.Marshal(): %v", err)
	}
	return b
}

func (f *apiFixture) do(req *http.Request, rec *httptest.ResponseRecorder) *httptest.ResponseRecorder {
	f.app.ServeHTTP(rec, req)
	return rec
}

func checkCode(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()

	if rec.Code != want {
		t.Fatalf("status = %d, want %d; body: %s", rec.Code, want, rec.Body.String())
	}
}
