package session_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

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

// fixture seeds an NGO with one school, one classroom, enrolled students,
// two fairies, reading levels and one book copy.
type fixture struct {
	svc        *session.Service
	schoolRepo school.Repository
	userRepo   user.Repository

	ngoID        string
	yearID       string
	classroomID  string
	fairyID      string
	fairy2ID     string
	supervisorID string
	studentIDs   []string
	regLevelID   string
	evalLevelID  string
	bookID       string
	inventoryID  string
}

func newFixture(t *testing.T, studentCount int) *fixture {
	t.Helper()
	ctx := context.Background()

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open(): %v", err)
	}

	f := &fixture{ngoID: core.NewKey()}
	now := time.Now().UTC()

	yearRepo := dummydb.NewAcademicYearRepository(db)
	schoolRepo := dummydb.NewSchoolRepository(db)
	catalogRepo := dummydb.NewCatalogRepository(db)
	userRepo := dummydb.NewUserRepository(db)
	f.schoolRepo = schoolRepo
	f.userRepo = userRepo

	f.yearID = core.NewKey()
	year := academic.Year{ID: f.yearID, Name: "AY 25-26", CreatedAt: now, UpdatedAt: now}
	if _, err = yearRepo.CreateYear(ctx, year); err != nil {
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

	seedUser := func(name string, roles []string) string {
		usr := user.User{ID: core.NewKey(), NGOID: f.ngoID, Name: name, IsActive: true, Roles: roles}
		if _, err := userRepo.CreateUser(ctx, usr); err != nil {
			t.Fatalf("seeding user: %v", err)
		}
		return usr.ID
	}
	f.fairyID = seedUser("Jane Doe", []string{user.RoleFairy})
	f.fairy2ID = seedUser("Thandi N.", []string{user.RoleFairy})
	f.supervisorID = seedUser("Sam Boss", []string{user.RoleSupervisor})

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

	f.svc = session.NewService(
		dummydb.NewTransactor(db),
		dummydb.NewSessionRepository(db),
		schoolRepo,
		catalogRepo,
		dummydb.NewDirectory(db),
		emailsvc.NewConsoleServiceMock(),
		nopLogger{},
	)
	return f
}

func (f *fixture) newSessions(typ session.Type, windows ...session.Window) session.NewSessions {
	return session.NewSessions{
		AcademicYearID: f.yearID,
		Type:           typ,
		ClassroomIDs:   []string{f.classroomID},
		FairyIDs:       []string{f.fairyID},
		Windows:        windows,
	}
}

func window(day time.Time, fromH, fromM, toH, toM int) session.Window {
	return session.Window{
		Start: day.Add(time.Duration(fromH)*time.Hour + time.Duration(fromM)*time.Minute),
		End:   day.Add(time.Duration(toH)*time.Hour + time.Duration(toM)*time.Minute),
	}
}

var testDay = time.Date(2025, time.July, 14, 0, 0, 0, 0, time.UTC)

func TestServiceCreate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1)

	created, err := f.svc.Create(ctx, f.newSessions(session.Regular, window(testDay, 10, 0, 11, 0)))
	if err != nil {
		t.Fatalf("Create(): %v", err)
	}
	if len(created) != 1 {
		t.Fatalf("Create() created %d sessions, want 1", len(created))
	}
	s := created[0]
	if s.Type != session.Regular || s.IsEvaluated || s.IsVerified || s.IsCancelled {
		t.Errorf("Create() session state = %+v, want fresh REGULAR session", s)
	}

	t.Run("overlap rejected", func(t *testing.T) {
		_, err := f.svc.Create(ctx, f.newSessions(session.Regular, window(testDay, 10, 30, 11, 30)))
		var confErr *session.ConflictError
		if !errors.As(err, &confErr) {
			t.Fatalf("Create() error = %v, want ConflictError", err)
		}
		if len(confErr.Overlaps) != 1 || confErr.Overlaps[0].SessionID != s.ID {
			t.Errorf("ConflictError.Overlaps = %+v, want existing session", confErr.Overlaps)
		}
	})

	t.Run("touching rejected", func(t *testing.T) {
		_, err := f.svc.Create(ctx, f.newSessions(session.Regular, window(testDay, 11, 0, 12, 0)))
		var confErr *session.ConflictError
		if !errors.As(err, &confErr) {
			t.Fatalf("Create() error = %v, want ConflictError", err)
		}
	})

	t.Run("gap accepted", func(t *testing.T) {
		if _, err := f.svc.Create(ctx, f.newSessions(session.Regular, window(testDay, 11, 1, 12, 0))); err != nil {
			t.Errorf("Create() error = %v, want nil", err)
		}
	})

	t.Run("different fairy accepted", func(t *testing.T) {
		ns := f.newSessions(session.Regular, window(testDay, 10, 0, 11, 0))
		ns.FairyIDs = []string{f.fairy2ID}
		if _, err := f.svc.Create(ctx, ns); err != nil {
			t.Errorf("Create() error = %v, want nil", err)
		}
	})

	t.Run("book lending exempt", func(t *testing.T) {
		if _, err := f.svc.Create(ctx, f.newSessions(session.BookLending, window(testDay, 10, 0, 11, 0))); err != nil {
			t.Errorf("Create() error = %v, want nil", err)
		}
	})
}

func TestServiceCreateAllOrNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1)

	if _, err := f.svc.Create(ctx, f.newSessions(session.Regular, window(testDay, 14, 0, 15, 0))); err != nil {
		t.Fatalf("Create(): %v", err)
	}
	before, err := f.svc.Query(ctx, nil)
	if err != nil {
		t.Fatalf("Query(): %v", err)
	}

	// second window clashes with the existing booking: nothing may persist
	_, err = f.svc.Create(ctx, f.newSessions(session.Regular,
		window(testDay, 9, 0, 10, 0),
		window(testDay, 14, 30, 15, 30),
	))
	var confErr *session.ConflictError
	if !errors.As(err, &confErr) {
		t.Fatalf("Create() error = %v, want ConflictError", err)
	}

	after, err := f.svc.Query(ctx, nil)
	if err != nil {
		t.Fatalf("Query(): %v", err)
	}
	if len(after) != len(before) {
		t.Errorf("Create() persisted %d sessions on conflict, want 0", len(after)-len(before))
	}

	t.Run("windows clashing with each other", func(t *testing.T) {
		_, err := f.svc.Create(ctx, f.newSessions(session.Regular,
			window(testDay.AddDate(0, 0, 1), 10, 0, 11, 0),
			window(testDay.AddDate(0, 0, 1), 10, 30, 11, 30),
		))
		var confErr *session.ConflictError
		if !errors.As(err, &confErr) {
			t.Fatalf("Create() error = %v, want ConflictError", err)
		}
	})
}

func TestServiceCreateUnknownRefs(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1)
	w := window(testDay, 10, 0, 11, 0)

	// the second fairy is switched off for the deactivated case
	off := false
	if _, err := f.userRepo.UpdateUser(ctx, user.User{ID: f.fairy2ID}, &off); err != nil {
		t.Fatalf("deactivating fairy: %v", err)
	}

	tests := []struct {
		name    string
		mutate  func(ns *session.NewSessions)
		wantErr error
	}{
		{name: "unknown year", mutate: func(ns *session.NewSessions) { ns.AcademicYearID = core.NewKey() }, wantErr: session.ErrYearNotFound},
		{name: "unknown classroom", mutate: func(ns *session.NewSessions) { ns.ClassroomIDs = []string{core.NewKey()} }, wantErr: session.ErrClassNotFound},
		{name: "unknown fairy", mutate: func(ns *session.NewSessions) { ns.FairyIDs = []string{core.NewKey()} }, wantErr: session.ErrFairyNotFound},
		{name: "supervisor is not a fairy", mutate: func(ns *session.NewSessions) { ns.FairyIDs = []string{f.supervisorID} }, wantErr: session.ErrFairyNotFound},
		{name: "deactivated fairy", mutate: func(ns *session.NewSessions) { ns.FairyIDs = []string{f.fairy2ID} }, wantErr: session.ErrFairyNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ns := f.newSessions(session.Regular, w)
			tt.mutate(&ns)
			if _, err := f.svc.Create(ctx, ns); err != tt.wantErr {
				t.Errorf("Create() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	t.Run("invalid input", func(t *testing.T) {
		for name, mutate := range map[string]func(ns *session.NewSessions){
			"no windows":       func(ns *session.NewSessions) { ns.Windows = nil },
			"no classrooms":    func(ns *session.NewSessions) { ns.ClassroomIDs = nil },
			"no fairies":       func(ns *session.NewSessions) { ns.FairyIDs = nil },
			"bad type":         func(ns *session.NewSessions) { ns.Type = "WEEKEND" },
			"end before start": func(ns *session.NewSessions) { ns.Windows = []session.Window{{Start: w.End, End: w.Start}} },
		} {
			ns := f.newSessions(session.Regular, w)
			mutate(&ns)
			if _, err := f.svc.Create(ctx, ns); err == nil {
				t.Errorf("Create() accepted %s input", name)
			}
		}
	})
}

func TestServiceSubmit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 2)

	created, err := f.svc.Create(ctx, f.newSessions(session.Regular, window(testDay, 10, 0, 11, 0)))
	if err != nil {
		t.Fatalf("Create(): %v", err)
	}
	sessionID := created[0].ID

	// only one of two students evaluated: submission is rejected
	err = f.svc.Submit(ctx, sessionID, f.ngoID, f.fairyID, []session.StudentResult{
		{StudentID: f.studentIDs[0], Attendance: true, LevelID: f.regLevelID, Replace: true},
	})
	var incErr *session.IncompleteError
	if !errors.As(err, &incErr) {
		t.Fatalf("Submit() error = %v, want IncompleteError", err)
	}
	if len(incErr.MissingStudentIDs) != 1 || incErr.MissingStudentIDs[0] != f.studentIDs[1] {
		t.Errorf("IncompleteError.MissingStudentIDs = %v, want [%s]", incErr.MissingStudentIDs, f.studentIDs[1])
	}
	if s, _ := f.svc.Get(ctx, sessionID); s.IsEvaluated {
		t.Error("Submit() flagged session evaluated despite missing students")
	}
	// the rejected batch leaves no rows behind
	if fbs, _ := f.svc.Feedbacks(ctx, sessionID); len(fbs) != 0 {
		t.Errorf("Feedbacks() after rejected submit = %+v, want none", fbs)
	}

	// an absent-marked student still counts as evaluated
	err = f.svc.Submit(ctx, sessionID, f.ngoID, f.fairyID, []session.StudentResult{
		{StudentID: f.studentIDs[0], Attendance: true, LevelID: f.regLevelID, Replace: true},
		{StudentID: f.studentIDs[1], Attendance: false, Replace: true},
	})
	if err != nil {
		t.Fatalf("Submit(): %v", err)
	}
	s, err := f.svc.Get(ctx, sessionID)
	if err != nil {
		t.Fatalf("Get(): %v", err)
	}
	if !s.IsEvaluated || s.SubmittedByID != f.fairyID {
		t.Errorf("Submit() session = %+v, want evaluated by %s", s, f.fairyID)
	}
	firstStamp := s.UpdatedAt

	// submitting again is a no-op, not an error
	if err = f.svc.Submit(ctx, sessionID, f.ngoID, f.fairy2ID, nil); err != nil {
		t.Fatalf("Submit() (again): %v", err)
	}
	s, _ = f.svc.Get(ctx, sessionID)
	if s.SubmittedByID != f.fairyID || !s.UpdatedAt.Equal(firstStamp) {
		t.Errorf("repeat Submit() mutated session: %+v", s)
	}
}

func TestServiceSubmitExcludesDropouts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 2)

	// the second student drops out mid-year
	schoolSvc := school.NewService(f.schoolRepo)
	if _, err := schoolSvc.MarkDropout(ctx, f.studentIDs[1]); err != nil {
		t.Fatalf("MarkDropout(): %v", err)
	}

	created, err := f.svc.Create(ctx, f.newSessions(session.Regular, window(testDay, 10, 0, 11, 0)))
	if err != nil {
		t.Fatalf("Create(): %v", err)
	}

	err = f.svc.Submit(ctx, created[0].ID, f.ngoID, f.fairyID, []session.StudentResult{
		{StudentID: f.studentIDs[0], Attendance: true, LevelID: f.regLevelID, Replace: true},
	})
	if err != nil {
		t.Fatalf("Submit() error = %v, want nil: dropouts are not eligible", err)
	}
}

func TestServiceEvaluationSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1)

	created, err := f.svc.Create(ctx, f.newSessions(session.Evaluation, window(testDay, 10, 0, 11, 0)))
	if err != nil {
		t.Fatalf("Create(): %v", err)
	}
	sessionID := created[0].ID

	// week-to-week levels are not valid baselines
	err = f.svc.SaveResults(ctx, sessionID, f.ngoID, []session.StudentResult{
		{StudentID: f.studentIDs[0], Attendance: true, LevelID: f.regLevelID, Replace: true},
	})
	var vErr *core.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("SaveResults() error = %v, want ValidationError", err)
	}

	err = f.svc.Submit(ctx, sessionID, f.ngoID, f.fairyID, []session.StudentResult{
		{StudentID: f.studentIDs[0], Attendance: true, LevelID: f.evalLevelID, Replace: true},
	})
	if err != nil {
		t.Fatalf("Submit(): %v", err)
	}

	evs, err := f.svc.Evaluations(ctx, sessionID)
	if err != nil {
		t.Fatalf("Evaluations(): %v", err)
	}
	if len(evs) != 1 || evs[0].StudentID != f.studentIDs[0] || evs[0].LevelID != f.evalLevelID {
		t.Errorf("Evaluations() = %+v, want one row for %s", evs, f.studentIDs[0])
	}
	if _, err := f.svc.Feedbacks(ctx, sessionID); err != session.ErrWrongType {
		t.Errorf("Feedbacks() on EVALUATION error = %v, want %v", err, session.ErrWrongType)
	}
}

func TestServiceRecordLevelGate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1)

	created, err := f.svc.Create(ctx, f.newSessions(session.Regular, window(testDay, 10, 0, 11, 0)))
	if err != nil {
		t.Fatalf("Create(): %v", err)
	}
	sessionID := created[0].ID

	t.Run("evaluation-only level rejected on regular session", func(t *testing.T) {
		err := f.svc.SaveResults(ctx, sessionID, f.ngoID, []session.StudentResult{
			{StudentID: f.studentIDs[0], Attendance: true, LevelID: f.evalLevelID, Replace: true},
		})
		if _, ok := err.(*core.ValidationError); !ok {
			t.Errorf("SaveResults() error = %v, want ValidationError", err)
		}
	})

	t.Run("present without level rejected", func(t *testing.T) {
		err := f.svc.SaveResults(ctx, sessionID, f.ngoID, []session.StudentResult{
			{StudentID: f.studentIDs[0], Attendance: true, Replace: true},
		})
		if _, ok := err.(*core.ValidationError); !ok {
			t.Errorf("SaveResults() error = %v, want ValidationError", err)
		}
	})

	t.Run("unknown level rejected", func(t *testing.T) {
		err := f.svc.SaveResults(ctx, sessionID, f.ngoID, []session.StudentResult{
			{StudentID: f.studentIDs[0], Attendance: true, LevelID: core.NewKey(), Replace: true},
		})
		if err != catalog.ErrLevelNotFound {
			t.Errorf("SaveResults() error = %v, want %v", err, catalog.ErrLevelNotFound)
		}
	})

	t.Run("unknown student rejected", func(t *testing.T) {
		err := f.svc.SaveResults(ctx, sessionID, f.ngoID, []session.StudentResult{
			{StudentID: core.NewKey(), Attendance: false, Replace: true},
		})
		if err != session.ErrStudentNotFound {
			t.Errorf("SaveResults() error = %v, want %v", err, session.ErrStudentNotFound)
		}
	})

	t.Run("absent needs no level", func(t *testing.T) {
		err := f.svc.SaveResults(ctx, sessionID, f.ngoID, []session.StudentResult{
			{StudentID: f.studentIDs[0], Attendance: false, Replace: true},
		})
		if err != nil {
			t.Fatalf("SaveResults(): %v", err)
		}
		fbs, err := f.svc.Feedbacks(ctx, sessionID)
		if err != nil {
			t.Fatalf("Feedbacks(): %v", err)
		}
		if len(fbs) != 1 || fbs[0].LevelID != "" || fbs[0].Attendance {
			t.Errorf("Feedbacks() = %+v, want one absent row without level", fbs)
		}
	})
}

func TestServiceResubmissionReplaces(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1)

	created, err := f.svc.Create(ctx, f.newSessions(session.Regular, window(testDay, 10, 0, 11, 0)))
	if err != nil {
		t.Fatalf("Create(): %v", err)
	}
	sessionID := created[0].ID
	studentID := f.studentIDs[0]

	err = f.svc.SaveResults(ctx, sessionID, f.ngoID, []session.StudentResult{
		{
			StudentID:  studentID,
			Attendance: true,
			LevelID:    f.regLevelID,
			Comments:   "halting",
			Books:      []session.BookLine{{BookID: f.bookID, InventoryID: f.inventoryID}},
			Replace:    true,
		},
	})
	if err != nil {
		t.Fatalf("SaveResults(): %v", err)
	}

	// corrected resubmission: absent after all, no books
	err = f.svc.SaveResults(ctx, sessionID, f.ngoID, []session.StudentResult{
		{StudentID: studentID, Attendance: false, Replace: true},
	})
	if err != nil {
		t.Fatalf("SaveResults() (resubmit): %v", err)
	}

	fbs, err := f.svc.Feedbacks(ctx, sessionID)
	if err != nil {
		t.Fatalf("Feedbacks(): %v", err)
	}
	if len(fbs) != 1 {
		t.Fatalf("Feedbacks() returned %d rows, want 1: prior rows must be replaced", len(fbs))
	}
	if fbs[0].Attendance || fbs[0].LevelID != "" || fbs[0].Comments != "" {
		t.Errorf("Feedbacks()[0] = %+v, want the resubmitted row", fbs[0])
	}
}

func TestServiceVerifyCancelAnnotate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1)

	created, err := f.svc.Create(ctx, f.newSessions(session.Regular, window(testDay, 10, 0, 11, 0)))
	if err != nil {
		t.Fatalf("Create(): %v", err)
	}
	sessionID := created[0].ID

	if err = f.svc.Verify(ctx, sessionID, f.supervisorID); err != session.ErrNotEvaluated {
		t.Errorf("Verify() error = %v, want %v", err, session.ErrNotEvaluated)
	}

	if err = f.svc.Cancel(ctx, sessionID, "  "); err == nil {
		t.Error("Cancel() accepted a blank reason")
	}

	if err = f.svc.Submit(ctx, sessionID, f.ngoID, f.fairyID, []session.StudentResult{
		{StudentID: f.studentIDs[0], Attendance: true, LevelID: f.regLevelID, Replace: true},
	}); err != nil {
		t.Fatalf("Submit(): %v", err)
	}

	if err = f.svc.Cancel(ctx, sessionID, "school flooded"); err != session.ErrAlreadyFinalized {
		t.Errorf("Cancel() error = %v, want %v", err, session.ErrAlreadyFinalized)
	}

	if err = f.svc.Verify(ctx, sessionID, f.supervisorID); err != nil {
		t.Fatalf("Verify(): %v", err)
	}
	s, _ := f.svc.Get(ctx, sessionID)
	if !s.IsVerified || s.VerifiedByID != f.supervisorID {
		t.Errorf("Verify() session = %+v, want verified by %s", s, f.supervisorID)
	}

	// verified sessions accept no further evaluation input
	err = f.svc.SaveResults(ctx, sessionID, f.ngoID, []session.StudentResult{
		{StudentID: f.studentIDs[0], Attendance: false, Replace: true},
	})
	if err != session.ErrAlreadyVerified {
		t.Errorf("SaveResults() error = %v, want %v", err, session.ErrAlreadyVerified)
	}
	if err = f.svc.Submit(ctx, sessionID, f.ngoID, f.fairyID, nil); err != session.ErrAlreadyVerified {
		t.Errorf("Submit() error = %v, want %v", err, session.ErrAlreadyVerified)
	}

	// annotation is allowed in any state
	if err = f.svc.Annotate(ctx, sessionID, "great energy this week"); err != nil {
		t.Fatalf("Annotate(): %v", err)
	}
	if s, _ = f.svc.Get(ctx, sessionID); s.Notes != "great energy this week" {
		t.Errorf("Annotate() notes = %q", s.Notes)
	}

	t.Run("cancel fresh session", func(t *testing.T) {
		created, err := f.svc.Create(ctx, f.newSessions(session.Regular, window(testDay, 14, 0, 15, 0)))
		if err != nil {
			t.Fatalf("Create(): %v", err)
		}
		if err = f.svc.Cancel(ctx, created[0].ID, "fairy unavailable"); err != nil {
			t.Fatalf("Cancel(): %v", err)
		}
		s, _ := f.svc.Get(ctx, created[0].ID)
		if !s.IsCancelled || s.Notes != "fairy unavailable" {
			t.Errorf("Cancel() session = %+v, want cancelled with reason in notes", s)
		}
	})
}

func TestServiceLendings(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 2)

	created, err := f.svc.Create(ctx, f.newSessions(session.BookLending, window(testDay, 10, 0, 11, 0)))
	if err != nil {
		t.Fatalf("Create(): %v", err)
	}
	sessionID := created[0].ID

	items := []session.StudentLending{
		{
			StudentID: f.studentIDs[0],
			Lines:     []session.LendingLine{{BookID: f.bookID, InventoryID: f.inventoryID, Action: session.Lend}},
			Replace:   true,
		},
	}
	if err = f.svc.SaveLendings(ctx, sessionID, items); err != nil {
		t.Fatalf("SaveLendings(): %v", err)
	}
	recs, err := f.svc.Lendings(ctx, sessionID)
	if err != nil {
		t.Fatalf("Lendings(): %v", err)
	}
	if len(recs) != 1 || recs[0].Action != session.Lend {
		t.Errorf("Lendings() = %+v, want one LEND entry", recs)
	}

	t.Run("duplicate copy rejected", func(t *testing.T) {
		dup := []session.StudentLending{
			{
				StudentID: f.studentIDs[0],
				Lines:     []session.LendingLine{{BookID: f.bookID, InventoryID: f.inventoryID, Action: session.Collect}},
			},
		}
		var vErr *core.ValidationError
		if err := f.svc.SaveLendings(ctx, sessionID, dup); !errors.As(err, &vErr) {
			t.Errorf("SaveLendings() error = %v, want ValidationError", err)
		}
		if recs, _ := f.svc.Lendings(ctx, sessionID); len(recs) != 1 {
			t.Errorf("rejected save mutated the ledger: %+v", recs)
		}
	})

	t.Run("invalid action rejected", func(t *testing.T) {
		bad := []session.StudentLending{
			{
				StudentID: f.studentIDs[0],
				Lines:     []session.LendingLine{{BookID: f.bookID, InventoryID: f.inventoryID, Action: "BORROW"}},
			},
		}
		if err := f.svc.SaveLendings(ctx, sessionID, bad); err == nil {
			t.Error("SaveLendings() accepted an invalid action")
		}
	})

	// no completeness gate: one of two students is enough
	if err = f.svc.SubmitLendings(ctx, sessionID, f.fairyID, nil); err != nil {
		t.Fatalf("SubmitLendings(): %v", err)
	}
	s, _ := f.svc.Get(ctx, sessionID)
	if !s.IsEvaluated || s.SubmittedByID != f.fairyID {
		t.Errorf("SubmitLendings() session = %+v, want evaluated", s)
	}

	t.Run("type guards", func(t *testing.T) {
		regular, err := f.svc.Create(ctx, f.newSessions(session.Regular, window(testDay, 14, 0, 15, 0)))
		if err != nil {
			t.Fatalf("Create(): %v", err)
		}
		if err := f.svc.SaveLendings(ctx, regular[0].ID, items); err != session.ErrWrongType {
			t.Errorf("SaveLendings() on REGULAR error = %v, want %v", err, session.ErrWrongType)
		}
		if err := f.svc.Submit(ctx, sessionID, f.ngoID, f.fairyID, nil); err != session.ErrWrongType {
			t.Errorf("Submit() on BOOK_LENDING error = %v, want %v", err, session.ErrWrongType)
		}
		if _, err := f.svc.Feedbacks(ctx, sessionID); err != session.ErrWrongType {
			t.Errorf("Feedbacks() on BOOK_LENDING error = %v, want %v", err, session.ErrWrongType)
		}
	})
}

func TestServiceDelete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1)

	created, err := f.svc.Create(ctx, f.newSessions(session.Regular,
		window(testDay, 10, 0, 11, 0),
		window(testDay.AddDate(0, 0, 1), 10, 0, 11, 0),
	))
	if err != nil {
		t.Fatalf("Create(): %v", err)
	}
	withRecords, clean := created[0].ID, created[1].ID

	if err = f.svc.SaveResults(ctx, withRecords, f.ngoID, []session.StudentResult{
		{StudentID: f.studentIDs[0], Attendance: false, Replace: true},
	}); err != nil {
		t.Fatalf("SaveResults(): %v", err)
	}

	if err = f.svc.Delete(ctx, withRecords); err != session.ErrHasRecords {
		t.Errorf("Delete() error = %v, want %v", err, session.ErrHasRecords)
	}

	// the whole batch aborts when any session has records
	if err = f.svc.Delete(ctx, clean, withRecords); err != session.ErrHasRecords {
		t.Errorf("Delete() (batch) error = %v, want %v", err, session.ErrHasRecords)
	}
	if _, err = f.svc.Get(ctx, clean); err != nil {
		t.Errorf("Get() after aborted batch delete: %v", err)
	}

	if err = f.svc.Delete(ctx, clean); err != nil {
		t.Fatalf("Delete(): %v", err)
	}
	if _, err = f.svc.Get(ctx, clean); err != session.ErrNotFound {
		t.Errorf("Get() after delete error = %v, want %v", err, session.ErrNotFound)
	}
}

func TestServiceQueryFilters(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1)

	otherSchoolID := core.NewKey()
	if _, err := f.schoolRepo.CreateSchool(ctx, school.School{ID: otherSchoolID, NGOID: f.ngoID, Name: "Riverside Primary", IsActive: true}); err != nil {
		t.Fatalf("seeding school: %v", err)
	}
	otherClassroomID := core.NewKey()
	if _, err := f.schoolRepo.CreateClassroom(ctx, school.Classroom{ID: otherClassroomID, SchoolID: otherSchoolID, Standard: "4", Division: "B", IsActive: true}); err != nil {
		t.Fatalf("seeding classroom: %v", err)
	}

	regular, err := f.svc.Create(ctx, f.newSessions(session.Regular, window(testDay, 9, 0, 10, 0)))
	if err != nil {
		t.Fatalf("Create(): %v", err)
	}

	ns := f.newSessions(session.BookLending, window(testDay, 12, 0, 13, 0))
	ns.ClassroomIDs = []string{otherClassroomID}
	ns.FairyIDs = []string{f.fairy2ID}
	lending, err := f.svc.Create(ctx, ns)
	if err != nil {
		t.Fatalf("Create(): %v", err)
	}
	if err = f.svc.Cancel(ctx, lending[0].ID, "holiday"); err != nil {
		t.Fatalf("Cancel(): %v", err)
	}

	wantIDs := func(t *testing.T, filter *session.QueryFilter, want ...string) {
		t.Helper()
		got, err := f.svc.Query(ctx, filter)
		if err != nil {
			t.Fatalf("Query(): %v", err)
		}
		var ids []string
		for _, s := range got {
			ids = append(ids, s.ID)
		}
		if len(ids) != len(want) {
			t.Fatalf("Query() returned %v, want %v", ids, want)
		}
		for i := range want {
			if ids[i] != want[i] {
				t.Errorf("Query() returned %v, want %v", ids, want)
			}
		}
	}

	cancelled := true
	wantIDs(t, &session.QueryFilter{Type: session.Regular}, regular[0].ID)
	wantIDs(t, &session.QueryFilter{FairyID: f.fairy2ID}, lending[0].ID)
	wantIDs(t, &session.QueryFilter{SchoolID: otherSchoolID}, lending[0].ID)
	wantIDs(t, &session.QueryFilter{From: testDay.Add(11 * time.Hour)}, lending[0].ID)
	wantIDs(t, &session.QueryFilter{To: testDay.Add(11 * time.Hour)}, regular[0].ID)
	wantIDs(t, &session.QueryFilter{Cancelled: &cancelled}, lending[0].ID)
	wantIDs(t, &session.QueryFilter{AcademicYearID: f.yearID}, regular[0].ID, lending[0].ID)
	wantIDs(t, &session.QueryFilter{FairyID: core.NewKey()})
}
