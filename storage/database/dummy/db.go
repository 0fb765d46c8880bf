package dummydb

import (
	"context"
	"sync"

	"github.com/mavlabs/read/core"
	"github.com/mavlabs/read/core/academic"
	"github.com/mavlabs/read/core/catalog"
	"github.com/mavlabs/read/core/school"
	"github.com/mavlabs/read/core/session"
	"github.com/mavlabs/read/core/user"
)

type (
	DB struct {
		mu sync.Mutex // serializes atomic units of work

		academicYear *academicYearTable
		school       *schoolTable
		classroom    *classroomTable
		student      *studentTable
		enrollment   *enrollmentTable
		level        *levelTable
		book         *bookTable
		inventory    *inventoryTable
		user         *userTable
		session      *sessionTable
	}

	academicYearTable struct {
		sync.RWMutex
		table map[string]*academic.Year
	}

	schoolTable struct {
		sync.RWMutex
		table map[string]*school.School
	}

	classroomTable struct {
		sync.RWMutex
		table map[string]*school.Classroom
	}

	studentTable struct {
		sync.RWMutex
		table map[string]*school.Student
	}

	enrollmentTable struct {
		sync.RWMutex
		table map[string]*school.Enrollment
	}

	levelTable struct {
		sync.RWMutex
		table map[string]*catalog.Level
	}

	bookTable struct {
		sync.RWMutex
		table map[string]*catalog.Book
	}

	inventoryTable struct {
		sync.RWMutex
		table map[string]*catalog.Inventory
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	// sessionTable also holds the session's child rows; they live and die
	// with the session.
	sessionTable struct {
		sync.RWMutex
		table       map[string]*session.Session
		feedback    map[string][]session.Feedback      // by session ID
		evaluations map[string][]session.EvaluationRecord    // by session ID
		books       map[string][]session.FeedbackBook  // by session ID
		lendings    map[string][]session.LendingRecord // by session ID
	}
)

func Open() (*DB, error) {
	db := &DB{
		academicYear: &academicYearTable{table: make(map[string]*academic.Year)},
		school:       &schoolTable{table: make(map[string]*school.School)},
		classroom:    &classroomTable{table: make(map[string]*school.Classroom)},
		student:      &studentTable{table: make(map[string]*school.Student)},
		enrollment:   &enrollmentTable{table: make(map[string]*school.Enrollment)},
		level:        &levelTable{table: make(map[string]*catalog.Level)},
		book:         &bookTable{table: make(map[string]*catalog.Book)},
		inventory:    &inventoryTable{table: make(map[string]*catalog.Inventory)},
		user:         &userTable{table: make(map[string]*user.User)},
		session: &sessionTable{
			table:       make(map[string]*session.Session),
			feedback:    make(map[string][]session.Feedback),
			evaluations: make(map[string][]session.EvaluationRecord),
			books:       make(map[string][]session.FeedbackBook),
			lendings:    make(map[string][]session.LendingRecord),
		},
	}
	return db, nil
}

type transactor struct {
	db *DB
}

var _ core.Transactor = (*transactor)(nil) // interface compliance check

func NewTransactor(db *DB) core.Transactor {
	return &transactor{db: db}
}

// Atomic serializes units of work on the in-memory store. Only the session
// table is written inside atomic units, so it alone is snapshotted and put
// back when fn fails.
func (t *transactor) Atomic(ctx context.Context, fn func(exec core.DBExecutor) error) error {
	t.db.mu.Lock()
	defer t.db.mu.Unlock()

	snap := t.db.session.snapshot()
	if err := fn(nil); err != nil {
		t.db.session.restore(snap)
		return err
	}
	return nil
}

type sessionSnapshot struct {
	table       map[string]*session.Session
	feedback    map[string][]session.Feedback
	evaluations map[string][]session.EvaluationRecord
	books       map[string][]session.FeedbackBook
	lendings    map[string][]session.LendingRecord
}

func (tbl *sessionTable) snapshot() *sessionSnapshot {
	tbl.RLock()
	defer tbl.RUnlock()

	snap := &sessionSnapshot{
		table:       make(map[string]*session.Session, len(tbl.table)),
		feedback:    make(map[string][]session.Feedback, len(tbl.feedback)),
		evaluations: make(map[string][]session.EvaluationRecord, len(tbl.evaluations)),
		books:       make(map[string][]session.FeedbackBook, len(tbl.books)),
		lendings:    make(map[string][]session.LendingRecord, len(tbl.lendings)),
	}
	for id, s := range tbl.table {
		cp := *s
		snap.table[id] = &cp
	}
	for id, rows := range tbl.feedback {
		snap.feedback[id] = append([]session.Feedback(nil), rows...)
	}
	for id, rows := range tbl.evaluations {
		snap.evaluations[id] = append([]session.EvaluationRecord(nil), rows...)
	}
	for id, rows := range tbl.books {
		snap.books[id] = append([]session.FeedbackBook(nil), rows...)
	}
	for id, rows := range tbl.lendings {
		snap.lendings[id] = append([]session.LendingRecord(nil), rows...)
	}
	return snap
}

func (tbl *sessionTable) restore(snap *sessionSnapshot) {
	tbl.Lock()
	defer tbl.Unlock()

	tbl.table = snap.table
	tbl.feedback = snap.feedback
	tbl.evaluations = snap.evaluations
	tbl.books = snap.books
	tbl.lendings = snap.lendings
}
