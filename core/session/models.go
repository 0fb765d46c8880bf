package session

import (
	"time"
)

// Type discriminates the three structurally different kinds of read sessions.
type Type string

const (
	Regular     Type = "REGULAR"
	Evaluation  Type = "EVALUATION"
	BookLending Type = "BOOK_LENDING"
)

func (t Type) Valid() bool {
	switch t {
	case Regular, Evaluation, BookLending:
		return true
	}
	return false
}

// LendAction tags a home lending ledger entry.
type LendAction string

const (
	Lend    LendAction = "LEND"
	Collect LendAction = "COLLECT"
)

func (a LendAction) Valid() bool { return a == Lend || a == Collect }

type (
	// Session is a scheduled visit of one or more book fairies to one or more
	// classrooms. It is created once, mutated by the evaluation recorder while
	// un-evaluated, then driven CREATED -> EVALUATED -> VERIFIED (or cancelled
	// straight from CREATED) and never leaves a terminal state.
	Session struct {
		ID             string    `json:"id"`
		AcademicYearID string    `json:"academic_year"`
		Start          time.Time `json:"start"` // UTC
		End            time.Time `json:"end"`   // UTC
		Type           Type      `json:"type"`
		IsEvaluated    bool      `json:"is_evaluated"`
		IsVerified     bool      `json:"is_verified"`
		IsCancelled    bool      `json:"is_cancelled"`
		Notes          string    `json:"notes,omitempty"`
		SubmittedByID  string    `json:"submitted_by,omitempty"` // book fairy
		VerifiedByID   string    `json:"verified_by,omitempty"`  // supervisor
		CreatedAt      time.Time `json:"created_at"`             // UTC
		UpdatedAt      time.Time `json:"updated_at"`             // UTC

		ClassroomIDs []string `json:"classrooms"`
		FairyIDs     []string `json:"fairies"`
	}

	// Feedback is one student's outcome in a REGULAR session. Replaced
	// wholesale on resubmission; there is no versioning of prior rows.
	Feedback struct {
		ID         string    `json:"id"`
		SessionID  string    `json:"session"`
		StudentID  string    `json:"student"`
		LevelID    string    `json:"level,omitempty"` // empty when absent
		Attendance bool      `json:"attendance"`
		Comments   string    `json:"comments,omitempty"`
		CreatedAt  time.Time `json:"created_at"` // UTC
	}

	// EvaluationRecord is one student's outcome in an EVALUATION session. Same
	// shape as Feedback but kept in its own table so that baseline assessments
	// stay separate from week-to-week feedback.
	EvaluationRecord struct {
		ID         string    `json:"id"`
		SessionID  string    `json:"session"`
		StudentID  string    `json:"student"`
		LevelID    string    `json:"level,omitempty"`
		Attendance bool      `json:"attendance"`
		Comments   string    `json:"comments,omitempty"`
		CreatedAt  time.Time `json:"created_at"` // UTC
	}

	// FeedbackBook links the book copy read with a student during a session.
	FeedbackBook struct {
		ID          string    `json:"id"`
		SessionID   string    `json:"session"`
		StudentID   string    `json:"student"`
		BookID      string    `json:"book"`
		InventoryID string    `json:"inventory"`
		CreatedAt   time.Time `json:"created_at"` // UTC
	}

	// LendingRecord is one ledger entry of a BOOK_LENDING session: a copy
	// lent to or collected from a student. Unique per (session, inventory,
	// student) to prevent duplicate ledger entries.
	LendingRecord struct {
		ID          string     `json:"id"`
		SessionID   string     `json:"session"`
		StudentID   string     `json:"student"`
		BookID      string     `json:"book"`
		InventoryID string     `json:"inventory"`
		Action      LendAction `json:"action"`
		CreatedAt   time.Time  `json:"created_at"` // UTC
	}
)

// Finalized reports whether the session reached a terminal state.
func (s *Session) Finalized() bool { return s.IsVerified || s.IsCancelled }

// Window is one requested time slot; the factory creates one session per window.
type Window struct {
	Start time.Time `json:"start" validate:"required"`
	End   time.Time `json:"end" validate:"required,gtfield=Start"`
}

// NewSessions contains information needed to schedule sessions: one per
// window, all sharing the same type, classrooms and fairies.
type NewSessions struct {
	AcademicYearID string   `json:"academic_year" validate:"required"`
	Type           Type     `json:"type" validate:"required,sessiontype"`
	ClassroomIDs   []string `json:"classrooms" validate:"required,min=1"`
	FairyIDs       []string `json:"fairies" validate:"required,min=1"`
	Windows        []Window `json:"dates" validate:"required,min=1,dive"`
}

type (
	// BookLine references one inventory copy handled with a student.
	BookLine struct {
		BookID      string `json:"book" validate:"required"`
		InventoryID string `json:"inventory" validate:"required"`
	}

	// StudentResult is one student's submission for a REGULAR or EVALUATION
	// session. Replace=true deletes the student's prior rows for the session
	// before inserting, making resubmission idempotent (last writer wins).
	StudentResult struct {
		StudentID  string     `json:"student" validate:"required"`
		Attendance bool       `json:"attendance"`
		LevelID    string     `json:"level"`
		Comments   string     `json:"comments"`
		Books      []BookLine `json:"books" validate:"omitempty,dive"`
		Replace    bool       `json:"replace"`
	}

	// LendingLine is one lend/collect action against an inventory copy.
	LendingLine struct {
		BookID      string     `json:"book" validate:"required"`
		InventoryID string     `json:"inventory" validate:"required"`
		Action      LendAction `json:"action" validate:"required,lendaction"`
	}

	// StudentLending is one student's submission for a BOOK_LENDING session.
	// Attendance and levels do not apply to lending sessions.
	StudentLending struct {
		StudentID string        `json:"student" validate:"required"`
		Lines     []LendingLine `json:"books" validate:"omitempty,dive"`
		Replace   bool          `json:"replace"`
	}
)

// QueryFilter applies AND operation on available fields.
type QueryFilter struct {
	Type           Type      `query:"type"`
	FairyID        string    `query:"fairy"`
	SchoolID       string    `query:"school"`
	AcademicYearID string    `query:"academic_year"`
	From           time.Time `query:"from"`
	To             time.Time `query:"to"`
	Cancelled      *bool     `query:"is_cancelled"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Type == "" && qf.FairyID == "" && qf.SchoolID == "" && qf.AcademicYearID == "" &&
		qf.From.IsZero() && qf.To.IsZero() && qf.Cancelled == nil
}
