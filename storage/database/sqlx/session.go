package sqlxrepos

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/mavlabs/read/core"
	"github.com/mavlabs/read/core/session"
)

type (
	sessionRow struct {
		ID             string      `db:"id"`
		AcademicYearID string      `db:"academic_year_id"`
		Start          time.Time   `db:"start_time"`
		End            time.Time   `db:"end_time"`
		Type           string      `db:"type"`
		IsEvaluated    bool        `db:"is_evaluated"`
		IsVerified     bool        `db:"is_verified"`
		IsCancelled    bool        `db:"is_cancelled"`
		Notes          null.String `db:"notes"`
		SubmittedByID  null.String `db:"submitted_by"`
		VerifiedByID   null.String `db:"verified_by"`
		CreatedAt      time.Time   `db:"created_at"`
		UpdatedAt      time.Time   `db:"updated_at"`

		ClassroomIDs pq.StringArray `db:"classroom_ids"`
		FairyIDs     pq.StringArray `db:"fairy_ids"`
	}

	outcomeRow struct {
		ID         string      `db:"id"`
		SessionID  string      `db:"session_id"`
		StudentID  string      `db:"student_id"`
		LevelID    null.String `db:"level_id"`
		Attendance bool        `db:"attendance"`
		Comments   null.String `db:"comments"`
		CreatedAt  time.Time   `db:"created_at"`
	}

	lendingRow struct {
		ID          string    `db:"id"`
		SessionID   string    `db:"session_id"`
		StudentID   string    `db:"student_id"`
		BookID      string    `db:"book_id"`
		InventoryID string    `db:"inventory_id"`
		Action      string    `db:"action"`
		CreatedAt   time.Time `db:"created_at"`
	}
)

func (r sessionRow) session() session.Session {
	return session.Session{
		ID:             r.ID,
		AcademicYearID: r.AcademicYearID,
		Start:          r.Start,
		End:            r.End,
		Type:           session.Type(r.Type),
		IsEvaluated:    r.IsEvaluated,
		IsVerified:     r.IsVerified,
		IsCancelled:    r.IsCancelled,
		Notes:          r.Notes.String,
		SubmittedByID:  r.SubmittedByID.String,
		VerifiedByID:   r.VerifiedByID.String,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
		ClassroomIDs:   r.ClassroomIDs,
		FairyIDs:       r.FairyIDs,
	}
}

// sessionSelect aggregates the link rows so a session always loads with its
// classroom and fairy IDs.
const sessionSelect = `
SELECT s.id, s.academic_year_id, s.start_time, s.end_time, s.type,
       s.is_evaluated, s.is_verified, s.is_cancelled, s.notes, s.submitted_by, s.verified_by,
       s.created_at, s.updated_at,
       ARRAY(SELECT sc.classroom_id FROM session_classroom sc WHERE sc.session_id = s.id) AS classroom_ids,
       ARRAY(SELECT sf.fairy_id FROM session_fairy sf WHERE sf.session_id = s.id) AS fairy_ids
FROM session s`

type sessionRepository struct {
	db *sqlx.DB
}

var _ session.Repository = (*sessionRepository)(nil) // interface compliance check

func NewSessionRepository(db *sqlx.DB) session.Repository {
	return &sessionRepository{db: db}
}

func (repo *sessionRepository) CreateSession(ctx context.Context, s session.Session, exec ...core.DBExecutor) (session.Session, error) {
	e := ext(repo.db, exec)

	const q = `
INSERT INTO session (id, academic_year_id, start_time, end_time, type,
                     is_evaluated, is_verified, is_cancelled, notes, submitted_by, verified_by,
                     created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := e.ExecContext(ctx, q,
		s.ID, s.AcademicYearID, s.Start, s.End, string(s.Type),
		s.IsEvaluated, s.IsVerified, s.IsCancelled,
		null.NewString(s.Notes, s.Notes != ""),
		null.NewString(s.SubmittedByID, s.SubmittedByID != ""),
		null.NewString(s.VerifiedByID, s.VerifiedByID != ""),
		s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return session.Session{}, errors.Wrap(err, "inserting session")
	}

	for _, clsID := range s.ClassroomIDs {
		if _, err = e.ExecContext(ctx, `INSERT INTO session_classroom (session_id, classroom_id) VALUES ($1, $2)`, s.ID, clsID); err != nil {
			return session.Session{}, errors.Wrap(err, "linking classroom")
		}
	}
	for _, fairyID := range s.FairyIDs {
		if _, err = e.ExecContext(ctx, `INSERT INTO session_fairy (session_id, fairy_id) VALUES ($1, $2)`, s.ID, fairyID); err != nil {
			return session.Session{}, errors.Wrap(err, "linking fairy")
		}
	}
	return s, nil
}

func (repo *sessionRepository) GetSession(ctx context.Context, id string, exec ...core.DBExecutor) (session.Session, error) {
	q := sessionSelect + ` WHERE s.id = $1`

	var row sessionRow
	if err := sqlx.GetContext(ctx, ext(repo.db, exec), &row, q, id); err != nil {
		return session.Session{}, trapNoRowsErr(err, session.ErrNotFound, "getting session")
	}
	return row.session(), nil
}

func (repo *sessionRepository) UpdateSession(ctx context.Context, s session.Session, exec ...core.DBExecutor) (session.Session, error) {
	const q = `
UPDATE session
SET is_evaluated = $2, is_verified = $3, is_cancelled = $4, notes = $5, submitted_by = $6, verified_by = $7,
    updated_at = $8
WHERE id = $1`
	e := ext(repo.db, exec)
	res, err := e.ExecContext(ctx, q,
		s.ID, s.IsEvaluated, s.IsVerified, s.IsCancelled,
		null.NewString(s.Notes, s.Notes != ""),
		null.NewString(s.SubmittedByID, s.SubmittedByID != ""),
		null.NewString(s.VerifiedByID, s.VerifiedByID != ""),
		s.UpdatedAt,
	)
	if err != nil {
		return session.Session{}, errors.Wrap(err, "updating session")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return session.Session{}, session.ErrNotFound
	}
	return s, nil
}

func (repo *sessionRepository) QuerySessions(ctx context.Context, filter *session.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]session.Session, error) {
	var (
		conds []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter != nil && !filter.IsEmpty() {
		if filter.Type != "" {
			conds = append(conds, fmt.Sprintf("s.type = %s", arg(string(filter.Type))))
		}
		if filter.AcademicYearID != "" {
			conds = append(conds, fmt.Sprintf("s.academic_year_id = %s", arg(filter.AcademicYearID)))
		}
		if filter.FairyID != "" {
			conds = append(conds, fmt.Sprintf(
				"EXISTS (SELECT 1 FROM session_fairy sf WHERE sf.session_id = s.id AND sf.fairy_id = %s)", arg(filter.FairyID)))
		}
		if filter.SchoolID != "" {
			conds = append(conds, fmt.Sprintf(
				"EXISTS (SELECT 1 FROM session_classroom sc JOIN classroom c ON c.id = sc.classroom_id WHERE sc.session_id = s.id AND c.school_id = %s)", arg(filter.SchoolID)))
		}
		if !filter.From.IsZero() {
			conds = append(conds, fmt.Sprintf("s.start_time >= %s", arg(filter.From.UTC())))
		}
		if !filter.To.IsZero() {
			conds = append(conds, fmt.Sprintf("s.end_time <= %s", arg(filter.To.UTC())))
		}
		if filter.Cancelled != nil {
			conds = append(conds, fmt.Sprintf("s.is_cancelled = %s", arg(*filter.Cancelled)))
		}
	}

	q := sessionSelect
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += orderingClause(ordering, "s.start_time")

	var rows []sessionRow
	if err := sqlx.SelectContext(ctx, ext(repo.db, exec), &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying sessions")
	}
	sessions := make([]session.Session, 0, len(rows))
	for _, row := range rows {
		sessions = append(sessions, row.session())
	}
	return sessions, nil
}

func (repo *sessionRepository) FindOverlaps(ctx context.Context, w session.Window, fairyIDs []string, academicYearID string, exec ...core.DBExecutor) ([]session.Overlap, error) {
	// strict overlap, plus windows touching at a single instant
	const q = `
SELECT s.id AS session_id, s.start_time, s.end_time,
       ARRAY(SELECT u.name FROM session_fairy sf
             JOIN "user" u ON u.id = sf.fairy_id
             WHERE sf.session_id = s.id AND sf.fairy_id = ANY($3)
             ORDER BY u.name) AS fairy_names
FROM session s
WHERE s.academic_year_id = $4
  AND NOT s.is_cancelled
  AND EXISTS (SELECT 1 FROM session_fairy sf WHERE sf.session_id = s.id AND sf.fairy_id = ANY($3))
  AND ((s.start_time < $2 AND s.end_time > $1) OR s.end_time = $1 OR s.start_time = $2)
ORDER BY s.start_time`

	var rows []struct {
		SessionID  string         `db:"session_id"`
		Start      time.Time      `db:"start_time"`
		End        time.Time      `db:"end_time"`
		FairyNames pq.StringArray `db:"fairy_names"`
	}
	if err := sqlx.SelectContext(ctx, ext(repo.db, exec), &rows, q, w.Start, w.End, pq.Array(fairyIDs), academicYearID); err != nil {
		return nil, errors.Wrap(err, "finding overlapping sessions")
	}

	overlaps := make([]session.Overlap, 0, len(rows))
	for _, row := range rows {
		overlaps = append(overlaps, session.Overlap{
			SessionID:  row.SessionID,
			FairyNames: row.FairyNames,
			Start:      row.Start,
			End:        row.End,
		})
	}
	return overlaps, nil
}

func (repo *sessionRepository) InNGO(ctx context.Context, sessionID, ngoID string, exec ...core.DBExecutor) (bool, error) {
	const q = `
SELECT EXISTS (
	SELECT 1
	FROM session_classroom sc
	JOIN classroom c ON c.id = sc.classroom_id
	JOIN school sch ON sch.id = c.school_id
	WHERE sc.session_id = $1 AND sch.ngo_id = $2
)`
	var in bool
	if err := sqlx.GetContext(ctx, ext(repo.db, exec), &in, q, sessionID, ngoID); err != nil {
		return false, errors.Wrap(err, "checking session NGO")
	}
	return in, nil
}

func (repo *sessionRepository) ReplaceFeedback(ctx context.Context, fb session.Feedback, books []session.FeedbackBook, replace bool, exec ...core.DBExecutor) error {
	return repo.replaceOutcome(ctx, "student_feedback", outcomeRow{
		ID:         fb.ID,
		SessionID:  fb.SessionID,
		StudentID:  fb.StudentID,
		LevelID:    null.NewString(fb.LevelID, fb.LevelID != ""),
		Attendance: fb.Attendance,
		Comments:   null.NewString(fb.Comments, fb.Comments != ""),
		CreatedAt:  fb.CreatedAt,
	}, books, replace, exec)
}

func (repo *sessionRepository) ReplaceEvaluation(ctx context.Context, ev session.EvaluationRecord, books []session.FeedbackBook, replace bool, exec ...core.DBExecutor) error {
	return repo.replaceOutcome(ctx, "student_evaluation", outcomeRow{
		ID:         ev.ID,
		SessionID:  ev.SessionID,
		StudentID:  ev.StudentID,
		LevelID:    null.NewString(ev.LevelID, ev.LevelID != ""),
		Attendance: ev.Attendance,
		Comments:   null.NewString(ev.Comments, ev.Comments != ""),
		CreatedAt:  ev.CreatedAt,
	}, books, replace, exec)
}

func (repo *sessionRepository) replaceOutcome(ctx context.Context, table string, row outcomeRow, books []session.FeedbackBook, replace bool, exec []core.DBExecutor) error {
	e := ext(repo.db, exec)

	if replace {
		delOutcome := fmt.Sprintf(`DELETE FROM %s WHERE session_id = $1 AND student_id = $2`, table)
		if _, err := e.ExecContext(ctx, delOutcome, row.SessionID, row.StudentID); err != nil {
			return errors.Wrapf(err, "deleting prior %s rows", table)
		}
		if _, err := e.ExecContext(ctx, `DELETE FROM feedback_book WHERE session_id = $1 AND student_id = $2`, row.SessionID, row.StudentID); err != nil {
			return errors.Wrap(err, "deleting prior feedback_book rows")
		}
	}

	ins := fmt.Sprintf(`
INSERT INTO %s (id, session_id, student_id, level_id, attendance, comments, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`, table)
	if _, err := e.ExecContext(ctx, ins, row.ID, row.SessionID, row.StudentID, row.LevelID, row.Attendance, row.Comments, row.CreatedAt); err != nil {
		return errors.Wrapf(err, "inserting %s row", table)
	}

	for _, b := range books {
		const q = `
INSERT INTO feedback_book (id, session_id, student_id, book_id, inventory_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`
		if _, err := e.ExecContext(ctx, q, b.ID, b.SessionID, b.StudentID, b.BookID, b.InventoryID, b.CreatedAt); err != nil {
			return errors.Wrap(err, "inserting feedback_book row")
		}
	}
	return nil
}

func (repo *sessionRepository) ReplaceLendings(ctx context.Context, sessionID, studentID string, recs []session.LendingRecord, replace bool, exec ...core.DBExecutor) error {
	e := ext(repo.db, exec)

	if replace {
		if _, err := e.ExecContext(ctx, `DELETE FROM home_lending WHERE session_id = $1 AND student_id = $2`, sessionID, studentID); err != nil {
			return errors.Wrap(err, "deleting prior home_lending rows")
		}
	}
	for _, rec := range recs {
		const q = `
INSERT INTO home_lending (id, session_id, student_id, book_id, inventory_id, action, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
		if _, err := e.ExecContext(ctx, q, rec.ID, rec.SessionID, rec.StudentID, rec.BookID, rec.InventoryID, string(rec.Action), rec.CreatedAt); err != nil {
			if isUniqueViolation(err) {
				return session.ErrDuplicateLending
			}
			return errors.Wrap(err, "inserting home_lending row")
		}
	}
	return nil
}

func (repo *sessionRepository) EvaluatedStudentIDs(ctx context.Context, sessionID string, typ session.Type, exec ...core.DBExecutor) ([]string, error) {
	table := "student_feedback"
	if typ == session.Evaluation {
		table = "student_evaluation"
	}
	q := fmt.Sprintf(`SELECT DISTINCT student_id FROM %s WHERE session_id = $1`, table)

	var ids []string
	if err := sqlx.SelectContext(ctx, ext(repo.db, exec), &ids, q, sessionID); err != nil {
		return nil, errors.Wrap(err, "querying evaluated students")
	}
	return ids, nil
}

func (repo *sessionRepository) HasStudentRecords(ctx context.Context, sessionID string, exec ...core.DBExecutor) (bool, error) {
	const q = `
SELECT EXISTS (SELECT 1 FROM student_feedback WHERE session_id = $1)
    OR EXISTS (SELECT 1 FROM student_evaluation WHERE session_id = $1)
    OR EXISTS (SELECT 1 FROM home_lending WHERE session_id = $1)`

	var has bool
	if err := sqlx.GetContext(ctx, ext(repo.db, exec), &has, q, sessionID); err != nil {
		return false, errors.Wrap(err, "checking session records")
	}
	return has, nil
}

func (repo *sessionRepository) DeleteSessions(ctx context.Context, ids []string, exec ...core.DBExecutor) error {
	e := ext(repo.db, exec)

	// link rows cascade on delete
	if _, err := e.ExecContext(ctx, `DELETE FROM session WHERE id = ANY($1)`, pq.Array(ids)); err != nil {
		return errors.Wrap(err, "deleting sessions")
	}
	return nil
}

func (repo *sessionRepository) QueryFeedback(ctx context.Context, sessionID string, exec ...core.DBExecutor) ([]session.Feedback, error) {
	rows, err := repo.queryOutcomes(ctx, "student_feedback", sessionID, exec)
	if err != nil {
		return nil, err
	}
	fbs := make([]session.Feedback, 0, len(rows))
	for _, row := range rows {
		fbs = append(fbs, session.Feedback{
			ID:         row.ID,
			SessionID:  row.SessionID,
			StudentID:  row.StudentID,
			LevelID:    row.LevelID.String,
			Attendance: row.Attendance,
			Comments:   row.Comments.String,
			CreatedAt:  row.CreatedAt,
		})
	}
	return fbs, nil
}

func (repo *sessionRepository) QueryEvaluations(ctx context.Context, sessionID string, exec ...core.DBExecutor) ([]session.EvaluationRecord, error) {
	rows, err := repo.queryOutcomes(ctx, "student_evaluation", sessionID, exec)
	if err != nil {
		return nil, err
	}
	evs := make([]session.EvaluationRecord, 0, len(rows))
	for _, row := range rows {
		evs = append(evs, session.EvaluationRecord{
			ID:         row.ID,
			SessionID:  row.SessionID,
			StudentID:  row.StudentID,
			LevelID:    row.LevelID.String,
			Attendance: row.Attendance,
			Comments:   row.Comments.String,
			CreatedAt:  row.CreatedAt,
		})
	}
	return evs, nil
}

func (repo *sessionRepository) queryOutcomes(ctx context.Context, table, sessionID string, exec []core.DBExecutor) ([]outcomeRow, error) {
	q := fmt.Sprintf(`
SELECT id, session_id, student_id, level_id, attendance, comments, created_at
FROM %s WHERE session_id = $1 ORDER BY student_id`, table)

	var rows []outcomeRow
	if err := sqlx.SelectContext(ctx, ext(repo.db, exec), &rows, q, sessionID); err != nil {
		return nil, errors.Wrapf(err, "querying %s rows", table)
	}
	return rows, nil
}

func (repo *sessionRepository) QueryLendings(ctx context.Context, sessionID string, exec ...core.DBExecutor) ([]session.LendingRecord, error) {
	const q = `
SELECT id, session_id, student_id, book_id, inventory_id, action, created_at
FROM home_lending WHERE session_id = $1 ORDER BY student_id, created_at`

	var rows []lendingRow
	if err := sqlx.SelectContext(ctx, ext(repo.db, exec), &rows, q, sessionID); err != nil {
		return nil, errors.Wrap(err, "querying home_lending rows")
	}
	recs := make([]session.LendingRecord, 0, len(rows))
	for _, row := range rows {
		recs = append(recs, session.LendingRecord{
			ID:          row.ID,
			SessionID:   row.SessionID,
			StudentID:   row.StudentID,
			BookID:      row.BookID,
			InventoryID: row.InventoryID,
			Action:      session.LendAction(row.Action),
			CreatedAt:   row.CreatedAt,
		})
	}
	return recs, nil
}
