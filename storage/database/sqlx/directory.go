package sqlxrepos

import (
	"context"
	"net/mail"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/mavlabs/read/core"
	"github.com/mavlabs/read/core/session"
)

type directory struct {
	db *sqlx.DB
}

var _ session.Directory = (*directory)(nil) // interface compliance check

// NewDirectory returns a session.Directory that resolves referenced entities
// against the database.
func NewDirectory(db *sqlx.DB) session.Directory {
	return &directory{db: db}
}

func (dir *directory) CheckAcademicYear(ctx context.Context, id string, exec ...core.DBExecutor) error {
	var exists bool
	q := `SELECT EXISTS (SELECT 1 FROM academic_year WHERE id = $1)`
	if err := sqlx.GetContext(ctx, ext(dir.db, exec), &exists, q, id); err != nil {
		return errors.Wrap(err, "checking academic year")
	}
	if !exists {
		return session.ErrYearNotFound
	}
	return nil
}

func (dir *directory) CheckClassrooms(ctx context.Context, ids []string, exec ...core.DBExecutor) error {
	var count int
	q := `SELECT COUNT(*) FROM classroom WHERE id = ANY($1)`
	if err := sqlx.GetContext(ctx, ext(dir.db, exec), &count, q, pq.Array(ids)); err != nil {
		return errors.Wrap(err, "checking classrooms")
	}
	if count != len(ids) {
		return session.ErrClassNotFound
	}
	return nil
}

func (dir *directory) CheckFairies(ctx context.Context, ids []string, exec ...core.DBExecutor) error {
	var count int
	q := `
SELECT COUNT(*) FROM "user"
WHERE id = ANY($1) AND is_active
  AND EXISTS (SELECT 1 FROM unnest(roles) r WHERE r LIKE 'fairy:%')`
	if err := sqlx.GetContext(ctx, ext(dir.db, exec), &count, q, pq.Array(ids)); err != nil {
		return errors.Wrap(err, "checking fairies")
	}
	if count != len(ids) {
		return session.ErrFairyNotFound
	}
	return nil
}

func (dir *directory) CheckStudent(ctx context.Context, id string, exec ...core.DBExecutor) error {
	var exists bool
	q := `SELECT EXISTS (SELECT 1 FROM student WHERE id = $1)`
	if err := sqlx.GetContext(ctx, ext(dir.db, exec), &exists, q, id); err != nil {
		return errors.Wrap(err, "checking student")
	}
	if !exists {
		return session.ErrStudentNotFound
	}
	return nil
}

func (dir *directory) FairyNames(ctx context.Context, ids []string, exec ...core.DBExecutor) ([]string, error) {
	var names []string
	q := `SELECT name FROM "user" WHERE id = ANY($1) ORDER BY name`
	if err := sqlx.SelectContext(ctx, ext(dir.db, exec), &names, q, pq.Array(ids)); err != nil {
		return nil, errors.Wrap(err, "querying fairy names")
	}
	return names, nil
}

func (dir *directory) SupervisorEmails(ctx context.Context, sessionID string, exec ...core.DBExecutor) ([]mail.Address, error) {
	var rows []struct {
		Name  string `db:"name"`
		Email string `db:"email"`
	}
	q := `
SELECT DISTINCT u.name, u.email FROM "user" u
WHERE u.is_active AND u.email IS NOT NULL
  AND EXISTS (SELECT 1 FROM unnest(u.roles) r WHERE r LIKE 'supervisor:%')
  AND u.ngo_id IN (
    SELECT s.ngo_id FROM session_classroom sc
    JOIN classroom c ON c.id = sc.classroom_id
    JOIN school s ON s.id = c.school_id
    WHERE sc.session_id = $1
  )
ORDER BY u.name`
	if err := sqlx.SelectContext(ctx, ext(dir.db, exec), &rows, q, sessionID); err != nil {
		return nil, errors.Wrap(err, "querying supervisor emails")
	}
	addrs := make([]mail.Address, 0, len(rows))
	for _, r := range rows {
		addrs = append(addrs, mail.Address{Name: r.Name, Address: r.Email})
	}
	return addrs, nil
}
