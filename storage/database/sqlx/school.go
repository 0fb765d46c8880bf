package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/mavlabs/read/core"
	"github.com/mavlabs/read/core/school"
)

type (
	classroomRow struct {
		ID        string      `db:"id"`
		SchoolID  string      `db:"school_id"`
		Standard  string      `db:"standard"`
		Division  null.String `db:"division"`
		IsActive  bool        `db:"is_active"`
		CreatedAt time.Time   `db:"created_at"`
		UpdatedAt time.Time   `db:"updated_at"`
	}

	studentRow struct {
		ID         string      `db:"id"`
		NGOID      string      `db:"ngo_id"`
		FirstName  string      `db:"first_name"`
		LastName   null.String `db:"last_name"`
		Gender     null.String `db:"gender"`
		BirthDate  null.Time   `db:"birth_date"`
		MotherName null.String `db:"mother_name"`
		FatherName null.String `db:"father_name"`
		Address    null.String `db:"address"`
		IsDropout  bool        `db:"is_dropout"`
		IsActive   bool        `db:"is_active"`
		CreatedAt  time.Time   `db:"created_at"`
		UpdatedAt  time.Time   `db:"updated_at"`
	}
)

func (r classroomRow) classroom() school.Classroom {
	return school.Classroom{
		ID:        r.ID,
		SchoolID:  r.SchoolID,
		Standard:  r.Standard,
		Division:  r.Division.String,
		IsActive:  r.IsActive,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func (r studentRow) student() school.Student {
	return school.Student{
		ID:         r.ID,
		NGOID:      r.NGOID,
		FirstName:  r.FirstName,
		LastName:   r.LastName.String,
		Gender:     r.Gender.String,
		BirthDate:  r.BirthDate.Time,
		MotherName: r.MotherName.String,
		FatherName: r.FatherName.String,
		Address:    r.Address.String,
		IsDropout:  r.IsDropout,
		IsActive:   r.IsActive,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

type schoolRepository struct {
	db *sqlx.DB
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db *sqlx.DB) school.Repository {
	return &schoolRepository{db: db}
}

func (repo *schoolRepository) CreateSchool(ctx context.Context, sch school.School, exec ...core.DBExecutor) (school.School, error) {
	const q = `
INSERT INTO school (id, ngo_id, name, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	e := ext(repo.db, exec)
	if _, err := e.ExecContext(ctx, q, sch.ID, sch.NGOID, sch.Name, sch.IsActive, sch.CreatedAt, sch.UpdatedAt); err != nil {
		return school.School{}, errors.Wrap(err, "inserting school")
	}
	return sch, nil
}

func (repo *schoolRepository) CreateClassroom(ctx context.Context, cls school.Classroom, exec ...core.DBExecutor) (school.Classroom, error) {
	const q = `
INSERT INTO classroom (id, school_id, standard, division, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	e := ext(repo.db, exec)
	division := null.NewString(cls.Division, cls.Division != "")
	if _, err := e.ExecContext(ctx, q, cls.ID, cls.SchoolID, cls.Standard, division, cls.IsActive, cls.CreatedAt, cls.UpdatedAt); err != nil {
		return school.Classroom{}, errors.Wrap(err, "inserting classroom")
	}
	return cls, nil
}

func (repo *schoolRepository) CreateStudent(ctx context.Context, std school.Student, exec ...core.DBExecutor) (school.Student, error) {
	const q = `
INSERT INTO student (id, ngo_id, first_name, last_name, gender, birth_date, mother_name, father_name, address,
                     is_dropout, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	e := ext(repo.db, exec)
	_, err := e.ExecContext(ctx, q,
		std.ID, std.NGOID, std.FirstName,
		null.NewString(std.LastName, std.LastName != ""),
		null.NewString(std.Gender, std.Gender != ""),
		null.NewTime(std.BirthDate, !std.BirthDate.IsZero()),
		null.NewString(std.MotherName, std.MotherName != ""),
		null.NewString(std.FatherName, std.FatherName != ""),
		null.NewString(std.Address, std.Address != ""),
		std.IsDropout, std.IsActive, std.CreatedAt, std.UpdatedAt,
	)
	if err != nil {
		return school.Student{}, errors.Wrap(err, "inserting student")
	}
	return std, nil
}

func (repo *schoolRepository) GetClassroom(ctx context.Context, id string, exec ...core.DBExecutor) (school.Classroom, error) {
	const q = `
SELECT id, school_id, standard, division, is_active, created_at, updated_at
FROM classroom WHERE id = $1`

	var row classroomRow
	if err := sqlx.GetContext(ctx, ext(repo.db, exec), &row, q, id); err != nil {
		return school.Classroom{}, trapNoRowsErr(err, school.ErrClassroomNotFound, "getting classroom")
	}
	return row.classroom(), nil
}

func (repo *schoolRepository) GetStudent(ctx context.Context, id string, exec ...core.DBExecutor) (school.Student, error) {
	const q = `
SELECT id, ngo_id, first_name, last_name, gender, birth_date, mother_name, father_name, address,
       is_dropout, is_active, created_at, updated_at
FROM student WHERE id = $1`

	var row studentRow
	if err := sqlx.GetContext(ctx, ext(repo.db, exec), &row, q, id); err != nil {
		return school.Student{}, trapNoRowsErr(err, school.ErrStudentNotFound, "getting student")
	}
	return row.student(), nil
}

func (repo *schoolRepository) UpdateStudent(ctx context.Context, std school.Student, exec ...core.DBExecutor) (school.Student, error) {
	const q = `
UPDATE student
SET first_name = $2, last_name = $3, gender = $4, birth_date = $5, mother_name = $6, father_name = $7,
    address = $8, is_dropout = $9, is_active = $10, updated_at = $11
WHERE id = $1`
	e := ext(repo.db, exec)
	res, err := e.ExecContext(ctx, q,
		std.ID, std.FirstName,
		null.NewString(std.LastName, std.LastName != ""),
		null.NewString(std.Gender, std.Gender != ""),
		null.NewTime(std.BirthDate, !std.BirthDate.IsZero()),
		null.NewString(std.MotherName, std.MotherName != ""),
		null.NewString(std.FatherName, std.FatherName != ""),
		null.NewString(std.Address, std.Address != ""),
		std.IsDropout, std.IsActive, std.UpdatedAt,
	)
	if err != nil {
		return school.Student{}, errors.Wrap(err, "updating student")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return school.Student{}, school.ErrStudentNotFound
	}
	return std, nil
}

func (repo *schoolRepository) Enroll(ctx context.Context, enr school.Enrollment, exec ...core.DBExecutor) (school.Enrollment, error) {
	const q = `
INSERT INTO enrollment (id, academic_year_id, classroom_id, student_id, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	e := ext(repo.db, exec)
	_, err := e.ExecContext(ctx, q, enr.ID, enr.AcademicYearID, enr.ClassroomID, enr.StudentID, enr.IsActive, enr.CreatedAt, enr.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return school.Enrollment{}, school.ErrAlreadyEnrolled
		}
		return school.Enrollment{}, errors.Wrap(err, "inserting enrollment")
	}
	return enr, nil
}

func (repo *schoolRepository) EnrolledStudents(ctx context.Context, classroomIDs []string, academicYearID string, exec ...core.DBExecutor) ([]school.Student, error) {
	const q = `
SELECT DISTINCT s.id, s.ngo_id, s.first_name, s.last_name, s.gender, s.birth_date, s.mother_name, s.father_name,
                s.address, s.is_dropout, s.is_active, s.created_at, s.updated_at
FROM student s
JOIN enrollment e ON e.student_id = s.id
WHERE e.classroom_id = ANY($1)
  AND e.academic_year_id = $2
  AND e.is_active
  AND s.is_active
  AND NOT s.is_dropout
ORDER BY s.id`

	var rows []studentRow
	if err := sqlx.SelectContext(ctx, ext(repo.db, exec), &rows, q, pq.Array(classroomIDs), academicYearID); err != nil {
		return nil, errors.Wrap(err, "querying enrolled students")
	}
	students := make([]school.Student, 0, len(rows))
	for _, row := range rows {
		students = append(students, row.student())
	}
	return students, nil
}
