package school

import (
	"time"

	"github.com/mavlabs/read/core"
)

type (
	// School belongs to exactly one NGO.
	School struct {
		ID        string    `json:"id"`
		NGOID     string    `json:"ngo"`
		Name      string    `json:"name"`
		IsActive  bool      `json:"is_active"`
		CreatedAt time.Time `json:"created_at"` // UTC
		UpdatedAt time.Time `json:"updated_at"` // UTC
	}

	// Classroom belongs to exactly one school and one grade standard, with an
	// optional division label.
	Classroom struct {
		ID        string    `json:"id"`
		SchoolID  string    `json:"school"`
		Standard  string    `json:"standard"`
		Division  string    `json:"division,omitempty"`
		IsActive  bool      `json:"is_active"`
		CreatedAt time.Time `json:"created_at"` // UTC
		UpdatedAt time.Time `json:"updated_at"` // UTC
	}

	// Student keeps its demographic record plus the dropout flag. A dropout
	// student is excluded from future completeness checks but historical
	// evaluation rows are retained.
	Student struct {
		ID         string    `json:"id"`
		NGOID      string    `json:"ngo"`
		FirstName  string    `json:"first_name"`
		LastName   string    `json:"last_name"`
		Gender     string    `json:"gender,omitempty"`
		BirthDate  time.Time `json:"birth_date,omitempty"`
		MotherName string    `json:"mother_name,omitempty"`
		FatherName string    `json:"father_name,omitempty"`
		Address    string    `json:"address,omitempty"`
		IsDropout  bool      `json:"is_dropout"`
		IsActive   bool      `json:"is_active"`
		CreatedAt  time.Time `json:"created_at"` // UTC
		UpdatedAt  time.Time `json:"updated_at"` // UTC
	}

	// Enrollment is an academic-year-scoped roster entry: unique per
	// (academic year, classroom, student) with its own activation flag,
	// independent of the student's.
	Enrollment struct {
		ID             string    `json:"id"`
		AcademicYearID string    `json:"academic_year"`
		ClassroomID    string    `json:"classroom"`
		StudentID      string    `json:"student"`
		IsActive       bool      `json:"is_active"`
		CreatedAt      time.Time `json:"created_at"` // UTC
		UpdatedAt      time.Time `json:"updated_at"` // UTC
	}
)

func (s Student) FullName() string {
	if s.LastName == "" {
		return s.FirstName
	}
	return s.FirstName + " " + s.LastName
}

// NewStudent contains information needed to register a Student.
type NewStudent struct {
	NGOID      string `json:"ngo" validate:"required"`
	FirstName  string `json:"first_name" validate:"required"`
	LastName   string `json:"last_name"`
	Gender     string `json:"gender" validate:"omitempty,oneof=male female other"`
	MotherName string `json:"mother_name"`
	FatherName string `json:"father_name"`
	Address    string `json:"address"`
}

func (ns *NewStudent) Validate() error {
	ns.FirstName = core.CleanString(ns.FirstName)
	ns.LastName = core.CleanString(ns.LastName)
	ns.Gender = core.CleanString(ns.Gender, true /* lower */)
	return core.Validate.Struct(ns)
}
