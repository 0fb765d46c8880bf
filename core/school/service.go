package school

import (
	"context"
	"errors"
	"time"

	"github.com/mavlabs/read/core"
)

var (
	ErrSchoolNotFound    = errors.New("school not found")
	ErrClassroomNotFound = errors.New("classroom not found")
	ErrStudentNotFound   = errors.New("student not found")
	ErrAlreadyEnrolled   = errors.New("student already enrolled in this classroom for this academic year")
)

type (
	Repository interface {
		CreateSchool(ctx context.Context, sch School, exec ...core.DBExecutor) (School, error)
		CreateClassroom(ctx context.Context, cls Classroom, exec ...core.DBExecutor) (Classroom, error)
		CreateStudent(ctx context.Context, std Student, exec ...core.DBExecutor) (Student, error)
		GetClassroom(ctx context.Context, id string, exec ...core.DBExecutor) (Classroom, error)
		GetStudent(ctx context.Context, id string, exec ...core.DBExecutor) (Student, error)
		UpdateStudent(ctx context.Context, std Student, exec ...core.DBExecutor) (Student, error)
		Enroll(ctx context.Context, enr Enrollment, exec ...core.DBExecutor) (Enrollment, error)
		// EnrolledStudents returns the active, non-dropout students with an
		// active enrollment in any of the classrooms for the academic year.
		EnrolledStudents(ctx context.Context, classroomIDs []string, academicYearID string, exec ...core.DBExecutor) ([]Student, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) RegisterStudent(ctx context.Context, ns NewStudent) (Student, error) {
	if err := ns.Validate(); err != nil {
		return Student{}, err
	}
	now := time.Now().UTC()
	std := Student{
		ID:         core.NewKey(),
		NGOID:      ns.NGOID,
		FirstName:  ns.FirstName,
		LastName:   ns.LastName,
		Gender:     ns.Gender,
		MotherName: ns.MotherName,
		FatherName: ns.FatherName,
		Address:    ns.Address,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return svc.repo.CreateStudent(ctx, std)
}

func (svc *Service) GetStudent(ctx context.Context, id string) (Student, error) {
	return svc.repo.GetStudent(ctx, id)
}

// MarkDropout permanently excludes the student from future completeness
// checks. Historical evaluation rows are untouched.
func (svc *Service) MarkDropout(ctx context.Context, id string) (Student, error) {
	std, err := svc.repo.GetStudent(ctx, id)
	if err != nil {
		return Student{}, err
	}
	std.IsDropout = true
	std.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateStudent(ctx, std)
}

func (svc *Service) Enroll(ctx context.Context, academicYearID, classroomID, studentID string) (Enrollment, error) {
	now := time.Now().UTC()
	enr := Enrollment{
		ID:             core.NewKey(),
		AcademicYearID: academicYearID,
		ClassroomID:    classroomID,
		StudentID:      studentID,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	return svc.repo.Enroll(ctx, enr)
}

func (svc *Service) EnrolledStudents(ctx context.Context, classroomIDs []string, academicYearID string) ([]Student, error) {
	return svc.repo.EnrolledStudents(ctx, classroomIDs, academicYearID)
}
