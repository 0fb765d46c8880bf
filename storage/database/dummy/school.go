package dummydb

import (
	"context"
	"sort"

	"github.com/mavlabs/read/core"
	"github.com/mavlabs/read/core/school"
)

type schoolRepository struct {
	schools     *schoolTable
	classrooms  *classroomTable
	students    *studentTable
	enrollments *enrollmentTable
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db *DB) school.Repository {
	return &schoolRepository{
		schools:     db.school,
		classrooms:  db.classroom,
		students:    db.student,
		enrollments: db.enrollment,
	}
}

func (repo *schoolRepository) CreateSchool(ctx context.Context, sch school.School, exec ...core.DBExecutor) (school.School, error) {
	repo.schools.Lock()
	defer repo.schools.Unlock()
	repo.schools.table[sch.ID] = &sch
	return sch, nil
}

func (repo *schoolRepository) CreateClassroom(ctx context.Context, cls school.Classroom, exec ...core.DBExecutor) (school.Classroom, error) {
	repo.classrooms.Lock()
	defer repo.classrooms.Unlock()
	repo.classrooms.table[cls.ID] = &cls
	return cls, nil
}

func (repo *schoolRepository) CreateStudent(ctx context.Context, std school.Student, exec ...core.DBExecutor) (school.Student, error) {
	repo.students.Lock()
	defer repo.students.Unlock()
	repo.students.table[std.ID] = &std
	return std, nil
}

func (repo *schoolRepository) GetClassroom(ctx context.Context, id string, exec ...core.DBExecutor) (school.Classroom, error) {
	repo.classrooms.RLock()
	defer repo.classrooms.RUnlock()

	if cls, ok := repo.classrooms.table[id]; ok {
		return *cls, nil
	}
	return school.Classroom{}, school.ErrClassroomNotFound
}

func (repo *schoolRepository) GetStudent(ctx context.Context, id string, exec ...core.DBExecutor) (school.Student, error) {
	repo.students.RLock()
	defer repo.students.RUnlock()

	if std, ok := repo.students.table[id]; ok {
		return *std, nil
	}
	return school.Student{}, school.ErrStudentNotFound
}

func (repo *schoolRepository) UpdateStudent(ctx context.Context, std school.Student, exec ...core.DBExecutor) (school.Student, error) {
	repo.students.Lock()
	defer repo.students.Unlock()

	if _, ok := repo.students.table[std.ID]; !ok {
		return school.Student{}, school.ErrStudentNotFound
	}
	repo.students.table[std.ID] = &std
	return std, nil
}

func (repo *schoolRepository) Enroll(ctx context.Context, enr school.Enrollment, exec ...core.DBExecutor) (school.Enrollment, error) {
	repo.enrollments.Lock()
	defer repo.enrollments.Unlock()

	for _, e := range repo.enrollments.table {
		if e.IsActive && e.AcademicYearID == enr.AcademicYearID &&
			e.ClassroomID == enr.ClassroomID && e.StudentID == enr.StudentID {
			return school.Enrollment{}, school.ErrAlreadyEnrolled
		}
	}
	repo.enrollments.table[enr.ID] = &enr
	return enr, nil
}

func (repo *schoolRepository) EnrolledStudents(ctx context.Context, classroomIDs []string, academicYearID string, exec ...core.DBExecutor) ([]school.Student, error) {
	repo.enrollments.RLock()
	defer repo.enrollments.RUnlock()
	repo.students.RLock()
	defer repo.students.RUnlock()

	inClassrooms := make(map[string]bool, len(classroomIDs))
	for _, id := range classroomIDs {
		inClassrooms[id] = true
	}

	seen := make(map[string]bool)
	var students []school.Student
	for _, enr := range repo.enrollments.table {
		if !enr.IsActive || enr.AcademicYearID != academicYearID || !inClassrooms[enr.ClassroomID] {
			continue
		}
		if seen[enr.StudentID] {
			continue
		}
		seen[enr.StudentID] = true
		if std, ok := repo.students.table[enr.StudentID]; ok && std.IsActive && !std.IsDropout {
			students = append(students, *std)
		}
	}
	sort.Slice(students, func(i, j int) bool { return students[i].ID < students[j].ID })
	return students, nil
}
