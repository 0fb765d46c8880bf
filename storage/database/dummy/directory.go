package dummydb

import (
	"context"
	"net/mail"
	"sort"

	"github.com/mavlabs/read/core"
	"github.com/mavlabs/read/core/session"
)

// directory resolves scheduling references for the session service.
type directory struct {
	years      *academicYearTable
	schools    *schoolTable
	classrooms *classroomTable
	students   *studentTable
	users      *userTable
	sessions   *sessionTable
}

var _ session.Directory = (*directory)(nil) // interface compliance check

func NewDirectory(db *DB) session.Directory {
	return &directory{
		years:      db.academicYear,
		schools:    db.school,
		classrooms: db.classroom,
		students:   db.student,
		users:      db.user,
		sessions:   db.session,
	}
}

func (dir *directory) CheckAcademicYear(ctx context.Context, id string, exec ...core.DBExecutor) error {
	dir.years.RLock()
	defer dir.years.RUnlock()

	if _, ok := dir.years.table[id]; !ok {
		return session.ErrYearNotFound
	}
	return nil
}

func (dir *directory) CheckClassrooms(ctx context.Context, ids []string, exec ...core.DBExecutor) error {
	dir.classrooms.RLock()
	defer dir.classrooms.RUnlock()

	for _, id := range ids {
		if _, ok := dir.classrooms.table[id]; !ok {
			return session.ErrClassNotFound
		}
	}
	return nil
}

func (dir *directory) CheckFairies(ctx context.Context, ids []string, exec ...core.DBExecutor) error {
	dir.users.RLock()
	defer dir.users.RUnlock()

	for _, id := range ids {
		usr, ok := dir.users.table[id]
		if !ok || !usr.IsActive || !usr.IsFairy() {
			return session.ErrFairyNotFound
		}
	}
	return nil
}

func (dir *directory) CheckStudent(ctx context.Context, id string, exec ...core.DBExecutor) error {
	dir.students.RLock()
	defer dir.students.RUnlock()

	if _, ok := dir.students.table[id]; !ok {
		return session.ErrStudentNotFound
	}
	return nil
}

func (dir *directory) FairyNames(ctx context.Context, ids []string, exec ...core.DBExecutor) ([]string, error) {
	dir.users.RLock()
	defer dir.users.RUnlock()

	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if usr, ok := dir.users.table[id]; ok {
			names = append(names, usr.Name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (dir *directory) SupervisorEmails(ctx context.Context, sessionID string, exec ...core.DBExecutor) ([]mail.Address, error) {
	dir.sessions.RLock()
	s, ok := dir.sessions.table[sessionID]
	dir.sessions.RUnlock()
	if !ok {
		return nil, session.ErrNotFound
	}

	dir.classrooms.RLock()
	dir.schools.RLock()
	ngoIDs := make(map[string]bool)
	for _, clsID := range s.ClassroomIDs {
		if cls, ok := dir.classrooms.table[clsID]; ok {
			if sch, ok := dir.schools.table[cls.SchoolID]; ok {
				ngoIDs[sch.NGOID] = true
			}
		}
	}
	dir.schools.RUnlock()
	dir.classrooms.RUnlock()

	dir.users.RLock()
	defer dir.users.RUnlock()

	var addrs []mail.Address
	for _, usr := range dir.users.table {
		if usr.IsActive && usr.Email != "" && usr.IsSupervisor() && ngoIDs[usr.NGOID] {
			addrs = append(addrs, mail.Address{Name: usr.Name, Address: usr.Email})
		}
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i].Name < addrs[j].Name })
	return addrs, nil
}
