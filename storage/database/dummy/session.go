package dummydb

import (
	"context"
	"sort"

	"github.com/mavlabs/read/core"
	"github.com/mavlabs/read/core/session"
)

type sessionRepository struct {
	sessions   *sessionTable
	classrooms *classroomTable
	schools    *schoolTable
	users      *userTable
}

var _ session.Repository = (*sessionRepository)(nil) // interface compliance check

func NewSessionRepository(db *DB) session.Repository {
	return &sessionRepository{
		sessions:   db.session,
		classrooms: db.classroom,
		schools:    db.school,
		users:      db.user,
	}
}

func (repo *sessionRepository) CreateSession(ctx context.Context, s session.Session, exec ...core.DBExecutor) (session.Session, error) {
	repo.sessions.Lock()
	defer repo.sessions.Unlock()
	repo.sessions.table[s.ID] = &s
	return s, nil
}

func (repo *sessionRepository) GetSession(ctx context.Context, id string, exec ...core.DBExecutor) (session.Session, error) {
	repo.sessions.RLock()
	defer repo.sessions.RUnlock()

	if s, ok := repo.sessions.table[id]; ok {
		return *s, nil
	}
	return session.Session{}, session.ErrNotFound
}

func (repo *sessionRepository) UpdateSession(ctx context.Context, s session.Session, exec ...core.DBExecutor) (session.Session, error) {
	repo.sessions.Lock()
	defer repo.sessions.Unlock()

	if _, ok := repo.sessions.table[s.ID]; !ok {
		return session.Session{}, session.ErrNotFound
	}
	repo.sessions.table[s.ID] = &s
	return s, nil
}

func (repo *sessionRepository) QuerySessions(ctx context.Context, filter *session.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]session.Session, error) {
	repo.sessions.RLock()
	defer repo.sessions.RUnlock()

	sessions := make([]session.Session, 0, len(repo.sessions.table))
	for _, s := range repo.sessions.table {
		sessions = append(sessions, *s)
	}

	if filter != nil && !filter.IsEmpty() {
		var filtered []session.Session
		for _, s := range sessions {
			if filter.Type != "" && s.Type != filter.Type {
				continue
			}
			if filter.AcademicYearID != "" && s.AcademicYearID != filter.AcademicYearID {
				continue
			}
			if filter.FairyID != "" && !containsID(s.FairyIDs, filter.FairyID) {
				continue
			}
			if filter.SchoolID != "" && !repo.inSchool(s, filter.SchoolID) {
				continue
			}
			if !filter.From.IsZero() && s.Start.Before(filter.From) {
				continue
			}
			if !filter.To.IsZero() && s.End.After(filter.To) {
				continue
			}
			if filter.Cancelled != nil && s.IsCancelled != *filter.Cancelled {
				continue
			}
			filtered = append(filtered, s)
		}
		sessions = filtered
	}

	sort.Slice(sessions, func(i, j int) bool { return sessions[i].Start.Before(sessions[j].Start) })
	return sessions, nil
}

func (repo *sessionRepository) inSchool(s session.Session, schoolID string) bool {
	repo.classrooms.RLock()
	defer repo.classrooms.RUnlock()

	for _, clsID := range s.ClassroomIDs {
		if cls, ok := repo.classrooms.table[clsID]; ok && cls.SchoolID == schoolID {
			return true
		}
	}
	return false
}

func (repo *sessionRepository) FindOverlaps(ctx context.Context, w session.Window, fairyIDs []string, academicYearID string, exec ...core.DBExecutor) ([]session.Overlap, error) {
	repo.sessions.RLock()
	defer repo.sessions.RUnlock()

	var found []session.Overlap
	for _, s := range repo.sessions.table {
		if s.IsCancelled || s.AcademicYearID != academicYearID {
			continue
		}
		shared := sharedIDs(s.FairyIDs, fairyIDs)
		if len(shared) == 0 {
			continue
		}
		if !session.Overlaps(s.Start, s.End, w.Start, w.End) {
			continue
		}
		found = append(found, session.Overlap{
			SessionID:  s.ID,
			FairyNames: repo.userNames(shared),
			Start:      s.Start,
			End:        s.End,
		})
	}
	sort.Slice(found, func(i, j int) bool { return found[i].Start.Before(found[j].Start) })
	return found, nil
}

func (repo *sessionRepository) InNGO(ctx context.Context, sessionID, ngoID string, exec ...core.DBExecutor) (bool, error) {
	repo.sessions.RLock()
	s, ok := repo.sessions.table[sessionID]
	repo.sessions.RUnlock()
	if !ok {
		return false, session.ErrNotFound
	}

	repo.classrooms.RLock()
	defer repo.classrooms.RUnlock()
	repo.schools.RLock()
	defer repo.schools.RUnlock()

	for _, clsID := range s.ClassroomIDs {
		cls, ok := repo.classrooms.table[clsID]
		if !ok {
			continue
		}
		if sch, ok := repo.schools.table[cls.SchoolID]; ok && sch.NGOID == ngoID {
			return true, nil
		}
	}
	return false, nil
}

func (repo *sessionRepository) ReplaceFeedback(ctx context.Context, fb session.Feedback, books []session.FeedbackBook, replace bool, exec ...core.DBExecutor) error {
	repo.sessions.Lock()
	defer repo.sessions.Unlock()

	if replace {
		repo.deleteStudentRows(fb.SessionID, fb.StudentID)
	}
	repo.sessions.feedback[fb.SessionID] = append(repo.sessions.feedback[fb.SessionID], fb)
	repo.sessions.books[fb.SessionID] = append(repo.sessions.books[fb.SessionID], books...)
	return nil
}

func (repo *sessionRepository) ReplaceEvaluation(ctx context.Context, ev session.EvaluationRecord, books []session.FeedbackBook, replace bool, exec ...core.DBExecutor) error {
	repo.sessions.Lock()
	defer repo.sessions.Unlock()

	if replace {
		repo.deleteStudentRows(ev.SessionID, ev.StudentID)
	}
	repo.sessions.evaluations[ev.SessionID] = append(repo.sessions.evaluations[ev.SessionID], ev)
	repo.sessions.books[ev.SessionID] = append(repo.sessions.books[ev.SessionID], books...)
	return nil
}

func (repo *sessionRepository) ReplaceLendings(ctx context.Context, sessionID, studentID string, recs []session.LendingRecord, replace bool, exec ...core.DBExecutor) error {
	repo.sessions.Lock()
	defer repo.sessions.Unlock()

	if replace {
		var kept []session.LendingRecord
		for _, r := range repo.sessions.lendings[sessionID] {
			if r.StudentID != studentID {
				kept = append(kept, r)
			}
		}
		repo.sessions.lendings[sessionID] = kept
	}

	// (session, inventory, student) is unique on the ledger
	seen := make(map[string]bool, len(repo.sessions.lendings[sessionID]))
	for _, r := range repo.sessions.lendings[sessionID] {
		seen[r.InventoryID+"/"+r.StudentID] = true
	}
	for _, rec := range recs {
		key := rec.InventoryID + "/" + rec.StudentID
		if seen[key] {
			return session.ErrDuplicateLending
		}
		seen[key] = true
	}
	repo.sessions.lendings[sessionID] = append(repo.sessions.lendings[sessionID], recs...)
	return nil
}

// deleteStudentRows drops the student's outcome and book rows for the
// session. Callers hold the write lock.
func (repo *sessionRepository) deleteStudentRows(sessionID, studentID string) {
	var fbs []session.Feedback
	for _, fb := range repo.sessions.feedback[sessionID] {
		if fb.StudentID != studentID {
			fbs = append(fbs, fb)
		}
	}
	repo.sessions.feedback[sessionID] = fbs

	var evs []session.EvaluationRecord
	for _, ev := range repo.sessions.evaluations[sessionID] {
		if ev.StudentID != studentID {
			evs = append(evs, ev)
		}
	}
	repo.sessions.evaluations[sessionID] = evs

	var books []session.FeedbackBook
	for _, b := range repo.sessions.books[sessionID] {
		if b.StudentID != studentID {
			books = append(books, b)
		}
	}
	repo.sessions.books[sessionID] = books
}

func (repo *sessionRepository) EvaluatedStudentIDs(ctx context.Context, sessionID string, typ session.Type, exec ...core.DBExecutor) ([]string, error) {
	repo.sessions.RLock()
	defer repo.sessions.RUnlock()

	seen := make(map[string]bool)
	var ids []string
	if typ == session.Evaluation {
		for _, ev := range repo.sessions.evaluations[sessionID] {
			if !seen[ev.StudentID] {
				seen[ev.StudentID] = true
				ids = append(ids, ev.StudentID)
			}
		}
	} else {
		for _, fb := range repo.sessions.feedback[sessionID] {
			if !seen[fb.StudentID] {
				seen[fb.StudentID] = true
				ids = append(ids, fb.StudentID)
			}
		}
	}
	return ids, nil
}

func (repo *sessionRepository) HasStudentRecords(ctx context.Context, sessionID string, exec ...core.DBExecutor) (bool, error) {
	repo.sessions.RLock()
	defer repo.sessions.RUnlock()

	return len(repo.sessions.feedback[sessionID]) > 0 ||
		len(repo.sessions.evaluations[sessionID]) > 0 ||
		len(repo.sessions.lendings[sessionID]) > 0, nil
}

func (repo *sessionRepository) DeleteSessions(ctx context.Context, ids []string, exec ...core.DBExecutor) error {
	repo.sessions.Lock()
	defer repo.sessions.Unlock()

	for _, id := range ids {
		delete(repo.sessions.table, id)
		delete(repo.sessions.feedback, id)
		delete(repo.sessions.evaluations, id)
		delete(repo.sessions.books, id)
		delete(repo.sessions.lendings, id)
	}
	return nil
}

func (repo *sessionRepository) QueryFeedback(ctx context.Context, sessionID string, exec ...core.DBExecutor) ([]session.Feedback, error) {
	repo.sessions.RLock()
	defer repo.sessions.RUnlock()
	return append([]session.Feedback(nil), repo.sessions.feedback[sessionID]...), nil
}

func (repo *sessionRepository) QueryEvaluations(ctx context.Context, sessionID string, exec ...core.DBExecutor) ([]session.EvaluationRecord, error) {
	repo.sessions.RLock()
	defer repo.sessions.RUnlock()
	return append([]session.EvaluationRecord(nil), repo.sessions.evaluations[sessionID]...), nil
}

func (repo *sessionRepository) QueryLendings(ctx context.Context, sessionID string, exec ...core.DBExecutor) ([]session.LendingRecord, error) {
	repo.sessions.RLock()
	defer repo.sessions.RUnlock()
	return append([]session.LendingRecord(nil), repo.sessions.lendings[sessionID]...), nil
}

func (repo *sessionRepository) userNames(ids []string) []string {
	repo.users.RLock()
	defer repo.users.RUnlock()

	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if usr, ok := repo.users.table[id]; ok {
			names = append(names, usr.Name)
		}
	}
	sort.Strings(names)
	return names
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func sharedIDs(a, b []string) []string {
	inA := make(map[string]bool, len(a))
	for _, id := range a {
		inA[id] = true
	}
	var shared []string
	for _, id := range b {
		if inA[id] {
			shared = append(shared, id)
		}
	}
	return shared
}
