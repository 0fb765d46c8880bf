package session

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/mavlabs/read/core"
	"github.com/mavlabs/read/core/catalog"
	"github.com/mavlabs/read/core/school"
)

type (
	Repository interface {
		// CreateSession persists the session together with its classroom and
		// fairy link rows; a session without at least one of each must never
		// be observable.
		CreateSession(ctx context.Context, s Session, exec ...core.DBExecutor) (Session, error)
		// GetSession loads the session with its classroom and fairy links.
		GetSession(ctx context.Context, id string, exec ...core.DBExecutor) (Session, error)
		UpdateSession(ctx context.Context, s Session, exec ...core.DBExecutor) (Session, error)
		// QuerySessions applies AND operation on available QueryFilter fields.
		QuerySessions(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Session, error)
		// FindOverlaps returns every existing, non-cancelled session in the
		// academic year that shares a fairy with fairyIDs and overlaps the
		// window per the overlap predicate.
		FindOverlaps(ctx context.Context, w Window, fairyIDs []string, academicYearID string, exec ...core.DBExecutor) ([]Overlap, error)
		// InNGO reports whether the session belongs to the NGO (through its
		// linked classrooms' schools).
		InNGO(ctx context.Context, sessionID, ngoID string, exec ...core.DBExecutor) (bool, error)

		// Replace* primitives delete the student's prior rows for the session
		// (when replace is set) and insert the new set as one unit.
		ReplaceFeedback(ctx context.Context, fb Feedback, books []FeedbackBook, replace bool, exec ...core.DBExecutor) error
		ReplaceEvaluation(ctx context.Context, ev EvaluationRecord, books []FeedbackBook, replace bool, exec ...core.DBExecutor) error
		ReplaceLendings(ctx context.Context, sessionID, studentID string, recs []LendingRecord, replace bool, exec ...core.DBExecutor) error

		// EvaluatedStudentIDs returns the students having an outcome row for
		// the session, regardless of attendance value.
		EvaluatedStudentIDs(ctx context.Context, sessionID string, typ Type, exec ...core.DBExecutor) ([]string, error)
		HasStudentRecords(ctx context.Context, sessionID string, exec ...core.DBExecutor) (bool, error)
		DeleteSessions(ctx context.Context, ids []string, exec ...core.DBExecutor) error

		QueryFeedback(ctx context.Context, sessionID string, exec ...core.DBExecutor) ([]Feedback, error)
		QueryEvaluations(ctx context.Context, sessionID string, exec ...core.DBExecutor) ([]EvaluationRecord, error)
		QueryLendings(ctx context.Context, sessionID string, exec ...core.DBExecutor) ([]LendingRecord, error)
	}

	// RosterProvider supplies the students enrolled in classrooms for an
	// academic year: active enrollments only, dropouts excluded.
	RosterProvider interface {
		EnrolledStudents(ctx context.Context, classroomIDs []string, academicYearID string, exec ...core.DBExecutor) ([]school.Student, error)
	}

	// Catalog resolves level/book/inventory references in student submissions.
	Catalog interface {
		GetLevel(ctx context.Context, id, ngoID string, exec ...core.DBExecutor) (catalog.Level, error)
		GetBook(ctx context.Context, id string, exec ...core.DBExecutor) (catalog.Book, error)
		GetInventory(ctx context.Context, id string, exec ...core.DBExecutor) (catalog.Inventory, error)
	}

	// Directory checks scheduling references against the rest of the system.
	Directory interface {
		CheckAcademicYear(ctx context.Context, id string, exec ...core.DBExecutor) error
		CheckClassrooms(ctx context.Context, ids []string, exec ...core.DBExecutor) error
		CheckFairies(ctx context.Context, ids []string, exec ...core.DBExecutor) error
		CheckStudent(ctx context.Context, id string, exec ...core.DBExecutor) error
		FairyNames(ctx context.Context, ids []string, exec ...core.DBExecutor) ([]string, error)
		// SupervisorEmails returns the addresses of the active supervisors of
		// the NGO the session belongs to.
		SupervisorEmails(ctx context.Context, sessionID string, exec ...core.DBExecutor) ([]mail.Address, error)
	}

	Service struct {
		txr     core.Transactor
		repo    Repository
		roster  RosterProvider
		catalog Catalog
		dir     Directory
		mailSvc core.EmailService
		logger  core.Logger
	}
)

func NewService(txr core.Transactor, repo Repository, roster RosterProvider, cat Catalog, dir Directory, mailSvc core.EmailService, logger core.Logger) *Service {
	return &Service{
		txr:     txr,
		repo:    repo,
		roster:  roster,
		catalog: cat,
		dir:     dir,
		mailSvc: mailSvc,
		logger:  logger,
	}
}

// Create schedules one session per requested window, all sharing the same
// type, classrooms and fairies. For REGULAR and EVALUATION sessions each
// window is checked against existing bookings of the same fairies (and against
// the other windows of this request) before anything is persisted; any
// conflict aborts the whole request. BOOK_LENDING sessions are exempt from
// the check.
func (svc *Service) Create(ctx context.Context, ns NewSessions) ([]Session, error) {
	if err := ns.Validate(); err != nil {
		return nil, err
	}

	var created []Session
	err := svc.txr.Atomic(ctx, func(exec core.DBExecutor) error {
		if err := svc.dir.CheckAcademicYear(ctx, ns.AcademicYearID, exec); err != nil {
			return err
		}
		if err := svc.dir.CheckClassrooms(ctx, ns.ClassroomIDs, exec); err != nil {
			return err
		}
		if err := svc.dir.CheckFairies(ctx, ns.FairyIDs, exec); err != nil {
			return err
		}

		// every window must clear before anything is persisted
		var checked []Window
		var conflicts []Overlap
		for _, w := range ns.Windows {
			w.Start, w.End = w.Start.UTC(), w.End.UTC()

			if ns.Type != BookLending {
				found, err := svc.repo.FindOverlaps(ctx, w, ns.FairyIDs, ns.AcademicYearID, exec)
				if err != nil {
					return err
				}
				intra, err := svc.intraRequestOverlaps(ctx, w, checked, ns.FairyIDs, exec)
				if err != nil {
					return err
				}
				conflicts = append(conflicts, append(found, intra...)...)
			}
			checked = append(checked, w)
		}
		if len(conflicts) > 0 {
			return &ConflictError{Overlaps: conflicts}
		}

		now := time.Now().UTC()
		for _, w := range checked {
			s := Session{
				ID:             core.NewKey(),
				AcademicYearID: ns.AcademicYearID,
				Start:          w.Start,
				End:            w.End,
				Type:           ns.Type,
				CreatedAt:      now,
				UpdatedAt:      now,
				ClassroomIDs:   ns.ClassroomIDs,
				FairyIDs:       ns.FairyIDs,
			}
			s, err := svc.repo.CreateSession(ctx, s, exec)
			if err != nil {
				return err
			}
			created = append(created, s)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// intraRequestOverlaps checks a window against the windows that came before
// it in the same request; they all share the full fairy set.
func (svc *Service) intraRequestOverlaps(ctx context.Context, w Window, earlier []Window, fairyIDs []string, exec ...core.DBExecutor) ([]Overlap, error) {
	var found []Overlap
	var names []string
	for _, a := range earlier {
		if !Overlaps(a.Start, a.End, w.Start, w.End) {
			continue
		}
		if names == nil {
			var err error
			if names, err = svc.dir.FairyNames(ctx, fairyIDs, exec...); err != nil {
				return nil, err
			}
		}
		found = append(found, Overlap{FairyNames: names, Start: a.Start, End: a.End})
	}
	return found, nil
}

func (svc *Service) Get(ctx context.Context, id string) (Session, error) {
	return svc.repo.GetSession(ctx, id)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering ...core.DBOrdering) ([]Session, error) {
	return svc.repo.QuerySessions(ctx, filter, ordering)
}

// InNGO backs the authorization check performed before every mutation.
func (svc *Service) InNGO(ctx context.Context, sessionID, ngoID string) (bool, error) {
	return svc.repo.InNGO(ctx, sessionID, ngoID)
}

// SaveResults records per-student outcomes for a REGULAR or EVALUATION
// session without submitting it.
func (svc *Service) SaveResults(ctx context.Context, sessionID, ngoID string, results []StudentResult) error {
	return svc.txr.Atomic(ctx, func(exec core.DBExecutor) error {
		s, err := svc.repo.GetSession(ctx, sessionID, exec)
		if err != nil {
			return err
		}
		if s.Type == BookLending {
			return ErrWrongType
		}
		if s.IsVerified {
			return ErrAlreadyVerified
		}
		for i := range results {
			if err := svc.record(ctx, &s, ngoID, &results[i], exec); err != nil {
				return err
			}
		}
		return nil
	})
}

// Submit records any final per-student outcomes, then runs the completion
// gate: every eligible student (active, non-dropout enrollment in a linked
// classroom for the session's year) must have an outcome row; existence
// alone counts, an absent-marked student is still evaluated. On success the
// session is flagged evaluated and stamped with the submitting fairy; the
// flip is idempotent.
func (svc *Service) Submit(ctx context.Context, sessionID, ngoID, fairyID string, results []StudentResult) error {
	var submitted *Session
	err := svc.txr.Atomic(ctx, func(exec core.DBExecutor) error {
		s, err := svc.repo.GetSession(ctx, sessionID, exec)
		if err != nil {
			return err
		}
		if s.Type == BookLending {
			return ErrWrongType
		}
		if s.IsVerified {
			return ErrAlreadyVerified
		}
		for i := range results {
			if err := svc.record(ctx, &s, ngoID, &results[i], exec); err != nil {
				return err
			}
		}

		eligible, err := svc.roster.EnrolledStudents(ctx, s.ClassroomIDs, s.AcademicYearID, exec)
		if err != nil {
			return err
		}
		doneIDs, err := svc.repo.EvaluatedStudentIDs(ctx, s.ID, s.Type, exec)
		if err != nil {
			return err
		}
		done := make(map[string]bool, len(doneIDs))
		for _, id := range doneIDs {
			done[id] = true
		}
		var missing []string
		for _, std := range eligible {
			if !done[std.ID] {
				missing = append(missing, std.ID)
			}
		}
		if len(missing) > 0 {
			return &IncompleteError{MissingStudentIDs: missing}
		}

		if !s.IsEvaluated {
			s.IsEvaluated = true
			s.SubmittedByID = fairyID
			s.UpdatedAt = time.Now().UTC()
			if _, err := svc.repo.UpdateSession(ctx, s, exec); err != nil {
				return err
			}
			submitted = &s
		}
		return nil
	})
	if err != nil {
		return err
	}
	if submitted != nil {
		svc.notifySupervisors(ctx, *submitted)
	}
	return nil
}

// notifySupervisors mails the NGO's supervisors that a session awaits
// verification. Called only after the submitting transaction commits.
// Failures are logged, never surfaced: the submission already succeeded.
func (svc *Service) notifySupervisors(ctx context.Context, s Session, exec ...core.DBExecutor) {
	addrs, err := svc.dir.SupervisorEmails(ctx, s.ID, exec...)
	if err != nil {
		svc.logger.Error("looking up supervisor emails", err, map[string]interface{}{"session": s.ID})
		return
	}
	if len(addrs) == 0 {
		return
	}
	names, err := svc.dir.FairyNames(ctx, s.FairyIDs, exec...)
	if err != nil {
		svc.logger.Error("looking up fairy names", err, map[string]interface{}{"session": s.ID})
		return
	}
	go svc.mailSvc.SendMessages(
		&core.EmailMessage{
			To:           addrs,
			Subject:      fmt.Sprintf("Read session submitted for verification on %s", core.Conf.AppName),
			TemplateName: "session-submitted",
			TemplateData: struct {
				Session    Session
				FairyNames []string
			}{s, names},
		},
	)
}

// record writes or replaces one student's outcome. Absent students cannot
// have a level or book lines; present students must reference a level flagged
// for the session's type in the NGO's catalog.
func (svc *Service) record(ctx context.Context, s *Session, ngoID string, r *StudentResult, exec ...core.DBExecutor) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if err := svc.dir.CheckStudent(ctx, r.StudentID, exec...); err != nil {
		return err
	}

	var levelID string
	var books []FeedbackBook
	now := time.Now().UTC()

	if r.Attendance {
		if r.LevelID == "" {
			return core.NewValidationError(nil, core.FieldError{Field: "level", Error: "this field is required"})
		}
		lvl, err := svc.catalog.GetLevel(ctx, r.LevelID, ngoID, exec...)
		if err != nil {
			return err
		}
		if (s.Type == Regular && !lvl.ForRegular) || (s.Type == Evaluation && !lvl.ForEvaluation) {
			return core.NewValidationError(nil, core.FieldError{Field: "level", Error: "level not valid for this session type"})
		}
		levelID = lvl.ID

		for _, line := range r.Books {
			book, err := svc.catalog.GetBook(ctx, line.BookID, exec...)
			if err != nil {
				return err
			}
			inv, err := svc.catalog.GetInventory(ctx, line.InventoryID, exec...)
			if err != nil {
				return err
			}
			books = append(books, FeedbackBook{
				ID:          core.NewKey(),
				SessionID:   s.ID,
				StudentID:   r.StudentID,
				BookID:      book.ID,
				InventoryID: inv.ID,
				CreatedAt:   now,
			})
		}
	}

	if s.Type == Regular {
		fb := Feedback{
			ID:         core.NewKey(),
			SessionID:  s.ID,
			StudentID:  r.StudentID,
			LevelID:    levelID,
			Attendance: r.Attendance,
			Comments:   r.Comments,
			CreatedAt:  now,
		}
		return svc.repo.ReplaceFeedback(ctx, fb, books, r.Replace, exec...)
	}
	ev := EvaluationRecord{
		ID:         core.NewKey(),
		SessionID:  s.ID,
		StudentID:  r.StudentID,
		LevelID:    levelID,
		Attendance: r.Attendance,
		Comments:   r.Comments,
		CreatedAt:  now,
	}
	return svc.repo.ReplaceEvaluation(ctx, ev, books, r.Replace, exec...)
}

// SaveLendings records lend/collect ledger entries for a BOOK_LENDING session
// without submitting it.
func (svc *Service) SaveLendings(ctx context.Context, sessionID string, items []StudentLending) error {
	return svc.txr.Atomic(ctx, func(exec core.DBExecutor) error {
		_, err := svc.lend(ctx, sessionID, items, exec)
		return err
	})
}

// SubmitLendings records ledger entries then flags the session evaluated.
// Lending sessions have no completeness requirement.
func (svc *Service) SubmitLendings(ctx context.Context, sessionID, fairyID string, items []StudentLending) error {
	var submitted *Session
	err := svc.txr.Atomic(ctx, func(exec core.DBExecutor) error {
		s, err := svc.lend(ctx, sessionID, items, exec)
		if err != nil {
			return err
		}
		if !s.IsEvaluated {
			s.IsEvaluated = true
			s.SubmittedByID = fairyID
			s.UpdatedAt = time.Now().UTC()
			if _, err := svc.repo.UpdateSession(ctx, s, exec); err != nil {
				return err
			}
			submitted = &s
		}
		return nil
	})
	if err != nil {
		return err
	}
	if submitted != nil {
		svc.notifySupervisors(ctx, *submitted)
	}
	return nil
}

func (svc *Service) lend(ctx context.Context, sessionID string, items []StudentLending, exec core.DBExecutor) (Session, error) {
	s, err := svc.repo.GetSession(ctx, sessionID, exec)
	if err != nil {
		return Session{}, err
	}
	if s.Type != BookLending {
		return Session{}, ErrWrongType
	}
	if s.IsVerified {
		return Session{}, ErrAlreadyVerified
	}

	now := time.Now().UTC()
	for i := range items {
		item := &items[i]
		if err := item.Validate(); err != nil {
			return Session{}, err
		}
		if err := svc.dir.CheckStudent(ctx, item.StudentID, exec); err != nil {
			return Session{}, err
		}

		recs := make([]LendingRecord, 0, len(item.Lines))
		for _, line := range item.Lines {
			book, err := svc.catalog.GetBook(ctx, line.BookID, exec)
			if err != nil {
				return Session{}, err
			}
			inv, err := svc.catalog.GetInventory(ctx, line.InventoryID, exec)
			if err != nil {
				return Session{}, err
			}
			recs = append(recs, LendingRecord{
				ID:          core.NewKey(),
				SessionID:   s.ID,
				StudentID:   item.StudentID,
				BookID:      book.ID,
				InventoryID: inv.ID,
				Action:      line.Action,
				CreatedAt:   now,
			})
		}
		if err := svc.repo.ReplaceLendings(ctx, s.ID, item.StudentID, recs, item.Replace, exec); err != nil {
			if err == ErrDuplicateLending {
				return Session{}, core.NewValidationError(err, core.FieldError{Field: "books", Error: err.Error()})
			}
			return Session{}, err
		}
	}
	return s, nil
}

// Verify flips an evaluated session to verified and stamps the supervisor.
func (svc *Service) Verify(ctx context.Context, sessionID, supervisorID string) error {
	return svc.txr.Atomic(ctx, func(exec core.DBExecutor) error {
		s, err := svc.repo.GetSession(ctx, sessionID, exec)
		if err != nil {
			return err
		}
		if !s.IsEvaluated {
			return ErrNotEvaluated
		}
		if s.IsVerified {
			return nil
		}
		s.IsVerified = true
		s.VerifiedByID = supervisorID
		s.UpdatedAt = time.Now().UTC()
		_, err = svc.repo.UpdateSession(ctx, s, exec)
		return err
	})
}

// Cancel is only permitted while the session is neither evaluated nor
// verified; the reason is stored as the session's notes.
func (svc *Service) Cancel(ctx context.Context, sessionID, reason string) error {
	reason = core.CleanString(reason)
	if reason == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "reason", Error: "this field is required"})
	}
	return svc.txr.Atomic(ctx, func(exec core.DBExecutor) error {
		s, err := svc.repo.GetSession(ctx, sessionID, exec)
		if err != nil {
			return err
		}
		if s.IsEvaluated || s.IsVerified {
			return ErrAlreadyFinalized
		}
		s.IsCancelled = true
		s.Notes = reason
		s.UpdatedAt = time.Now().UTC()
		_, err = svc.repo.UpdateSession(ctx, s, exec)
		return err
	})
}

// Annotate overwrites the session's notes regardless of state: it is a
// supervisor communication channel, not a workflow transition.
func (svc *Service) Annotate(ctx context.Context, sessionID, comment string) error {
	return svc.txr.Atomic(ctx, func(exec core.DBExecutor) error {
		s, err := svc.repo.GetSession(ctx, sessionID, exec)
		if err != nil {
			return err
		}
		s.Notes = core.CleanString(comment)
		s.UpdatedAt = time.Now().UTC()
		_, err = svc.repo.UpdateSession(ctx, s, exec)
		return err
	})
}

// Delete removes sessions and their link rows. A session with any
// feedback/evaluation/lending rows is never deleted; the whole batch aborts.
func (svc *Service) Delete(ctx context.Context, sessionIDs ...string) error {
	return svc.txr.Atomic(ctx, func(exec core.DBExecutor) error {
		for _, id := range sessionIDs {
			if _, err := svc.repo.GetSession(ctx, id, exec); err != nil {
				return err
			}
			has, err := svc.repo.HasStudentRecords(ctx, id, exec)
			if err != nil {
				return err
			}
			if has {
				svc.logger.Warn("refusing to delete session with student records", map[string]interface{}{"session": id})
				return ErrHasRecords
			}
		}
		return svc.repo.DeleteSessions(ctx, sessionIDs, exec)
	})
}

// Feedbacks returns the recorded outcomes of a REGULAR session.
func (svc *Service) Feedbacks(ctx context.Context, sessionID string) ([]Feedback, error) {
	s, err := svc.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s.Type != Regular {
		return nil, ErrWrongType
	}
	return svc.repo.QueryFeedback(ctx, sessionID)
}

// Evaluations returns the recorded outcomes of an EVALUATION session.
func (svc *Service) Evaluations(ctx context.Context, sessionID string) ([]EvaluationRecord, error) {
	s, err := svc.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s.Type != Evaluation {
		return nil, ErrWrongType
	}
	return svc.repo.QueryEvaluations(ctx, sessionID)
}

// Lendings returns the ledger of a BOOK_LENDING session.
func (svc *Service) Lendings(ctx context.Context, sessionID string) ([]LendingRecord, error) {
	s, err := svc.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s.Type != BookLending {
		return nil, ErrWrongType
	}
	return svc.repo.QueryLendings(ctx, sessionID)
}
