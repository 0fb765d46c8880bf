package session

import (
	"github.com/go-playground/validator/v10"

	"github.com/mavlabs/read/core"
)

var (
	sessionTypeTag  = "sessiontype"
	sessionTypeText = "invalid session type"

	lendActionTag  = "lendaction"
	lendActionText = "invalid book lending action"
)

func init() {
	_ = core.Validate.RegisterValidation(sessionTypeTag, sessionTypeValidation)
	core.RegisterCustomTranslation(sessionTypeTag, sessionTypeText)

	_ = core.Validate.RegisterValidation(lendActionTag, lendActionValidation)
	core.RegisterCustomTranslation(lendActionTag, lendActionText)
}

func sessionTypeValidation(fl validator.FieldLevel) bool {
	return Type(fl.Field().String()).Valid()
}

func lendActionValidation(fl validator.FieldLevel) bool {
	return LendAction(fl.Field().String()).Valid()
}

func (ns *NewSessions) Validate() error {
	ns.AcademicYearID = core.CleanString(ns.AcademicYearID)
	return core.Validate.Struct(ns)
}

func (r *StudentResult) Validate() error {
	r.StudentID = core.CleanString(r.StudentID)
	r.LevelID = core.CleanString(r.LevelID)
	r.Comments = core.CleanString(r.Comments)
	return core.Validate.Struct(r)
}

func (l *StudentLending) Validate() error {
	l.StudentID = core.CleanString(l.StudentID)
	return core.Validate.Struct(l)
}
