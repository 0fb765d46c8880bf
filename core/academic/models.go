package academic

import (
	"fmt"
	"time"

	"github.com/mavlabs/read/core"
)

// Year is a named yearly period (e.g. "AY 19-20"). Immutable once created
// except for name edits; referenced by enrollments, sessions and book lending.
type Year struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// YearName returns the name of the academic year running at t.
// The program year runs May through April.
func YearName(t time.Time) string {
	yy := t.Year() % 100
	if t.Month() >= time.May {
		return fmt.Sprintf("AY %d-%d", yy, yy+1)
	}
	return fmt.Sprintf("AY %d-%d", yy-1, yy)
}

// NewYear contains information needed to create a new Year.
type NewYear struct {
	Name string `json:"name" validate:"required,max=20"`
}

func (ny *NewYear) Validate() error {
	ny.Name = core.CleanString(ny.Name)
	return core.Validate.Struct(ny)
}
