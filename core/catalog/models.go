package catalog

import "time"

type (
	// Level is a reading level in an NGO's shared catalog. The same catalog
	// serves regular and evaluation sessions; the capability flags gate which
	// subset is valid for each.
	Level struct {
		ID            string    `json:"id"`
		NGOID         string    `json:"ngo"`
		Name          string    `json:"name"`
		Rank          int       `json:"rank"`
		ForRegular    bool      `json:"is_regular"`
		ForEvaluation bool      `json:"is_evaluation"`
		CreatedAt     time.Time `json:"created_at"` // UTC
		UpdatedAt     time.Time `json:"updated_at"` // UTC
	}

	Book struct {
		ID        string    `json:"id"`
		NGOID     string    `json:"ngo"`
		Title     string    `json:"title"`
		Author    string    `json:"author,omitempty"`
		Publisher string    `json:"publisher,omitempty"`
		CreatedAt time.Time `json:"created_at"` // UTC
		UpdatedAt time.Time `json:"updated_at"` // UTC
	}

	// Inventory is one physical copy of a Book; SerialNumber is unique per
	// book within an NGO.
	Inventory struct {
		ID           string    `json:"id"`
		BookID       string    `json:"book"`
		SerialNumber string    `json:"serial_number"`
		Status       string    `json:"status"`
		CreatedAt    time.Time `json:"created_at"` // UTC
		UpdatedAt    time.Time `json:"updated_at"` // UTC
	}
)

// Inventory statuses
const (
	StatusGood    = "good"
	StatusLost    = "lost"
	StatusDamaged = "damaged"
)
