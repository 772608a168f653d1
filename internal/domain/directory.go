package domain

// Read models for the entities owned by the surrounding CRUD layer. The
// scheduling core looks them up but never writes them.

type Student struct {
	ID       int64  `json:"id"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone,omitempty"`
}

type Instructor struct {
	ID          int64  `json:"id"`
	FullName    string `json:"full_name"`
	LicenseType string `json:"license_type,omitempty"`
	// IsAvailable is the general "accepts bookings" flag, independent of
	// any particular time window.
	IsAvailable bool `json:"is_available"`
}

type Vehicle struct {
	ID           int64  `json:"id"`
	Registration string `json:"registration"`
	Model        string `json:"model,omitempty"`
}

type Course struct {
	ID    int64   `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}
