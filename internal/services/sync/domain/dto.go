package domain

// StartInput requests a backfill over a date or RFC3339 range
type StartInput struct {
	Start string `json:"start" validate:"required" example:"2025-01-01"`
	End   string `json:"end,omitempty" example:"2025-08-31"`
}

// RecountInput requests a single item recount
type RecountInput struct {
	Number int `json:"number" validate:"required,min=1" example:"1234"`
}
