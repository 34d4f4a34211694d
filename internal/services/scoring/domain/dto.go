package domain

// RebuildInput selects the actor to rebuild from the ledger
type RebuildInput struct {
	Login string `json:"login" validate:"required,login" example:"octocat"`
}

// ResetInput selects the actor to reset, empty with All resets everyone
type ResetInput struct {
	Login string `json:"login,omitempty" validate:"required_without=All,omitempty,login" example:"octocat"`
	All   bool   `json:"all,omitempty" example:"false"`
}

// ChallengeInput records one challenge completion
type ChallengeInput struct {
	Login       string `json:"login" validate:"required,login" example:"octocat"`
	ChallengeID string `json:"challengeId" validate:"required,min=1,max=100" example:"weekly-2025-32"`
	Reward      int    `json:"reward" validate:"min=0,max=100000" example:"100"`
}

// ResetResult acknowledges a reset
type ResetResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
