package portfolio

import "errors"

// Domain errors surfaced by the save/publish paths. Handlers translate them
// to HTTP statuses; anything else is a transaction failure (500).
var (
	// ErrDashboardNotFound: the referenced dashboard id does not belong to
	// the caller.
	ErrDashboardNotFound = errors.New("dashboard not found")

	// ErrSlugTaken: another dashboard of the same user already holds the
	// normalized slug. Raised by the (user_id, slug) unique index.
	ErrSlugTaken = errors.New("dashboard slug already exists")

	// ErrPlanLimit: the user's tier is at its dashboard cap.
	ErrPlanLimit = errors.New("plan limit reached, upgrade to add another portfolio")

	// ErrSoleDashboard: deleting the only remaining dashboard would leave
	// the account without a primary.
	ErrSoleDashboard = errors.New("the last dashboard cannot be deleted")
)

// NotReadyError refuses a publish because the readiness checklist is unmet.
// The save itself has already been committed when this is returned.
type NotReadyError struct {
	Readiness Readiness
}

func (e *NotReadyError) Error() string {
	return "portfolio is not ready to publish"
}
