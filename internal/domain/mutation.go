package domain

// MutationType classifies a client-issued write operation for idempotency
// scoping. The set is closed: the postgres CHECK constraint on the ledger
// table must list exactly these values, and a regression test enforces that.
type MutationType string

const (
	MutationRoutes      MutationType = "routes"
	MutationNotes       MutationType = "notes"
	MutationProgress    MutationType = "progress"
	MutationPreferences MutationType = "preferences"
	MutationBundles     MutationType = "bundles"
)

// MutationTypes returns the closed set of mutation types in a stable order.
func MutationTypes() []MutationType {
	return []MutationType{
		MutationRoutes,
		MutationNotes,
		MutationProgress,
		MutationPreferences,
		MutationBundles,
	}
}

func (t MutationType) Valid() bool {
	switch t {
	case MutationRoutes, MutationNotes, MutationProgress, MutationPreferences, MutationBundles:
		return true
	default:
		return false
	}
}
