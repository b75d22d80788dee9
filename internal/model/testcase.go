package model

// Classification tags what kind of test a TestCase represents.
type Classification string

const (
	ClassBaseline Classification = "baseline"
	ClassSwap     Classification = "swap"
	ClassMutation Classification = "mutation"
)

// MutationKind names the fixed payload a Mutation test case injects
// (spec §4.3).
type MutationKind string

const (
	MutationSQLiOr      MutationKind = "sqli_or"
	MutationSQLiDrop    MutationKind = "sqli_drop"
	MutationXSS         MutationKind = "xss"
	MutationBoundaryZero MutationKind = "boundary_zero"
	MutationBoundaryNeg  MutationKind = "boundary_negative"
	MutationBoundaryEmpty MutationKind = "boundary_empty"
	MutationBoundaryNull  MutationKind = "boundary_null"
	MutationBoundaryHuge  MutationKind = "boundary_huge"
	MutationBoundaryAdmin MutationKind = "boundary_admin"
	MutationAdjacentPlus  MutationKind = "adjacent_plus_one"
	MutationAdjacentMinus MutationKind = "adjacent_minus_one"
)

// TestCase is one concrete HTTP request the Execution Engine will
// send (spec §3).
type TestCase struct {
	Index          int
	EndpointID     string
	URL            string
	Method         Method
	Headers        map[string]string
	Body           []byte
	Classification Classification
	MutationKind   MutationKind // only set when Classification == ClassMutation

	// Parameter is the single parameter under test (zero value for
	// Baseline cases) and InjectedValue is what was substituted into
	// it.
	Parameter     Parameter
	InjectedValue string

	// Skipped is set when the planner could not build a valid request
	// for this parameter (e.g. a non-numeric victim id for an integer
	// path parameter) — the case is never dispatched and routes
	// straight to an UNCERTAIN finding.
	Skipped       bool
	SkippedReason string
}
