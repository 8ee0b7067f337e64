package schema

// CheckResult holds the outcome of a CI policy check over a set of migration files.
type CheckResult struct {
	Passed     bool             `json:"passed"`
	BaseRef    string           `json:"base_ref"`
	TargetRef  string           `json:"target_ref"`
	Files      []string         `json:"files"`
	Result     Result           `json:"result"`
	Violations []CheckViolation `json:"violations"`
}

// CheckViolation is a single model that broke a configured policy.
type CheckViolation struct {
	Model  string `json:"model"`
	Policy string `json:"policy"`
	Detail string `json:"detail"`
}

// Check policy names.
const (
	PolicyFailOnDeleted = "fail-on-deleted"
	PolicyFailOnRemoved = "fail-on-removed"
)
