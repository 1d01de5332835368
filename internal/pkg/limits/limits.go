package limits

import "fmt"

// Plan names the tier a company is on, mirroring Profile.subscription_status.
type Plan string

const (
	PlanFree    Plan = "free"
	PlanPremium Plan = "premium"
)

// Resources subject to per-plan ceilings.
const (
	ResourceEmployees   = "employees"
	ResourceDocuments   = "documents"
	ResourceDepartments = "departments"
)

// planLimits holds the per-tier ceilings. Zero means unlimited.
var planLimits = map[Plan]map[string]int{
	PlanFree: {
		ResourceEmployees:   5,
		ResourceDocuments:   20,
		ResourceDepartments: 2,
	},
	PlanPremium: {
		ResourceEmployees:   0,
		ResourceDocuments:   0,
		ResourceDepartments: 0,
	},
}

// LimitExceededError is raised when a company hits a plan ceiling. The UI
// layer catches it distinctly from generic errors to render an upgrade
// prompt.
type LimitExceededError struct {
	Resource    string
	Current     int
	Limit       int
	Plan        Plan
	UpgradePlan Plan
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("%s limit reached: %d of %d on the %s plan", e.Resource, e.Current, e.Limit, e.Plan)
}

// Check validates that adding one more of resource stays within the plan's
// ceiling. Returns *LimitExceededError when it would not.
func Check(plan Plan, resource string, current int) error {
	limitsForPlan, ok := planLimits[plan]
	if !ok {
		limitsForPlan = planLimits[PlanFree]
	}
	limit := limitsForPlan[resource]
	if limit == 0 {
		return nil
	}
	if current >= limit {
		return &LimitExceededError{
			Resource:    resource,
			Current:     current,
			Limit:       limit,
			Plan:        plan,
			UpgradePlan: PlanPremium,
		}
	}
	return nil
}

// CheckEmployees is Check for the employee ceiling.
func CheckEmployees(plan Plan, current int) error {
	return Check(plan, ResourceEmployees, current)
}

// CheckDocuments is Check for the document ceiling.
func CheckDocuments(plan Plan, current int) error {
	return Check(plan, ResourceDocuments, current)
}

// CheckDepartments is Check for the department ceiling.
func CheckDepartments(plan Plan, current int) error {
	return Check(plan, ResourceDepartments, current)
}
