package model

// Fixed validation tables. These are initialized once and never mutated;
// validation code looks values up here instead of re-declaring literals.

var statuses = map[Status]struct{}{
	StatusPending:    {},
	StatusInProgress: {},
	StatusCompleted:  {},
	StatusCancelled:  {},
	StatusBlocked:    {},
}

var frequencies = map[Frequency]struct{}{
	FreqDaily:   {},
	FreqWeekly:  {},
	FreqMonthly: {},
}

// PriorityAliases maps legacy string priorities onto the 1-10 scale.
var PriorityAliases = map[string]int{
	"low":    1,
	"medium": 5,
	"high":   10,
}

var sortFields = map[string]struct{}{
	"created_at": {},
	"updated_at": {},
	"deadline":   {},
	"priority":   {},
	"title":      {},
	"status":     {},
}

// OrgWideDepartments lists the departments whose members see every task
// regardless of role, hierarchy or division.
var OrgWideDepartments = map[string]struct{}{
	"hr":              {},
	"human resources": {},
}

func ValidStatus(s Status) bool {
	_, ok := statuses[s]
	return ok
}

func ValidFrequency(f Frequency) bool {
	_, ok := frequencies[f]
	return ok
}

func ValidSortField(name string) bool {
	_, ok := sortFields[name]
	return ok
}
