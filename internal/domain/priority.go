package domain

// Linear priority values.
const (
	PriorityNone   = 0
	PriorityUrgent = 1
	PriorityHigh   = 2
	PriorityMedium = 3
	PriorityLow    = 4
)

// CriticalPriority is the value the critical-issue classifier matches.
// Linear labels 4 as Low, yet the critical classifier has always matched 4;
// the two are kept apart until product decides which one is intended.
const CriticalPriority = 4

// priorityLabels is the canonical label table, indexed by raw priority.
var priorityLabels = [...]string{
	PriorityNone:   "No Priority",
	PriorityUrgent: "Urgent",
	PriorityHigh:   "High",
	PriorityMedium: "Medium",
	PriorityLow:    "Low",
}

// PriorityLabel returns the canonical label for a raw priority value.
func PriorityLabel(p int) string {
	if p < 0 || p >= len(priorityLabels) {
		return "Unknown"
	}
	return priorityLabels[p]
}
