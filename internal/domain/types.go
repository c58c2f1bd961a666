// Package domain defines the normalized domain types for Linear teams, projects and issues.
// These types represent the core concepts independent of the Linear GraphQL API structure.
package domain

import "time"

// ProjectState is the lifecycle state of a project.
type ProjectState string

const (
	ProjectPlanned   ProjectState = "planned"
	ProjectStarted   ProjectState = "started"
	ProjectPaused    ProjectState = "paused"
	ProjectCompleted ProjectState = "completed"
	ProjectCanceled  ProjectState = "canceled"
)

// Terminal reports whether the project is completed or canceled.
func (s ProjectState) Terminal() bool {
	return s == ProjectCompleted || s == ProjectCanceled
}

// StateType is the workflow category of an issue state.
// Linear also reports "backlog" and "triage"; those are kept verbatim.
type StateType string

const (
	StateUnstarted StateType = "unstarted"
	StateStarted   StateType = "started"
	StateCompleted StateType = "completed"
	StateCanceled  StateType = "canceled"
)

// Team represents a Linear team.
type Team struct {
	ID          string `json:"id"`   // Linear team ID
	Name        string `json:"name"` // Display name, used as the team filter key
	Key         string `json:"key"`  // Short key (e.g., "ENG")
	Description string `json:"description"`
	Color       string `json:"color"`
}

// TeamRef is a lightweight reference to a team embedded in projects and issues.
type TeamRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Key  string `json:"key"`
}

// ProjectRef is a lightweight reference to a project embedded in issues.
type ProjectRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Person is a user reference (lead, member, assignee, creator).
type Person struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Project represents a Linear project.
// Projects may belong to several teams.
type Project struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	URL         string       `json:"url"`
	State       ProjectState `json:"state"`
	Progress    float64      `json:"progress"` // Fraction 0..1 as reported by Linear
	StartDate   *time.Time   `json:"startDate,omitempty"`
	TargetDate  *time.Time   `json:"targetDate,omitempty"`
	CreatedAt   *time.Time   `json:"createdAt,omitempty"`
	UpdatedAt   *time.Time   `json:"updatedAt,omitempty"`
	CompletedAt *time.Time   `json:"completedAt,omitempty"`
	CanceledAt  *time.Time   `json:"canceledAt,omitempty"`
	Teams       []TeamRef    `json:"teams,omitempty"`
	Lead        *Person      `json:"lead,omitempty"`
	Members     []Person     `json:"members,omitempty"`
	Issues      []Issue      `json:"issues,omitempty"` // Populated only by project detail queries
}

// TeamNames returns the names of all teams the project belongs to, in API order.
func (p Project) TeamNames() []string {
	names := make([]string, 0, len(p.Teams))
	for _, t := range p.Teams {
		names = append(names, t.Name)
	}
	return names
}

// Label is an issue label.
type Label struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Issue represents a Linear issue.
// Unlike projects, an issue belongs to exactly one team.
type Issue struct {
	ID          string      `json:"id"`
	Identifier  string      `json:"identifier"` // Human key, e.g. "ENG-42"
	Title       string      `json:"title"`
	Description string      `json:"description"`
	StateName   string      `json:"stateName"`
	StateType   StateType   `json:"stateType"`
	Priority    int         `json:"priority"` // Raw Linear priority 0..4
	Estimate    float64     `json:"estimate"` // Story points, 0 when unset
	Assignee    string      `json:"assignee"`
	Creator     string      `json:"creator"`
	Team        *TeamRef    `json:"team,omitempty"`
	Project     *ProjectRef `json:"project,omitempty"`
	Labels      []Label     `json:"labels,omitempty"`
	CreatedAt   *time.Time  `json:"createdAt,omitempty"`
	UpdatedAt   *time.Time  `json:"updatedAt,omitempty"`
	CompletedAt *time.Time  `json:"completedAt,omitempty"`
	CanceledAt  *time.Time  `json:"canceledAt,omitempty"`
}

// Viewer is the authenticated Linear user.
type Viewer struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Dataset is one full fetch of the workspace.
type Dataset struct {
	Teams    []Team    `json:"teams,omitempty"`
	Projects []Project `json:"projects,omitempty"`
	Issues   []Issue   `json:"issues,omitempty"`
}
