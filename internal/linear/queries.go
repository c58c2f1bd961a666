package linear

import (
	"context"
	"fmt"

	"github.com/machinebox/graphql"
	"go.uber.org/zap"

	"github.com/robby/linearpulse/internal/domain"
)

// GraphQL selections shared by several queries.
const (
	teamFields = `
		id
		name
		key
		description
		color
	`

	projectFields = `
		id
		name
		description
		url
		state
		progress
		startDate
		targetDate
		createdAt
		updatedAt
		completedAt
		canceledAt
		teams {
			nodes {
				id
				name
				key
			}
		}
		lead {
			id
			name
			email
		}
		members {
			nodes {
				id
				name
				email
			}
		}
	`

	issueFields = `
		id
		identifier
		title
		description
		state {
			name
			type
		}
		priority
		estimate
		createdAt
		updatedAt
		completedAt
		canceledAt
		assignee {
			id
			name
		}
		creator {
			id
			name
		}
		team {
			id
			name
			key
		}
		project {
			id
			name
		}
		labels {
			nodes {
				id
				name
				color
			}
		}
	`
)

type personNode struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type teamNode struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Key         string  `json:"key"`
	Description *string `json:"description"`
	Color       *string `json:"color"`
}

func (n teamNode) toDomain() domain.Team {
	return domain.Team{
		ID:          n.ID,
		Name:        n.Name,
		Key:         n.Key,
		Description: deref(n.Description),
		Color:       deref(n.Color),
	}
}

type projectNode struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	URL         string    `json:"url"`
	State       string    `json:"state"`
	Progress    *float64  `json:"progress"`
	StartDate   timestamp `json:"startDate"`
	TargetDate  timestamp `json:"targetDate"`
	CreatedAt   timestamp `json:"createdAt"`
	UpdatedAt   timestamp `json:"updatedAt"`
	CompletedAt timestamp `json:"completedAt"`
	CanceledAt  timestamp `json:"canceledAt"`
	Teams       *struct {
		Nodes []teamNode `json:"nodes"`
	} `json:"teams"`
	Lead    *personNode `json:"lead"`
	Members *struct {
		Nodes []personNode `json:"nodes"`
	} `json:"members"`
	Issues *struct {
		Nodes []issueNode `json:"nodes"`
	} `json:"issues"`
}

func (n projectNode) toDomain() domain.Project {
	p := domain.Project{
		ID:          n.ID,
		Name:        n.Name,
		Description: deref(n.Description),
		URL:         n.URL,
		State:       domain.ProjectState(n.State),
		StartDate:   n.StartDate.t,
		TargetDate:  n.TargetDate.t,
		CreatedAt:   n.CreatedAt.t,
		UpdatedAt:   n.UpdatedAt.t,
		CompletedAt: n.CompletedAt.t,
		CanceledAt:  n.CanceledAt.t,
	}
	if n.Progress != nil {
		p.Progress = *n.Progress
	}

	if n.Teams != nil {
		p.Teams = make([]domain.TeamRef, 0, len(n.Teams.Nodes))
		for _, t := range n.Teams.Nodes {
			p.Teams = append(p.Teams, domain.TeamRef{ID: t.ID, Name: t.Name, Key: t.Key})
		}
	}

	if n.Lead != nil {
		p.Lead = &domain.Person{ID: n.Lead.ID, Name: n.Lead.Name, Email: n.Lead.Email}
	}

	if n.Members != nil {
		p.Members = make([]domain.Person, 0, len(n.Members.Nodes))
		for _, m := range n.Members.Nodes {
			p.Members = append(p.Members, domain.Person{ID: m.ID, Name: m.Name, Email: m.Email})
		}
	}

	if n.Issues != nil {
		p.Issues = make([]domain.Issue, 0, len(n.Issues.Nodes))
		for _, i := range n.Issues.Nodes {
			p.Issues = append(p.Issues, i.toDomain())
		}
	}

	return p
}

type issueNode struct {
	ID          string  `json:"id"`
	Identifier  string  `json:"identifier"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	State       *struct {
		Name string `json:"name"`
		Type string `json:"type"`
	} `json:"state"`
	Priority    *int        `json:"priority"`
	Estimate    *float64    `json:"estimate"`
	CreatedAt   timestamp   `json:"createdAt"`
	UpdatedAt   timestamp   `json:"updatedAt"`
	CompletedAt timestamp   `json:"completedAt"`
	CanceledAt  timestamp   `json:"canceledAt"`
	Assignee    *personNode `json:"assignee"`
	Creator     *personNode `json:"creator"`
	Team        *teamNode   `json:"team"`
	Project     *struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"project"`
	Labels *struct {
		Nodes []struct {
			ID    string `json:"id"`
			Name  string `json:"name"`
			Color string `json:"color"`
		} `json:"nodes"`
	} `json:"labels"`
}

func (n issueNode) toDomain() domain.Issue {
	i := domain.Issue{
		ID:          n.ID,
		Identifier:  n.Identifier,
		Title:       n.Title,
		Description: deref(n.Description),
		CreatedAt:   n.CreatedAt.t,
		UpdatedAt:   n.UpdatedAt.t,
		CompletedAt: n.CompletedAt.t,
		CanceledAt:  n.CanceledAt.t,
	}

	// Null estimates and priorities are treated as zero
	if n.Priority != nil {
		i.Priority = *n.Priority
	}
	if n.Estimate != nil {
		i.Estimate = *n.Estimate
	}

	if n.State != nil {
		i.StateName = n.State.Name
		i.StateType = domain.StateType(n.State.Type)
	}
	if n.Assignee != nil {
		i.Assignee = n.Assignee.Name
	}
	if n.Creator != nil {
		i.Creator = n.Creator.Name
	}
	if n.Team != nil {
		i.Team = &domain.TeamRef{ID: n.Team.ID, Name: n.Team.Name, Key: n.Team.Key}
	}
	if n.Project != nil {
		i.Project = &domain.ProjectRef{ID: n.Project.ID, Name: n.Project.Name}
	}
	if n.Labels != nil {
		i.Labels = make([]domain.Label, 0, len(n.Labels.Nodes))
		for _, l := range n.Labels.Nodes {
			i.Labels = append(i.Labels, domain.Label{ID: l.ID, Name: l.Name, Color: l.Color})
		}
	}

	return i
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Viewer returns the authenticated user. It is the cheapest query and doubles
// as a connection test.
func (c *Client) Viewer(ctx context.Context) (domain.Viewer, error) {
	req := graphql.NewRequest(`
		query {
			viewer {
				id
				name
				email
			}
		}
	`)

	var resp struct {
		Viewer personNode `json:"viewer"`
	}

	if err := c.makeRequest(ctx, "viewer", req, &resp); err != nil {
		return domain.Viewer{}, fmt.Errorf("failed to get viewer: %w", err)
	}

	return domain.Viewer{ID: resp.Viewer.ID, Name: resp.Viewer.Name, Email: resp.Viewer.Email}, nil
}

// Teams lists all teams in the workspace.
func (c *Client) Teams(ctx context.Context) ([]domain.Team, error) {
	req := graphql.NewRequest(`
		query Teams {
			teams {
				nodes {` + teamFields + `}
			}
		}
	`)

	var resp struct {
		Teams struct {
			Nodes []teamNode `json:"nodes"`
		} `json:"teams"`
	}

	if err := c.makeRequest(ctx, "teams", req, &resp); err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}

	teams := make([]domain.Team, 0, len(resp.Teams.Nodes))
	for _, node := range resp.Teams.Nodes {
		teams = append(teams, node.toDomain())
	}
	return teams, nil
}

// Projects lists all projects with dates, teams, lead and members.
func (c *Client) Projects(ctx context.Context) ([]domain.Project, error) {
	req := graphql.NewRequest(`
		query Projects {
			projects {
				nodes {` + projectFields + `}
			}
		}
	`)

	var resp struct {
		Projects struct {
			Nodes []projectNode `json:"nodes"`
		} `json:"projects"`
	}

	if err := c.makeRequest(ctx, "projects", req, &resp); err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	projects := make([]domain.Project, 0, len(resp.Projects.Nodes))
	for _, node := range resp.Projects.Nodes {
		projects = append(projects, node.toDomain())
	}
	return projects, nil
}

// Project fetches one project including its issues.
// Returns ErrNotFound if the project does not exist.
func (c *Client) Project(ctx context.Context, id string) (domain.Project, error) {
	req := graphql.NewRequest(`
		query ProjectDetails($id: String!) {
			project(id: $id) {` + projectFields + `
				issues {
					nodes {` + issueFields + `}
				}
			}
		}
	`)
	req.Var("id", id)

	var resp struct {
		Project *projectNode `json:"project"`
	}

	if err := c.makeRequest(ctx, "project", req, &resp); err != nil {
		return domain.Project{}, fmt.Errorf("failed to get project %s: %w", id, err)
	}

	if resp.Project == nil {
		return domain.Project{}, fmt.Errorf("project %s: %w", id, ErrNotFound)
	}

	return resp.Project.toDomain(), nil
}

// Issues fetches the most recent issues, capped at the client's issue limit.
func (c *Client) Issues(ctx context.Context) ([]domain.Issue, error) {
	req := graphql.NewRequest(`
		query Issues($first: Int!) {
			issues(first: $first) {
				nodes {` + issueFields + `}
			}
		}
	`)
	req.Var("first", c.issueLimit)

	var resp struct {
		Issues *struct {
			Nodes []issueNode `json:"nodes"`
		} `json:"issues"`
	}

	if err := c.makeRequest(ctx, "issues", req, &resp); err != nil {
		return nil, fmt.Errorf("failed to list issues: %w", err)
	}

	if resp.Issues == nil {
		return []domain.Issue{}, nil
	}

	issues := make([]domain.Issue, 0, len(resp.Issues.Nodes))
	for _, node := range resp.Issues.Nodes {
		issues = append(issues, node.toDomain())
	}
	return issues, nil
}

// FetchAll fetches teams, projects and issues one after another.
// Any failure aborts the whole fetch.
func (c *Client) FetchAll(ctx context.Context) (domain.Dataset, error) {
	teams, err := c.Teams(ctx)
	if err != nil {
		return domain.Dataset{}, err
	}

	projects, err := c.Projects(ctx)
	if err != nil {
		return domain.Dataset{}, err
	}

	issues, err := c.Issues(ctx)
	if err != nil {
		return domain.Dataset{}, err
	}

	c.logger.Info("Fetched Linear data",
		zap.Int("teams", len(teams)),
		zap.Int("projects", len(projects)),
		zap.Int("issues", len(issues)),
	)

	return domain.Dataset{Teams: teams, Projects: projects, Issues: issues}, nil
}
