// Package store holds one fetched Linear dataset in memory and answers the
// grouping questions presenters ask of it: which projects belong to a team,
// which are shared between teams, which issues belong to a project.
//
// A Store is built per request, report run or dashboard session and is not
// safe for concurrent mutation.
package store

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robby/linearpulse/internal/domain"
)

var (
	// ErrNoData indicates Load has not been called yet.
	ErrNoData = errors.New("no data loaded")
	// ErrProjectNotFound indicates the requested project does not exist.
	ErrProjectNotFound = errors.New("project not found")
	// ErrTeamNotFound indicates the requested team does not exist.
	ErrTeamNotFound = errors.New("team not found")
	// ErrInvalidMode indicates an unknown multi-team mode.
	ErrInvalidMode = errors.New("invalid multi-team mode")
)

// NoTeamKey is the column key for projects without any team.
const NoTeamKey = "_no_team_"

// TeamMode controls how a project shared by several teams is attributed in
// per-team reports.
type TeamMode string

const (
	// ModeAll lists a shared project under every team it belongs to.
	ModeAll TeamMode = "all"
	// ModePrimary lists a shared project only under its first team.
	ModePrimary TeamMode = "primary"
	// ModeExclude lists only single-team projects; shared ones appear in the
	// overall report alone.
	ModeExclude TeamMode = "exclude"
)

// ParseTeamMode parses a mode name. Empty means ModeAll.
func ParseTeamMode(s string) (TeamMode, error) {
	switch TeamMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeAll:
		return ModeAll, nil
	case ModePrimary:
		return ModePrimary, nil
	case ModeExclude:
		return ModeExclude, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

// Store is an in-memory view of one Linear fetch.
type Store struct {
	loaded    bool
	fetchedAt time.Time

	teams    []domain.Team
	teamByID map[string]int // team ID -> index in teams

	projects     map[string]*domain.Project // project ID -> project
	projectOrder []string                   // API order

	issues []domain.Issue

	// Column mapping: team ID -> []project ID, in API order.
	// NoTeamKey holds projects without a team.
	columns map[string][]string
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		teamByID: make(map[string]int),
		projects: make(map[string]*domain.Project),
		columns:  make(map[string][]string),
	}
}

// Load replaces the store contents with ds.
func (s *Store) Load(ds domain.Dataset, fetchedAt time.Time) {
	s.Clear()

	s.teams = append([]domain.Team(nil), ds.Teams...)
	for i, t := range s.teams {
		s.teamByID[t.ID] = i
	}

	for i := range ds.Projects {
		p := ds.Projects[i]
		s.projects[p.ID] = &p
		s.projectOrder = append(s.projectOrder, p.ID)
	}

	s.issues = append([]domain.Issue(nil), ds.Issues...)
	s.fetchedAt = fetchedAt
	s.loaded = true
	s.rebuildColumns()
}

// Loaded reports whether Load has been called since the last Clear.
func (s *Store) Loaded() bool {
	return s.loaded
}

// FetchedAt returns when the loaded data was fetched.
func (s *Store) FetchedAt() time.Time {
	return s.fetchedAt
}

// Stale reports whether the data is older than maxAge at now.
// An empty store is always stale.
func (s *Store) Stale(maxAge time.Duration, now time.Time) bool {
	return !s.loaded || now.Sub(s.fetchedAt) > maxAge
}

// Dataset returns the loaded data in API order.
func (s *Store) Dataset() (domain.Dataset, error) {
	if !s.loaded {
		return domain.Dataset{}, ErrNoData
	}
	return domain.Dataset{
		Teams:    s.Teams(),
		Projects: s.Projects(),
		Issues:   s.Issues(),
	}, nil
}

// Teams returns all teams in API order.
func (s *Store) Teams() []domain.Team {
	return append([]domain.Team(nil), s.teams...)
}

// Team returns the team with the given ID.
func (s *Store) Team(id string) (domain.Team, error) {
	i, ok := s.teamByID[id]
	if !ok {
		return domain.Team{}, fmt.Errorf("%w: %s", ErrTeamNotFound, id)
	}
	return s.teams[i], nil
}

// TeamByName returns the first team whose name equals name, ignoring case.
func (s *Store) TeamByName(name string) (domain.Team, error) {
	for _, t := range s.teams {
		if strings.EqualFold(t.Name, name) {
			return t, nil
		}
	}
	return domain.Team{}, fmt.Errorf("%w: %s", ErrTeamNotFound, name)
}

// Projects returns all projects in API order.
func (s *Store) Projects() []domain.Project {
	out := make([]domain.Project, 0, len(s.projectOrder))
	for _, id := range s.projectOrder {
		out = append(out, *s.projects[id])
	}
	return out
}

// Project returns the project with the given ID.
func (s *Store) Project(id string) (domain.Project, error) {
	p, ok := s.projects[id]
	if !ok {
		return domain.Project{}, fmt.Errorf("%w: %s", ErrProjectNotFound, id)
	}
	return *p, nil
}

// UpsertProject adds or replaces a project, typically one re-fetched with
// its issues. Column mappings are rebuilt.
func (s *Store) UpsertProject(p domain.Project) {
	if _, exists := s.projects[p.ID]; !exists {
		s.projectOrder = append(s.projectOrder, p.ID)
	}
	s.projects[p.ID] = &p
	s.rebuildColumns()
}

// Issues returns all issues in API order.
func (s *Store) Issues() []domain.Issue {
	return append([]domain.Issue(nil), s.issues...)
}

// ProjectIssues returns the issues linked to a project. Issues embedded by a
// project detail fetch take precedence over the workspace-wide issue list.
func (s *Store) ProjectIssues(projectID string) ([]domain.Issue, error) {
	p, ok := s.projects[projectID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProjectNotFound, projectID)
	}
	if len(p.Issues) > 0 {
		return append([]domain.Issue(nil), p.Issues...), nil
	}

	var out []domain.Issue
	for _, i := range s.issues {
		if i.Project != nil && i.Project.ID == projectID {
			out = append(out, i)
		}
	}
	return out, nil
}

// GetColumns returns a copy of the team ID -> project IDs mapping.
func (s *Store) GetColumns() map[string][]string {
	result := make(map[string][]string, len(s.columns))
	for teamID, ids := range s.columns {
		result[teamID] = append([]string(nil), ids...)
	}
	return result
}

// ColumnProjectIDs returns the project IDs grouped under a team ID or NoTeamKey.
func (s *Store) ColumnProjectIDs(teamID string) []string {
	return append([]string{}, s.columns[teamID]...)
}

// ProjectsForTeam returns the projects attributed to a team under mode,
// in API order.
func (s *Store) ProjectsForTeam(teamID string, mode TeamMode) ([]domain.Project, error) {
	switch mode {
	case ModeAll, ModePrimary, ModeExclude:
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
	if _, ok := s.teamByID[teamID]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrTeamNotFound, teamID)
	}

	var out []domain.Project
	for _, id := range s.columns[teamID] {
		p := s.projects[id]
		if mode == ModePrimary && p.Teams[0].ID != teamID {
			continue
		}
		if mode == ModeExclude && len(p.Teams) != 1 {
			continue
		}
		out = append(out, *p)
	}
	return out, nil
}

// Shared returns the projects among ps that belong to more than one team.
func Shared(ps []domain.Project) []domain.Project {
	var out []domain.Project
	for _, p := range ps {
		if len(p.Teams) > 1 {
			out = append(out, p)
		}
	}
	return out
}

// rebuildColumns reconstructs the team mapping from current projects.
func (s *Store) rebuildColumns() {
	s.columns = make(map[string][]string)

	for _, id := range s.projectOrder {
		p := s.projects[id]
		if len(p.Teams) == 0 {
			s.columns[NoTeamKey] = append(s.columns[NoTeamKey], id)
			continue
		}
		for _, t := range p.Teams {
			s.columns[t.ID] = append(s.columns[t.ID], id)
		}
	}
}

// Clear resets the store to its empty state.
func (s *Store) Clear() {
	s.loaded = false
	s.fetchedAt = time.Time{}
	s.teams = nil
	s.teamByID = make(map[string]int)
	s.projects = make(map[string]*domain.Project)
	s.projectOrder = nil
	s.issues = nil
	s.columns = make(map[string][]string)
}
