package dto

// Entity kinds accepted by cleanup filters.
const (
	EntityPathogens = "pathogens"
	EntityProjects  = "projects"
	EntityStudies   = "studies"
)

// CleanupFilter narrows cleanup operations to one entity kind, one
// organisation, or one user. Zero values mean "all".
type CleanupFilter struct {
	Entity         string
	OrganisationID string
	UserID         string
}

// EntityCounts represents row counts for a single entity table
type EntityCounts struct {
	Active  int64 `json:"active"`
	Deleted int64 `json:"deleted"`
	Total   int64 `json:"total"`
}

// DatabaseCounts represents row counts across all entity tables
type DatabaseCounts struct {
	Pathogens EntityCounts `json:"pathogens"`
	Projects  EntityCounts `json:"projects"`
	Studies   EntityCounts `json:"studies"`
}

// PurgeResult reports how many soft-deleted rows a purge removed.
// ProjectSlugs lists the purged projects so their authorization graphs
// can be torn down afterwards.
type PurgeResult struct {
	Pathogens    int64    `json:"pathogens"`
	Projects     int64    `json:"projects"`
	Studies      int64    `json:"studies"`
	ProjectSlugs []string `json:"projectSlugs,omitempty"`
}

// Total returns the number of rows removed across all tables
func (r PurgeResult) Total() int64 {
	return r.Pathogens + r.Projects + r.Studies
}

// WipeResult reports how many rows a full wipe removed per table
type WipeResult struct {
	Pathogens int64 `json:"pathogens"`
	Projects  int64 `json:"projects"`
	Studies   int64 `json:"studies"`
}

// Total returns the number of rows removed across all tables
func (r WipeResult) Total() int64 {
	return r.Pathogens + r.Projects + r.Studies
}
