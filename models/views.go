package models

import "time"

// ProjectSummary is the read model for the project_summaries reporting view.
// The view joins projects with their pathogen and counts active studies; it
// hides projects that are soft-deleted or whose pathogen is soft-deleted.
type ProjectSummary struct {
	ID             string    `json:"id"`
	Slug           string    `json:"slug"`
	Name           string    `json:"name"`
	OrganisationID string    `json:"organisationId"`
	UserID         string    `json:"userId"`
	Privacy        Privacy   `json:"privacy"`
	PathogenID     *string   `json:"pathogenId"`
	PathogenName   *string   `json:"pathogenName"`
	StudyCount     int64     `json:"studyCount"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// TableName points the read model at the view
func (ProjectSummary) TableName() string {
	return "project_summaries"
}

// StudyDetail is the read model for the study_details reporting view: one
// row per active study, flattened with its project and pathogen. Rows
// disappear when any joined entity is soft-deleted.
type StudyDetail struct {
	ID             string     `json:"id"`
	StudyID        string     `json:"studyId"`
	Name           string     `json:"name"`
	Description    *string    `json:"description"`
	StartDate      *time.Time `json:"startDate"`
	EndDate        *time.Time `json:"endDate"`
	ProjectID      string     `json:"projectId"`
	ProjectSlug    string     `json:"projectSlug"`
	ProjectName    string     `json:"projectName"`
	OrganisationID string     `json:"organisationId"`
	PathogenID     *string    `json:"pathogenId"`
	PathogenName   *string    `json:"pathogenName"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// TableName points the read model at the view
func (StudyDetail) TableName() string {
	return "study_details"
}
