package models

import "time"

// Column widths; keep in sync with the size tags below.
const (
	MaxLinkLength     = 2048
	MaxFileNameLength = 255
)

// Submission represents the submissions table. One row per team.
type Submission struct {
	ID             string  `gorm:"primaryKey;column:id;type:varchar(36)" json:"id"`
	TeamName       string  `gorm:"column:team_name;size:100;not null;index:idx_submissions_team_name" json:"teamName"`
	TeamKey        string  `gorm:"column:team_key;type:char(64);not null;uniqueIndex:uq_submissions_team_key" json:"-"`
	GithubLink     string  `gorm:"column:github_link;size:2048;not null" json:"githubLink"`
	DeploymentLink string  `gorm:"column:deployment_link;size:2048;not null" json:"deploymentLink"`
	DriveLink      *string `gorm:"column:drive_link;size:2048" json:"driveLink,omitempty"`
	ZipFileName    *string `gorm:"column:zip_file_name;size:255" json:"zipFileName,omitempty"`
	ZipFilePath    *string `gorm:"column:zip_file_path;size:1024" json:"-"`
	ZipFileSize    *int64  `gorm:"column:zip_file_size" json:"zipFileSize,omitempty"`
	ZipFileHash    *string `gorm:"column:zip_file_hash;size:64" json:"zipFileHash,omitempty"`
	Solution       string  `gorm:"column:solution;type:text;not null" json:"solution"`

	SubmittedAt time.Time `gorm:"column:submitted_at;not null;index:idx_submissions_submitted_at" json:"submittedAt"`
}

func (Submission) TableName() string {
	return "submissions"
}

// HasUpload reports whether the artifact is a stored zip rather than a link.
func (s *Submission) HasUpload() bool {
	return s.ZipFilePath != nil && *s.ZipFilePath != ""
}

// ArtifactLabel returns a human readable reference to the submitted artifact.
func (s *Submission) ArtifactLabel() string {
	switch {
	case s.DriveLink != nil && *s.DriveLink != "":
		return *s.DriveLink
	case s.ZipFileName != nil:
		return *s.ZipFileName
	}
	return ""
}
