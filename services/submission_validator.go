package services

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"submission-portal-api/models"
	"submission-portal-api/utils"
)

const (
	MaxTeamNameLength     = 100
	MinSolutionLength     = 10
	MaxSolutionLength     = 2000
	DefaultMaxUploadBytes = int64(50 * 1024 * 1024)
)

// Field names as they appear in request bodies and error responses.
const (
	FieldTeamName       = "teamName"
	FieldGithubLink     = "githubLink"
	FieldDeploymentLink = "deploymentLink"
	FieldDriveLink      = "driveLink"
	FieldZipFile        = "zipFile"
	FieldSolution       = "solution"
)

// NormalizedSubmission is a validated submission with every string trimmed.
// Exactly one of DriveLink and Upload is set.
type NormalizedSubmission struct {
	TeamName       string
	GithubLink     string
	DeploymentLink string
	DriveLink      string
	Solution       string
	Upload         *models.ArtifactUpload
}

// Input converts the normalized record back to a raw input, e.g. to re-validate it.
func (n *NormalizedSubmission) Input() models.RawSubmissionInput {
	return models.RawSubmissionInput{
		TeamName:       n.TeamName,
		GithubLink:     n.GithubLink,
		DeploymentLink: n.DeploymentLink,
		DriveLink:      n.DriveLink,
		Solution:       n.Solution,
		Upload:         n.Upload,
	}
}

// SubmissionValidator applies the submission field rules.
type SubmissionValidator struct {
	maxUploadBytes int64
}

func NewSubmissionValidator(maxUploadBytes int64) *SubmissionValidator {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &SubmissionValidator{maxUploadBytes: maxUploadBytes}
}

// ValidateSubmission validates with the default 50MB upload limit.
func ValidateSubmission(in models.RawSubmissionInput) (*NormalizedSubmission, []models.FieldError) {
	return NewSubmissionValidator(DefaultMaxUploadBytes).Validate(in)
}

// Validate evaluates every rule and accumulates errors. A nil record is
// returned whenever the error list is non-empty.
func (v *SubmissionValidator) Validate(in models.RawSubmissionInput) (*NormalizedSubmission, []models.FieldError) {
	var errs []models.FieldError
	add := func(field, message string) {
		errs = append(errs, models.FieldError{Field: field, Message: message})
	}

	n := &NormalizedSubmission{
		TeamName:       utils.SanitizeInput(in.TeamName),
		GithubLink:     utils.SanitizeInput(in.GithubLink),
		DeploymentLink: utils.SanitizeInput(in.DeploymentLink),
		DriveLink:      utils.SanitizeInput(in.DriveLink),
		Solution:       utils.SanitizeInput(in.Solution),
	}

	if n.TeamName == "" {
		add(FieldTeamName, "Team name is required")
	} else if utf8.RuneCountInString(n.TeamName) > MaxTeamNameLength {
		add(FieldTeamName, fmt.Sprintf("Team name must be less than %d characters", MaxTeamNameLength))
	}

	switch {
	case n.GithubLink == "":
		add(FieldGithubLink, "GitHub link is required")
	case linkTooLong(n.GithubLink):
		add(FieldGithubLink, "URL is too long")
	case !utils.IsHTTPURL(n.GithubLink):
		add(FieldGithubLink, "Please enter a valid URL")
	case !strings.Contains(n.GithubLink, "github.com"):
		add(FieldGithubLink, "Please enter a valid GitHub repository URL")
	}

	switch {
	case n.DeploymentLink == "":
		add(FieldDeploymentLink, "Deployment link is required")
	case linkTooLong(n.DeploymentLink):
		add(FieldDeploymentLink, "URL is too long")
	case !utils.IsHTTPURL(n.DeploymentLink):
		add(FieldDeploymentLink, "Please enter a valid deployment URL")
	}

	if in.Upload != nil {
		// An uploaded archive wins over any link sent alongside it.
		n.DriveLink = ""
		n.Upload = in.Upload
		if field, msg, ok := v.checkUpload(in.Upload); !ok {
			add(field, msg)
		}
	} else {
		switch {
		case n.DriveLink == "":
			add(FieldDriveLink, "Google Drive link or project zip file is required")
		case linkTooLong(n.DriveLink):
			add(FieldDriveLink, "URL is too long")
		case !utils.IsHTTPURL(n.DriveLink):
			add(FieldDriveLink, "Please enter a valid URL")
		case !utils.ContainsAny(n.DriveLink, "drive.google.com", "docs.google.com"):
			add(FieldDriveLink, "Please enter a valid Google Drive share link")
		}
	}

	solutionLen := utf8.RuneCountInString(n.Solution)
	switch {
	case n.Solution == "":
		add(FieldSolution, "Solution/Description is required")
	case solutionLen < MinSolutionLength:
		add(FieldSolution, fmt.Sprintf("Solution must be at least %d characters long", MinSolutionLength))
	case solutionLen > MaxSolutionLength:
		add(FieldSolution, fmt.Sprintf("Solution must be less than %d characters", MaxSolutionLength))
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return n, nil
}

func (v *SubmissionValidator) checkUpload(up *models.ArtifactUpload) (string, string, bool) {
	name := strings.TrimSpace(up.FileName)
	switch {
	case name == "":
		return FieldZipFile, "Project files upload is required", false
	case utf8.RuneCountInString(up.FileName) > models.MaxFileNameLength:
		return FieldZipFile, fmt.Sprintf("File name must be less than %d characters", models.MaxFileNameLength), false
	case up.Size <= 0:
		return FieldZipFile, "Project zip file is empty", false
	case up.Size > v.maxUploadBytes:
		return FieldZipFile, fmt.Sprintf("File size exceeds %.0fMB limit", models.BytesToMB(v.maxUploadBytes)), false
	case !strings.HasSuffix(strings.ToLower(name), ".zip"):
		return FieldZipFile, "Only .zip files are allowed", false
	}
	return "", "", true
}

func linkTooLong(link string) bool {
	return utf8.RuneCountInString(link) > models.MaxLinkLength
}
