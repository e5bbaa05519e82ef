package models

import "io"

// RawSubmissionInput is the typed form of a submit request body, JSON or
// multipart, before validation. Strings are untrimmed client values.
type RawSubmissionInput struct {
	TeamName       string `json:"teamName" form:"teamName"`
	GithubLink     string `json:"githubLink" form:"githubLink"`
	DeploymentLink string `json:"deploymentLink" form:"deploymentLink"`
	DriveLink      string `json:"driveLink" form:"driveLink"`
	Solution       string `json:"solution" form:"solution"`

	// Upload is set when the request carried a zipFile part. It takes
	// precedence over DriveLink.
	Upload *ArtifactUpload `json:"-" form:"-"`
}

// ArtifactUpload describes a received file without holding its bytes.
type ArtifactUpload struct {
	FileName    string
	Size        int64
	ContentType string
	Open        func() (io.ReadCloser, error)
}
