package models

import (
	"fmt"
	"time"
)

// FieldError is a single client-fixable validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) String() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// SubmissionReceipt is the minimal confirmation returned after admission.
type SubmissionReceipt struct {
	ID          string    `json:"id"`
	TeamName    string    `json:"teamName"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// BytesToMB converts a byte count to mebibytes for messages and logs.
func BytesToMB(size int64) float64 {
	return float64(size) / (1024 * 1024)
}
