// controllers/submission.go - Project submission intake

package controllers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"submission-portal-api/models"
	"submission-portal-api/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// multipartOverhead leaves room for the text fields and part headers on top
// of the archive itself.
const multipartOverhead = 1 << 20

// Submitter is satisfied by *services.AdmissionService.
type Submitter interface {
	Submit(ctx context.Context, clientKey string, in models.RawSubmissionInput) (*models.SubmissionReceipt, error)
}

type SubmissionController struct {
	admission      Submitter
	maxUploadBytes int64
	logger         *zap.Logger
}

func NewSubmissionController(admission Submitter, maxUploadBytes int64, logger *zap.Logger) *SubmissionController {
	if maxUploadBytes <= 0 {
		maxUploadBytes = services.DefaultMaxUploadBytes
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubmissionController{admission: admission, maxUploadBytes: maxUploadBytes, logger: logger}
}

// Submit accepts a JSON body, or a multipart form with an optional zipFile part.
func (sc *SubmissionController) Submit(c *gin.Context) {
	in, ok := sc.bindInput(c)
	defer removeMultipartFiles(c)
	if !ok {
		return
	}

	receipt, err := sc.admission.Submit(c.Request.Context(), c.ClientIP(), in)
	if err != nil {
		sc.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Project submitted successfully!",
		"data":    receipt,
	})
}

func (sc *SubmissionController) bindInput(c *gin.Context) (models.RawSubmissionInput, bool) {
	var in models.RawSubmissionInput

	if !strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, multipartOverhead)
		if err := c.ShouldBindJSON(&in); err != nil {
			sc.logger.Debug("invalid submission body", zap.Error(err))
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "Invalid request body",
			})
			return in, false
		}
		return in, true
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, sc.maxUploadBytes+multipartOverhead)
	if err := c.ShouldBind(&in); err != nil {
		if isBodyTooLarge(err) {
			respondFieldError(c, models.FieldError{
				Field:   services.FieldZipFile,
				Message: fmt.Sprintf("File size exceeds %.0fMB limit", models.BytesToMB(sc.maxUploadBytes)),
			})
			return in, false
		}
		sc.logger.Debug("invalid multipart submission", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid request body",
		})
		return in, false
	}
	upload, fieldErr := zipPart(c.FormFile(services.FieldZipFile))
	if fieldErr != nil {
		sc.logger.Debug("unreadable zip part", zap.String("reason", fieldErr.Message))
		respondFieldError(c, *fieldErr)
		return in, false
	}
	in.Upload = upload
	return in, true
}

// zipPart maps the zipFile form lookup to an upload. A missing part is not an
// error; the drive link rules apply instead.
func zipPart(fh *multipart.FileHeader, err error) (*models.ArtifactUpload, *models.FieldError) {
	switch {
	case errors.Is(err, http.ErrMissingFile):
		return nil, nil
	case err != nil:
		return nil, &models.FieldError{Field: services.FieldZipFile, Message: "Project zip file could not be read"}
	}
	return uploadFromHeader(fh), nil
}

func respondFieldError(c *gin.Context, fe models.FieldError) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"message": "Validation failed",
		"errors":  []models.FieldError{fe},
	})
}

func isBodyTooLarge(err error) bool {
	var tooLarge *http.MaxBytesError
	return errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large")
}

// removeMultipartFiles drops parts that spilled to temp files.
func removeMultipartFiles(c *gin.Context) {
	if form := c.Request.MultipartForm; form != nil {
		_ = form.RemoveAll()
	}
}

func uploadFromHeader(fh *multipart.FileHeader) *models.ArtifactUpload {
	return &models.ArtifactUpload{
		FileName:    fh.Filename,
		Size:        fh.Size,
		ContentType: fh.Header.Get("Content-Type"),
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

func (sc *SubmissionController) respondError(c *gin.Context, err error) {
	var (
		validation *services.ValidationError
		limited    *services.RateLimitError
	)

	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Validation failed",
			"errors":  validation.Fields,
		})
	case errors.As(err, &limited):
		retry := limited.RetryAfterSeconds()
		c.Header("Retry-After", strconv.Itoa(retry))
		c.JSON(http.StatusTooManyRequests, gin.H{
			"success":    false,
			"message":    "Too many submissions. Please try again later.",
			"retryAfter": retry,
		})
	case errors.Is(err, services.ErrDuplicateTeam):
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Team has already submitted a project",
		})
	default:
		sc.logger.Error("submission failed", zap.Error(err), zap.String("client_ip", c.ClientIP()))
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Internal server error",
		})
	}
}
