package controllers

import (
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"submission-portal-api/models"
	"submission-portal-api/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZipPartMissingFileFallsBackToLink(t *testing.T) {
	upload, fieldErr := zipPart(nil, http.ErrMissingFile)
	assert.Nil(t, upload)
	assert.Nil(t, fieldErr)
}

func TestZipPartUnreadableIsZipFileError(t *testing.T) {
	upload, fieldErr := zipPart(nil, multipart.ErrMessageTooLarge)
	assert.Nil(t, upload)
	require.NotNil(t, fieldErr)
	assert.Equal(t, services.FieldZipFile, fieldErr.Field)
	assert.Equal(t, "Project zip file could not be read", fieldErr.Message)
}

func TestZipPartBuildsUpload(t *testing.T) {
	fh := &multipart.FileHeader{Filename: "project.zip", Size: 42}
	upload, fieldErr := zipPart(fh, nil)
	require.Nil(t, fieldErr)
	require.NotNil(t, upload)
	assert.Equal(t, "project.zip", upload.FileName)
	assert.Equal(t, int64(42), upload.Size)
}

func TestRespondFieldError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	respondFieldError(c, models.FieldError{Field: services.FieldZipFile, Message: "Project zip file could not be read"})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body struct {
		Success bool                `json:"success"`
		Message string              `json:"message"`
		Errors  []models.FieldError `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "Validation failed", body.Message)
	require.Len(t, body.Errors, 1)
	assert.Equal(t, services.FieldZipFile, body.Errors[0].Field)
}
