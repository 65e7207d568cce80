package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMeta_RoundsPagesUp(t *testing.T) {
	meta := NewMeta(1, 20, 41)

	assert.Equal(t, 1, meta.Page)
	assert.Equal(t, 20, meta.Limit)
	assert.Equal(t, 41, meta.Total)
	assert.Equal(t, 3, meta.TotalPages)
}

func TestNewMeta_ZeroLimit(t *testing.T) {
	assert.Equal(t, 0, NewMeta(1, 0, 41).TotalPages)
}

func TestSuccessWithMeta_Envelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	SuccessWithMeta(c, http.StatusOK, []string{"a", "b"}, NewMeta(2, 2, 5))

	var body Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Nil(t, body.Error)
	require.NotNil(t, body.Meta)
	assert.Equal(t, 3, body.Meta.TotalPages)
}

func TestErrorWithDetails_Envelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	ErrorWithDetails(c, http.StatusConflict, "ALREADY_APPLIED", "a promo code is already applied", map[string]string{"booking_id": "b-1"})

	assert.Equal(t, http.StatusConflict, rec.Code)

	var body Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	require.NotNil(t, body.Error)
	assert.Equal(t, "ALREADY_APPLIED", body.Error.Code)
	assert.NotNil(t, body.Error.Details)
}
