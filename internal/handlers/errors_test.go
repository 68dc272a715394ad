// internal/handlers/errors_test.go
package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/storyline-backend/internal/i18n"
	"github.com/javajoker/storyline-backend/internal/utils"
)

func serve(t *testing.T, handle func(c *gin.Context)) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	require.NoError(t, i18n.Initialize())

	r := gin.New()
	r.GET("/x/:parentIpId", handle)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/x/0x4444444444444444444444444444444444444444", nil)
	r.ServeHTTP(w, req)
	return w
}

func TestRespondError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
		body string
	}{
		{"validation", utils.NewValidationError("book_id", "book_id is required"), http.StatusBadRequest, "book_id is required"},
		{"not found", &utils.NotFoundError{Resource: "book", ID: "b1", Hint: "register it"}, http.StatusNotFound, "register it"},
		{"unauthorized", &utils.UnauthorizedError{Action: "publish chapter", Reason: "not the author"}, http.StatusForbidden, "not the author"},
		{"external", utils.NewExternalDependencyError("s3", "GetObject", errors.New("timeout")), http.StatusBadGateway, "s3 is unavailable"},
		{"other", errors.New("boom"), http.StatusInternalServerError, "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(t, func(c *gin.Context) { respondError(c, tt.err) })
			assert.Equal(t, tt.code, w.Code)
			assert.Contains(t, w.Body.String(), tt.body)
		})
	}
}

func TestRespondInheritanceError_UsesFixedMessages(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	h := NewInheritanceHandler(nil, nil, log)

	tests := []struct {
		name string
		err  error
		code int
		key  string
	}{
		{"not found", &utils.NotFoundError{Resource: "parent license", ID: "x"}, http.StatusNotFound, i18n.KeyInheritanceNotFound},
		{"unauthorized", &utils.UnauthorizedError{Action: "analyze", Reason: "x"}, http.StatusForbidden, i18n.KeyInheritanceUnauthorized},
		{"invalid license", fmt.Errorf("%w: unknown tier", utils.ErrInvalidLicense), http.StatusUnprocessableEntity, i18n.KeyInheritanceInvalidLicense},
		{"generic", errors.New("database is locked"), http.StatusInternalServerError, i18n.KeyInheritanceGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(t, func(c *gin.Context) { h.respondInheritanceError(c, tt.err) })
			assert.Equal(t, tt.code, w.Code)
			assert.Contains(t, w.Body.String(), i18n.T("en", tt.key))
			assert.NotContains(t, w.Body.String(), "database is locked")
		})
	}
}
