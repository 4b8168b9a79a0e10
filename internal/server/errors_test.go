package server

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/smallbiznis/sprintboard/internal/authorization"
	"github.com/smallbiznis/sprintboard/internal/authprovider"
	issuedomain "github.com/smallbiznis/sprintboard/internal/issue/domain"
	"github.com/smallbiznis/sprintboard/internal/ordering"
	projectdomain "github.com/smallbiznis/sprintboard/internal/project/domain"
	sprintdomain "github.com/smallbiznis/sprintboard/internal/sprint/domain"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestMapError(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		status   int
		typ      string
		code     string
		errField string
	}{
		{"unauthenticated", authorization.ErrUnauthenticated, http.StatusUnauthorized, "unauthorized", "unauthenticated", ""},
		{"insufficient role", authorization.ErrInsufficientRole, http.StatusForbidden, "forbidden", "insufficient_role", ""},
		{"not found", projectdomain.ErrNotFound, http.StatusNotFound, "not_found", "project_not_found", ""},
		{"record not found", gorm.ErrRecordNotFound, http.StatusNotFound, "not_found", "", ""},
		{"invalid state", sprintdomain.ErrOutsideWindow, http.StatusConflict, "invalid_state", "sprint_outside_window", ""},
		{"validation", issuedomain.ErrInvalidTitle, http.StatusBadRequest, "validation_error", "", "title"},
		{"conflict", ordering.ErrOrdinalConflict.Wrap(errors.New("duplicate key")), http.StatusConflict, "conflict", "ordinal_conflict", ""},
		{"wrapped conflict", fmt.Errorf("create: %w", projectdomain.ErrKeyTaken), http.StatusConflict, "conflict", "project_key_taken", ""},
		{"upstream", authprovider.ErrUpstream.Wrap(errors.New("dial tcp")), http.StatusBadGateway, "upstream_error", "", ""},
		{"request binding", invalidRequestError(), http.StatusBadRequest, "validation_error", "", "request"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal_error", "", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, payload := mapError(tc.err)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.typ, payload.Type)
			assert.Equal(t, tc.code, payload.Code)
			if tc.errField != "" {
				if assert.Len(t, payload.Errors, 1) {
					assert.Equal(t, tc.errField, payload.Errors[0].Field)
				}
			}
		})
	}
}

func TestUpstreamMessageIsGeneric(t *testing.T) {
	_, payload := mapError(authprovider.ErrUpstream.Wrap(errors.New("secret-host:443 refused")))
	assert.NotContains(t, payload.Message, "secret-host")
}

func TestClassifyErrorForLog(t *testing.T) {
	typ, code := classifyErrorForLog(issuedomain.ErrInvalidTitle)
	assert.Equal(t, "validation_error", typ)
	assert.Equal(t, "invalid_title", code)

	typ, code = classifyErrorForLog(sprintdomain.ErrNotActive)
	assert.Equal(t, "invalid_state", typ)
	assert.Equal(t, "sprint_not_active", code)
}
