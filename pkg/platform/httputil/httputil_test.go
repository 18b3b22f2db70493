package httputil

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "claimchain/pkg/domain-errors"
)

func TestWriteErrorDomainCode(t *testing.T) {
	tests := []struct {
		name       string
		code       dErrors.Code
		wantStatus int
	}{
		{"not found maps to 404", dErrors.CodeNotFound, 404},
		{"forbidden maps to 403", dErrors.CodeForbidden, 403},
		{"invalid state maps to 409", dErrors.CodeInvalidState, 409},
		{"validation maps to 400", dErrors.CodeValidation, 400},
		{"upstream unavailable maps to 502", dErrors.CodeUpstreamUnavailable, 502},
		{"indeterminate maps to 504", dErrors.CodeIndeterminate, 504},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(rec, dErrors.New(tt.code, "boom"))

			assert.Equal(t, tt.wantStatus, rec.Code)

			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, false, body["success"])
			assert.Equal(t, "boom", body["error"])
			assert.Equal(t, string(tt.code), body["code"])
		})
	}
}

func TestWriteErrorUnknownErrorNeverLeaks(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, errors.New("pq: duplicate key value violates unique constraint"))

	assert.Equal(t, 500, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "internal error", body["error"], "internal details must not reach the caller")
}
