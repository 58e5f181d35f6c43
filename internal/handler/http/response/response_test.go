package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/loan"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var out Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestNewMeta(t *testing.T) {
	assert.Equal(t, &Meta{Page: 2, Limit: 20, TotalItems: 41, TotalPages: 3}, NewMeta(2, 20, 41))
	assert.Equal(t, 0, NewMeta(1, 20, 0).TotalPages)
	assert.Equal(t, 1, NewMeta(1, 0, 5).TotalPages)
}

func TestPaginated(t *testing.T) {
	rec := httptest.NewRecorder()
	Paginated(rec, []string{"a", "b"}, 1, 2, 5)

	assert.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	assert.True(t, out.Success)
	require.NotNil(t, out.Meta)
	assert.Equal(t, 3, out.Meta.TotalPages)
	assert.Equal(t, int64(5), out.Meta.TotalItems)
}

func TestHandleError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"period busy", payroll.ErrComputationInProgress, http.StatusLocked, "COMPUTATION_IN_PROGRESS"},
		{"wrapped not found", errors.Join(errors.New("load"), payroll.ErrEntryNotFound), http.StatusNotFound, "NOT_FOUND"},
		{"stale deduction", loan.ErrDeductionMismatch, http.StatusConflict, "CONFLICT"},
		{"recompute over approved", payroll.ErrCannotRecomputeApprovedEntry, http.StatusConflict, "CONFLICT"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			HandleError(rec, tc.err)

			assert.Equal(t, tc.status, rec.Code)
			out := decode(t, rec)
			assert.False(t, out.Success)
			require.NotNil(t, out.Error)
			assert.Equal(t, tc.code, out.Error.Code)
			assert.Equal(t, tc.err.Error(), out.Error.Message)
		})
	}
}
