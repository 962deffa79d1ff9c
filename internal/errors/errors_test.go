package errors_test

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/victornm/timestables/internal/errors"
)

func TestConvert(t *testing.T) {
	tests := map[string]struct {
		err      error
		wantCode errors.Code
		wantHTTP int
	}{
		"plain error becomes internal": {
			err:      stderrors.New("boom"),
			wantCode: errors.CodeInternal,
			wantHTTP: http.StatusInternalServerError,
		},
		"invalid argument maps to 400": {
			err:      errors.InvalidArgumentf("count %d out of range", 0),
			wantCode: errors.CodeInvalidArgument,
			wantHTTP: http.StatusBadRequest,
		},
		"wrapped not found keeps its code": {
			err:      fmt.Errorf("lookup: %w", errors.NotFoundf("session not found")),
			wantCode: errors.CodeNotFound,
			wantHTTP: http.StatusNotFound,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			e := errors.Convert(tt.err)
			assert.Equal(t, tt.wantCode, e.Code)
			assert.Equal(t, tt.wantHTTP, e.HTTPStatusCode())
			assert.True(t, errors.Is(e, tt.wantCode))
		})
	}
}

func TestError_GRPCStatus(t *testing.T) {
	err := errors.NotFoundf("run %d not found", 7)

	st, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, codes.NotFound, st.Code())
	assert.Equal(t, "run 7 not found", st.Message())
}

func TestError_UnwrapKeepsCause(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := errors.Internal(cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
}
