package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorStatusMapping(t *testing.T) {
	cases := map[*AppError]int{
		ErrEmptyPrompt:      http.StatusBadRequest,
		ErrInFlight:         http.StatusConflict,
		ErrStoryNotFound:    http.StatusNotFound,
		ErrPlanNotFound:     http.StatusNotFound,
		ErrGenerationFailed: http.StatusBadGateway,
		ErrInternalError:    http.StatusInternalServerError,
	}
	for appErr, want := range cases {
		assert.Equal(t, want, appErr.HTTPStatus, appErr.Message)
	}
}

func TestAsAppErrorUnwrapsChain(t *testing.T) {
	wrapped := fmt.Errorf("submit: %w", ErrInFlight)

	assert.True(t, IsAppError(wrapped))
	assert.Equal(t, CodeInFlight, AsAppError(wrapped).Code)
	assert.True(t, stderrors.Is(wrapped, ErrInFlight))
}

func TestWithDetailDoesNotMutateSentinel(t *testing.T) {
	detailed := ErrPlanNotFound.WithDetail("unknown plan: memo")

	assert.Equal(t, "unknown plan: memo", detailed.Detail)
	assert.Empty(t, ErrPlanNotFound.Detail)
	assert.True(t, stderrors.Is(detailed, ErrPlanNotFound))
}

func TestAsAppErrorFallsBackToUnknown(t *testing.T) {
	appErr := AsAppError(stderrors.New("plain"))

	assert.Equal(t, CodeUnknown, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.HTTPStatus)
}
