package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromErrorPassesTypedErrorsThrough(t *testing.T) {
	wrapped := fmt.Errorf("load: %w", ErrNoReport)

	appErr := FromError(wrapped)
	require.NotNil(t, appErr)
	assert.Equal(t, "NO_REPORT", appErr.Code)
	assert.Equal(t, http.StatusNotFound, appErr.Status)
}

func TestFromErrorWrapsUnknownAsInternal(t *testing.T) {
	appErr := FromError(stderrors.New("boom"))
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Contains(t, appErr.Error(), "boom")
	assert.Nil(t, FromError(nil))
}

func TestCloneMatchesOriginalCode(t *testing.T) {
	clone := Clone(ErrValidation, "date must be YYYY-MM-DD")
	assert.Equal(t, "date must be YYYY-MM-DD", clone.Message)
	assert.True(t, stderrors.Is(clone, ErrValidation))
	assert.False(t, stderrors.Is(clone, ErrNotFound))
	assert.Equal(t, "validation failed", ErrValidation.Message)
}

func TestWrapAsKeepsKind(t *testing.T) {
	cause := stderrors.New("sheets quota exceeded")
	err := WrapAs(cause, ErrUpstream, "failed to fetch schedule grid")

	assert.True(t, stderrors.Is(err, ErrUpstream))
	assert.True(t, stderrors.Is(err, cause))
	assert.Equal(t, http.StatusBadGateway, StatusOf(err))
	assert.Equal(t, "failed to fetch schedule grid: sheets quota exceeded", err.Error())

	fallback := WrapAs(cause, nil, "")
	assert.Equal(t, ErrInternal.Code, fallback.Code)
	assert.Equal(t, ErrInternal.Message, fallback.Message)
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusOK, StatusOf(nil))
	assert.Equal(t, http.StatusNotFound, StatusOf(fmt.Errorf("x: %w", ErrNoReport)))
	assert.Equal(t, http.StatusInternalServerError, StatusOf(stderrors.New("boom")))
}
