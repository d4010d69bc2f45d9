package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNotFound, KindOf(New(KindNotFound, "trade not found")))
	assert.Equal(t, KindConflict, KindOf(Wrap(KindConflict, "retry", errors.New("version mismatch"))))

	// Unclassified errors are internal, never leaked as-is.
	assert.Equal(t, KindInternal, KindOf(errors.New("sql: database is closed")))
	assert.Equal(t, KindInternal, KindOf(nil))
}

func TestKindOf_WrappedChain(t *testing.T) {
	inner := New(KindInvalidState, "offer is already accepted")
	outer := fmt.Errorf("accept offer: %w", inner)

	assert.Equal(t, KindInvalidState, KindOf(outer))
	assert.Equal(t, "offer is already accepted", MessageOf(outer))
}

func TestMessageOf(t *testing.T) {
	assert.Equal(t, "coin not found", MessageOf(New(KindNotFound, "coin not found")))
	assert.Equal(t, "An unexpected error occurred", MessageOf(errors.New("raw driver error")))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(KindInternal, "failed to create trade", cause)

	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "failed to create trade")
	assert.Contains(t, err.Error(), "disk full")
}

func TestNewf(t *testing.T) {
	err := Newf(KindValidation, "unknown status filter %q", "shipped")
	assert.Equal(t, KindValidation, KindOf(err))
	assert.Equal(t, `unknown status filter "shipped"`, MessageOf(err))
}
