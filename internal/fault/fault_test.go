package fault

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, NotFound, KindOf(New(NotFound, "missing")))
	assert.Equal(t, Transient, KindOf(Wrap(Transient, errors.New("boom"), "call failed")))
	assert.Equal(t, Internal, KindOf(errors.New("unclassified")))
}

func TestKindSurvivesWrapping(t *testing.T) {
	inner := New(Expired, "window passed")
	outer := fmt.Errorf("handling upload: %w", inner)

	assert.True(t, Is(outer, Expired))
	assert.Equal(t, Expired, KindOf(outer))
}

func TestWrapNilIsNil(t *testing.T) {
	assert.NoError(t, Wrap(Transient, nil, "no-op"))
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(New(Transient, "throttled")))
	assert.True(t, Retryable(errors.New("surprise")), "unclassified errors retry")

	for _, kind := range []Kind{InvalidRequest, QuotaExceeded, Expired, NotFound, OrphanJob, DeadLetter} {
		assert.False(t, Retryable(New(kind, "x")), string(kind))
	}
}

func TestErrorStringCarriesKindAndCause(t *testing.T) {
	err := Wrap(NotFound, errors.New("no item"), "get record")
	assert.Equal(t, "NOT_FOUND: get record: no item", err.Error())

	assert.Equal(t, "EXPIRED: upload 01X past window", Newf(Expired, "upload %s past window", "01X").Error())
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("root")
	assert.ErrorIs(t, Wrap(Internal, cause, "ctx"), cause)
}
