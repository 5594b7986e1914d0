package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorFormatting(t *testing.T) {
	cause := errors.New("connection refused")
	err := E(CodeUnavailable, "store.get", "", cause)
	assert.Equal(t, "store.get: UNAVAILABLE: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)

	assert.Equal(t, "NOT_FOUND", (&Error{Code: CodeNotFound}).Error())
	assert.Equal(t, "tools.invoke: INTERNAL", (&Error{Code: CodeInternal, Op: "tools.invoke"}).Error())
}

func TestWrapKeepsExistingCode(t *testing.T) {
	inner := E(CodeUpstream, "", "provider returned 500", nil)
	wrapped := Wrap(CodeInternal, "quotes.add", fmt.Errorf("fetch: %w", inner))
	require.NotNil(t, wrapped)
	assert.Equal(t, CodeUpstream, wrapped.Code)
	assert.Equal(t, "quotes.add", wrapped.Op)

	assert.Nil(t, Wrap(CodeInternal, "noop", nil))
	assert.Equal(t, CodePersist, Wrap(CodePersist, "quotes.add", errors.New("disk full")).Code)
}

func TestCodeFrom(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want ErrorCode
		ok   bool
	}{
		{name: "nil", err: nil, ok: false},
		{name: "domain error", err: E(CodePersist, "", "", nil), want: CodePersist, ok: true},
		{name: "empty credential", err: fmt.Errorf("add: %w", ErrEmptyCredential), want: CodeInvalidArgument, ok: true},
		{name: "invalid endpoint", err: ErrInvalidEndpoint, want: CodeInvalidArgument, ok: true},
		{name: "unknown tool", err: ErrToolNotFound, want: CodeNotFound, ok: true},
		{name: "missing resource", err: ErrResourceMissing, want: CodeNotFound, ok: true},
		{name: "closed store", err: ErrStoreClosed, want: CodeUnavailable, ok: true},
		{name: "plain", err: context.Canceled, ok: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := CodeFrom(tc.err)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
	assert.True(t, IsCode(ErrQuoteNotFound, CodeNotFound))
	assert.False(t, IsCode(errors.New("x"), CodeInternal))
}
