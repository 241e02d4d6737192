package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefCodeIsStableOnceIssued(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	code, err := h.referrals.GetOrCreateRefCode(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, code, 8)

	again, err := h.referrals.GetOrCreateRefCode(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, code, again)
}

func TestApplyRefCodeBindsReferrer(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	code, err := h.referrals.GetOrCreateRefCode(ctx, "alice")
	require.NoError(t, err)

	require.NoError(t, h.referrals.ApplyRefCode(ctx, "bob", code))

	fin, err := h.finances.Get(ctx, "bob")
	require.NoError(t, err)
	require.NotNil(t, fin.RefID)
	assert.Equal(t, "alice", *fin.RefID)
}

func TestApplyRefCodeRejectsSelfReferral(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	code, err := h.referrals.GetOrCreateRefCode(ctx, "alice")
	require.NoError(t, err)

	assert.ErrorIs(t, h.referrals.ApplyRefCode(ctx, "alice", code), ErrSelfReferral)
}

func TestApplyRefCodeUnknownCode(t *testing.T) {
	h := newHarness(t)

	err := h.referrals.ApplyRefCode(context.Background(), "bob", "NOPE1234")
	assert.ErrorIs(t, err, ErrInvalidRefCode)
}

func TestApplyRefCodeBindingIsPermanent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	codeA, err := h.referrals.GetOrCreateRefCode(ctx, "alice")
	require.NoError(t, err)
	codeC, err := h.referrals.GetOrCreateRefCode(ctx, "carol")
	require.NoError(t, err)

	require.NoError(t, h.referrals.ApplyRefCode(ctx, "bob", codeA))
	assert.ErrorIs(t, h.referrals.ApplyRefCode(ctx, "bob", codeC), ErrReferrerAlreadySet)
}
