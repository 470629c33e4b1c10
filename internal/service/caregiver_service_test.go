package service

import (
	"context"
	"testing"

	"yourloops-dashboard/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCaregivers_InviteListRemove(t *testing.T) {
	mem, repos := seedRepos(t)
	svc := NewCaregiverService(repos, zap.NewNop())
	ctx := context.Background()

	_, err := svc.ListCaregivers(ctx, hcp)
	assert.ErrorIs(t, err, domain.ErrInvalidUserRole)

	inv, err := svc.InviteCaregiver(ctx, patientA, caregiver.Email)
	require.NoError(t, err)
	assert.Equal(t, domain.NotificationDirectShare, inv.Type)

	_, err = svc.InviteCaregiver(ctx, patientA, caregiver.Email)
	assert.ErrorIs(t, err, domain.ErrAlreadyInvited)

	shares, err := svc.ListCaregivers(ctx, patientA)
	require.NoError(t, err)
	require.Len(t, shares, 1)
	assert.Equal(t, caregiver.ID, shares[0].ViewerID)
	assert.Equal(t, domain.StatusPending, shares[0].Status)

	require.NoError(t, svc.RemoveDirectShare(ctx, patientA, patientA.ID, caregiver.ID))
	_, err = mem.GetInvitation(ctx, inv.ID)
	assert.ErrorIs(t, err, domain.ErrInvitationNotFound)

	err = svc.RemoveDirectShare(ctx, patientA, patientA.ID, caregiver.ID)
	assert.ErrorIs(t, err, domain.ErrShareNotFound)
}

func TestCaregivers_InviteUnknownEmail(t *testing.T) {
	_, repos := seedRepos(t)
	svc := NewCaregiverService(repos, zap.NewNop())
	ctx := context.Background()

	inv, err := svc.InviteCaregiver(ctx, patientA, "nobody@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, inv.ID)

	shares, err := svc.ListCaregivers(ctx, patientA)
	require.NoError(t, err)
	assert.Empty(t, shares)

	_, err = svc.InviteCaregiver(ctx, patientA, "NOBODY@example.com")
	assert.ErrorIs(t, err, domain.ErrAlreadyInvited)
}

func TestCaregivers_InviteShareStoreFailure(t *testing.T) {
	_, repos := seedRepos(t)
	broken := *repos
	broken.DirectShares = failingShares{repos.DirectShares}
	svc := NewCaregiverService(&broken, zap.NewNop())
	ctx := context.Background()

	_, err := svc.InviteCaregiver(ctx, patientA, caregiver.Email)
	assert.ErrorIs(t, err, errStoreDown)
	assert.Empty(t, invitationsTo(t, repos, caregiver.Email))

	_, err = NewCaregiverService(repos, zap.NewNop()).InviteCaregiver(ctx, patientA, caregiver.Email)
	assert.NoError(t, err)
}
