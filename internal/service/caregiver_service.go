package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"yourloops-dashboard/internal/domain"
	"yourloops-dashboard/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CaregiverService manages a patient's direct shares.
type CaregiverService struct {
	repos  *repository.Repositories
	logger *zap.Logger
	now    func() time.Time
}

func NewCaregiverService(repos *repository.Repositories, logger *zap.Logger) *CaregiverService {
	return &CaregiverService{repos: repos, logger: logger, now: time.Now}
}

func requirePatient(user domain.User) error {
	if user.Role != domain.RolePatient {
		return fmt.Errorf("%w: %s", domain.ErrInvalidUserRole, user.Role)
	}
	return nil
}

func (s *CaregiverService) ListCaregivers(ctx context.Context, user domain.User) ([]domain.DirectShare, error) {
	if err := requirePatient(user); err != nil {
		return nil, err
	}
	return s.repos.DirectShares.ListSharesByPatient(ctx, user.ID)
}

// InviteCaregiver sends a direct-share invitation. The share row exists
// as pending right away when the viewer already has an account.
func (s *CaregiverService) InviteCaregiver(ctx context.Context, user domain.User, email string) (*domain.Invitation, error) {
	if err := requirePatient(user); err != nil {
		return nil, err
	}
	shares, err := s.repos.DirectShares.ListSharesByPatient(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	for _, sh := range shares {
		if strings.EqualFold(sh.ViewerEmail, email) {
			return nil, domain.ErrAlreadyInvited
		}
	}
	sent, err := s.repos.Invitations.ListInvitations(ctx, repository.InvitationsFilter{
		Email:     email,
		CreatorID: user.ID,
		Type:      domain.NotificationDirectShare,
	})
	if err != nil {
		return nil, err
	}
	if len(sent) > 0 {
		return nil, domain.ErrAlreadyInvited
	}
	acc, err := lookupInvitee(ctx, s.repos.Accounts, email)
	if err != nil {
		return nil, err
	}

	inv := &domain.Invitation{
		ID:        uuid.NewString(),
		Type:      domain.NotificationDirectShare,
		CreatorID: user.ID,
		Email:     email,
		Created:   s.now().UTC(),
	}
	if err := s.repos.Invitations.CreateInvitation(ctx, inv); err != nil {
		return nil, err
	}
	if acc == nil {
		return inv, nil
	}
	share := &domain.DirectShare{
		PatientID:    user.ID,
		ViewerID:     acc.UserID,
		ViewerEmail:  acc.Email,
		Status:       domain.StatusPending,
		InvitationID: inv.ID,
	}
	if acc.Profile != nil {
		share.ViewerName = acc.Profile.FullName
	}
	if err := s.repos.DirectShares.UpsertShare(ctx, share); err != nil {
		discardInvitation(ctx, s.repos.Invitations, s.logger, inv)
		return nil, err
	}
	s.logger.Info("Caregiver invited", zap.String("patient_id", user.ID), zap.String("invitation_id", inv.ID))
	return inv, nil
}

// RemoveDirectShare drops the share between patientID and viewerID. Either side may remove it.
func (s *CaregiverService) RemoveDirectShare(ctx context.Context, user domain.User, patientID, viewerID string) error {
	if user.ID != patientID && user.ID != viewerID {
		return fmt.Errorf("direct share %s/%s: %w", patientID, viewerID, domain.ErrShareNotFound)
	}
	shares, err := s.repos.DirectShares.ListSharesByPatient(ctx, patientID)
	if err != nil {
		return err
	}
	for _, sh := range shares {
		if sh.ViewerID != viewerID {
			continue
		}
		if sh.Status == domain.StatusPending && sh.InvitationID != "" {
			if err := s.repos.Invitations.DeleteInvitation(ctx, sh.InvitationID); err != nil && !errors.Is(err, domain.ErrInvitationNotFound) {
				return err
			}
		}
		return s.repos.DirectShares.DeleteShare(ctx, patientID, viewerID)
	}
	return fmt.Errorf("direct share %s/%s: %w", patientID, viewerID, domain.ErrShareNotFound)
}
