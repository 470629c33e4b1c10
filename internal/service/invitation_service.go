package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"yourloops-dashboard/internal/domain"
	"yourloops-dashboard/internal/repository"

	"go.uber.org/zap"
)

// InvitationService handles the notifications a user received or sent.
type InvitationService struct {
	repos  *repository.Repositories
	logger *zap.Logger
}

func NewInvitationService(repos *repository.Repositories, logger *zap.Logger) *InvitationService {
	return &InvitationService{repos: repos, logger: logger}
}

func (s *InvitationService) PendingInvitations(ctx context.Context, user domain.User) ([]domain.Invitation, error) {
	if user.Email == "" {
		return []domain.Invitation{}, nil
	}
	return s.repos.Invitations.ListInvitations(ctx, repository.InvitationsFilter{Email: user.Email})
}

func (s *InvitationService) SentInvitations(ctx context.Context, user domain.User) ([]domain.Invitation, error) {
	return s.repos.Invitations.ListInvitations(ctx, repository.InvitationsFilter{CreatorID: user.ID})
}

// received loads invitationID and checks it is addressed to user.
func (s *InvitationService) received(ctx context.Context, user domain.User, invitationID string) (*domain.Invitation, error) {
	if user.ID == "" || invitationID == "" {
		return nil, domain.ErrInvalidInvitation
	}
	inv, err := s.repos.Invitations.GetInvitation(ctx, invitationID)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(inv.Email, user.Email) {
		return nil, fmt.Errorf("invitation %s: %w", invitationID, domain.ErrInvitationNotFound)
	}
	if inv.IsTeamInvitation() && inv.TargetID == "" {
		return nil, domain.ErrInvalidInvitation
	}
	if inv.Type == domain.NotificationDirectShare && inv.CreatorID == "" {
		return nil, domain.ErrInvalidInvitation
	}
	return inv, nil
}

// Accept turns the team membership or direct share into an accepted one.
func (s *InvitationService) Accept(ctx context.Context, user domain.User, invitationID string) error {
	inv, err := s.received(ctx, user, invitationID)
	if err != nil {
		return err
	}

	switch {
	case inv.IsTeamInvitation():
		err = s.repos.Members.UpdateMemberStatus(ctx, inv.TargetID, user.ID, domain.StatusAccepted)
		if errors.Is(err, domain.ErrNotTeamMember) {
			role := inv.Role
			if role == "" {
				role = domain.MemberRolePatient
			}
			member := &domain.TeamMember{
				TeamID:       inv.TargetID,
				UserID:       user.ID,
				Email:        user.Email,
				Role:         role,
				Status:       domain.StatusAccepted,
				InvitationID: inv.ID,
			}
			if acc, aerr := s.repos.Accounts.GetAccount(ctx, user.ID); aerr == nil {
				member.Profile = acc.Profile
			}
			err = s.repos.Members.UpsertMember(ctx, member)
		}
	case inv.Type == domain.NotificationDirectShare:
		err = s.repos.DirectShares.UpdateShareStatus(ctx, inv.CreatorID, user.ID, domain.StatusAccepted)
		if errors.Is(err, domain.ErrShareNotFound) {
			err = s.repos.DirectShares.UpsertShare(ctx, &domain.DirectShare{
				PatientID:    inv.CreatorID,
				ViewerID:     user.ID,
				ViewerEmail:  user.Email,
				Status:       domain.StatusAccepted,
				InvitationID: inv.ID,
			})
		}
	default:
		return domain.ErrInvalidInvitation
	}
	if err != nil {
		return err
	}
	s.logger.Info("Invitation accepted", zap.String("invitation_id", inv.ID), zap.String("type", string(inv.Type)))
	return s.repos.Invitations.DeleteInvitation(ctx, inv.ID)
}

// Decline drops the pending membership or direct share.
func (s *InvitationService) Decline(ctx context.Context, user domain.User, invitationID string) error {
	inv, err := s.received(ctx, user, invitationID)
	if err != nil {
		return err
	}

	switch {
	case inv.IsTeamInvitation():
		err = s.repos.Members.DeleteMember(ctx, inv.TargetID, user.ID)
		if errors.Is(err, domain.ErrNotTeamMember) {
			err = nil
		}
	case inv.Type == domain.NotificationDirectShare:
		err = s.repos.DirectShares.DeleteShare(ctx, inv.CreatorID, user.ID)
		if errors.Is(err, domain.ErrShareNotFound) {
			err = nil
		}
	default:
		return domain.ErrInvalidInvitation
	}
	if err != nil {
		return err
	}
	return s.repos.Invitations.DeleteInvitation(ctx, inv.ID)
}

// CancelInvitationRequest identifies a sent invitation and the pending member it created.
type CancelInvitationRequest struct {
	InvitationID string
	TeamID       string
	Email        string
}

// Cancel withdraws an invitation. Only its creator or an admin of the target team may cancel it.
func (s *InvitationService) Cancel(ctx context.Context, user domain.User, req CancelInvitationRequest) error {
	if req.InvitationID == "" {
		return domain.ErrInvalidInvitation
	}
	inv, err := s.repos.Invitations.GetInvitation(ctx, req.InvitationID)
	if err != nil {
		return err
	}
	teamID := req.TeamID
	if teamID == "" {
		teamID = inv.TargetID
	}

	var team *domain.Team
	if inv.IsTeamInvitation() && teamID != "" {
		team, err = s.repos.Teams.GetTeam(ctx, teamID)
		if err != nil {
			return err
		}
	}
	if inv.CreatorID != user.ID && (team == nil || !team.IsUserAdministrator(user.ID)) {
		return fmt.Errorf("invitation %s: %w", inv.ID, domain.ErrNotTeamAdmin)
	}

	if err := s.repos.Invitations.DeleteInvitation(ctx, inv.ID); err != nil {
		return err
	}

	email := req.Email
	if email == "" {
		email = inv.Email
	}
	switch {
	case team != nil:
		if m := team.MemberByEmail(email); m != nil && m.Status == domain.StatusPending {
			return s.repos.Members.DeleteMember(ctx, team.ID, m.UserID)
		}
	case inv.Type == domain.NotificationDirectShare:
		shares, err := s.repos.DirectShares.ListSharesByPatient(ctx, inv.CreatorID)
		if err != nil {
			return err
		}
		for _, sh := range shares {
			if sh.InvitationID == inv.ID && sh.Status == domain.StatusPending {
				return s.repos.DirectShares.DeleteShare(ctx, sh.PatientID, sh.ViewerID)
			}
		}
	}
	return nil
}

// lookupInvitee returns the account registered for email, or nil when none exists yet.
func lookupInvitee(ctx context.Context, accounts repository.AccountsRepository, email string) (*repository.Account, error) {
	acc, err := accounts.GetAccountByEmail(ctx, email)
	if errors.Is(err, domain.ErrAccountNotFound) {
		return nil, nil
	}
	return acc, err
}

// discardInvitation removes an invitation whose membership or share could not be stored.
func discardInvitation(ctx context.Context, invitations repository.InvitationsRepository, logger *zap.Logger, inv *domain.Invitation) {
	if err := invitations.DeleteInvitation(ctx, inv.ID); err != nil {
		logger.Error("Failed to discard invitation", zap.String("invitation_id", inv.ID), zap.Error(err))
	}
}
