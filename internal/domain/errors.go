package domain

import "errors"

var (
	ErrPatientNotFound       = errors.New("patient not found")
	ErrTeamNotFound          = errors.New("team not found")
	ErrNotTeamMember         = errors.New("user is not a member of the team")
	ErrInvalidUserRole       = errors.New("invalid user role")
	ErrPatientAlreadyInvited = errors.New("patient-already-invited-in-team")
	ErrMissingInvitation     = errors.New("Missing invite!")
	ErrMissingTeamFields     = errors.New("missing mandatory team fields: name, address, phone")
	ErrInvalidMonitoring     = errors.New("invalid monitoring parameters")
	ErrInvitationNotFound    = errors.New("invitation not found")
	ErrInvalidInvitation     = errors.New("invitation is missing its user, target or id")
	ErrNotTeamAdmin          = errors.New("user is not an administrator of the team")
	ErrAlreadyInvited        = errors.New("already-invited")
	ErrShareNotFound         = errors.New("direct share not found")
	ErrAccountNotFound       = errors.New("account not found")
)
