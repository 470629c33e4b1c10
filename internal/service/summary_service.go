package service

import (
	"context"

	"yourloops-dashboard/internal/dataapi"
	"yourloops-dashboard/internal/domain"
	"yourloops-dashboard/internal/summary"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SummaryService exposes the fetch queue to callers allowed to see the patient.
type SummaryService struct {
	queue    *summary.Queue
	patients *PatientService
	logger   *zap.Logger
}

func NewSummaryService(queue *summary.Queue, patients *PatientService, logger *zap.Logger) *SummaryService {
	return &SummaryService{queue: queue, patients: patients, logger: logger}
}

// FetchSummary blocks until the queue resolves patientID. ctx cancellation
// withdraws this caller only.
func (s *SummaryService) FetchSummary(ctx context.Context, user domain.User, patientID string) (*domain.MedicalData, error) {
	patient, err := s.patients.GetPatient(ctx, user, patientID)
	if err != nil {
		return nil, err
	}
	session := dataapi.Session{
		SessionToken: user.SessionToken,
		TraceToken:   uuid.NewString(),
	}
	return s.queue.Fetch(ctx, session, domain.User{
		ID:    patient.UserID,
		Email: patient.Profile.Email,
		Role:  domain.RolePatient,
	})
}

// CancelSummary removes a queued fetch of patientID. user must be able to see the patient.
func (s *SummaryService) CancelSummary(ctx context.Context, user domain.User, patientID string) (bool, error) {
	if _, err := s.patients.GetPatient(ctx, user, patientID); err != nil {
		return false, err
	}
	removed := s.queue.Remove(patientID)
	if removed {
		s.logger.Debug("Summary fetch cancelled", zap.String("patient_id", patientID))
	}
	return removed, nil
}

func (s *SummaryService) Pending() int {
	return s.queue.Pending()
}
