// Package mqtt consumes the monitoring alarms pushed by the upstream platform.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqttcommon "yourloops-dashboard/common/mqtt"
	"yourloops-dashboard/internal/domain"
	"yourloops-dashboard/internal/repository"

	"go.uber.org/zap"
)

// Subscriber is the part of common/mqtt.Client the broker uses.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqttcommon.MessageHandler) error
	Unsubscribe(topics ...string) error
}

var _ Subscriber = (*mqttcommon.Client)(nil)

// MedicalDataWriter refreshes the cached summary of a patient.
type MedicalDataWriter interface {
	SetPatientMedicalData(ctx context.Context, patientID string, md *domain.MedicalData) error
}

// AlarmMessage is the payload published on the alarm topic. MedicalData is
// the summary the alarms were computed from, when the platform sends it.
type AlarmMessage struct {
	UserID      string              `json:"userId"`
	TeamID      string              `json:"teamId"`
	Alarms      *domain.Alarm       `json:"alarms"`
	MedicalData *domain.MedicalData `json:"medicalData,omitempty"`
}

// AlarmBroker stores the alarms of each message on the patient's team
// membership and refreshes the patient's cached summary.
type AlarmBroker struct {
	client    Subscriber
	members   repository.MembersRepository
	summaries MedicalDataWriter
	topic     string
	qos       byte
	logger    *zap.Logger
}

// NewAlarmBroker builds a broker. summaries may be nil.
func NewAlarmBroker(client Subscriber, members repository.MembersRepository, summaries MedicalDataWriter, topic string, qos byte, logger *zap.Logger) *AlarmBroker {
	return &AlarmBroker{
		client:    client,
		members:   members,
		summaries: summaries,
		topic:     topic,
		qos:       qos,
		logger:    logger,
	}
}

func (b *AlarmBroker) Start() error {
	if err := b.client.Subscribe(b.topic, b.qos, b.HandleMessage); err != nil {
		return fmt.Errorf("failed to subscribe to alarm topic: %w", err)
	}
	b.logger.Info("Alarm broker started", zap.String("topic", b.topic))
	return nil
}

func (b *AlarmBroker) Stop() {
	if err := b.client.Unsubscribe(b.topic); err != nil {
		b.logger.Error("Failed to unsubscribe", zap.Error(err))
	}
	b.logger.Info("Alarm broker stopped")
}

// HandleMessage never returns an error for a bad payload: it is logged and dropped.
func (b *AlarmBroker) HandleMessage(topic string, payload []byte) error {
	var msg AlarmMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		b.logger.Warn("Malformed alarm message skipped",
			zap.String("topic", topic),
			zap.Error(err),
		)
		return nil
	}
	if msg.UserID == "" || msg.TeamID == "" || msg.Alarms == nil {
		b.logger.Warn("Incomplete alarm message skipped",
			zap.String("topic", topic),
			zap.String("user_id", msg.UserID),
			zap.String("team_id", msg.TeamID),
		)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := b.members.UpdateMemberAlarms(ctx, msg.TeamID, msg.UserID, *msg.Alarms); err != nil {
		return fmt.Errorf("failed to store alarms of %s in team %s: %w", msg.UserID, msg.TeamID, err)
	}
	if msg.MedicalData != nil && b.summaries != nil {
		if err := b.summaries.SetPatientMedicalData(ctx, msg.UserID, msg.MedicalData); err != nil {
			b.logger.Warn("Summary cache write failed", zap.String("user_id", msg.UserID), zap.Error(err))
		}
	}
	b.logger.Debug("Alarms updated",
		zap.String("user_id", msg.UserID),
		zap.String("team_id", msg.TeamID),
	)
	return nil
}
