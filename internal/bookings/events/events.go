// Package events publishes appointment lifecycle events for downstream
// consumers such as reminders and reporting.
package events

import (
	"context"
	"fmt"
	"time"

	"bookline/pkg/kafka"
	"bookline/pkg/model"

	"github.com/google/uuid"
)

const (
	TypeCreated       = "appointment.created"
	TypeStatusChanged = "appointment.status_changed"
	TypeDeleted       = "appointment.deleted"

	schemaVersion = "1"
)

type Event struct {
	ID            string                  `json:"id"`
	Type          string                  `json:"type"`
	AppointmentID string                  `json:"appointment_id"`
	CompanyID     string                  `json:"company_id"`
	StaffID       string                  `json:"staff_id"`
	CustomerID    string                  `json:"customer_id,omitempty"`
	Date          string                  `json:"date"`
	StartTime     string                  `json:"start_time"`
	EndTime       string                  `json:"end_time"`
	Status        model.AppointmentStatus `json:"status"`
	ActorID       string                  `json:"actor_id"`
	OccurredAt    time.Time               `json:"occurred_at"`
}

func NewEvent(eventType string, appt *model.Appointment, actorID string) Event {
	return Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		AppointmentID: appt.ID,
		CompanyID:     appt.CompanyID,
		StaffID:       appt.StaffID,
		CustomerID:    appt.CustomerID,
		Date:          appt.Date,
		StartTime:     appt.StartTime,
		EndTime:       appt.EndTime,
		Status:        appt.Status,
		ActorID:       actorID,
		OccurredAt:    time.Now().UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

type producer interface {
	Publish(ctx context.Context, msg kafka.Message) error
	Close() error
}

type kafkaPublisher struct {
	producer producer
	source   string
}

// NewKafkaPublisher keys messages by appointment id so events of one
// appointment stay ordered within a partition.
func NewKafkaPublisher(p producer, source string) Publisher {
	return &kafkaPublisher{producer: p, source: source}
}

func (p *kafkaPublisher) Publish(ctx context.Context, event Event) error {
	msg, err := kafka.NewMessage().
		WithKey(event.AppointmentID).
		WithEventID(event.ID).
		WithEventType(event.Type).
		WithSchemaVersion(schemaVersion).
		WithSource(p.source).
		WithValue(event).
		Build()
	if err != nil {
		return err
	}
	if err := p.producer.Publish(ctx, msg); err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}

func (p *kafkaPublisher) Close() error {
	return p.producer.Close()
}

type noopPublisher struct{}

// NewNoopPublisher is used when the event stream is disabled.
func NewNoopPublisher() Publisher {
	return noopPublisher{}
}

func (noopPublisher) Publish(context.Context, Event) error { return nil }

func (noopPublisher) Close() error { return nil }
