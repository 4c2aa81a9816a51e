// Package notify delivers new order messages to the operator over SMS and email.
package notify

import (
	"context"
	"tarjomic-watch/internal/components/telemetry"

	"go.opentelemetry.io/otel/codes"
)

type SMSSender interface {
	SendSMS(ctx context.Context, from, to, text string) error
}

type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// Dispatcher binds the configured sender and recipients to each transport. A nil sender
// disables its transport.
type Dispatcher struct {
	SMS     SMSSender
	SMSFrom string
	SMSTo   string

	Email   EmailSender
	EmailTo string

	Tel telemetry.API
}

func (d Dispatcher) tel() telemetry.API {
	if d.Tel == nil {
		return telemetry.SlogAPI{}
	}
	return d.Tel
}

func (d Dispatcher) SendSMS(ctx context.Context, text string) error {
	if d.SMS == nil {
		d.tel().ReportDebug("notify: sms disabled, dropping message")
		return nil
	}

	ctx, span := tracer.Start(ctx, "notify:SendSMS")
	defer span.End()

	err := d.SMS.SendSMS(ctx, d.SMSFrom, d.SMSTo, text)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send sms")
		return err
	}
	return nil
}

func (d Dispatcher) SendEmail(ctx context.Context, subject, body string) error {
	if d.Email == nil {
		d.tel().ReportDebug("notify: email disabled, dropping message")
		return nil
	}

	ctx, span := tracer.Start(ctx, "notify:SendEmail")
	defer span.End()

	err := d.Email.SendEmail(ctx, d.EmailTo, subject, body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send email")
		return err
	}
	return nil
}
