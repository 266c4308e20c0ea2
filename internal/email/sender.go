package email

import (
	"context"
	"errors"

	"heal-engine/internal/domain"
)

// Sender delivers completed USSD case reports to the support team.
type Sender interface {
	SendCaseReport(ctx context.Context, report domain.CaseReport) error
}

type disabledSender struct {
	reason string
}

func NewDisabledSender(reason string) Sender {
	return &disabledSender{reason: reason}
}

func (s *disabledSender) SendCaseReport(_ context.Context, _ domain.CaseReport) error {
	if s.reason == "" {
		return errors.New("email sender disabled")
	}
	return errors.New(s.reason)
}
