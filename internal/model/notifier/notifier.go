// Package notifier turns consumed alert events into user notifications.
// Delivery is a local sink (stdout or a log file); the consumer retries
// nothing because alerts are advisory.
package notifier

import (
	"context"
	"fmt"
	"io"

	"github.com/pkg/errors"

	"expense-tracker/internal/model/alerts"
)

type Service struct {
	out io.Writer
}

func NewService(out io.Writer) *Service {
	return &Service{out: out}
}

func (s *Service) HandleAlert(_ context.Context, event alerts.Event) error {
	_, err := fmt.Fprintf(s.out, "[user %d] ⚠️ %s: $%s spent (threshold: $%s) in %s to %s\n",
		event.OwnerID, event.Category, event.Spent, event.Threshold,
		event.PeriodStart, event.PeriodEnd)
	return errors.Wrap(err, "write notification")
}
