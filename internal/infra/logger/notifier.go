package logger

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Notifier writes operator alerts to the log. Used when no alert channel is configured.
type Notifier struct {
	entry *logrus.Entry
}

func NewNotifier(entry *logrus.Entry) *Notifier {
	return &Notifier{entry: entry}
}

func (n *Notifier) Notify(_ context.Context, text string) error {
	n.entry.WithField("alert", true).Warn(text)
	return nil
}
