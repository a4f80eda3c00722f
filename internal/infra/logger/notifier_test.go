package logger

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifier_LogsAlertAsWarning(t *testing.T) {
	log, hook := test.NewNullLogger()
	n := NewNotifier(logrus.NewEntry(log))

	require.NoError(t, n.Notify(context.Background(), "export rolled back"))

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "export rolled back", entry.Message)
	assert.Equal(t, true, entry.Data["alert"])
}
