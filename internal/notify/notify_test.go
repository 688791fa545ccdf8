package notify

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMailerDevModeSkipsSend(t *testing.T) {
	m := NewMailer(Config{}, slog.Default())

	err := m.NotifyRepeatedIssue(context.Background(), RepeatNotice{
		UserID:      "u1",
		IncidentID:  "BUG-00003",
		Description: "cannot login again",
		Score:       0.72,
	})

	require.NoError(t, err, "no SMTP host configured means log-only, not an error")
}

func TestComposeRepeatNotice(t *testing.T) {
	subject, body := composeRepeatNotice(RepeatNotice{
		UserID:      "alice",
		UserEmail:   "alice@example.com",
		IncidentID:  "BUG-00007",
		Description: "save file corrupted once more",
		Score:       0.85,
	})

	assert.Contains(t, subject, "BUG-00007")
	assert.Contains(t, subject, "alice")
	assert.Contains(t, body, "0.85")
	assert.Contains(t, body, "save file corrupted once more")
	assert.Contains(t, body, "alice@example.com")
}

func TestComposeRepeatNoticeWithoutContact(t *testing.T) {
	_, body := composeRepeatNotice(RepeatNotice{
		UserID:     "bob",
		IncidentID: "BUG-00001",
	})

	assert.NotContains(t, body, "User contact")
}

func TestNoopNotifier(t *testing.T) {
	var n Notifier = Noop{}
	assert.NoError(t, n.NotifyRepeatedIssue(context.Background(), RepeatNotice{}))
}
