package mail

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wellnest/backend/internal/infrastructure/config"
)

func TestNew(t *testing.T) {
	_, ok := New(config.MailConfig{}, nil).(*LogMailer)
	assert.True(t, ok)

	m, ok := New(config.MailConfig{Host: "smtp.example.com"}, zap.NewNop()).(*SMTPMailer)
	require.True(t, ok)
	assert.Equal(t, 587, m.cfg.Port)
}

func TestLogMailer(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	m := NewLogMailer(zap.New(core))

	require.NoError(t, m.Send(context.Background(), "asha@example.com", "Your code", "123456"))
	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "asha@example.com", fields["to"])
	assert.Equal(t, "123456", fields["body"])

	assert.ErrorIs(t, m.Send(context.Background(), "", "s", "b"), ErrInvalidRecipient)
	assert.ErrorIs(t, m.Send(context.Background(), "a@b.c\r\nBcc: x@y.z", "s", "b"), ErrInvalidRecipient)
}

func TestBuildMessage(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	msg := string(buildMessage("Wellnest <no-reply@wellnest.in>", "asha@example.com", "Verify\r\nBcc: evil@x.y", "Line 1\nLine 2", now))

	assert.Contains(t, msg, "To: asha@example.com\r\n")
	assert.Contains(t, msg, "Subject: Verify  Bcc: evil@x.y\r\n")
	assert.NotContains(t, msg, "\r\nBcc:")
	assert.True(t, strings.HasSuffix(msg, "\r\n\r\nLine 1\r\nLine 2"))
}

func TestSMTPMailer_DialFailure(t *testing.T) {
	m := NewSMTPMailer(config.MailConfig{Host: "127.0.0.1", Port: 1, From: "a@b.c"}, zap.NewNop())
	m.timeout = 200 * time.Millisecond

	err := m.Send(context.Background(), "asha@example.com", "s", "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mail: dial")
}
