package mail

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hdiignna-DEV/mpt-warrior-sub003/internal/core/domain"
	"github.com/Hdiignna-DEV/mpt-warrior-sub003/internal/core/ports"
)

func TestSMTPMailer_Disabled(t *testing.T) {
	m := NewSMTPMailer(Config{})
	assert.False(t, m.Enabled(), "mailer without host must be disabled")

	err := m.Send(context.Background(), ports.Message{To: []string{"a@example.com"}})
	assert.ErrorIs(t, err, ErrSMTPDisabled)
}

func TestSMTPMailer_RejectsBadRecipient(t *testing.T) {
	m := NewSMTPMailer(Config{Host: "localhost", Port: 2525, From: "noreply@example.com"})

	err := m.Send(context.Background(), ports.Message{To: []string{"not an address"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid recipient")
}

func TestFormatMessage(t *testing.T) {
	raw := formatMessage("noreply@example.com", ports.Message{
		To:      []string{"a@example.com", "b@example.com"},
		Subject: "Hello",
		Body:    "line one\nline two",
	})

	assert.Contains(t, raw, "From: noreply@example.com\r\n")
	assert.Contains(t, raw, "To: a@example.com, b@example.com\r\n")
	assert.Contains(t, raw, "Subject: Hello\r\n")
	assert.Contains(t, raw, "\r\n\r\nline one\r\nline two")
}

func TestApprovalMessage(t *testing.T) {
	msg := ApprovalMessage(&domain.Account{
		Name:      "Alice",
		Email:     "alice@example.com",
		WarriorID: "MPT-2025-00001",
		Role:      domain.RoleWarrior,
	}, "https://mpt.example.com/")

	assert.Equal(t, []string{"alice@example.com"}, msg.To)
	assert.Contains(t, msg.Body, "MPT-2025-00001")
	assert.Contains(t, msg.Body, "https://mpt.example.com/login")
}
