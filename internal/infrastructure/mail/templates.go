package mail

import (
	"fmt"
	"strings"

	"github.com/Hdiignna-DEV/mpt-warrior-sub003/internal/core/domain"
	"github.com/Hdiignna-DEV/mpt-warrior-sub003/internal/core/ports"
)

const approvalSubject = "Your MPT Warrior account has been approved"

// ApprovalMessage builds the welcome email sent once an account is activated.
func ApprovalMessage(account *domain.Account, appURL string) ports.Message {
	login := strings.TrimRight(appURL, "/") + "/login"

	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", account.Name)
	b.WriteString("Your MPT Warrior account has been approved. You now have full access to the community.\n\n")
	fmt.Fprintf(&b, "Warrior ID: %s\n", account.WarriorID)
	fmt.Fprintf(&b, "Role: %s\n\n", account.Role)
	fmt.Fprintf(&b, "Sign in at %s\n\n", login)
	b.WriteString("See you on the charts,\nMPT Community\n")

	return ports.Message{
		To:      []string{account.Email},
		Subject: approvalSubject,
		Body:    b.String(),
	}
}
