package handler

import (
	"time"

	"github.com/Hdiignna-DEV/mpt-warrior-sub003/internal/core/domain"
	"github.com/Hdiignna-DEV/mpt-warrior-sub003/internal/core/ports"
)

// --- Request → Service input ---

func toRegisterInput(req registerRequest) ports.RegisterInput {
	return ports.RegisterInput{
		Name:           req.Name,
		Email:          req.Email,
		Password:       req.Password,
		WhatsApp:       req.WhatsApp,
		TelegramID:     req.TelegramID,
		InvitationCode: req.InvitationCode,
	}
}

func toGenerateInput(req generateCodesRequest) ports.GenerateCodesInput {
	return ports.GenerateCodesInput{
		Quantity:       req.Quantity,
		Prefix:         req.Prefix,
		MaxUsesPerCode: req.MaxUsesPerCode,
		ExpiryDays:     req.ExpiryDays,
		Role:           roleOrDefault(req.Role),
		Description:    req.Description,
	}
}

func toGenerateInvitationInput(req generateInvitationRequest) ports.GenerateInvitationInput {
	return ports.GenerateInvitationInput{
		Prefix:      req.Prefix,
		MaxUses:     req.MaxUses,
		ExpiryDays:  req.ExpiryDays,
		Role:        roleOrDefault(req.Role),
		Description: req.Description,
	}
}

func toLegacyInput(req legacyCodeRequest) ports.LegacyCodeInput {
	return ports.LegacyCodeInput{
		Code:        req.Code,
		MaxUses:     req.MaxUses,
		ExpiryDays:  req.ExpiryDays,
		Description: req.Description,
	}
}

func toEditInput(req editCodeRequest) ports.EditCodeInput {
	return ports.EditCodeInput{
		MaxUses:     req.MaxUses,
		ExpiresAt:   req.ExpiresAt,
		Description: req.Description,
		IsActive:    req.IsActive,
	}
}

func roleOrDefault(role string) domain.Role {
	if role == "" {
		return domain.RoleWarrior
	}
	return domain.Role(role)
}

// --- Service result → HTTP response ---

func toAccountResponse(a *domain.Account) accountResponse {
	return accountResponse{
		ID:             a.ID,
		WarriorID:      a.WarriorID,
		Name:           a.Name,
		Email:          a.Email,
		WhatsApp:       a.WhatsApp,
		TelegramID:     a.TelegramID,
		InvitationCode: a.InvitationCode,
		Role:           string(a.Role),
		Status:         string(a.Status),
		StatusReason:   a.StatusReason,
		IsFounder:      a.IsFounder,
		ApprovedBy:     a.ApprovedBy,
		ApprovedAt:     utcPtr(a.ApprovedAt),
		LastLoginAt:    utcPtr(a.LastLoginAt),
		CreatedAt:      a.CreatedAt.UTC(),
	}
}

func toAccountListResponse(accounts []*domain.Account) accountListResponse {
	items := make([]accountResponse, len(accounts))
	for i, a := range accounts {
		items[i] = toAccountResponse(a)
	}
	return accountListResponse{Data: items, Total: len(items)}
}

func toCodeResponse(ic *domain.InvitationCode) codeResponse {
	return codeResponse{
		Code:          ic.Code,
		Role:          string(ic.Role),
		MaxUses:       ic.MaxUses,
		UsedCount:     ic.UsedCount,
		RemainingUses: ic.RemainingUses(),
		IsActive:      ic.IsActive,
		ExpiresAt:     ic.ExpiresAt.UTC(),
		CreatedBy:     ic.CreatedBy,
		Description:   ic.Description,
		CreatedAt:     ic.CreatedAt.UTC(),
	}
}

func toCodeListResponse(codes []*domain.InvitationCode) codeListResponse {
	items := make([]codeResponse, len(codes))
	for i, ic := range codes {
		items[i] = toCodeResponse(ic)
	}
	return codeListResponse{Data: items, Total: len(items)}
}

func toStatsResponse(s *ports.LifecycleStats) statsResponse {
	accounts := make(map[string]int64, len(domain.AllStatuses))
	for _, st := range domain.AllStatuses {
		accounts[string(st)] = s.Accounts[st]
	}
	return statsResponse{
		Accounts: accounts,
		Codes: codeStatsResponse{
			Total:     s.Codes.Total,
			Active:    s.Codes.Active,
			Exhausted: s.Codes.Exhausted,
			Expired:   s.Codes.Expired,
			Redeemed:  s.Codes.Redeemed,
		},
	}
}

func toAuditListResponse(entries []*domain.AuditEntry) auditListResponse {
	items := make([]auditEntryResponse, len(entries))
	for i, e := range entries {
		items[i] = auditEntryResponse{
			ID:        e.ID,
			Action:    string(e.Action),
			Actor:     e.Actor,
			Target:    e.Target,
			Details:   e.Details,
			CreatedAt: e.CreatedAt.UTC(),
		}
	}
	return auditListResponse{Data: items}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
