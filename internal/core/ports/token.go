package ports

import "github.com/Hdiignna-DEV/mpt-warrior-sub003/internal/core/domain"

type TokenIssuer interface {
	Issue(account *domain.Account) (string, error)
}

type TokenVerifier interface {
	Verify(token string) (*domain.Claims, error)
}
