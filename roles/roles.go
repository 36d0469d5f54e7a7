package roles

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	PARTICIPANT Role = "participant"
	ADMIN       Role = "admin"
)

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case PARTICIPANT, ADMIN:
		return Role(s), nil
	default:
		return "", NewUnknownRoleError(s)
	}
}

type Grant struct {
	AccountID uuid.UUID
	Role      Role
	CreatedAt time.Time
}

type Repository interface {
	// CreateGrant fails with REASON_GRANT_ALREADY_EXISTS if the account
	// already holds the role.
	CreateGrant(ctx context.Context, grant Grant) error
	GetGrants(ctx context.Context, accountID uuid.UUID) ([]Grant, error)
}

// DefaultGrant is the baseline role every new account is created with. The
// credential store persists it in the same write as the account itself.
func DefaultGrant(accountID uuid.UUID, now time.Time) Grant {
	return Grant{
		AccountID: accountID,
		Role:      PARTICIPANT,
		CreatedAt: now.UTC(),
	}
}

func HasRole(ctx context.Context, repo Repository, accountID uuid.UUID, role Role) (bool, error) {
	grants, err := repo.GetGrants(ctx, accountID)
	if err != nil {
		return false, err
	}

	for _, g := range grants {
		if g.Role == role {
			return true, nil
		}
	}

	return false, nil
}

// RequireRole returns a REASON_MISSING_ROLE error when the account does not
// hold role.
func RequireRole(ctx context.Context, repo Repository, accountID uuid.UUID, role Role) error {
	ok, err := HasRole(ctx, repo, accountID, role)
	if err != nil {
		return err
	}
	if !ok {
		return NewMissingRoleError(role)
	}

	return nil
}

// GrantRole provisions an additional role. It is only reachable from the
// operator CLI; there is no self-service path.
func GrantRole(ctx context.Context, repo Repository, accountID uuid.UUID, role Role, now time.Time) (Grant, error) {
	grant := Grant{
		AccountID: accountID,
		Role:      role,
		CreatedAt: now.UTC(),
	}

	if err := repo.CreateGrant(ctx, grant); err != nil {
		return Grant{}, fmt.Errorf("failed to grant %q to %s: %w", role, accountID, err)
	}

	return grant, nil
}
