package accounts

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/International-Combat-Archery-Alliance/event-ticketing/roles"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

// bcryptCost is a variable so tests can drop to bcrypt.MinCost.
var bcryptCost = bcrypt.DefaultCost

type Account struct {
	ID           uuid.UUID
	FullName     string
	Email        string
	Phone        string
	College      string
	Course       string
	PasswordHash []byte
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PublicProfile is the subset of an account admins see next to a registration.
type PublicProfile struct {
	ID       uuid.UUID
	FullName string
	Email    string
	Phone    string
}

func (a Account) PublicProfile() PublicProfile {
	return PublicProfile{
		ID:       a.ID,
		FullName: a.FullName,
		Email:    a.Email,
		Phone:    a.Phone,
	}
}

type Repository interface {
	// CreateAccount persists the account together with its default role
	// grant. Either both are written or neither is.
	CreateAccount(ctx context.Context, account Account, defaultGrant roles.Grant) error
	GetAccount(ctx context.Context, id uuid.UUID) (Account, error)
	GetAccountByEmail(ctx context.Context, email string) (Account, error)
}

type SignUpInput struct {
	FullName string
	Email    string
	Phone    string
	College  string
	Course   string
	Password string
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func SignUp(ctx context.Context, repo Repository, input SignUpInput, now time.Time) (Account, error) {
	input.FullName = strings.TrimSpace(input.FullName)
	input.Email = NormalizeEmail(input.Email)

	if input.FullName == "" {
		return Account{}, NewInvalidInputError("Full name is required")
	}
	if _, err := mail.ParseAddress(input.Email); err != nil {
		return Account{}, NewInvalidInputError(fmt.Sprintf("Email %q is not valid", input.Email))
	}
	if len(input.Password) < minPasswordLength {
		return Account{}, NewInvalidInputError(fmt.Sprintf("Password must be at least %d characters", minPasswordLength))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return Account{}, NewInvalidInputError("Password is too long")
		}
		return Account{}, fmt.Errorf("failed to hash password: %w", err)
	}

	now = now.UTC()
	account := Account{
		ID:           uuid.New(),
		FullName:     input.FullName,
		Email:        input.Email,
		Phone:        strings.TrimSpace(input.Phone),
		College:      strings.TrimSpace(input.College),
		Course:       strings.TrimSpace(input.Course),
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = repo.CreateAccount(ctx, account, roles.DefaultGrant(account.ID, now))
	if err != nil {
		return Account{}, err
	}

	return account, nil
}

// dummyHash is compared against when the email is unknown so both failure
// paths cost one bcrypt comparison.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.DefaultCost)

func SignIn(ctx context.Context, repo Repository, email string, password string) (Account, error) {
	account, err := repo.GetAccountByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		var accErr *Error
		if errors.As(err, &accErr) && accErr.Reason == REASON_ACCOUNT_DOES_NOT_EXIST {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			return Account{}, NewInvalidCredentialsError()
		}
		return Account{}, err
	}

	if err := bcrypt.CompareHashAndPassword(account.PasswordHash, []byte(password)); err != nil {
		return Account{}, NewInvalidCredentialsError()
	}

	return account, nil
}
