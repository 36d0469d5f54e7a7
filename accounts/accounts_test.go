package accounts

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/International-Combat-Archery-Alliance/event-ticketing/roles"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestMain(m *testing.M) {
	bcryptCost = bcrypt.MinCost
	os.Exit(m.Run())
}

var _ Repository = &mockRepository{}

type mockRepository struct {
	CreateAccountFunc     func(ctx context.Context, account Account, defaultGrant roles.Grant) error
	GetAccountFunc        func(ctx context.Context, id uuid.UUID) (Account, error)
	GetAccountByEmailFunc func(ctx context.Context, email string) (Account, error)
}

func (m *mockRepository) CreateAccount(ctx context.Context, account Account, defaultGrant roles.Grant) error {
	return m.CreateAccountFunc(ctx, account, defaultGrant)
}

func (m *mockRepository) GetAccount(ctx context.Context, id uuid.UUID) (Account, error) {
	return m.GetAccountFunc(ctx, id)
}

func (m *mockRepository) GetAccountByEmail(ctx context.Context, email string) (Account, error) {
	return m.GetAccountByEmailFunc(ctx, email)
}

// emailIndexRepository keeps accounts keyed by email so tests can run
// signup and signin against the same state.
func emailIndexRepository() *mockRepository {
	byEmail := map[string]Account{}
	return &mockRepository{
		CreateAccountFunc: func(ctx context.Context, account Account, defaultGrant roles.Grant) error {
			if _, ok := byEmail[account.Email]; ok {
				return NewEmailAlreadyRegisteredError(account.Email, nil)
			}
			byEmail[account.Email] = account
			return nil
		},
		GetAccountByEmailFunc: func(ctx context.Context, email string) (Account, error) {
			a, ok := byEmail[email]
			if !ok {
				return Account{}, NewAccountDoesNotExistError("not found", nil)
			}
			return a, nil
		},
	}
}

func validInput() SignUpInput {
	return SignUpInput{
		FullName: "Ada Lovelace",
		Email:    "a@x.com",
		Phone:    "555-0100",
		College:  "Analytical",
		Course:   "Engines",
		Password: "correct horse",
	}
}

func requireReason(t *testing.T, err error, reason ErrorReason) {
	t.Helper()
	var accErr *Error
	require.ErrorAs(t, err, &accErr)
	assert.Equal(t, reason, accErr.Reason)
}

func TestSignUp(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 5, 1, 9, 30, 0, 0, time.UTC)

	t.Run("creates account with default grant", func(t *testing.T) {
		var gotAccount Account
		var gotGrant roles.Grant
		repo := &mockRepository{
			CreateAccountFunc: func(ctx context.Context, account Account, defaultGrant roles.Grant) error {
				gotAccount = account
				gotGrant = defaultGrant
				return nil
			},
		}

		input := validInput()
		input.Email = "  A@X.com "
		account, err := SignUp(ctx, repo, input, now)
		require.NoError(t, err)

		assert.NotEqual(t, uuid.Nil, account.ID)
		assert.Equal(t, "a@x.com", account.Email)
		assert.Equal(t, now, account.CreatedAt)
		assert.Equal(t, gotAccount, account)
		assert.Equal(t, account.ID, gotGrant.AccountID)
		assert.Equal(t, roles.PARTICIPANT, gotGrant.Role)
		assert.NoError(t, bcrypt.CompareHashAndPassword(account.PasswordHash, []byte("correct horse")))
	})

	t.Run("validation failures", func(t *testing.T) {
		repo := &mockRepository{}

		cases := map[string]func(in *SignUpInput){
			"missing name":   func(in *SignUpInput) { in.FullName = "  " },
			"bad email":      func(in *SignUpInput) { in.Email = "not-an-email" },
			"short password": func(in *SignUpInput) { in.Password = "short" },
			"long password":  func(in *SignUpInput) { in.Password = strings.Repeat("x", 100) },
		}

		for name, mutate := range cases {
			t.Run(name, func(t *testing.T) {
				in := validInput()
				mutate(&in)
				_, err := SignUp(ctx, repo, in, now)
				requireReason(t, err, REASON_INVALID_INPUT)
			})
		}
	})

	t.Run("storage error passed through", func(t *testing.T) {
		repo := &mockRepository{
			CreateAccountFunc: func(ctx context.Context, account Account, defaultGrant roles.Grant) error {
				return NewFailedToWriteError("boom", errors.New("db down"))
			},
		}
		_, err := SignUp(ctx, repo, validInput(), now)
		requireReason(t, err, REASON_FAILED_TO_WRITE)
	})
}

func TestSignIn(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown email", func(t *testing.T) {
		_, err := SignIn(ctx, emailIndexRepository(), "nobody@x.com", "whatever1")
		requireReason(t, err, REASON_INVALID_CREDENTIALS)
	})

	t.Run("lookup failure is not reported as bad credentials", func(t *testing.T) {
		repo := &mockRepository{
			GetAccountByEmailFunc: func(ctx context.Context, email string) (Account, error) {
				return Account{}, NewFailedToFetchError("boom", errors.New("db down"))
			},
		}
		_, err := SignIn(ctx, repo, "a@x.com", "whatever1")
		requireReason(t, err, REASON_FAILED_TO_FETCH)
	})
}

func TestSignUpThenSignIn(t *testing.T) {
	ctx := context.Background()
	repo := emailIndexRepository()

	created, err := SignUp(ctx, repo, validInput(), time.Now())
	require.NoError(t, err)

	_, err = SignUp(ctx, repo, validInput(), time.Now())
	requireReason(t, err, REASON_EMAIL_ALREADY_REGISTERED)

	_, err = SignIn(ctx, repo, "a@x.com", "wrong password")
	requireReason(t, err, REASON_INVALID_CREDENTIALS)

	account, err := SignIn(ctx, repo, "A@X.COM", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, created.ID, account.ID)
}

func TestPublicProfile(t *testing.T) {
	a := Account{ID: uuid.New(), FullName: "A", Email: "a@x.com", Phone: "1", PasswordHash: []byte("secret")}
	assert.Equal(t, PublicProfile{ID: a.ID, FullName: "A", Email: "a@x.com", Phone: "1"}, a.PublicProfile())
}
