package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/International-Combat-Archery-Alliance/event-ticketing/accounts"
	"github.com/International-Combat-Archery-Alliance/event-ticketing/roles"
	"github.com/oapi-codegen/runtime/types"
)

const tokenTypeBearer = "bearer"

func (a *API) postSignUp(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := a.getLoggerFromCtx(ctx)

	var body SignUpRequest
	if err := decodeJSON(w, r, &body); err != nil {
		logger.WarnContext(ctx, "Invalid body for signup", slog.Any("error", err))
		writeError(w, http.StatusBadRequest, InvalidBody, "Invalid body")
		return
	}

	account, err := accounts.SignUp(ctx, a.db, accounts.SignUpInput{
		FullName: body.FullName,
		Email:    string(body.Email),
		Phone:    body.Phone,
		College:  body.College,
		Course:   body.Course,
		Password: body.Password,
	}, a.now())
	if err != nil {
		var accErr *accounts.Error
		if errors.As(err, &accErr) {
			switch accErr.Reason {
			case accounts.REASON_INVALID_INPUT:
				writeError(w, http.StatusBadRequest, InputValidationError, accErr.Message)
				return
			case accounts.REASON_EMAIL_ALREADY_REGISTERED:
				writeError(w, http.StatusConflict, EmailTaken, "Email is already registered")
				return
			}
		}

		logger.ErrorContext(ctx, "Failed to sign up", slog.Any("error", err))
		writeInternalError(w, "Registration failed")
		return
	}

	resp, err := a.authResponse(account, false)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to issue token after signup", slog.Any("error", err))
		writeInternalError(w, "Registration failed")
		return
	}

	logger.InfoContext(ctx, "account created", slog.String("account-id", account.ID.String()))
	writeJSON(w, http.StatusCreated, resp)
}

func (a *API) postSignIn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := a.getLoggerFromCtx(ctx)

	var body SignInRequest
	if err := decodeJSON(w, r, &body); err != nil {
		logger.WarnContext(ctx, "Invalid body for signin", slog.Any("error", err))
		writeError(w, http.StatusBadRequest, InvalidBody, "Invalid body")
		return
	}

	account, err := accounts.SignIn(ctx, a.db, string(body.Email), body.Password)
	if err != nil {
		var accErr *accounts.Error
		if errors.As(err, &accErr) && accErr.Reason == accounts.REASON_INVALID_CREDENTIALS {
			writeError(w, http.StatusUnauthorized, AuthError, "Invalid email or password")
			return
		}

		logger.ErrorContext(ctx, "Failed to sign in", slog.Any("error", err))
		writeInternalError(w, "Login failed")
		return
	}

	isAdmin, err := roles.HasRole(ctx, a.db, account.ID, roles.ADMIN)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to look up roles on signin", slog.Any("error", err))
		writeInternalError(w, "Login failed")
		return
	}

	resp, err := a.authResponse(account, isAdmin)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to issue token on signin", slog.Any("error", err))
		writeInternalError(w, "Login failed")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (a *API) getMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := a.getLoggerFromCtx(ctx)
	claims := getClaimsFromCtx(ctx)

	account, err := a.db.GetAccount(ctx, claims.AccountID)
	if err != nil {
		var accErr *accounts.Error
		if errors.As(err, &accErr) && accErr.Reason == accounts.REASON_ACCOUNT_DOES_NOT_EXIST {
			writeError(w, http.StatusNotFound, NotFound, "User not found")
			return
		}

		logger.ErrorContext(ctx, "Failed to fetch own profile", slog.Any("error", err))
		writeInternalError(w, "Failed to fetch user profile")
		return
	}

	isAdmin, err := roles.HasRole(ctx, a.db, account.ID, roles.ADMIN)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to look up roles for profile", slog.Any("error", err))
		writeInternalError(w, "Failed to fetch user profile")
		return
	}

	writeJSON(w, http.StatusOK, Profile{
		Id:        account.ID,
		FullName:  account.FullName,
		Email:     types.Email(account.Email),
		Phone:     account.Phone,
		College:   account.College,
		Course:    account.Course,
		IsAdmin:   isAdmin,
		CreatedAt: account.CreatedAt,
		UpdatedAt: account.UpdatedAt,
	})
}

func (a *API) authResponse(account accounts.Account, isAdmin bool) (AuthResponse, error) {
	token, claims, err := a.tokens.Issue(account.ID, account.Email)
	if err != nil {
		return AuthResponse{}, err
	}

	return AuthResponse{
		AccessToken: token,
		TokenType:   tokenTypeBearer,
		ExpiresAt:   claims.ExpiresAt,
		User: UserSummary{
			Id:       account.ID,
			FullName: account.FullName,
			Email:    types.Email(account.Email),
			IsAdmin:  isAdmin,
		},
	}, nil
}
