package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"connectrpc.com/connect"

	"github.com/mmynk/foyer/internal/auth"
)

// AuthServiceName is the Connect service that opens sessions.
const AuthServiceName = "AuthService"

// LoginProcedure needs no session token.
var LoginProcedure = Procedure(AuthServiceName, "Login")

// AuthService implements the AuthService RPC interface.
type AuthService struct {
	authenticator auth.Authenticator
	jwtManager    *auth.JWTManager
}

// NewAuthService creates a new authentication service.
func NewAuthService(authenticator auth.Authenticator, jwtManager *auth.JWTManager) *AuthService {
	return &AuthService{
		authenticator: authenticator,
		jwtManager:    jwtManager,
	}
}

// NewAuthServiceHandler returns the path prefix and handler serving svc.
func NewAuthServiceHandler(svc *AuthService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = HandlerOptions(opts...)
	return mount(AuthServiceName,
		unary(AuthServiceName, "Login", svc.Login, opts),
	)
}

// Login checks the household passphrase and returns a session token.
func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	subject, err := s.authenticator.Authenticate(ctx, req.Passphrase)
	if err != nil {
		slog.Warn("Login failed", "error", err)
		if errors.Is(err, auth.ErrInvalidPassphrase) {
			return nil, connect.NewError(connect.CodeUnauthenticated, err)
		}
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	token, expiresAt, err := s.jwtManager.Generate(subject)
	if err != nil {
		slog.Error("Failed to generate token", "subject", subject, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	slog.Info("Login successful", "subject", subject, "expires_at", expiresAt)
	return &LoginResponse{Token: token, ExpiresAt: expiresAt}, nil
}
