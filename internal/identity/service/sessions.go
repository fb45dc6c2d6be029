package service

import (
	"context"
	"strings"

	"account-service/backend/internal/apperrors"
	auditdomain "account-service/backend/internal/audit/domain"
	sessiondomain "account-service/backend/internal/session/domain"
)

// Logout revokes token best-effort. It never fails, so the client cookie can always be cleared.
func (s *AccountService) Logout(ctx context.Context, token string) {
	if strings.TrimSpace(token) == "" {
		return
	}
	var userID string
	if claims, err := s.sessions.AuthenticateWithoutRevocation(token); err == nil {
		userID = claims.UserID
	}
	s.sessions.Logout(ctx, token)
	s.audit.LogEvent(ctx, userID, auditdomain.ActionLogout, auditdomain.ResourceSession, "")
}

// Invalidate revokes target on behalf of the authenticated actorID.
func (s *AccountService) Invalidate(ctx context.Context, actorID, target string) error {
	if strings.TrimSpace(target) == "" {
		return apperrors.Invalid("no token to invalidate")
	}
	if err := s.sessions.Invalidate(ctx, target); err != nil {
		return err
	}
	s.audit.LogEvent(ctx, actorID, auditdomain.ActionInvalidate, auditdomain.ResourceSession, "single")
	return nil
}

// InvalidateBatch revokes each target independently on behalf of actorID.
func (s *AccountService) InvalidateBatch(ctx context.Context, actorID string, targets []string) (sessiondomain.BatchResult, error) {
	if len(targets) == 0 {
		return sessiondomain.BatchResult{}, apperrors.Invalid("token list is required")
	}
	res := s.sessions.RevokeBatch(ctx, targets)
	if len(res.Revoked) > 0 {
		s.audit.LogEvent(ctx, actorID, auditdomain.ActionInvalidate, auditdomain.ResourceSession, "batch")
	}
	return res, nil
}
