package service

import (
	"context"
	"crypto/subtle"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"batchtrack.io/tracker/internal/domain"
	apperrors "batchtrack.io/tracker/internal/pkg/errors"
	"batchtrack.io/tracker/internal/pkg/logger"
	"batchtrack.io/tracker/internal/store"
)

// SecretChecker verifies the shared admin secret.
type SecretChecker struct {
	secret string
	hash   string
}

// NewSecretChecker creates a SecretChecker. A non-empty bcrypt hash takes
// precedence over the plain secret.
func NewSecretChecker(secret, hash string) SecretChecker {
	return SecretChecker{secret: secret, hash: hash}
}

// Match reports whether candidate equals the configured secret.
func (c SecretChecker) Match(candidate string) bool {
	if c.hash != "" {
		return bcrypt.CompareHashAndPassword([]byte(c.hash), []byte(candidate)) == nil
	}
	if c.secret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(c.secret), []byte(candidate)) == 1
}

// ClearResult reports the outcome of a clear request. A wrong secret is a
// declined result, not an error.
type ClearResult struct {
	Success bool   `json:"success"`
	Cleared int    `json:"cleared"`
	Message string `json:"message"`
}

// AdminService groups the destructive maintenance operations.
type AdminService struct {
	store     *store.Store
	tickets   *TicketService
	secret    SecretChecker
	backupDir string
	zone      *time.Location
}

// NewAdminService creates an AdminService.
func NewAdminService(st *store.Store, tickets *TicketService, secret SecretChecker, backupDir string, zone *time.Location) *AdminService {
	return &AdminService{
		store:     st,
		tickets:   tickets,
		secret:    secret,
		backupDir: backupDir,
		zone:      zone,
	}
}

// ClearActive empties the active collection when secret matches.
// The archive and the id sequence are kept.
func (s *AdminService) ClearActive(ctx context.Context, secret, actor string) (ClearResult, error) {
	if !s.secret.Match(secret) {
		logger.Warn("Clear active declined", logger.Actor(actor))
		return ClearResult{Message: "admin secret does not match"}, nil
	}

	n, err := s.store.ClearActive(ctx)
	if err != nil {
		return ClearResult{}, apperrors.Wrap(err, apperrors.CodeTicketUpdateFail, "clear active tickets failed", 500)
	}
	logger.Info("Active tickets cleared", logger.Actor(actor), zap.Int("count", n))

	if s.tickets != nil {
		ev := s.tickets.newEvent(domain.EventActiveCleared, nil, "", actor)
		ev.Message = "active tickets cleared"
		s.tickets.dispatch(ev)
	}
	return ClearResult{Success: true, Cleared: n, Message: "active tickets cleared"}, nil
}

// Backup writes a snapshot of both collections to the backup directory.
func (s *AdminService) Backup(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path, err := store.WriteBackup(s.backupDir, s.store.Snapshot(), s.store.Now(), s.zone)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeBackupFailed, "backup failed", 500)
	}
	return path, nil
}

// ForceClose completes an active ticket from any non-terminal status.
func (s *AdminService) ForceClose(ctx context.Context, id, actor string) (domain.Ticket, error) {
	if actor == "" {
		return domain.Ticket{}, apperrors.BadRequest(apperrors.CodeValidationFailed, "username is required")
	}
	return s.tickets.Update(ctx, id, domain.Patch{
		Action:   domain.ActionAdminForcedClose,
		Username: actor,
	})
}
