package service_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raycargo/backoffice/internal/domain"
	"github.com/raycargo/backoffice/internal/service"
)

func TestTokenService_IssueAndValidate(t *testing.T) {
	svc := service.NewTokenService("test-secret", time.Hour)

	tok, err := svc.Issue("worker-7", domain.RoleWorker)
	require.NoError(t, err)

	actor, err := svc.Validate(tok)
	require.NoError(t, err)
	assert.Equal(t, &domain.Actor{ID: "worker-7", Role: domain.RoleWorker}, actor)
}

func TestTokenService_Rejects(t *testing.T) {
	svc := service.NewTokenService("test-secret", time.Hour)
	other := service.NewTokenService("other-secret", time.Hour)
	expired := service.NewTokenService("test-secret", -time.Minute)

	foreign, err := other.Issue("a", domain.RoleAdmin)
	require.NoError(t, err)
	stale, err := expired.Issue("a", domain.RoleAdmin)
	require.NoError(t, err)
	refresh, err := jwt.NewWithClaims(jwt.SigningMethodHS256, service.Claims{
		Sub: "a", Role: domain.RoleAdmin, Type: "refresh",
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "backoffice"},
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	for name, tok := range map[string]string{
		"garbage":      "not-a-token",
		"wrong secret": foreign,
		"expired":      stale,
		"wrong type":   refresh,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Validate(tok)
			var unauth *domain.ErrUnauthorized
			assert.ErrorAs(t, err, &unauth)
		})
	}
}

func TestTokenService_IssueValidatesRole(t *testing.T) {
	svc := service.NewTokenService("s", time.Hour)

	_, err := svc.Issue("a", "root")
	var verr *domain.ErrValidation
	assert.ErrorAs(t, err, &verr)
}
