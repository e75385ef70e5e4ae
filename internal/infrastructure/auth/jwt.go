package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Role determines which room operations a connection may perform.
type Role string

const (
	// RoleAdmin runs the auction: lot selection, lifecycle, pause and end.
	RoleAdmin Role = "admin"
	// RoleBidder places bids for exactly one team.
	RoleBidder Role = "bidder"
	// RoleViewer observes the room without acting.
	RoleViewer Role = "viewer"
)

// Claims carries the identity bound to a room connection. A bidder token is
// pinned to one team; the gateway never trusts a client-supplied team ID.
type Claims struct {
	jwt.RegisteredClaims
	Role      Role       `json:"role"`
	AuctionID uuid.UUID  `json:"auction_id"`
	TeamID    *uuid.UUID `json:"team_id,omitempty"`
	Name      string     `json:"name,omitempty"`
}

// Config holds token signing settings.
type Config struct {
	Secret      []byte
	TokenExpiry time.Duration
	Issuer      string
}

// TokenService issues and validates room tokens, HS256 signed.
type TokenService struct {
	config Config
}

// NewTokenService creates a token service.
func NewTokenService(config Config) *TokenService {
	if config.TokenExpiry == 0 {
		config.TokenExpiry = 12 * time.Hour
	}
	return &TokenService{config: config}
}

// GenerateToken signs a token for a participant. TeamID is nil for admins
// and viewers.
func (s *TokenService) GenerateToken(auctionID uuid.UUID, role Role, teamID *uuid.UUID, name string) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    s.config.Issuer,
			Subject:   name,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.TokenExpiry)),
		},
		Role:      role,
		AuctionID: auctionID,
		TeamID:    teamID,
		Name:      name,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.config.Secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and verifies a token, returning its claims.
func (s *TokenService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.config.Secret, nil
	}, jwt.WithIssuer(s.config.Issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if claims.Role == RoleBidder && claims.TeamID == nil {
		return nil, fmt.Errorf("bidder token missing team")
	}
	return claims, nil
}
