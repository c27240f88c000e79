package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	userrepo "github.com/yungbote/certquiz-backend/internal/data/repos/user"
	"github.com/yungbote/certquiz-backend/internal/domain"
	"github.com/yungbote/certquiz-backend/internal/platform/ctxutil"
	"github.com/yungbote/certquiz-backend/internal/platform/dbctx"
	"github.com/yungbote/certquiz-backend/internal/platform/logger"
)

// JWTClaims are the claims we read from the external issuer's access token.
type JWTClaims struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// AuthService verifies bearer tokens. Issuance lives with the identity provider.
type AuthService interface {
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
}

type authService struct {
	log          *logger.Logger
	userRepo     userrepo.UserRepo
	jwtSecretKey string
	issuer       string
	mirrored     sync.Map
}

// NewAuthService mirrors each newly seen subject into the user table when
// userRepo is non-nil.
func NewAuthService(log *logger.Logger, userRepo userrepo.UserRepo, jwtSecretKey, issuer string) AuthService {
	return &authService{
		log:          log.With("service", "AuthService"),
		userRepo:     userRepo,
		jwtSecretKey: jwtSecretKey,
		issuer:       issuer,
	}
}

func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	if tokenString == "" {
		return ctx, errors.New("missing token")
	}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if as.issuer != "" {
		opts = append(opts, jwt.WithIssuer(as.issuer))
	}
	parsedToken, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(as.jwtSecretKey), nil
	}, opts...)
	if err != nil {
		return ctx, fmt.Errorf("parse token: %w", err)
	}
	claims, ok := parsedToken.Claims.(*JWTClaims)
	if !ok || !parsedToken.Valid {
		return ctx, errors.New("invalid or expired token")
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return ctx, fmt.Errorf("invalid user id in token: %w", err)
	}
	as.mirror(ctx, userID, claims)
	return ctxutil.WithRequestData(ctx, &ctxutil.RequestData{UserID: userID, TokenString: tokenString}), nil
}

func (as *authService) mirror(ctx context.Context, userID uuid.UUID, claims *JWTClaims) {
	if as.userRepo == nil {
		return
	}
	if _, seen := as.mirrored.Load(userID); seen {
		return
	}
	email := claims.Email
	if email == "" {
		email = userID.String() + "@users.invalid"
	}
	u := &domain.User{ID: userID, Email: email, DisplayName: claims.Name}
	if err := as.userRepo.Ensure(dbctx.New(ctx), u); err != nil {
		as.log.Warn("user mirror failed", "user_id", userID, "error", err)
		return
	}
	as.mirrored.Store(userID, struct{}{})
}
