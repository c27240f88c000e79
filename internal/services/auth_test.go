package services

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/certquiz-backend/internal/data/repos/testutil"
	userrepo "github.com/yungbote/certquiz-backend/internal/data/repos/user"
	"github.com/yungbote/certquiz-backend/internal/platform/ctxutil"
	"github.com/yungbote/certquiz-backend/internal/platform/dbctx"
)

const testSecret = "test-secret"

func signToken(t *testing.T, method jwt.SigningMethod, key any, claims JWTClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func validClaims(sub uuid.UUID) JWTClaims {
	return JWTClaims{
		Email: "learner@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub.String(),
			Issuer:    "certquiz-auth",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func TestSetContextFromTokenMirrorsUser(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	users := userrepo.NewUserRepo(db, log)
	svc := NewAuthService(log, users, testSecret, "certquiz-auth")

	sub := uuid.New()
	ctx, err := svc.SetContextFromToken(context.Background(), signToken(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims(sub)))
	require.NoError(t, err)
	assert.Equal(t, sub, ctxutil.UserID(ctx))

	u, err := users.GetByID(dbctx.New(context.Background()), sub)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "learner@example.com", u.Email)

	_, err = svc.SetContextFromToken(context.Background(), signToken(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims(sub)))
	require.NoError(t, err)
}

func TestSetContextFromTokenRejects(t *testing.T) {
	svc := NewAuthService(testutil.Logger(t), nil, testSecret, "certquiz-auth")
	sub := uuid.New()

	expired := validClaims(sub)
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	wrongIssuer := validClaims(sub)
	wrongIssuer.Issuer = "someone-else"

	badSubject := validClaims(sub)
	badSubject.Subject = "not-a-uuid"

	cases := map[string]string{
		"empty":        "",
		"garbage":      "abc.def.ghi",
		"wrong secret": signToken(t, jwt.SigningMethodHS256, []byte("other"), validClaims(sub)),
		"expired":      signToken(t, jwt.SigningMethodHS256, []byte(testSecret), expired),
		"issuer":       signToken(t, jwt.SigningMethodHS256, []byte(testSecret), wrongIssuer),
		"subject":      signToken(t, jwt.SigningMethodHS256, []byte(testSecret), badSubject),
		"alg":          signToken(t, jwt.SigningMethodHS512, []byte(testSecret), validClaims(sub)),
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			ctx, err := svc.SetContextFromToken(context.Background(), token)
			assert.Error(t, err)
			assert.Equal(t, uuid.Nil, ctxutil.UserID(ctx))
		})
	}
}
