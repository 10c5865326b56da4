package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// TokenService turns a claims mapping into a compact signed string and back.
// Implementations hold no mutable state beyond the signing secret and are
// safe for unlimited parallel use.
type TokenService interface {
	Encode(claims map[string]any, ttl time.Duration) (string, error)
	Decode(token string) (Claims, error)
}

// TokenServiceImpl implements the TokenService interface
type TokenServiceImpl struct {
	signingKey []byte
	logger     Logger
}

// NewTokenService creates a new TokenService instance
func NewTokenService(signingKey []byte, logger Logger) *TokenServiceImpl {
	if logger == nil {
		logger = defLogger{}
	}
	return &TokenServiceImpl{
		signingKey: signingKey,
		logger:     logger,
	}
}

// Encode signs the given claims with HS256, setting exp to now+ttl. Any
// caller-supplied exp is overwritten; expiry always comes from the ttl.
func (ts *TokenServiceImpl) Encode(claims map[string]any, ttl time.Duration) (string, error) {
	payload := make(jwt.MapClaims, len(claims)+1)
	for k, v := range claims {
		payload[k] = v
	}
	payload[ClaimExpires] = time.Now().Add(ttl).Unix()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, payload)

	signedString, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

// Decode parses and verifies a token string. It returns ErrTokenExpired when
// exp has passed and a TOKEN_INVALID error for any signature, format, or
// algorithm failure; callers can tell "refresh and retry" from garbage.
func (ts *TokenServiceImpl) Decode(tokenString string) (Claims, error) {
	payload := jwt.MapClaims{}

	token, err := jwt.ParseWithClaims(tokenString, payload, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("token decode: unexpected signing method: %v", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
			WithTextCode(ErrTokenMalformed.TextCode).
			WithCode(errors.CodeUnauthorized)
	}

	if !token.Valid {
		return nil, ErrTokenMalformed
	}

	return Claims(payload), nil
}

// EncodeSession issues a session token for the user with the configured TTL.
func EncodeSession(ts TokenService, user *User, expiration int) (string, error) {
	if user == nil {
		return "", errors.New("user must not be nil", errors.CategoryInternal)
	}
	return ts.Encode(map[string]any{
		ClaimUserID: user.ID,
	}, time.Duration(expiration)*time.Hour)
}
