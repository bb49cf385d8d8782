package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/rusa-rba/route-assign/internal/models"
	appErrors "github.com/rusa-rba/route-assign/pkg/errors"
)

const stateIssuer = "rba-route-assign"

type stateClaims struct {
	State models.WorkflowState `json:"wf"`
	jwt.RegisteredClaims
}

// StateCodec signs workflow state so it can be held by the caller between
// requests without being altered.
type StateCodec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewStateCodec constructs a codec. A non-positive ttl defaults to two hours.
func NewStateCodec(secret string, ttl time.Duration) *StateCodec {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &StateCodec{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Encode signs state into an opaque token.
func (c *StateCodec) Encode(state models.WorkflowState) (string, error) {
	now := c.now().UTC()
	claims := stateClaims{
		State: state,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    stateIssuer,
			Subject:   state.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign workflow state: %w", err)
	}
	return token, nil
}

// Decode verifies a token and returns the state it carries.
func (c *StateCodec) Decode(token string) (models.WorkflowState, error) {
	claims := &stateClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(stateIssuer),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil || !parsed.Valid {
		message := "workflow state is invalid; please start again"
		if errors.Is(err, jwt.ErrTokenExpired) {
			message = "workflow state has expired; please start again"
		}
		return models.WorkflowState{}, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, message)
	}
	return claims.State, nil
}
