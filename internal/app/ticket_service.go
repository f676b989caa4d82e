package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/form3tech-oss/jwt-go"
	"github.com/google/uuid"
)

// TicketActionJoin is the only action an invite ticket grants.
const TicketActionJoin = "join"

// DefaultTicketTTL applies when no ticket lifetime is configured.
const DefaultTicketTTL = 24 * time.Hour

// ErrInvalidTicket is returned when an invite ticket fails verification.
var ErrInvalidTicket = errors.New("invalid invite ticket")

// TicketService issues and verifies signed invites to private rooms.
type TicketService struct {
	secret string
	issuer string
	ttl    time.Duration
}

func NewTicketService(secret, issuer string, ttl time.Duration) *TicketService {
	if ttl == 0 {
		ttl = DefaultTicketTTL
	}
	return &TicketService{
		secret: secret,
		issuer: issuer,
		ttl:    ttl,
	}
}

// Enabled reports whether tickets can be issued.
func (s *TicketService) Enabled() bool {
	return s != nil && s.secret != "" && s.issuer != ""
}

// Issue signs a ticket granting entry to roomID.
func (s *TicketService) Issue(roomID string) (string, error) {
	if !s.Enabled() {
		return "", fmt.Errorf("ticket config is incomplete")
	}
	if roomID == "" {
		return "", fmt.Errorf("room id is required")
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"iss": s.issuer,
		"sub": roomID,
		"iat": now.Unix(),
		"exp": now.Add(s.ttl).Unix(),
		"jti": uuid.NewString(),
		"act": TicketActionJoin,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.secret))
}

// Verify checks signature, expiry, issuer and that the ticket was issued for roomID.
func (s *TicketService) Verify(ticket, roomID string) error {
	if !s.Enabled() {
		return fmt.Errorf("%w: ticket config is incomplete", ErrInvalidTicket)
	}

	token, err := jwt.Parse(ticket, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.secret), nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTicket, err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return ErrInvalidTicket
	}
	if !claims.VerifyIssuer(s.issuer, true) {
		return fmt.Errorf("%w: issuer mismatch", ErrInvalidTicket)
	}
	if sub, _ := claims["sub"].(string); sub != roomID {
		return fmt.Errorf("%w: issued for another room", ErrInvalidTicket)
	}
	if act, _ := claims["act"].(string); act != TicketActionJoin {
		return fmt.Errorf("%w: unsupported action", ErrInvalidTicket)
	}
	return nil
}
