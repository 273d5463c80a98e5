// Package credential issues and parses the QR payloads printed on seat
// tickets and rod tags.  A credential is a compact HS256 JWT whose claims
// only point at a row; callers must always re-resolve it in storage.
//
// Seat and rod credentials are signed with different keys derived from
// one secret, so a token of one class never verifies as the other.
package credential

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"
)

// Class distinguishes the two credential families.
type Class string

const (
	ClassSeat Class = "seat"
	ClassRod  Class = "rod"
)

var (
	// ErrMalformed is returned for payloads that are not credentials issued
	// by this service.
	ErrMalformed = errors.New("malformed credential")
	// ErrWrongClass is returned when a valid credential of the other class
	// is presented, e.g. a rod tag at a check-in scanner.
	ErrWrongClass = errors.New("wrong credential class")
)

// Claims is the payload of a credential.
type Claims struct {
	Class      Class  `json:"cls"`
	BookingID  string `json:"bid,omitempty"`
	SeatNumber int    `json:"sn,omitempty"`
	RodID      string `json:"rid,omitempty"`
	SeatID     uint64 `json:"sid,omitempty"`
	Version    int    `json:"v,omitempty"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies credentials.
type Issuer struct {
	seatKey []byte
	rodKey  []byte
	parser  *jwt.Parser
}

// NewIssuer derives the per-class signing keys from secret.
func NewIssuer(secret string) (*Issuer, error) {
	if secret == "" {
		return nil, errors.New("credential secret is empty")
	}
	seatKey, err := deriveKey(secret, "seat-credential/v1")
	if err != nil {
		return nil, err
	}
	rodKey, err := deriveKey(secret, "rod-credential/v1")
	if err != nil {
		return nil, err
	}
	return &Issuer{
		seatKey: seatKey,
		rodKey:  rodKey,
		parser:  jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})),
	}, nil
}

func deriveKey(secret, info string) ([]byte, error) {
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(info)), key); err != nil {
		return nil, fmt.Errorf("derive %s key: %w", info, err)
	}
	return key, nil
}

func (i *Issuer) key(c Class) []byte {
	if c == ClassRod {
		return i.rodKey
	}
	return i.seatKey
}

// IssueSeat returns a new credential for seat number n of a booking.
// Every call produces a different token.
func (i *Issuer) IssueSeat(bookingID string, n int) (string, error) {
	return i.sign(Claims{Class: ClassSeat, BookingID: bookingID, SeatNumber: n})
}

// IssueRod returns a new credential for a rod tag.
func (i *Issuer) IssueRod(rodID string, seatID uint64, version int) (string, error) {
	return i.sign(Claims{Class: ClassRod, RodID: rodID, SeatID: seatID, Version: version})
}

func (i *Issuer) sign(c Claims) (string, error) {
	c.ID = uuid.NewString()
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(i.key(c.Class))
}

// Parse verifies token as a credential of class want.
func (i *Issuer) Parse(token string, want Class) (*Claims, error) {
	if c, err := i.verify(token, want); err == nil {
		return c, nil
	}
	other := ClassRod
	if want == ClassRod {
		other = ClassSeat
	}
	if _, err := i.verify(token, other); err == nil {
		return nil, fmt.Errorf("%w: got %s credential, want %s", ErrWrongClass, other, want)
	}
	return nil, ErrMalformed
}

func (i *Issuer) verify(token string, class Class) (*Claims, error) {
	claims := &Claims{}
	t, err := i.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return i.key(class), nil
	})
	if err != nil || !t.Valid {
		return nil, ErrMalformed
	}
	if claims.Class != class {
		return nil, ErrMalformed
	}
	return claims, nil
}
