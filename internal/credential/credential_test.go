package credential

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIssuer(t *testing.T) *Issuer {
	t.Helper()
	iss, err := NewIssuer("test-secret")
	require.NoError(t, err)
	return iss
}

func TestSeatRoundTrip(t *testing.T) {
	iss := newIssuer(t)
	tok, err := iss.IssueSeat("b-1", 3)
	require.NoError(t, err)

	c, err := iss.Parse(tok, ClassSeat)
	require.NoError(t, err)
	assert.Equal(t, "b-1", c.BookingID)
	assert.Equal(t, 3, c.SeatNumber)
	assert.NotEmpty(t, c.ID)
}

func TestCredentialsAreUnique(t *testing.T) {
	iss := newIssuer(t)
	a, err := iss.IssueSeat("b-1", 1)
	require.NoError(t, err)
	b, err := iss.IssueSeat("b-1", 1)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestWrongClassIsDistinct(t *testing.T) {
	iss := newIssuer(t)
	seat, err := iss.IssueSeat("b-1", 1)
	require.NoError(t, err)
	rod, err := iss.IssueRod("r-1", 7, 1)
	require.NoError(t, err)

	_, err = iss.Parse(seat, ClassRod)
	assert.ErrorIs(t, err, ErrWrongClass)

	_, err = iss.Parse(rod, ClassSeat)
	assert.ErrorIs(t, err, ErrWrongClass)

	c, err := iss.Parse(rod, ClassRod)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), c.SeatID)
}

func TestMalformed(t *testing.T) {
	iss := newIssuer(t)
	_, err := iss.Parse("not-a-token", ClassSeat)
	assert.ErrorIs(t, err, ErrMalformed)

	tok, err := iss.IssueSeat("b-1", 1)
	require.NoError(t, err)
	_, err = iss.Parse(tok+"x", ClassSeat)
	assert.ErrorIs(t, err, ErrMalformed)

	other, err := NewIssuer("another-secret")
	require.NoError(t, err)
	_, err = other.Parse(tok, ClassSeat)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestEmptySecret(t *testing.T) {
	_, err := NewIssuer("")
	assert.Error(t, err)
}
