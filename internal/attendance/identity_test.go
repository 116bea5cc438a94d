package attendance

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"presensi/internal/roster"
)

func TestSanitizeCode(t *testing.T) {
	assert.Equal(t, "15012", SanitizeCode("15012\r\n"))
	assert.Equal(t, "15012", SanitizeCode("\x0215012\x03"))
	assert.Equal(t, "15012", SanitizeCode("  15012\u0085 "))
	assert.Equal(t, "A 1", SanitizeCode(" A 1\t"))
	assert.Empty(t, SanitizeCode("\x00\x1f\x7f"))
}

func TestResolveOrder(t *testing.T) {
	repo := seedRoster(t)
	// a student whose key collides with another student's idUnik
	_, err := repo.CreateStudent(context.Background(), roster.Student{ID: "15013", Name: "Bilal", IDUnik: "99001", Gender: roster.Male})
	require.NoError(t, err)
	r := NewIdentityResolver(repo)
	ctx := context.Background()

	st, err := r.Resolve(ctx, "15013")
	require.NoError(t, err)
	assert.Equal(t, "Bilal", st.Name, "document key wins over idUnik")

	st, err = r.Resolve(ctx, "15012")
	require.NoError(t, err)
	assert.Equal(t, "s1", st.ID)

	st, err = r.Resolve(ctx, "0081234567")
	require.NoError(t, err)
	assert.Equal(t, "s1", st.ID)
}

func TestResolveErrors(t *testing.T) {
	r := NewIdentityResolver(seedRoster(t))
	ctx := context.Background()

	_, err := r.Resolve(ctx, "\r\n")
	assert.ErrorIs(t, err, ErrUnreadable)

	_, err = r.Resolve(ctx, "000")
	var nr *NotRegisteredError
	require.True(t, errors.As(err, &nr))
	assert.Equal(t, "000", nr.Code)

	_, err = NewIdentityResolver(brokenLookup{}).Resolve(ctx, "15012")
	require.Error(t, err)
	assert.False(t, errors.As(err, &nr))
	assert.NotErrorIs(t, err, ErrUnreadable)
}
