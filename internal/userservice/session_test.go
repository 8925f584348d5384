package userservice

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySessionStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemorySessionStore(time.Hour)

	token, err := s.Bind(ctx, 42)
	require.NoError(t, err)
	assert.Len(t, token, 26)

	id, err := s.Read(ctx, token)
	assert.NoError(t, err)
	assert.Equal(t, 42, id)

	require.NoError(t, s.Clear(ctx, token))

	_, err = s.Read(ctx, token)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemorySessionStore_TokensAreIndependent(t *testing.T) {
	ctx := context.Background()
	s := NewMemorySessionStore(time.Hour)

	a, err := s.Bind(ctx, 1)
	require.NoError(t, err)
	b, err := s.Bind(ctx, 2)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	require.NoError(t, s.Clear(ctx, a))

	id, err := s.Read(ctx, b)
	assert.NoError(t, err)
	assert.Equal(t, 2, id)
}

func TestMemorySessionStore_Expiry(t *testing.T) {
	ctx := context.Background()
	s := NewMemorySessionStore(5 * time.Millisecond)

	token, err := s.Bind(ctx, 1)
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	_, err = s.Read(ctx, token)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemorySessionStore_MalformedToken(t *testing.T) {
	s := NewMemorySessionStore(time.Hour)

	for _, token := range []string{"", "short", "way-too-long-to-be-a-session-token-value"} {
		_, err := s.Read(context.Background(), token)
		assert.ErrorIs(t, err, ErrSessionNotFound)
	}
}
