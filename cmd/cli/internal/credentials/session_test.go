package credentials

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/organizehub/internal/models"
)

const projectURL = "https://abc.supabase.co"

func testSession() *models.Session {
	return &models.Session{
		AccessToken:  "access",
		RefreshToken: "refresh",
		TokenType:    "bearer",
		ExpiresAt:    time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC),
		User:         models.User{ID: "user-1", Email: "ada@example.com"},
	}
}

func TestSessionFile_roundTrip(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "orgctl")

	f, err := NewSessionFile(dir, projectURL)
	require.NoError(t, err)

	t.Run("missing file is no session", func(t *testing.T) {
		session, err := f.Load(ctx)
		require.NoError(t, err)
		assert.Nil(t, session)
	})

	t.Run("save restricts permissions", func(t *testing.T) {
		require.NoError(t, f.Save(ctx, testSession()))

		info, err := os.Stat(f.Path())
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

		info, err = os.Stat(dir)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0700), info.Mode().Perm())
	})

	t.Run("load returns saved session", func(t *testing.T) {
		session, err := f.Load(ctx)
		require.NoError(t, err)
		require.NotNil(t, session)
		assert.Equal(t, "refresh", session.RefreshToken)
		assert.Equal(t, "user-1", session.User.ID)
		assert.True(t, session.ExpiresAt.Equal(testSession().ExpiresAt))
	})

	t.Run("clear removes the file", func(t *testing.T) {
		require.NoError(t, f.Clear(ctx))
		_, err := os.Stat(f.Path())
		assert.True(t, os.IsNotExist(err))

		// clearing twice is fine
		require.NoError(t, f.Clear(ctx))
	})
}

func TestSessionFile_otherProject(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	f, err := NewSessionFile(dir, projectURL)
	require.NoError(t, err)
	require.NoError(t, f.Save(ctx, testSession()))

	other, err := NewSessionFile(dir, "https://other.supabase.co")
	require.NoError(t, err)

	session, err := other.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, session)
}

func TestSessionFile_corrupt(t *testing.T) {
	dir := t.TempDir()
	f, err := NewSessionFile(dir, projectURL)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(f.Path(), []byte("session: [unterminated"), 0600))

	_, err = f.Load(context.Background())
	require.Error(t, err)
}

func TestNewSessionFile_defaultDir(t *testing.T) {
	f, err := NewSessionFile("", projectURL)
	// If home dir is available, this should succeed
	if err != nil {
		assert.Contains(t, err.Error(), "home directory")
		return
	}
	assert.Equal(t, filepath.Join(".organizehub", "session.yaml"), filepath.Join(filepath.Base(filepath.Dir(f.Path())), filepath.Base(f.Path())))
}
