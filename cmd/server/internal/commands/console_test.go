package commands

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/organizehub/internal/store"
	"github.com/wolfeidau/organizehub/internal/store/memory"
)

func TestSupabaseFlags_Validate(t *testing.T) {
	tests := []struct {
		name    string
		flags   SupabaseFlags
		wantErr error
	}{
		{name: "valid", flags: SupabaseFlags{URL: "https://abc.supabase.co", AnonKey: "anon"}},
		{name: "missing url", flags: SupabaseFlags{AnonKey: "anon"}, wantErr: store.ErrMissingConfig},
		{name: "missing key", flags: SupabaseFlags{URL: "https://abc.supabase.co"}, wantErr: store.ErrMissingConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.flags.Validate()
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestConsoleCmd_newBackend_memory(t *testing.T) {
	c := &ConsoleCmd{Backend: "memory"}

	backend, signup, err := c.newBackend(context.Background(), zerolog.Nop())
	require.NoError(t, err)

	mem, ok := backend.(*memory.Backend)
	require.True(t, ok)
	require.Equal(t, 1, mem.DB.Count(memory.TableOrganizations))

	disabled, err := signup(context.Background())
	require.NoError(t, err)
	require.False(t, disabled)
}

func TestConsoleCmd_newBackend_supabaseRequiresConfig(t *testing.T) {
	c := &ConsoleCmd{Backend: "supabase"}

	_, _, err := c.newBackend(context.Background(), zerolog.Nop())
	require.ErrorIs(t, err, store.ErrMissingConfig)
}

func TestConsoleCmd_validateTLS(t *testing.T) {
	dir := t.TempDir()
	cert := filepath.Join(dir, "cert.pem")
	key := filepath.Join(dir, "key.pem")
	require.NoError(t, os.WriteFile(cert, []byte("cert"), 0o600))
	require.NoError(t, os.WriteFile(key, []byte("key"), 0o600))

	tests := []struct {
		name    string
		cmd     ConsoleCmd
		wantErr bool
	}{
		{name: "present", cmd: ConsoleCmd{Cert: cert, Key: key}},
		{name: "unset", cmd: ConsoleCmd{}, wantErr: true},
		{name: "missing key file", cmd: ConsoleCmd{Cert: cert, Key: filepath.Join(dir, "nope.pem")}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cmd.validateTLS()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestIgnoreClosed(t *testing.T) {
	require.NoError(t, ignoreClosed(http.ErrServerClosed))

	boom := errors.New("boom")
	require.ErrorIs(t, ignoreClosed(boom), boom)
}
