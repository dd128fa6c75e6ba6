package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeDotenv(t *testing.T, lines string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(lines), 0o600))
	return path
}

func clearTokenEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"ACCESS_TOKEN_SECRET", "REFRESH_TOKEN_SECRET", "ACCESS_TOKEN_TTL",
		"REFRESH_EXPIRES_DAYS", "APP_ENV", "SQLITE_PATH",
	} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearTokenEnv(t)
	path := writeDotenv(t, "ACCESS_TOKEN_SECRET=a-secret\nREFRESH_TOKEN_SECRET=r-secret\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, 10*time.Minute, cfg.Token.AccessTTL)
	require.Equal(t, 7, cfg.Token.RefreshTTLDays)
	require.Equal(t, 7*24*time.Hour, cfg.Token.RefreshTTL())
	require.False(t, cfg.Server.Production())
}

func TestLoadConfigOverrides(t *testing.T) {
	clearTokenEnv(t)
	path := writeDotenv(t, ""+
		"ACCESS_TOKEN_SECRET=a-secret\n"+
		"REFRESH_TOKEN_SECRET=r-secret\n"+
		"ACCESS_TOKEN_TTL=5m\n"+
		"REFRESH_EXPIRES_DAYS=30\n"+
		"APP_ENV=production\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, 5*time.Minute, cfg.Token.AccessTTL)
	require.Equal(t, 30, cfg.Token.RefreshTTLDays)
	require.True(t, cfg.Server.Production())
}

func TestLoadConfigRejectsMissingSecrets(t *testing.T) {
	clearTokenEnv(t)
	path := writeDotenv(t, "ACCESS_TOKEN_SECRET=a-secret\n")

	_, err := LoadConfig(path)
	require.ErrorIs(t, err, ErrMissingTokenSecret)
}

func TestLoadConfigRejectsSharedSecret(t *testing.T) {
	clearTokenEnv(t)
	path := writeDotenv(t, "ACCESS_TOKEN_SECRET=same\nREFRESH_TOKEN_SECRET=same\n")

	_, err := LoadConfig(path)
	require.ErrorIs(t, err, ErrSharedTokenSecret)
}
