package main

import (
	"alcyxob/composer/internal/auth"
	"alcyxob/composer/internal/config"
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestTokenCommand_MintsValidToken(t *testing.T) {
	t.Cleanup(viper.Reset)
	root := newRootCommand()
	viper.Set("auth.jwt_secret", "test-secret")

	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs([]string{"token", "--subject", "alice"})
	require.NoError(t, root.ExecuteContext(context.Background()))

	issuer, err := auth.NewTokenIssuer("test-secret", time.Hour, time.Now)
	require.NoError(t, err)
	claims, err := issuer.Validate(strings.TrimSpace(stdout.String()))
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, auth.ScopeWrite, claims.Scope)
	assert.Contains(t, stderr.String(), "expires")
}

func TestTokenCommand_RequiresSecret(t *testing.T) {
	t.Cleanup(viper.Reset)
	root := newRootCommand()
	root.SetArgs([]string{"token"})
	root.SetOut(&bytes.Buffer{})

	err := root.ExecuteContext(context.Background())
	assert.ErrorContains(t, err, "jwt_secret")
}

func TestNewFileStorage_Local(t *testing.T) {
	cfg := config.Config{Storage: config.StorageConfig{
		Driver:      config.StorageDriverLocal,
		LocalPath:   t.TempDir(),
		CacheMaxAge: time.Hour,
	}}

	files, err := newFileStorage(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	names, err := files.List(context.Background(), "image")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestInitConfig_MissingExplicitFile(t *testing.T) {
	t.Cleanup(func() {
		cfgFile = ""
		viper.Reset()
	})
	cfgFile = t.TempDir() + "/missing.yaml"
	assert.Error(t, initConfig())
}
