package client

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "pck_0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

// useConfigPath points the global config at a temp dir for one test.
func useConfigPath(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "plancheck")
	path := filepath.Join(dir, "config.json")

	oldDir, oldPath := getConfigDirFunc, getConfigPathFunc
	getConfigDirFunc = func() (string, error) { return dir, nil }
	getConfigPathFunc = func() (string, error) { return path, nil }
	t.Cleanup(func() {
		getConfigDirFunc, getConfigPathFunc = oldDir, oldPath
	})
	return path
}

func TestGetConfigDir(t *testing.T) {
	dir, err := GetConfigDir()
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(dir))
	assert.True(t, strings.HasSuffix(dir, "plancheck"))
}

func TestGlobalConfig_RoundTrip(t *testing.T) {
	path := useConfigPath(t)

	cfg, err := LoadGlobalConfig()
	require.NoError(t, err)
	assert.Nil(t, cfg, "missing file is not an error")

	require.NoError(t, SaveGlobalConfig(&GlobalConfig{APIKey: testKey, APIURL: "http://plancheck:8080"}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	cfg, err = LoadGlobalConfig()
	require.NoError(t, err)
	assert.Equal(t, &GlobalConfig{APIKey: testKey, APIURL: "http://plancheck:8080"}, cfg)

	require.NoError(t, DeleteGlobalConfig())
	require.NoError(t, DeleteGlobalConfig(), "deleting twice is fine")
	assert.NoFileExists(t, path)
}

func TestLoadGlobalConfig_InvalidJSON(t *testing.T) {
	path := useConfigPath(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("{invalid"), 0o600))

	_, err := LoadGlobalConfig()

	assert.ErrorContains(t, err, "failed to parse config file")
}

func TestSaveGlobalConfig_NilConfig(t *testing.T) {
	assert.Error(t, SaveGlobalConfig(nil))
}

func TestIsValidAPIKey(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{testKey, true},
		{strings.ToUpper(testKey[:4]) + testKey[4:], false},
		{"pck_" + strings.ToUpper(testKey[4:]), true},
		{"key_" + testKey[4:], false},
		{testKey[:len(testKey)-1], false},
		{"pck_" + strings.Repeat("g", 64), false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidAPIKey(tt.key))
		})
	}
}

func TestGetCredentialSource(t *testing.T) {
	useConfigPath(t)
	require.NoError(t, SaveGlobalConfig(&GlobalConfig{APIKey: "pck_global", APIURL: "http://global"}))

	t.Run("flags win", func(t *testing.T) {
		t.Setenv(envAPIKey, "pck_env")
		t.Setenv(envAPIURL, "http://env")
		source, key, url := GetCredentialSource("pck_flag", "http://flag")
		assert.Equal(t, SourceFlag, source)
		assert.Equal(t, "pck_flag", key)
		assert.Equal(t, "http://flag", url)
	})

	t.Run("env over global", func(t *testing.T) {
		t.Setenv(envAPIKey, "pck_env")
		t.Setenv(envAPIURL, "http://env")
		source, key, _ := GetCredentialSource("", "")
		assert.Equal(t, SourceEnvFile, source)
		assert.Equal(t, "pck_env", key)
	})

	t.Run("partial env falls through", func(t *testing.T) {
		t.Setenv(envAPIKey, "pck_env")
		t.Setenv(envAPIURL, "")
		source, key, _ := GetCredentialSource("", "")
		assert.Equal(t, SourceGlobalConfig, source)
		assert.Equal(t, "pck_global", key)
	})
}
