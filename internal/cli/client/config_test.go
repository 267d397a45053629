package client

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useTempConfig(t *testing.T) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "docqa", "config.yaml")

	oldGetConfigPath := getConfigPathFunc
	getConfigPathFunc = func() (string, error) {
		return configPath, nil
	}
	t.Cleanup(func() { getConfigPathFunc = oldGetConfigPath })
	return configPath
}

func TestGetConfigPath_Default(t *testing.T) {
	path, err := GetConfigPath()
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(path))
	assert.Equal(t, "config.yaml", filepath.Base(path))
	assert.Equal(t, "docqa", filepath.Base(filepath.Dir(path)))
}

func TestLoadGlobalConfig_FileNotExists(t *testing.T) {
	useTempConfig(t)

	config, err := LoadGlobalConfig()
	require.NoError(t, err)
	assert.Nil(t, config)
}

func TestSaveAndLoadGlobalConfig(t *testing.T) {
	configPath := useTempConfig(t)

	require.NoError(t, SaveGlobalConfig(&GlobalConfig{APIURL: "http://docqa.internal:9000"}))

	data, err := os.ReadFile(configPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "api_url: http://docqa.internal:9000")

	info, err := os.Stat(configPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	config, err := LoadGlobalConfig()
	require.NoError(t, err)
	require.NotNil(t, config)
	assert.Equal(t, "http://docqa.internal:9000", config.APIURL)
}

func TestLoadGlobalConfig_InvalidYAML(t *testing.T) {
	configPath := useTempConfig(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(configPath), 0755))
	require.NoError(t, os.WriteFile(configPath, []byte("api_url: [unterminated"), 0600))

	_, err := LoadGlobalConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestSaveGlobalConfig_Nil(t *testing.T) {
	assert.Error(t, SaveGlobalConfig(nil))
}

func TestResolveAPIURL_Cascade(t *testing.T) {
	useTempConfig(t)
	t.Setenv(envAPIURL, "")

	source, apiURL, err := ResolveAPIURL("")
	require.NoError(t, err)
	assert.Equal(t, SourceDefault, source)
	assert.Equal(t, defaultAPIURL, apiURL)

	require.NoError(t, SaveGlobalConfig(&GlobalConfig{APIURL: "http://from-file"}))
	source, apiURL, err = ResolveAPIURL("")
	require.NoError(t, err)
	assert.Equal(t, SourceGlobalConfig, source)
	assert.Equal(t, "http://from-file", apiURL)

	t.Setenv(envAPIURL, "http://from-env")
	source, apiURL, err = ResolveAPIURL("")
	require.NoError(t, err)
	assert.Equal(t, SourceEnv, source)
	assert.Equal(t, "http://from-env", apiURL)

	source, apiURL, err = ResolveAPIURL("http://from-flag")
	require.NoError(t, err)
	assert.Equal(t, SourceFlag, source)
	assert.Equal(t, "http://from-flag", apiURL)
}
