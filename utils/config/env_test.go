package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
default_model: "v2408"
tags_dir: /srv/tagup/tags
backends:
  local:
    kind: openai
    endpoint: http://localhost:8000/v1
    timeout: 45s
  sidecar:
    kind: http
    endpoint: http://localhost:9000
prompt_templates:
  v3-pretrain: |
    <|bos|>{rating}{aspect_ratio}{length}
    <copyright>{copyright}</copyright>
  v2408-translation: "<|bos|>{aspect_ratio}{rating}{length}<copyright>"
  v2408-extension: "<|bos|>{aspect_ratio}{rating}{length}<copyright>{copyright}</copyright>"
models:
  - name: "v3"
    version: v3
    backend: local
    repo: p1atdev/dart-v3-llama-8L-241018-2
    tokenizer: /srv/tagup/v3/tokenizer.json
    prompt_template_id: v3-pretrain
  - name: "v2408"
    version: v2408
    backend: sidecar
    remote_model: dart-v2408
    tokenizer: /srv/tagup/v2408/tokenizer.json
    prompt_template_ids:
      translation: v2408-translation
      extension: v2408-extension
`

func TestParseEnvConfig(t *testing.T) {
	cfg, err := ParseEnvConfig([]byte(sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "v2408", cfg.DefaultModel)
	assert.Equal(t, 8088, cfg.Server.Port, "server port falls back to default")
	assert.Equal(t, 45*time.Second, cfg.Backends["local"].Timeout)
	assert.Equal(t, []string{"v2408", "v3"}, cfg.ModelNames())

	m, err := cfg.GetModel("")
	require.NoError(t, err)
	assert.Equal(t, "dart-v2408", m.Remote())

	v3, err := cfg.GetModel("v3")
	require.NoError(t, err)
	assert.Equal(t, "p1atdev/dart-v3-llama-8L-241018-2", v3.Remote())

	templates := cfg.TemplatesFor(v3)
	assert.Equal(t, "<|bos|>{rating}{aspect_ratio}{length}<copyright>{copyright}</copyright>", templates["default"])

	multi := cfg.TemplatesFor(m)
	assert.Len(t, multi, 2)
	assert.Contains(t, multi["translation"], "<copyright>")

	copyright, character, err := cfg.TagListPaths("v2408")
	require.NoError(t, err)
	assert.Equal(t, "/srv/tagup/tags/v2408/copyright.txt", copyright)
	assert.Equal(t, "/srv/tagup/tags/v2408/character.txt", character)
}

func TestGetModelNotFound(t *testing.T) {
	cfg := DefaultEnvConfig()
	_, err := cfg.GetModel("missing")
	assert.ErrorIs(t, err, ErrModelNotFound)
}

func TestValidateRejectsBrokenReferences(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "unknown backend",
			yaml: "models:\n  - name: a\n    version: v3\n    backend: nope\n",
		},
		{
			name: "unknown template",
			yaml: "models:\n  - name: a\n    version: v3\n    prompt_template_id: nope\n",
		},
		{
			name: "missing version",
			yaml: "models:\n  - name: a\n",
		},
		{
			name: "duplicate name",
			yaml: "models:\n  - name: a\n    version: v3\n  - name: a\n    version: v2\n",
		},
		{
			name: "bad backend kind",
			yaml: "backends:\n  x:\n    kind: grpc\n    endpoint: localhost:1\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseEnvConfig([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadEnvConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadEnvConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultServerConfig().Port, cfg.Server.Port)
	assert.Empty(t, cfg.Models)
}

func TestLoadEnvConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0644))

	cfg, err := LoadEnvConfig(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Models, 2)
}

func TestGetEnvPathHonoursEnvironment(t *testing.T) {
	t.Setenv("TAGUP_CONFIG", "/tmp/custom.yaml")
	assert.Equal(t, "/tmp/custom.yaml", GetEnvPath())
}

func TestSaveEnvConfigRoundTrip(t *testing.T) {
	cfg, err := ParseEnvConfig([]byte(sampleConfig))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, SaveEnvConfig(path, cfg))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := LoadEnvConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Models, loaded.Models)
	assert.Equal(t, 45*time.Second, loaded.Backends["local"].Timeout)
	assert.Equal(t, cfg.PromptTemplates, loaded.PromptTemplates)
}

func TestRemoveModel(t *testing.T) {
	cfg, err := ParseEnvConfig([]byte(sampleConfig))
	require.NoError(t, err)

	require.NoError(t, cfg.RemoveModel("v2408"))
	assert.Equal(t, []string{"v3"}, cfg.ModelNames())
	assert.Empty(t, cfg.DefaultModel)

	assert.ErrorIs(t, cfg.RemoveModel("v2408"), ErrModelNotFound)
}
