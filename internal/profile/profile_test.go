package profile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yuuki-launcher/yuuki-core/internal/domain"
)

const fabricProfile = `id: fabric-1
name: Fabric Survival
loader: fabric
java:
  path: /opt/java/bin/java
  minimum_version: "21"
settings:
  ram_mb: 6144
  java_flags:
    - -XX:+UseZGC
    - -Dfile.encoding=UTF-8
`

func writeProfile(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	profile, err := Load(writeProfile(t, fabricProfile))
	require.NoError(t, err)

	assert.Equal(t, Profile{
		ID:     "fabric-1",
		Name:   "Fabric Survival",
		Loader: LoaderFabric,
		Java:   Java{Path: "/opt/java/bin/java", MinimumVersion: "21"},
		Settings: Settings{
			RAMMB:     6144,
			JavaFlags: []string{"-XX:+UseZGC", "-Dfile.encoding=UTF-8"},
		},
	}, profile)
}

func TestLoadToleratesUnknownKeys(t *testing.T) {
	profile, err := Load(writeProfile(t, "id: x\nname: X\nloader: forge\ncolor: red\nlauncher:\n  theme: dark\n"))
	require.NoError(t, err)

	assert.Equal(t, "x", profile.ID)
	assert.Equal(t, LoaderForge, profile.Loader)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, domain.ErrConfigIO)

	tests := []struct {
		name string
		body string
	}{
		{name: "malformed yaml", body: "id: [unterminated"},
		{name: "unknown loader", body: "id: x\nname: X\nloader: rift\n"},
		{name: "missing name", body: "id: x\nloader: forge\n"},
		{name: "empty document", body: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeProfile(t, tt.body))
			require.ErrorIs(t, err, domain.ErrConfigParse)
		})
	}
}

func TestParseLoader(t *testing.T) {
	for raw, want := range map[string]Loader{
		"Vanilla":  LoaderVanilla,
		"forge":    LoaderForge,
		" FABRIC ": LoaderFabric,
		"quilt":    LoaderQuilt,
		"NeoForge": LoaderNeoForge,
	} {
		got, err := ParseLoader(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got)
	}

	_, err := ParseLoader("liteloader")
	require.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles", "default.yaml")

	require.NoError(t, Save(path, Default()))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), loaded)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSaveRejectsIncompleteProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")

	err := Save(path, Profile{ID: "x"})
	require.ErrorIs(t, err, domain.ErrConfigParse)
	assert.NoFileExists(t, path)
}

func TestPreview(t *testing.T) {
	preview, err := Preview(writeProfile(t, fabricProfile))
	require.NoError(t, err)
	assert.Equal(t, "Profile: Fabric Survival (loader Fabric)", preview)

	_, err = Preview(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, domain.ErrConfigIO)
}
