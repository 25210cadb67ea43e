package profile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuuki-launcher/yuuki-core/internal/domain"
	"gopkg.in/yaml.v3"
)

const (
	profileFileMode = 0o600
	profileDirMode  = 0o700
)

type Loader string

const (
	LoaderVanilla  Loader = "Vanilla"
	LoaderForge    Loader = "Forge"
	LoaderFabric   Loader = "Fabric"
	LoaderQuilt    Loader = "Quilt"
	LoaderNeoForge Loader = "NeoForge"
)

func ParseLoader(raw string) (Loader, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "vanilla":
		return LoaderVanilla, nil
	case "forge":
		return LoaderForge, nil
	case "fabric":
		return LoaderFabric, nil
	case "quilt":
		return LoaderQuilt, nil
	case "neoforge":
		return LoaderNeoForge, nil
	default:
		return "", fmt.Errorf("unsupported loader %q", raw)
	}
}

func (l *Loader) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}

	parsed, err := ParseLoader(raw)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*l = parsed
	return nil
}

type Java struct {
	Path           string `yaml:"path"`
	MinimumVersion string `yaml:"minimum_version"`
}

type Settings struct {
	RAMMB     uint32   `yaml:"ram_mb"`
	JavaFlags []string `yaml:"java_flags"`
}

// Profile is one launchable game configuration.
type Profile struct {
	ID       string   `yaml:"id"`
	Name     string   `yaml:"name"`
	Loader   Loader   `yaml:"loader"`
	Java     Java     `yaml:"java"`
	Settings Settings `yaml:"settings"`
}

// Default is the onboarding profile offered before the user has made one.
func Default() Profile {
	return Profile{
		ID:     "default",
		Name:   "Default Profile",
		Loader: LoaderVanilla,
		Java: Java{
			Path:           "/usr/lib/jvm/temurin/bin/java",
			MinimumVersion: "17",
		},
		Settings: Settings{
			RAMMB:     4096,
			JavaFlags: []string{"-XX:+UseG1GC"},
		},
	}
}

func (p Profile) validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return errors.New("profile id is required")
	}
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("profile name is required")
	}
	if p.Loader == "" {
		return errors.New("profile loader is required")
	}
	return nil
}

func Load(path string) (Profile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("%w: read profile %s: %w", domain.ErrConfigIO, path, err)
	}

	var profile Profile
	if err := yaml.Unmarshal(raw, &profile); err != nil {
		return Profile{}, fmt.Errorf("%w: decode profile %s: %w", domain.ErrConfigParse, path, err)
	}
	if err := profile.validate(); err != nil {
		return Profile{}, fmt.Errorf("%w: profile %s: %w", domain.ErrConfigParse, path, err)
	}

	return profile, nil
}

// Save writes the profile atomically, creating parent directories as needed.
func Save(path string, profile Profile) error {
	if err := profile.validate(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrConfigParse, err)
	}

	encoded, err := yaml.Marshal(profile)
	if err != nil {
		return fmt.Errorf("%w: encode profile: %w", domain.ErrConfigParse, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, profileDirMode); err != nil {
		return fmt.Errorf("%w: create profile dir: %w", domain.ErrConfigIO, err)
	}

	tmp, err := os.CreateTemp(dir, ".profile-*.yaml.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp profile: %w", domain.ErrConfigIO, err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(encoded); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: write temp profile: %w", domain.ErrConfigIO, err)
	}
	if err := tmp.Chmod(profileFileMode); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: chmod temp profile: %w", domain.ErrConfigIO, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close temp profile: %w", domain.ErrConfigIO, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("%w: replace profile: %w", domain.ErrConfigIO, err)
	}

	return nil
}

// Preview renders the one-line summary shown before a profile is launched.
func Preview(path string) (string, error) {
	profile, err := Load(path)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("Profile: %s (loader %s)", profile.Name, profile.Loader), nil
}
