// Package config persists the user's last-used inputs and tool settings.
//
// Settings live in a single file whose format is chosen by extension:
// .json/.jsonc (JSON with comments), .yaml/.yml, or .toml. A missing file
// yields defaults; values present in the file are merged over defaults.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// FileName is the default settings file name.
const FileName = "settings.json"

// Settings is the persisted configuration.
type Settings struct {
	RepoPath         string `json:"repo_path" yaml:"repo_path" toml:"repo_path"`
	OldSHA           string `json:"old_sha" yaml:"old_sha" toml:"old_sha"`
	NewSHA           string `json:"new_sha" yaml:"new_sha" toml:"new_sha"`
	OutputPath       string `json:"output_path" yaml:"output_path" toml:"output_path"`
	OutputFolderName string `json:"output_folder_name" yaml:"output_folder_name" toml:"output_folder_name"`
	PortableGitPath  string `json:"portable_git_path" yaml:"portable_git_path" toml:"portable_git_path"`

	// Workers bounds concurrent file extraction. Zero means one per CPU.
	Workers int `json:"workers" yaml:"workers" toml:"workers"`

	// GitTimeout is a duration string ("5m", "90s") bounding each git call.
	GitTimeout string `json:"git_timeout" yaml:"git_timeout" toml:"git_timeout"`

	// PauseOnError is "auto", "always" or "never".
	PauseOnError string `json:"pause_on_error" yaml:"pause_on_error" toml:"pause_on_error"`

	// OnExists is the output conflict policy: "ask", "overwrite", "keep" or "fail".
	OnExists string `json:"on_exists" yaml:"on_exists" toml:"on_exists"`

	// LogFile enables a rotating debug log when set.
	LogFile string `json:"log_file" yaml:"log_file" toml:"log_file"`

	Launch LaunchSettings `json:"launch" yaml:"launch" toml:"launch"`
}

// LaunchSettings configures the external entry point run by `launch`.
type LaunchSettings struct {
	Tool string   `json:"tool" yaml:"tool" toml:"tool"`
	Args []string `json:"args" yaml:"args" toml:"args"`
	Dir  string   `json:"dir" yaml:"dir" toml:"dir"`
}

// Default returns the settings used when no file exists.
func Default() Settings {
	return Settings{
		GitTimeout:   "5m",
		PauseOnError: "auto",
		OnExists:     "ask",
		Launch: LaunchSettings{
			Tool: "uv",
			Args: []string{"run", "src/main.py"},
		},
	}
}

// Timeout parses GitTimeout. An empty value yields zero, meaning the
// engine default.
func (s Settings) Timeout() (time.Duration, error) {
	if s.GitTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s.GitTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid git_timeout %q: %w", s.GitTimeout, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid git_timeout %q: must not be negative", s.GitTimeout)
	}
	return d, nil
}

// EffectiveWorkers returns Workers, or the CPU count when unset.
func (s Settings) EffectiveWorkers() int {
	if s.Workers > 0 {
		return s.Workers
	}
	return runtime.NumCPU()
}

// DefaultPath returns settings.json next to the running executable, which
// keeps a portable install self-contained.
func DefaultPath() string {
	exe, err := os.Executable()
	if err != nil {
		return FileName
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Join(filepath.Dir(exe), FileName)
}

type format int

const (
	formatJSON format = iota
	formatYAML
	formatTOML
)

func formatOf(path string) (format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc", "":
		return formatJSON, nil
	case ".yaml", ".yml":
		return formatYAML, nil
	case ".toml":
		return formatTOML, nil
	default:
		return 0, fmt.Errorf("unsupported settings format %q (use .json, .yaml or .toml)", filepath.Ext(path))
	}
}

// Load reads settings from path. A missing file returns Default() and no
// error. A malformed file returns Default() together with the parse error so
// callers can warn and continue.
func Load(path string) (Settings, error) {
	s := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return s, fmt.Errorf("settings load failed (%s): %w", path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return s, nil
	}

	f, err := formatOf(path)
	if err != nil {
		return s, err
	}

	// Decode into a copy so a half-parsed file does not leak partial values.
	merged := Default()
	switch f {
	case formatJSON:
		err = json.Unmarshal(jsonc.ToJSON(data), &merged)
	case formatYAML:
		err = yaml.Unmarshal(data, &merged)
	case formatTOML:
		err = toml.Unmarshal(data, &merged)
	}
	if err != nil {
		return s, fmt.Errorf("settings parse failed (%s): %w", path, err)
	}
	return merged, nil
}

// Save writes settings to path in the format implied by its extension,
// creating parent directories as needed.
func Save(path string, s Settings) error {
	f, err := formatOf(path)
	if err != nil {
		return err
	}

	var data []byte
	switch f {
	case formatJSON:
		data, err = json.MarshalIndent(s, "", "  ")
		data = append(data, '\n')
	case formatYAML:
		data, err = yaml.Marshal(s)
	case formatTOML:
		var buf bytes.Buffer
		err = toml.NewEncoder(&buf).Encode(s)
		data = buf.Bytes()
	}
	if err != nil {
		return fmt.Errorf("settings encode failed: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("settings save failed (%s): %w", path, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("settings save failed (%s): %w", path, err)
	}
	return nil
}

// Update loads the settings at path, applies fn and saves the result.
// A file that cannot be read or parsed is left untouched and the load error
// is returned. Comments in a .jsonc file are not preserved.
func Update(path string, fn func(*Settings)) error {
	s, err := Load(path)
	if err != nil {
		return err
	}
	fn(&s)
	return Save(path, s)
}

// field binds a settings key to its accessors.
type field struct {
	get func(*Settings) string
	set func(*Settings, string) error
}

func stringField(ptr func(*Settings) *string) field {
	return field{
		get: func(s *Settings) string { return *ptr(s) },
		set: func(s *Settings, v string) error { *ptr(s) = v; return nil },
	}
}

func enumField(ptr func(*Settings) *string, allowed ...string) field {
	return field{
		get: func(s *Settings) string { return *ptr(s) },
		set: func(s *Settings, v string) error {
			v = strings.ToLower(v)
			for _, a := range allowed {
				if v == a {
					*ptr(s) = v
					return nil
				}
			}
			return fmt.Errorf("invalid value %q (valid: %s)", v, strings.Join(allowed, ", "))
		},
	}
}

var fields = map[string]field{
	"repo_path":          stringField(func(s *Settings) *string { return &s.RepoPath }),
	"old_sha":            stringField(func(s *Settings) *string { return &s.OldSHA }),
	"new_sha":            stringField(func(s *Settings) *string { return &s.NewSHA }),
	"output_path":        stringField(func(s *Settings) *string { return &s.OutputPath }),
	"output_folder_name": stringField(func(s *Settings) *string { return &s.OutputFolderName }),
	"portable_git_path":  stringField(func(s *Settings) *string { return &s.PortableGitPath }),
	"log_file":           stringField(func(s *Settings) *string { return &s.LogFile }),
	"launch.tool":        stringField(func(s *Settings) *string { return &s.Launch.Tool }),
	"launch.dir":         stringField(func(s *Settings) *string { return &s.Launch.Dir }),
	"pause_on_error":     enumField(func(s *Settings) *string { return &s.PauseOnError }, "auto", "always", "never"),
	"on_exists":          enumField(func(s *Settings) *string { return &s.OnExists }, "ask", "overwrite", "keep", "fail"),
	"workers": {
		get: func(s *Settings) string { return strconv.Itoa(s.Workers) },
		set: func(s *Settings, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return fmt.Errorf("invalid value %q: workers must be a non-negative integer", v)
			}
			s.Workers = n
			return nil
		},
	},
	"git_timeout": {
		get: func(s *Settings) string { return s.GitTimeout },
		set: func(s *Settings, v string) error {
			candidate := Settings{GitTimeout: v}
			if _, err := candidate.Timeout(); err != nil {
				return err
			}
			s.GitTimeout = v
			return nil
		},
	},
	"launch.args": {
		get: func(s *Settings) string { return strings.Join(s.Launch.Args, " ") },
		set: func(s *Settings, v string) error {
			s.Launch.Args = strings.Fields(v)
			return nil
		},
	},
}

// Keys lists the settings keys accepted by Get and Set, sorted.
func Keys() []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the value of key as a string.
func (s *Settings) Get(key string) (string, error) {
	f, ok := fields[key]
	if !ok {
		return "", fmt.Errorf("unknown settings key %q", key)
	}
	return f.get(s), nil
}

// Set assigns value to key after validating it.
func (s *Settings) Set(key, value string) error {
	f, ok := fields[key]
	if !ok {
		return fmt.Errorf("unknown settings key %q", key)
	}
	if err := f.set(s, value); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return nil
}
