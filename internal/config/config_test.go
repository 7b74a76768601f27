package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Wait != DefaultWait {
		t.Errorf("Wait = %d, want %d", cfg.Wait, DefaultWait)
	}
	if cfg.ArbitraryMatch {
		t.Error("ArbitraryMatch = true, want false")
	}
}

func TestDir_XDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	dir, err := Dir()
	if err != nil {
		t.Fatalf("Dir() error = %v", err)
	}
	if dir != "/tmp/xdg/logs2eca" {
		t.Errorf("Dir() = %q, want %q", dir, "/tmp/xdg/logs2eca")
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `logfile: /var/log/app.log
pattern: "/err.*timeout/"
command: systemctl restart app
wait: 10
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := Default()
	if err := cfg.LoadFile(path, false); err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if cfg.LogFile != "/var/log/app.log" {
		t.Errorf("LogFile = %q", cfg.LogFile)
	}
	if cfg.Pattern != "/err.*timeout/" {
		t.Errorf("Pattern = %q", cfg.Pattern)
	}
	if cfg.Wait != 10 {
		t.Errorf("Wait = %d, want 10", cfg.Wait)
	}
	// Keys absent from the file keep their defaults.
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want default %q", cfg.LogLevel, "warn")
	}
}

func TestLoadFile_Missing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.yaml")

	if err := Default().LoadFile(path, true); err != nil {
		t.Errorf("LoadFile(optional) error = %v, want nil", err)
	}

	err := Default().LoadFile(path, false)
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Errorf("LoadFile(required) error = %v, want *ParseError", err)
	}
}

func TestLoadFile_UnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("patern: typo\n"), 0644); err != nil {
		t.Fatal(err)
	}

	err := Default().LoadFile(path, false)
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Errorf("LoadFile() error = %v, want *ParseError for unknown key", err)
	}
}

func TestLoadFile_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatal(err)
	}
	if err := Default().LoadFile(path, false); err != nil {
		t.Errorf("LoadFile(empty) error = %v, want nil", err)
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	cfg.Pattern = "from-file"

	err := cfg.ApplyEnv(envMap(map[string]string{
		EnvLogFile:        "/tmp/app.log",
		EnvCommand:        "echo hi",
		EnvWait:           " 7 ",
		EnvArbitraryMatch: "true",
		EnvPattern:        "", // empty values do not override
	}))
	if err != nil {
		t.Fatalf("ApplyEnv() error = %v", err)
	}

	if cfg.LogFile != "/tmp/app.log" {
		t.Errorf("LogFile = %q", cfg.LogFile)
	}
	if cfg.Pattern != "from-file" {
		t.Errorf("Pattern = %q, want %q", cfg.Pattern, "from-file")
	}
	if cfg.Wait != 7 {
		t.Errorf("Wait = %d, want 7", cfg.Wait)
	}
	if !cfg.ArbitraryMatch {
		t.Error("ArbitraryMatch = false, want true")
	}
}

func TestApplyEnv_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "wait not a number", env: map[string]string{EnvWait: "soon"}},
		{name: "bad bool", env: map[string]string{EnvArbitraryMatch: "maybe"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Default().ApplyEnv(envMap(tt.env))
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Errorf("ApplyEnv() error = %v, want *ParseError", err)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		cfg         Config
		wantMissing []string
		wantParse   bool
	}{
		{
			name: "complete",
			cfg:  Config{LogFile: "a.log", Pattern: "x", Command: "true", Wait: 0},
		},
		{
			name:        "all required missing",
			cfg:         Config{Wait: 3},
			wantMissing: []string{"logfile", "pattern", "command"},
		},
		{
			name:        "command missing",
			cfg:         Config{LogFile: "a.log", Pattern: "x"},
			wantMissing: []string{"command"},
		},
		{
			name:      "negative wait",
			cfg:       Config{LogFile: "a.log", Pattern: "x", Command: "true", Wait: -1},
			wantParse: true,
		},
		{
			name:      "unknown log level",
			cfg:       Config{LogFile: "a.log", Pattern: "x", Command: "true", LogLevel: "loud"},
			wantParse: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()

			var me *MissingRequiredError
			var pe *ParseError
			switch {
			case len(tt.wantMissing) > 0:
				if !errors.As(err, &me) {
					t.Fatalf("Validate() error = %v, want *MissingRequiredError", err)
				}
				if len(me.Names) != len(tt.wantMissing) {
					t.Fatalf("Names = %v, want %v", me.Names, tt.wantMissing)
				}
				for i := range me.Names {
					if me.Names[i] != tt.wantMissing[i] {
						t.Errorf("Names[%d] = %q, want %q", i, me.Names[i], tt.wantMissing[i])
					}
				}
			case tt.wantParse:
				if !errors.As(err, &pe) {
					t.Errorf("Validate() error = %v, want *ParseError", err)
				}
			default:
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	cfg := Config{LogFile: " a.log ", Pattern: "  ERROR\n", Command: " echo x ", LogLevel: " DEBUG "}
	cfg.Normalize()

	if cfg.LogFile != "a.log" || cfg.Pattern != "ERROR" || cfg.Command != "echo x" {
		t.Errorf("Normalize() = %+v", cfg)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}
}
