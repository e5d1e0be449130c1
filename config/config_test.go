package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"honnef.co/go/rangecheck/rangecheck"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, configName), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	opts := cfg.RangeCheck.Options()
	if opts.Budget != rangecheck.DefaultBudget {
		t.Errorf("got budget %d, want %d", opts.Budget, rangecheck.DefaultBudget)
	}
	if opts.MaxSearchDepth != rangecheck.DefaultMaxSearchDepth {
		t.Errorf("got depth %d, want %d", opts.MaxSearchDepth, rangecheck.DefaultMaxSearchDepth)
	}
	if opts.MaxArrayLength != rangecheck.DefaultMaxArrayLength {
		t.Errorf("got max array length %d, want %d", opts.MaxArrayLength, rangecheck.DefaultMaxArrayLength)
	}
	if cfg.RangeCheck.ReportEliminated {
		t.Error("ReportEliminated should default to false")
	}
}

func TestMerge(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, `
[rangecheck]
budget = 100
max_search_depth = 10
ignore_functions = ["*.init", "gen*"]
`)
	child := filepath.Join(root, "a", "b")
	writeConfig(t, child, `
[rangecheck]
budget = 200
ignore_functions = ["inherit", "slow", "gen*"]
`)

	cfg, err := Load(child)
	if err != nil {
		t.Fatal(err)
	}
	rc := cfg.RangeCheck
	if rc.Budget != 200 {
		t.Errorf("got budget %d, want 200", rc.Budget)
	}
	if rc.MaxSearchDepth != 10 {
		t.Errorf("got depth %d, want 10", rc.MaxSearchDepth)
	}
	if rc.MaxArrayLength != rangecheck.DefaultMaxArrayLength {
		t.Errorf("got max array length %d, want default", rc.MaxArrayLength)
	}
	want := []string{"*.init", "gen*", "slow"}
	if !reflect.DeepEqual(rc.IgnoreFunctions, want) {
		t.Errorf("got ignore list %q, want %q", rc.IgnoreFunctions, want)
	}

	// The intermediate directory has no configuration of its own and
	// sees the root's.
	cfg, err = Load(filepath.Join(root, "a"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.RangeCheck.Budget != 100 {
		t.Errorf("got budget %d, want 100", cfg.RangeCheck.Budget)
	}
}

func TestOverrideList(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, `
[rangecheck]
ignore_functions = ["a"]
`)
	child := filepath.Join(root, "c")
	writeConfig(t, child, `
[rangecheck]
ignore_functions = ["b"]
`)
	cfg, err := Load(child)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"b"}; !reflect.DeepEqual(cfg.RangeCheck.IgnoreFunctions, want) {
		t.Errorf("got %q, want %q", cfg.RangeCheck.IgnoreFunctions, want)
	}
}

func TestIgnored(t *testing.T) {
	rc := RangeCheckConfig{IgnoreFunctions: []string{"gen*", "example.com/pkg.slow"}}
	tests := []struct {
		name string
		want bool
	}{
		{"generated", true},
		{"example.com/pkg.slow", true},
		{"example.com/pkg.fast", false},
		{"slow", false},
	}
	for _, tt := range tests {
		if got := rc.Ignored(tt.name); got != tt.want {
			t.Errorf("Ignored(%q) = %t, want %t", tt.name, got, tt.want)
		}
	}
}

func TestParseError(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "[rangecheck\nbudget = ")
	if _, err := Load(dir); err == nil {
		t.Fatal("expected an error for malformed configuration")
	}
}

func TestGOARCH(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, `
[rangecheck]
goarch = "386"
`)
	child := filepath.Join(root, "x")
	writeConfig(t, child, `
[rangecheck]
budget = 10
`)
	cfg, err := Load(child)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.RangeCheck.GOARCH != "386" {
		t.Errorf("got goarch %q, want %q", cfg.RangeCheck.GOARCH, "386")
	}
}
