// Package config loads rangecheck.conf files.
//
// Configuration files are looked up in a package's directory and all of its
// parents. Files closer to the package take precedence. Lists may contain
// the special element "inherit", which is replaced by the list of the
// parent configuration.
package config

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"
	"honnef.co/go/rangecheck/rangecheck"
)

type config struct {
	cfg  Config
	meta toml.MetaData
}

func mergeLists(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	for _, el := range b {
		if el == "inherit" {
			out = append(out, a...)
		} else {
			out = append(out, el)
		}
	}
	return out
}

func normalizeList(list []string) []string {
	if len(list) > 1 {
		sort.Strings(list)
		nlist := make([]string, 0, len(list))
		nlist = append(nlist, list[0])
		for i, el := range list[1:] {
			if el != list[i] {
				nlist = append(nlist, el)
			}
		}
		list = nlist
	}

	for _, el := range list {
		if el == "inherit" {
			// This should never happen, because the default config
			// should not use "inherit"
			panic(`unresolved "inherit"`)
		}
	}

	return list
}

func (cfg config) Merge(ocfg config) config {
	if ocfg.meta.IsDefined("rangecheck", "budget") {
		cfg.cfg.RangeCheck.Budget = ocfg.cfg.RangeCheck.Budget
	}
	if ocfg.meta.IsDefined("rangecheck", "max_search_depth") {
		cfg.cfg.RangeCheck.MaxSearchDepth = ocfg.cfg.RangeCheck.MaxSearchDepth
	}
	if ocfg.meta.IsDefined("rangecheck", "max_array_length") {
		cfg.cfg.RangeCheck.MaxArrayLength = ocfg.cfg.RangeCheck.MaxArrayLength
	}
	if ocfg.meta.IsDefined("rangecheck", "goarch") {
		cfg.cfg.RangeCheck.GOARCH = ocfg.cfg.RangeCheck.GOARCH
	}
	if ocfg.meta.IsDefined("rangecheck", "report_eliminated") {
		cfg.cfg.RangeCheck.ReportEliminated = ocfg.cfg.RangeCheck.ReportEliminated
	}
	if ocfg.meta.IsDefined("rangecheck", "ignore_functions") {
		cfg.cfg.RangeCheck.IgnoreFunctions = mergeLists(cfg.cfg.RangeCheck.IgnoreFunctions, ocfg.cfg.RangeCheck.IgnoreFunctions)
	}
	return cfg
}

type Config struct {
	RangeCheck RangeCheckConfig `toml:"rangecheck"`
}

type RangeCheckConfig struct {
	// Budget is the number of expression nodes the analysis may visit
	// per function.
	Budget int `toml:"budget"`
	// MaxSearchDepth caps the depth of the recursive range computation.
	MaxSearchDepth int `toml:"max_search_depth"`
	// MaxArrayLength is the assumed maximum length of arrays of unknown
	// size.
	MaxArrayLength int32 `toml:"max_array_length"`
	// GOARCH names the architecture whose type sizes are used. The
	// analysis only reasons about 32-bit integers, so on 64-bit targets
	// only narrower indices benefit. The empty string selects the sizes
	// the package was type-checked with.
	GOARCH string `toml:"goarch"`
	// ReportEliminated reports the bounds checks that were eliminated
	// instead of those that were retained.
	ReportEliminated bool `toml:"report_eliminated"`
	// IgnoreFunctions lists patterns, in the syntax of path.Match, of
	// functions that shouldn't be analysed.
	IgnoreFunctions []string `toml:"ignore_functions"`
}

var defaultConfig = Config{
	RangeCheck: RangeCheckConfig{
		Budget:          rangecheck.DefaultBudget,
		MaxSearchDepth:  rangecheck.DefaultMaxSearchDepth,
		MaxArrayLength:  rangecheck.DefaultMaxArrayLength,
		IgnoreFunctions: []string{},
	},
}

// Options returns the engine options described by the configuration.
func (c RangeCheckConfig) Options() rangecheck.Options {
	return rangecheck.Options{
		Budget:         c.Budget,
		MaxSearchDepth: c.MaxSearchDepth,
		MaxArrayLength: c.MaxArrayLength,
	}
}

// Ignored reports whether the function with the given name matches one of
// the patterns in IgnoreFunctions.
func (c RangeCheckConfig) Ignored(name string) bool {
	for _, pattern := range c.IgnoreFunctions {
		if ok, _ := path.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

const configName = "rangecheck.conf"

func parseConfigs(dir string) ([]config, error) {
	var out []config

	for dir != "" {
		name := filepath.Join(dir, configName)
		f, err := os.Open(name)
		if os.IsNotExist(err) {
			ndir := filepath.Dir(dir)
			if ndir == dir {
				break
			}
			dir = ndir
			continue
		}
		if err != nil {
			return nil, err
		}
		var cfg Config
		meta, err := toml.NewDecoder(f).Decode(&cfg)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", name, err)
		}
		out = append(out, config{cfg, meta})
		ndir := filepath.Dir(dir)
		if ndir == dir {
			break
		}
		dir = ndir
	}
	out = append(out, config{
		cfg:  defaultConfig,
		meta: toml.MetaData{}, // meta of the base config should never be accessed
	})
	if len(out) < 2 {
		return out, nil
	}
	for i := 0; i < len(out)/2; i++ {
		out[i], out[len(out)-1-i] = out[len(out)-1-i], out[i]
	}
	return out, nil
}

func mergeConfigs(confs []config) Config {
	if len(confs) == 0 {
		// This shouldn't happen because we always have at least a
		// default config.
		panic("trying to merge zero configs")
	}
	if len(confs) == 1 {
		return confs[0].cfg
	}
	conf := confs[0]
	for _, oconf := range confs[1:] {
		conf = conf.Merge(oconf)
	}
	return conf.cfg
}

// Load returns the configuration that applies to the package in dir.
func Load(dir string) (Config, error) {
	confs, err := parseConfigs(dir)
	if err != nil {
		return Config{}, err
	}
	conf := mergeConfigs(confs)
	conf.RangeCheck.IgnoreFunctions = normalizeList(conf.RangeCheck.IgnoreFunctions)
	return conf, nil
}
