package policy

import (
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

const (
	DefaultCachePolicy = "no-store"
	DefaultACL         = "public-read"
)

// Rule overrides the metadata of every path matching Glob. Empty fields fall back to the defaults.
type Rule struct {
	Glob        string `yaml:"glob" json:"glob" mapstructure:"glob"`
	CachePolicy string `yaml:"cache_policy,omitempty" json:"cache_policy,omitempty" mapstructure:"cache_policy"`
	ACL         string `yaml:"acl,omitempty" json:"acl,omitempty" mapstructure:"acl"`
}

type Defaults struct {
	CachePolicy string `yaml:"cache_policy" json:"cache_policy"`
	ACL         string `yaml:"acl" json:"acl"`
}

// File is the on-disk rules file.
//
//	defaults:
//	  cache_policy: no-store
//	  acl: public-read
//	rules:
//	  - glob: "**/*.html"
//	    cache_policy: no-cache
//	  - glob: "assets/**"
//	    cache_policy: public, max-age=31536000, immutable
type File struct {
	Defaults Defaults `yaml:"defaults" json:"defaults"`
	Rules    []Rule   `yaml:"rules" json:"rules"`
}

// LoadRules reads a rules file. Unset defaults are filled with DefaultCachePolicy and DefaultACL.
func LoadRules(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse rules %s: %w", path, err)
	}
	if f.Defaults.CachePolicy == "" {
		f.Defaults.CachePolicy = DefaultCachePolicy
	}
	if f.Defaults.ACL == "" {
		f.Defaults.ACL = DefaultACL
	}
	for i, r := range f.Rules {
		if err := r.validate(); err != nil {
			return nil, fmt.Errorf("rules %s: rule %d: %w", path, i, err)
		}
	}
	return &f, nil
}

// ParseRuleFlag parses a command line rule of the form "glob=cache-policy" or
// "glob=cache-policy;acl". Either policy may be empty to keep the default.
func ParseRuleFlag(raw string) (Rule, error) {
	glob, value, ok := strings.Cut(raw, "=")
	if !ok {
		return Rule{}, fmt.Errorf("invalid rule %q: expected glob=cache-policy[;acl]", raw)
	}

	rule := Rule{Glob: strings.TrimSpace(glob)}
	cache, acl, _ := strings.Cut(value, ";")
	rule.CachePolicy = strings.TrimSpace(cache)
	rule.ACL = strings.TrimSpace(acl)

	if err := rule.validate(); err != nil {
		return Rule{}, err
	}
	return rule, nil
}

func (r Rule) validate() error {
	if r.Glob == "" {
		return fmt.Errorf("rule has no glob")
	}
	if !doublestar.ValidatePattern(normalizePath(r.Glob)) {
		return fmt.Errorf("invalid glob %q", r.Glob)
	}
	return nil
}

func (r Rule) matches(relPath string) bool {
	ok, err := doublestar.Match(normalizePath(r.Glob), relPath)
	if err != nil {
		return false
	}
	return ok
}

func normalizePath(p string) string {
	if p == "" {
		return ""
	}
	p = strings.ReplaceAll(p, "\\", "/")
	p = strings.TrimLeft(p, "/")
	p = path.Clean(p)
	p = strings.TrimPrefix(p, "./")
	return p
}
