package policy

import (
	"fmt"

	"github.com/openmined/globsync/internal/reconcile"
)

// Resolver maps a root-relative path to the metadata of its remote object.
// Rules are evaluated in declaration order and the first match wins.
type Resolver struct {
	defaults reconcile.FileMetadata
	rules    []Rule
}

// NewResolver validates every rule pattern so a malformed glob is reported before a sync starts.
func NewResolver(defaults reconcile.FileMetadata, rules []Rule) (*Resolver, error) {
	for i, r := range rules {
		if err := r.validate(); err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
	}
	return &Resolver{
		defaults: defaults,
		rules:    append([]Rule(nil), rules...),
	}, nil
}

// Resolve returns the metadata of the first rule matching relPath, with unset fields taken
// from the defaults. Without a match the defaults are returned.
func (r *Resolver) Resolve(relPath string) reconcile.FileMetadata {
	relPath = normalizePath(relPath)

	for _, rule := range r.rules {
		if !rule.matches(relPath) {
			continue
		}
		meta := r.defaults
		if rule.CachePolicy != "" {
			meta.CachePolicy = rule.CachePolicy
		}
		if rule.ACL != "" {
			meta.ACL = rule.ACL
		}
		return meta
	}

	return r.defaults
}

var _ reconcile.PolicyResolver = (*Resolver)(nil)
