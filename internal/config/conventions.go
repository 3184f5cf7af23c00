package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ResourceConvention captures the per-resource quirks the upstream accreted over time:
// which page-numbering base a screen expects, and how free-text history entries are
// split into an action token and a message.
//
// The 0-based/1-based mix is not a single global rule. Disbursement screens were built
// against 1-based pages while merchant screens kept the upstream's 0-based pages, and
// changing either would break stored bookmarks and support runbooks. The same goes for
// the colon cutoffs: merchant audit trails split at 50 characters, disbursement
// processing history at 30, and unifying them would alter displayed output for
// existing data.
type ResourceConvention struct {
	// PageBase is the first page number the client uses (0 or 1).
	PageBase int
	// ColonCutoff is the furthest colon position that still splits a free-text
	// history entry into ACTION: message.
	ColonCutoff int
	// DefaultAction is used when no action token can be derived from an entry.
	DefaultAction string
	// ActionKey is the output field the action token is written to ("action" or "status").
	ActionKey string
}

type Conventions struct {
	Resources map[string]ResourceConvention
}

// conventionOverride is the file shape of one resource entry. PageBase is a
// pointer so an entry that only overrides another field leaves the resource's
// base alone: 0 is a legitimate explicit value, not an absence marker.
type conventionOverride struct {
	PageBase      *int   `yaml:"pageBase"`
	ColonCutoff   int    `yaml:"colonCutoff"`
	DefaultAction string `yaml:"defaultAction"`
	ActionKey     string `yaml:"actionKey"`
}

type conventionsFile struct {
	Resources map[string]conventionOverride `yaml:"resources"`
}

// DefaultConventions returns the conventions the console shipped with.
func DefaultConventions() Conventions {
	return Conventions{
		Resources: map[string]ResourceConvention{
			"merchants":     {PageBase: 0, ColonCutoff: 50, DefaultAction: "CHANGE", ActionKey: "action"},
			"disbursements": {PageBase: 1, ColonCutoff: 30, DefaultAction: "INFO", ActionKey: "status"},
			"transactions":  {PageBase: 0, ColonCutoff: 50, DefaultAction: "CHANGE", ActionKey: "action"},
			"gateways":      {PageBase: 1, ColonCutoff: 50, DefaultAction: "CHANGE", ActionKey: "action"},
			"users":         {PageBase: 1, ColonCutoff: 50, DefaultAction: "CHANGE", ActionKey: "action"},
			"logs":          {PageBase: 0, ColonCutoff: 50, DefaultAction: "CHANGE", ActionKey: "action"},
		},
	}
}

// LoadConventions reads a conventions file, falling back to the built-in defaults
// when no path is configured. Entries in the file override defaults per resource.
func LoadConventions(path string) (Conventions, error) {
	conventions := DefaultConventions()
	if path == "" {
		return conventions, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Conventions{}, fmt.Errorf("read conventions file: %w", err)
	}

	var loaded conventionsFile
	if err := yaml.Unmarshal(raw, &loaded); err != nil {
		return Conventions{}, fmt.Errorf("parse conventions file: %w", err)
	}
	for name, rc := range loaded.Resources {
		merged := conventions.For(name)
		if rc.PageBase != nil {
			merged.PageBase = *rc.PageBase
		}
		if rc.ColonCutoff > 0 {
			merged.ColonCutoff = rc.ColonCutoff
		}
		if rc.DefaultAction != "" {
			merged.DefaultAction = rc.DefaultAction
		}
		if rc.ActionKey != "" {
			merged.ActionKey = rc.ActionKey
		}
		conventions.Resources[name] = merged
	}
	return conventions, nil
}

// For returns the convention for a resource, defaulting to the upstream's own
// conventions (0-based pages, 50-character cutoff) for anything unlisted.
func (c Conventions) For(resource string) ResourceConvention {
	if rc, ok := c.Resources[resource]; ok {
		return rc
	}
	return ResourceConvention{PageBase: 0, ColonCutoff: 50, DefaultAction: "CHANGE", ActionKey: "action"}
}
