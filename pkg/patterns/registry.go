// Package patterns holds the named rejection rules used by the message
// guard. All regexes are compiled once at first use and shared across
// requests.
//
// Design principles:
// - COMPILE ONCE: rules compiled at init, not per-request
// - ORDERED: registration order is the sweep order, so verdicts are
//   deterministic when several rules would match
// - NAMED: every rule carries a stable identifier that ends up in the
//   audit log, never in user-visible text
package patterns

import (
	"regexp"
	"sync"
)

// Category groups rules by the class of attack they detect.
type Category string

const (
	CategoryCodeExec        Category = "code_exec"
	CategorySyscall         Category = "syscall"
	CategoryEscapeSequence  Category = "escape_sequence"
	CategoryShell           Category = "shell"
	CategoryMarkup          Category = "markup"
	CategoryTemplateBlock   Category = "template_block"
	CategoryCommandPrefix   Category = "command_prefix"
	CategoryRolePrefix      Category = "role_prefix"
	CategoryManipulation    Category = "manipulation"
	CategoryFormatMarker    Category = "format_marker"
	CategoryNumericFormat   Category = "numeric_format"
	CategoryEvasion         Category = "evasion"
	CategoryAppeal          Category = "appeal"
	CategoryInstructionList Category = "instruction_list"
)

// Rule pairs a stable name with a compiled regex.
type Rule struct {
	Name        string         // Stable identifier, used as the verdict's rule ID
	Regex       *regexp.Regexp // Compiled regex (never nil after init)
	Category    Category       // Attack class
	Description string         // What this rule detects
}

// Registry holds all compiled rules in sweep order.
type Registry struct {
	mu         sync.RWMutex
	byCategory map[Category][]*Rule
	ordered    []*Rule
}

// global singleton - initialized once at first use
var (
	globalRegistry *Registry
	initOnce       sync.Once
)

// Get returns the global rule registry (singleton).
// Thread-safe and guaranteed to be initialized.
func Get() *Registry {
	initOnce.Do(func() {
		globalRegistry = newRegistry()
	})
	return globalRegistry
}

// newRegistry creates and populates the rule registry
func newRegistry() *Registry {
	r := &Registry{
		byCategory: make(map[Category][]*Rule),
		ordered:    make([]*Rule, 0, 32),
	}

	// Registration order defines the sweep order. Keep the technical
	// injections first and the vocabulary rules last, so a verdict
	// names the most concrete rule that applies.
	r.registerCodeInjectionRules()
	r.registerStructuralRules()
	r.registerPromptInjectionRules()
	r.registerInstructionListRules()

	return r
}

// register adds a rule to the registry (internal use only)
func (r *Registry) register(name string, pattern string, category Category, description string) {
	rule := &Rule{
		Name:        name,
		Regex:       regexp.MustCompile(pattern),
		Category:    category,
		Description: description,
	}

	r.byCategory[category] = append(r.byCategory[category], rule)
	r.ordered = append(r.ordered, rule)
}

// MatchFirst sweeps the full table in registration order and returns
// the first matching rule, or nil when the text is clean.
func (r *Registry) MatchFirst(text string) *Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rule := range r.ordered {
		if rule.Regex.MatchString(text) {
			return rule
		}
	}
	return nil
}

// MatchAll returns every rule that matches the text. Use when all
// matches are needed (offline tuning, tests), not on the hot path.
func (r *Registry) MatchAll(text string) []*Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matches []*Rule
	for _, rule := range r.ordered {
		if rule.Regex.MatchString(text) {
			matches = append(matches, rule)
		}
	}
	return matches
}

// ByCategory returns all rules for a category.
// Returns empty slice if category not found (never nil).
func (r *Registry) ByCategory(cat Category) []*Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if rules, ok := r.byCategory[cat]; ok {
		return rules
	}
	return []*Rule{}
}

// RuleCount returns the total count of registered rules.
func (r *Registry) RuleCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ordered)
}

// Names returns the rule names in sweep order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.ordered))
	for i, rule := range r.ordered {
		names[i] = rule.Name
	}
	return names
}
