// Package authz provides the declarative endpoint authorization matrix.
//
// A request is matched structurally against the rule table: same number of
// path segments, each segment equal or a :param wildcard, same HTTP method.
// No matching rule means deny, for every role. When several rules could
// match the same path, the one with the most literal segments governs;
// among equals, the earliest rule in the table wins. This precedence is
// deterministic and part of the contract.
//
// A matched rule permits a role when the role is listed, when AnyRole is
// listed, or when the role outranks a listed role in the fixed hierarchy
// (super-admin over admin over logger over user).
package authz

import (
	"strings"

	brixauth "github.com/brixsports/brixauth-go"
)

// AnyRole is the sentinel allowing every known role.
const AnyRole = brixauth.Role("all")

// Rule grants roles access to one (path pattern, method) pair.
// Pattern segments starting with ':' match any single segment.
type Rule struct {
	Path   string
	Method string
	Roles  []brixauth.Role
}

// compiledRule is a Rule with its pattern pre-split.
type compiledRule struct {
	segments []string
	wildcard []bool
	literals int
	method   string
	roles    []brixauth.Role
	index    int
}

// Matrix is the static, read-only rule table consulted per request.
type Matrix struct {
	rules []compiledRule
}

var _ brixauth.Authorizer = (*Matrix)(nil)

// NewMatrix compiles the rule table. The table is read-only afterwards.
func NewMatrix(rules []Rule) *Matrix {
	m := &Matrix{rules: make([]compiledRule, 0, len(rules))}
	for i, r := range rules {
		segs := splitPath(r.Path)
		cr := compiledRule{
			segments: segs,
			wildcard: make([]bool, len(segs)),
			method:   strings.ToUpper(r.Method),
			roles:    r.Roles,
			index:    i,
		}
		for j, s := range segs {
			if strings.HasPrefix(s, ":") {
				cr.wildcard[j] = true
			} else {
				cr.literals++
			}
		}
		m.rules = append(m.rules, cr)
	}
	return m
}

// CheckAccess reports whether role may perform method on path.
// Default-deny: no matching rule rejects every role, including super-admin.
func (m *Matrix) CheckAccess(path, method string, role brixauth.Role) bool {
	rule := m.match(path, method)
	if rule == nil {
		return false
	}
	if !role.Valid() {
		return false
	}
	for _, allowed := range rule.roles {
		if allowed == AnyRole {
			return true
		}
		if role == allowed || role.Outranks(allowed) {
			return true
		}
	}
	return false
}

// match finds the governing rule: most literal segments first, then lowest
// table index.
func (m *Matrix) match(path, method string) *compiledRule {
	segs := splitPath(path)
	method = strings.ToUpper(method)

	var best *compiledRule
	for i := range m.rules {
		r := &m.rules[i]
		if r.method != method || !r.matches(segs) {
			continue
		}
		if best == nil || r.literals > best.literals {
			best = r
		}
	}
	return best
}

func (r *compiledRule) matches(segs []string) bool {
	if len(segs) != len(r.segments) {
		return false
	}
	for i, s := range segs {
		if r.wildcard[i] {
			continue
		}
		if r.segments[i] != s {
			return false
		}
	}
	return true
}

// splitPath breaks a path into segments, ignoring empty ones so "/a/b",
// "a/b" and "/a/b/" are equivalent. Query strings are not part of the match.
func splitPath(path string) []string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	parts := strings.Split(path, "/")
	segs := parts[:0]
	for _, p := range parts {
		if p != "" {
			segs = append(segs, p)
		}
	}
	return segs
}
