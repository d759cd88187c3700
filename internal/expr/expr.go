// Package expr evaluates power expressions over entity states.
//
// Expressions are text/template templates with a small function set:
//
//	{{ state "switch.ac_plug" }}                       current state or "unknown"
//	{{ if is_state "binary_sensor.ac_power" "on" }}on{{ end }}
//	{{ state "sensor.ac_power_w" | lower }}
//
// The entity ids referenced through state and is_state are extracted from
// the parse tree so the caller knows which entity updates should trigger a
// re-evaluation.
package expr

import (
	"bytes"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"text/template"
	"text/template/parse"
)

// Unknown is returned by state for an entity that has never reported.
const Unknown = "unknown"

// Domain errors for the expr package.
var (
	// ErrInvalidTemplate is returned when an expression does not parse.
	ErrInvalidTemplate = errors.New("expr: invalid template")

	// ErrRenderFailed is returned when an expression fails to render.
	ErrRenderFailed = errors.New("expr: render failed")
)

// Store provides entity states.
type Store interface {
	State(entityID string) (string, bool)
}

// States is a thread-safe in-memory Store.
type States struct {
	mu     sync.RWMutex
	states map[string]string
}

// NewStates creates an empty store.
func NewStates() *States {
	return &States{states: make(map[string]string)}
}

// Set records the state of an entity.
func (s *States) Set(entityID, state string) {
	s.mu.Lock()
	s.states[entityID] = state
	s.mu.Unlock()
}

// Delete forgets an entity.
func (s *States) Delete(entityID string) {
	s.mu.Lock()
	delete(s.states, entityID)
	s.mu.Unlock()
}

// State returns the state of an entity.
func (s *States) State(entityID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.states[entityID]
	return v, ok
}

// Template is a parsed expression. It is safe for concurrent use.
type Template struct {
	src      string
	tmpl     *template.Template
	entities []string
}

// Parse parses an expression.
func Parse(src string) (*Template, error) {
	tmpl, err := template.New("expr").
		Option("missingkey=error").
		Funcs(funcs(nil)).
		Parse(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTemplate, err)
	}

	seen := make(map[string]bool)
	var entities []string
	for _, t := range tmpl.Templates() {
		if t.Tree == nil {
			continue
		}
		walk(t.Tree.Root, func(id string) {
			if !seen[id] {
				seen[id] = true
				entities = append(entities, id)
			}
		})
	}
	slices.Sort(entities)

	return &Template{src: src, tmpl: tmpl, entities: entities}, nil
}

// String returns the source text.
func (t *Template) String() string { return t.src }

// Entities returns the entity ids the expression references, sorted.
func (t *Template) Entities() []string { return slices.Clone(t.entities) }

// References reports whether the expression references entityID.
func (t *Template) References(entityID string) bool {
	_, found := slices.BinarySearch(t.entities, entityID)
	return found
}

// Render evaluates the expression against store. Surrounding whitespace is
// trimmed from the result.
func (t *Template) Render(store Store) (string, error) {
	clone, err := t.tmpl.Clone()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrRenderFailed, err)
	}

	var buf bytes.Buffer
	if err := clone.Funcs(funcs(store)).Execute(&buf, nil); err != nil {
		return "", fmt.Errorf("%w: %w", ErrRenderFailed, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// Bind returns an evaluator of t over store.
func (t *Template) Bind(store Store) *Evaluator {
	return &Evaluator{tmpl: t, store: store}
}

// Evaluator renders a template against a fixed store.
type Evaluator struct {
	tmpl  *Template
	store Store
}

// Evaluate renders the bound template.
func (e *Evaluator) Evaluate() (string, error) {
	return e.tmpl.Render(e.store)
}

func funcs(store Store) template.FuncMap {
	lookup := func(id string) string {
		if store == nil {
			return Unknown
		}
		if v, ok := store.State(id); ok {
			return v
		}
		return Unknown
	}

	return template.FuncMap{
		"state":    lookup,
		"is_state": func(id, want string) bool { return lookup(id) == want },
		"lower":    strings.ToLower,
		"upper":    strings.ToUpper,
		"trim":     strings.TrimSpace,
	}
}

// walk calls fn for every string literal passed as the first argument of a
// state or is_state call.
func walk(node parse.Node, fn func(string)) {
	switch n := node.(type) {
	case nil:
	case *parse.ListNode:
		if n == nil {
			return
		}
		for _, c := range n.Nodes {
			walk(c, fn)
		}
	case *parse.ActionNode:
		walk(n.Pipe, fn)
	case *parse.PipeNode:
		if n == nil {
			return
		}
		for _, c := range n.Cmds {
			walk(c, fn)
		}
	case *parse.CommandNode:
		if len(n.Args) >= 2 {
			if ident, ok := n.Args[0].(*parse.IdentifierNode); ok &&
				(ident.Ident == "state" || ident.Ident == "is_state") {
				if s, ok := n.Args[1].(*parse.StringNode); ok {
					fn(s.Text)
				}
			}
		}
		for _, a := range n.Args {
			walk(a, fn)
		}
	case *parse.IfNode:
		walkBranch(&n.BranchNode, fn)
	case *parse.RangeNode:
		walkBranch(&n.BranchNode, fn)
	case *parse.WithNode:
		walkBranch(&n.BranchNode, fn)
	case *parse.TemplateNode:
		walk(n.Pipe, fn)
	}
}

func walkBranch(b *parse.BranchNode, fn func(string)) {
	walk(b.Pipe, fn)
	walk(b.List, fn)
	walk(b.ElseList, fn)
}
