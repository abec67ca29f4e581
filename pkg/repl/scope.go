// Package repl evaluates Go source submitted over chat. Code runs inside an
// embedded yaegi interpreter; a Scope owns one interpreter and its
// accumulated bindings.
package repl

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"unicode"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// envPath is the synthetic import path carrying injected bindings into the
// interpreter.
const envPath = "jishaku/env"

// Scope is a REPL variable scope backed by one interpreter instance.
//
// A retained scope lives on the cog and keeps user bindings across
// invocations; an ephemeral scope is created per invocation and discarded.
// Injected context bindings are refreshed on every invocation, so across
// invocations only user-introduced bindings carry meaning.
type Scope struct {
	mu     sync.Mutex
	interp *interp.Interpreter
}

// NewScope creates a fresh scope with the standard library available.
func NewScope() (*Scope, error) {
	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("load stdlib symbols: %w", err)
	}
	return &Scope{interp: i}, nil
}

// lock serializes evaluation; concurrent invocations against a retained
// scope run one at a time.
func (s *Scope) lock() func() {
	s.mu.Lock()
	return s.mu.Unlock
}

// eval runs one source chunk. Callers hold the scope lock.
func (s *Scope) eval(ctx context.Context, src string) (reflect.Value, error) {
	return s.interp.EvalWithContext(ctx, src)
}

// Inject binds the given variables into the interpreter under their exact
// names. Values are exposed through a synthetic package and then assigned to
// interpreter globals, so evaluated code refers to them directly. Function
// values bind callable.
//
// yaegi cannot delete globals, so a previous invocation's injected names are
// overwritten rather than removed; only the current invocation's context is
// ever observable.
func (s *Scope) Inject(ctx context.Context, vars map[string]any) error {
	defer s.lock()()

	symbols := make(map[string]reflect.Value, len(vars))
	names := make(map[string]string, len(vars))
	for name, value := range vars {
		sym := exportName(name)
		if sym == "" {
			return fmt.Errorf("cannot derive export symbol for %q", name)
		}
		if value == nil {
			// A nil binding still needs a referencable symbol.
			value = any(nil)
			symbols[sym] = reflect.ValueOf(&value).Elem()
		} else {
			symbols[sym] = reflect.ValueOf(value)
		}
		names[name] = sym
	}

	if err := s.interp.Use(interp.Exports{envPath + "/env": symbols}); err != nil {
		return fmt.Errorf("bind environment package: %w", err)
	}
	if _, err := s.eval(ctx, fmt.Sprintf("import %q", envPath)); err != nil {
		return fmt.Errorf("import environment package: %w", err)
	}

	for name, sym := range names {
		if err := s.defineOrAssign(ctx, name, "env."+sym); err != nil {
			return fmt.Errorf("inject %s: %w", name, err)
		}
	}
	return nil
}

// defineOrAssign declares name, falling back to plain assignment when the
// interpreter already has the binding from an earlier invocation.
func (s *Scope) defineOrAssign(ctx context.Context, name, expr string) error {
	if _, err := s.eval(ctx, fmt.Sprintf("%s := %s", name, expr)); err == nil {
		return nil
	}
	_, err := s.eval(ctx, fmt.Sprintf("%s = %s", name, expr))
	return err
}

// exportName maps an injected variable name to an exported symbol of the
// synthetic package: _ctx -> Ctx, bot -> Bot.
func exportName(name string) string {
	trimmed := strings.TrimLeft(name, "_")
	if trimmed == "" {
		return ""
	}
	runes := []rune(trimmed)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
