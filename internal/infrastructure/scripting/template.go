// Package scripting expands playground query templates.
//
// Templates use JavaScript template-literal syntax, so a template such as
//
//	SELECT * FROM people WHERE name = '${name}'
//
// is evaluated as a template literal in a sandboxed goja runtime. Every input
// key that is a valid identifier is bound as a global, and the whole input
// state is also available as the object `state`.
package scripting

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/dop251/goja"
)

// ErrTemplateTimeout is returned when a template does not finish in time.
var ErrTemplateTimeout = errors.New("template expansion timed out")

// DefaultTimeout bounds a single expansion.
const DefaultTimeout = 250 * time.Millisecond

var identifier = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// Globals that are never bound from input keys or left reachable.
var blockedGlobals = []string{
	"require", "module", "exports", "process", "global", "globalThis",
	"Function", "eval",
}

// TemplateEngine evaluates query templates.
type TemplateEngine struct {
	timeout time.Duration
}

// NewTemplateEngine creates an engine. A non-positive timeout uses DefaultTimeout.
func NewTemplateEngine(timeout time.Duration) *TemplateEngine {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &TemplateEngine{timeout: timeout}
}

// Expand evaluates template against state.
func (e *TemplateEngine) Expand(template string, state map[string]string) (string, error) {
	vm := goja.New()
	if err := e.bind(vm, state); err != nil {
		return "", err
	}

	timer := time.AfterFunc(e.timeout, func() { vm.Interrupt(ErrTemplateTimeout) })
	defer timer.Stop()

	value, err := vm.RunString("`" + escapeLiteral(template) + "`")
	if err != nil {
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			return "", ErrTemplateTimeout
		}
		var exc *goja.Exception
		if errors.As(err, &exc) {
			return "", fmt.Errorf("template error: %s", exc.Value().String())
		}
		return "", fmt.Errorf("template error: %w", err)
	}
	return value.String(), nil
}

func (e *TemplateEngine) bind(vm *goja.Runtime, state map[string]string) error {
	for _, name := range blockedGlobals {
		if err := vm.Set(name, goja.Undefined()); err != nil {
			return fmt.Errorf("failed to remove %s: %w", name, err)
		}
	}

	obj := vm.NewObject()
	for k, v := range state {
		if err := obj.Set(k, v); err != nil {
			return fmt.Errorf("failed to bind state key %q: %w", k, err)
		}
	}
	if err := vm.Set("state", obj); err != nil {
		return fmt.Errorf("failed to bind state: %w", err)
	}

	for k, v := range state {
		if !identifier.MatchString(k) || k == "state" || isBlocked(k) {
			continue
		}
		if err := vm.Set(k, v); err != nil {
			return fmt.Errorf("failed to bind %q: %w", k, err)
		}
	}
	return nil
}

func isBlocked(name string) bool {
	for _, b := range blockedGlobals {
		if b == name {
			return true
		}
	}
	return false
}

// escapeLiteral makes template safe to wrap in backticks. Placeholders
// are left alone.
func escapeLiteral(template string) string {
	r := strings.NewReplacer("\\", "\\\\", "`", "\\`")
	return r.Replace(template)
}
