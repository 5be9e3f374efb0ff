package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dop251/goja"
)

// Interrupted is returned when a guard runs out of time.
var Interrupted = errors.New("RuntimeError: timeout")

// Guard is ECMAScript that checks an output after its pattern
// matched.
//
// The script sees "_.out" (the output) and "_.bindings".  Its value
// decides: null, undefined, or false reject the output; true keeps
// the bindings; an object replaces them.
type Guard struct {
	Source string

	// Timeout bounds a run.  Zero means one second.
	Timeout time.Duration

	program *goja.Program
}

func NewGuard(src string) (*Guard, error) {
	g := &Guard{
		Source: src,
	}
	return g, g.compile()
}

func (g *Guard) compile() error {
	if g.program != nil {
		return nil
	}
	p, err := goja.Compile("guard", g.Source, true)
	if err != nil {
		return err
	}
	g.program = p
	return nil
}

// Exec runs the guard.  Returns nil Bindings if the guard rejects.
func (g *Guard) Exec(ctx context.Context, out interface{}, bs Bindings) (Bindings, error) {
	if err := g.compile(); err != nil {
		return nil, err
	}

	// The script gets plain JSON values.
	env, err := canonicalize(map[string]interface{}{
		"out":      out,
		"bindings": bs,
	})
	if err != nil {
		return nil, err
	}

	vm := goja.New()
	if err = vm.Set("_", env); err != nil {
		return nil, err
	}

	timeout := g.Timeout
	if timeout <= 0 {
		timeout = time.Second
	}
	ictx, cancel := context.WithTimeout(ctx, timeout)
	go func() {
		<-ictx.Done()
		if ictx.Err() == context.DeadlineExceeded || ctx.Err() != nil {
			vm.Interrupt(Interrupted.Error())
		}
	}()

	v, err := vm.RunProgram(g.program)
	cancel()

	if err != nil {
		if _, is := err.(*goja.InterruptedError); is {
			return nil, Interrupted
		}
		return nil, err
	}

	switch x := v.Export().(type) {
	case nil:
		return nil, nil
	case bool:
		if x {
			return bs, nil
		}
		return nil, nil
	case map[string]interface{}:
		return Bindings(x), nil
	default:
		return nil, fmt.Errorf("guard result %#v (%T) isn't a boolean or bindings", x, x)
	}
}

// canonicalize is an abomination
func canonicalize(x interface{}) (interface{}, error) {
	js, err := json.Marshal(&x)
	if err != nil {
		return nil, err
	}
	var y interface{}
	if err = json.Unmarshal(js, &y); err != nil {
		return nil, err
	}
	return y, nil
}
