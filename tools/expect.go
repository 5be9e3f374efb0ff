package tools

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"time"

	"github.com/golang/glog"
	"github.com/jsccast/yaml"
)

// Output is a specification for a line of output that's expected.
type Output struct {
	// Doc is an opaque documentation string.
	Doc string `json:"doc,omitempty" yaml:"doc,omitempty"`

	// Pattern must be matched by an output line.  See Match.
	Pattern interface{} `json:"pattern,omitempty" yaml:"pattern,omitempty"`

	// Guard is optional ECMAScript that is run to verify the
	// bindings after a match.  See Guard.
	Guard string `json:"guard,omitempty" yaml:"guard,omitempty"`

	// Bindings, which is the result of a match (and optional
	// guard) is written during processing.  Just for diagnostics.
	Bindings Bindings `json:"-" yaml:"-"`
}

// IO is a package of input messages and required output
// specifications.
type IO struct {
	// Doc is an opaque documentation string.
	Doc string `json:"doc,omitempty" yaml:"doc,omitempty"`

	// WaitBefore is the time to wait before sending the first message.
	WaitBefore time.Duration `json:"waitBefore,omitempty" yaml:"waitBefore,omitempty"`

	// WaitBetween is the time to wait between sending messages.
	WaitBetween time.Duration `json:"waitBetween,omitempty" yaml:"waitBetween,omitempty"`

	// Inputs are the messages to send.  A string is sent as is.
	// Anything else is sent as JSON.
	Inputs []interface{} `json:"inputs,omitempty" yaml:"inputs,omitempty"`

	// WaitAfter is the time to wait after sending the last
	// message.
	WaitAfter time.Duration `json:"waitAfter,omitempty" yaml:"waitAfter,omitempty"`

	// OutputSet is the set (not a list) of outputs to verify.
	OutputSet []Output `json:"outputSet,omitempty" yaml:"outputSet,omitempty"`

	// Timeout is the optional timeout for this set.
	// Scenario.DefaultTimeout is the default value.
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// Scenario is mostly a sequence of IOs.
type Scenario struct {
	// Doc is an opaque documentation string.
	Doc string `json:"doc,omitempty" yaml:"doc,omitempty"`

	// IOs is sequence of IOs that this scenario will run.
	IOs []IO `json:"ios" yaml:"ios"`

	// ParsePatterns will parse string Patterns as JSON.
	ParsePatterns bool `json:"parsePatterns,omitempty" yaml:"parsePatterns,omitempty"`

	// DefaultTimeout is the default timeout for each IO.
	DefaultTimeout time.Duration `json:"defaultTimeout,omitempty" yaml:"defaultTimeout,omitempty"`

	// ShowStderr controls whether the subprocess's stderr is
	// logged.
	ShowStderr bool `json:"showStderr,omitempty" yaml:"showStderr,omitempty"`

	ShowStdin bool `json:"showStdin,omitempty" yaml:"showStdin,omitempty"`

	ShowStdout bool `json:"showStdout,omitempty" yaml:"showStdout,omitempty"`
}

// ScenarioFailure reports the IO that didn't see all of its outputs.
type ScenarioFailure struct {
	IO      int
	Doc     string
	Missing []string
	Err     error
}

func (e *ScenarioFailure) Error() string {
	return fmt.Sprintf("io %d (%s) failed: %v; missing %v", e.IO, e.Doc, e.Err, e.Missing)
}

func (e *ScenarioFailure) Unwrap() error {
	return e.Err
}

var (
	ErrTimeout   = errors.New("timeout")
	ErrOutputEOF = errors.New("output ended")
)

// ReadScenario reads a YAML (or JSON) scenario.  The file can use
// '%inline("NAME")' to include other files.
func ReadScenario(filename string) (*Scenario, error) {
	src, err := ReadFileWithInlines(filename)
	if err != nil {
		return nil, err
	}
	var s Scenario
	if err = yaml.Unmarshal(src, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Run processes all the IOs in the Scenario with a subprocess.
//
// The subprocess is given by the args. The first arg is the
// executable, and dir is its working directory.
func (s *Scenario) Run(ctx context.Context, dir string, args ...string) error {
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = dir

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return err
	}

	if err := cmd.Start(); err != nil {
		return err
	}

	// Log subprocess's stderr.
	go func() {
		out := bufio.NewReader(stderr)
		for {
			line, err := out.ReadBytes('\n')
			if err != nil {
				return
			}
			if s.ShowStderr {
				glog.Infof("stderr %s", line)
			}
		}
	}()

	if err := s.Exchange(ctx, stdin, stdout); err != nil {
		stdin.Close()
		cmd.Process.Kill()
		cmd.Wait()
		return err
	}

	if err := stdin.Close(); err != nil {
		glog.Warningf("stdin.Close() error %s", err)
	}

	return cmd.Wait()
}

// Exchange writes the inputs of each IO to in and reads lines from
// out until that IO's outputs have all been seen.
func (s *Scenario) Exchange(ctx context.Context, in io.Writer, out io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan []byte)
	go func() {
		defer close(lines)
		r := bufio.NewReader(out)
		for {
			line, err := r.ReadBytes('\n')
			if 0 < len(line) {
				select {
				case <-ctx.Done():
					return
				case lines <- line:
				}
			}
			if err != nil {
				return
			}
		}
	}()

	for i := range s.IOs {
		if err := s.exchange(ctx, i, &s.IOs[i], in, lines); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scenario) exchange(ctx context.Context, i int, iop *IO, in io.Writer, lines chan []byte) error {
	timeout := iop.Timeout
	if timeout == 0 {
		timeout = s.DefaultTimeout
	}

	fail := func(err error) error {
		f := &ScenarioFailure{
			IO:  i,
			Doc: iop.Doc,
			Err: err,
		}
		for _, o := range iop.OutputSet {
			if o.Bindings == nil {
				f.Missing = append(f.Missing, fmt.Sprintf("%v", o.Pattern))
			}
		}
		return f
	}

	patterns := make([]interface{}, len(iop.OutputSet))
	guards := make([]*Guard, len(iop.OutputSet))
	for j, o := range iop.OutputSet {
		patterns[j] = o.Pattern
		if str, is := o.Pattern.(string); is && s.ParsePatterns {
			if err := json.Unmarshal([]byte(str), &patterns[j]); err != nil {
				return fail(err)
			}
		}
		if o.Guard != "" {
			g, err := NewGuard(o.Guard)
			if err != nil {
				return fail(err)
			}
			guards[j] = g
		}
	}

	// Send messages.
	sent := make(chan error, 1)
	go func() {
		sent <- s.send(ctx, iop, in)
	}()

	var deadline <-chan time.Time
	if 0 < timeout {
		t := time.NewTimer(timeout)
		defer t.Stop()
		deadline = t.C
	}

	need := len(iop.OutputSet)
	sending := true
	for 0 < need || sending {
		select {
		case <-ctx.Done():
			return fail(ctx.Err())
		case <-deadline:
			return fail(ErrTimeout)
		case err := <-sent:
			if err != nil {
				return fail(err)
			}
			sending = false
		case line, ok := <-lines:
			if !ok {
				return fail(ErrOutputEOF)
			}
			if s.ShowStdout {
				glog.Infof("out %s", line)
			}
			var message interface{}
			if err := json.Unmarshal(line, &message); err != nil {
				glog.V(1).Infof("ignoring %s", line)
				continue
			}
			for j := range iop.OutputSet {
				o := &iop.OutputSet[j]
				if o.Bindings != nil {
					continue
				}
				bs := Match(patterns[j], message, nil)
				if bs != nil && guards[j] != nil {
					var err error
					if bs, err = guards[j].Exec(ctx, message, bs); err != nil {
						return fail(err)
					}
				}
				if bs != nil {
					o.Bindings = bs
					need--
				}
			}
		}
	}

	return nil
}

func (s *Scenario) send(ctx context.Context, iop *IO, in io.Writer) error {
	pause(ctx, iop.WaitBefore)
	for i, input := range iop.Inputs {
		if 0 < i {
			pause(ctx, iop.WaitBetween)
		}
		var js []byte
		if str, is := input.(string); is {
			js = []byte(str)
		} else {
			x, err := canonicalize(yamlFree(input))
			if err != nil {
				return err
			}
			if js, err = json.Marshal(x); err != nil {
				return err
			}
		}
		if s.ShowStdin {
			glog.Infof("in %s", js)
		}
		if _, err := in.Write(append(js, '\n')); err != nil {
			return err
		}
	}
	pause(ctx, iop.WaitAfter)
	return nil
}

// yamlFree converts YAML's map[interface{}]interface{}s so the value
// can be rendered as JSON.
func yamlFree(x interface{}) interface{} {
	switch vv := x.(type) {
	case map[interface{}]interface{}:
		m := make(map[string]interface{}, len(vv))
		for k, v := range vv {
			m[fmt.Sprintf("%v", k)] = yamlFree(v)
		}
		return m
	case map[string]interface{}:
		m := make(map[string]interface{}, len(vv))
		for k, v := range vv {
			m[k] = yamlFree(v)
		}
		return m
	case []interface{}:
		acc := make([]interface{}, len(vv))
		for i, v := range vv {
			acc[i] = yamlFree(v)
		}
		return acc
	default:
		return x
	}
}

func pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
