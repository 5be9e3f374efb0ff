/* Copyright 2019 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package sio

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/golang/glog"
)

// Stdio is a fairly simple Couplings that uses stdin for input and
// stdout for output.
//
// Each input line is a message as understood by ParseMessage.
// Snapshots are optionally written as JSON to a file.
type Stdio struct {
	// In is coupled to Host input.
	In io.Reader

	// Out is coupled to Host output.
	Out io.Writer

	// ShellExpand enables input to include inline shell commands
	// delimited by '<<' and '>>'.  Use at your own risk, of
	// course!
	ShellExpand bool

	// Timestamps prepends a timestamp to each output line.
	Timestamps bool

	// EchoInput writes input lines (prepended with "input") to
	// the output.
	EchoInput bool

	// Tags prefixes tags indicating type of output ("input",
	// "emit", "update", "error", "diag").
	Tags bool

	// PadTags adds some padding to tags used in output.
	PadTags bool

	// PrintUpdates will print Snapshot changes.
	PrintUpdates bool

	*JSONStore

	// InputEOF will be closed on EOF from stdin.
	InputEOF chan bool

	// WriteStatePerMsg will write out ALL state after every input
	// message is processed.
	//
	// Inefficient!
	WriteStatePerMsg bool

	// PrintDiag turns on printing of diagnostic data.
	PrintDiag bool

	outMu sync.Mutex
}

// NewStdio creates a new Stdio.
//
// In and Out are initialized with os.Stdin and os.Stdout
// respectively.
func NewStdio(shellExpand bool) *Stdio {
	return &Stdio{
		In:          os.Stdin,
		Out:         os.Stdout,
		ShellExpand: shellExpand,
		JSONStore:   NewJSONStore(""),
		InputEOF:    make(chan bool),
	}
}

// Start does nothing.
func (s *Stdio) Start(ctx context.Context) error {
	return nil
}

// Stop writes out the state if requested by StateOutputFilename.
//
// This function waits until IO is complete or was terminated via its
// context.
func (s *Stdio) Stop(ctx context.Context) error {
	return s.JSONStore.Stop(ctx, true)
}

func (s *Stdio) printf(tag, format string, args ...interface{}) {
	if s.PadTags {
		tag = fmt.Sprintf("% 8s", tag)
	}
	if s.Tags {
		format = tag + " " + format
	}
	if s.Timestamps {
		ts := fmt.Sprintf("%-31s", time.Now().UTC().Format(time.RFC3339Nano))
		format = ts + " " + format
	}
	s.outMu.Lock()
	fmt.Fprintf(s.Out, format, args...)
	s.outMu.Unlock()
}

// IO returns channels for reading from stdin and writing to stdout.
func (s *Stdio) IO(ctx context.Context) (chan interface{}, chan *Result, chan bool, error) {
	in := make(chan interface{})
	done := make(chan bool)

	s.WG.Add(1)
	go func() {
		defer s.WG.Done()
		stdin := bufio.NewReader(s.In)
		for {
			line, err := stdin.ReadString('\n')
			if err == io.EOF || strings.TrimSpace(line) == "quit" {
				close(done)
				close(s.InputEOF)
				glog.V(1).Infof("stdio input done")
				return
			}
			if err != nil {
				glog.Errorf("stdin error %s", err)
				return
			}
			if s.EchoInput {
				s.printf("input", "%s", line)
			}
			if strings.HasPrefix(line, "#") || len(strings.TrimSpace(line)) == 0 {
				continue
			}
			if s.ShellExpand {
				if line, err = ShellExpand(line); err != nil {
					glog.Errorf("stdin error %s", err)
					return
				}
			}

			msg, err := ParseMessage([]byte(line))
			if err != nil {
				s.printf("error", "%s\n", JS(err.Error()))
				continue
			}

			select {
			case <-ctx.Done():
				return
			case in <- msg:
			}
		}
	}()

	out := make(chan *Result)

	s.WG.Add(1)
	go func() {
		defer s.WG.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case r := <-out:
				if r == nil {
					return
				}
				s.write(ctx, r)
			}
		}
	}()

	return in, out, done, nil
}

func (s *Stdio) write(ctx context.Context, r *Result) {
	for _, emitted := range r.Emitted {
		for _, e := range emitted {
			s.printf("emit", "%s\n", JS(Tagged(e)))
		}
	}
	for _, msg := range r.Errors {
		s.printf("error", "%s\n", JS(msg))
	}
	if s.PrintUpdates {
		for id, c := range r.Changed {
			s.printf("update", "%s\n", JS(map[string]interface{}{id: c}))
		}
	}
	if s.PrintDiag {
		for _, stroll := range r.Diag {
			s.printf("diag", "%s\n", JShort(stroll))
		}
	}
	if err := s.Update(r); err != nil {
		glog.Errorf("stdio update error %s", err)
	}
	if s.WriteStatePerMsg {
		if err := s.WriteState(ctx); err != nil {
			glog.Errorf("stdio write error %s", err)
		}
	}
}
