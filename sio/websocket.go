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
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/golang/glog"
	"github.com/gorilla/websocket"

	"github.com/Comcast/conduit/crew"
)

// WebSockets is a Couplings that accepts messages from websocket
// clients and broadcasts every Report to all of them.
//
// This code turns on a firehose: each client sees everything.
type WebSockets struct {
	// Addr, if not empty, is the address for Start's HTTP
	// server.  Otherwise use Handler with your own server.
	Addr string

	// Path is where the websocket endpoint lives.
	Path string

	// Backlog is the per-connection output buffer size.
	Backlog int

	// Snapshots, if not nil, gives the Snapshots that a client
	// receives when it connects.  See Host.Snapshots.
	Snapshots func() map[string]*crew.Snapshot

	in   chan interface{}
	out  chan *Result
	done chan bool

	upgrader websocket.Upgrader
	conns    sync.Map
	nconns   int64

	server *http.Server
	wg     sync.WaitGroup
}

func NewWebSockets(addr string) *WebSockets {
	return &WebSockets{
		Addr:    addr,
		Path:    "/ws",
		Backlog: 32,
		in:      make(chan interface{}),
		out:     make(chan *Result),
		done:    make(chan bool),
	}
}

// Start starts the HTTP server if Addr is given.
func (s *WebSockets) Start(ctx context.Context) error {
	if s.Addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle(s.Path, s.Handler(ctx))
	s.server = &http.Server{
		Addr:    s.Addr,
		Handler: mux,
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		glog.Infof("websockets listening on %s%s", s.Addr, s.Path)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			glog.Errorf("websockets server error %s", err)
		}
	}()
	return nil
}

// IO starts the broadcast loop.
func (s *WebSockets) IO(ctx context.Context) (chan interface{}, chan *Result, chan bool, error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case r := <-s.out:
				if r == nil {
					return
				}
				rep := NewReport(r)
				if rep.Empty() {
					continue
				}
				s.broadcast(rep)
			}
		}
	}()
	return s.in, s.out, s.done, nil
}

func (s *WebSockets) broadcast(x interface{}) {
	s.conns.Range(func(k, v interface{}) bool {
		c := v.(chan interface{})
		select {
		case c <- x:
		default:
			glog.Warningf("websocket %v firehose blocked", k)
		}
		return true
	})
}

// Connections returns the number of connected clients.
func (s *WebSockets) Connections() int {
	return int(atomic.LoadInt64(&s.nconns))
}

// Handler returns the websocket endpoint.
func (s *WebSockets) Handler(ctx context.Context) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			glog.Warningf("websocket upgrade error %s", err)
			return
		}
		defer c.Close()

		ctl := make(chan bool)
		firehose := make(chan interface{}, s.Backlog)

		if s.Snapshots != nil {
			changed := make(map[string]*Changed)
			for pid, snap := range s.Snapshots() {
				changed[pid] = &Changed{Snapshot: snap}
			}
			if 0 < len(changed) {
				select {
				case firehose <- &Report{Changed: changed}:
				default:
					glog.Warningf("websocket %s no room for snapshots", r.RemoteAddr)
				}
			}
		}

		id := r.RemoteAddr
		s.conns.Store(id, firehose)
		atomic.AddInt64(&s.nconns, 1)
		defer func() {
			s.conns.Delete(id)
			atomic.AddInt64(&s.nconns, -1)
		}()

		// Only this goroutine writes to the connection.
		writer := make(chan bool)
		go func() {
			defer close(writer)
			for {
				select {
				case <-ctl:
					return
				case <-ctx.Done():
					return
				case x := <-firehose:
					js, err := json.Marshal(x)
					if err != nil {
						glog.Errorf("websocket marshal error %v on %#v", err, x)
						continue
					}
					if err = c.WriteMessage(websocket.TextMessage, js); err != nil {
						glog.Warningf("websocket write error %s", err)
						return
					}
				}
			}
		}()
		defer func() {
			close(ctl)
			<-writer
		}()

		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				glog.V(1).Infof("websocket %s read: %s", id, err)
				return
			}
			msg, err := ParseMessage(message)
			if err != nil {
				select {
				case firehose <- &Report{Errors: []string{err.Error()}}:
				default:
				}
				continue
			}
			select {
			case <-ctx.Done():
				return
			case s.in <- msg:
			}
		}
	})
}

// Stop shuts down the HTTP server, if any.
func (s *WebSockets) Stop(ctx context.Context) error {
	var err error
	if s.server != nil {
		err = s.server.Shutdown(ctx)
	}
	s.wg.Wait()
	return err
}
