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

package main

import (
	"context"
	"fmt"

	"github.com/docopt/docopt-go"
	"github.com/golang/glog"

	"github.com/Comcast/conduit/api"
	"github.com/Comcast/conduit/config"
	"github.com/Comcast/conduit/machines"
	"github.com/Comcast/conduit/sio"
	"github.com/Comcast/conduit/storage"
	"github.com/Comcast/conduit/storage/bolt"
	"github.com/Comcast/conduit/storage/sqlite"
)

// tokenStore is a TokenStore with a lifecycle.
type tokenStore interface {
	storage.TokenStore
	Open(context.Context) error
	Close(context.Context) error
}

func openStore(ctx context.Context, c config.StorageConfig) (tokenStore, error) {
	var (
		s   tokenStore
		err error
	)
	switch c.Driver {
	case "memory":
		s = storage.NewMemory("")
	case "bolt":
		s, err = bolt.NewStorage(c.Path)
	case "sqlite":
		s, err = sqlite.NewStorage(c.Path)
	default:
		err = fmt.Errorf("unknown storage driver %q", c.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err = s.Open(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func couplings(c config.Config, opts docopt.Opts) sio.Couplings {
	switch c.IO {
	case "ws":
		return sio.NewWebSockets(c.WS.Addr)
	case "mqtt":
		mo := sio.MQTTOptions(c.MQTT.Broker, c.MQTT.ClientID, c.MQTT.KeepAlive)
		return sio.NewMQTT(mo, c.MQTT.InTopic, c.MQTT.OutTopic)
	}
	s := sio.NewStdio(flagged(opts, "--sh"))
	s.Tags = flagged(opts, "--tags")
	s.EchoInput = flagged(opts, "--echo")
	s.PrintUpdates = flagged(opts, "--updates")
	s.PrintDiag = flagged(opts, "--diag")
	s.StateOutputFilename = str(opts, "--state")
	return s
}

func run(ctx context.Context, opts docopt.Opts) error {
	c, err := config.Load(str(opts, "--config"))
	if err != nil {
		return err
	}
	verbosity(c.Log.V)

	store, err := openStore(ctx, c.Storage)
	if err != nil {
		return err
	}
	defer store.Close(context.Background())

	client, err := api.NewClient(c.API.BaseURL, store, c.API.Timeout)
	if err != nil {
		return err
	}

	io := couplings(c, opts)
	conf := &sio.HostConf{
		RequestTimeout: c.API.Timeout,
		HaltOnInputEOF: flagged(opts, "--halt"),
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	h, err := sio.NewHost(ctx, conf, io, client, store, nil)
	if err != nil {
		return err
	}
	if err = io.Start(ctx); err != nil {
		return err
	}

	if ws, is := io.(*sio.WebSockets); is {
		ws.Snapshots = h.Snapshots
	}

	r, err := h.Start(ctx)
	if err != nil {
		return err
	}
	if 0 < len(r.Errors) {
		glog.Warningf("session start: %v", r.Errors)
	}
	if !h.Emit(ctx, r) {
		return ctx.Err()
	}

	ts := sio.NewTimers(sio.HostEmitter(h))
	if c.Schedule.Refresh != "" {
		refresh := &sio.Envelope{
			To:    machines.FeedKind,
			Event: machines.Refresh{},
		}
		if err = ts.AddCron(ctx, "refresh", c.Schedule.Refresh, refresh); err != nil {
			return err
		}
	}

	err = h.Loop(ctx)

	cancel()
	ts.Wait()
	h.Wait()
	if serr := io.Stop(context.Background()); serr != nil && err == nil {
		err = serr
	}
	return err
}
