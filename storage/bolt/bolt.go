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

// Package bolt is a BoltDB token store.
package bolt

import (
	"context"
	"errors"
	"time"

	"github.com/Comcast/conduit/storage"

	"github.com/golang/glog"
	bolt "go.etcd.io/bbolt"
)

// Bucket holds the persisted keys.
var Bucket = []byte("conduit")

var NotOpen = errors.New("storage not open")

type Storage struct {
	filename string
	db       *bolt.DB
}

func NewStorage(filename string) (*Storage, error) {
	if filename == "" {
		return nil, errors.New("no filename")
	}
	return &Storage{
		filename: filename,
	}, nil
}

func (s *Storage) Open(ctx context.Context) error {
	opts := &bolt.Options{
		Timeout: time.Second,
	}

	db, err := bolt.Open(s.filename, 0600, opts)
	if err != nil {
		return err
	}
	s.db = db

	return s.db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(Bucket)
		return err
	})
}

func (s *Storage) Close(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Storage) GetToken(ctx context.Context) (string, error) {
	if s.db == nil {
		return "", NotOpen
	}
	var token string
	err := s.db.View(func(tx *bolt.Tx) error {
		if b := tx.Bucket(Bucket); b != nil {
			token = string(b.Get([]byte(storage.TokenKey)))
		}
		return nil
	})
	glog.V(3).Infof("bolt GetToken present=%v", token != "")
	return token, err
}

func (s *Storage) SetToken(ctx context.Context, token string) error {
	if s.db == nil {
		return NotOpen
	}
	glog.V(3).Infof("bolt SetToken")
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(Bucket)
		if err != nil {
			return err
		}
		return b.Put([]byte(storage.TokenKey), []byte(token))
	})
}

func (s *Storage) ClearToken(ctx context.Context) error {
	if s.db == nil {
		return NotOpen
	}
	glog.V(3).Infof("bolt ClearToken")
	return s.db.Update(func(tx *bolt.Tx) error {
		if b := tx.Bucket(Bucket); b != nil {
			return b.Delete([]byte(storage.TokenKey))
		}
		return nil
	})
}
