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

// Package storage persists the auth token.
package storage

import (
	"context"
	"sync"
)

// TokenKey is the one key the client persists.
const TokenKey = "conduit_token"

// TokenStore is a persistence interface for the auth token.
//
// GetToken returns "" when there is no token.
type TokenStore interface {
	GetToken(ctx context.Context) (string, error)
	SetToken(ctx context.Context, token string) error
	ClearToken(ctx context.Context) error
}

// Memory is a TokenStore that forgets everything when the process
// exits.
type Memory struct {
	sync.Mutex
	token string
}

func NewMemory(token string) *Memory {
	return &Memory{
		token: token,
	}
}

func (s *Memory) GetToken(ctx context.Context) (string, error) {
	s.Lock()
	defer s.Unlock()
	return s.token, nil
}

func (s *Memory) SetToken(ctx context.Context, token string) error {
	s.Lock()
	s.token = token
	s.Unlock()
	return nil
}

func (s *Memory) ClearToken(ctx context.Context) error {
	return s.SetToken(ctx, "")
}

func (s *Memory) Open(ctx context.Context) error {
	return nil
}

func (s *Memory) Close(ctx context.Context) error {
	return nil
}
