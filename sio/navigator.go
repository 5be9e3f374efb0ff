package sio

import (
	"context"
	"sync"

	"github.com/golang/glog"
)

// Navigator changes the client's location.
type Navigator interface {
	GoTo(ctx context.Context, path string) error
}

// History is a Navigator that just remembers where it has been.
type History struct {
	sync.Mutex
	Paths []string
}

func NewHistory() *History {
	return &History{
		Paths: make([]string, 0, 8),
	}
}

func (h *History) GoTo(ctx context.Context, path string) error {
	glog.V(1).Infof("navigate %s", path)
	h.Lock()
	h.Paths = append(h.Paths, path)
	h.Unlock()
	return nil
}

// Current returns the most recent path or "/".
func (h *History) Current() string {
	h.Lock()
	defer h.Unlock()
	if n := len(h.Paths); 0 < n {
		return h.Paths[n-1]
	}
	return "/"
}
