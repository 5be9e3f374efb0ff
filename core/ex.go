package core

import (
	"context"
)

// Input is a tiny Event for examples and tests.
type Input string

func (i Input) Kind() string { return string(i) }

// TurnstileSpec makes an example Spec that's useful to have around.
//
// The context counts coins.
//
// See https://en.wikipedia.org/wiki/Finite-state_machine#Example:_coin-operated_turnstile.
func TurnstileSpec(ctx context.Context) (*Spec[int], error) {

	count := Assign("count", func(n int, _ Event) (int, error) {
		return n + 1, nil
	})

	branches := func() *Branches[int] {
		return &Branches[int]{
			Type: EventBranching,
			Branches: []*Branch[int]{
				{
					Event:   "coin",
					Actions: []Action[int]{count},
					Target:  "unlocked",
				},
				{
					Event:  "push",
					Target: "locked",
				},
			},
		}
	}

	spec := &Spec[int]{
		Name:    "turnstile",
		Initial: "locked",
		Nodes: map[string]*Node[int]{
			"locked": {
				Branches: branches(),
			},
			"unlocked": {
				Branches: branches(),
			},
		},
	}

	if err := spec.Compile(ctx); err != nil {
		return nil, err
	}

	return spec, nil
}
