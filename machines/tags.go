package machines

import (
	"context"

	"github.com/Comcast/conduit/api"
	"github.com/Comcast/conduit/core"
)

const (
	TagsRequestOp = "tagsRequest"
)

type TagsContext struct {
	Tags   []string   `json:"tags"`
	Errors api.Errors `json:"errors,omitempty"`
}

// TagsSpec makes the Tags Spec.  There's no retry.
func TagsSpec(opts Options) (*core.Spec[TagsContext], error) {
	type C = TagsContext

	spec := &core.Spec[C]{
		Name:    TagsKind,
		Doc:     "The popular tags.",
		Initial: "loading",
		Nodes: map[string]*core.Node[C]{
			"loading": {
				Invoke: &core.Invoke[C]{
					Op: TagsRequestOp,
					Src: func(C) (*core.Request, error) {
						return core.Get("", api.TagsPath), nil
					},
				},
				Branches: &core.Branches[C]{
					Branches: []*core.Branch[C]{
						{
							Event: core.DoneKind(TagsRequestOp),
							Actions: []core.Action[C]{
								core.Assign("assignTags", func(c C, ev core.Event) (C, error) {
									resp, err := payload[api.TagListResponse](ev)
									c.Tags = resp.Tags
									return c, err
								}),
							},
							Target: "tagsLoaded",
						},
						{
							Event: core.ErrorKind(TagsRequestOp),
							Actions: []core.Action[C]{
								core.Assign("assignErrors", func(c C, ev core.Event) (C, error) {
									c.Errors = failure(ev)
									return c, nil
								}),
							},
							Target: "errored",
						},
					},
				},
			},
			"tagsLoaded": {},
			"errored":    {},
		},
	}

	if err := spec.Compile(context.Background()); err != nil {
		return nil, err
	}
	return spec, nil
}
