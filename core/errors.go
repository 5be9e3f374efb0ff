package core

// These errors are user errors, not internal errors.

// SpecNotCompiled occurs when a Spec is used (say via Step()) before
// it has been Compile()ed.
type SpecNotCompiled struct {
	Spec string
}

func (e *SpecNotCompiled) Error() string {
	return `spec "` + e.Spec + `" not compiled`
}

// UnknownNode occurs when a branch is followed and its target node is
// not in the Spec.
type UnknownNode struct {
	Spec     string
	NodeName string
}

func (e *UnknownNode) Error() string {
	return `node "` + e.NodeName + `" not found in spec "` + e.Spec + `"`
}

// BadInitial occurs when a Spec or a compound node names an Initial
// child that doesn't exist.
type BadInitial struct {
	Spec     string
	NodeName string
}

func (e *BadInitial) Error() string {
	if e.NodeName == "" {
		return `spec "` + e.Spec + `" has no initial node`
	}
	return `bad initial child at node "` + e.NodeName + `" in spec "` + e.Spec + `"`
}

// BadBranching occurs when a node's Branches isn't right.
//
// For example, an "event" Branch must name an Event.
type BadBranching struct {
	Spec     string
	NodeName string
	Type     BranchType
}

func (e *BadBranching) Error() string {
	return `bad "` + string(e.Type) + `" branching at node "` + e.NodeName + `" in spec "` + e.Spec + `"`
}

// BadInvoke occurs when a node's Invoke lacks an Op or a Src.
type BadInvoke struct {
	Spec     string
	NodeName string
}

func (e *BadInvoke) Error() string {
	return `bad invoke at node "` + e.NodeName + `" in spec "` + e.Spec + `"`
}

// BadAction occurs when an Action fails validation.
type BadAction struct {
	Spec     string
	NodeName string
	Err      error
}

func (e *BadAction) Error() string {
	return `bad action at node "` + e.NodeName + `" in spec "` + e.Spec + `": ` + e.Err.Error()
}

func (e *BadAction) Unwrap() error {
	return e.Err
}

// MissingDefault occurs when a Choose has no trailing default Choice.
type MissingDefault struct {
	Action string
}

func (e *MissingDefault) Error() string {
	return `action "` + e.Action + `" has no default choice`
}

// EmptyPayload occurs when a Done without data is decoded.
type EmptyPayload struct {
	Op string
}

func (e *EmptyPayload) Error() string {
	return `empty payload for "` + e.Op + `"`
}

// BadPayload occurs when the data of a Done can't be decoded.  Step
// delivers the completion again as a Failed carrying this error.
type BadPayload struct {
	Op  string
	Err error
}

func (e *BadPayload) Error() string {
	return `bad payload for "` + e.Op + `": ` + e.Err.Error()
}

func (e *BadPayload) Unwrap() error {
	return e.Err
}
