package crew

// NotStarted occurs when an Event is sent to a Machine that hasn't
// been Start()ed.
type NotStarted struct {
	Id string
}

func (e *NotStarted) Error() string {
	return `machine "` + e.Id + `" not started`
}
