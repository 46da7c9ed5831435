package domain

type Status string

const (
	StatusNotInstalled Status = "NOT_INSTALLED"
	StatusVerifying    Status = "VERIFYING"
	StatusStopped      Status = "STOPPED"
	StatusStarting     Status = "STARTING"
	StatusRunning      Status = "RUNNING"
	StatusStopping     Status = "STOPPING"
	StatusRestarting   Status = "RESTARTING"
	StatusUpdating     Status = "UPDATING"
	StatusError        Status = "ERROR"
)

var AllStatuses = []Status{
	StatusNotInstalled,
	StatusVerifying,
	StatusStopped,
	StatusStarting,
	StatusRunning,
	StatusStopping,
	StatusRestarting,
	StatusUpdating,
	StatusError,
}

// transitions lists the legal successors of each status. Error is reachable
// from everywhere and is handled in CanTransition.
var transitions = map[Status][]Status{
	StatusNotInstalled: {StatusVerifying, StatusStopped, StatusUpdating},
	StatusVerifying:    {StatusStopped, StatusNotInstalled},
	StatusStopped:      {StatusStarting, StatusUpdating, StatusVerifying, StatusNotInstalled},
	StatusStarting:     {StatusRunning, StatusStopping, StatusStopped},
	StatusRunning:      {StatusStopping, StatusRestarting, StatusUpdating},
	StatusStopping:     {StatusStopped},
	StatusRestarting:   {StatusStarting, StatusStopped},
	StatusUpdating:     {StatusStopped},
	StatusError:        {StatusStarting, StatusStopped, StatusUpdating, StatusVerifying, StatusNotInstalled},
}

func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Busy reports whether a lifecycle operation is in flight.
func (s Status) Busy() bool {
	switch s {
	case StatusStarting, StatusStopping, StatusRestarting, StatusUpdating, StatusVerifying:
		return true
	}
	return false
}

func CanTransition(from, to Status) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	if to == StatusError {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
