package dispatch

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Dispatcher states surfaced to the web UI's status endpoint.
const (
	StateRunning  = "running"
	StateSleeping = "sleeping"
	StateIdle     = "idle"
)

// Status is the small document the dispatcher drops next to the task store so
// the control surfaces can show what it is doing.
type Status struct {
	State string `json:"state"`
	Label string `json:"label"`
}

// StatusFile returns the status document path for a given tasks file.
func StatusFile(tasksFile string) string {
	return filepath.Join(filepath.Dir(tasksFile), "status.json")
}

// ReadStatus loads the status document, defaulting to idle when it is
// missing or unreadable.
func ReadStatus(path string) Status {
	data, err := os.ReadFile(path)
	if err != nil {
		return Status{State: StateIdle, Label: "Idle"}
	}
	var st Status
	if err := json.Unmarshal(data, &st); err != nil || st.State == "" {
		return Status{State: StateIdle, Label: "Idle"}
	}
	return st
}

// writeStatus records the dispatcher's state. Best-effort: the loop never
// stalls on a status write.
func (d *Dispatcher) writeStatus(state, label string) {
	path := StatusFile(d.cfg.TasksFile)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return
	}
	data, err := json.Marshal(Status{State: state, Label: label})
	if err != nil {
		return
	}
	os.WriteFile(path, data, 0644)
}
