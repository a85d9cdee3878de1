package dispatch

import (
	"os"
	"path/filepath"
	"testing"
)

func TestReadStatus(t *testing.T) {
	t.Run("missing file is idle", func(t *testing.T) {
		st := ReadStatus(filepath.Join(t.TempDir(), "status.json"))
		if st.State != StateIdle {
			t.Errorf("state = %q, want idle", st.State)
		}
	})

	t.Run("malformed file is idle", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "status.json")
		os.WriteFile(path, []byte("{broken"), 0644)

		st := ReadStatus(path)
		if st.State != StateIdle {
			t.Errorf("state = %q, want idle", st.State)
		}
	})

	t.Run("round trip through writeStatus", func(t *testing.T) {
		cfg := testConfig(t)
		d, _ := newTestDispatcher(t, cfg, nil)

		d.writeStatus(StateRunning, "Task #7")

		st := ReadStatus(StatusFile(cfg.TasksFile))
		if st.State != StateRunning || st.Label != "Task #7" {
			t.Errorf("got %+v", st)
		}
	})
}

func TestStatusFile(t *testing.T) {
	got := StatusFile("/data/.ralph/tasks.json")
	if got != "/data/.ralph/status.json" {
		t.Errorf("got %q", got)
	}
}
