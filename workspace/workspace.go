// Package workspace implements the Workspace/Storage collaborator
// contract of spec.md §6: directory layout under
// <workspace_dir>/.peace/<app_name>/<profile>/<flow_id>/, backed by the
// local filesystem for the per-profile-per-flow YAML files, plus a
// go.etcd.io/bbolt-backed history index recording one row per completed
// CmdExecution. The filesystem root/bucket-table approach is grounded on
// the teacher's db/bolt.DB wrapper (db/bolt/bolt.go).
package workspace

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/flowrt/flowrt/ids"
)

// Workspace resolves the directory layout one app/profile/flow occupies
// on disk (spec.md §6).
type Workspace struct {
	root string // workspace_dir
	app  ids.AppName
}

// New returns a Workspace rooted at dir for app. dir is created if it
// does not already exist.
func New(dir string, app ids.AppName) (*Workspace, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("workspace: creating workspace dir %s: %w", dir, err)
	}
	return &Workspace{root: dir, app: app}, nil
}

// WorkspaceDir returns the workspace root.
func (w *Workspace) WorkspaceDir() string { return w.root }

// PeaceDir returns <workspace_dir>/.peace.
func (w *Workspace) PeaceDir() string { return filepath.Join(w.root, ".peace") }

// PeaceAppDir returns <workspace_dir>/.peace/<app_name>.
func (w *Workspace) PeaceAppDir() string { return filepath.Join(w.PeaceDir(), w.app.String()) }

// ProfileDir returns <peace_app_dir>/<profile>.
func (w *Workspace) ProfileDir(profile ids.Profile) string {
	return filepath.Join(w.PeaceAppDir(), profile.String())
}

// ProfileHistoryDir returns <profile_dir>/.history, where the bbolt
// history index file and any archived run logs live.
func (w *Workspace) ProfileHistoryDir(profile ids.Profile) string {
	return filepath.Join(w.ProfileDir(profile), ".history")
}

// FlowDir returns <profile_dir>/<flow_id>, the directory the States/
// StateDiffs/ParamsSpecs YAML files for one flow live under.
func (w *Workspace) FlowDir(profile ids.Profile, flow ids.FlowId) string {
	return filepath.Join(w.ProfileDir(profile), flow.String())
}

// Storage is the file-level read/write/typemap-read contract the core
// consumes (spec.md §6). FileStorage is the only implementation in this
// repository; it is a thin interface purely so blocks/cmdexecution code
// never imports "os" directly.
type Storage interface {
	// SerializedReadOpt opens name for reading, or returns (nil, nil) if
	// it does not exist — the "Opt" (optional) contract spec.md names.
	SerializedReadOpt(dir, name string) (io.ReadCloser, error)
	// SerializedWrite atomically writes data to dir/name, creating dir if
	// needed.
	SerializedWrite(dir, name string, write func(io.Writer) error) error
}

// FileStorage is the local-filesystem Storage implementation.
type FileStorage struct{}

var _ Storage = FileStorage{}

func (FileStorage) SerializedReadOpt(dir, name string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("workspace: reading %s/%s: %w", dir, name, err)
	}
	return f, nil
}

func (FileStorage) SerializedWrite(dir, name string, write func(io.Writer) error) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("workspace: creating %s: %w", dir, err)
	}
	path := filepath.Join(dir, name)
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("workspace: creating %s: %w", tmp, err)
	}
	if err := write(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("workspace: writing %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("workspace: closing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("workspace: renaming %s to %s: %w", tmp, path, err)
	}
	return nil
}

// The well-known file names spec.md §6 lists.
const (
	FileStatesCurrent  = "states_current.yaml"
	FileStatesGoal     = "states_goal.yaml"
	FileStatesCleaned  = "states_cleaned.yaml"
	FileStatesEnsured  = "states_ensured.yaml"
	FileStatesPrevious = "states_previous.yaml"
	FileStateDiffs     = "state_diffs.yaml"
	FileParamsSpecs    = "params_specs.yaml"

	FileWorkspaceParams = "workspace_params.yaml"
	FileProfileParams   = "profile_params.yaml"
	FileFlowParams      = "flow_params.yaml"
)
