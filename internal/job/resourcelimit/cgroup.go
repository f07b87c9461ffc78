// Package resourcelimit adapts the teacher's lib/cgroup package into a
// per-job memory ceiling for forge's plain (non-containerized) jobs —
// the resource-limited-plain-jobs supplement from SPEC_FULL.md §2.2.
// Containerized jobs get their memory ceiling from the docker command
// line instead (internal/job.Job.wrap); this package only ever backs
// the plain path.
package resourcelimit

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
)

const defaultRootPath = "/sys/fs/cgroup"
const defaultGroupName = "forge"

// Manager creates and tears down one cgroup v2 directory per
// resource-limited job.
type Manager struct {
	rootPath  string
	groupName string

	groups map[string]*os.File
	mu     sync.Mutex
}

type Option func(*Manager)

func WithRootPath(path string) Option {
	return func(m *Manager) { m.rootPath = path }
}

func WithGroupName(name string) Option {
	return func(m *Manager) { m.groupName = name }
}

func NewManager(options ...Option) *Manager {
	m := &Manager{
		rootPath:  defaultRootPath,
		groupName: defaultGroupName,
		groups:    make(map[string]*os.File),
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

// Init enables the controllers forge needs and creates its top-level
// cgroup, mirroring the teacher's FSManager.init().
func (m *Manager) Init() error {
	subtree := filepath.Join(m.rootPath, "cgroup.subtree_control")
	if err := writeFile(subtree, "+cpu +memory +io"); err != nil {
		return fmt.Errorf("enabling root cgroup controllers: %w", err)
	}

	groupDir := filepath.Join(m.rootPath, m.groupName)
	if err := os.Mkdir(groupDir, 0o755); err != nil && !os.IsExist(err) {
		return fmt.Errorf("creating forge cgroup: %w", err)
	}

	groupSubtree := filepath.Join(groupDir, "cgroup.subtree_control")
	if err := writeFile(groupSubtree, "+cpu +memory +io"); err != nil {
		return fmt.Errorf("enabling forge cgroup controllers: %w", err)
	}
	return nil
}

// AddGroup creates a cgroup for jobName with the given memory ceiling
// and returns its directory file descriptor, ready to be set as
// SysProcAttr.CgroupFD on the job's exec.Cmd.
func (m *Manager) AddGroup(jobName string, memoryLimitBytes int64) (int, error) {
	dirPath := filepath.Join(m.rootPath, m.groupName, jobName)
	if err := os.Mkdir(dirPath, 0o755); err != nil {
		return -1, fmt.Errorf("creating cgroup directory: %w", err)
	}

	dir, err := os.Open(dirPath)
	if err != nil {
		return -1, fmt.Errorf("opening cgroup directory: %w", err)
	}

	if err := writeFile(filepath.Join(dirPath, "memory.max"), fmt.Sprintf("%d", memoryLimitBytes)); err != nil {
		_ = os.Remove(dirPath)
		return -1, fmt.Errorf("writing memory.max: %w", err)
	}

	m.mu.Lock()
	m.groups[jobName] = dir
	m.mu.Unlock()

	return int(dir.Fd()), nil
}

// RemoveGroup closes and removes the cgroup for jobName. Callers must
// wait for the job's process to have exited first — cgroups cannot be
// removed while populated.
func (m *Manager) RemoveGroup(jobName string) error {
	m.mu.Lock()
	dir, ok := m.groups[jobName]
	delete(m.groups, jobName)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("cgroup %s not found", jobName)
	}
	if err := dir.Close(); err != nil {
		return fmt.Errorf("closing cgroup directory: %w", err)
	}
	return os.Remove(filepath.Join(m.rootPath, m.groupName, jobName))
}

func writeFile(path, content string) error {
	cmd := exec.Command("sh", "-c", fmt.Sprintf("echo %q > %s", content, path))
	return cmd.Run()
}
