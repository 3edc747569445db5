package session

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

const (
	lockDirName   = ".session.lock"
	lockOwnerFile = "owner.json"

	BackgroundFile = "background.mp4"
	ArtifactFile   = "final_reel.mp4"
	IdeaFile       = "idea.json"
	SnapshotFile   = "session.json"
	PublishFile    = "publish.json"
)

type dirLock struct {
	lockDir string
}

type lockOwner struct {
	PID       int    `json:"pid"`
	CreatedAt string `json:"created_at"`
	Hostname  string `json:"hostname,omitempty"`
}

// newSessionID is the first 8 characters of a random UUID
func newSessionID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// createDir makes a fresh directory under root, retrying on the rare id collision
func createDir(root string) (string, string, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return "", "", fmt.Errorf("create sessions directory %s: %w", root, err)
	}
	for range 5 {
		id := newSessionID()
		dir := filepath.Join(root, id)
		err := os.Mkdir(dir, 0o755)
		if err == nil {
			return id, dir, nil
		}
		if !os.IsExist(err) {
			return "", "", fmt.Errorf("create session directory %s: %w", dir, err)
		}
	}
	return "", "", fmt.Errorf("could not allocate a session directory under %s", root)
}

func acquireLock(dir string) (dirLock, error) {
	lockDir := filepath.Join(dir, lockDirName)
	if err := os.Mkdir(lockDir, 0o755); err != nil {
		if os.IsExist(err) {
			var owner lockOwner
			if readErr := readJSON(filepath.Join(lockDir, lockOwnerFile), &owner); readErr == nil && owner.PID > 0 {
				return dirLock{}, fmt.Errorf("session directory is locked: %s (pid=%d created_at=%s host=%s)",
					dir, owner.PID, owner.CreatedAt, owner.Hostname)
			}
			return dirLock{}, fmt.Errorf("session directory is locked: %s", dir)
		}
		return dirLock{}, fmt.Errorf("acquire session lock for %s: %w", dir, err)
	}

	owner := lockOwner{
		PID:       os.Getpid(),
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Hostname:  hostnameOrUnknown(),
	}
	if err := writeJSON(filepath.Join(lockDir, lockOwnerFile), owner); err != nil {
		_ = os.Remove(lockDir)
		return dirLock{}, fmt.Errorf("write session lock owner for %s: %w", dir, err)
	}
	return dirLock{lockDir: lockDir}, nil
}

func (l dirLock) release() error {
	if l.lockDir == "" {
		return nil
	}
	_ = os.Remove(filepath.Join(l.lockDir, lockOwnerFile))
	if err := os.Remove(l.lockDir); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("release session lock %s: %w", l.lockDir, err)
	}
	return nil
}

func hostnameOrUnknown() string {
	host, err := os.Hostname()
	if err != nil || strings.TrimSpace(host) == "" {
		return "unknown"
	}
	return strings.TrimSpace(host)
}

// writeFileAtomic writes through a temp file in the same directory and renames it into place
func writeFileAtomic(path string, r io.Reader) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create parent for %s: %w", path, err)
	}
	tmp, err := os.CreateTemp(dir, ".session-tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", path, err)
	}
	tmpPath := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpPath) }

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write temp file for %s: %w", path, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("chmod temp file for %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp file for %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		cleanup()
		return fmt.Errorf("atomic rename for %s: %w", path, err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON for %s: %w", path, err)
	}
	data = append(data, '\n')
	return writeFileAtomic(path, bytes.NewReader(data))
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse JSON %s: %w", path, err)
	}
	return nil
}

// copyFile copies src to dst byte for byte, replacing dst atomically
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	return writeFileAtomic(dst, in)
}
