package daemon_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Ning0612/Regsync/internal/daemon"
)

func TestPIDFile_WriteAndRead(t *testing.T) {
	tmpDir := t.TempDir()
	pidPath := filepath.Join(tmpDir, "test.pid")

	pidFile := daemon.NewPIDFile(pidPath)

	if err := pidFile.Write(); err != nil {
		t.Fatalf("Failed to write PID file: %v", err)
	}
	defer pidFile.Remove()

	pid, err := pidFile.Read()
	if err != nil {
		t.Fatalf("Failed to read PID file: %v", err)
	}

	if pid != os.Getpid() {
		t.Errorf("Expected PID %d, got %d", os.Getpid(), pid)
	}
}

func TestPIDFile_IsRunning(t *testing.T) {
	tmpDir := t.TempDir()
	pidPath := filepath.Join(tmpDir, "test.pid")

	pidFile := daemon.NewPIDFile(pidPath)

	if err := pidFile.Write(); err != nil {
		t.Fatalf("Failed to write PID file: %v", err)
	}
	defer pidFile.Remove()

	running, err := pidFile.IsRunning()
	if err != nil {
		t.Fatalf("Failed to check if running: %v", err)
	}

	if !running {
		t.Error("Expected current process to be reported as running")
	}
}

func TestPIDFile_WriteExisting(t *testing.T) {
	tmpDir := t.TempDir()
	pidPath := filepath.Join(tmpDir, "test.pid")

	pidFile := daemon.NewPIDFile(pidPath)

	if err := pidFile.Write(); err != nil {
		t.Fatalf("Failed to write PID file first time: %v", err)
	}
	defer pidFile.Remove()

	// Second write must fail while the owning process is alive
	if err := pidFile.Write(); err == nil {
		t.Error("Expected error when writing PID file for running process")
	}
}

func TestPIDFile_StalePIDCleanup(t *testing.T) {
	tmpDir := t.TempDir()
	pidPath := filepath.Join(tmpDir, "test.pid")

	pidFile := daemon.NewPIDFile(pidPath)

	// Plant a PID file from a process that cannot exist
	if err := os.WriteFile(pidPath, []byte("999999\n"), 0644); err != nil {
		t.Fatalf("Failed to write fake PID: %v", err)
	}

	// Write should reap the stale PID file and succeed
	if err := pidFile.Write(); err != nil {
		t.Fatalf("Failed to write after stale PID: %v", err)
	}
	defer pidFile.Remove()

	pid, err := pidFile.Read()
	if err != nil {
		t.Fatalf("Failed to read PID: %v", err)
	}

	if pid != os.Getpid() {
		t.Errorf("Expected current PID %d, got %d", os.Getpid(), pid)
	}
}

func TestDefaultPIDPath(t *testing.T) {
	path, err := daemon.DefaultPIDPath()
	if err != nil {
		t.Fatalf("Failed to get default PID path: %v", err)
	}

	if path == "" {
		t.Error("Expected non-empty PID path")
	}

	dir := filepath.Dir(path)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		t.Errorf("PID directory was not created: %s", dir)
	}
}

func TestPIDFile_Remove(t *testing.T) {
	tmpDir := t.TempDir()
	pidPath := filepath.Join(tmpDir, "test.pid")

	pidFile := daemon.NewPIDFile(pidPath)

	if err := pidFile.Write(); err != nil {
		t.Fatalf("Failed to write PID file: %v", err)
	}

	if err := pidFile.Remove(); err != nil {
		t.Fatalf("Failed to remove PID file: %v", err)
	}

	if _, err := os.Stat(pidPath); !os.IsNotExist(err) {
		t.Error("PID file still exists after removal")
	}

	// Removing again should not error
	if err := pidFile.Remove(); err != nil {
		t.Errorf("Expected no error when removing non-existent PID file, got: %v", err)
	}
}
