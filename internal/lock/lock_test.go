package lock

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestNewFileLock(t *testing.T) {
	dir := t.TempDir()

	lock, err := NewFileLock(dir)
	if err != nil {
		t.Fatalf("NewFileLock() error = %v", err)
	}

	expected := filepath.Join(dir, LockFileName)
	if lock.lockPath != expected {
		t.Errorf("expected lock path %s, got %s", expected, lock.lockPath)
	}
}

func TestAcquireRelease(t *testing.T) {
	dir := t.TempDir()

	lock, err := NewFileLock(dir)
	if err != nil {
		t.Fatalf("NewFileLock() error = %v", err)
	}

	if err := lock.Acquire("daemon"); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	holder, err := lock.GetHolder()
	if err != nil {
		t.Fatalf("GetHolder() error = %v", err)
	}
	if holder.PID != os.Getpid() {
		t.Errorf("expected holder PID %d, got %d", os.Getpid(), holder.PID)
	}
	if holder.Operation != "daemon" {
		t.Errorf("expected operation daemon, got %s", holder.Operation)
	}

	if err := lock.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}

	if lock.IsLocked() {
		t.Error("lock still held after Release()")
	}
}

func TestAcquireTwice_SameInstance(t *testing.T) {
	dir := t.TempDir()

	lock, err := NewFileLock(dir)
	if err != nil {
		t.Fatalf("NewFileLock() error = %v", err)
	}
	defer lock.Release()

	if err := lock.Acquire("daemon"); err != nil {
		t.Fatalf("first Acquire() error = %v", err)
	}

	// Re-acquiring from the same instance just updates the operation label
	if err := lock.Acquire("migration"); err != nil {
		t.Fatalf("second Acquire() error = %v", err)
	}

	holder, err := lock.GetHolder()
	if err != nil {
		t.Fatalf("GetHolder() error = %v", err)
	}
	if holder.Operation != "migration" {
		t.Errorf("expected operation migration, got %s", holder.Operation)
	}

	if err := lock.Release(); err != nil {
		t.Fatalf("Release() after label update error = %v", err)
	}
}

func TestAcquire_HeldByOtherInstance(t *testing.T) {
	dir := t.TempDir()

	first, err := NewFileLock(dir)
	if err != nil {
		t.Fatalf("NewFileLock() error = %v", err)
	}
	if err := first.Acquire("daemon"); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer first.Release()

	second, err := NewFileLock(dir)
	if err != nil {
		t.Fatalf("NewFileLock() error = %v", err)
	}
	err = second.Acquire("daemon")
	if err == nil {
		t.Fatal("expected error acquiring a held lock, got nil")
	}
	if !IsLockError(err) {
		t.Errorf("expected LockError, got %T: %v", err, err)
	}
}

func TestConcurrentAcquire(t *testing.T) {
	dir := t.TempDir()

	const goroutines = 10
	var wg sync.WaitGroup
	acquired := make([]bool, goroutines)
	failures := make([]error, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			lock, err := NewFileLock(dir)
			if err != nil {
				failures[idx] = err
				return
			}

			if err := lock.Acquire("daemon"); err == nil {
				acquired[idx] = true
				time.Sleep(10 * time.Millisecond)
				lock.Release()
			} else {
				failures[idx] = err
			}
		}(i)
	}

	wg.Wait()

	acquireCount := 0
	lockErrorCount := 0
	for i := 0; i < goroutines; i++ {
		if acquired[i] {
			acquireCount++
		}
		if failures[i] != nil && IsLockError(failures[i]) {
			lockErrorCount++
		}
	}

	if acquireCount != 1 {
		t.Errorf("expected exactly 1 successful acquire, got %d", acquireCount)
	}
	if lockErrorCount != goroutines-1 {
		t.Errorf("expected %d lock errors, got %d", goroutines-1, lockErrorCount)
	}
}

func TestStaleLock_DeadProcess(t *testing.T) {
	dir := t.TempDir()

	lock, err := NewFileLock(dir)
	if err != nil {
		t.Fatalf("NewFileLock() error = %v", err)
	}

	// Plant a lock file from a PID that cannot exist
	hostname, _ := os.Hostname()
	stale := &LockInfo{
		PID:       999999,
		Hostname:  hostname,
		StartTime: time.Now().Add(-time.Hour),
		Operation: "daemon",
	}
	if err := lock.writeLockInfo(stale); err != nil {
		t.Fatalf("writeLockInfo() error = %v", err)
	}

	// Acquire should reap the stale lock and succeed
	if err := lock.Acquire("daemon"); err != nil {
		t.Fatalf("Acquire() over stale lock error = %v", err)
	}
	defer lock.Release()

	holder, err := lock.GetHolder()
	if err != nil {
		t.Fatalf("GetHolder() error = %v", err)
	}
	if holder.PID != os.Getpid() {
		t.Errorf("expected holder PID %d, got %d", os.Getpid(), holder.PID)
	}
}

func TestStaleLock_LiveProcessNotReaped(t *testing.T) {
	dir := t.TempDir()

	lock, err := NewFileLock(dir)
	if err != nil {
		t.Fatalf("NewFileLock() error = %v", err)
	}

	// A live same-host process is never stale, whatever the timeout says
	hostname, _ := os.Hostname()
	held := &LockInfo{
		PID:       os.Getpid(),
		Hostname:  hostname,
		StartTime: time.Now().Add(-time.Hour),
		Operation: "daemon",
	}
	if err := lock.writeLockInfo(held); err != nil {
		t.Fatalf("writeLockInfo() error = %v", err)
	}

	other, err := NewFileLock(dir)
	if err != nil {
		t.Fatalf("NewFileLock() error = %v", err)
	}
	other.SetStaleTimeout(time.Millisecond)
	if err := other.Acquire("daemon"); err == nil {
		other.Release()
		t.Fatal("expected acquisition to fail while the holder process is alive")
	}
}

func TestForceRelease(t *testing.T) {
	dir := t.TempDir()

	first, err := NewFileLock(dir)
	if err != nil {
		t.Fatalf("NewFileLock() error = %v", err)
	}
	if err := first.Acquire("daemon"); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	second, err := NewFileLock(dir)
	if err != nil {
		t.Fatalf("NewFileLock() error = %v", err)
	}
	if err := second.ForceRelease(); err != nil {
		t.Fatalf("ForceRelease() error = %v", err)
	}

	if second.IsLocked() {
		t.Error("lock still held after ForceRelease()")
	}
}
