package dirlock

import "testing"

func TestAcquireThenSecondFails(t *testing.T) {
	dir := t.TempDir()

	l1, err := Acquire(dir)
	if err != nil {
		t.Fatalf("first Acquire: %v", err)
	}
	defer l1.Unlock()

	_, err = Acquire(dir)
	if err != ErrLocked {
		t.Fatalf("expected ErrLocked on second Acquire, got %v", err)
	}
}

func TestUnlockThenReacquire(t *testing.T) {
	dir := t.TempDir()

	l1, err := Acquire(dir)
	if err != nil {
		t.Fatalf("first Acquire: %v", err)
	}
	if err := l1.Unlock(); err != nil {
		t.Fatalf("Unlock: %v", err)
	}

	l2, err := Acquire(dir)
	if err != nil {
		t.Fatalf("Acquire after Unlock: %v", err)
	}
	defer l2.Unlock()
}
