package lock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestAcquire_DifferentIDsDoNotContend(t *testing.T) {
	mgr := NewManager()
	ctx := context.Background()

	_, leaseA, err := mgr.AcquirePlaylist(ctx, "playlist-a")
	if err != nil {
		t.Fatalf("AcquirePlaylist(a) error = %v", err)
	}
	defer leaseA.Release()

	done := make(chan struct{})
	go func() {
		_, leaseB, err := mgr.AcquirePlaylist(ctx, "playlist-b")
		if err == nil {
			leaseB.Release()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("acquisition of an unrelated id blocked")
	}
}

func TestAcquire_SameIDSerialises(t *testing.T) {
	mgr := NewManager()
	ctx := context.Background()

	_, lease, err := mgr.AcquireRundown(ctx, "rundown-1")
	if err != nil {
		t.Fatalf("AcquireRundown() error = %v", err)
	}

	acquired := make(chan struct{})
	go func() {
		_, second, err := mgr.AcquireRundown(ctx, "rundown-1")
		if err != nil {
			t.Errorf("second AcquireRundown() error = %v", err)
			close(acquired)
			return
		}
		close(acquired)
		second.Release()
	}()

	select {
	case <-acquired:
		t.Fatal("second acquisition succeeded while lease held")
	case <-time.After(50 * time.Millisecond):
	}

	lease.Release()

	select {
	case <-acquired:
	case <-time.After(2 * time.Second):
		t.Fatal("second acquisition never completed after release")
	}
}

func TestAcquire_OrderingViolationRejected(t *testing.T) {
	mgr := NewManager()

	ctx, rundownLease, err := mgr.AcquireRundown(context.Background(), "rundown-1")
	if err != nil {
		t.Fatalf("AcquireRundown() error = %v", err)
	}
	defer rundownLease.Release()

	// Playlist after rundown is the forbidden order.
	_, _, err = mgr.AcquirePlaylist(ctx, "playlist-1")
	if !errors.Is(err, ErrLockOrdering) {
		t.Errorf("AcquirePlaylist() error = %v, want ErrLockOrdering", err)
	}
}

func TestAcquire_PlaylistThenRundownPermitted(t *testing.T) {
	mgr := NewManager()

	ctx, playlistLease, err := mgr.AcquirePlaylist(context.Background(), "playlist-1")
	if err != nil {
		t.Fatalf("AcquirePlaylist() error = %v", err)
	}
	defer playlistLease.Release()

	_, rundownLease, err := mgr.AcquireRundown(ctx, "rundown-1")
	if err != nil {
		t.Fatalf("AcquireRundown() after playlist error = %v", err)
	}
	rundownLease.Release()
}

func TestAcquire_ReentrantRejected(t *testing.T) {
	mgr := NewManager()

	ctx, lease, err := mgr.AcquirePlaylist(context.Background(), "playlist-1")
	if err != nil {
		t.Fatalf("AcquirePlaylist() error = %v", err)
	}
	defer lease.Release()

	_, _, err = mgr.AcquirePlaylist(ctx, "playlist-1")
	if !errors.Is(err, ErrReentrant) {
		t.Errorf("re-entrant AcquirePlaylist() error = %v, want ErrReentrant", err)
	}
}

func TestAcquire_ContextCancellation(t *testing.T) {
	mgr := NewManager()

	_, lease, err := mgr.AcquireRundown(context.Background(), "rundown-1")
	if err != nil {
		t.Fatalf("AcquireRundown() error = %v", err)
	}
	defer lease.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, _, err = mgr.AcquireRundown(ctx, "rundown-1")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("AcquireRundown() error = %v, want DeadlineExceeded", err)
	}

	// The abandoned wait must not leave the entry wedged.
	lease.Release()
	ctx2, cancel2 := context.WithTimeout(context.Background(), time.Second)
	defer cancel2()
	_, again, err := mgr.AcquireRundown(ctx2, "rundown-1")
	if err != nil {
		t.Fatalf("reacquire after cancelled wait error = %v", err)
	}
	again.Release()
}

func TestRelease_Idempotent(t *testing.T) {
	mgr := NewManager()

	_, lease, err := mgr.AcquirePlaylist(context.Background(), "playlist-1")
	if err != nil {
		t.Fatalf("AcquirePlaylist() error = %v", err)
	}

	lease.Release()
	lease.Release() // Must not panic or double-release the token.

	if lease.Held() {
		t.Error("Held() = true after release")
	}
	if len(mgr.Stats()) != 0 {
		t.Errorf("Stats() = %v, want empty after release", mgr.Stats())
	}
}

func TestManager_ConcurrentAcquireRelease(t *testing.T) {
	mgr := NewManager()
	ctx := context.Background()

	var wg sync.WaitGroup
	counter := 0 // Protected by the lease, not a mutex.
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, lease, err := mgr.AcquireRundown(ctx, "shared")
			if err != nil {
				t.Errorf("AcquireRundown() error = %v", err)
				return
			}
			counter++
			lease.Release()
		}()
	}
	wg.Wait()

	if counter != 32 {
		t.Errorf("counter = %d, want 32 (lost update under lease)", counter)
	}
	if len(mgr.Stats()) != 0 {
		t.Errorf("Stats() = %v, want empty after all releases", mgr.Stats())
	}
}
