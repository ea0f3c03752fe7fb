package server

import (
	"testing"
	"time"

	"github.com/matzehuels/gradlab/pkg/errors"
	"github.com/matzehuels/gradlab/pkg/session"
)

func TestStoreExpiry(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	st := NewStore(time.Minute)
	st.now = func() time.Time { return now }

	idle := st.Add(session.New(nil, session.Config{}))
	busy := st.Add(session.New(nil, session.Config{}))
	if idle == busy {
		t.Fatal("duplicate ids")
	}

	now = now.Add(50 * time.Second)
	if _, err := st.Get(busy); err != nil {
		t.Fatalf("Get: %v", err)
	}

	now = now.Add(20 * time.Second)
	if n := st.Cleanup(); n != 1 {
		t.Errorf("Cleanup removed %d, want 1", n)
	}
	if _, err := st.Get(idle); !errors.Is(err, errors.ErrCodeSessionNotFound) {
		t.Errorf("idle session err = %v", err)
	}
	if _, err := st.Get(busy); err != nil {
		t.Errorf("touched session expired: %v", err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := st.Get(busy); !errors.Is(err, errors.ErrCodeSessionNotFound) {
		t.Errorf("expired Get err = %v", err)
	}
	if st.Len() != 0 {
		t.Errorf("Len = %d after expired Get", st.Len())
	}
}

func TestStoreDelete(t *testing.T) {
	st := NewStore(0)
	id := st.Add(session.New(nil, session.Config{}))
	if !st.Delete(id) {
		t.Error("Delete reported missing session")
	}
	if st.Delete(id) {
		t.Error("second Delete reported success")
	}
	if _, err := st.Get("not-a-uuid"); err != ErrNotFound {
		t.Errorf("Get(not-a-uuid) = %v", err)
	}
}
