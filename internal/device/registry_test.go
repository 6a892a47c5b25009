package device

import (
	"context"
	"errors"
	"sync"
	"testing"
)

// MockRepository is a test implementation of Repository.
type MockRepository struct {
	mu      sync.Mutex
	devices map[string]Device

	getCalls  int
	listErr   error
	createErr error
}

func NewMockRepository() *MockRepository {
	return &MockRepository{devices: make(map[string]Device)}
}

func (m *MockRepository) GetByID(_ context.Context, id string) (*Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls++

	if d, ok := m.devices[id]; ok {
		return &d, nil
	}
	return nil, ErrDeviceNotFound
}

func (m *MockRepository) List(_ context.Context) ([]Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.listErr != nil {
		return nil, m.listErr
	}
	devices := make([]Device, 0, len(m.devices))
	for _, d := range m.devices {
		devices = append(devices, d)
	}
	return devices, nil
}

func (m *MockRepository) Create(_ context.Context, d *Device) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.createErr != nil {
		return m.createErr
	}
	if _, ok := m.devices[d.ID]; ok {
		return ErrDeviceExists
	}
	m.devices[d.ID] = *d
	return nil
}

func TestRegistry_RefreshCache(t *testing.T) {
	repo := NewMockRepository()
	repo.devices["bed-1"] = *testDevice("bed-1")
	repo.devices["bed-2"] = *testDevice("bed-2")

	r := NewRegistry(repo)
	if err := r.RefreshCache(context.Background()); err != nil {
		t.Fatalf("RefreshCache() error = %v", err)
	}
	if got := r.GetStats().TotalDevices; got != 2 {
		t.Errorf("TotalDevices = %d, want 2", got)
	}

	repo.listErr = errors.New("disk on fire")
	if err := r.RefreshCache(context.Background()); err == nil {
		t.Error("RefreshCache() expected error from repository")
	}
}

func TestRegistry_GetUsesCache(t *testing.T) {
	repo := NewMockRepository()
	repo.devices["bed-1"] = *testDevice("bed-1")
	r := NewRegistry(repo)
	ctx := context.Background()

	for n := 0; n < 3; n++ {
		d, err := r.Get(ctx, "bed-1")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if d.Timezone != "Europe/London" {
			t.Errorf("Timezone = %q", d.Timezone)
		}
	}
	if repo.getCalls != 1 {
		t.Errorf("repository GetByID calls = %d, want 1", repo.getCalls)
	}

	_, err := r.Get(ctx, "missing")
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrDeviceNotFound", err)
	}
}

func TestRegistry_GetReturnsCopy(t *testing.T) {
	repo := NewMockRepository()
	repo.devices["bed-1"] = *testDevice("bed-1")
	r := NewRegistry(repo)
	ctx := context.Background()

	d, _ := r.Get(ctx, "bed-1") //nolint:errcheck // Checked below
	d.Latitude = 0

	again, err := r.Get(ctx, "bed-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if again.Latitude == 0 {
		t.Error("mutating a returned device changed the cache")
	}
}

func TestRegistry_ListSorted(t *testing.T) {
	repo := NewMockRepository()
	for _, id := range []string{"z", "m", "a"} {
		repo.devices[id] = *testDevice(id)
	}
	r := NewRegistry(repo)

	ids, err := r.IDs(context.Background())
	if err != nil {
		t.Fatalf("IDs() error = %v", err)
	}
	want := []string{"a", "m", "z"}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("IDs() = %v, want %v", ids, want)
		}
	}

	repo.listErr = errors.New("locked")
	if _, err := r.List(context.Background()); err == nil {
		t.Error("List() expected error")
	}
}

func TestRegistry_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("new device", func(t *testing.T) {
		r := NewRegistry(NewMockRepository())
		created, err := r.Register(ctx, testDevice("bed-1"))
		if err != nil || !created {
			t.Fatalf("Register() = %v, %v; want true, nil", created, err)
		}
		if _, err := r.Get(ctx, "bed-1"); err != nil {
			t.Errorf("Get() after Register error = %v", err)
		}
	})

	t.Run("identical re-registration is a no-op", func(t *testing.T) {
		r := NewRegistry(NewMockRepository())
		if _, err := r.Register(ctx, testDevice("bed-1")); err != nil {
			t.Fatalf("Register() error = %v", err)
		}
		created, err := r.Register(ctx, testDevice("bed-1"))
		if err != nil || created {
			t.Errorf("Register() again = %v, %v; want false, nil", created, err)
		}
	})

	t.Run("different location is rejected", func(t *testing.T) {
		r := NewRegistry(NewMockRepository())
		if _, err := r.Register(ctx, testDevice("bed-1")); err != nil {
			t.Fatalf("Register() error = %v", err)
		}
		moved := testDevice("bed-1")
		moved.Latitude = 10

		_, err := r.Register(ctx, moved)
		if !errors.Is(err, ErrDeviceExists) {
			t.Errorf("Register() error = %v, want ErrDeviceExists", err)
		}
		stored, _ := r.Get(ctx, "bed-1") //nolint:errcheck // Registered above
		if stored.Latitude != testDevice("bed-1").Latitude {
			t.Error("stored device was modified")
		}
	})

	t.Run("invalid device", func(t *testing.T) {
		r := NewRegistry(NewMockRepository())
		bad := testDevice("bed-1")
		bad.Timezone = "Mars/Olympus"

		_, err := r.Register(ctx, bad)
		if !errors.Is(err, ErrInvalidDevice) {
			t.Errorf("Register() error = %v, want ErrInvalidDevice", err)
		}
	})

	t.Run("store failure", func(t *testing.T) {
		repo := NewMockRepository()
		repo.createErr = errors.New("readonly")
		r := NewRegistry(repo)

		if _, err := r.Register(ctx, testDevice("bed-1")); err == nil {
			t.Error("Register() expected store error")
		}
		if r.GetStats().TotalDevices != 0 {
			t.Error("failed registration was cached")
		}
	})
}
