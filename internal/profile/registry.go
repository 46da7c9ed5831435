// Package profile holds the in-memory profile collection. Every write goes
// through Registry.Update, which also persists, so memory and the store
// never disagree.
package profile

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"arkwarden/internal/domain"

	"github.com/google/uuid"
)

// ChangeFunc observes a committed change. before is the zero Profile for a
// creation and after is the zero Profile for a deletion.
type ChangeFunc func(before, after domain.Profile)

type Registry struct {
	Store domain.ProfileRepository
	Now   func() time.Time

	mu       sync.RWMutex
	profiles []domain.Profile

	hooksMu sync.RWMutex
	hooks   []ChangeFunc
}

func NewRegistry(store domain.ProfileRepository) *Registry {
	return &Registry{
		Store: store,
		Now:   time.Now,
	}
}

// Load replaces the in-memory collection with the stored one. Stored
// statuses are stale after a restart of the manager, so installed profiles
// come back as Verifying and the rest as NotInstalled.
func (r *Registry) Load() error {
	loaded, err := r.Store.LoadProfiles()
	if err != nil {
		return fmt.Errorf("error loading profiles: %w", err)
	}
	for i := range loaded {
		loaded[i].ClearLiveStats()
		if loaded[i].Installed() {
			loaded[i].Status = domain.StatusVerifying
		} else {
			loaded[i].Status = domain.StatusNotInstalled
		}
	}

	r.mu.Lock()
	r.profiles = loaded
	r.mu.Unlock()
	return nil
}

// OnChange registers fn to run after every committed change, outside the
// registry lock.
func (r *Registry) OnChange(fn ChangeFunc) {
	r.hooksMu.Lock()
	defer r.hooksMu.Unlock()
	r.hooks = append(r.hooks, fn)
}

func (r *Registry) notify(before, after domain.Profile) {
	r.hooksMu.RLock()
	hooks := append([]ChangeFunc(nil), r.hooks...)
	r.hooksMu.RUnlock()
	for _, h := range hooks {
		h(before, after)
	}
}

func (r *Registry) List() []domain.Profile {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Profile, len(r.profiles))
	copy(out, r.profiles)
	return out
}

func (r *Registry) Get(id string) (domain.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i := r.indexOf(id)
	if i < 0 {
		return domain.Profile{}, fmt.Errorf("%w: %s", domain.ErrProfileNotFound, id)
	}
	return r.profiles[i], nil
}

func (r *Registry) indexOf(id string) int {
	for i := range r.profiles {
		if r.profiles[i].ID == id {
			return i
		}
	}
	return -1
}

func (r *Registry) Create(name, installPath string) (domain.Profile, error) {
	r.mu.Lock()
	n := len(r.profiles)
	if strings.TrimSpace(name) == "" {
		name = fmt.Sprintf("Server Profile %d", n+1)
	}
	p := domain.Profile{
		ID:          uuid.New().String(),
		Name:        name,
		InstallPath: installPath,
		Config:      domain.DefaultServerConfig(n),
		Status:      domain.StatusNotInstalled,
		CreatedAt:   r.Now(),
	}
	if p.Installed() {
		p.Status = domain.StatusVerifying
	}

	next := append(append([]domain.Profile(nil), r.profiles...), p)
	if err := r.Store.SaveProfiles(next); err != nil {
		r.mu.Unlock()
		return domain.Profile{}, fmt.Errorf("error saving profiles: %w", err)
	}
	r.profiles = next
	r.mu.Unlock()

	r.notify(domain.Profile{}, p)
	return p, nil
}

// Update applies fn to a copy of the profile and commits it. A status change
// must be a legal transition. Nothing is committed when fn or the store
// fails.
func (r *Registry) Update(id string, fn func(p *domain.Profile) error) (domain.Profile, error) {
	r.mu.Lock()
	i := r.indexOf(id)
	if i < 0 {
		r.mu.Unlock()
		return domain.Profile{}, fmt.Errorf("%w: %s", domain.ErrProfileNotFound, id)
	}
	before := r.profiles[i]
	after := before
	if err := fn(&after); err != nil {
		r.mu.Unlock()
		return before, err
	}
	after.ID = before.ID

	if after.Status != before.Status && !domain.CanTransition(before.Status, after.Status) {
		r.mu.Unlock()
		return before, fmt.Errorf("%w: %s -> %s", domain.ErrIllegalTransition, before.Status, after.Status)
	}
	if after.Status != domain.StatusRunning {
		after.ClearLiveStats()
	}

	if !samePersistent(before, after) {
		next := append([]domain.Profile(nil), r.profiles...)
		next[i] = after
		if err := r.Store.SaveProfiles(next); err != nil {
			r.mu.Unlock()
			return before, fmt.Errorf("error saving profiles: %w", err)
		}
		r.profiles = next
	} else {
		r.profiles[i] = after
	}
	r.mu.Unlock()

	r.notify(before, after)
	return after, nil
}

func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	i := r.indexOf(id)
	if i < 0 {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", domain.ErrProfileNotFound, id)
	}
	removed := r.profiles[i]
	next := make([]domain.Profile, 0, len(r.profiles)-1)
	next = append(next, r.profiles[:i]...)
	next = append(next, r.profiles[i+1:]...)
	if err := r.Store.SaveProfiles(next); err != nil {
		r.mu.Unlock()
		return fmt.Errorf("error saving profiles: %w", err)
	}
	r.profiles = next
	r.mu.Unlock()

	r.notify(removed, domain.Profile{})
	return nil
}

// samePersistent ignores the live stats, which the store never sees.
func samePersistent(a, b domain.Profile) bool {
	a.ClearLiveStats()
	b.ClearLiveStats()
	return reflect.DeepEqual(a, b)
}
