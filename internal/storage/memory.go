package storage

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type memoryShared struct {
	mu     sync.Mutex
	data   map[string]string
	subs   map[int]*memorySub
	nextID int
	quota  int
}

type memorySub struct {
	key    string
	origin string
	ch     chan Event
}

// Memory est un stockage en mémoire. Chaque valeur retournée par Tab partage
// les mêmes données mais a sa propre origine, comme deux onglets d'un même
// navigateur.
type Memory struct {
	shared *memoryShared
	origin string
}

type MemoryOption func(*memoryShared)

// WithQuota limite la taille totale (octets de clés + valeurs) stockée.
func WithQuota(bytes int) MemoryOption {
	return func(s *memoryShared) { s.quota = bytes }
}

func NewMemory(opts ...MemoryOption) *Memory {
	shared := &memoryShared{
		data: make(map[string]string),
		subs: make(map[int]*memorySub),
	}
	for _, opt := range opts {
		opt(shared)
	}
	return &Memory{shared: shared, origin: uuid.NewString()}
}

// Tab renvoie une nouvelle vue sur les mêmes données.
func (m *Memory) Tab() *Memory {
	return &Memory{shared: m.shared, origin: uuid.NewString()}
}

func (m *Memory) Origin() string { return m.origin }

func (m *Memory) Get(ctx context.Context, key string) (string, error) {
	m.shared.mu.Lock()
	defer m.shared.mu.Unlock()

	v, ok := m.shared.data[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *Memory) Set(ctx context.Context, key, value string) error {
	m.shared.mu.Lock()
	defer m.shared.mu.Unlock()

	if q := m.shared.quota; q > 0 {
		used := 0
		for k, v := range m.shared.data {
			if k != key {
				used += len(k) + len(v)
			}
		}
		if used+len(key)+len(value) > q {
			return ErrQuotaExceeded
		}
	}

	m.shared.data[key] = value
	m.publishLocked(key, EventUpdated)
	return nil
}

func (m *Memory) Delete(ctx context.Context, key string) error {
	m.shared.mu.Lock()
	defer m.shared.mu.Unlock()

	if _, ok := m.shared.data[key]; !ok {
		return nil
	}
	delete(m.shared.data, key)
	m.publishLocked(key, EventCleared)
	return nil
}

func (m *Memory) Subscribe(ctx context.Context, key string) (<-chan Event, error) {
	sub := &memorySub{key: key, origin: m.origin, ch: make(chan Event, eventBuffer)}

	m.shared.mu.Lock()
	id := m.shared.nextID
	m.shared.nextID++
	m.shared.subs[id] = sub
	m.shared.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.shared.mu.Lock()
		delete(m.shared.subs, id)
		close(sub.ch)
		m.shared.mu.Unlock()
	}()

	return sub.ch, nil
}

func (m *Memory) publishLocked(key string, kind EventKind) {
	ev := Event{Key: key, Kind: kind, Origin: m.origin}
	for _, sub := range m.shared.subs {
		if sub.key != key || sub.origin == m.origin {
			continue
		}
		// Un événement déjà en attente provoquera la relecture.
		select {
		case sub.ch <- ev:
		default:
		}
	}
}
