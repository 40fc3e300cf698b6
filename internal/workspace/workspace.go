// Package workspace implements the persistence boundary between the
// processing core and storage: an opaque object providing event
// lookup, stream read/write and an auxiliary-data side channel, so
// the core never touches a filesystem or database directly.
package workspace

import (
	"fmt"
	"sync"

	"github.com/GeoNet/gm-engine/internal/config"
	"github.com/GeoNet/gm-engine/internal/event"
	"github.com/GeoNet/gm-engine/internal/waveform"
)

// Workspace is the persistence boundary the processing core runs
// against. Implementations back it with whatever storage is
// appropriate (in-process maps for tests, S3 + Postgres in
// production); the core only ever sees this interface.
type Workspace interface {
	// GetEventIDs lists every event known to the workspace.
	GetEventIDs() ([]string, error)

	// GetEvent returns the scalar event metadata for id.
	GetEvent(id string) (*event.ScalarEvent, error)

	// GetStreams returns the streams recorded for event id, restricted
	// to stations (all stations if empty) and a process-level/source
	// label (e.g. "raw", "V1", "V2"; all labels if empty).
	GetStreams(id string, stations []string, label string) ([]*waveform.Stream, error)

	// SetStreams persists streams (samples, metadata, parameters,
	// provenance) for event id under label, replacing whatever was
	// previously stored for that (id, label) pair.
	SetStreams(id string, label string, streams []*waveform.Stream) error

	// GetConfig returns the merged configuration document in effect
	// for this workspace.
	GetConfig() (*config.Config, error)

	// InsertAux stores an opaque byte blob under (group, key).
	InsertAux(group, key string, data []byte) error

	// GetAux retrieves a blob previously stored with InsertAux.
	GetAux(group, key string) ([]byte, error)
}

// Memory is an in-process Workspace backed by maps, used by tests and
// single-process runs that don't need real object storage.
type Memory struct {
	mu sync.RWMutex

	events  map[string]*event.ScalarEvent
	streams map[string]map[string][]*waveform.Stream // event id -> label -> streams
	aux     map[string]map[string][]byte             // group -> key -> data
	cfg     *config.Config
}

// NewMemory returns an empty Memory workspace using cfg (or the
// built-in default configuration if cfg is nil).
func NewMemory(cfg *config.Config) (*Memory, error) {
	if cfg == nil {
		var err error
		cfg, err = config.Default()
		if err != nil {
			return nil, err
		}
	}
	return &Memory{
		events:  make(map[string]*event.ScalarEvent),
		streams: make(map[string]map[string][]*waveform.Stream),
		aux:     make(map[string]map[string][]byte),
		cfg:     cfg,
	}, nil
}

// PutEvent registers an event so it can later be retrieved by
// GetEvent/GetEventIDs; it has no counterpart on the Workspace
// interface itself (writing events is outside the processing core's
// job) but is needed to seed a Memory workspace.
func (m *Memory) PutEvent(ev *event.ScalarEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[ev.ID] = ev
}

func (m *Memory) GetEventIDs() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.events))
	for id := range m.events {
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *Memory) GetEvent(id string) (*event.ScalarEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ev, ok := m.events[id]
	if !ok {
		return nil, fmt.Errorf("workspace: no event %q", id)
	}
	return ev, nil
}

func (m *Memory) GetStreams(id string, stations []string, label string) ([]*waveform.Stream, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	byLabel, ok := m.streams[id]
	if !ok {
		return nil, nil
	}

	var labels []string
	if label != "" {
		labels = []string{label}
	} else {
		for l := range byLabel {
			labels = append(labels, l)
		}
	}

	want := make(map[string]bool, len(stations))
	for _, s := range stations {
		want[s] = true
	}

	var out []*waveform.Stream
	for _, l := range labels {
		for _, s := range byLabel[l] {
			if len(want) > 0 && len(s.Traces) > 0 && !want[s.Traces[0].ID.Station] {
				continue
			}
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *Memory) SetStreams(id string, label string, streams []*waveform.Stream) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.streams[id] == nil {
		m.streams[id] = make(map[string][]*waveform.Stream)
	}
	m.streams[id][label] = streams
	return nil
}

func (m *Memory) GetConfig() (*config.Config, error) {
	return m.cfg, nil
}

func (m *Memory) InsertAux(group, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.aux[group] == nil {
		m.aux[group] = make(map[string][]byte)
	}
	cp := append([]byte(nil), data...)
	m.aux[group][key] = cp
	return nil
}

func (m *Memory) GetAux(group, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	byKey, ok := m.aux[group]
	if !ok {
		return nil, fmt.Errorf("workspace: no aux group %q", group)
	}
	data, ok := byKey[key]
	if !ok {
		return nil, fmt.Errorf("workspace: no aux entry %s/%s", group, key)
	}
	return append([]byte(nil), data...), nil
}
