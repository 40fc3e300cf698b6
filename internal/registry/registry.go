// Package registry is the engine's global state: the travel-time
// model tables and Konno-Ohmachi smoothing kernels that every worker
// needs read-only access to, built once and shared without further
// mutation.
//
// github.com/golang/groupcache backs it as a RAM cache in front of
// expensive per-key lookups (travel-time-model/kernel computations
// here; mSEED day-file indexes in the package this is adapted from).
// A groupcache.Group is a thread-safe, LRU-bounded, read-through cache
// keyed by a string, which is exactly the shape of
// "compute once per (model, distance) or (freqs, b) key, share across
// workers".
package registry

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"sync"

	"github.com/golang/groupcache"
)

const defaultCacheBytes = 64 << 20 // 64MiB

// TravelTimeModel is a 1-D earth-model lookup: distance (km) -> P-wave
// travel time (s). Constructed once and queried by interpolation.
type TravelTimeModel struct {
	Name          string
	DistanceKM    []float64
	TravelTimeSec []float64
}

// Interpolate returns the travel time at distKM by linear interpolation,
// clamped at the table edges.
func (m TravelTimeModel) Interpolate(distKM float64) float64 {
	n := len(m.DistanceKM)
	if n == 0 {
		return 0
	}
	if distKM <= m.DistanceKM[0] {
		return m.TravelTimeSec[0]
	}
	if distKM >= m.DistanceKM[n-1] {
		return m.TravelTimeSec[n-1]
	}
	for i := 1; i < n; i++ {
		if distKM <= m.DistanceKM[i] {
			x0, x1 := m.DistanceKM[i-1], m.DistanceKM[i]
			y0, y1 := m.TravelTimeSec[i-1], m.TravelTimeSec[i]
			frac := (distKM - x0) / (x1 - x0)
			return y0 + frac*(y1-y0)
		}
	}
	return m.TravelTimeSec[n-1]
}

type kernelRequest struct {
	freqs []float64
	b     float64
}

// Registry is the process-wide immutable cache. Construct one with
// New at engine start-up and share it read-only across every worker.
type Registry struct {
	modelBuilder  func(name string) (TravelTimeModel, error)
	kernelBuilder func(freqs []float64, b float64) ([]float64, error)

	travelTime *groupcache.Group
	koKernel   *groupcache.Group

	mu      sync.Mutex
	pending map[string]kernelRequest
}

// New builds a Registry whose cache groups call back into the
// supplied builder functions on a miss. modelBuilder constructs a
// named 1-D travel-time model (e.g. "iasp91"); kernelBuilder computes
// Konno-Ohmachi smoothing weights for a (frequency grid, bandwidth)
// pair. Both are invoked at most once per distinct key for the life
// of the Registry.
func New(modelBuilder func(name string) (TravelTimeModel, error), kernelBuilder func(freqs []float64, b float64) ([]float64, error)) *Registry {
	r := &Registry{
		modelBuilder:  modelBuilder,
		kernelBuilder: kernelBuilder,
		pending:       make(map[string]kernelRequest),
	}

	r.travelTime = groupcache.NewGroup("travel-time-models", defaultCacheBytes, groupcache.GetterFunc(
		func(ctx context.Context, key string, dest groupcache.Sink) error {
			m, err := r.modelBuilder(key)
			if err != nil {
				return err
			}
			raw, err := encode(m)
			if err != nil {
				return err
			}
			return dest.SetBytes(raw)
		}))

	r.koKernel = groupcache.NewGroup("konno-ohmachi-kernels", defaultCacheBytes, groupcache.GetterFunc(
		func(ctx context.Context, key string, dest groupcache.Sink) error {
			r.mu.Lock()
			req, ok := r.pending[key]
			r.mu.Unlock()
			if !ok {
				return fmt.Errorf("registry: no pending kernel request for key %q", key)
			}

			weights, err := r.kernelBuilder(req.freqs, req.b)
			if err != nil {
				return err
			}
			raw, err := encode(weights)
			if err != nil {
				return err
			}
			return dest.SetBytes(raw)
		}))

	return r
}

// TravelTimeModelFor returns the named travel-time model, computing
// and caching it on first use.
func (r *Registry) TravelTimeModelFor(name string) (TravelTimeModel, error) {
	var raw []byte
	if err := r.travelTime.Get(context.Background(), name, groupcache.AllocatingByteSliceSink(&raw)); err != nil {
		return TravelTimeModel{}, err
	}
	var m TravelTimeModel
	if err := decode(raw, &m); err != nil {
		return TravelTimeModel{}, err
	}
	return m, nil
}

// KonnoOhmachiKernel returns the cached smoothing-weight vector for
// the given frequency grid and bandwidth parameter b, computing and
// caching it on first use.
func (r *Registry) KonnoOhmachiKernel(freqs []float64, b float64) ([]float64, error) {
	key := kernelKey(freqs, b)

	r.mu.Lock()
	r.pending[key] = kernelRequest{freqs: freqs, b: b}
	r.mu.Unlock()

	var raw []byte
	err := r.koKernel.Get(context.Background(), key, groupcache.AllocatingByteSliceSink(&raw))
	if err != nil {
		return nil, err
	}
	var weights []float64
	if err := decode(raw, &weights); err != nil {
		return nil, err
	}
	return weights, nil
}

// kernelKey is an exact fingerprint of the (freqs, b) pair: every
// element of freqs participates, so two distinct grids never collide.
func kernelKey(freqs []float64, b float64) string {
	var sb bytes.Buffer
	fmt.Fprintf(&sb, "b=%g;n=%d", b, len(freqs))
	for _, f := range freqs {
		fmt.Fprintf(&sb, ";%g", f)
	}
	return sb.String()
}

func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decode(b []byte, v any) error {
	return gob.NewDecoder(bytes.NewReader(b)).Decode(v)
}
