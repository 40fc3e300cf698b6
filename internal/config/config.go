// Package config implements the hierarchical, merged-overlay
// configuration document: configs are layered (built-in default (+)
// project overlay (+) per-run overrides). Merge semantics: maps merge
// key-by-key recursively; lists replace wholesale, which matters for
// the processing list so users can reorder steps.
//
// Layers are decoded with gopkg.in/yaml.v3; per-run scalar overrides
// (the kind of thing a caller sets programmatically rather than
// loading from a document, e.g. "pickers.window" for one run) are
// collected through a github.com/spf13/viper instance, which is the
// natural fit for dotted-key single-value overrides, then folded into
// the same deep-merge the document layers go through so one merge
// function governs every layer regardless of where it originated.
package config

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultDoc []byte

// Config is the merged configuration document consumed by the engine.
type Config struct {
	Processing []ProcessingStep `yaml:"processing"`

	Windows struct {
		NoNoise    bool `yaml:"no_noise"`
		SignalEnd  struct {
			Method     string  `yaml:"method"`
			Model      string  `yaml:"model"`
			Epsilon    float64 `yaml:"epsilon"`
			Vmin       float64 `yaml:"vmin"`
			Floor      float64 `yaml:"floor"`
			StressDrop float64 `yaml:"stress_drop"`
			Dur0       float64 `yaml:"dur0"`
			Dur1       float64 `yaml:"dur1"`
		} `yaml:"signal_end"`
		WindowChecks struct {
			Enabled           bool    `yaml:"enabled"`
			MinNoiseDuration  float64 `yaml:"min_noise_duration"`
			MinSignalDuration float64 `yaml:"min_signal_duration"`
		} `yaml:"window_checks"`
		Regions map[string]RegionOverride `yaml:"regions"`
	} `yaml:"windows"`

	CheckStream struct {
		AnyTraceFailures bool `yaml:"any_trace_failures"`
	} `yaml:"check_stream"`

	Pickers struct {
		PArrivalShift         float64  `yaml:"p_arrival_shift"`
		PickTravelTimeWarning float64  `yaml:"pick_travel_time_warning"`
		Combine               string   `yaml:"combine"`
		Window                float64  `yaml:"window"`
		Methods               []string `yaml:"methods"`
	} `yaml:"pickers"`

	Metrics struct {
		ComponentsAndTypes map[string][]string    `yaml:"components_and_types"`
		ComponentParameters map[string]any         `yaml:"component_parameters"`
		TypeParameters      map[string]any         `yaml:"type_parameters"`
	} `yaml:"metrics"`

	Integration struct {
		Frequency bool   `yaml:"frequency"`
		Initial   string `yaml:"initial"`
		Demean    bool   `yaml:"demean"`
		Taper     struct {
			Width float64 `yaml:"width"`
			Side  string  `yaml:"side"`
		} `yaml:"taper"`
	} `yaml:"integration"`

	Differentiation struct {
		Frequency bool `yaml:"frequency"`
	} `yaml:"differentiation"`

	Colocated struct {
		Preference []string `yaml:"preference"`
	} `yaml:"colocated"`

	Duplicate struct {
		ProcessLevelPreference  []string `yaml:"process_level_preference"`
		SourceFormatPreference  []string `yaml:"source_format_preference"`
		PreferredLocationCodes  []string `yaml:"preferred_location_codes"`
		DistanceToleranceKM     float64  `yaml:"distance_tolerance_km"`
	} `yaml:"duplicate"`

	GMMSelection map[string]string `yaml:"gmm_selection"`
}

// ProcessingStep is one (step-name, parameter-map) entry in the
// ordered processing program. It decodes a YAML mapping with exactly
// one key, e.g. `{detrend: {detrending_method: linear}}`.
type ProcessingStep struct {
	Name   string
	Params map[string]any
}

func (s *ProcessingStep) UnmarshalYAML(value *yaml.Node) error {
	var m map[string]map[string]any
	if err := value.Decode(&m); err != nil {
		return fmt.Errorf("config: processing step must be a single-key mapping: %w", err)
	}
	if len(m) != 1 {
		return fmt.Errorf("config: processing step entry must have exactly one key, got %d", len(m))
	}
	for k, v := range m {
		s.Name = k
		s.Params = v
	}
	return nil
}

func (s ProcessingStep) MarshalYAML() (any, error) {
	return map[string]any{s.Name: s.Params}, nil
}

// RegionOverride is a per-tectonic-regime override of the signal-end
// model selection: the selected method may be overridden by
// tectonic regime.
type RegionOverride struct {
	SignalEnd struct {
		Method string `yaml:"method"`
		Model  string `yaml:"model"`
	} `yaml:"signal_end"`
}

// Default returns the built-in default configuration document.
func Default() (*Config, error) {
	return decode(defaultDoc)
}

// Load merges the built-in default with zero or more project overlay
// documents (applied in order, later documents winning) and returns
// the resulting Config. Each overlay merges key-by-key recursively;
// list-valued keys, notably `processing`, are replaced wholesale by
// the last overlay that sets them.
func Load(overlays ...[]byte) (*Config, error) {
	merged, err := toMap(defaultDoc)
	if err != nil {
		return nil, fmt.Errorf("config: decoding built-in default: %w", err)
	}

	for i, doc := range overlays {
		m, err := toMap(doc)
		if err != nil {
			return nil, fmt.Errorf("config: decoding overlay %d: %w", i, err)
		}
		deepMerge(merged, m)
	}

	return fromMap(merged)
}

// WithRunOverrides applies dotted-key scalar overrides (e.g.
// "pickers.window": 8.0) on top of an already-loaded Config, using a
// viper instance purely as the dotted-key -> nested-map expander.
func WithRunOverrides(base *Config, overrides map[string]any) (*Config, error) {
	baseMap, err := toMapFromConfig(base)
	if err != nil {
		return nil, err
	}

	v := viper.New()
	for key, val := range overrides {
		v.Set(key, val)
	}
	runLayer := v.AllSettings()

	deepMerge(baseMap, runLayer)
	return fromMap(baseMap)
}

func decode(doc []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(doc, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func toMap(doc []byte) (map[string]any, error) {
	var m map[string]any
	if err := yaml.Unmarshal(doc, &m); err != nil {
		return nil, err
	}
	if m == nil {
		m = map[string]any{}
	}
	return m, nil
}

func toMapFromConfig(c *Config) (map[string]any, error) {
	b, err := yaml.Marshal(c)
	if err != nil {
		return nil, err
	}
	return toMap(b)
}

func fromMap(m map[string]any) (*Config, error) {
	b, err := yaml.Marshal(m)
	if err != nil {
		return nil, err
	}
	return decode(b)
}

// deepMerge merges src into dst in place: nested maps merge
// key-by-key recursively, everything else (scalars and lists) from
// src replaces the corresponding value in dst wholesale.
func deepMerge(dst, src map[string]any) {
	for k, sv := range src {
		dv, exists := dst[k]
		if !exists {
			dst[k] = sv
			continue
		}
		dm, dok := asMap(dv)
		sm, sok := asMap(sv)
		if dok && sok {
			deepMerge(dm, sm)
			dst[k] = dm
			continue
		}
		dst[k] = sv
	}
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, vv := range m {
			out[fmt.Sprintf("%v", k)] = vv
		}
		return out, true
	default:
		return nil, false
	}
}

// SignalEndMethodFor returns the signal-end method and model for a
// given tectonic regime, honoring the regions.<name>.signal_end
// override.
func (c *Config) SignalEndMethodFor(regime string) (method, model string) {
	method, model = c.Windows.SignalEnd.Method, c.Windows.SignalEnd.Model
	if regime == "" {
		return
	}
	if r, ok := c.Windows.Regions[strings.ToLower(regime)]; ok {
		if r.SignalEnd.Method != "" {
			method = r.SignalEnd.Method
		}
		if r.SignalEnd.Model != "" {
			model = r.SignalEnd.Model
		}
	}
	return
}
