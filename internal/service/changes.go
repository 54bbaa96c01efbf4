package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"co2_monitor/internal/models"
)

// Effect is one semantic consequence of a store change set.
type Effect interface {
	effect()
}

// DeviceChanged fires when the selected identity changes. A zero Device
// means the selection was removed.
type DeviceChanged struct{ Device models.Device }

// OutdoorChanged is DeviceChanged for the outdoor reference.
type OutdoorChanged struct{ Outdoor models.Device }

// PreferenceChanged carries one options key other than the interval.
type PreferenceChanged struct {
	Key      string
	OldValue json.RawMessage
	NewValue json.RawMessage
}

// TokenCleared fires when a stored access token is removed.
type TokenCleared struct{}

type IntervalChanged struct{ Minutes float64 }

func (DeviceChanged) effect()     {}
func (OutdoorChanged) effect()    {}
func (PreferenceChanged) effect() {}
func (TokenCleared) effect()      {}
func (IntervalChanged) effect()   {}

var preferenceKeys = func() map[string]bool {
	m := make(map[string]bool, len(models.PreferenceKeys))
	for _, k := range models.PreferenceKeys {
		m[k] = true
	}
	return m
}()

// Reduce turns raw store deltas into typed effects. The order is fixed:
// token, device, outdoor, interval, then preferences by key. Undecodable
// values are reported in the joined error and produce no effect.
func Reduce(cs models.ChangeSet) ([]Effect, error) {
	var (
		effects []Effect
		errs    []error
	)

	if ch, ok := cs[models.KeyToken]; ok && !models.IsNull(ch.OldValue) && models.IsNull(ch.NewValue) {
		effects = append(effects, TokenCleared{})
	}

	if ch, ok := cs[models.KeyDevice]; ok {
		oldDev, nextDev, err := decodeDevicePair(ch)
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("%s: %w", models.KeyDevice, err))
		case !oldDev.SameAs(nextDev):
			effects = append(effects, DeviceChanged{Device: nextDev})
		}
	}

	if ch, ok := cs[models.KeyOutdoor]; ok {
		oldDev, nextDev, err := decodeDevicePair(ch)
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("%s: %w", models.KeyOutdoor, err))
		case !oldDev.SameAs(nextDev):
			effects = append(effects, OutdoorChanged{Outdoor: nextDev})
		}
	}

	if ch, ok := cs[models.KeyInterval]; ok && !models.IsNull(ch.NewValue) {
		var minutes float64
		if err := json.Unmarshal(ch.NewValue, &minutes); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", models.KeyInterval, err))
		} else {
			effects = append(effects, IntervalChanged{Minutes: minutes})
		}
	}

	keys := make([]string, 0, len(cs))
	for k := range cs {
		if preferenceKeys[k] && k != models.KeyInterval {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		effects = append(effects, PreferenceChanged{Key: k, OldValue: cs[k].OldValue, NewValue: cs[k].NewValue})
	}

	return effects, errors.Join(errs...)
}

func decodeDevicePair(ch models.Change) (oldDev, nextDev models.Device, err error) {
	if oldDev, err = decodeDevice(ch.OldValue); err != nil {
		return
	}
	nextDev, err = decodeDevice(ch.NewValue)
	return
}

func decodeDevice(raw json.RawMessage) (models.Device, error) {
	if models.IsNull(raw) {
		return models.Device{}, nil
	}
	var d models.Device
	if err := json.Unmarshal(raw, &d); err != nil {
		return models.Device{}, err
	}
	return d, nil
}
