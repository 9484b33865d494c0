// Package featureflags evaluates operator-controlled switches such as the
// suspension sweeper and realtime delivery.
package featureflags

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// defaults apply when a known flag is absent from the configured list.
var defaults = map[string]string{
	SuspensionSweeper:     "on",
	RealtimeNotifications: "on",
}

// Manager holds flags parsed from a "name=value" list such as
// "suspension_sweeper=on,realtime_notifications=25%". Values are on/off
// (also true/false, 1/0) or a percentage rolled out per user.
type Manager struct {
	mu    sync.RWMutex
	flags map[string]string
}

// NewManager parses raw. Malformed pairs are skipped.
func NewManager(raw string) *Manager {
	flags := make(map[string]string, len(defaults))
	for k, v := range defaults {
		flags[k] = v
	}
	for _, pair := range strings.Split(raw, ",") {
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		name, value = normalize(name), normalize(value)
		if name == "" || !validValue(value) {
			continue
		}
		flags[name] = value
	}
	return &Manager{flags: flags}
}

func validValue(v string) bool {
	switch v {
	case "on", "off", "true", "false", "1", "0":
		return true
	}
	pct, ok := strings.CutSuffix(v, "%")
	if !ok {
		return false
	}
	n, err := strconv.Atoi(pct)
	return err == nil && n >= 0 && n <= 100
}

// Enabled reports whether name is on for userID. Percentage flags are never
// on for userID 0, so process-wide checks need an on/off value.
func (m *Manager) Enabled(name string, userID uint) bool {
	if m == nil {
		return false
	}
	m.mu.RLock()
	value, ok := m.flags[normalize(name)]
	m.mu.RUnlock()
	if !ok {
		return false
	}

	switch value {
	case "on", "true", "1":
		return true
	case "off", "false", "0":
		return false
	}

	pct, err := strconv.Atoi(strings.TrimSuffix(value, "%"))
	switch {
	case err != nil || pct <= 0:
		return false
	case pct >= 100:
		return true
	case userID == 0:
		return false
	}
	return rolloutBucket(name, userID) < pct
}

// Set changes a flag at runtime.
func (m *Manager) Set(name, value string) error {
	name, value = normalize(name), normalize(value)
	if name == "" {
		return fmt.Errorf("flag name is required")
	}
	if !validValue(value) {
		return fmt.Errorf("invalid value %q for flag %s", value, name)
	}
	m.mu.Lock()
	m.flags[name] = value
	m.mu.Unlock()
	return nil
}

// Raw returns a copy of the configured values.
func (m *Manager) Raw() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.flags))
	for k, v := range m.flags {
		out[k] = v
	}
	return out
}

// Names lists the configured flags in order.
func (m *Manager) Names() []string {
	raw := m.Raw()
	names := make([]string, 0, len(raw))
	for k := range raw {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Snapshot evaluates every flag for one user.
func (m *Manager) Snapshot(userID uint) map[string]bool {
	names := m.Names()
	out := make(map[string]bool, len(names))
	for _, name := range names {
		out[name] = m.Enabled(name, userID)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func rolloutBucket(name string, userID uint) int {
	h := fnv.New32a()
	_, _ = fmt.Fprintf(h, "%s:%d", normalize(name), userID)
	return int(h.Sum32() % 100)
}
