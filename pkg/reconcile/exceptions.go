package reconcile

import (
	"fmt"
	"sort"
)

// ExceptionSet is a named set of event kinds excluded from the multiplicity
// invariant because their cross-process symmetry is not guaranteed.
// The zero value excludes nothing.
type ExceptionSet struct {
	name   string
	labels map[uint64]string
}

// NewExceptionSet builds a set from kind codes and their labels.
func NewExceptionSet(name string, kinds map[uint64]string) ExceptionSet {
	labels := make(map[uint64]string, len(kinds))
	for k, v := range kinds {
		labels[k] = v
	}
	return ExceptionSet{name: name, labels: labels}
}

// Name returns the set name.
func (s ExceptionSet) Name() string { return s.name }

// Contains reports whether kind is excluded.
func (s ExceptionSet) Contains(kind uint64) bool {
	_, ok := s.labels[kind]
	return ok
}

// Label returns the description of an excluded kind.
func (s ExceptionSet) Label(kind uint64) string {
	return s.labels[kind]
}

// Kinds returns the excluded kinds in ascending order.
func (s ExceptionSet) Kinds() []uint64 {
	kinds := make([]uint64, 0, len(s.labels))
	for k := range s.labels {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Len returns the number of excluded kinds.
func (s ExceptionSet) Len() int { return len(s.labels) }

// With returns a copy of the set extended with more kinds. The receiver is
// not modified.
func (s ExceptionSet) With(kinds map[uint64]string) ExceptionSet {
	out := NewExceptionSet(s.name, s.labels)
	for k, v := range kinds {
		out.labels[k] = v
	}
	return out
}

// Built-in exception set names.
const (
	ScenarioBrokerRestart = "broker_restart"
	ScenarioEngineRestart = "engine_restart"
)

// BrokerRestart returns the kinds a broker restart is expected to duplicate
// or suppress: checks, category markers, and periodically regenerated events.
func BrokerRestart() ExceptionSet {
	return NewExceptionSet(ScenarioBrokerRestart, map[uint64]string{
		65544:      "host check",
		4294901762: "bbdo category",
		196613:     "index mapping",
		196619:     "pb index mapping",
		65555:      "service check",
		0x1001a:    "responsive instance",
		0x10027:    "pb host check",
		0x10028:    "pb service check",
		0x1002e:    "pb responsive instance",
		0x10036:    "pb instance configuration",
	})
}

// EngineRestart returns the kinds an engine restart is expected to repeat.
// An engine restart re-announces its configuration (hosts, services,
// modules, custom variables), and the local stop event never crosses the
// network.
func EngineRestart() ExceptionSet {
	return NewExceptionSet(ScenarioEngineRestart, map[uint64]string{
		65544:      "host check",
		4294901762: "bbdo category",
		65554:      "module",
		65561:      "instance configuration",
		65555:      "service check",
		0x10017:    "service",
		0x1000c:    "host",
		0x1001b:    "pb service",
		0x1001e:    "pb host",
		0x1002b:    "pb module",
		0x10025:    "pb custom variable",
		0x10027:    "pb host check",
		0x10028:    "pb service check",
		0x10036:    "pb instance configuration",
		0x90001:    "local pb stop",
	})
}

// BuiltinExceptionSet returns a built-in set by scenario name.
func BuiltinExceptionSet(name string) (ExceptionSet, error) {
	switch name {
	case ScenarioBrokerRestart:
		return BrokerRestart(), nil
	case ScenarioEngineRestart:
		return EngineRestart(), nil
	default:
		return ExceptionSet{}, fmt.Errorf("unknown scenario %q (must be %s or %s)",
			name, ScenarioBrokerRestart, ScenarioEngineRestart)
	}
}
