// Package orchestrator drives watch mode. A pure reducer maps each watcher
// event onto the next state and a list of effects; the Orchestrator applies
// the reducer on a single goroutine and runs the effects.
package orchestrator

import (
	"github.com/conneroisu/htmlc/internal/registry"
	"github.com/conneroisu/htmlc/internal/watcher"
)

// Phase is the state of the ready gate.
type Phase int

const (
	// Scanning is the initial phase, before the watcher finished its scan.
	Scanning Phase = iota
	// Ready is entered exactly once, on the first ScanComplete.
	Ready
)

// String returns the string representation of the Phase
func (p Phase) String() string {
	switch p {
	case Scanning:
		return "scanning"
	case Ready:
		return "ready"
	default:
		return "unknown"
	}
}

// State is everything the reducer decides on. A State is a value: Reduce
// never changes the registry of the State it was given, it hands back a new
// registry whenever the entry set changes.
type State struct {
	Phase   Phase
	Entries *registry.EntryRegistry
}

// NewState returns the initial state with an empty registry.
func NewState() State {
	return State{
		Phase:   Scanning,
		Entries: registry.NewEntryRegistry(),
	}
}

// EffectKind tags an Effect.
type EffectKind int

const (
	// EffectCompile compiles every path in Paths concurrently.
	EffectCompile EffectKind = iota
	// EffectAwaitInitial waits for every compile started with Initial set.
	EffectAwaitInitial
	// EffectLog logs Label and Path once every other effect of the same
	// event has settled.
	EffectLog
)

// Effect is one instruction produced by Reduce.
type Effect struct {
	Kind EffectKind
	// Paths to compile, a snapshot taken when the event was reduced.
	Paths []string
	// Initial marks compiles started before the ready gate opened.
	Initial bool
	Label   string
	Path    string
}

// Log labels, one per event type.
const (
	LabelAdd    = "ADD"
	LabelChange = "MOD"
	LabelUnlink = "DEL"
	LabelReady  = "RDY"
)

// Reduce applies event to state. It performs no I/O and leaves state
// untouched: the returned effects describe the compiles to start, what to
// wait for and what to log. isEntry decides which paths are entry files.
//
//	Add(p)       entry p is registered and compiled; while scanning the
//	             compile counts as an initial build.
//	Change(p)    every registered entry is recompiled.
//	Unlink(p)    entry p is unregistered. Other files trigger nothing.
//	ScanComplete the gate opens (once), every registered entry is
//	             recompiled and the initial builds are awaited.
func Reduce(state State, event watcher.Event, isEntry func(path string) bool) (State, []Effect) {
	entry := event.Path != "" && isEntry(event.Path)

	switch event.Type {
	case watcher.EventAdd:
		var effects []Effect
		if entry {
			if !state.Entries.Contains(event.Path) {
				state.Entries = state.Entries.Clone()
				state.Entries.Add(event.Path)
			}
			effects = append(effects, Effect{
				Kind:    EffectCompile,
				Paths:   []string{event.Path},
				Initial: state.Phase == Scanning,
			})
		}
		return state, append(effects, logEffect(LabelAdd, event.Path))

	case watcher.EventChange:
		return state, []Effect{
			rebuildAll(state),
			logEffect(LabelChange, event.Path),
		}

	case watcher.EventUnlink:
		if entry && state.Entries.Contains(event.Path) {
			state.Entries = state.Entries.Clone()
			state.Entries.Remove(event.Path)
		}
		return state, []Effect{logEffect(LabelUnlink, event.Path)}

	case watcher.EventScanComplete:
		if state.Phase == Ready {
			return state, nil
		}
		state.Phase = Ready
		return state, []Effect{
			rebuildAll(state),
			{Kind: EffectAwaitInitial},
			logEffect(LabelReady, ""),
		}

	default:
		return state, nil
	}
}

func rebuildAll(state State) Effect {
	return Effect{Kind: EffectCompile, Paths: state.Entries.Paths()}
}

func logEffect(label, path string) Effect {
	return Effect{Kind: EffectLog, Label: label, Path: path}
}
