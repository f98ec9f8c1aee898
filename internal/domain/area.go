// Package domain contains the typed identifiers and closed enums of the
// area model. No graph or transport logic lives here.
package domain

import (
	"fmt"
	"strings"
)

type (
	// AreaID is a stable room identifier. IDs are allocated from a
	// monotonic counter and never reused, even when a sub-area is
	// destroyed and its siblings are renumbered.
	AreaID int

	// SessionID identifies a connected actor for the lifetime of the
	// server run. Invite lists and CM rosters are keyed by it.
	SessionID int
)

// LockState is the entry-gating state of an area.
type LockState int

const (
	LockFree LockState = iota
	LockSpectatable
	LockLocked
)

func (l LockState) String() string {
	switch l {
	case LockSpectatable:
		return "SPECTATABLE"
	case LockLocked:
		return "LOCKED"
	default:
		return "FREE"
	}
}

// Status is the player-facing activity marker of an area.
type Status int

const (
	StatusIdle Status = iota
	StatusRP
	StatusCasing
	StatusLookingForPlayers
	StatusRecess
	StatusGaming
)

var statusNames = map[Status]string{
	StatusIdle:              "IDLE",
	StatusRP:                "RP",
	StatusCasing:            "CASING",
	StatusLookingForPlayers: "LOOKING-FOR-PLAYERS",
	StatusRecess:            "RECESS",
	StatusGaming:            "GAMING",
}

func (s Status) String() string { return statusNames[s] }

// ParseStatus accepts the lowercase command-layer spellings, including
// the "lfp" shorthand.
func ParseStatus(v string) (Status, error) {
	switch strings.ToLower(v) {
	case "idle":
		return StatusIdle, nil
	case "rp":
		return StatusRP, nil
	case "casing":
		return StatusCasing, nil
	case "looking-for-players", "lfp":
		return StatusLookingForPlayers, nil
	case "recess":
		return StatusRecess, nil
	case "gaming":
		return StatusGaming, nil
	}
	return StatusIdle, fmt.Errorf("invalid status %q", v)
}

// HubType selects the per-variant behavior of a hub: sub-area capacity,
// naming scheme, CM auto-grant and auto-destroy rules.
type HubType int

const (
	HubDefault HubType = iota
	HubArcade
	HubUser
	HubCourtroom
)

func ParseHubType(v string) (HubType, error) {
	switch strings.ToLower(v) {
	case "", "default":
		return HubDefault, nil
	case "arcade":
		return HubArcade, nil
	case "user":
		return HubUser, nil
	case "courtroom":
		return HubCourtroom, nil
	}
	return HubDefault, fmt.Errorf("invalid hub type %q", v)
}

func (t HubType) String() string {
	switch t {
	case HubArcade:
		return "arcade"
	case HubUser:
		return "user"
	case HubCourtroom:
		return "courtroom"
	default:
		return "default"
	}
}

// HubSpec is the behavior table looked up per hub type.
type HubSpec struct {
	Capacity int

	// GrantCreator gives ownership of a new sub-area to its creator;
	// otherwise the hub's owner roster is copied over.
	GrantCreator bool

	// AutoDestroy removes a sub-area once it has neither members nor
	// owners left.
	AutoDestroy bool
}

var hubSpecs = map[HubType]HubSpec{
	HubDefault:   {Capacity: 100},
	HubArcade:    {Capacity: 15, GrantCreator: true},
	HubUser:      {Capacity: 15, GrantCreator: true, AutoDestroy: true},
	HubCourtroom: {Capacity: 15, GrantCreator: true},
}

func (t HubType) Spec() HubSpec { return hubSpecs[t] }

// SubAbbreviation derives the label of a sub-area from its display
// position. Display positions are renumbered contiguously when a
// sibling is destroyed, so the label is positional, not stable.
func (t HubType) SubAbbreviation(hubOrdinal, pos int) string {
	switch t {
	case HubArcade:
		return fmt.Sprintf("AHS%d", pos)
	case HubUser:
		return fmt.Sprintf("UHS%d", pos)
	case HubCourtroom:
		return fmt.Sprintf("CR%d", pos)
	default:
		return fmt.Sprintf("H%dS%d", hubOrdinal, pos)
	}
}

// DefaultSubName names a sub-area created without an explicit name.
func (t HubType) DefaultSubName(pos int) string {
	if t == HubCourtroom {
		return fmt.Sprintf("Courtroom %d", pos)
	}
	return fmt.Sprintf("Area %d", pos)
}
