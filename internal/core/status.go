package core

import "github.com/ToadySP/MountainOfSpirits/internal/domain"

// AggregateHubStatus derives a hub's displayed status from its
// sub-areas, by fixed precedence:
//
//  1. LOOKING-FOR-PLAYERS if any sub-area reports it;
//  2. otherwise, if any sub-area is active, the first active status
//     found in display order (CASING, GAMING or RP);
//  3. otherwise RECESS when every sub-area is at recess, else IDLE.
//
// A hub without sub-areas keeps its own status.
func AggregateHubStatus(hub *Area) Status {
	if len(hub.Subareas) == 0 {
		return hub.Status
	}
	allRecess := true
	for _, sub := range hub.Subareas {
		if sub.Status == domain.StatusLookingForPlayers {
			return domain.StatusLookingForPlayers
		}
		if sub.Status != domain.StatusRecess {
			allRecess = false
		}
	}
	for _, sub := range hub.Subareas {
		switch sub.Status {
		case domain.StatusCasing, domain.StatusGaming, domain.StatusRP:
			return sub.Status
		}
	}
	if allRecess {
		return domain.StatusRecess
	}
	return domain.StatusIdle
}

// RecomputeHubStatus applies the aggregation and reports whether the
// hub row changed. Must run after every sub-area status change,
// creation and destruction.
func RecomputeHubStatus(hub *Area) bool {
	next := AggregateHubStatus(hub)
	if next == hub.Status {
		return false
	}
	hub.Status = next
	return true
}
