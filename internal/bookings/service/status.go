package service

import "bookline/pkg/model"

var transitions = map[model.AppointmentStatus][]model.AppointmentStatus{
	model.StatusPending:   {model.StatusConfirmed, model.StatusCancelled, model.StatusNoShow},
	model.StatusConfirmed: {model.StatusCompleted, model.StatusCancelled, model.StatusNoShow},
}

// CanTransition reports whether from -> to is an edge of the status machine.
// Terminal states have no outgoing edges and self-transitions are not edges.
func CanTransition(from, to model.AppointmentStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
