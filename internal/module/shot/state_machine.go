package shot

import "fmt"

// StateMachine validates and executes shot status transitions.
type StateMachine struct {
	transitions map[ShotStatus][]ShotStatus
}

// NewStateMachine creates a new shot state machine.
func NewStateMachine() *StateMachine {
	return &StateMachine{
		transitions: map[ShotStatus][]ShotStatus{
			StatusDraft:     {StatusImgGen},
			StatusImgGen:    {StatusImgReview, StatusDraft},
			StatusImgReview: {StatusVidGen, StatusDraft},
			// Failed or cancelled video generation rolls back to the
			// image review stage so generated images survive.
			StatusVidGen:    {StatusVidReview, StatusImgReview, StatusDraft},
			StatusVidReview: {StatusApproved, StatusImgReview, StatusDraft},
			StatusApproved:  {StatusDraft},
		},
	}
}

// CanTransition checks if a transition from `from` to `to` is valid.
func (sm *StateMachine) CanTransition(from, to ShotStatus) bool {
	allowed, ok := sm.transitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// Transition attempts to move a shot to a new status.
func (sm *StateMachine) Transition(s *Shot, to ShotStatus) error {
	if !sm.CanTransition(s.Status, to) {
		return fmt.Errorf("%w: cannot transition from %s to %s", ErrInvalidTransition, s.Status, to)
	}
	s.Status = to
	return nil
}

// Reject sends a shot back to draft from any status and clears every
// generated artifact. Artifacts are not recoverable after a rejection.
func (sm *StateMachine) Reject(s *Shot) {
	s.Status = StatusDraft
	s.ClearArtifacts()
}

// GetAllowedTransitions returns all allowed transitions from the given status.
func (sm *StateMachine) GetAllowedTransitions(from ShotStatus) []ShotStatus {
	allowed, ok := sm.transitions[from]
	if !ok {
		return []ShotStatus{}
	}
	result := make([]ShotStatus, len(allowed))
	copy(result, allowed)
	return result
}
