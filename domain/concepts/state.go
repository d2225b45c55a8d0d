package concepts

import (
	"context"

	"github.com/vogonweb/vogon/pkg/apperror"
)

// Action is a curator decision on a concept.
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
	ActionResolve Action = "resolve"
)

// transitions lists the states each action may start from.
var transitions = map[Action]struct {
	from []string
	to   string
}{
	ActionApprove: {from: []string{StatePending}, to: StateApproved},
	ActionReject:  {from: []string{StatePending}, to: StateRejected},
	ActionResolve: {from: []string{StatePending, StateApproved}, to: StateResolved},
}

// nextState returns the state a concept in current moves to after action.
func nextState(current string, action Action) (string, error) {
	t, ok := transitions[action]
	if !ok {
		return "", apperror.ErrInvalidStateTransition.WithMessage("Unknown action " + string(action))
	}
	for _, from := range t.from {
		if from == current {
			return t.to, nil
		}
	}
	return "", apperror.ErrInvalidStateTransition.WithDetails(map[string]any{
		"from":   current,
		"action": string(action),
	})
}

// maxMergeDepth bounds chain walks if stored data already holds a cycle.
const maxMergeDepth = 1_000

// mergedWithFunc returns the merged_with id of a concept, nil when it is canonical.
type mergedWithFunc func(ctx context.Context, id string) (*string, error)

// canonical follows the merged_with chain from id to its end.
func canonical(ctx context.Context, id string, mergedWith mergedWithFunc) (string, error) {
	current := id
	for depth := 0; depth < maxMergeDepth; depth++ {
		next, err := mergedWith(ctx, current)
		if err != nil {
			return "", err
		}
		if next == nil {
			return current, nil
		}
		current = *next
	}
	return "", apperror.ErrMergeCycle
}

// mergeTarget returns the canonical concept source should point at when merged
// into target. It fails when the target chain passes through source.
func mergeTarget(ctx context.Context, sourceID, targetID string, mergedWith mergedWithFunc) (string, error) {
	current := targetID
	for depth := 0; depth < maxMergeDepth; depth++ {
		if current == sourceID {
			return "", apperror.ErrMergeCycle
		}
		next, err := mergedWith(ctx, current)
		if err != nil {
			return "", err
		}
		if next == nil {
			return current, nil
		}
		current = *next
	}
	return "", apperror.ErrMergeCycle
}
