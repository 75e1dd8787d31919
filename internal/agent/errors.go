package agent

import "errors"

var (
	// ErrPlanRejected means the user declined the whole plan up front.
	ErrPlanRejected = errors.New("plan rejected by user")

	// ErrStepDeclined means the user declined a critical step; the
	// plan halts there.
	ErrStepDeclined = errors.New("critical step declined by user")

	// ErrMaxReplans means the reflection loop hit its replan ceiling.
	ErrMaxReplans = errors.New("replan limit reached")

	// ErrRepetition means the repetition guard detected the agent
	// spinning on the same action.
	ErrRepetition = errors.New("repetitive actions detected")
)
