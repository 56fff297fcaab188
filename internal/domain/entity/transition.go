package entity

// Transition показывает, что произошло со сделкой в проходе синхронизации.
type Transition string

const (
	TransitionNew                  Transition = "new"
	TransitionContinuingUnchanged  Transition = "continuing_unchanged"
	TransitionContinuingLimitDrift Transition = "continuing_limit_changed"
	TransitionReturned             Transition = "returned"
	TransitionCompleted            Transition = "completed"
)
