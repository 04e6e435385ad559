package domain

// rule is one row of the lifecycle transition table.
type rule struct {
	from   []Status // nil means any active status
	action Action
	to     Status
	step   Step
}

var rules = []rule{
	{
		from:   []Status{StatusProductionStarted, StatusAwaitingSample, StatusCorrectionRequired},
		action: ActionSampleSentToLab,
		to:     StatusSampleSent,
		step:   StepAwaitingLabReception,
	},
	{
		from:   []Status{StatusSampleSent},
		action: ActionSampleReceivedByLab,
		to:     StatusSampleReceived,
		step:   StepAnalysisInProgress,
	},
	{
		from:   []Status{StatusSampleReceived, StatusAnalysisInProgress},
		action: ActionAnalysisApproved,
		to:     StatusAwaitingDischarge,
		step:   StepAwaitingDischarge,
	},
	{
		from:   []Status{StatusSampleReceived, StatusAnalysisInProgress},
		action: ActionCorrectionRequired,
		to:     StatusCorrectionRequired,
		step:   StepAwaitingCorrection,
	},
	{
		from:   []Status{StatusAwaitingDischarge},
		action: ActionMixerDischarged,
		to:     StatusCompleted,
		step:   StepCompleted,
	},
	{
		action: ActionAdminForcedClose,
		to:     StatusCompleted,
		step:   StepManuallyClosed,
	},
}

// InitialStatus and InitialStep are assigned by ActionTicketCreated.
const (
	InitialStatus = StatusProductionStarted
	InitialStep   = StepAwaitingSample
)

func (r rule) allows(from Status) bool {
	if from.Terminal() {
		return false
	}
	if r.from == nil {
		return true
	}
	for _, s := range r.from {
		if s == from {
			return true
		}
	}
	return false
}

// Transition applies action to a ticket in status from and returns the
// resulting status and step.
func Transition(from Status, action Action) (Status, Step, error) {
	for _, r := range rules {
		if r.action == action && r.allows(from) {
			return r.to, r.step, nil
		}
	}
	return "", "", &TransitionError{From: from, Action: action}
}

// Resolve finds the transition that moves a ticket from one status to another
// without a named action. Forced closure is never inferred.
func Resolve(from, to Status) (Step, error) {
	for _, r := range rules {
		if r.action == ActionAdminForcedClose {
			continue
		}
		if r.to == to && r.allows(from) {
			return r.step, nil
		}
	}
	return "", &TransitionError{From: from, Action: ActionStatusChanged, To: to}
}

// Apply validates p against a ticket in status from. It returns the action to
// record in history and the resulting status and step. An annotation-only
// patch keeps the current status and step.
func Apply(from Status, current Step, p Patch) (Action, Status, Step, error) {
	switch {
	case p.Action != "":
		to, step, err := Transition(from, p.Action)
		if err != nil {
			return "", "", "", err
		}
		if p.Status != "" && p.Status != to {
			return "", "", "", &TransitionError{From: from, Action: p.Action, To: p.Status}
		}
		return p.Action, to, step, nil
	case p.Status != "":
		step, err := Resolve(from, p.Status)
		if err != nil {
			return "", "", "", err
		}
		return ActionStatusChanged, p.Status, step, nil
	default:
		if from.Terminal() {
			return "", "", "", &TransitionError{From: from, Action: ActionStatusChanged}
		}
		return ActionStatusChanged, from, current, nil
	}
}
