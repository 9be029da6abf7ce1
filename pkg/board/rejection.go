package board

// RejectionRule identifies which business rule refused an operation. The
// set is closed so callers can switch over it when producing user-facing
// messages.
type RejectionRule string

const (
	// RuleNotFound: the referenced record does not exist.
	RuleNotFound RejectionRule = "not_found"

	// RuleInvalid: the request is structurally unusable (e.g. a task
	// with no title).
	RuleInvalid RejectionRule = "invalid"

	// RuleTaskNotOpen: a bid or assignment targeted a task that is no
	// longer open.
	RuleTaskNotOpen RejectionRule = "task_not_open"

	// RuleTaskFinished: a lifecycle transition targeted a task that has
	// already completed or failed.
	RuleTaskFinished RejectionRule = "task_finished"

	// RuleNoBids: auction assignment was requested on a task with no bids.
	RuleNoBids RejectionRule = "no_bids"

	// RuleWrongAssignee: an agent tried to start a task assigned to
	// somebody else.
	RuleWrongAssignee RejectionRule = "wrong_assignee"

	// RuleNoProviders: a skill request was created for a skill with no
	// registered providers.
	RuleNoProviders RejectionRule = "no_providers"

	// RuleNotProvider: the claiming agent is not in the request's
	// provider snapshot.
	RuleNotProvider RejectionRule = "not_provider"

	// RuleNotPending: the request has already been claimed or completed.
	RuleNotPending RejectionRule = "not_pending"

	// RuleWrongClaimant: the completing agent does not match the claimant.
	RuleWrongClaimant RejectionRule = "wrong_claimant"
)

// Rejection is the non-throwing signal for an expected business-rule
// violation. It is distinguishable from success (the paired result is nil)
// and from infrastructure faults (which propagate as errors). It carries
// enough context for the calling layer to produce a meaningful message.
type Rejection struct {
	Rule     RejectionRule `json:"rule"`
	EntityID string        `json:"entity_id,omitempty"`
	Detail   string        `json:"detail,omitempty"`
}

// Reject builds a Rejection for the given rule and entity.
func Reject(rule RejectionRule, entityID, detail string) *Rejection {
	return &Rejection{Rule: rule, EntityID: entityID, Detail: detail}
}
