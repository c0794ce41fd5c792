package audit

import "time"

// Category classifies events for retention and routing.
type Category string

const (
	// CategoryCompliance covers decisions and rule changes with regulatory weight.
	CategoryCompliance Category = "compliance"

	// CategoryOperations covers routine workflow activity.
	CategoryOperations Category = "operations"
)

// Action names what happened.
type Action string

const (
	ActionApplicationCreated   Action = "application_created"
	ActionApplicationValidated Action = "application_validated"
	ActionApplicationSubmitted Action = "application_submitted"
	ActionApplicationDecided   Action = "application_decided"
	ActionApplicationResolved  Action = "application_resolved"
	ActionPipelineFault        Action = "pipeline_fault"
	ActionRuleAdded            Action = "rule_added"
	ActionRuleRemoved          Action = "rule_removed"
)

var actionCategories = map[Action]Category{
	ActionApplicationDecided:  CategoryCompliance,
	ActionApplicationResolved: CategoryCompliance,
	ActionPipelineFault:       CategoryCompliance,
	ActionRuleAdded:           CategoryCompliance,
	ActionRuleRemoved:         CategoryCompliance,
}

// Category returns the category of a. Unknown actions are operational.
func (a Action) Category() Category {
	if c, ok := actionCategories[a]; ok {
		return c
	}
	return CategoryOperations
}

// Event is emitted from domain logic to capture key actions. It never
// carries applicant PII.
type Event struct {
	ID            string    `json:"event_id"`
	Category      Category  `json:"category"`
	Timestamp     time.Time `json:"timestamp"`
	Action        Action    `json:"action"`
	ApplicationID string    `json:"application_id,omitempty"`
	Subject       string    `json:"subject,omitempty"`
	Status        string    `json:"status,omitempty"`
	Decision      string    `json:"decision,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	RequestID     string    `json:"request_id,omitempty"`
	ActorID       string    `json:"actor_id,omitempty"`
}
