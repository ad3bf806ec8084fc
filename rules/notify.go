package rules

// NotificationKind selects how the presentation layer styles a notification
type NotificationKind string

const (
	KindInfo    NotificationKind = "info"
	KindSuccess NotificationKind = "success"
	KindError   NotificationKind = "error"
)

// Messages emitted after add/delete/submit outcomes
const (
	MsgRuleAdded    = "Expression added successfully!"
	MsgRuleDeleted  = "Expression deleted successfully!"
	MsgCannotDelete = "Cannot delete the first rule."
	MsgIncomplete   = "Please fill in all fields before submitting."
	MsgSubmitted    = "Form submitted successfully!"
)

// Notification is an ephemeral, fire-and-forget message for the user
type Notification struct {
	Message string           `json:"message"`
	Kind    NotificationKind `json:"kind"`
}

// Notifier receives notifications emitted by a RuleSetModel.
// Implementations must not call back into the model.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a plain function to the Notifier interface
type NotifierFunc func(n Notification)

// Notify calls f(n)
func (f NotifierFunc) Notify(n Notification) {
	f(n)
}

type discardNotifier struct{}

func (discardNotifier) Notify(Notification) {}
