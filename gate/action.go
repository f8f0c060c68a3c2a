package gate

// Action is the verb half of a permission.
type Action string

const (
	ActionList     Action = "list"
	ActionView     Action = "view"
	ActionCreate   Action = "create"
	ActionUpdate   Action = "update"
	ActionDelete   Action = "delete"
	ActionValidate Action = "validate"
	ActionReject   Action = "reject"
)
