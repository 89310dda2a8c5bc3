package logging

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration"
	FieldBytes      = "bytes"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldKind       = "kind"
	FieldRecordID   = "record_id"
	FieldActor      = "actor"
	FieldCount      = "count"
	FieldEvent      = "event"
)

// Components
const (
	ComponentApp        = "app"
	ComponentHTTP       = "http"
	ComponentFinance    = "finance"
	ComponentImpactFund = "impactfund"
	ComponentAccounts   = "accounts"
	ComponentStorage    = "storage"
	ComponentEvents     = "events"
	ComponentNotifier   = "notifier"
)

// Operations
const (
	OpCreate   = "create"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpApprove  = "approve"
	OpRefresh  = "refresh"
	OpImport   = "import"
	OpMigrate  = "migrate"
	OpPublish  = "publish"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)
