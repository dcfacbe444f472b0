package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldUserAgent  = "user_agent"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldUsername   = "username"
	FieldEntryID    = "entry_id"
	FieldKind       = "kind"
	FieldCategory   = "category"
	FieldSymbol     = "symbol"
	FieldSkipped    = "skipped"
	FieldCount      = "count"
	FieldGoal       = "goal"
	FieldBackupID   = "backup_id"
)

// Components defines standard component names
const (
	ComponentApp      = "app"
	ComponentHTTP     = "http"
	ComponentLedger   = "ledger"
	ComponentRegistry = "registry"
	ComponentSession  = "session"
	ComponentMarket   = "market"
	ComponentBackup   = "backup"
	ComponentDatabase = "database"
	ComponentGoals    = "goals"
	ComponentAdvice   = "advice"
)

// Operations defines standard operation names
const (
	OpAppend   = "append"
	OpReload   = "reload"
	OpRegister = "register"
	OpLogin    = "login"
	OpLogout   = "logout"
	OpUpdate   = "update"
	OpLookup   = "lookup"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)
