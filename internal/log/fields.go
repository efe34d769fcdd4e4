package log

import "runpay/internal/core"

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldRequestID     = "request_id"
	FieldClientIP      = "client_ip"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldQuery         = "query"
	FieldStatusCode    = "status_code"
	FieldDuration      = "duration_ms"
	FieldDurationHuman = "duration_human"
	FieldUserAgent     = "user_agent"
	FieldSuccess       = "success"
	FieldError         = "error"
	FieldOperation     = "operation"
	FieldEntryID       = "entry_id"
	FieldKind          = "kind"
	FieldStatus        = "status"
	FieldAmount        = "amount"
	FieldFrom          = "from"
	FieldTo            = "to"
	FieldRule          = "rule"
	FieldVersion       = "ledger_version"
	FieldFlow          = "flow"
	FieldStep          = "step"
)

const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentConsole   = "console"
	ComponentSeed      = "seed"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentSheets    = "sheets"
	ComponentCache     = "cache"
	ComponentSecurity  = "security"
	ComponentRateLimit = "rate_limit"
	ComponentTrace     = "trace"
	ComponentBackend   = "backend"
	ComponentCLI       = "cli"
)

const (
	OpSubmit   = "submit"
	OpConfirm  = "confirm"
	OpCancel   = "cancel"
	OpSummary  = "summary"
	OpFlow     = "flow"
	OpUpsert   = "upsert"
	OpUpdate   = "update"
	OpConnect  = "connect"
	OpPublish  = "publish"
	OpConsume  = "consume"
	OpAppend   = "append"
	OpSeed     = "seed"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithRequestID(requestID string) LogFields {
	if requestID != "" {
		f[FieldRequestID] = requestID
	}
	return f
}

func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithEntry adds the identifying fields of an activity log entry.
func (f LogFields) WithEntry(e core.LogEntry) LogFields {
	f[FieldEntryID] = e.ID.String()
	f[FieldKind] = string(e.Kind)
	f[FieldStatus] = string(e.Status)
	if !e.Amount.IsZero() {
		f[FieldAmount] = e.Amount.String()
	}
	if e.From != "" {
		f[FieldFrom] = string(e.From)
	}
	if e.To != "" {
		f[FieldTo] = string(e.To)
	}
	return f.WithError(e.Err)
}

func (f LogFields) WithHTTPRequest(method, path, query, userAgent string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	if query != "" {
		f[FieldQuery] = query
	}
	if userAgent != "" {
		f[FieldUserAgent] = userAgent
	}
	return f
}

func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64, success bool) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = success
	return f
}

// ToSlice converts LogFields to a slice for slog. The component key is
// left out because Logger adds it.
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		if k == FieldComponent {
			continue
		}
		slice = append(slice, k, v)
	}
	return slice
}
