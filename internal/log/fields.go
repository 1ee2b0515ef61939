package log

// Common field names for structured logging.
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldError      = "error"
	FieldOperation  = "operation"

	FieldMonth        = "month"
	FieldPeriod       = "period"
	FieldAmount       = "amount"
	FieldCategory     = "category"
	FieldCompanyID    = "company_id"
	FieldSubscription = "subscription"
	FieldMarker       = "marker"
	FieldRecordID     = "record_id"
	FieldRecordKind   = "record_kind"
)

// Standard component names.
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentStorage = "storage"
	ComponentBilling = "billing"
	ComponentParser  = "parser"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentMirror  = "mirror"
)
