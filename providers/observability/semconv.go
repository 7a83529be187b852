package observability

// Attribute keys, span names and metric names used across the service.

// --- Model provider ---

const (
	AttrLLMProvider     = "llm.provider"
	AttrLLMModel        = "llm.model"
	AttrLLMEndpoint     = "llm.endpoint"
	AttrLLMResponseID   = "llm.response.id"
	AttrLLMFinishReason = "llm.finish_reason"
	AttrLLMModalities   = "llm.modalities"
	AttrLLMAttempt      = "llm.attempt"

	AttrLLMTokensPrompt     = "llm.tokens.prompt"     // #nosec G101 -- model tokens, not credentials
	AttrLLMTokensCompletion = "llm.tokens.completion" // #nosec G101 -- model tokens, not credentials
	AttrLLMTokensTotal      = "llm.tokens.total"      // #nosec G101 -- model tokens, not credentials
)

// --- HTTP ---

const (
	AttrHTTPMethod           = "http.method"
	AttrHTTPRoute            = "http.route"
	AttrHTTPStatusCode       = "http.status_code"
	AttrHTTPURL              = "http.url"
	AttrHTTPRequestBodySize  = "http.request.body.size"
	AttrHTTPResponseBodySize = "http.response.body.size"
	AttrRequestID            = "request.id"
)

// --- Payload recovery ---

const (
	// AttrLocateStrategy names the probe or strategy that found the image,
	// or "none".
	AttrLocateStrategy = "locate.strategy"
	AttrLocateNodes    = "locate.nodes"
	AttrLocateBytes    = "locate.bytes"
	AttrLocateFaults   = "locate.faults"

	// AttrActivitySource is "parsed" or "default".
	AttrActivitySource = "activity.source"

	AttrImageWidth   = "image.width"
	AttrImageHeight  = "image.height"
	AttrImageFormat  = "image.format"
	AttrImageResized = "image.resized"
)

// --- General ---

const (
	AttrError             = "error"
	AttrDuration          = "duration"
	AttrStatus            = "status"
	AttrStatusDescription = "status_description"
)

// --- Spans ---

const (
	SpanGenerate     = "storypaint.generate"
	SpanImageCall    = "storypaint.image"
	SpanActivityCall = "storypaint.activity"
	SpanLLMRequest   = "llm.request"
)

// --- Span events ---

const (
	EventLLMRequestStart = "llm.request.start"
	EventLLMRequestEnd   = "llm.request.end"
	EventLLMRetry        = "llm.retry"
	EventTokensReceived  = "llm.tokens.received" // #nosec G101 -- model tokens, not credentials
)

// --- Metrics ---

const (
	// MetricLocateTotal counts image lookups by strategy.
	MetricLocateTotal = "storypaint_locate_total"
	// MetricActivityTotal counts activity recoveries by source.
	MetricActivityTotal = "storypaint_activity_total"
	// MetricLLMRequests counts model calls by model and status.
	MetricLLMRequests = "storypaint_llm_requests_total"
	// MetricLLMDuration observes model call latency in seconds.
	MetricLLMDuration = "storypaint_llm_request_duration_seconds"
	// MetricHTTPRequests counts served requests by route and status code.
	MetricHTTPRequests = "storypaint_http_requests_total"
	// MetricHTTPDuration observes request latency in seconds.
	MetricHTTPDuration = "storypaint_http_request_duration_seconds"
)
