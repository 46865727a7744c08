package websocket

// Action constants for WebSocket messages
const (
	// Health
	ActionHealthCheck = "health.check"

	// Profile catalog
	ActionExecutorProfilesList = "executor_profiles.list"

	// Editing sessions
	ActionExecutorConfigOpen         = "executor_config.session.open"
	ActionExecutorConfigGet          = "executor_config.session.get"
	ActionExecutorConfigSetExecutor  = "executor_config.session.set_executor"
	ActionExecutorConfigSetVariant   = "executor_config.session.set_variant"
	ActionExecutorConfigSetOverrides = "executor_config.session.set_overrides"
	ActionExecutorConfigSubmit       = "executor_config.session.submit"
	ActionExecutorConfigClose        = "executor_config.session.close"
	ActionExecutorConfigLastUsed     = "executor_config.last_used"

	// Subscription actions
	ActionExecutorConfigSubscribe   = "executor_config.session.subscribe"
	ActionExecutorConfigUnsubscribe = "executor_config.session.unsubscribe"

	// Notifications (server -> client)
	ActionExecutorConfigUpdated   = "executor_config.updated"
	ActionExecutorConfigReset     = "executor_config.reset"
	ActionExecutorConfigSubmitted = "executor_config.submitted"
	ActionExecutorProfilesUpdated = "executor_profiles.updated"
)

// Error codes
const (
	ErrorCodeBadRequest    = "BAD_REQUEST"
	ErrorCodeNotFound      = "NOT_FOUND"
	ErrorCodeInternalError = "INTERNAL_ERROR"
	ErrorCodeValidation    = "VALIDATION_ERROR"
	ErrorCodeUnknownAction = "UNKNOWN_ACTION"
	ErrorCodeConflict      = "CONFLICT"
)
