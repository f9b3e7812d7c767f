package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidSelection     ErrorCode = 102
	ErrCodeInvalidRange         ErrorCode = 103
	ErrCodeInvalidRect          ErrorCode = 104

	// Viewport errors (200-299)
	ErrCodeViewportNotReady         ErrorCode = 200
	ErrCodeViewportRangeUnavailable ErrorCode = 201
	ErrCodeViewportDisposed         ErrorCode = 202
	ErrCodeWidgetCreateFailed       ErrorCode = 203

	// Projection errors (300-399)
	ErrCodeOutOfBounds        ErrorCode = 300
	ErrCodeProjectionFault    ErrorCode = 301
	ErrCodeOverlayUnavailable ErrorCode = 302
	ErrCodeMarkerNotFound     ErrorCode = 303

	// Transport errors (400-499)
	ErrCodeRequestFailed ErrorCode = 400
	ErrCodeDecodeFailed  ErrorCode = 401
	ErrCodeStaleResponse ErrorCode = 402
	ErrCodeBotAPIError   ErrorCode = 403

	// Recorder errors (500-599)
	ErrCodeRecorderUnavailable ErrorCode = 500
	ErrCodeRecorderQueryFailed ErrorCode = 501
)

// String returns a stable machine-friendly name for the error code.
func (c ErrorCode) String() string {
	switch c {
	case ErrCodeUnknown:
		return "unknown"
	case ErrCodeInvalidParameter:
		return "invalid_parameter"
	case ErrCodeInvalidConfiguration:
		return "invalid_configuration"
	case ErrCodeInvalidSelection:
		return "invalid_selection"
	case ErrCodeInvalidRange:
		return "invalid_range"
	case ErrCodeInvalidRect:
		return "invalid_rect"
	case ErrCodeViewportNotReady:
		return "viewport_not_ready"
	case ErrCodeViewportRangeUnavailable:
		return "viewport_range_unavailable"
	case ErrCodeViewportDisposed:
		return "viewport_disposed"
	case ErrCodeWidgetCreateFailed:
		return "widget_create_failed"
	case ErrCodeOutOfBounds:
		return "out_of_bounds"
	case ErrCodeProjectionFault:
		return "projection_fault"
	case ErrCodeOverlayUnavailable:
		return "overlay_unavailable"
	case ErrCodeMarkerNotFound:
		return "marker_not_found"
	case ErrCodeRequestFailed:
		return "request_failed"
	case ErrCodeDecodeFailed:
		return "decode_failed"
	case ErrCodeStaleResponse:
		return "stale_response"
	case ErrCodeBotAPIError:
		return "bot_api_error"
	case ErrCodeRecorderUnavailable:
		return "recorder_unavailable"
	case ErrCodeRecorderQueryFailed:
		return "recorder_query_failed"
	default:
		return "unknown"
	}
}
