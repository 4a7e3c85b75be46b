package proxy

import (
	"github.com/gin-gonic/gin"
)

// error codes returned by the gateway
const (
	ErrConfigDecode      = "CONFIG_DECODE_ERROR"
	ErrFormatDetect      = "FORMAT_DETECT_ERROR"
	ErrToolsDisabled     = "TOOLS_DISABLED"
	ErrBasicModeration   = "BASIC_MODERATION_BLOCKED"
	ErrSmartModeration   = "SMART_MODERATION_BLOCKED"
	ErrUpstream          = "UPSTREAM_ERROR"
	ErrResponseTransform = "RESPONSE_TRANSFORM_ERROR"
	ErrStreamEmpty       = "STREAM_EMPTY_ERROR"
	ErrPathGrammar       = "PATH_GRAMMAR_ERROR"
	ErrInternal          = "INTERNAL_ERROR"
)

// errorBody the envelope of every gateway-generated error
func errorBody(code string, message string, status int) gin.H {
	kind := "api_error"
	switch {
	case status == 404:
		kind = "not_found_error"
	case status >= 400 && status < 500:
		kind = "invalid_request_error"
	}
	return gin.H{"error": gin.H{"code": code, "message": message, "type": kind}}
}

// abortError write the error envelope and stop the handler chain
func abortError(c *gin.Context, status int, code string, message string) {
	c.AbortWithStatusJSON(status, errorBody(code, message, status))
}
