/*
Package response - unified HTTP responses for the API layer

Principles:
1. HTTP status mapping lives here; domain and application code only return errors
2. Error responses never expose internals such as stacks or wrapped driver errors
3. Every response carries the request ID used in the logs
4. Internal errors answer "internal server error"; the real error is only logged

Stack extraction prefers the stack captured where a domain error was created
(shared.Stacker) and falls back to the handling point.

Response format:

	success: { success: true, data: {...}, message: "...", code: 200, request_id: "..." }
	failure: { success: false, error: "ERROR_CODE", message: "...", code: 4xx/5xx, request_id: "..." }
*/
package response

import (
	stderrors "errors"
	"net/http"
	"runtime"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"dddkit/domain/shared"
	"dddkit/pkg/errors"
	"dddkit/pkg/logger"
)

// RequestIDKey gin context key for request id propagation
const RequestIDKey = "request_id"

// Response common response body
type Response struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	Error     string `json:"error,omitempty"`      // error code, not error details
	Code      int    `json:"code"`                 // HTTP status
	Message   string `json:"message"`              // user visible message
	RequestID string `json:"request_id,omitempty"` // request tracing id
}

// PaginatedResponse page of results
type PaginatedResponse struct {
	Success    bool       `json:"success"`
	Data       any        `json:"data"`
	Pagination Pagination `json:"pagination"`
	Message    string     `json:"message"`
	Code       int        `json:"code"`
	RequestID  string     `json:"request_id,omitempty"`
}

// Pagination skip/take window of a paged list
type Pagination struct {
	Skip  int `json:"skip"`
	Take  int `json:"take"`
	Count int `json:"count"`
}

// httpStatusMap error code to HTTP status, API layer only
var httpStatusMap = map[errors.ErrorCode]int{
	errors.CodeInternal:            http.StatusInternalServerError,
	errors.CodeInvalidInput:        http.StatusBadRequest,
	errors.CodeNotFound:            http.StatusNotFound,
	errors.CodeConflict:            http.StatusConflict,
	errors.CodeConcurrencyConflict: http.StatusConflict,
	errors.CodeRuleViolation:       http.StatusUnprocessableEntity,
	errors.CodeCancelled:           http.StatusServiceUnavailable,
	errors.CodeStorageFailure:      http.StatusServiceUnavailable,
	errors.CodePublishFailure:      http.StatusBadGateway,
}

// StatusFor maps an error code to the HTTP status it is answered with
func StatusFor(code errors.ErrorCode) int {
	if status, ok := httpStatusMap[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// GetRequestID returns the id set by the request id middleware
func GetRequestID(c *gin.Context) string {
	if requestID, exists := c.Get(RequestIDKey); exists {
		if id, ok := requestID.(string); ok {
			return id
		}
	}
	return ""
}

func captureStack(skip int) []string {
	var pcs [16]uintptr
	n := runtime.Callers(skip, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])

	var stack []string
	for range 5 {
		frame, more := frames.Next()
		if frame.Function != "" {
			stack = append(stack, frame.Function)
		}
		if !more {
			break
		}
	}
	return stack
}

// HandleError answers framework level failures such as binding errors
func HandleError(c *gin.Context, err error, message string, code int) {
	requestID := GetRequestID(c)

	logger.FromContext(c.Request.Context()).Warn(message,
		zap.String("path", c.Request.URL.Path),
		zap.String("method", c.Request.Method),
		zap.Int("status", code),
		zap.Error(err))

	c.JSON(code, &Response{
		Success:   false,
		Error:     string(errors.CodeInvalidInput),
		Message:   message,
		Code:      code,
		RequestID: requestID,
	})
}

// HandleAppError classifies err, logs it in full and answers with a safe body
func HandleAppError(c *gin.Context, err error) {
	requestID := GetRequestID(c)
	appErr := errors.AsAppError(err)
	httpStatus := StatusFor(appErr.Code)

	fields := []zap.Field{
		zap.String("path", c.Request.URL.Path),
		zap.String("method", c.Request.Method),
		zap.String("error_code", string(appErr.Code)),
		zap.Int("http_status", httpStatus),
		zap.Strings("stack", extractStack(err)),
		zap.Error(err),
	}
	log := logger.FromContext(c.Request.Context())
	if httpStatus >= http.StatusInternalServerError {
		log.Error(appErr.Message, fields...)
	} else {
		log.Warn(appErr.Message, fields...)
	}

	userMessage := appErr.Message
	if appErr.Code == errors.CodeInternal {
		userMessage = "internal server error"
	}

	c.JSON(httpStatus, &Response{
		Success:   false,
		Error:     string(appErr.Code),
		Message:   userMessage,
		Code:      httpStatus,
		RequestID: requestID,
	})
}

func extractStack(err error) []string {
	var stacker shared.Stacker
	if stderrors.As(err, &stacker) {
		if stack := stacker.Stack(); len(stack) > 0 {
			return stack
		}
	}
	// skip: Callers, captureStack, extractStack, HandleAppError
	return captureStack(4)
}

// HandleSuccess 200 OK
func HandleSuccess(c *gin.Context, data any, message string) {
	c.JSON(http.StatusOK, &Response{
		Success:   true,
		Data:      data,
		Message:   message,
		Code:      http.StatusOK,
		RequestID: GetRequestID(c),
	})
}

// HandleCreated 201 Created
func HandleCreated(c *gin.Context, data any, message string) {
	c.JSON(http.StatusCreated, &Response{
		Success:   true,
		Data:      data,
		Message:   message,
		Code:      http.StatusCreated,
		RequestID: GetRequestID(c),
	})
}

// HandleNoContent 204 No Content
func HandleNoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

func HandlePaginated(c *gin.Context, data any, pagination Pagination, message string) {
	c.JSON(http.StatusOK, &PaginatedResponse{
		Success:    true,
		Data:       data,
		Pagination: pagination,
		Message:    message,
		Code:       http.StatusOK,
		RequestID:  GetRequestID(c),
	})
}
