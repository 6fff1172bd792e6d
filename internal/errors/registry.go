package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
}

// Stable error codes used across the preview pipeline.
const (
	CodeSourceUnavailable = "E101"
	CodeRenderFailure     = "E102"
	CodeMountFailure      = "E201"
	CodeCleanupFailure    = "E301"
	CodeServerStart       = "E401"
	CodeConfigInvalid     = "E402"
)

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Pipeline Errors (E100-E199)
	// ============================================

	CodeSourceUnavailable: {
		Category: CategorySource,
		Message:  "Source document unavailable",
		Detail:   "The watched source file is missing or unreadable. The pipeline keeps serving its last rendered output and retries on the next poll.",
	},
	CodeRenderFailure: {
		Category: CategoryRender,
		Message:  "Document render failed",
		Detail:   "The document compiler reported an error. The session keeps its last good output.",
	},

	// ============================================
	// Mount Errors (E200-E299)
	// ============================================

	CodeMountFailure: {
		Category: CategoryMount,
		Message:  "Asset directory could not be mounted",
		Detail:   "The render produced no side-asset directory, or it could not be registered with the session server.",
	},

	// ============================================
	// Cleanup Errors (E300-E399)
	// ============================================

	CodeCleanupFailure: {
		Category: CategoryCleanup,
		Message:  "Temporary artifact cleanup failed",
		Detail:   "A superseded artifact or asset directory could not be deleted. This is logged and never propagated.",
	},

	// ============================================
	// Server Errors (E400-E499)
	// ============================================

	CodeServerStart: {
		Category: CategoryServer,
		Message:  "Preview server failed to start",
		Detail:   "The server could not bind its listen address, or the source path is not readable. This aborts startup before any session is accepted.",
	},
	CodeConfigInvalid: {
		Category: CategoryConfig,
		Message:  "Invalid configuration",
		Detail:   "One or more configuration values are out of range or inconsistent.",
	},
}
