// Package messages centralizes log and response message literals so they stay consistent across
// the engine, the clipboard helpers and the UI bridge. Constants are grouped by functional area.
package messages

const (
	// Transfer engine
	MsgTransferStarted       = "transfer started"
	MsgTransferProgress      = "transfer progress"
	MsgTransferCompleted     = "transfer completed"
	MsgTransferFailed        = "transfer failed"
	MsgCleanupPartialFailed  = "failed to remove partial file"
	MsgCloseAfterAbortFailed = "failed to close destination after abort"

	ErrUnsupportedScheme   = "unsupported URL scheme"
	ErrInvalidURL          = "invalid URL"
	ErrUnexpectedStatus    = "unexpected status"
	ErrDeclaredTooLarge    = "declared content length exceeds limit"
	ErrStreamTooLarge      = "response body exceeds limit"
	ErrHeadersTimeout      = "timed out waiting for response"
	ErrBodyTimeout         = "timed out waiting for response body"
	ErrTransferCanceled    = "transfer canceled"
	ErrCreateDestination   = "failed to create destination file"
	ErrWriteDestination    = "failed to write destination file"
	ErrFinalizeDestination = "failed to finalize destination file"
	ErrEmptyDestination    = "destination path is empty"

	// Clipboard delivery
	MsgClipboardDelivering = "delivering file to clipboard"
	MsgClipboardDelivered  = "file placed on clipboard"
	MsgClipboardFallback   = "no uri-list helper found, falling back to plain text"

	ErrClipboardTimeout     = "clipboard helper timed out"
	ErrClipboardUnavailable = "no clipboard mechanism available"
	ErrClipboardHelper      = "clipboard helper failed"

	// Temp area
	MsgTempAreaPurged      = "temp area purged"
	MsgTempAreaCreated     = "temp area created"
	MsgTempEntryPurgeError = "failed to purge temp entry"

	// Launcher
	MsgDownloadRequested  = "download requested"
	MsgClipboardRequested = "clipboard copy requested"
	MsgSaveDialogCanceled = "save dialog canceled"
	MsgServiceStarted     = "launcher service accepting requests"
	MsgServiceDraining    = "launcher service draining in-flight transfers"
	MsgServiceStopped     = "launcher service stopped"

	ErrServiceShuttingDown = "service shutting down"
	ErrSaveDialogFailed    = "save dialog failed"

	// UI bridge
	MsgBridgeListening   = "ui bridge listening"
	MsgBridgeStopped     = "ui bridge stopped"
	MsgEventClientJoined = "event stream client connected"
	MsgEventClientLeft   = "event stream client disconnected"

	ErrInvalidRequestBody = "invalid request body"
	ErrRateLimited        = "too many requests"
	ErrCatalogUnavailable = "catalog unavailable"

	// Catalog
	ErrCatalogStatus = "catalog returned unexpected status"
	ErrCatalogDecode = "failed to decode catalog"
	ErrAssetNotFound = "asset not found"
)
