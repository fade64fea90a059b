package conversation

import (
	"errors"

	"github.com/sandevgo/docportal/internal/core"
)

// Describe turns an error into a message fit for the end user.
func Describe(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, core.ErrBusy):
		return "Please wait until the current answer is finished."
	case errors.Is(err, core.ErrNotReady):
		return "Please upload a document to process first."
	case errors.Is(err, core.ErrEmptyMessage):
		return "Please type a question."
	case errors.Is(err, core.ErrSessionNotFound):
		return "This session has expired. Start a new one."
	case errors.Is(err, core.ErrConfiguration):
		return "Please enter a valid API key to proceed."
	case errors.Is(err, core.ErrDocumentTooLarge):
		return "The document is too large. Please upload a smaller file."
	case errors.Is(err, core.ErrIngestion):
		return "Failed to process the document. Please check the document format."
	default:
		return "An error occurred while generating the response. Please try again."
	}
}
