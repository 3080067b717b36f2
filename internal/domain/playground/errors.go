package playground

import (
	"errors"
	"fmt"
)

// Configuration errors. They are fatal for the page session.
var (
	ErrNoContainer         = errors.New("must be a child of a " + TagEmbed)
	ErrMissingID           = errors.New("parent " + TagEmbed + " must have unique data-id set")
	ErrMissingErrorElement = errors.New("must have a child element with data-id " + ErrorElementID)
	ErrQueryExists         = errors.New("query already exists in registry")
	ErrTemplateExists      = errors.New("template already exists in registry")
)

// Transport error kinds.
var (
	ErrNetwork   = errors.New("network error")
	ErrJSONParse = errors.New("json parse error")
)

// Error display titles and messages.
const (
	TitleError         = "Error"
	TitleNetwork       = "Network Error"
	TitleJSONParse     = "JSON Parse Error"
	TitleTemplateError = "Template Error"

	MessageNetwork   = "Uh oh! A network error. Please try again."
	MessageJSONParse = "Uh oh! Failed to read the result. Please try again or contact us to sort it out."
)

// ConfigError reports a page that is wired incorrectly.
type ConfigError struct {
	WidgetID string
	Tag      string
	Err      error
}

func (e *ConfigError) Error() string {
	if e.WidgetID == "" {
		return fmt.Sprintf("playground configuration error in <%s>: %v", e.Tag, e.Err)
	}
	return fmt.Sprintf("playground configuration error in <%s> of widget %q: %v", e.Tag, e.WidgetID, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// RunError is a transport failure of a run. Kind is ErrNetwork or ErrJSONParse
// and Cause is the underlying error; errors.Is matches both.
type RunError struct {
	Kind   error
	Status int
	Cause  error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("%s: %v", e.Title(), e.Cause)
}

func (e *RunError) Unwrap() []error { return []error{e.Kind, e.Cause} }

// Title is the error display title for this failure.
func (e *RunError) Title() string {
	switch e.Kind {
	case ErrNetwork:
		return TitleNetwork
	case ErrJSONParse:
		return TitleJSONParse
	}
	return TitleError
}

// UserMessage is the fixed message shown for this failure.
func (e *RunError) UserMessage() string {
	switch e.Kind {
	case ErrNetwork:
		return MessageNetwork
	case ErrJSONParse:
		return MessageJSONParse
	}
	return e.Cause.Error()
}
