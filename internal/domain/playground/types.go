// Package playground coordinates embeddable query playgrounds on a page.
//
// A page holds any number of xtplay-embed containers. Each container gets one
// Coordinator, created lazily by the page's Registry when the first shell
// element inside it attaches. Shells (query, template, transactions, inputs,
// outputs) can attach in any order; the Coordinator decides when enough of
// them are present to run the query and fans the result out to outputs.
//
// All coordinator state is owned by the page's Loop goroutine. Query service
// calls run on their own goroutines and hand their continuation back to the
// loop, so no coordinator field is ever touched concurrently.
package playground

import (
	"context"
	"encoding/json"
	"strings"
)

// Element tags understood by the playground.
const (
	TagEmbed         = "xtplay-embed"
	TagQuery         = "xtplay-query"
	TagQueryTemplate = "xtplay-query-template"
	TagTxs           = "xtplay-txs"
	TagInput         = "xtplay-input"
	TagOutputTable   = "xtplay-output-table"
	TagOutputJSON    = "xtplay-output-json"
)

// Lookup keys of the fixed children of a container.
const (
	ErrorElementID   = "xtplay-error"
	ContentElementID = "content"
)

// TxBatch is one transaction source's statements, applied in order before the query.
type TxBatch struct {
	Statements []string `json:"txs"`
	SystemTime *string  `json:"system-time"`
}

// Response is the raw answer of the query service.
type Response struct {
	OK     bool
	Status int
	Body   []byte
}

// InvokeFunc sends transaction batches and a query to the query service.
type InvokeFunc func(ctx context.Context, batches []TxBatch, query string) (*Response, error)

// RunResult is a parsed query service response. A false OK is an
// application-level failure, not an error.
type RunResult struct {
	OK   bool
	Body json.RawMessage
}

// ErrorBody is the payload of a failed run.
type ErrorBody struct {
	Exception string          `json:"exception"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// ErrorBody decodes the failure payload. Bodies that are not an object are
// reported verbatim as the message.
func (r *RunResult) ErrorBody() ErrorBody {
	var body ErrorBody
	if err := json.Unmarshal(r.Body, &body); err != nil {
		return ErrorBody{Exception: TitleError, Message: strings.TrimSpace(string(r.Body))}
	}
	return body
}

// Views renders the markup the coordinator writes into the page.
type Views interface {
	Error(title, message string, data json.RawMessage) string
	Table(body json.RawMessage) (string, error)
	JSON(body json.RawMessage) (string, error)
}

// TemplateEngine expands a query template against the input state.
type TemplateEngine interface {
	Expand(template string, state map[string]string) (string, error)
}

// Opener receives share URLs built by OpenInXtPlay.
type Opener interface {
	Open(url string) error
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(url string) error

// Open calls f(url).
func (f OpenerFunc) Open(url string) error { return f(url) }

// Event is a coordinator lifecycle event.
type Event int

const (
	EventRegisterQuery Event = iota + 1
	EventRegisterTemplate
	EventRegisterOutput
	EventRegisterInput
	EventRegisterTxs
	EventSetValue
	EventFetchStart
	EventFetchComplete
)

var eventNames = map[Event]string{
	EventRegisterQuery:    "registerQuery",
	EventRegisterTemplate: "registerTemplate",
	EventRegisterOutput:   "registerOutput",
	EventRegisterInput:    "registerInput",
	EventRegisterTxs:      "registerTxs",
	EventSetValue:         "setValue",
	EventFetchStart:       "fetchStart",
	EventFetchComplete:    "fetchComplete",
}

func (e Event) String() string {
	if name, ok := eventNames[e]; ok {
		return name
	}
	return "unknown"
}

// Listener is called with the coordinator that raised the event.
type Listener func(c *Coordinator)
