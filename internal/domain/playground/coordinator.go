package playground

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/xtdb/xtdocs/internal/domain/playground/sqltx"
	"github.com/xtdb/xtdocs/internal/infrastructure/dom"
)

// DefaultSettleDelay is the quiet period after the last registration before a
// coordinator runs its first render.
const DefaultSettleDelay = 100 * time.Millisecond

// Coordinator owns one playground widget: its registered shells, its input
// state and its runs. Every method must be called on the page loop.
type Coordinator struct {
	id        string
	page      *Page
	container *dom.Element
	errorEl   *dom.Element
	logger    *slog.Logger

	state   map[string]string
	invoker *Debouncer

	// Local txs are collected up front because their order matters;
	// they may not be upgraded yet.
	txs      []*dom.Element
	magicTxs []*dom.Element

	query      QuerySource
	isTemplate bool
	inputs     []*InputShell
	outputs    []Output

	autoLoad        bool
	renderedOutputs bool

	settled     bool
	settleGen   uint64
	settleTimer *Timer

	listeners map[Event][]Listener
}

// NewCoordinator builds the coordinator for a container. It must run on the
// page loop.
func NewCoordinator(p *Page, container *dom.Element) (*Coordinator, error) {
	id := container.Dataset("id")
	errorEl := container.QueryData("id", ErrorElementID)
	if errorEl == nil {
		return nil, &ConfigError{WidgetID: id, Tag: TagEmbed, Err: ErrMissingErrorElement}
	}

	c := &Coordinator{
		id:        id,
		page:      p,
		container: container,
		errorEl:   errorEl,
		logger:    p.logger.With(slog.String("widgetId", id)),
		state:     make(map[string]string),
		invoker:   NewDebouncer(p.opts.Invoke, p.opts.QuietWindow),
		txs:       container.QuerySelectorAll(TagTxs),
		autoLoad:  container.Dataset("autoLoad") == "true",
		listeners: make(map[Event][]Listener),
	}

	if token := container.Dataset("magicContext"); token != "" {
		// magic elements can nest, so a source is collected once
		seen := make(map[*dom.Element]bool)
		for _, el := range MagicElementsAbove(container.Document(), token, id) {
			for _, txs := range el.QuerySelectorAll(TagTxs) {
				if !seen[txs] {
					seen[txs] = true
					c.magicTxs = append(c.magicTxs, txs)
				}
			}
		}
	}

	foundOutput := slices.ContainsFunc(container.Descendants(), func(el *dom.Element) bool {
		return IsOutputTag(el.Tag())
	})
	if !foundOutput {
		p.loop.After(0, c.addDefaultOutput)
	}

	c.armSettle()
	c.logger.Debug("Coordinator created",
		"localTxs", len(c.txs), "magicTxs", len(c.magicTxs), "autoLoad", c.autoLoad)
	return c, nil
}

func (c *Coordinator) ID() string { return c.id }

// State returns a copy of the input state.
func (c *Coordinator) State() map[string]string {
	out := make(map[string]string, len(c.state))
	for k, v := range c.state {
		out[k] = v
	}
	return out
}

func (c *Coordinator) Outputs() []Output     { return slices.Clone(c.outputs) }
func (c *Coordinator) Inputs() []*InputShell { return slices.Clone(c.inputs) }
func (c *Coordinator) Query() QuerySource    { return c.query }
func (c *Coordinator) IsTemplate() bool      { return c.isTemplate }
func (c *Coordinator) AutoLoad() bool        { return c.autoLoad }
func (c *Coordinator) Settled() bool         { return c.settled }
func (c *Coordinator) Rendered() bool        { return c.renderedOutputs }

func (c *Coordinator) addDefaultOutput() {
	el := c.container.Document().CreateElement(TagOutputTable)
	el.SetDisplay("none")
	target := c.container.QueryData("id", ContentElementID)
	if target == nil {
		target = c.container
	}
	target.AppendChild(el)
	c.page.upgrade(el)
}

// armSettle restarts the settle window. Each registration pushes the first
// render back until the shells stop attaching.
func (c *Coordinator) armSettle() {
	if c.settled {
		return
	}
	c.settleTimer.Stop()
	c.settleGen++
	gen := c.settleGen
	c.settleTimer = c.page.loop.After(c.page.opts.SettleDelay, func() { c.settle(gen) })
}

func (c *Coordinator) settle(gen uint64) {
	if c.settled || gen != c.settleGen {
		return
	}
	c.settled = true
	c.settleTimer = nil

	if c.autoLoad {
		c.Render()
	} else if c.query != nil && c.isTemplate {
		c.renderTemplate()
	}

	c.On(EventSetValue, func(c *Coordinator) { c.Render() })
	c.On(EventRegisterQuery, func(c *Coordinator) {
		if c.autoLoad {
			c.Render()
		}
	})
	c.On(EventRegisterTemplate, func(c *Coordinator) {
		if c.autoLoad {
			c.Render()
		} else {
			c.renderTemplate()
		}
	})
	lateJoin := func(c *Coordinator) {
		if c.renderedOutputs || c.autoLoad {
			c.Render()
		}
	}
	c.On(EventRegisterOutput, lateJoin)
	c.On(EventRegisterInput, lateJoin)
	c.On(EventRegisterTxs, lateJoin)
	c.logger.Debug("Coordinator settled")
}

func (c *Coordinator) renderTemplate() {
	if _, err := c.query.QueryText(c.state); err != nil {
		c.displayError(TitleTemplateError, err.Error(), nil)
	}
}

func (c *Coordinator) registerSource(src QuerySource, isTemplate bool) (*Coordinator, error) {
	if c.query != nil {
		err := ErrQueryExists
		if c.isTemplate {
			err = ErrTemplateExists
		}
		return nil, &ConfigError{WidgetID: c.id, Tag: src.Element().Tag(), Err: err}
	}
	c.query = src
	c.isTemplate = isTemplate
	c.armSettle()
	return c, nil
}

// RegisterQuery installs a literal query. A coordinator has at most one
// query source.
func (c *Coordinator) RegisterQuery(q *QueryShell) (*Coordinator, error) {
	if _, err := c.registerSource(q, false); err != nil {
		return nil, err
	}
	c.emit(EventRegisterQuery)
	return c, nil
}

// RegisterTemplate installs a query template. A coordinator has at most one
// query source.
func (c *Coordinator) RegisterTemplate(t *TemplateShell) (*Coordinator, error) {
	if _, err := c.registerSource(t, true); err != nil {
		return nil, err
	}
	c.emit(EventRegisterTemplate)
	return c, nil
}

// RegisterOutput adds a rendering destination. Registering the same output
// twice is a no-op apart from the event.
func (c *Coordinator) RegisterOutput(o Output) *Coordinator {
	if !slices.Contains(c.outputs, o) {
		c.outputs = append(c.outputs, o)
	}
	c.armSettle()
	c.emit(EventRegisterOutput)
	return c
}

// RegisterInput adds an input. Its initial value seeds the state unless the
// key already has one.
func (c *Coordinator) RegisterInput(i *InputShell) *Coordinator {
	if !slices.Contains(c.inputs, i) {
		c.inputs = append(c.inputs, i)
	}
	if _, ok := c.state[i.Key]; !ok && i.Key != "" && i.HasValue {
		c.state[i.Key] = i.Value
	}
	c.armSettle()
	c.emit(EventRegisterInput)
	return c
}

// RegisterTxs records that a transaction source is ready. Sources unknown at
// construction are picked up again from the container in document order.
func (c *Coordinator) RegisterTxs(el *dom.Element) *Coordinator {
	if !slices.Contains(c.txs, el) && c.container.Contains(el) {
		c.txs = c.container.QuerySelectorAll(TagTxs)
	}
	c.armSettle()
	c.emit(EventRegisterTxs)
	return c
}

// SetValue updates one input key.
func (c *Coordinator) SetValue(key, value string) {
	c.state[key] = value
	c.emit(EventSetValue)
}

// On adds a listener. Listeners run in registration order.
func (c *Coordinator) On(event Event, listener Listener) {
	c.listeners[event] = append(c.listeners[event], listener)
}

func (c *Coordinator) emit(event Event) {
	c.logger.Debug("Coordinator event", "event", event.String())
	c.page.notify(c, event)
	for _, listener := range slices.Clone(c.listeners[event]) {
		listener(c)
	}
}

// Render runs the query and shows the result. It does nothing until there
// is a query source and an output, and it waits silently while a local
// transaction source is not upgraded yet.
func (c *Coordinator) Render() {
	if c.query == nil || len(c.outputs) == 0 {
		return
	}

	query, err := c.query.QueryText(c.state)
	if err != nil {
		c.displayError(TitleTemplateError, err.Error(), nil)
		return
	}

	batches := make([]TxBatch, 0, len(c.magicTxs)+len(c.txs))
	for _, el := range c.magicTxs {
		// magic sources live outside the widget and may never be upgraded
		// by the time we run, so the markup is the source of truth
		batches = append(batches, TxBatch{
			Statements: sqltx.Split(txsText(el)),
			SystemTime: systemTime(el),
		})
	}
	for _, el := range c.txs {
		shell, ok := el.Component().(*TxsShell)
		if !ok {
			c.logger.Debug("Transaction source not ready, render deferred")
			return
		}
		batches = append(batches, TxBatch{
			Statements: sqltx.Split(shell.Txs()),
			SystemTime: systemTime(el),
		})
	}

	c.renderedOutputs = true
	c.Run(query, batches, c.apply)
}

// txsText reads a transaction source from its shell when upgraded, otherwise
// from the markup, attribute first then text.
func txsText(el *dom.Element) string {
	if shell, ok := el.Component().(*TxsShell); ok {
		return shell.Txs()
	}
	return sourceText(el, "txs")
}

func systemTime(el *dom.Element) *string {
	if v := el.Dataset("systemTime"); v != "" {
		return &v
	}
	return nil
}

// Run sends batches and query through the debouncer off the loop. done is
// called on the loop with the result, or with a *RunError on transport
// failure. EventFetchStart and EventFetchComplete always bracket the call.
func (c *Coordinator) Run(query string, batches []TxBatch, done func(*RunResult, error)) {
	c.emit(EventFetchStart)
	// submitted on the loop so a burst keeps its call order
	wait := c.invoker.Submit(c.page.ctx, batches, query)
	c.page.loop.Async(func() func() {
		started := time.Now()
		resp, err := wait()
		c.page.logQuery(len(batches), time.Since(started), resp, err)
		return func() {
			c.emit(EventFetchComplete)
			result, err := interpret(resp, err)
			if done != nil {
				done(result, err)
			}
		}
	})
}

func interpret(resp *Response, err error) (*RunResult, error) {
	if err != nil {
		return nil, &RunError{Kind: ErrNetwork, Cause: err}
	}
	if resp == nil {
		return nil, &RunError{Kind: ErrNetwork, Cause: errors.New("empty response")}
	}
	if !json.Valid(resp.Body) {
		return nil, &RunError{
			Kind:   ErrJSONParse,
			Status: resp.Status,
			Cause:  fmt.Errorf("response body of status %d is not JSON", resp.Status),
		}
	}
	return &RunResult{OK: resp.OK, Body: resp.Body}, nil
}

func (c *Coordinator) apply(result *RunResult, err error) {
	if err != nil {
		var runErr *RunError
		if errors.As(err, &runErr) {
			c.logger.Warn("Playground run failed", "error", err.Error())
			c.displayError(runErr.Title(), runErr.UserMessage(), nil)
			return
		}
		c.displayError(TitleError, err.Error(), nil)
		return
	}
	if !result.OK {
		body := result.ErrorBody()
		c.displayError(body.Exception, body.Message, body.Data)
		return
	}

	c.errorEl.SetDisplay("none")
	for _, o := range c.outputs {
		o.Element().SetDisplay("block")
		if err := o.Render(result.Body); err != nil {
			c.logger.Error("Output render failed", "tag", o.Element().Tag(), "error", err.Error())
			c.displayError(TitleError, err.Error(), nil)
			return
		}
	}
}

func (c *Coordinator) displayError(title, message string, data json.RawMessage) {
	for _, o := range c.outputs {
		o.Element().SetDisplay("none")
	}
	c.errorEl.SetDisplay("block")
	if err := c.errorEl.SetInnerHTML(c.page.opts.Views.Error(title, message, data)); err != nil {
		c.logger.Error("Error display render failed", "error", err.Error())
	}
}

type shareBatch struct {
	Txs        string  `json:"txs"`
	SystemTime *string `json:"system-time"`
}

// ShareURL builds the xtplay link for the widget's current query and
// transactions. It is best effort: sources that are not upgraded yet
// contribute their raw attributes, and a template that fails to expand is
// shared unexpanded.
func (c *Coordinator) ShareURL() (string, error) {
	query := ""
	if c.query != nil {
		q, err := c.query.QueryText(c.state)
		if err != nil {
			q = c.query.Raw()
		}
		query = q
	}

	batches := make([]shareBatch, 0, len(c.magicTxs)+len(c.txs))
	for _, el := range c.magicTxs {
		batches = append(batches, shareBatch{Txs: txsText(el), SystemTime: systemTime(el)})
	}
	for _, el := range c.txs {
		batches = append(batches, shareBatch{Txs: txsText(el), SystemTime: systemTime(el)})
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(batches); err != nil {
		return "", fmt.Errorf("failed to encode share transactions: %w", err)
	}
	txsJSON := strings.TrimSuffix(buf.String(), "\n")

	u, err := url.Parse(c.page.opts.XtPlayURL)
	if err != nil {
		return "", fmt.Errorf("invalid xtplay url %q: %w", c.page.opts.XtPlayURL, err)
	}
	params := "type=sql" +
		"&txs=" + url.QueryEscape(base64.StdEncoding.EncodeToString([]byte(txsJSON))) +
		"&query=" + url.QueryEscape(base64.StdEncoding.EncodeToString([]byte(query)))
	if u.RawQuery != "" {
		u.RawQuery += "&" + params
	} else {
		u.RawQuery = params
	}
	return u.String(), nil
}

// OpenInXtPlay hands the share URL to the page's opener.
func (c *Coordinator) OpenInXtPlay() error {
	link, err := c.ShareURL()
	if err != nil {
		return err
	}
	if c.page.opts.Opener == nil {
		c.logger.Info("Share link ready", "url", link)
		return nil
	}
	return c.page.opts.Opener.Open(link)
}
