package playground

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/xtdb/xtdocs/internal/infrastructure/dom"
	"github.com/xtdb/xtdocs/internal/infrastructure/observability/logging"
)

// Options configures a page session.
type Options struct {
	Invoke    InvokeFunc
	Views     Views
	Templates TemplateEngine
	Opener    Opener
	XtPlayURL string

	QuietWindow time.Duration
	SettleDelay time.Duration

	Logger *logging.ChanneledLogger
}

// Observer is told about every coordinator event on a page.
type Observer func(c *Coordinator, event Event)

// Page is one headless page session: a parsed document, its loop and its
// registry. Shells are upgraded on the loop in the order Start is given, so
// the coordinators see the same arbitrary attach order a browser produces.
type Page struct {
	id       string
	ctx      context.Context
	doc      *dom.Document
	opts     Options
	loop     *Loop
	registry *Registry
	logger   *slog.Logger
	log      *logging.ChanneledLogger

	mu        sync.Mutex
	errs      []error
	observers []Observer
}

// NewPage starts a page session over doc. ctx bounds the query service calls
// made by the page's coordinators. Close must be called when done.
func NewPage(ctx context.Context, id string, doc *dom.Document, opts Options) *Page {
	if opts.SettleDelay <= 0 {
		opts.SettleDelay = DefaultSettleDelay
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewDiscardLogger()
	}
	p := &Page{
		id:     id,
		ctx:    ctx,
		doc:    doc,
		opts:   opts,
		loop:   NewLoop(),
		log:    opts.Logger,
		logger: opts.Logger.Playground().With(slog.String("sessionId", id)),
	}
	p.registry = NewRegistry(func(container *dom.Element) (*Coordinator, error) {
		return NewCoordinator(p, container)
	})
	return p
}

func (p *Page) ID() string               { return p.id }
func (p *Page) Document() *dom.Document { return p.doc }
func (p *Page) Registry() *Registry     { return p.registry }
func (p *Page) Loop() *Loop             { return p.loop }

// Shells returns every playground shell element in document order.
func (p *Page) Shells() []*dom.Element {
	var out []*dom.Element
	for _, el := range p.doc.Elements() {
		if IsShellTag(el.Tag()) {
			out = append(out, el)
		}
	}
	return out
}

// Start queues the upgrade of each element, in the given order. A nil slice
// upgrades every shell in document order.
func (p *Page) Start(elements []*dom.Element) {
	if elements == nil {
		elements = p.Shells()
	}
	p.logger.Debug("Starting page session", "shells", len(elements))
	for _, el := range elements {
		p.loop.Post(func() { p.upgrade(el) })
	}
}

// Upgrade binds and attaches one element on the loop.
func (p *Page) Upgrade(ctx context.Context, el *dom.Element) error {
	var err error
	if callErr := p.loop.Call(ctx, func() { err = p.upgrade(el) }); callErr != nil {
		return callErr
	}
	return err
}

// upgrade runs on the loop. Configuration errors are recorded on the page.
func (p *Page) upgrade(el *dom.Element) error {
	if el.Component() != nil {
		return nil
	}
	def, ok := definitions[el.Tag()]
	if !ok {
		return nil
	}
	shell := def.upgrade(p, el)
	el.SetComponent(shell)
	if err := shell.Attach(p.registry); err != nil {
		p.fail(err)
		return err
	}
	return nil
}

func (p *Page) fail(err error) {
	p.logger.Error("Playground configuration error", "error", err.Error())
	p.mu.Lock()
	p.errs = append(p.errs, err)
	p.mu.Unlock()
}

// Wait blocks until the page is quiet: every shell attached, every settle
// window passed and every run applied.
func (p *Page) Wait(ctx context.Context) error {
	if err := p.loop.Idle(ctx); err != nil {
		return err
	}
	return errors.Join(p.Err(), p.loop.Err())
}

// SetValue changes an input value of a widget, as a user edit would.
func (p *Page) SetValue(ctx context.Context, widgetID, key, value string) error {
	var err error
	callErr := p.loop.Call(ctx, func() {
		c, ok := p.registry.Lookup(widgetID)
		if !ok {
			err = fmt.Errorf("unknown widget %q", widgetID)
			return
		}
		c.SetValue(key, value)
	})
	if callErr != nil {
		return callErr
	}
	return err
}

// ShareURL returns the xtplay link of a widget.
func (p *Page) ShareURL(ctx context.Context, widgetID string) (string, error) {
	var (
		link string
		err  error
	)
	callErr := p.loop.Call(ctx, func() {
		c, ok := p.registry.Lookup(widgetID)
		if !ok {
			err = fmt.Errorf("unknown widget %q", widgetID)
			return
		}
		link, err = c.ShareURL()
	})
	if callErr != nil {
		return "", callErr
	}
	return link, err
}

// OpenInXtPlay hands the xtplay link of a widget to the page's opener.
func (p *Page) OpenInXtPlay(ctx context.Context, widgetID string) error {
	var err error
	callErr := p.loop.Call(ctx, func() {
		c, ok := p.registry.Lookup(widgetID)
		if !ok {
			err = fmt.Errorf("unknown widget %q", widgetID)
			return
		}
		err = c.OpenInXtPlay()
	})
	if callErr != nil {
		return callErr
	}
	return err
}

// Snapshot serialises the page as it currently stands.
func (p *Page) Snapshot(ctx context.Context) (string, error) {
	var out string
	if err := p.loop.Call(ctx, func() { out = p.doc.String() }); err != nil {
		return "", err
	}
	return out, nil
}

// Observe adds an observer of coordinator events.
func (p *Page) Observe(o Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, o)
}

func (p *Page) notify(c *Coordinator, event Event) {
	p.mu.Lock()
	observers := p.observers
	p.mu.Unlock()
	for _, o := range observers {
		o(c, event)
	}
}

func (p *Page) logQuery(batches int, d time.Duration, resp *Response, err error) {
	status := 0
	if resp != nil {
		status = resp.Status
	}
	p.log.LogQueryCall(p.id, batches, d, status, err)
}

// Err returns the configuration errors recorded so far.
func (p *Page) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return errors.Join(p.errs...)
}

// Close stops the page loop and its timers.
func (p *Page) Close() {
	p.loop.Close()
}
