// Package services provides application-level orchestration services
package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/xtdb/xtdocs/internal/domain/playground"
	"github.com/xtdb/xtdocs/internal/infrastructure/dom"
	"github.com/xtdb/xtdocs/internal/infrastructure/messaging"
	"github.com/xtdb/xtdocs/internal/infrastructure/observability/logging"
	"github.com/xtdb/xtdocs/internal/infrastructure/security"
)

// Attach orders accepted by RenderPage.
const (
	OrderDocument = "document"
	OrderReverse  = "reverse"
	OrderShuffle  = "shuffle"
)

// ErrInvalidPage wraps playground configuration errors found while rendering.
var ErrInvalidPage = errors.New("invalid playground markup")

// PlaygroundConfig holds the page session settings.
type PlaygroundConfig struct {
	XtPlayURL   string
	QuietWindow time.Duration
	SettleDelay time.Duration
	PageTimeout time.Duration
}

// PageOptions tune one RenderPage call.
type PageOptions struct {
	// SessionID names the session for SSE subscribers; generated when empty.
	SessionID string
	// Values are input values to apply after the first render, by widget id
	// then input key.
	Values map[string]map[string]string
	// Order is the shell attach order: document (default), reverse or shuffle.
	Order string
	Seed  uint64
}

// RenderResult is a rendered page.
type RenderResult struct {
	SessionID string   `json:"sessionId"`
	HTML      string   `json:"html"`
	Widgets   []string `json:"widgets"`
}

// PlaygroundService runs headless page sessions over playground markup.
type PlaygroundService struct {
	invoke      playground.InvokeFunc
	views       playground.Views
	templates   playground.TemplateEngine
	broadcaster messaging.Broadcaster
	config      PlaygroundConfig
	logger      *logging.ChanneledLogger
}

// NewPlaygroundService creates a new playground service. broadcaster may be nil.
func NewPlaygroundService(
	invoke playground.InvokeFunc,
	views playground.Views,
	templates playground.TemplateEngine,
	broadcaster messaging.Broadcaster,
	config PlaygroundConfig,
	logger *logging.ChanneledLogger,
) *PlaygroundService {
	return &PlaygroundService{
		invoke:      invoke,
		views:       views,
		templates:   templates,
		broadcaster: broadcaster,
		config:      config,
		logger:      logger,
	}
}

// RenderPage upgrades every playground on the page, lets them run, applies
// the requested input values and returns the resulting markup. Query service
// failures are rendered into the page; configuration errors fail the call
// with ErrInvalidPage.
func (s *PlaygroundService) RenderPage(ctx context.Context, markup string, opts PageOptions) (*RenderResult, error) {
	start := time.Now()
	if opts.SessionID == "" {
		opts.SessionID = security.GenerateULID()
	}
	if s.config.PageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.PageTimeout)
		defer cancel()
	}

	page, err := s.newPage(ctx, opts.SessionID, markup)
	if err != nil {
		return nil, err
	}
	defer page.Close()

	shells, err := orderShells(page.Shells(), opts.Order, opts.Seed)
	if err != nil {
		return nil, err
	}
	page.Start(shells)
	if err := s.wait(ctx, page); err != nil {
		return nil, err
	}

	if len(opts.Values) > 0 {
		widgetIDs := make([]string, 0, len(opts.Values))
		for id := range opts.Values {
			widgetIDs = append(widgetIDs, id)
		}
		slices.Sort(widgetIDs)
		for _, id := range widgetIDs {
			keys := make([]string, 0, len(opts.Values[id]))
			for key := range opts.Values[id] {
				keys = append(keys, key)
			}
			slices.Sort(keys)
			for _, key := range keys {
				if err := page.SetValue(ctx, id, key, opts.Values[id][key]); err != nil {
					return nil, fmt.Errorf("%w: %w", ErrInvalidPage, err)
				}
			}
		}
		if err := s.wait(ctx, page); err != nil {
			return nil, err
		}
	}

	out, err := page.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	result := &RenderResult{SessionID: opts.SessionID, HTML: out, Widgets: []string{}}
	for _, c := range page.Registry().Coordinators() {
		result.Widgets = append(result.Widgets, c.ID())
	}

	s.logger.Playground().Info("Page rendered",
		"sessionId", opts.SessionID, "widgets", len(result.Widgets), "duration", time.Since(start))
	return result, nil
}

// ShareURL returns the xtplay link of one widget on the page.
func (s *PlaygroundService) ShareURL(ctx context.Context, markup, widgetID string) (string, error) {
	if s.config.PageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.PageTimeout)
		defer cancel()
	}

	// share links never need results, so the page runs without a query
	// service and its opener only captures the link
	var link string
	opener := playground.OpenerFunc(func(url string) error {
		link = url
		return nil
	})
	page, err := s.newPageWith(ctx, security.GenerateULID(), markup, noopInvoke, opener)
	if err != nil {
		return "", err
	}
	defer page.Close()

	page.Start(nil)
	if err := s.wait(ctx, page); err != nil {
		return "", err
	}
	if err := page.OpenInXtPlay(ctx, widgetID); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidPage, err)
	}
	return link, nil
}

func (s *PlaygroundService) newPage(ctx context.Context, sessionID, markup string) (*playground.Page, error) {
	return s.newPageWith(ctx, sessionID, markup, s.invoke, nil)
}

func (s *PlaygroundService) newPageWith(ctx context.Context, sessionID, markup string, invoke playground.InvokeFunc, opener playground.Opener) (*playground.Page, error) {
	doc, err := dom.ParseString(markup)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPage, err)
	}
	page := playground.NewPage(ctx, sessionID, doc, playground.Options{
		Invoke:      invoke,
		Views:       s.views,
		Templates:   s.templates,
		XtPlayURL:   s.config.XtPlayURL,
		QuietWindow: s.config.QuietWindow,
		SettleDelay: s.config.SettleDelay,
		Opener:      opener,
		Logger:      s.logger,
	})
	if s.broadcaster != nil {
		page.Observe(func(c *playground.Coordinator, event playground.Event) {
			switch event {
			case playground.EventFetchStart, playground.EventFetchComplete:
				s.broadcaster.Publish(messaging.PlaygroundEvent{
					SessionID: sessionID,
					WidgetID:  c.ID(),
					Type:      event.String(),
				})
			}
		})
	}
	return page, nil
}

func (s *PlaygroundService) wait(ctx context.Context, page *playground.Page) error {
	err := page.Wait(ctx)
	if err == nil {
		return nil
	}
	var cfgErr *playground.ConfigError
	if errors.As(err, &cfgErr) {
		return fmt.Errorf("%w: %w", ErrInvalidPage, err)
	}
	return err
}

func orderShells(shells []*dom.Element, order string, seed uint64) ([]*dom.Element, error) {
	switch order {
	case "", OrderDocument:
	case OrderReverse:
		slices.Reverse(shells)
	case OrderShuffle:
		rand.New(rand.NewPCG(seed, seed)).Shuffle(len(shells), func(i, j int) {
			shells[i], shells[j] = shells[j], shells[i]
		})
	default:
		return nil, fmt.Errorf("%w: unknown attach order %q", ErrInvalidPage, order)
	}
	return shells, nil
}

func noopInvoke(context.Context, []playground.TxBatch, string) (*playground.Response, error) {
	return &playground.Response{OK: true, Status: 200, Body: []byte("[]")}, nil
}
