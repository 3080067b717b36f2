package playground

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/xtdb/xtdocs/internal/infrastructure/dom"
)

// Role is the capability a shell declares to its coordinator.
type Role int

const (
	RoleQuery Role = iota + 1
	RoleTemplate
	RoleTxs
	RoleInput
	RoleOutput
)

// Shell is an upgraded playground element. Upgrading binds the shell to its
// element; Attach then registers it with the coordinator of the enclosing
// container.
type Shell interface {
	Element() *dom.Element
	Attach(r *Registry) error
}

// Output is a rendering destination for successful results.
type Output interface {
	Element() *dom.Element
	Render(body json.RawMessage) error
}

// QuerySource is a coordinator's query: a literal query or a template.
type QuerySource interface {
	Element() *dom.Element
	// QueryText returns the query to run for the given input state.
	QueryText(state map[string]string) (string, error)
	// Raw returns the unexpanded source text.
	Raw() string
}

type definition struct {
	role    Role
	upgrade func(p *Page, el *dom.Element) Shell
}

var definitions = map[string]definition{
	TagQuery: {RoleQuery, func(_ *Page, el *dom.Element) Shell {
		return &QueryShell{el: el, query: sourceText(el, "query")}
	}},
	TagQueryTemplate: {RoleTemplate, func(p *Page, el *dom.Element) Shell {
		return &TemplateShell{el: el, template: sourceText(el, "template"), engine: p.opts.Templates}
	}},
	TagTxs: {RoleTxs, func(_ *Page, el *dom.Element) Shell {
		return &TxsShell{el: el, txs: sourceText(el, "txs")}
	}},
	TagInput: {RoleInput, func(_ *Page, el *dom.Element) Shell {
		return &InputShell{el: el, Key: el.Dataset("key"), Value: el.Dataset("value"), HasValue: el.HasDataset("value")}
	}},
	TagOutputTable: {RoleOutput, func(p *Page, el *dom.Element) Shell {
		return &TableOutput{el: el, views: p.opts.Views}
	}},
	TagOutputJSON: {RoleOutput, func(p *Page, el *dom.Element) Shell {
		return &JSONOutput{el: el, views: p.opts.Views}
	}},
}

// IsShellTag reports whether tag names a playground shell.
func IsShellTag(tag string) bool {
	_, ok := definitions[strings.ToLower(tag)]
	return ok
}

// IsOutputTag reports whether tag names an output shell.
func IsOutputTag(tag string) bool {
	def, ok := definitions[strings.ToLower(tag)]
	return ok && def.role == RoleOutput
}

// sourceText reads a shell's source from its data attribute, falling back to
// the element text.
func sourceText(el *dom.Element, key string) string {
	if el.HasDataset(key) {
		return el.Dataset(key)
	}
	return strings.TrimSpace(el.TextContent())
}

// QueryShell holds a literal query.
type QueryShell struct {
	el    *dom.Element
	query string
}

func (q *QueryShell) Element() *dom.Element { return q.el }
func (q *QueryShell) Query() string         { return q.query }
func (q *QueryShell) Raw() string           { return q.query }

func (q *QueryShell) QueryText(map[string]string) (string, error) { return q.query, nil }

func (q *QueryShell) Attach(r *Registry) error {
	c, err := r.Get(q.el)
	if err != nil {
		return err
	}
	_, err = c.RegisterQuery(q)
	return err
}

var errNoTemplateEngine = errors.New("no template engine configured")

// TemplateShell holds a query template. Rendering expands it against the
// input state and shows the expanded query in the element.
type TemplateShell struct {
	el       *dom.Element
	template string
	engine   TemplateEngine
}

func (t *TemplateShell) Element() *dom.Element { return t.el }
func (t *TemplateShell) Raw() string           { return t.template }

// Render expands the template and writes the result into the element.
func (t *TemplateShell) Render(state map[string]string) (string, error) {
	if t.engine == nil {
		return "", errNoTemplateEngine
	}
	query, err := t.engine.Expand(t.template, state)
	if err != nil {
		return "", err
	}
	t.el.SetTextContent(query)
	return query, nil
}

func (t *TemplateShell) QueryText(state map[string]string) (string, error) {
	return t.Render(state)
}

func (t *TemplateShell) Attach(r *Registry) error {
	c, err := r.Get(t.el)
	if err != nil {
		return err
	}
	_, err = c.RegisterTemplate(t)
	return err
}

// TxsShell is a transaction source. The coordinator treats a txs element as
// ready once it has been upgraded.
type TxsShell struct {
	el  *dom.Element
	txs string
}

func (s *TxsShell) Element() *dom.Element { return s.el }

// Txs returns the raw transaction script.
func (s *TxsShell) Txs() string { return s.txs }

func (s *TxsShell) Attach(r *Registry) error {
	c, err := r.Get(s.el)
	if err != nil {
		return err
	}
	c.RegisterTxs(s.el)
	return nil
}

// InputShell contributes one key of the input state.
type InputShell struct {
	el       *dom.Element
	Key      string
	Value    string
	HasValue bool
}

func (i *InputShell) Element() *dom.Element { return i.el }

func (i *InputShell) Attach(r *Registry) error {
	c, err := r.Get(i.el)
	if err != nil {
		return err
	}
	c.RegisterInput(i)
	return nil
}

// TableOutput renders results as a table.
type TableOutput struct {
	el    *dom.Element
	views Views
}

func (o *TableOutput) Element() *dom.Element { return o.el }

func (o *TableOutput) Render(body json.RawMessage) error {
	markup, err := o.views.Table(body)
	if err != nil {
		return err
	}
	return o.el.SetInnerHTML(markup)
}

func (o *TableOutput) Attach(r *Registry) error { return attachOutput(r, o) }

// JSONOutput renders results as formatted JSON.
type JSONOutput struct {
	el    *dom.Element
	views Views
}

func (o *JSONOutput) Element() *dom.Element { return o.el }

func (o *JSONOutput) Render(body json.RawMessage) error {
	markup, err := o.views.JSON(body)
	if err != nil {
		return err
	}
	return o.el.SetInnerHTML(markup)
}

func (o *JSONOutput) Attach(r *Registry) error { return attachOutput(r, o) }

func attachOutput(r *Registry, o Output) error {
	c, err := r.Get(o.Element())
	if err != nil {
		return err
	}
	c.RegisterOutput(o)
	return nil
}
