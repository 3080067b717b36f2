package markup

import (
	"github.com/microcosm-cc/bluemonday"

	"github.com/xtdb/xtdocs/internal/domain/playground"
)

// NewPolicy returns the sanitising policy for rendered documents: user
// generated content rules plus the playground elements and their data
// attributes.
func NewPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowElements(
		playground.TagEmbed,
		playground.TagQuery,
		playground.TagQueryTemplate,
		playground.TagTxs,
		playground.TagInput,
		playground.TagOutputTable,
		playground.TagOutputJSON,
	)
	p.AllowDataAttributes()
	p.AllowAttrs("class").Globally()
	p.AllowAttrs("id").Globally()
	return p
}
