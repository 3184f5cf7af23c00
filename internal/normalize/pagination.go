// Package normalize adapts the upstream API's inconsistent response shapes into
// the stable forms the console UI consumes: field-name aliasing with defaults,
// pagination convention translation, legacy envelope unwrapping, and synthesis of
// structured log entries from string-array history feeds.
package normalize

import "math"

// DefaultPageSize is assumed when the upstream omits a page size.
const DefaultPageSize = 15

// PageMeta holds pagination metadata in the upstream's 0-based convention.
type PageMeta struct {
	PageNumber    int  `json:"pageNumber"`
	PageSize      int  `json:"pageSize"`
	TotalElements int  `json:"totalElements"`
	TotalPages    int  `json:"totalPages"`
	First         bool `json:"first"`
	Last          bool `json:"last"`
}

// Collection is one normalized page of upstream records.
type Collection struct {
	Items []any
	Meta  PageMeta
}

// Convention is a resource's client-facing page numbering base. The upstream is
// always 0-based; some console screens were built against 1-based pages.
type Convention struct {
	Base int
}

// FromClient converts a client page number to the upstream's 0-based index.
func (c Convention) FromClient(page int) int {
	page -= c.Base
	if page < 0 {
		page = 0
	}
	return page
}

// ToClient shifts page metadata into the client's numbering base. First/Last are
// recomputed against the upstream index before shifting.
func (c Convention) ToClient(meta PageMeta) PageMeta {
	meta.First = meta.PageNumber == 0
	meta.PageNumber += c.Base
	return meta
}

// derivePages fills totalPages when the upstream omits it.
func derivePages(totalElements, pageSize int) int {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if totalElements <= 0 {
		return 0
	}
	return int(math.Ceil(float64(totalElements) / float64(pageSize)))
}

// deriveLast fills Last when the upstream omits it: the page is last when it is
// the final known page, or when the total is unknown and the page came back
// short of a full page.
func deriveLast(pageNumber, totalPages, got, pageSize int, totalKnown bool) bool {
	if totalKnown {
		return pageNumber >= totalPages-1
	}
	return got < pageSize
}
