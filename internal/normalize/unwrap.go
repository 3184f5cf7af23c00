package normalize

// Unwrap coerces whatever the upstream returned for a list call into a uniform
// page. Three shapes are accepted, tried in order: a bare array (legacy, no
// further pages knowable), a {data: [...]} envelope with optional pagination
// metadata, and anything else, which yields an empty page rather than an error.
func Unwrap(raw any, requestedPage, requestedSize int) Collection {
	if items, ok := raw.([]any); ok {
		return unwrapLegacyArray(items, requestedPage, requestedSize)
	}

	if envelope, ok := raw.(map[string]any); ok {
		if items, ok := envelope["data"].([]any); ok {
			return unwrapEnvelope(envelope, items, requestedPage, requestedSize)
		}
	}

	size := requestedSize
	if size <= 0 {
		size = DefaultPageSize
	}
	return Collection{
		Items: []any{},
		Meta: PageMeta{
			PageNumber: 0,
			PageSize:   size,
			First:      true,
			Last:       true,
		},
	}
}

// unwrapLegacyArray treats a bare array as a single complete page.
func unwrapLegacyArray(items []any, requestedPage, requestedSize int) Collection {
	size := requestedSize
	if size <= 0 {
		size = len(items)
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	return Collection{
		Items: items,
		Meta: PageMeta{
			PageNumber:    requestedPage,
			PageSize:      size,
			TotalElements: len(items),
			TotalPages:    1,
			First:         requestedPage == 0,
			Last:          true,
		},
	}
}

func unwrapEnvelope(envelope map[string]any, items []any, requestedPage, requestedSize int) Collection {
	pageNumber := IntField(envelope, "pageNumber", requestedPage)
	pageSize := IntField(envelope, "pageSize", requestedSize)
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	totalElements := IntField(envelope, "totalElements", len(items))
	_, totalKnown := lookupInt(envelope, "totalElements")

	totalPages, ok := lookupInt(envelope, "totalPages")
	if !ok {
		totalPages = derivePages(totalElements, pageSize)
	}

	last, ok := lookupBool(envelope, "last")
	if !ok {
		last = deriveLast(pageNumber, totalPages, len(items), pageSize, totalKnown)
	}

	return Collection{
		Items: items,
		Meta: PageMeta{
			PageNumber:    pageNumber,
			PageSize:      pageSize,
			TotalElements: totalElements,
			TotalPages:    totalPages,
			First:         pageNumber == 0,
			Last:          last,
		},
	}
}
