package notion

// Page is the subset of a Notion page object the sink reads back.
type Page struct {
	Object     string         `json:"object"`
	ID         string         `json:"id"`
	URL        string         `json:"url,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
}

// QueryRequest is the body of a database query.
type QueryRequest struct {
	Filter   *Filter `json:"filter,omitempty"`
	PageSize int     `json:"page_size,omitempty"`
}

// Filter is a single property filter.
type Filter struct {
	Property string     `json:"property"`
	URL      *URLFilter `json:"url,omitempty"`
}

// URLFilter matches url properties.
type URLFilter struct {
	Equals string `json:"equals"`
}

// QueryResponse is a page of query results.
type QueryResponse struct {
	Object     string `json:"object"`
	Results    []Page `json:"results"`
	HasMore    bool   `json:"has_more"`
	NextCursor string `json:"next_cursor,omitempty"`
}

// Parent points a new page at its database.
type Parent struct {
	DatabaseID string `json:"database_id"`
}

// CreatePageRequest is the body of POST /pages.
type CreatePageRequest struct {
	Parent     Parent     `json:"parent"`
	Properties Properties `json:"properties"`
}

// UpdatePageRequest is the body of PATCH /pages/{id}.
type UpdatePageRequest struct {
	Properties Properties `json:"properties"`
}

// Properties maps property names to property values.
type Properties map[string]PropertyValue

// PropertyValue holds exactly one of the supported property kinds.
type PropertyValue struct {
	Title    []RichText `json:"title,omitempty"`
	RichText []RichText `json:"rich_text,omitempty"`
	URL      *string    `json:"url,omitempty"`
}

// RichText is a plain text rich text item.
type RichText struct {
	Text Text `json:"text"`
}

// Text carries the content of a rich text item.
type Text struct {
	Content string `json:"content"`
}

// TitleValue builds a title property.
func TitleValue(s string) PropertyValue {
	return PropertyValue{Title: []RichText{{Text: Text{Content: s}}}}
}

// RichTextValue builds a rich_text property.
func RichTextValue(s string) PropertyValue {
	return PropertyValue{RichText: []RichText{{Text: Text{Content: s}}}}
}

// URLValue builds a url property.
func URLValue(s string) PropertyValue {
	return PropertyValue{URL: &s}
}
