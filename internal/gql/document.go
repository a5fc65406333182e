package gql

// Source holds the raw text a document was parsed from.
type Source struct {
	Body string `json:"body"`
}

// Location points a parsed document back at its source text.
type Location struct {
	Source Source `json:"source"`
}

// ParsedDocument is the pre-parsed form of an operation as produced by a
// GraphQL document loader. Only the pre-computed source text is consumed
// here; the AST itself is never inspected.
type ParsedDocument struct {
	Loc *Location `json:"loc"`
}

type documentKind int

const (
	documentRaw documentKind = iota
	documentParsed
)

// Document is an operation supplied either as a raw query string or as a
// pre-parsed document. The two forms are explicit variants rather than a
// runtime type switch over an any value.
type Document struct {
	kind   documentKind
	raw    string
	parsed ParsedDocument
}

// Raw wraps a query string, the empty string included, as a Document.
func Raw(query string) Document {
	return Document{kind: documentRaw, raw: query}
}

// Parsed wraps a pre-parsed document.
func Parsed(doc ParsedDocument) Document {
	return Document{kind: documentParsed, parsed: doc}
}

// Source extracts the operation text. Raw documents pass through unchanged.
// Parsed documents resolve to their pre-computed source text; a parsed
// document without one resolves to the empty string, and the caller's
// mistake surfaces downstream rather than here.
func (d Document) Source() string {
	switch d.kind {
	case documentParsed:
		if d.parsed.Loc == nil {
			return ""
		}
		return d.parsed.Loc.Source.Body
	default:
		return d.raw
	}
}
