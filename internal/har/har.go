package har

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
)

// Archive is the top-level structure of an HTTP Archive (HAR) document.
// Only the fields this tool consumes are modeled; unknown fields are
// ignored by encoding/json, which gives us the best-effort parsing the
// format's loose real-world usage requires.
type Archive struct {
	// Log is the single log object every HAR document carries.
	Log Log `json:"log"`
}

// Log holds the ordered sequence of captured request/response pairs.
type Log struct {
	// Entries are the captured exchanges in capture order.
	Entries []Entry `json:"entries"`
}

// Entry is one captured request/response pair.
type Entry struct {
	// Request describes the outgoing request. Only the URL matters here.
	Request Request `json:"request"`

	// Response describes the recorded response.
	Response Response `json:"response"`
}

// Request is the request portion of an entry.
type Request struct {
	// Method is the HTTP method. Unused by extraction but kept because
	// nearly every HAR producer emits it and it aids debugging dumps.
	Method string `json:"method,omitempty"`

	// URL is the full request URL.
	URL string `json:"url"`
}

// Response is the response portion of an entry.
type Response struct {
	// Status is the HTTP status code.
	Status int `json:"status"`

	// Content carries the (already content-decoded) response body.
	Content Content `json:"content"`
}

// Content is the body of a recorded response.
//
// Design decision: Text is a *string rather than string because the HAR
// format distinguishes "no body recorded" (field absent) from "empty body"
// (field present, empty). Extraction skips the former and writes an empty
// file for the latter.
type Content struct {
	// MimeType is the declared media type of the body.
	MimeType string `json:"mimeType,omitempty"`

	// Text is the body, either literal text or base64 depending on Encoding.
	// Nil when the capture recorded no body.
	Text *string `json:"text,omitempty"`

	// Encoding is "base64" for binary bodies; absent or empty means the
	// Text field is plain text.
	Encoding string `json:"encoding,omitempty"`
}

// EncodingBase64 is the only body encoding the HAR format defines.
const EncodingBase64 = "base64"

// HasBody reports whether the capture recorded a response body.
func (c *Content) HasBody() bool {
	return c.Text != nil
}

// Body returns the decoded response body and whether it is binary.
// For base64-encoded content the raw decoded bytes are returned with
// binary=true; otherwise the text is returned as-is.
// Calling Body on content without a body is an error.
func (c *Content) Body() (data []byte, binary bool, err error) {
	if c.Text == nil {
		return nil, false, fmt.Errorf("no body recorded")
	}
	if c.Encoding == EncodingBase64 {
		raw, err := base64.StdEncoding.DecodeString(*c.Text)
		if err != nil {
			return nil, false, fmt.Errorf("decode base64 body: %w", err)
		}
		return raw, true, nil
	}
	return []byte(*c.Text), false, nil
}

// Load reads and parses a HAR document from the given path.
// Parsing is best effort: any well-formed JSON with a log.entries array
// is accepted, and entries missing fields simply have zero values.
func Load(path string) (*Archive, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided archive path is intentional
	if err != nil {
		return nil, fmt.Errorf("read HAR file: %w", err)
	}
	return Parse(data)
}

// Parse parses a HAR document from raw JSON bytes.
func Parse(data []byte) (*Archive, error) {
	var a Archive
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("parse HAR document: %w", err)
	}
	return &a, nil
}
