// Copyright (c) 2026 Bradley Kovaluk <bkovaluk@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package policy

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/awsadm/awsadm/internal/log"
)

// Document is a parsed policy document. The structure is owned by AWS and
// treated as opaque; we only ever serialize, substitute, and re-parse it.
type Document map[string]interface{}

// Replacement is one ordered literal substitution applied to a serialized
// document. Later replacements can act on text introduced by earlier ones,
// so callers should choose non-overlapping keys.
type Replacement struct {
	Old string
	New string
}

// Tag is a Key=Value pair destined for a resource tagging API.
type Tag struct {
	Key   string
	Value string
}

// Parse decodes raw JSON into a Document.
func Parse(raw []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse policy document: %w", err)
	}
	return doc, nil
}

// DecodeDocument parses a policy document as returned by the IAM API, which
// URL-encodes it per RFC 3986.
func DecodeDocument(encoded string) (Document, error) {
	unescaped, err := url.QueryUnescape(encoded)
	if err != nil {
		return nil, fmt.Errorf("unescape policy document: %w", err)
	}
	return Parse([]byte(unescaped))
}

// Marshal serializes a Document compactly, the form sent to AWS APIs and
// the form whose byte length counts against IAM size quotas.
func (d Document) Marshal() (string, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("marshal policy document: %w", err)
	}
	return string(raw), nil
}

// Substitute serializes the document, applies each literal replacement in
// order, and re-parses the result. An empty replacement list is the
// identity. A result that no longer parses aborts with an error rather than
// being partially applied.
//
// Replacements are plain substring rewrites with no structural awareness: a
// key that also appears inside an unrelated ARN or string will be rewritten
// there too, and a key that collides with JSON syntax corrupts the document
// (surfaced as the re-parse error). Callers are warned once per run when
// replacements are in play.
func Substitute(doc Document, replacements []Replacement) (Document, error) {
	if len(replacements) == 0 {
		return doc, nil
	}

	serialized, err := doc.Marshal()
	if err != nil {
		return nil, err
	}

	for _, r := range replacements {
		log.Debugf("replacing: old=%s, new=%s", r.Old, r.New)
		serialized = strings.ReplaceAll(serialized, r.Old, r.New)
	}

	result, err := Parse([]byte(serialized))
	if err != nil {
		return nil, fmt.Errorf("document invalid after substitution (check replacement keys): %w", err)
	}
	return result, nil
}

// ParseReplacements parses a comma-separated old=new list into ordered
// replacements. A pair without '=' is an error so that malformed input is
// rejected before any API call.
func ParseReplacements(arg string) ([]Replacement, error) {
	if arg == "" {
		return nil, nil
	}

	pairs := strings.Split(arg, ",")
	replacements := make([]Replacement, 0, len(pairs))
	for _, pair := range pairs {
		old, new, found := strings.Cut(pair, "=")
		if !found || old == "" {
			return nil, fmt.Errorf("invalid replacement pair %q, expected old=new", pair)
		}
		replacements = append(replacements, Replacement{Old: old, New: new})
	}
	return replacements, nil
}

// ParseTags parses Key=Value tag strings. A malformed tag is skipped with a
// warning rather than failing the run.
func ParseTags(tagArgs []string) []Tag {
	tags := make([]Tag, 0, len(tagArgs))
	for _, arg := range tagArgs {
		key, value, found := strings.Cut(arg, "=")
		if !found || strings.TrimSpace(key) == "" {
			log.Warnf("invalid tag %q, expected Key=Value", arg)
			continue
		}
		tags = append(tags, Tag{Key: strings.TrimSpace(key), Value: strings.TrimSpace(value)})
	}
	return tags
}
