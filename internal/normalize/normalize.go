// Package normalize turns raw thread comments into message-board messages.
//
// A comment body is either a serialized Record written by this application or
// free text posted directly on the thread. ParseBody tells the two apart
// without relying on error-driven control flow; Normalize builds the Message
// and decides whether it is kept.
package normalize

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"portfolio-messageboard/backend/internal/github"
	"portfolio-messageboard/backend/internal/models"
	"portfolio-messageboard/backend/pkg/logger"
	"portfolio-messageboard/backend/pkg/metrics"
)

// Kind tags a ParseResult
type Kind int

const (
	// KindPlainText means the body is not a serialized record
	KindPlainText Kind = iota
	// KindParsed means the body decoded to a JSON object
	KindParsed
)

// ParseResult is Parsed(Record) | PlainText(string)
type ParseResult struct {
	Kind Kind
	// Record is set for KindParsed. ContentOK is false when the object had no
	// string "content" field.
	Record    models.Record
	ContentOK bool
	// Text is set for KindPlainText
	Text string
}

// Path records which branch a raw record went through
type Path string

const (
	PathParsed    Path = "parsed"
	PathPlainText Path = "plaintext"
	PathDiscarded Path = "discarded"
)

// ParseBody classifies a comment body
func ParseBody(body string) ParseResult {
	trimmed := strings.TrimSpace(body)
	if !strings.HasPrefix(trimmed, "{") {
		return ParseResult{Kind: KindPlainText, Text: body}
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(trimmed), &fields); err != nil || fields == nil {
		return ParseResult{Kind: KindPlainText, Text: body}
	}

	content, contentOK := fields["content"].(string)
	rec := models.Record{
		Name:    firstString(fields, "name", "author_name"),
		Email:   firstString(fields, "email", "author_email"),
		Content: content,
	}
	if v, ok := fields["isPublic"].(bool); ok {
		rec.IsPublic = v
	} else if v, ok := fields["is_public"].(bool); ok {
		rec.IsPublic = v
	}

	return ParseResult{Kind: KindParsed, Record: rec, ContentOK: contentOK}
}

// EncodeBody serializes a record into the comment body format ParseBody understands
func EncodeBody(rec models.Record) (string, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Normalizer converts raw records and reports the path taken for each one
type Normalizer struct {
	log *logger.Logger
}

// New creates a Normalizer
func New(log *logger.Logger) *Normalizer {
	if log == nil {
		log = logger.Nop()
	}
	return &Normalizer{log: log.WithComponent("normalize")}
}

// Normalize converts one raw record. Remote messages are always public: the
// thread has no privacy model, so any embedded flag is ignored.
func (n *Normalizer) Normalize(raw github.RawRecord) (models.Message, Path) {
	msg := models.Message{
		ID:        raw.ID,
		CreatedAt: raw.CreatedAt,
		IsPublic:  true,
	}

	path := PathParsed
	parsed := ParseBody(raw.Body)
	switch parsed.Kind {
	case KindParsed:
		msg.Name = parsed.Record.Name
		msg.Email = parsed.Record.Email
		if parsed.ContentOK {
			msg.Content = parsed.Record.Content
		}
	default:
		path = PathPlainText
		msg.Name = raw.Author
		msg.Content = parsed.Text
	}

	if msg.Name == "" {
		msg.Name = models.AnonymousAuthor
	}

	if strings.TrimSpace(msg.Content) == "" {
		path = PathDiscarded
	}
	return msg, path
}

// NormalizeAll converts every raw record, drops discarded ones and returns the
// rest newest first. It never fails: a bad record is recovered or dropped.
func (n *Normalizer) NormalizeAll(raws []github.RawRecord) []models.Message {
	out := make([]models.Message, 0, len(raws))
	for _, raw := range raws {
		msg, path := n.Normalize(raw)
		metrics.NormalizedRecords.WithLabelValues(string(path)).Inc()

		switch path {
		case PathDiscarded:
			n.log.Debug("Discarded comment without content", "id", raw.ID)
			continue
		case PathPlainText:
			n.log.Debug("Comment body is plain text", "id", raw.ID, "author", raw.Author)
		}
		out = append(out, msg)
	}

	SortByRecency(out)
	return out
}

// SortByRecency orders messages newest first. Unparseable timestamps sort after
// every parseable one, in descending string order. Equal timestamps keep their order.
func SortByRecency(msgs []models.Message) {
	keys := make([]time.Time, len(msgs))
	valid := make([]bool, len(msgs))
	for i, m := range msgs {
		keys[i], valid[i] = parseTimestamp(m.CreatedAt)
	}

	idx := make([]int, len(msgs))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		i, j := idx[a], idx[b]
		switch {
		case valid[i] && valid[j]:
			return keys[i].After(keys[j])
		case valid[i] != valid[j]:
			return valid[i]
		default:
			return msgs[i].CreatedAt > msgs[j].CreatedAt
		}
	})

	sorted := make([]models.Message, len(msgs))
	for pos, i := range idx {
		sorted[pos] = msgs[i]
	}
	copy(msgs, sorted)
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func firstString(fields map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := fields[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
