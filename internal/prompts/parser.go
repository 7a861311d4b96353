package prompts

import (
	"errors"
	"regexp"
	"strings"

	"github.com/avvvet/coffeebuddy/internal/models"
	"github.com/dlclark/regexp2"
)

// ErrResponseNotFound means the model text has no <response> block.
// It is a content problem and is not retried.
var ErrResponseNotFound = errors.New("prompts: <response> block not found")

// ParsedResponse is the structured view of one model reply.
type ParsedResponse struct {
	// Content is the body of the <response> block, tags included. It is what
	// goes back into the conversation history.
	Content string
	// Reply is Content with single-line tag pairs removed, for the user.
	Reply string
	Slots models.Slots
}

type ResponseParser interface {
	Parse(raw string) (*ParsedResponse, error)
}

// TagParser implements the <response>/<slot> tag contract.
type TagParser struct{}

var (
	responseBlock = regexp.MustCompile(`(?s)<response>(.*?)</response>`)
	tagPair       = regexp.MustCompile(`<[^>]+>.*?</[^>]+>`)
	// RE2 has no back-references
	slotTag = regexp2.MustCompile(`<(\w+)>([\s\S]*?)</\1>`, regexp2.ECMAScript)
)

func (TagParser) Parse(raw string) (*ParsedResponse, error) {
	m := responseBlock.FindStringSubmatch(raw)
	if m == nil {
		return nil, ErrResponseNotFound
	}
	content := m[1]

	return &ParsedResponse{
		Content: content,
		Reply:   CleanReply(content),
		Slots:   ExtractTags(content),
	}, nil
}

// CleanReply strips every tag pair that opens and closes on the same line.
func CleanReply(content string) string {
	return strings.TrimSpace(tagPair.ReplaceAllString(content, ""))
}

// ExtractTags collects allow-listed <tag>value</tag> pairs from s. Matches
// do not overlap, so tags nested inside a matched pair are not seen; a
// repeated tag keeps its last value.
func ExtractTags(s string) models.Slots {
	slots := models.Slots{}

	m, err := slotTag.FindStringMatch(s)
	for m != nil && err == nil {
		name := m.GroupByNumber(1).String()
		if models.IsSlot(name) {
			slots[name] = strings.TrimSpace(m.GroupByNumber(2).String())
		}
		m, err = slotTag.FindNextMatch(m)
	}

	return slots
}
