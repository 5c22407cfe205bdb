package format

import (
	"regexp"
	"sort"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// ParseResult contains plain text and message entities
type ParseResult struct {
	Text     string
	Entities []tgbotapi.MessageEntity
}

var (
	headerRe      = regexp.MustCompile(`(?m)^(#{1,6})\s+(.+?)$`)
	boldRe        = regexp.MustCompile(`\*\*(.+?)\*\*|__(.+?)__`)
	codeRe        = regexp.MustCompile("`([^`]+?)`")
	singleStarRe  = regexp.MustCompile(`(?:^|[^*])\*([^*\n]+?)\*(?:[^*]|$)`)
	singleUnderRe = regexp.MustCompile(`(?:^|[^_\w])_([^_\n]+?)_(?:[^_\w]|$)`)
)

// UTF16Len calculates the UTF-16 length of a string.
// Telegram uses UTF-16 code units for entity offsets and lengths.
func UTF16Len(s string) int {
	length := 0
	for _, b := range []byte(s) {
		if (b & 0xc0) != 0x80 {
			if b >= 0xf0 {
				length += 2 // surrogate pair
			} else {
				length++
			}
		}
	}
	return length
}

// ParseMarkdown converts the small Markdown dialect used by the message builders
// into plain text plus Telegram entities:
//   - **bold** or __bold__
//   - *italic* or _italic_
//   - `code`
//   - # Header (rendered bold)
//
// Event names such as night_craving are left alone because the underscore is
// surrounded by word characters.
func ParseMarkdown(text string) ParseResult {
	p := &entityParser{text: headerRe.ReplaceAllString(text, "**$2**")}

	p.unwrap(boldRe, "bold")
	p.unwrap(codeRe, "code")
	p.italic(singleStarRe, "*")
	p.italic(singleUnderRe, "_")

	sort.SliceStable(p.entities, func(i, j int) bool { return p.entities[i].Offset < p.entities[j].Offset })

	return ParseResult{
		Text:     strings.TrimRight(p.text, " \n"),
		Entities: p.entities,
	}
}

// StripMarkdown returns the text of ParseMarkdown without entities, for the
// plain-text fallback.
func StripMarkdown(text string) string {
	return ParseMarkdown(text).Text
}

type entityParser struct {
	text     string
	entities []tgbotapi.MessageEntity
}

// strip removes the markers around text[innerStart:innerStart+len(inner)] and
// records the entity, shifting entities already recorded past the markers.
func (p *entityParser) strip(kind string, start, end, innerStart int, inner string) {
	open := innerStart - start
	closing := end - innerStart - len(inner)
	startOff := UTF16Len(p.text[:start])
	innerEnd := UTF16Len(p.text[:innerStart+len(inner)])

	for i := range p.entities {
		e := &p.entities[i]
		switch {
		case e.Offset >= innerEnd:
			e.Offset -= open + closing
		case e.Offset > startOff:
			e.Offset -= open
		case e.Offset+e.Length > startOff:
			e.Length -= open + closing
		}
	}

	p.entities = append(p.entities, tgbotapi.MessageEntity{
		Type:   kind,
		Offset: startOff,
		Length: UTF16Len(inner),
	})
	p.text = p.text[:start] + inner + p.text[end:]
}

// unwrap removes the markers of every match of re, keeping the first non-empty
// submatch as the entity text.
func (p *entityParser) unwrap(re *regexp.Regexp, kind string) {
	for {
		loc := re.FindStringSubmatchIndex(p.text)
		if loc == nil {
			return
		}
		for i := 2; i+1 < len(loc); i += 2 {
			if loc[i] != -1 {
				p.strip(kind, loc[0], loc[1], loc[i], p.text[loc[i]:loc[i+1]])
				break
			}
		}
	}
}

func (p *entityParser) italic(re *regexp.Regexp, marker string) {
	searchStart := 0
	for searchStart < len(p.text) {
		loc := re.FindStringSubmatchIndex(p.text[searchStart:])
		if loc == nil {
			return
		}
		inner := p.text[searchStart+loc[2] : searchStart+loc[3]]

		// The pattern consumes a neighbour on each side, so find the markers again.
		wrapped := marker + inner + marker
		at := strings.Index(p.text[searchStart:], wrapped)
		if at < 0 {
			searchStart += loc[1]
			continue
		}
		start := searchStart + at

		p.strip("italic", start, start+len(wrapped), start+len(marker), inner)
		searchStart = start + len(inner)
	}
}
