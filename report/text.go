package report

import "strings"

type BlockKind int

const (
	BlockParagraph BlockKind = iota
	BlockTitle
	BlockHeading
)

// Block is one rendered unit of a text report.
type Block struct {
	Kind  BlockKind
	Text  string
	Spans []Span
}

func (b Block) IsTitle() bool   { return b.Kind == BlockTitle }
func (b Block) IsHeading() bool { return b.Kind == BlockHeading }

// Span is a run of paragraph text, optionally emphasized.
type Span struct {
	Text   string
	Strong bool
}

// ParseText splits a text report into renderable blocks. The format is
// line-oriented: "Subject:" prefixes the title, "###" prefixes a section
// header, **double asterisks** emphasize runs inside paragraphs, and blank
// lines are skipped. This is not markdown.
func ParseText(text string) []Block {
	var blocks []Block
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}

		switch {
		case strings.HasPrefix(line, "Subject:"):
			blocks = append(blocks, Block{
				Kind: BlockTitle,
				Text: strings.TrimSpace(strings.TrimPrefix(line, "Subject:")),
			})
		case strings.HasPrefix(line, "###"):
			heading := strings.TrimPrefix(line, "###")
			heading = strings.ReplaceAll(heading, "**", "")
			blocks = append(blocks, Block{
				Kind: BlockHeading,
				Text: strings.TrimSpace(heading),
			})
		default:
			blocks = append(blocks, Block{
				Kind:  BlockParagraph,
				Text:  line,
				Spans: parseSpans(line),
			})
		}
	}
	return blocks
}

func parseSpans(line string) []Span {
	var spans []Span
	for i, part := range strings.Split(line, "**") {
		if part == "" {
			continue
		}
		spans = append(spans, Span{Text: part, Strong: i%2 == 1})
	}
	return spans
}
