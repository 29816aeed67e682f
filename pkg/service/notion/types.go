package notion

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"github.com/chiron-lab/chiron/pkg/domain/model"
)

// Service imports curriculum entries from a Notion database
type Service interface {
	// QueryNodes retrieves every page of the database and yields one
	// knowledge node record per page
	QueryNodes(ctx context.Context, dbID string) iter.Seq2[*model.KnowledgeNode, error]
}

// Block is one content block extracted from a page body
type Block struct {
	Type     string
	Text     string
	Language string
	Checked  bool
	Children Blocks
}

// Blocks is a slice of Block with helper methods
type Blocks []Block

// ToText renders blocks as markdown-flavored plain text usable as a node
// description
func (b Blocks) ToText() string {
	var sb strings.Builder
	b.writeText(&sb, 0)
	return strings.TrimRight(sb.String(), "\n")
}

func (b Blocks) writeText(sb *strings.Builder, indent int) {
	prefix := strings.Repeat("  ", indent)
	number := 0

	for _, block := range b {
		if block.Type != "numbered_list_item" {
			number = 0
		}

		switch block.Type {
		case "paragraph":
			if block.Text != "" {
				sb.WriteString(prefix + block.Text + "\n")
			}

		case "heading_1":
			sb.WriteString(prefix + "# " + block.Text + "\n")

		case "heading_2":
			sb.WriteString(prefix + "## " + block.Text + "\n")

		case "heading_3":
			sb.WriteString(prefix + "### " + block.Text + "\n")

		case "bulleted_list_item":
			sb.WriteString(prefix + "- " + block.Text + "\n")

		case "numbered_list_item":
			number++
			fmt.Fprintf(sb, "%s%d. %s\n", prefix, number, block.Text)

		case "quote", "callout":
			sb.WriteString(prefix + "> " + block.Text + "\n")

		case "code":
			sb.WriteString(prefix + "```" + block.Language + "\n")
			sb.WriteString(prefix + block.Text + "\n")
			sb.WriteString(prefix + "```\n")

		case "to_do":
			mark := "- [ ] "
			if block.Checked {
				mark = "- [x] "
			}
			sb.WriteString(prefix + mark + block.Text + "\n")

		case "divider":
			sb.WriteString(prefix + "---\n")

		default:
			// Unsupported types keep whatever text was extracted
			if block.Text != "" {
				sb.WriteString(prefix + block.Text + "\n")
			}
		}

		if len(block.Children) > 0 {
			block.Children.writeText(sb, indent+1)
		}
	}
}
