package notion

import (
	"strings"

	"github.com/jomei/notionapi"
	"github.com/m-mizutani/goerr/v2"

	"github.com/chiron-lab/chiron/pkg/domain/model"
	"github.com/chiron-lab/chiron/pkg/domain/types"
)

// Database column conventions for curriculum entries. The title column is
// the entity name and the page body is the description. Columns are matched
// case-insensitively; any other multi-select column becomes a node property
// keyed by its lowercased name.
const (
	columnSlug      = "slug"
	columnType      = "type"
	columnSummary   = "summary"
	columnAliases   = "aliases"
	columnRelations = "relations"
)

// pageToNode converts one database page into a knowledge node record
func pageToNode(page *notionapi.Page, description string) (*model.KnowledgeNode, error) {
	node := &model.KnowledgeNode{
		Description: description,
	}

	for key, prop := range page.Properties {
		name := strings.ToLower(strings.TrimSpace(key))

		switch p := prop.(type) {
		case *notionapi.TitleProperty:
			node.Entity = plainText(p.Title)

		case *notionapi.RichTextProperty:
			text := plainText(p.RichText)
			switch name {
			case columnSlug:
				node.ID = types.NodeID(text)
			case columnSummary:
				node.Summary = text
			case columnRelations:
				rels, err := parseRelations(text)
				if err != nil {
					return nil, goerr.Wrap(err, "invalid relations column", goerr.V("pageID", page.ID))
				}
				node.Relationships = rels
			}

		case *notionapi.SelectProperty:
			if name == columnType {
				node.Type = p.Select.Name
			}

		case *notionapi.MultiSelectProperty:
			values := optionNames(p.MultiSelect)
			if len(values) == 0 {
				continue
			}
			if name == columnAliases {
				node.Aliases = values
			} else {
				if node.Properties == nil {
					node.Properties = make(map[string][]string)
				}
				node.Properties[name] = values
			}
		}
	}

	if node.ID == "" {
		node.ID = types.NodeID(slugify(node.Entity))
	}

	if err := node.Validate(); err != nil {
		return nil, goerr.Wrap(err, "page is not a valid node", goerr.V("pageID", page.ID))
	}
	return node, nil
}

// parseRelations reads one "type: target-slug" entry per line
func parseRelations(text string) ([]model.Relationship, error) {
	var rels []model.Relationship
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		relType, target, ok := strings.Cut(line, ":")
		relType = strings.TrimSpace(relType)
		target = strings.TrimSpace(target)
		if !ok || relType == "" || target == "" {
			return nil, goerr.New(`malformed relation entry, want "type: target-slug"`, goerr.V("line", line))
		}

		rels = append(rels, model.Relationship{
			TargetID: types.NodeID(target),
			Type:     types.RelationType(relType),
		})
	}
	return rels, nil
}

// slugify turns an entity name into a stable node ID
func slugify(s string) string {
	var sb strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				sb.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimRight(sb.String(), "-")
}

func plainText(richText []notionapi.RichText) string {
	var sb strings.Builder
	for _, rt := range richText {
		sb.WriteString(rt.PlainText)
	}
	return strings.TrimSpace(sb.String())
}

func optionNames(options []notionapi.Option) []string {
	names := make([]string, 0, len(options))
	for _, o := range options {
		if o.Name != "" {
			names = append(names, o.Name)
		}
	}
	return names
}
