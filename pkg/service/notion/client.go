package notion

import (
	"context"
	"iter"

	"github.com/jomei/notionapi"
	"github.com/m-mizutani/goerr/v2"

	"github.com/chiron-lab/chiron/pkg/domain/model"
)

// client implements Service interface
type client struct {
	api *notionapi.Client
}

// New creates a new Notion service with the provided API token
func New(token string) (Service, error) {
	if token == "" {
		return nil, goerr.New("Notion API token is required")
	}

	return &client{
		api: notionapi.NewClient(
			notionapi.Token(token),
			notionapi.WithRetry(3), // Retry up to 3 times on rate limit (HTTP 429)
		),
	}, nil
}

// QueryNodes streams knowledge node records built from every page of a
// curriculum database. Conversion failures are yielded per page so one
// malformed entry does not abort the import.
func (c *client) QueryNodes(ctx context.Context, dbID string) iter.Seq2[*model.KnowledgeNode, error] {
	return func(yield func(*model.KnowledgeNode, error) bool) {
		var cursor notionapi.Cursor

		for {
			resp, err := c.api.Database.Query(ctx, notionapi.DatabaseID(dbID), &notionapi.DatabaseQueryRequest{
				StartCursor: cursor,
				PageSize:    100,
			})
			if err != nil {
				yield(nil, goerr.Wrap(err, "failed to query database", goerr.V("dbID", dbID)))
				return
			}

			for _, pageObj := range resp.Results {
				blocks, err := c.fetchBlocksRecursively(ctx, pageObj.ID.String())
				if err != nil {
					if !yield(nil, err) {
						return
					}
					continue
				}

				node, err := pageToNode(&pageObj, blocks.ToText())
				if err != nil {
					if !yield(nil, err) {
						return
					}
					continue
				}

				if !yield(node, nil) {
					return
				}
			}

			if !resp.HasMore {
				break
			}
			cursor = resp.NextCursor
		}
	}
}

// fetchBlocksRecursively retrieves all body blocks of a page or block,
// including nested children
func (c *client) fetchBlocksRecursively(ctx context.Context, blockID string) (Blocks, error) {
	var blocks Blocks
	var cursor notionapi.Cursor

	for {
		resp, err := c.api.Block.GetChildren(ctx, notionapi.BlockID(blockID), &notionapi.Pagination{
			StartCursor: cursor,
			PageSize:    100,
		})
		if err != nil {
			return nil, goerr.Wrap(err, "failed to get block children", goerr.V("blockID", blockID))
		}

		for _, blockObj := range resp.Results {
			block, err := c.convertBlock(ctx, blockObj)
			if err != nil {
				return nil, err
			}
			blocks = append(blocks, block)
		}

		if !resp.HasMore {
			break
		}
		cursor = notionapi.Cursor(resp.NextCursor)
	}

	return blocks, nil
}

// convertBlock extracts the text content of one block
func (c *client) convertBlock(ctx context.Context, blockObj notionapi.Block) (Block, error) {
	block := Block{Type: string(blockObj.GetType())}

	switch b := blockObj.(type) {
	case *notionapi.ParagraphBlock:
		block.Text = plainText(b.Paragraph.RichText)
	case *notionapi.Heading1Block:
		block.Text = plainText(b.Heading1.RichText)
	case *notionapi.Heading2Block:
		block.Text = plainText(b.Heading2.RichText)
	case *notionapi.Heading3Block:
		block.Text = plainText(b.Heading3.RichText)
	case *notionapi.BulletedListItemBlock:
		block.Text = plainText(b.BulletedListItem.RichText)
	case *notionapi.NumberedListItemBlock:
		block.Text = plainText(b.NumberedListItem.RichText)
	case *notionapi.CodeBlock:
		block.Text = plainText(b.Code.RichText)
		block.Language = string(b.Code.Language)
	case *notionapi.QuoteBlock:
		block.Text = plainText(b.Quote.RichText)
	case *notionapi.CalloutBlock:
		block.Text = plainText(b.Callout.RichText)
	case *notionapi.ToggleBlock:
		block.Text = plainText(b.Toggle.RichText)
	case *notionapi.ToDoBlock:
		block.Text = plainText(b.ToDo.RichText)
		block.Checked = b.ToDo.Checked
	}

	if blockObj.GetHasChildren() {
		children, err := c.fetchBlocksRecursively(ctx, blockObj.GetID().String())
		if err != nil {
			return block, err
		}
		block.Children = children
	}

	return block, nil
}
