package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/chiron-lab/chiron/pkg/domain/model"
	"github.com/chiron-lab/chiron/pkg/service/graph"
	"github.com/chiron-lab/chiron/pkg/service/notion"
	"github.com/chiron-lab/chiron/pkg/utils/errutil"
	"github.com/chiron-lab/chiron/pkg/utils/logging"
)

func cmdGraph() *cli.Command {
	return &cli.Command{
		Name:    "graph",
		Aliases: []string{"g"},
		Usage:   "Knowledge base tools",
		Commands: []*cli.Command{
			cmdGraphValidate(),
			cmdGraphSearch(),
			cmdGraphImport(),
		},
	}
}

func cmdGraphValidate() *cli.Command {
	var path string

	return &cli.Command{
		Name:  "validate",
		Usage: "Load a knowledge base file and check graph integrity",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "graph-path",
				Usage:       "Path to the knowledge base JSON file",
				Required:    true,
				Sources:     cli.EnvVars("CHIRON_GRAPH_PATH"),
				Destination: &path,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			kg, err := graph.LoadFile(path)
			if err != nil {
				return goerr.Wrap(err, "knowledge base validation failed")
			}

			logger := logging.Default()
			stats := kg.Stats()
			logger.Info("Knowledge base is valid",
				"path", path,
				"nodes", stats.TotalNodes,
				"relationships", stats.TotalRelationships,
			)

			// Sorted for stable output
			nodeTypes := make([]string, 0, len(stats.NodeTypes))
			for nodeType := range stats.NodeTypes {
				nodeTypes = append(nodeTypes, nodeType)
			}
			sort.Strings(nodeTypes)
			for _, nodeType := range nodeTypes {
				logger.Info("Node type", "type", nodeType, "count", stats.NodeTypes[nodeType])
			}
			return nil
		},
	}
}

func cmdGraphSearch() *cli.Command {
	var path string
	var limit int

	return &cli.Command{
		Name:      "search",
		Usage:     "Search the knowledge base from the terminal",
		ArgsUsage: "<query>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "graph-path",
				Usage:       "Path to the knowledge base JSON file",
				Required:    true,
				Sources:     cli.EnvVars("CHIRON_GRAPH_PATH"),
				Destination: &path,
			},
			&cli.IntFlag{
				Name:        "limit",
				Usage:       "Maximum number of results",
				Value:       5,
				Destination: &limit,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
			if query == "" {
				return goerr.New("query argument is required")
			}

			kg, err := graph.LoadFile(path)
			if err != nil {
				return goerr.Wrap(err, "failed to load knowledge base")
			}

			results := kg.Search(query, limit)
			if len(results) == 0 {
				fmt.Println("No matches.")
				return nil
			}

			for i, node := range results {
				promptColor.Printf("%d. %s", i+1, node.Entity)
				if node.Type != "" {
					metaColor.Printf(" (%s)", node.Type)
				}
				fmt.Println()
				if node.Summary != "" {
					fmt.Printf("   %s\n", node.Summary)
				}
			}
			return nil
		},
	}
}

func cmdGraphImport() *cli.Command {
	var token string
	var databaseID string
	var outPath string

	return &cli.Command{
		Name:  "import",
		Usage: "Import a Notion curriculum database into a knowledge base file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "notion-api-token",
				Usage:       "Notion API token",
				Required:    true,
				Sources:     cli.EnvVars("CHIRON_NOTION_API_TOKEN"),
				Destination: &token,
			},
			&cli.StringFlag{
				Name:        "notion-database-id",
				Usage:       "Notion database ID or URL holding the curriculum pages",
				Required:    true,
				Sources:     cli.EnvVars("CHIRON_NOTION_DATABASE_ID"),
				Destination: &databaseID,
			},
			&cli.StringFlag{
				Name:        "out",
				Aliases:     []string{"o"},
				Usage:       "Output path for the knowledge base JSON file",
				Value:       "knowledge.json",
				Destination: &outPath,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.Default()

			dbID, err := model.ParseNotionID(databaseID)
			if err != nil {
				return goerr.Wrap(err, "invalid notion-database-id", goerr.V("input", databaseID))
			}

			svc, err := notion.New(token)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize notion service")
			}

			var nodes []model.KnowledgeNode
			importErrors := 0
			for node, err := range svc.QueryNodes(ctx, dbID) {
				if err != nil {
					errutil.Handle(ctx, err, "failed to import Notion page")
					importErrors++
					continue
				}
				nodes = append(nodes, *node)
			}

			// Build the graph before writing so a broken import never
			// produces a file the loader would reject
			kg, err := graph.New(nodes)
			if err != nil {
				return goerr.Wrap(err, "imported knowledge base failed integrity check")
			}

			data, err := json.MarshalIndent(nodes, "", "  ")
			if err != nil {
				return goerr.Wrap(err, "failed to encode knowledge base")
			}
			if err := os.WriteFile(outPath, data, 0600); err != nil {
				return goerr.Wrap(err, "failed to write knowledge base file", goerr.V("path", outPath))
			}

			logger.Info("Knowledge base written",
				"path", outPath,
				"nodes", kg.Len(),
				"errors", importErrors,
			)

			if importErrors > 0 {
				return goerr.New("import completed with errors", goerr.V("errorCount", importErrors))
			}
			return nil
		},
	}
}
