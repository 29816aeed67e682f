package config

import (
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/chiron-lab/chiron/pkg/service/graph"
	"github.com/chiron-lab/chiron/pkg/utils/logging"
)

// Graph holds CLI flags for the knowledge graph source
type Graph struct {
	path string
}

// Flags returns CLI flags for knowledge graph configuration
func (g *Graph) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "graph-path",
			Usage:       "Path to the knowledge base JSON file (leave empty to run without a knowledge graph)",
			Sources:     cli.EnvVars("CHIRON_GRAPH_PATH"),
			Destination: &g.path,
		},
	}
}

// LogAttrs returns log attributes for the graph configuration
func (g *Graph) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String("path", g.path),
	}
}

// Path returns the configured knowledge base path
func (g *Graph) Path() string {
	return g.path
}

// Configure loads the knowledge graph from the configured path.
// Returns nil if no path is configured (entity matching is disabled).
func (g *Graph) Configure() (*graph.Graph, error) {
	if g.path == "" {
		logging.Default().Info("Knowledge graph is not configured, entity matching is disabled")
		return nil, nil
	}

	kg, err := graph.LoadFile(g.path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load knowledge graph", goerr.V("path", g.path))
	}

	stats := kg.Stats()
	logging.Default().Info("Loaded knowledge graph",
		"path", g.path,
		"nodes", stats.TotalNodes,
		"relationships", stats.TotalRelationships,
	)
	return kg, nil
}
