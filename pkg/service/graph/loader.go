package graph

import (
	"encoding/json"
	"io"
	"os"

	"github.com/m-mizutani/goerr/v2"

	"github.com/chiron-lab/chiron/pkg/domain/model"
)

// LoadFile reads a knowledge base file and builds the graph. The file holds
// a single JSON array of node records. Any integrity violation fails the
// whole load; a partially loaded graph is never returned.
func LoadFile(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read knowledge base file", goerr.V("path", path))
	}

	g, err := Parse(data)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load knowledge base file", goerr.V("path", path))
	}
	return g, nil
}

// Load builds the graph from an already opened knowledge base stream
func Load(r io.Reader) (*Graph, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read knowledge base stream")
	}
	return Parse(data)
}

// Parse decodes a JSON array of node records and builds the graph
func Parse(data []byte) (*Graph, error) {
	var nodes []model.KnowledgeNode
	if err := json.Unmarshal(data, &nodes); err != nil {
		return nil, goerr.Wrap(err, "failed to parse knowledge base JSON")
	}
	return New(nodes)
}
