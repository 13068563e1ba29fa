package main

import (
	"strings"
	"testing"

	"github.com/rcowham/filemesh/id"
	"github.com/rcowham/filemesh/schema"
	"github.com/stretchr/testify/assert"
)

func nodeID(instance, index uint64) id.NodeID {
	return id.NodeID{Instance: id.Counter(instance), Index: id.UUID(index)}
}

func TestBuildGraphEmitsOneEdgePerAncestryRow(t *testing.T) {
	edges := []schema.AncestryEdge{
		{New: nodeID(0, 2), Old: nodeID(0, 1)},
		{New: nodeID(0, 3), Old: nodeID(0, 2)},
	}
	g := buildGraph(edges)
	out := g.String()

	assert.Contains(t, out, `"0:1"`)
	assert.Contains(t, out, `"0:2"`)
	assert.Contains(t, out, `"0:3"`)
	assert.Equal(t, 2, strings.Count(out, "derives"))
}

func TestBuildGraphDedupesSharedNodes(t *testing.T) {
	edges := []schema.AncestryEdge{
		{New: nodeID(0, 2), Old: nodeID(0, 1)},
		{New: nodeID(0, 3), Old: nodeID(0, 1)},
	}
	g := buildGraph(edges)
	out := g.String()

	assert.Equal(t, 1, strings.Count(out, `"0:1"`))
}

func TestBuildGraphOnEmptyAncestryIsEmptyGraph(t *testing.T) {
	g := buildGraph(nil)
	assert.NotContains(t, g.String(), "derives")
}
