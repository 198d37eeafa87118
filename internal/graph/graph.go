// Package graph renders the static deployment topology as Graphviz DOT or
// Mermaid.
package graph

import (
	"io"
	"strings"

	"github.com/emicklei/dot"

	"github.com/remote-swe-user/dify-self-hosted-on-aws/dify"
)

// Format specifies the output format for the graph.
type Format string

const (
	// FormatDOT outputs Graphviz DOT format.
	FormatDOT Format = "dot"
	// FormatMermaid outputs Mermaid format for GitHub/markdown rendering.
	FormatMermaid Format = "mermaid"
)

// Generator renders deployment topologies.
type Generator struct {
	// Format specifies the output format (dot or mermaid). Defaults to dot.
	Format Format
}

// Generate renders the topology and writes it to w.
func (g *Generator) Generate(topo dify.Topology, w io.Writer) error {
	graph := g.buildGraph(topo)

	format := g.Format
	if format == "" {
		format = FormatDOT
	}

	var output string
	if format == FormatMermaid {
		output = dot.MermaidGraph(graph, dot.MermaidTopToBottom)
	} else {
		output = graph.String()
	}

	_, err := w.Write([]byte(output))
	return err
}

// GenerateString is a convenience method that returns the graph as a string.
func (g *Generator) GenerateString(topo dify.Topology) (string, error) {
	var sb strings.Builder
	if err := g.Generate(topo, &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// buildGraph creates the dot.Graph structure: one cluster per service,
// dashed ellipses for collaborators.
func (g *Generator) buildGraph(topo dify.Topology) *dot.Graph {
	graph := dot.NewGraph(dot.Directed)
	graph.Attr("rankdir", "TB")

	graph.NodeInitializer(func(n dot.Node) {
		n.Attr("shape", "box")
		n.Attr("fontname", "Arial")
	})
	graph.EdgeInitializer(func(e dot.Edge) {
		e.Attr("fontname", "Arial")
		e.Attr("fontsize", "10")
	})

	clusters := map[string]*dot.Graph{}
	for _, n := range topo.Nodes {
		if n.Kind == dify.KindService {
			sub := graph.Subgraph(n.Name, dot.ClusterOption{})
			sub.Attr("label", n.Name)
			clusters[n.Name] = sub
		}
	}

	nodes := map[string]dot.Node{}
	for _, n := range topo.Nodes {
		switch n.Kind {
		case dify.KindContainer:
			owner, ok := clusters[n.Service]
			if !ok {
				owner = graph
			}
			nodes[n.Name] = owner.Node(n.Name)
		case dify.KindCollaborator:
			node := graph.Node(n.Name)
			node.Attr("shape", "ellipse")
			node.Attr("style", "dashed")
			nodes[n.Name] = node
		}
	}

	for _, e := range topo.Edges {
		from, okFrom := nodes[e.From]
		to, okTo := nodes[e.To]
		if !okFrom || !okTo {
			continue
		}
		edge := graph.Edge(from, to)
		if e.Label != "" {
			edge.Label(e.Label)
		}
	}

	return graph
}
