package dify

import "fmt"

// NodeKind classifies topology nodes for rendering.
type NodeKind string

const (
	KindService      NodeKind = "service"
	KindContainer    NodeKind = "container"
	KindCollaborator NodeKind = "collaborator"
)

// Node is one element of the deployment topology.
type Node struct {
	Name string
	Kind NodeKind
	// Service holds the owning service name for container nodes.
	Service string
}

// Edge is one directed relationship between nodes.
type Edge struct {
	From  string
	To    string
	Label string
}

// Topology is the static deployment shape, independent of any provider
// handles. The graph command renders it.
type Topology struct {
	Nodes []Node
	Edges []Edge
}

// DeploymentTopology describes the declared deployment: both services,
// their containers, and the collaborator constructs they reach.
func DeploymentTopology() Topology {
	apiContainers := []string{
		ContainerServing,
		ContainerWorker,
		ContainerSandboxInitializer,
		ContainerSandboxExecutor,
		ContainerPluginDaemon,
		ContainerKnowledgeBase,
	}
	collaborators := []string{"alb", "database", "cache", "storage"}

	// Service node ids carry a -service suffix so the console service and
	// the console container stay distinct nodes.
	t := Topology{
		Nodes: []Node{
			{Name: "api-service", Kind: KindService},
			{Name: "console-service", Kind: KindService},
		},
	}
	for _, c := range apiContainers {
		t.Nodes = append(t.Nodes, Node{Name: c, Kind: KindContainer, Service: "api-service"})
	}
	t.Nodes = append(t.Nodes, Node{Name: ContainerConsole, Kind: KindContainer, Service: "console-service"})
	for _, c := range collaborators {
		t.Nodes = append(t.Nodes, Node{Name: c, Kind: KindCollaborator})
	}

	t.Edges = []Edge{
		{From: "alb", To: ContainerServing, Label: fmt.Sprintf(":%d", ServingPort)},
		{From: ContainerServing, To: ContainerSandboxExecutor, Label: fmt.Sprintf("localhost:%d", SandboxPort)},
		{From: ContainerServing, To: ContainerPluginDaemon, Label: fmt.Sprintf("localhost:%d", PluginDaemonPort)},
		{From: ContainerServing, To: ContainerKnowledgeBase, Label: fmt.Sprintf("localhost:%d", KnowledgeBasePort)},
		{From: ContainerSandboxExecutor, To: ContainerSandboxInitializer, Label: "after COMPLETE"},
		{From: ContainerServing, To: "database", Label: "sql"},
		{From: ContainerWorker, To: "database", Label: "sql"},
		{From: ContainerPluginDaemon, To: "database", Label: "sql"},
		{From: ContainerServing, To: "cache", Label: "redis"},
		{From: ContainerWorker, To: "cache", Label: "celery"},
		{From: ContainerServing, To: "storage", Label: "s3"},
		{From: ContainerPluginDaemon, To: "storage", Label: "s3"},
		{From: ContainerConsole, To: "database", Label: "sql"},
		{From: ContainerConsole, To: "cache", Label: "redis"},
		{From: ContainerConsole, To: "storage", Label: "s3"},
	}
	return t
}
