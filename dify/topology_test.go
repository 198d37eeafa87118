package dify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeploymentTopology_Closed(t *testing.T) {
	topo := DeploymentTopology()

	names := map[string]bool{}
	for _, n := range topo.Nodes {
		require.False(t, names[n.Name], "duplicate node %q", n.Name)
		names[n.Name] = true
	}

	// Every edge endpoint must be a declared node.
	for _, e := range topo.Edges {
		assert.True(t, names[e.From], "edge from unknown node %q", e.From)
		assert.True(t, names[e.To], "edge to unknown node %q", e.To)
	}
}

func TestDeploymentTopology_ContainerMembership(t *testing.T) {
	topo := DeploymentTopology()

	byService := map[string][]string{}
	for _, n := range topo.Nodes {
		if n.Kind == KindContainer {
			byService[n.Service] = append(byService[n.Service], n.Name)
		}
	}
	assert.Len(t, byService["api-service"], 6)
	assert.Equal(t, []string{ContainerConsole}, byService["console-service"])
}

func TestDeploymentTopology_ServiceIdsDistinctFromContainers(t *testing.T) {
	topo := DeploymentTopology()

	containers := map[string]bool{}
	for _, n := range topo.Nodes {
		if n.Kind == KindContainer {
			containers[n.Name] = true
		}
	}
	for _, n := range topo.Nodes {
		if n.Kind == KindService {
			assert.False(t, containers[n.Name], "service id %q collides with a container", n.Name)
		}
	}
}
