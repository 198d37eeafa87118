// Package taskdef models ECS container definitions as plain Go values.
//
// The structs mirror the containerDefinitions JSON contract of the ECS
// RegisterTaskDefinition API, so a slice of ContainerDefinition marshals
// directly into the string property an aws.ecs.TaskDefinition expects:
//
//	defs := []taskdef.ContainerDefinition{{Name: "app", Image: "nginx"}}
//	body, err := taskdef.Render(defs)
//
// Keeping the model as plain values (no Pulumi inputs) means the whole
// container layout — names, environment, secret references, startup
// dependencies — can be asserted in ordinary unit tests before it is
// handed to the engine.
package taskdef

import (
	"encoding/json"
	"fmt"
	"sort"
)

// DependencyCondition gates a container's startup on another container's
// lifecycle state.
type DependencyCondition string

// DependencyComplete waits for the dependency to have exited, with any
// exit code. This is the condition for one-shot setup sidecars.
const DependencyComplete DependencyCondition = "COMPLETE"

// KeyValuePair is one plain environment variable.
type KeyValuePair struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Secret injects an environment variable from a Secrets Manager or SSM
// reference. ValueFrom is always an ARN (optionally suffixed with a JSON
// key for Secrets Manager secrets), never a literal value.
type Secret struct {
	Name      string `json:"name"`
	ValueFrom string `json:"valueFrom"`
}

// PortMapping exposes a container port on the task network interface.
type PortMapping struct {
	ContainerPort int    `json:"containerPort"`
	HostPort      int    `json:"hostPort,omitempty"`
	Protocol      string `json:"protocol,omitempty"`
}

// HealthCheck is the Docker health check ECS runs inside the container.
type HealthCheck struct {
	Command     []string `json:"command"`
	Interval    int      `json:"interval,omitempty"`
	Timeout     int      `json:"timeout,omitempty"`
	Retries     int      `json:"retries,omitempty"`
	StartPeriod int      `json:"startPeriod,omitempty"`
}

// ContainerDependency delays a container's start until Condition holds for
// the named sibling container.
type ContainerDependency struct {
	ContainerName string              `json:"containerName"`
	Condition     DependencyCondition `json:"condition"`
}

// MountPoint attaches a task volume inside the container.
type MountPoint struct {
	SourceVolume  string `json:"sourceVolume"`
	ContainerPath string `json:"containerPath"`
	ReadOnly      bool   `json:"readOnly,omitempty"`
}

// LogConfiguration routes container output to a log driver.
type LogConfiguration struct {
	LogDriver string            `json:"logDriver"`
	Options   map[string]string `json:"options,omitempty"`
}

// ContainerDefinition is one container in a task definition. The model
// carries only the properties the deployment uses.
type ContainerDefinition struct {
	Name             string                `json:"name"`
	Image            string                `json:"image"`
	Essential        *bool                 `json:"essential,omitempty"`
	EntryPoint       []string              `json:"entryPoint,omitempty"`
	Command          []string              `json:"command,omitempty"`
	Environment      []KeyValuePair        `json:"environment,omitempty"`
	Secrets          []Secret              `json:"secrets,omitempty"`
	PortMappings     []PortMapping         `json:"portMappings,omitempty"`
	MountPoints      []MountPoint          `json:"mountPoints,omitempty"`
	DependsOn        []ContainerDependency `json:"dependsOn,omitempty"`
	HealthCheck      *HealthCheck          `json:"healthCheck,omitempty"`
	LogConfiguration *LogConfiguration     `json:"logConfiguration,omitempty"`
}

// Essential marks a container whose exit stops the whole task.
func Essential() *bool { b := true; return &b }

// NonEssential marks a helper container the task outlives.
func NonEssential() *bool { b := false; return &b }

// AwsLogs builds the awslogs configuration every container here uses.
func AwsLogs(group, region, streamPrefix string) *LogConfiguration {
	return &LogConfiguration{
		LogDriver: "awslogs",
		Options: map[string]string{
			"awslogs-group":         group,
			"awslogs-region":        region,
			"awslogs-stream-prefix": streamPrefix,
		},
	}
}

// CurlHealthCheck probes an HTTP endpoint on the task loopback.
func CurlHealthCheck(url string) *HealthCheck {
	return &HealthCheck{
		Command:     []string{"CMD-SHELL", fmt.Sprintf("curl -f %s || exit 1", url)},
		Interval:    15,
		Timeout:     5,
		Retries:     5,
		StartPeriod: 30,
	}
}

// Render marshals container definitions into the JSON document the
// containerDefinitions task definition property expects.
func Render(defs []ContainerDefinition) (string, error) {
	if len(defs) == 0 {
		return "", fmt.Errorf("taskdef: no container definitions")
	}
	seen := make(map[string]bool, len(defs))
	for _, d := range defs {
		if d.Name == "" {
			return "", fmt.Errorf("taskdef: container with empty name")
		}
		if d.Image == "" {
			return "", fmt.Errorf("taskdef: container %q has no image", d.Name)
		}
		if seen[d.Name] {
			return "", fmt.Errorf("taskdef: duplicate container name %q", d.Name)
		}
		seen[d.Name] = true
	}
	for _, d := range defs {
		for _, dep := range d.DependsOn {
			if !seen[dep.ContainerName] {
				return "", fmt.Errorf("taskdef: container %q depends on unknown container %q", d.Name, dep.ContainerName)
			}
		}
	}
	data, err := json.Marshal(defs)
	if err != nil {
		return "", fmt.Errorf("taskdef: marshal container definitions: %w", err)
	}
	return string(data), nil
}

// Names returns the container names in sorted order.
func Names(defs []ContainerDefinition) []string {
	names := make([]string, 0, len(defs))
	for _, d := range defs {
		names = append(names, d.Name)
	}
	sort.Strings(names)
	return names
}
