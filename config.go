// Package difyaws declares a self-hosted Dify deployment on AWS ECS
// Fargate: the primary multi-container API service, the on-demand console
// service, and the collaborator constructs they run against.
//
// Program turns a validated Config into a pulumi.RunFunc; the CLI under
// cmd/dify-aws drives it through the Pulumi Automation API.
package difyaws

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Default image tags. Pinned, not "latest": the environment contract
// below tracks these application versions.
const (
	DefaultApiImageTag          = "1.1.3"
	DefaultSandboxImageTag      = "0.2.10"
	DefaultPluginDaemonImageTag = "0.0.6-local"

	// DefaultKnowledgeBaseImage is a sample reference; the retrieval API
	// image is usually built locally and pulled through ImageRegistry.
	DefaultKnowledgeBaseImage = "bedrock-kb-retrieval-api:latest"
)

// Config is the construction-time parameter set of the deployment.
type Config struct {
	// Region is the AWS region everything deploys into.
	Region string `yaml:"region"`

	// Image tags for the three Dify images.
	ApiImageTag          string `yaml:"apiImageTag"`
	SandboxImageTag      string `yaml:"sandboxImageTag"`
	PluginDaemonImageTag string `yaml:"pluginDaemonImageTag"`

	// KnowledgeBaseImage is the full image reference of the knowledge-base
	// retrieval API.
	KnowledgeBaseImage string `yaml:"knowledgeBaseImage"`

	// ImageRegistry optionally prefixes the console and knowledge-base
	// images with a private registry instead of the public one.
	ImageRegistry string `yaml:"imageRegistry,omitempty"`

	// AllowAnySysCalls widens the sandbox seccomp allow list to every
	// syscall. Convenience over safety; leave off unless sandboxed code
	// genuinely needs it.
	AllowAnySysCalls bool `yaml:"allowAnySysCalls"`

	// Debug raises application log verbosity.
	Debug bool `yaml:"debug"`

	// SandboxPythonPackages seed the sandbox dependency manifest.
	SandboxPythonPackages []string `yaml:"sandboxPythonPackages"`

	// ApiEnvironment overrides the serving and worker environment.
	ApiEnvironment map[string]string `yaml:"apiEnvironment,omitempty"`

	// ConsoleEnvironment and ConsoleSecrets are merged into the console
	// container; secret values are Secrets Manager ARNs.
	ConsoleEnvironment map[string]string `yaml:"consoleEnvironment,omitempty"`
	ConsoleSecrets     map[string]string `yaml:"consoleSecrets,omitempty"`
}

// LoadConfig reads and validates a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate applies defaults and rejects malformed values.
func (c *Config) Validate() error {
	if c.Region == "" {
		return fmt.Errorf("region is required")
	}
	if c.ApiImageTag == "" {
		c.ApiImageTag = DefaultApiImageTag
	}
	if c.SandboxImageTag == "" {
		c.SandboxImageTag = DefaultSandboxImageTag
	}
	if c.PluginDaemonImageTag == "" {
		c.PluginDaemonImageTag = DefaultPluginDaemonImageTag
	}
	if c.KnowledgeBaseImage == "" {
		c.KnowledgeBaseImage = DefaultKnowledgeBaseImage
	}
	c.ImageRegistry = strings.TrimSuffix(c.ImageRegistry, "/")

	for _, pkg := range c.SandboxPythonPackages {
		if pkg == "" {
			return fmt.Errorf("sandboxPythonPackages contains an empty entry")
		}
		if strings.ContainsAny(pkg, "'\"\n") {
			return fmt.Errorf("sandbox package %q contains quoting characters", pkg)
		}
	}

	for _, vars := range []map[string]string{c.ApiEnvironment, c.ConsoleEnvironment, c.ConsoleSecrets} {
		for name := range vars {
			if name == "" {
				return fmt.Errorf("override with empty variable name")
			}
			if strings.Contains(name, "=") {
				return fmt.Errorf("override variable name %q contains '='", name)
			}
		}
	}
	for name, arn := range c.ConsoleSecrets {
		if arn == "" {
			return fmt.Errorf("console secret %q has an empty ARN", name)
		}
	}
	for name := range c.ConsoleEnvironment {
		if _, dup := c.ConsoleSecrets[name]; dup {
			return fmt.Errorf("console override %q supplied as both plain and secret", name)
		}
	}
	return nil
}

// ApiImage is the dify-api image reference, always public.
func (c *Config) ApiImage() string {
	return "langgenius/dify-api:" + c.ApiImageTag
}

// SandboxImage is the dify-sandbox image reference.
func (c *Config) SandboxImage() string {
	return "langgenius/dify-sandbox:" + c.SandboxImageTag
}

// PluginDaemonImage is the plugin daemon image reference.
func (c *Config) PluginDaemonImage() string {
	return "langgenius/dify-plugin-daemon:" + c.PluginDaemonImageTag
}

// ConsoleImage is the console image: the api image, optionally pulled
// through the private registry.
func (c *Config) ConsoleImage() string {
	return c.withRegistry(c.ApiImage())
}

// KnowledgeBaseImageRef is the knowledge-base API image, optionally pulled
// through the private registry.
func (c *Config) KnowledgeBaseImageRef() string {
	return c.withRegistry(c.KnowledgeBaseImage)
}

func (c *Config) withRegistry(image string) string {
	if c.ImageRegistry == "" {
		return image
	}
	return c.ImageRegistry + "/" + image
}
