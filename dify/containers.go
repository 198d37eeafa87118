// Package dify assembles the Dify deployment: the primary multi-container
// API service and the on-demand console service, mapped onto the platform
// collaborators (database, cache, storage, ALB, cluster).
//
// Container layouts are assembled as plain taskdef values from resolved
// strings, so the whole contract — names, environment, secret references,
// startup ordering — is testable without an engine.
package dify

import (
	"fmt"
	"strings"

	"github.com/remote-swe-user/dify-self-hosted-on-aws/platform"
	"github.com/remote-swe-user/dify-self-hosted-on-aws/taskdef"
)

// Fixed container ports. The downstream application hardcodes these, so
// they are constants here, never configuration.
const (
	ServingPort       = 5001
	SandboxPort       = 8194
	PluginDaemonPort  = 5002
	KnowledgeBasePort = 8000
)

// Container names of the primary task, plus the console container.
const (
	ContainerServing            = "serving"
	ContainerWorker             = "worker"
	ContainerSandboxInitializer = "sandbox-initializer"
	ContainerSandboxExecutor    = "sandbox-executor"
	ContainerPluginDaemon       = "plugin-daemon"
	ContainerKnowledgeBase      = "knowledge-base-api"
	ContainerConsole            = "console"
)

// initializerImage is the one-shot sidecar that seeds the dependencies
// volume before the sandbox starts.
const initializerImage = "public.ecr.aws/docker/library/busybox:stable"

// dependenciesVolume is the task volume shared between the initializer and
// the sandbox executor.
const dependenciesVolume = "dependencies"

// RoutedPathPrefixes are the URL prefixes the ALB forwards to the serving
// container. Fixed set, each registered with its wildcard form too.
var RoutedPathPrefixes = []string{"/console/api", "/api", "/v1", "/files"}

// secretKeyRef addresses one JSON key inside a Secrets Manager secret, the
// valueFrom form ECS resolves at container start.
func secretKeyRef(arn, key string) string {
	return arn + ":" + key + "::"
}

// ApiContainerInputs are the resolved strings the primary task layout is
// assembled from. Everything is plain data; the caller resolves Pulumi
// outputs before building.
type ApiContainerInputs struct {
	Region   string
	LogGroup string

	ApiImage           string
	SandboxImage       string
	PluginDaemonImage  string
	KnowledgeBaseImage string

	AlbUrl             string
	DbHost             string
	DbSecretArn        string
	RedisHost          string
	RedisAuthSecretArn string
	BrokerUrlSecretArn string
	BucketName         string
	AppSecretArn       string

	AllowAnySysCalls      bool
	Debug                 bool
	SandboxPythonPackages []string

	// ExtraEnvironment is merged into the serving and worker containers,
	// override wins.
	ExtraEnvironment map[string]string
}

// appVariables is the environment contract shared by every container
// running the dify-api image (serving, worker, console). Names and values
// match what the application reads; changing them breaks the deployment
// even though nothing here would notice.
func appVariables(region, albUrl, dbHost, dbSecretArn, redisHost, redisAuthSecretArn, brokerUrlSecretArn, bucketName, appSecretArn string, debug bool) taskdef.Variables {
	v := taskdef.NewVariables()

	v.Plain = map[string]string{
		"LOG_LEVEL": "INFO",

		"CONSOLE_WEB_URL": albUrl,
		"CONSOLE_API_URL": albUrl,
		"SERVICE_API_URL": albUrl,
		"APP_WEB_URL":     albUrl,

		"WEB_API_CORS_ALLOW_ORIGINS": "*",
		"CONSOLE_CORS_ALLOW_ORIGINS": "*",

		"STORAGE_TYPE":           "s3",
		"S3_BUCKET_NAME":         bucketName,
		"S3_REGION":              region,
		"S3_USE_AWS_MANAGED_IAM": "true",

		"DB_HOST":     dbHost,
		"DB_PORT":     fmt.Sprintf("%d", platform.DatabasePort),
		"DB_USERNAME": platform.DatabaseUser,
		"DB_DATABASE": platform.DatabaseName,

		"VECTOR_STORE":      "pgvector",
		"PGVECTOR_HOST":     dbHost,
		"PGVECTOR_PORT":     fmt.Sprintf("%d", platform.DatabasePort),
		"PGVECTOR_USER":     platform.DatabaseUser,
		"PGVECTOR_DATABASE": platform.DatabaseName,

		"REDIS_HOST":     redisHost,
		"REDIS_PORT":     fmt.Sprintf("%d", platform.CachePort),
		"REDIS_USE_SSL":  "true",
		"REDIS_DB":       "0",
		"BROKER_USE_SSL": "true",

		// Peer processes share the task network namespace, so downstream
		// endpoints are loopback addresses, never service discovery.
		"CODE_EXECUTION_ENDPOINT": fmt.Sprintf("http://localhost:%d", SandboxPort),
		"PLUGIN_DAEMON_URL":       fmt.Sprintf("http://localhost:%d", PluginDaemonPort),
	}
	if debug {
		v.Plain["DEBUG"] = "true"
		v.Plain["LOG_LEVEL"] = "DEBUG"
	}

	v.Secret = map[string]string{
		"SECRET_KEY":               appSecretArn,
		"DB_PASSWORD":              secretKeyRef(dbSecretArn, "password"),
		"PGVECTOR_PASSWORD":        secretKeyRef(dbSecretArn, "password"),
		"REDIS_PASSWORD":           redisAuthSecretArn,
		"CELERY_BROKER_URL":        brokerUrlSecretArn,
		"CODE_EXECUTION_API_KEY":   appSecretArn,
		"PLUGIN_DAEMON_KEY":        appSecretArn,
		"INNER_API_KEY_FOR_PLUGIN": appSecretArn,
	}

	return v
}

// ApiContainers builds the six container definitions of the primary task.
func ApiContainers(in ApiContainerInputs) ([]taskdef.ContainerDefinition, error) {
	base := appVariables(in.Region, in.AlbUrl, in.DbHost, in.DbSecretArn, in.RedisHost,
		in.RedisAuthSecretArn, in.BrokerUrlSecretArn, in.BucketName, in.AppSecretArn, in.Debug)

	extra := taskdef.Variables{Plain: in.ExtraEnvironment}

	serving, err := base.Merge(taskdef.Variables{Plain: map[string]string{"MODE": "api"}})
	if err != nil {
		return nil, fmt.Errorf("serving environment: %w", err)
	}
	if serving, err = serving.Merge(extra); err != nil {
		return nil, fmt.Errorf("serving environment overrides: %w", err)
	}

	worker, err := base.Merge(taskdef.Variables{Plain: map[string]string{
		"MODE": "worker",
		// The worker owns schema migrations; the serving container only
		// becomes healthy once the migrated schema is in place.
		"MIGRATION_ENABLED": "true",
	}})
	if err != nil {
		return nil, fmt.Errorf("worker environment: %w", err)
	}
	if worker, err = worker.Merge(extra); err != nil {
		return nil, fmt.Errorf("worker environment overrides: %w", err)
	}

	sandbox := taskdef.NewVariables()
	sandbox.Plain = map[string]string{
		"GIN_MODE":       "release",
		"WORKER_TIMEOUT": "15",
		"ENABLE_NETWORK": "true",
	}
	if in.AllowAnySysCalls {
		sandbox.Plain["ALLOWED_SYSCALLS"] = allSyscalls()
	}
	sandbox.Secret = map[string]string{"API_KEY": in.AppSecretArn}

	daemon := taskdef.NewVariables()
	daemon.Plain = map[string]string{
		"SERVER_PORT":        fmt.Sprintf("%d", PluginDaemonPort),
		"DIFY_INNER_API_URL": fmt.Sprintf("http://localhost:%d", ServingPort),

		"DB_HOST":     in.DbHost,
		"DB_PORT":     fmt.Sprintf("%d", platform.DatabasePort),
		"DB_USERNAME": platform.DatabaseUser,
		"DB_DATABASE": "dify_plugin",

		"REDIS_HOST":    in.RedisHost,
		"REDIS_PORT":    fmt.Sprintf("%d", platform.CachePort),
		"REDIS_USE_SSL": "true",

		"PLUGIN_STORAGE_TYPE":       "aws_s3",
		"PLUGIN_STORAGE_OSS_BUCKET": in.BucketName,
		"S3_USE_AWS_MANAGED_IAM":    "true",
		"AWS_REGION":                in.Region,

		"PLUGIN_WORKING_PATH":       "/app/storage/cwd",
		"FORCE_VERIFYING_SIGNATURE": "true",
	}
	daemon.Secret = map[string]string{
		"SERVER_KEY":         in.AppSecretArn,
		"DIFY_INNER_API_KEY": in.AppSecretArn,
		"DB_PASSWORD":        secretKeyRef(in.DbSecretArn, "password"),
		"REDIS_PASSWORD":     in.RedisAuthSecretArn,
	}

	kb := taskdef.NewVariables()
	kb.Plain = map[string]string{"BEDROCK_REGION": in.Region}
	kb.Secret = map[string]string{"BEARER_TOKEN": in.AppSecretArn}

	defs := []taskdef.ContainerDefinition{
		{
			Name:             ContainerServing,
			Image:            in.ApiImage,
			Essential:        taskdef.Essential(),
			Environment:      serving.EnvironmentList(),
			Secrets:          serving.SecretList(),
			PortMappings:     []taskdef.PortMapping{{ContainerPort: ServingPort, Protocol: "tcp"}},
			HealthCheck:      taskdef.CurlHealthCheck(fmt.Sprintf("http://localhost:%d/health", ServingPort)),
			LogConfiguration: taskdef.AwsLogs(in.LogGroup, in.Region, ContainerServing),
		},
		{
			Name:        ContainerWorker,
			Image:       in.ApiImage,
			Essential:   taskdef.Essential(),
			Environment: worker.EnvironmentList(),
			Secrets:     worker.SecretList(),
			HealthCheck: &taskdef.HealthCheck{
				Command:     []string{"CMD-SHELL", "celery -A app.celery inspect ping || exit 1"},
				Interval:    30,
				Timeout:     10,
				Retries:     5,
				StartPeriod: 60,
			},
			LogConfiguration: taskdef.AwsLogs(in.LogGroup, in.Region, ContainerWorker),
		},
		{
			Name:      ContainerSandboxInitializer,
			Image:     initializerImage,
			Essential: taskdef.NonEssential(),
			Command:   []string{"sh", "-c", initializerScript(in.SandboxPythonPackages)},
			MountPoints: []taskdef.MountPoint{
				{SourceVolume: dependenciesVolume, ContainerPath: "/dependencies"},
			},
			LogConfiguration: taskdef.AwsLogs(in.LogGroup, in.Region, ContainerSandboxInitializer),
		},
		{
			Name:         ContainerSandboxExecutor,
			Image:        in.SandboxImage,
			Essential:    taskdef.Essential(),
			Environment:  sandbox.EnvironmentList(),
			Secrets:      sandbox.SecretList(),
			PortMappings: []taskdef.PortMapping{{ContainerPort: SandboxPort, Protocol: "tcp"}},
			MountPoints: []taskdef.MountPoint{
				{SourceVolume: dependenciesVolume, ContainerPath: "/dependencies", ReadOnly: true},
			},
			// COMPLETE, not HEALTHY: the initializer exits, so waiting on
			// a health state would deadlock the task.
			DependsOn: []taskdef.ContainerDependency{
				{ContainerName: ContainerSandboxInitializer, Condition: taskdef.DependencyComplete},
			},
			LogConfiguration: taskdef.AwsLogs(in.LogGroup, in.Region, ContainerSandboxExecutor),
		},
		{
			Name:             ContainerPluginDaemon,
			Image:            in.PluginDaemonImage,
			Essential:        taskdef.Essential(),
			Environment:      daemon.EnvironmentList(),
			Secrets:          daemon.SecretList(),
			PortMappings:     []taskdef.PortMapping{{ContainerPort: PluginDaemonPort, Protocol: "tcp"}},
			LogConfiguration: taskdef.AwsLogs(in.LogGroup, in.Region, ContainerPluginDaemon),
		},
		{
			Name:             ContainerKnowledgeBase,
			Image:            in.KnowledgeBaseImage,
			Essential:        taskdef.Essential(),
			Environment:      kb.EnvironmentList(),
			Secrets:          kb.SecretList(),
			PortMappings:     []taskdef.PortMapping{{ContainerPort: KnowledgeBasePort, Protocol: "tcp"}},
			LogConfiguration: taskdef.AwsLogs(in.LogGroup, in.Region, ContainerKnowledgeBase),
		},
	}
	return defs, nil
}

// initializerScript writes the Python dependency manifest into the shared
// volume. busybox printf expands the \n escapes in the format string.
func initializerScript(packages []string) string {
	const manifest = "/dependencies/python-requirements.txt"
	if len(packages) == 0 {
		return ": > " + manifest
	}
	return fmt.Sprintf("printf '%s\\n' > %s", strings.Join(packages, `\n`), manifest)
}

// ConsoleContainerInputs are the resolved strings the console container is
// assembled from.
type ConsoleContainerInputs struct {
	Region   string
	LogGroup string
	Image    string

	AlbUrl             string
	DbHost             string
	DbSecretArn        string
	RedisHost          string
	RedisAuthSecretArn string
	BrokerUrlSecretArn string
	BucketName         string
	AppSecretArn       string

	Debug bool

	// ExtraEnvironment and ExtraSecrets are caller-supplied overrides,
	// merged override-wins. A name supplied in both maps is rejected.
	ExtraEnvironment map[string]string
	ExtraSecrets     map[string]string
}

// ConsoleContainer builds the single idle container of the console task.
// The sleep entrypoint keeps the container alive without serving anything;
// operators exec into it for one-off commands.
func ConsoleContainer(in ConsoleContainerInputs) (taskdef.ContainerDefinition, error) {
	base := appVariables(in.Region, in.AlbUrl, in.DbHost, in.DbSecretArn, in.RedisHost,
		in.RedisAuthSecretArn, in.BrokerUrlSecretArn, in.BucketName, in.AppSecretArn, in.Debug)

	vars, err := base.Merge(taskdef.Variables{Plain: in.ExtraEnvironment, Secret: in.ExtraSecrets})
	if err != nil {
		return taskdef.ContainerDefinition{}, fmt.Errorf("console environment overrides: %w", err)
	}

	return taskdef.ContainerDefinition{
		Name:             ContainerConsole,
		Image:            in.Image,
		Essential:        taskdef.Essential(),
		EntryPoint:       []string{"sleep"},
		Command:          []string{"infinity"},
		Environment:      vars.EnvironmentList(),
		Secrets:          vars.SecretList(),
		LogConfiguration: taskdef.AwsLogs(in.LogGroup, in.Region, ContainerConsole),
	}, nil
}
