package dify

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remote-swe-user/dify-self-hosted-on-aws/taskdef"
)

func apiInputs() ApiContainerInputs {
	return ApiContainerInputs{
		Region:                "us-east-1",
		LogGroup:              "/ecs/dify-api",
		ApiImage:              "langgenius/dify-api:1.1.3",
		SandboxImage:          "langgenius/dify-sandbox:0.2.10",
		PluginDaemonImage:     "langgenius/dify-plugin-daemon:0.0.6-local",
		KnowledgeBaseImage:    "bedrock-kb-retrieval-api:latest",
		AlbUrl:                "http://alb.example.com",
		DbHost:                "db.cluster.example.com",
		DbSecretArn:           "arn:aws:secretsmanager:us-east-1:123456789012:secret:db-abc",
		RedisHost:             "redis.example.com",
		RedisAuthSecretArn:    "arn:aws:secretsmanager:us-east-1:123456789012:secret:redis-abc",
		BrokerUrlSecretArn:    "arn:aws:secretsmanager:us-east-1:123456789012:secret:broker-abc",
		BucketName:            "dify-storage",
		AppSecretArn:          "arn:aws:secretsmanager:us-east-1:123456789012:secret:app-abc",
		SandboxPythonPackages: []string{"requests==2.31.0", "numpy"},
	}
}

func consoleInputs() ConsoleContainerInputs {
	return ConsoleContainerInputs{
		Region:             "us-east-1",
		LogGroup:           "/ecs/dify-console",
		Image:              "langgenius/dify-api:1.1.3",
		AlbUrl:             "http://alb.example.com",
		DbHost:             "db.cluster.example.com",
		DbSecretArn:        "arn:aws:secretsmanager:us-east-1:123456789012:secret:db-abc",
		RedisHost:          "redis.example.com",
		RedisAuthSecretArn: "arn:aws:secretsmanager:us-east-1:123456789012:secret:redis-abc",
		BrokerUrlSecretArn: "arn:aws:secretsmanager:us-east-1:123456789012:secret:broker-abc",
		BucketName:         "dify-storage",
		AppSecretArn:       "arn:aws:secretsmanager:us-east-1:123456789012:secret:app-abc",
	}
}

func findContainer(t *testing.T, defs []taskdef.ContainerDefinition, name string) taskdef.ContainerDefinition {
	t.Helper()
	for _, d := range defs {
		if d.Name == name {
			return d
		}
	}
	t.Fatalf("container %q not found", name)
	return taskdef.ContainerDefinition{}
}

func plainValue(def taskdef.ContainerDefinition, name string) (string, bool) {
	for _, kv := range def.Environment {
		if kv.Name == name {
			return kv.Value, true
		}
	}
	return "", false
}

func TestApiContainers_NameSet(t *testing.T) {
	defs, err := ApiContainers(apiInputs())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"knowledge-base-api",
		"plugin-daemon",
		"sandbox-executor",
		"sandbox-initializer",
		"serving",
		"worker",
	}, taskdef.Names(defs))
}

func TestApiContainers_SandboxDependsOnInitializerComplete(t *testing.T) {
	defs, err := ApiContainers(apiInputs())
	require.NoError(t, err)

	sandbox := findContainer(t, defs, ContainerSandboxExecutor)
	require.Len(t, sandbox.DependsOn, 1)
	assert.Equal(t, ContainerSandboxInitializer, sandbox.DependsOn[0].ContainerName)
	assert.Equal(t, taskdef.DependencyComplete, sandbox.DependsOn[0].Condition)

	init := findContainer(t, defs, ContainerSandboxInitializer)
	require.NotNil(t, init.Essential)
	assert.False(t, *init.Essential, "initializer must not be essential")
}

func TestApiContainers_SecretsAreReferences(t *testing.T) {
	defs, err := ApiContainers(apiInputs())
	require.NoError(t, err)

	for _, d := range defs {
		plain := map[string]bool{}
		for _, kv := range d.Environment {
			plain[kv.Name] = true
		}
		for _, s := range d.Secrets {
			assert.True(t, strings.HasPrefix(s.ValueFrom, "arn:aws:secretsmanager:"),
				"%s/%s valueFrom %q is not a secret reference", d.Name, s.Name, s.ValueFrom)
			assert.False(t, plain[s.Name],
				"%s/%s appears in both environment and secrets", d.Name, s.Name)
		}
	}

	serving := findContainer(t, defs, ContainerServing)
	names := map[string]bool{}
	for _, s := range serving.Secrets {
		names[s.Name] = true
	}
	for _, want := range []string{
		"SECRET_KEY", "DB_PASSWORD", "PGVECTOR_PASSWORD", "REDIS_PASSWORD",
		"CELERY_BROKER_URL", "CODE_EXECUTION_API_KEY", "PLUGIN_DAEMON_KEY",
		"INNER_API_KEY_FOR_PLUGIN",
	} {
		assert.True(t, names[want], "serving is missing secret %s", want)
	}
}

func TestApiContainers_DbPasswordUsesJsonKey(t *testing.T) {
	defs, err := ApiContainers(apiInputs())
	require.NoError(t, err)

	serving := findContainer(t, defs, ContainerServing)
	for _, s := range serving.Secrets {
		if s.Name == "DB_PASSWORD" || s.Name == "PGVECTOR_PASSWORD" {
			assert.True(t, strings.HasSuffix(s.ValueFrom, ":password::"),
				"%s should address the password JSON key, got %q", s.Name, s.ValueFrom)
		}
	}
}

func TestApiContainers_SyscallToggle(t *testing.T) {
	in := apiInputs()

	in.AllowAnySysCalls = false
	defs, err := ApiContainers(in)
	require.NoError(t, err)
	sandbox := findContainer(t, defs, ContainerSandboxExecutor)
	_, present := plainValue(sandbox, "ALLOWED_SYSCALLS")
	assert.False(t, present, "ALLOWED_SYSCALLS must be absent when the toggle is off")

	in.AllowAnySysCalls = true
	defs, err = ApiContainers(in)
	require.NoError(t, err)
	sandbox = findContainer(t, defs, ContainerSandboxExecutor)
	got, present := plainValue(sandbox, "ALLOWED_SYSCALLS")
	require.True(t, present)

	nums := strings.Split(got, ",")
	require.Len(t, nums, 457)
	assert.Equal(t, "0", nums[0])
	assert.Equal(t, "456", nums[456])
	for i, n := range nums {
		if n != fmt.Sprintf("%d", i) {
			t.Fatalf("position %d holds %q", i, n)
		}
	}
}

func TestApiContainers_Modes(t *testing.T) {
	defs, err := ApiContainers(apiInputs())
	require.NoError(t, err)

	serving := findContainer(t, defs, ContainerServing)
	mode, _ := plainValue(serving, "MODE")
	assert.Equal(t, "api", mode)
	_, migration := plainValue(serving, "MIGRATION_ENABLED")
	assert.False(t, migration, "serving must not run migrations")

	worker := findContainer(t, defs, ContainerWorker)
	mode, _ = plainValue(worker, "MODE")
	assert.Equal(t, "worker", mode)
	migrationVal, _ := plainValue(worker, "MIGRATION_ENABLED")
	assert.Equal(t, "true", migrationVal)
	assert.Empty(t, worker.PortMappings, "worker serves nothing")
}

func TestApiContainers_LoopbackEndpoints(t *testing.T) {
	defs, err := ApiContainers(apiInputs())
	require.NoError(t, err)

	serving := findContainer(t, defs, ContainerServing)
	code, _ := plainValue(serving, "CODE_EXECUTION_ENDPOINT")
	assert.Equal(t, "http://localhost:8194", code)
	daemon, _ := plainValue(serving, "PLUGIN_DAEMON_URL")
	assert.Equal(t, "http://localhost:5002", daemon)
}

func TestApiContainers_FixedPorts(t *testing.T) {
	defs, err := ApiContainers(apiInputs())
	require.NoError(t, err)

	ports := map[string]int{
		ContainerServing:         5001,
		ContainerSandboxExecutor: 8194,
		ContainerPluginDaemon:    5002,
		ContainerKnowledgeBase:   8000,
	}
	for name, port := range ports {
		c := findContainer(t, defs, name)
		require.Len(t, c.PortMappings, 1, "%s", name)
		assert.Equal(t, port, c.PortMappings[0].ContainerPort, "%s", name)
	}
}

func TestApiContainers_ExtraEnvironmentOverrides(t *testing.T) {
	in := apiInputs()
	in.ExtraEnvironment = map[string]string{
		"LOG_LEVEL":  "WARNING",
		"NEW_SWITCH": "on",
	}
	defs, err := ApiContainers(in)
	require.NoError(t, err)

	for _, name := range []string{ContainerServing, ContainerWorker} {
		c := findContainer(t, defs, name)
		level, _ := plainValue(c, "LOG_LEVEL")
		assert.Equal(t, "WARNING", level, "%s", name)
		sw, _ := plainValue(c, "NEW_SWITCH")
		assert.Equal(t, "on", sw, "%s", name)
	}
}

func TestInitializerScript(t *testing.T) {
	assert.Equal(t,
		`printf 'requests\nnumpy\n' > /dependencies/python-requirements.txt`,
		initializerScript([]string{"requests", "numpy"}))
	assert.Equal(t,
		": > /dependencies/python-requirements.txt",
		initializerScript(nil))
}

func TestConsoleContainer_Idle(t *testing.T) {
	def, err := ConsoleContainer(consoleInputs())
	require.NoError(t, err)

	assert.Equal(t, ContainerConsole, def.Name)
	assert.Equal(t, []string{"sleep"}, def.EntryPoint)
	assert.Equal(t, []string{"infinity"}, def.Command)
	assert.Empty(t, def.PortMappings)
	assert.Nil(t, def.HealthCheck)

	// The data-plane contract matches the API so one-off commands work.
	host, _ := plainValue(def, "DB_HOST")
	assert.Equal(t, "db.cluster.example.com", host)
	var hasSecretKey bool
	for _, s := range def.Secrets {
		if s.Name == "SECRET_KEY" {
			hasSecretKey = true
		}
	}
	assert.True(t, hasSecretKey)
}

func TestConsoleContainer_Overrides(t *testing.T) {
	in := consoleInputs()
	in.ExtraEnvironment = map[string]string{"DB_DATABASE": "dify_test"}
	in.ExtraSecrets = map[string]string{
		"EXTRA_TOKEN": "arn:aws:secretsmanager:us-east-1:123456789012:secret:extra-abc",
	}
	def, err := ConsoleContainer(in)
	require.NoError(t, err)

	dbName, _ := plainValue(def, "DB_DATABASE")
	assert.Equal(t, "dify_test", dbName)
	var found bool
	for _, s := range def.Secrets {
		if s.Name == "EXTRA_TOKEN" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestConsoleContainer_ConflictingOverrideRejected(t *testing.T) {
	in := consoleInputs()
	in.ExtraEnvironment = map[string]string{"TOKEN": "plain"}
	in.ExtraSecrets = map[string]string{"TOKEN": "arn:aws:secretsmanager:us-east-1:123456789012:secret:x"}
	_, err := ConsoleContainer(in)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "both plain and secret")
}
