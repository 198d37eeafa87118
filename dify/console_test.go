package dify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatConsoleCommands(t *testing.T) {
	cmds := FormatConsoleCommands("dify-cluster", "dify-console-svc")

	assert.Equal(t,
		"aws ecs update-service --cluster dify-cluster --service dify-console-svc --desired-count 1",
		cmds.ScaleUp)
	assert.Equal(t,
		"aws ecs update-service --cluster dify-cluster --service dify-console-svc --desired-count 0",
		cmds.ScaleDown)
	assert.Equal(t,
		"aws ecs list-tasks --cluster dify-cluster --service-name dify-console-svc",
		cmds.ListTasks)
	assert.Equal(t,
		"aws ecs execute-command --cluster dify-cluster --task <task-id> --container console --interactive --command bash",
		cmds.Shell)
}
