package policy

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	doc := New(
		Allow([]string{"s3:GetObject", "s3:PutObject"}, []string{"arn:aws:s3:::bucket", "arn:aws:s3:::bucket/*"}),
		Allow([]string{"bedrock:InvokeModel"}, []string{"*"}),
	)

	body, err := doc.Render()
	require.NoError(t, err)

	var parsed map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &parsed))
	assert.Equal(t, Version, parsed["Version"])

	statements := parsed["Statement"].([]any)
	require.Len(t, statements, 2)
	first := statements[0].(map[string]any)
	assert.Equal(t, "Allow", first["Effect"])
	assert.Equal(t, []any{"s3:GetObject", "s3:PutObject"}, first["Action"])
}

func TestRenderRejectsInvalid(t *testing.T) {
	_, err := New().Render()
	assert.Error(t, err, "empty document")

	_, err = New(Statement{Effect: "Maybe", Action: []string{"s3:GetObject"}}).Render()
	assert.Error(t, err, "bad effect")

	_, err = New(Statement{Effect: "Allow"}).Render()
	assert.Error(t, err, "no actions")
}

func TestAssumedBy(t *testing.T) {
	body, err := AssumedBy("ecs-tasks.amazonaws.com").Render()
	require.NoError(t, err)

	var parsed map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &parsed))
	statements := parsed["Statement"].([]any)
	require.Len(t, statements, 1)

	st := statements[0].(map[string]any)
	assert.Equal(t, []any{"sts:AssumeRole"}, st["Action"])
	principal := st["Principal"].(map[string]any)
	assert.Equal(t, "ecs-tasks.amazonaws.com", principal["Service"])
}
