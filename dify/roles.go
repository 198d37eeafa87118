package dify

import (
	"fmt"

	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/iam"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"

	"github.com/remote-swe-user/dify-self-hosted-on-aws/policy"
)

// ecsTasksService is the principal ECS tasks assume roles as.
const ecsTasksService = "ecs-tasks.amazonaws.com"

// executionRolePolicy is the AWS-managed policy covering image pulls and
// log delivery.
const executionRolePolicy = "arn:aws:iam::aws:policy/service-role/AmazonECSTaskExecutionRolePolicy"

// newTaskRole builds the role the application containers run as: bucket
// read/write, Bedrock invocation, and the ssmmessages channels ECS Exec
// needs. Bedrock stays on resource "*" because the models the upstream
// application will call are not known at declaration time.
func newTaskRole(ctx *pulumi.Context, name string, bucketArn pulumi.StringOutput) (*iam.Role, error) {
	trust, err := policy.AssumedBy(ecsTasksService).Render()
	if err != nil {
		return nil, err
	}

	role, err := iam.NewRole(ctx, name, &iam.RoleArgs{
		AssumeRolePolicy: pulumi.String(trust),
	})
	if err != nil {
		return nil, fmt.Errorf("task role: %w", err)
	}

	doc := bucketArn.ApplyT(func(arn string) (string, error) {
		return policy.New(
			policy.Allow(
				[]string{
					"s3:GetObject",
					"s3:PutObject",
					"s3:DeleteObject",
					"s3:AbortMultipartUpload",
					"s3:ListBucket",
					"s3:GetBucketLocation",
				},
				[]string{arn, arn + "/*"},
			),
			policy.Allow(
				[]string{
					"bedrock:InvokeModel",
					"bedrock:InvokeModelWithResponseStream",
					"bedrock:Retrieve",
					"bedrock:RetrieveAndGenerate",
					"bedrock:ListFoundationModels",
					"bedrock:GetFoundationModel",
				},
				[]string{"*"},
			),
			policy.Allow(
				[]string{
					"ssmmessages:CreateControlChannel",
					"ssmmessages:CreateDataChannel",
					"ssmmessages:OpenControlChannel",
					"ssmmessages:OpenDataChannel",
				},
				[]string{"*"},
			),
		).Render()
	}).(pulumi.StringOutput)

	_, err = iam.NewRolePolicy(ctx, name, &iam.RolePolicyArgs{
		Role:   role.ID(),
		Policy: doc,
	})
	if err != nil {
		return nil, fmt.Errorf("task role policy: %w", err)
	}

	return role, nil
}

// newExecutionRole builds the role the ECS agent uses to start the task:
// the managed execution policy plus GetSecretValue on exactly the secrets
// the container definitions reference.
func newExecutionRole(ctx *pulumi.Context, name string, secretArns []pulumi.StringOutput) (*iam.Role, error) {
	trust, err := policy.AssumedBy(ecsTasksService).Render()
	if err != nil {
		return nil, err
	}

	role, err := iam.NewRole(ctx, name, &iam.RoleArgs{
		AssumeRolePolicy:  pulumi.String(trust),
		ManagedPolicyArns: pulumi.StringArray{pulumi.String(executionRolePolicy)},
	})
	if err != nil {
		return nil, fmt.Errorf("execution role: %w", err)
	}

	inputs := make([]interface{}, len(secretArns))
	for i, arn := range secretArns {
		inputs[i] = arn
	}
	doc := pulumi.All(inputs...).ApplyT(func(vs []interface{}) (string, error) {
		resources := make([]string, len(vs))
		for i, v := range vs {
			resources[i] = v.(string)
		}
		return policy.New(
			policy.Allow([]string{"secretsmanager:GetSecretValue"}, resources),
		).Render()
	}).(pulumi.StringOutput)

	_, err = iam.NewRolePolicy(ctx, name, &iam.RolePolicyArgs{
		Role:   role.ID(),
		Policy: doc,
	})
	if err != nil {
		return nil, fmt.Errorf("execution role policy: %w", err)
	}

	return role, nil
}
