package dify

import (
	"fmt"

	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/cloudwatch"
	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/ec2"
	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/ecs"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"

	"github.com/remote-swe-user/dify-self-hosted-on-aws/platform"
	"github.com/remote-swe-user/dify-self-hosted-on-aws/taskdef"
)

// ConsoleServiceArgs are the construction inputs of the console service.
type ConsoleServiceArgs struct {
	Region string

	Network  *platform.Network
	Cluster  *platform.Cluster
	Database *platform.Database
	Cache    *platform.Cache
	Storage  *platform.Storage
	Alb      *platform.Alb

	AppSecret *AppSecret

	// Image is the full image reference, already carrying any private
	// registry prefix.
	Image string

	Debug bool

	// ExtraEnvironment and ExtraSecrets are merged into the container,
	// override wins; secret values are secret ARNs.
	ExtraEnvironment map[string]string
	ExtraSecrets     map[string]string
}

// ConsoleCommands are the operator command strings the console service
// exports. Purely informational; nothing here runs them.
type ConsoleCommands struct {
	ScaleUp   pulumi.StringOutput
	ScaleDown pulumi.StringOutput
	ListTasks pulumi.StringOutput
	Shell     pulumi.StringOutput
}

// Operator command formats, shared with FormatConsoleCommands so the
// exported strings stay testable as plain values.
const (
	cmdScaleUpFormat   = "aws ecs update-service --cluster %s --service %s --desired-count 1"
	cmdScaleDownFormat = "aws ecs update-service --cluster %s --service %s --desired-count 0"
	cmdListTasksFormat = "aws ecs list-tasks --cluster %s --service-name %s"
	cmdShellFormat     = "aws ecs execute-command --cluster %s --task <task-id> --container %s --interactive --command bash"
)

// CommandStrings is the resolved form of ConsoleCommands.
type CommandStrings struct {
	ScaleUp   string
	ScaleDown string
	ListTasks string
	Shell     string
}

// FormatConsoleCommands renders the four operator commands for a resolved
// cluster and service name.
func FormatConsoleCommands(cluster, service string) CommandStrings {
	return CommandStrings{
		ScaleUp:   fmt.Sprintf(cmdScaleUpFormat, cluster, service),
		ScaleDown: fmt.Sprintf(cmdScaleDownFormat, cluster, service),
		ListTasks: fmt.Sprintf(cmdListTasksFormat, cluster, service),
		Shell:     fmt.Sprintf(cmdShellFormat, cluster, ContainerConsole),
	}
}

// ConsoleService is the on-demand administrative unit: one idle container
// with the same data-plane contract as the API, kept at zero desired
// count until an operator scales it up.
type ConsoleService struct {
	Service        *ecs.Service
	TaskDefinition *ecs.TaskDefinition

	ServiceName pulumi.StringOutput
	Commands    ConsoleCommands
}

// NewConsoleService declares the console task, service, and grants. It
// exposes no ports and registers no routes.
func NewConsoleService(ctx *pulumi.Context, name string, args *ConsoleServiceArgs) (*ConsoleService, error) {
	logGroup, err := cloudwatch.NewLogGroup(ctx, name, &cloudwatch.LogGroupArgs{
		RetentionInDays: pulumi.Int(30),
	})
	if err != nil {
		return nil, fmt.Errorf("log group: %w", err)
	}

	taskRole, err := newTaskRole(ctx, name+"-task", args.Storage.Arn)
	if err != nil {
		return nil, err
	}
	secretArns := []pulumi.StringOutput{
		args.AppSecret.Arn,
		args.Database.SecretArn,
		args.Cache.AuthTokenSecretArn,
		args.Cache.BrokerUrlSecretArn,
	}
	execRole, err := newExecutionRole(ctx, name+"-execution", secretArns)
	if err != nil {
		return nil, err
	}

	containerDefs := pulumi.All(
		logGroup.Name,
		args.Alb.Url,
		args.Database.Endpoint,
		args.Database.SecretArn,
		args.Cache.Endpoint,
		args.Cache.AuthTokenSecretArn,
		args.Cache.BrokerUrlSecretArn,
		args.Storage.Name,
		args.AppSecret.Arn,
	).ApplyT(func(vs []interface{}) (string, error) {
		def, err := ConsoleContainer(ConsoleContainerInputs{
			Region:             args.Region,
			LogGroup:           vs[0].(string),
			Image:              args.Image,
			AlbUrl:             vs[1].(string),
			DbHost:             vs[2].(string),
			DbSecretArn:        vs[3].(string),
			RedisHost:          vs[4].(string),
			RedisAuthSecretArn: vs[5].(string),
			BrokerUrlSecretArn: vs[6].(string),
			BucketName:         vs[7].(string),
			AppSecretArn:       vs[8].(string),
			Debug:              args.Debug,
			ExtraEnvironment:   args.ExtraEnvironment,
			ExtraSecrets:       args.ExtraSecrets,
		})
		if err != nil {
			return "", err
		}
		return taskdef.Render([]taskdef.ContainerDefinition{def})
	}).(pulumi.StringOutput)

	task, err := ecs.NewTaskDefinition(ctx, name, &ecs.TaskDefinitionArgs{
		Family:                  pulumi.String("dify-console"),
		Cpu:                     pulumi.String("512"),
		Memory:                  pulumi.String("1024"),
		NetworkMode:             pulumi.String("awsvpc"),
		RequiresCompatibilities: pulumi.StringArray{pulumi.String("FARGATE")},
		RuntimePlatform: &ecs.TaskDefinitionRuntimePlatformArgs{
			OperatingSystemFamily: pulumi.String("LINUX"),
			CpuArchitecture:       pulumi.String("X86_64"),
		},
		TaskRoleArn:          taskRole.Arn,
		ExecutionRoleArn:     execRole.Arn,
		ContainerDefinitions: containerDefs,
	})
	if err != nil {
		return nil, fmt.Errorf("task definition: %w", err)
	}

	sg, err := ec2.NewSecurityGroup(ctx, name+"-sg", &ec2.SecurityGroupArgs{
		VpcId:       args.Network.VpcId,
		Description: pulumi.String("Dify console service"),
	})
	if err != nil {
		return nil, fmt.Errorf("service security group: %w", err)
	}
	if err := platform.AllowAllEgress(ctx, name+"-sg-egress", sg.ID()); err != nil {
		return nil, err
	}
	if err := args.Database.AllowFrom(ctx, name+"-to-db", sg.ID()); err != nil {
		return nil, err
	}
	if err := args.Cache.AllowFrom(ctx, name+"-to-cache", sg.ID()); err != nil {
		return nil, err
	}

	service, err := ecs.NewService(ctx, name, &ecs.ServiceArgs{
		Cluster:              args.Cluster.Arn,
		TaskDefinition:       task.Arn,
		DesiredCount:         pulumi.Int(0),
		EnableExecuteCommand: pulumi.Bool(true),
		CapacityProviderStrategies: ecs.ServiceCapacityProviderStrategyArray{
			ecs.ServiceCapacityProviderStrategyArgs{
				CapacityProvider: pulumi.String("FARGATE"),
				Weight:           pulumi.Int(1),
			},
		},
		NetworkConfiguration: &ecs.ServiceNetworkConfigurationArgs{
			AssignPublicIp: pulumi.Bool(false),
			Subnets:        args.Network.PrivateSubnetIds,
			SecurityGroups: pulumi.StringArray{sg.ID()},
		},
	}, pulumi.DependsOn([]pulumi.Resource{args.Cluster.CapacityProviders}))
	if err != nil {
		return nil, fmt.Errorf("service: %w", err)
	}

	cluster := args.Cluster.Name
	return &ConsoleService{
		Service:        service,
		TaskDefinition: task,
		ServiceName:    service.Name,
		Commands: ConsoleCommands{
			ScaleUp:   pulumi.Sprintf(cmdScaleUpFormat, cluster, service.Name),
			ScaleDown: pulumi.Sprintf(cmdScaleDownFormat, cluster, service.Name),
			ListTasks: pulumi.Sprintf(cmdListTasksFormat, cluster, service.Name),
			Shell:     pulumi.Sprintf(cmdShellFormat, cluster, ContainerConsole),
		},
	}, nil
}
