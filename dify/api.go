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

// ApiServiceArgs are the construction inputs of the primary service.
type ApiServiceArgs struct {
	Region string

	Network  *platform.Network
	Cluster  *platform.Cluster
	Database *platform.Database
	Cache    *platform.Cache
	Storage  *platform.Storage
	Alb      *platform.Alb

	AppSecret *AppSecret

	ApiImage           string
	SandboxImage       string
	PluginDaemonImage  string
	KnowledgeBaseImage string

	AllowAnySysCalls      bool
	Debug                 bool
	SandboxPythonPackages []string

	// ExtraEnvironment overrides the serving and worker environment.
	ExtraEnvironment map[string]string
}

// ApiService is the primary deployable unit: one Fargate task with the
// six application containers, fronted by the shared ALB.
type ApiService struct {
	Service        *ecs.Service
	TaskDefinition *ecs.TaskDefinition

	ServiceName     pulumi.StringOutput
	SecurityGroupId pulumi.StringOutput
}

// NewApiService declares the task definition, roles, security wiring,
// routing, and the ECS service. Failures here are construction failures;
// deployment and runtime failures surface from the provider.
func NewApiService(ctx *pulumi.Context, name string, args *ApiServiceArgs) (*ApiService, error) {
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
	execRole, err := newExecutionRole(ctx, name+"-execution", []pulumi.StringOutput{
		args.AppSecret.Arn,
		args.Database.SecretArn,
		args.Cache.AuthTokenSecretArn,
		args.Cache.BrokerUrlSecretArn,
	})
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
		defs, err := ApiContainers(ApiContainerInputs{
			Region:                args.Region,
			LogGroup:              vs[0].(string),
			ApiImage:              args.ApiImage,
			SandboxImage:          args.SandboxImage,
			PluginDaemonImage:     args.PluginDaemonImage,
			KnowledgeBaseImage:    args.KnowledgeBaseImage,
			AlbUrl:                vs[1].(string),
			DbHost:                vs[2].(string),
			DbSecretArn:           vs[3].(string),
			RedisHost:             vs[4].(string),
			RedisAuthSecretArn:    vs[5].(string),
			BrokerUrlSecretArn:    vs[6].(string),
			BucketName:            vs[7].(string),
			AppSecretArn:          vs[8].(string),
			AllowAnySysCalls:      args.AllowAnySysCalls,
			Debug:                 args.Debug,
			SandboxPythonPackages: args.SandboxPythonPackages,
			ExtraEnvironment:      args.ExtraEnvironment,
		})
		if err != nil {
			return "", err
		}
		return taskdef.Render(defs)
	}).(pulumi.StringOutput)

	task, err := ecs.NewTaskDefinition(ctx, name, &ecs.TaskDefinitionArgs{
		Family:                  pulumi.String("dify-api"),
		Cpu:                     pulumi.String("2048"),
		Memory:                  pulumi.String("4096"),
		NetworkMode:             pulumi.String("awsvpc"),
		RequiresCompatibilities: pulumi.StringArray{pulumi.String("FARGATE")},
		RuntimePlatform: &ecs.TaskDefinitionRuntimePlatformArgs{
			OperatingSystemFamily: pulumi.String("LINUX"),
			CpuArchitecture:       pulumi.String("X86_64"),
		},
		TaskRoleArn:          taskRole.Arn,
		ExecutionRoleArn:     execRole.Arn,
		ContainerDefinitions: containerDefs,
		Volumes: ecs.TaskDefinitionVolumeArray{
			ecs.TaskDefinitionVolumeArgs{Name: pulumi.String(dependenciesVolume)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("task definition: %w", err)
	}

	sg, err := ec2.NewSecurityGroup(ctx, name+"-sg", &ec2.SecurityGroupArgs{
		VpcId:       args.Network.VpcId,
		Description: pulumi.String("Dify API service"),
	})
	if err != nil {
		return nil, fmt.Errorf("service security group: %w", err)
	}
	if err := platform.AllowAllEgress(ctx, name+"-sg-egress", sg.ID()); err != nil {
		return nil, err
	}
	_, err = ec2.NewSecurityGroupRule(ctx, name+"-from-alb", &ec2.SecurityGroupRuleArgs{
		Type:                  pulumi.String("ingress"),
		Protocol:              pulumi.String("tcp"),
		FromPort:              pulumi.Int(ServingPort),
		ToPort:                pulumi.Int(ServingPort),
		SecurityGroupId:       sg.ID(),
		SourceSecurityGroupId: args.Alb.SecurityGroupId,
	})
	if err != nil {
		return nil, fmt.Errorf("alb ingress rule: %w", err)
	}
	if err := args.Database.AllowFrom(ctx, name+"-to-db", sg.ID()); err != nil {
		return nil, err
	}
	if err := args.Cache.AllowFrom(ctx, name+"-to-cache", sg.ID()); err != nil {
		return nil, err
	}

	target, err := args.Alb.AddService(ctx, name, &platform.AddServiceArgs{
		Port:            ServingPort,
		HealthCheckPath: "/health",
		PathPrefixes:    RoutedPathPrefixes,
		PriorityBase:    10,
	})
	if err != nil {
		return nil, err
	}

	service, err := ecs.NewService(ctx, name, &ecs.ServiceArgs{
		Cluster:              args.Cluster.Arn,
		TaskDefinition:       task.Arn,
		DesiredCount:         pulumi.Int(1),
		EnableExecuteCommand: pulumi.Bool(true),
		// Spot-biased: two of every three added tasks land on spot, with
		// one on-demand task as the floor.
		CapacityProviderStrategies: ecs.ServiceCapacityProviderStrategyArray{
			ecs.ServiceCapacityProviderStrategyArgs{
				CapacityProvider: pulumi.String("FARGATE_SPOT"),
				Weight:           pulumi.Int(2),
			},
			ecs.ServiceCapacityProviderStrategyArgs{
				CapacityProvider: pulumi.String("FARGATE"),
				Weight:           pulumi.Int(1),
				Base:             pulumi.Int(1),
			},
		},
		NetworkConfiguration: &ecs.ServiceNetworkConfigurationArgs{
			AssignPublicIp: pulumi.Bool(false),
			Subnets:        args.Network.PrivateSubnetIds,
			SecurityGroups: pulumi.StringArray{sg.ID()},
		},
		LoadBalancers: ecs.ServiceLoadBalancerArray{
			ecs.ServiceLoadBalancerArgs{
				TargetGroupArn: target.TargetGroup.Arn,
				ContainerName:  pulumi.String(ContainerServing),
				ContainerPort:  pulumi.Int(ServingPort),
			},
		},
		HealthCheckGracePeriodSeconds: pulumi.Int(120),
		// Routing rules must exist before targets register, and the
		// capacity providers must be associated before the strategy can
		// name them.
	}, pulumi.DependsOn(append([]pulumi.Resource{args.Cluster.CapacityProviders}, target.Rules...)))
	if err != nil {
		return nil, fmt.Errorf("service: %w", err)
	}

	return &ApiService{
		Service:         service,
		TaskDefinition:  task,
		ServiceName:     service.Name,
		SecurityGroupId: sg.ID().ToStringOutput(),
	}, nil
}
