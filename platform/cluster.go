package platform

import (
	"fmt"

	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/ecs"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
)

// Cluster is the ECS cluster both services run on, with the FARGATE and
// FARGATE_SPOT capacity providers attached so services can declare a
// spot-biased strategy.
type Cluster struct {
	Cluster *ecs.Cluster

	// CapacityProviders is the FARGATE/FARGATE_SPOT association. Services
	// naming those providers in their strategy must depend on it, or the
	// provider may create the service before the association exists.
	CapacityProviders *ecs.ClusterCapacityProviders

	Arn  pulumi.StringOutput
	Name pulumi.StringOutput
}

// NewCluster creates the cluster with container insights enabled.
func NewCluster(ctx *pulumi.Context, name string) (*Cluster, error) {
	cluster, err := ecs.NewCluster(ctx, name, &ecs.ClusterArgs{
		Settings: ecs.ClusterSettingArray{
			ecs.ClusterSettingArgs{
				Name:  pulumi.String("containerInsights"),
				Value: pulumi.String("enabled"),
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("cluster: %w", err)
	}

	providers, err := ecs.NewClusterCapacityProviders(ctx, name, &ecs.ClusterCapacityProvidersArgs{
		ClusterName: cluster.Name,
		CapacityProviders: pulumi.StringArray{
			pulumi.String("FARGATE"),
			pulumi.String("FARGATE_SPOT"),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("cluster capacity providers: %w", err)
	}

	return &Cluster{
		Cluster:           cluster,
		CapacityProviders: providers,
		Arn:               cluster.Arn,
		Name:              cluster.Name,
	}, nil
}
