package platform

import (
	"fmt"

	awsxec2 "github.com/pulumi/pulumi-awsx/sdk/v2/go/awsx/ec2"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
)

// Network is the VPC everything else lives in: public subnets for the ALB,
// private subnets for tasks and datastores.
type Network struct {
	Vpc *awsxec2.Vpc

	VpcId            pulumi.StringOutput
	PublicSubnetIds  pulumi.StringArrayOutput
	PrivateSubnetIds pulumi.StringArrayOutput
}

// NewNetwork creates a two-AZ VPC with a single NAT gateway. One NAT is a
// cost choice, not an availability one: losing the NAT AZ stalls image
// pulls until ECS reschedules.
func NewNetwork(ctx *pulumi.Context, name string) (*Network, error) {
	vpc, err := awsxec2.NewVpc(ctx, name, &awsxec2.VpcArgs{
		NumberOfAvailabilityZones: pulumi.IntRef(2),
		NatGateways: &awsxec2.NatGatewayConfigurationArgs{
			Strategy: awsxec2.NatGatewayStrategySingle,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("vpc: %w", err)
	}

	return &Network{
		Vpc:              vpc,
		VpcId:            vpc.VpcId,
		PublicSubnetIds:  vpc.PublicSubnetIds,
		PrivateSubnetIds: vpc.PrivateSubnetIds,
	}, nil
}
