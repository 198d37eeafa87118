// Package platform provisions the collaborator constructs the Dify services
// deploy onto: the VPC, the ECS cluster, the Aurora PostgreSQL database, the
// ElastiCache Redis broker, the S3 storage bucket, and the shared ALB.
//
// Each construct is a plain constructor returning a handle struct that
// exposes endpoints, managed-secret references, and security-group grants.
// The service assemblers in package dify consume these handles and never
// reach into provider resources directly.
package platform

import (
	"fmt"

	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/ec2"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
)

// allowIngress opens one TCP port on target for traffic from source.
func allowIngress(ctx *pulumi.Context, name string, target pulumi.StringInput, source pulumi.StringInput, port int) error {
	_, err := ec2.NewSecurityGroupRule(ctx, name, &ec2.SecurityGroupRuleArgs{
		Type:                  pulumi.String("ingress"),
		Protocol:              pulumi.String("tcp"),
		FromPort:              pulumi.Int(port),
		ToPort:                pulumi.Int(port),
		SecurityGroupId:       target,
		SourceSecurityGroupId: source,
	})
	if err != nil {
		return fmt.Errorf("ingress rule %s: %w", name, err)
	}
	return nil
}

// AllowAllEgress attaches an allow-everything egress rule. The standalone
// SecurityGroup resource revokes AWS's default egress, so every group
// needs the rule back explicitly or its members cannot pull images, fetch
// secrets, or reach anything at all.
func AllowAllEgress(ctx *pulumi.Context, name string, sg pulumi.StringInput) error {
	_, err := ec2.NewSecurityGroupRule(ctx, name, &ec2.SecurityGroupRuleArgs{
		Type:            pulumi.String("egress"),
		Protocol:        pulumi.String("-1"),
		FromPort:        pulumi.Int(0),
		ToPort:          pulumi.Int(0),
		CidrBlocks:      pulumi.StringArray{pulumi.String("0.0.0.0/0")},
		SecurityGroupId: sg,
	})
	if err != nil {
		return fmt.Errorf("egress rule %s: %w", name, err)
	}
	return nil
}
