package platform

import (
	"fmt"

	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/ec2"
	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/lb"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
)

// Alb is the shared internet-facing load balancer. It listens on plain
// HTTP :80 with a fixed 404 default action; services attach path rules
// with AddService.
type Alb struct {
	LoadBalancer *lb.LoadBalancer
	Listener     *lb.Listener

	// Url is the public base URL, http scheme.
	Url             pulumi.StringOutput
	SecurityGroupId pulumi.StringOutput

	vpcId pulumi.StringOutput
}

// AddServiceArgs describes one routed service target.
type AddServiceArgs struct {
	// Port is the container port the target group forwards to.
	Port int
	// HealthCheckPath is probed on each target.
	HealthCheckPath string
	// PathPrefixes are routed to the target, each as the literal prefix
	// plus its wildcard-suffixed form.
	PathPrefixes []string
	// PriorityBase is the listener priority of the first rule; later
	// prefixes take ascending priorities.
	PriorityBase int
}

// ServiceTarget is the attachment AddService produces.
type ServiceTarget struct {
	TargetGroup *lb.TargetGroup
	// Rules carry the listener rules; services should depend on them so
	// ECS never registers targets against an unattached target group.
	Rules []pulumi.Resource
}

// NewAlb creates the load balancer, its security group, and the listener.
func NewAlb(ctx *pulumi.Context, name string, network *Network) (*Alb, error) {
	sg, err := ec2.NewSecurityGroup(ctx, name+"-sg", &ec2.SecurityGroupArgs{
		VpcId:       network.VpcId,
		Description: pulumi.String("ALB ingress"),
		Ingress: ec2.SecurityGroupIngressArray{
			ec2.SecurityGroupIngressArgs{
				Protocol:   pulumi.String("tcp"),
				FromPort:   pulumi.Int(80),
				ToPort:     pulumi.Int(80),
				CidrBlocks: pulumi.StringArray{pulumi.String("0.0.0.0/0")},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("alb security group: %w", err)
	}
	if err := AllowAllEgress(ctx, name+"-sg-egress", sg.ID()); err != nil {
		return nil, err
	}

	alb, err := lb.NewLoadBalancer(ctx, name, &lb.LoadBalancerArgs{
		Internal:         pulumi.Bool(false),
		LoadBalancerType: pulumi.String("application"),
		SecurityGroups:   pulumi.StringArray{sg.ID()},
		Subnets:          network.PublicSubnetIds,
	})
	if err != nil {
		return nil, fmt.Errorf("alb: %w", err)
	}

	listener, err := lb.NewListener(ctx, name, &lb.ListenerArgs{
		LoadBalancerArn: alb.Arn,
		Port:            pulumi.Int(80),
		Protocol:        pulumi.String("HTTP"),
		DefaultActions: lb.ListenerDefaultActionArray{
			lb.ListenerDefaultActionArgs{
				Type: pulumi.String("fixed-response"),
				FixedResponse: &lb.ListenerDefaultActionFixedResponseArgs{
					ContentType: pulumi.String("text/plain"),
					MessageBody: pulumi.String("Not Found"),
					StatusCode:  pulumi.String("404"),
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("alb listener: %w", err)
	}

	return &Alb{
		LoadBalancer:    alb,
		Listener:        listener,
		Url:             pulumi.Sprintf("http://%s", alb.DnsName),
		SecurityGroupId: sg.ID().ToStringOutput(),
		vpcId:           network.VpcId,
	}, nil
}

// AddService creates a target group and one listener rule per path prefix.
func (a *Alb) AddService(ctx *pulumi.Context, name string, args *AddServiceArgs) (*ServiceTarget, error) {
	tg, err := lb.NewTargetGroup(ctx, name, &lb.TargetGroupArgs{
		Port:                pulumi.Int(args.Port),
		Protocol:            pulumi.String("HTTP"),
		TargetType:          pulumi.String("ip"),
		VpcId:               a.vpcId,
		DeregistrationDelay: pulumi.Int(30),
		HealthCheck: &lb.TargetGroupHealthCheckArgs{
			Path:               pulumi.String(args.HealthCheckPath),
			Interval:           pulumi.Int(15),
			HealthyThreshold:   pulumi.Int(2),
			UnhealthyThreshold: pulumi.Int(5),
			Matcher:            pulumi.String("200"),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("target group %s: %w", name, err)
	}

	rules := make([]pulumi.Resource, 0, len(args.PathPrefixes))
	for i, prefix := range args.PathPrefixes {
		rule, err := lb.NewListenerRule(ctx, fmt.Sprintf("%s-rule-%d", name, i), &lb.ListenerRuleArgs{
			ListenerArn: a.Listener.Arn,
			Priority:    pulumi.Int(args.PriorityBase + i),
			Actions: lb.ListenerRuleActionArray{
				lb.ListenerRuleActionArgs{
					Type:           pulumi.String("forward"),
					TargetGroupArn: tg.Arn,
				},
			},
			Conditions: lb.ListenerRuleConditionArray{
				lb.ListenerRuleConditionArgs{
					PathPattern: &lb.ListenerRuleConditionPathPatternArgs{
						Values: pulumi.ToStringArray(PathPatterns(prefix)),
					},
				},
			},
		})
		if err != nil {
			return nil, fmt.Errorf("listener rule %s[%d]: %w", name, i, err)
		}
		rules = append(rules, rule)
	}

	return &ServiceTarget{TargetGroup: tg, Rules: rules}, nil
}

// PathPatterns expands a path prefix into the pattern pair a routing rule
// matches: the literal prefix and its wildcard-suffixed form.
func PathPatterns(prefix string) []string {
	return []string{prefix, prefix + "/*"}
}
