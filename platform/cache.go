package platform

import (
	"fmt"

	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/ec2"
	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/elasticache"
	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/secretsmanager"
	"github.com/pulumi/pulumi-random/sdk/v4/go/random"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
)

// CachePort is the Redis port, fixed.
const CachePort = 6379

// Cache is an ElastiCache Redis replication group with TLS and an auth
// token. It backs both the application cache and the Celery broker.
type Cache struct {
	Group *elasticache.ReplicationGroup

	// Endpoint is the primary endpoint hostname.
	Endpoint pulumi.StringOutput
	// AuthTokenSecretArn points at the secret holding the bare auth token.
	AuthTokenSecretArn pulumi.StringOutput
	// BrokerUrlSecretArn points at the secret holding the full Celery
	// broker URL. The URL embeds the token, so it travels as a secret too.
	BrokerUrlSecretArn pulumi.StringOutput
	SecurityGroupId    pulumi.StringOutput
}

// CacheArgs are the construction inputs for NewCache.
type CacheArgs struct {
	Network *Network
}

// NewCache creates the replication group, its two secrets, and a security
// group with no ingress. Callers open the port with AllowFrom.
func NewCache(ctx *pulumi.Context, name string, args *CacheArgs) (*Cache, error) {
	// ElastiCache auth tokens must be 16-128 printable characters without
	// '@', '"' or '/'.
	token, err := random.NewRandomPassword(ctx, name+"-auth-token", &random.RandomPasswordArgs{
		Length:  pulumi.Int(64),
		Special: pulumi.Bool(false),
	})
	if err != nil {
		return nil, fmt.Errorf("cache auth token: %w", err)
	}

	sg, err := ec2.NewSecurityGroup(ctx, name+"-sg", &ec2.SecurityGroupArgs{
		VpcId:       args.Network.VpcId,
		Description: pulumi.String("ElastiCache Redis access"),
	})
	if err != nil {
		return nil, fmt.Errorf("cache security group: %w", err)
	}
	if err := AllowAllEgress(ctx, name+"-sg-egress", sg.ID()); err != nil {
		return nil, err
	}

	subnets, err := elasticache.NewSubnetGroup(ctx, name, &elasticache.SubnetGroupArgs{
		SubnetIds: args.Network.PrivateSubnetIds,
	})
	if err != nil {
		return nil, fmt.Errorf("cache subnet group: %w", err)
	}

	group, err := elasticache.NewReplicationGroup(ctx, name, &elasticache.ReplicationGroupArgs{
		Description:              pulumi.String("Dify cache and Celery broker"),
		Engine:                   pulumi.String("redis"),
		EngineVersion:            pulumi.String("7.1"),
		NodeType:                 pulumi.String("cache.t4g.micro"),
		NumCacheClusters:         pulumi.Int(1),
		Port:                     pulumi.Int(CachePort),
		SubnetGroupName:          subnets.Name,
		SecurityGroupIds:         pulumi.StringArray{sg.ID()},
		AuthToken:                token.Result,
		TransitEncryptionEnabled: pulumi.Bool(true),
		AtRestEncryptionEnabled:  pulumi.Bool(true),
		AutomaticFailoverEnabled: pulumi.Bool(false),
	})
	if err != nil {
		return nil, fmt.Errorf("cache replication group: %w", err)
	}

	tokenSecret, err := secretsmanager.NewSecret(ctx, name+"-auth-token", &secretsmanager.SecretArgs{
		Description: pulumi.String("Redis auth token"),
	})
	if err != nil {
		return nil, fmt.Errorf("cache token secret: %w", err)
	}
	_, err = secretsmanager.NewSecretVersion(ctx, name+"-auth-token", &secretsmanager.SecretVersionArgs{
		SecretId:     tokenSecret.ID(),
		SecretString: token.Result,
	})
	if err != nil {
		return nil, fmt.Errorf("cache token secret version: %w", err)
	}

	brokerSecret, err := secretsmanager.NewSecret(ctx, name+"-broker-url", &secretsmanager.SecretArgs{
		Description: pulumi.String("Celery broker URL"),
	})
	if err != nil {
		return nil, fmt.Errorf("cache broker secret: %w", err)
	}
	_, err = secretsmanager.NewSecretVersion(ctx, name+"-broker-url", &secretsmanager.SecretVersionArgs{
		SecretId:     brokerSecret.ID(),
		SecretString: pulumi.Sprintf("rediss://:%s@%s:%d/1", token.Result, group.PrimaryEndpointAddress, CachePort),
	})
	if err != nil {
		return nil, fmt.Errorf("cache broker secret version: %w", err)
	}

	return &Cache{
		Group:              group,
		Endpoint:           group.PrimaryEndpointAddress,
		AuthTokenSecretArn: tokenSecret.Arn,
		BrokerUrlSecretArn: brokerSecret.Arn,
		SecurityGroupId:    sg.ID().ToStringOutput(),
	}, nil
}

// AllowFrom grants the given security group access to the Redis port.
func (c *Cache) AllowFrom(ctx *pulumi.Context, name string, source pulumi.StringInput) error {
	return allowIngress(ctx, name, c.SecurityGroupId, source, CachePort)
}
