package platform

import (
	"fmt"

	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/ec2"
	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/rds"
	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/secretsmanager"
	"github.com/pulumi/pulumi-random/sdk/v4/go/random"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
)

// DatabasePort is the PostgreSQL port, fixed.
const DatabasePort = 5432

// DatabaseName is the application database created with the cluster. The
// plugin daemon creates its own dify_plugin database on first start.
const DatabaseName = "dify"

// DatabaseUser is the master username.
const DatabaseUser = "postgres"

// Database is an Aurora PostgreSQL Serverless v2 cluster. The same cluster
// backs both the relational store and the pgvector vector store.
type Database struct {
	Cluster *rds.Cluster

	// Endpoint is the writer endpoint hostname.
	Endpoint pulumi.StringOutput
	// SecretArn points at the {username, password} credential secret, so
	// containers can reference the password JSON key.
	SecretArn       pulumi.StringOutput
	SecurityGroupId pulumi.StringOutput
}

// DatabaseArgs are the construction inputs for NewDatabase.
type DatabaseArgs struct {
	Network *Network
}

// NewDatabase creates the cluster, one serverless instance, the credential
// secret, and a security group with no ingress. Callers open ports with
// AllowFrom.
func NewDatabase(ctx *pulumi.Context, name string, args *DatabaseArgs) (*Database, error) {
	password, err := random.NewRandomPassword(ctx, name+"-password", &random.RandomPasswordArgs{
		Length:  pulumi.Int(32),
		Special: pulumi.Bool(false),
	})
	if err != nil {
		return nil, fmt.Errorf("database password: %w", err)
	}

	secret, err := secretsmanager.NewSecret(ctx, name+"-credentials", &secretsmanager.SecretArgs{
		Description: pulumi.String("Aurora PostgreSQL master credentials"),
	})
	if err != nil {
		return nil, fmt.Errorf("database secret: %w", err)
	}
	// Password charset excludes quotes, so plain interpolation is valid JSON.
	_, err = secretsmanager.NewSecretVersion(ctx, name+"-credentials", &secretsmanager.SecretVersionArgs{
		SecretId:     secret.ID(),
		SecretString: pulumi.Sprintf(`{"username":%q,"password":"%s"}`, DatabaseUser, password.Result),
	})
	if err != nil {
		return nil, fmt.Errorf("database secret version: %w", err)
	}

	sg, err := ec2.NewSecurityGroup(ctx, name+"-sg", &ec2.SecurityGroupArgs{
		VpcId:       args.Network.VpcId,
		Description: pulumi.String("Aurora PostgreSQL access"),
	})
	if err != nil {
		return nil, fmt.Errorf("database security group: %w", err)
	}
	if err := AllowAllEgress(ctx, name+"-sg-egress", sg.ID()); err != nil {
		return nil, err
	}

	subnets, err := rds.NewSubnetGroup(ctx, name, &rds.SubnetGroupArgs{
		SubnetIds: args.Network.PrivateSubnetIds,
	})
	if err != nil {
		return nil, fmt.Errorf("database subnet group: %w", err)
	}

	cluster, err := rds.NewCluster(ctx, name, &rds.ClusterArgs{
		Engine:              pulumi.String("aurora-postgresql"),
		EngineMode:          pulumi.String("provisioned"),
		EngineVersion:       pulumi.String("15.4"),
		DatabaseName:        pulumi.String(DatabaseName),
		MasterUsername:      pulumi.String(DatabaseUser),
		MasterPassword:      password.Result,
		DbSubnetGroupName:   subnets.Name,
		VpcSecurityGroupIds: pulumi.StringArray{sg.ID()},
		StorageEncrypted:    pulumi.Bool(true),
		SkipFinalSnapshot:   pulumi.Bool(true),
		Serverlessv2ScalingConfiguration: &rds.ClusterServerlessv2ScalingConfigurationArgs{
			MinCapacity: pulumi.Float64(0.5),
			MaxCapacity: pulumi.Float64(2),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("database cluster: %w", err)
	}

	_, err = rds.NewClusterInstance(ctx, name+"-writer", &rds.ClusterInstanceArgs{
		ClusterIdentifier: cluster.ClusterIdentifier,
		InstanceClass:     pulumi.String("db.serverless"),
		Engine:            cluster.Engine,
		EngineVersion:     cluster.EngineVersion,
		DbSubnetGroupName: subnets.Name,
	})
	if err != nil {
		return nil, fmt.Errorf("database instance: %w", err)
	}

	return &Database{
		Cluster:         cluster,
		Endpoint:        cluster.Endpoint,
		SecretArn:       secret.Arn,
		SecurityGroupId: sg.ID().ToStringOutput(),
	}, nil
}

// AllowFrom grants the given security group access to the database port.
func (d *Database) AllowFrom(ctx *pulumi.Context, name string, source pulumi.StringInput) error {
	return allowIngress(ctx, name, d.SecurityGroupId, source, DatabasePort)
}
