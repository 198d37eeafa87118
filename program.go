package difyaws

import (
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"

	"github.com/remote-swe-user/dify-self-hosted-on-aws/dify"
	"github.com/remote-swe-user/dify-self-hosted-on-aws/platform"
)

// Program returns the Pulumi program wiring the collaborators into both
// service assemblers. Construction is one synchronous pass building a
// resource graph; reconciliation belongs to the engine.
func Program(cfg *Config) pulumi.RunFunc {
	return func(ctx *pulumi.Context) error {
		network, err := platform.NewNetwork(ctx, "dify")
		if err != nil {
			return err
		}
		cluster, err := platform.NewCluster(ctx, "dify")
		if err != nil {
			return err
		}
		database, err := platform.NewDatabase(ctx, "dify-db", &platform.DatabaseArgs{
			Network: network,
		})
		if err != nil {
			return err
		}
		cache, err := platform.NewCache(ctx, "dify-cache", &platform.CacheArgs{
			Network: network,
		})
		if err != nil {
			return err
		}
		storage, err := platform.NewStorage(ctx, "dify")
		if err != nil {
			return err
		}
		alb, err := platform.NewAlb(ctx, "dify-alb", network)
		if err != nil {
			return err
		}

		appSecret, err := dify.NewAppSecret(ctx, "dify-app-secret")
		if err != nil {
			return err
		}

		api, err := dify.NewApiService(ctx, "dify-api", &dify.ApiServiceArgs{
			Region:                cfg.Region,
			Network:               network,
			Cluster:               cluster,
			Database:              database,
			Cache:                 cache,
			Storage:               storage,
			Alb:                   alb,
			AppSecret:             appSecret,
			ApiImage:              cfg.ApiImage(),
			SandboxImage:          cfg.SandboxImage(),
			PluginDaemonImage:     cfg.PluginDaemonImage(),
			KnowledgeBaseImage:    cfg.KnowledgeBaseImageRef(),
			AllowAnySysCalls:      cfg.AllowAnySysCalls,
			Debug:                 cfg.Debug,
			SandboxPythonPackages: cfg.SandboxPythonPackages,
			ExtraEnvironment:      cfg.ApiEnvironment,
		})
		if err != nil {
			return err
		}

		console, err := dify.NewConsoleService(ctx, "dify-console", &dify.ConsoleServiceArgs{
			Region:           cfg.Region,
			Network:          network,
			Cluster:          cluster,
			Database:         database,
			Cache:            cache,
			Storage:          storage,
			Alb:              alb,
			AppSecret:        appSecret,
			Image:            cfg.ConsoleImage(),
			Debug:            cfg.Debug,
			ExtraEnvironment: cfg.ConsoleEnvironment,
			ExtraSecrets:     cfg.ConsoleSecrets,
		})
		if err != nil {
			return err
		}

		ctx.Export("albUrl", alb.Url)
		ctx.Export("clusterName", cluster.Name)
		ctx.Export("apiServiceName", api.ServiceName)
		ctx.Export("consoleServiceName", console.ServiceName)
		ctx.Export("consoleScaleUpCommand", console.Commands.ScaleUp)
		ctx.Export("consoleScaleDownCommand", console.Commands.ScaleDown)
		ctx.Export("consoleListTasksCommand", console.Commands.ListTasks)
		ctx.Export("consoleShellCommand", console.Commands.Shell)
		return nil
	}
}
