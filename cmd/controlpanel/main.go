package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/analytical-platform/controlpanel/cmd/controlpanel/handlers"
	"github.com/analytical-platform/controlpanel/pkg/cloud"
	"github.com/analytical-platform/controlpanel/pkg/cluster"
	"github.com/analytical-platform/controlpanel/pkg/configs"
	kpool "github.com/analytical-platform/controlpanel/pkg/conn/db/postgres/pool"
	pgapp "github.com/analytical-platform/controlpanel/pkg/domain/app/db/postgres"
	pgbucket "github.com/analytical-platform/controlpanel/pkg/domain/bucket/db/postgres"
	pgdash "github.com/analytical-platform/controlpanel/pkg/domain/dashboard/db/postgres"
	pggrant "github.com/analytical-platform/controlpanel/pkg/domain/grant/db/postgres"
	pgpolicy "github.com/analytical-platform/controlpanel/pkg/domain/policy/db/postgres"
	pgtask "github.com/analytical-platform/controlpanel/pkg/domain/task/db/postgres"
	pgtool "github.com/analytical-platform/controlpanel/pkg/domain/tool/db/postgres"
	pguser "github.com/analytical-platform/controlpanel/pkg/domain/user/db/postgres"
	"github.com/analytical-platform/controlpanel/pkg/identity"
	"github.com/analytical-platform/controlpanel/pkg/orchestrator"
	"github.com/analytical-platform/controlpanel/pkg/policy"
	"github.com/analytical-platform/controlpanel/pkg/utils/echoutil"
	"github.com/analytical-platform/controlpanel/pkg/utils/filewatch"
	"github.com/analytical-platform/controlpanel/pkg/utils/retry"
)

func main() {
	configPath := flag.String("config-path", "", "config file path")
	loglevel := flag.String("loglevel", "info", "log level. debug|info|warn|error|off")
	pcert := flag.String("cert", "", "certification file for TLS")
	pkey := flag.String("certkey", "", "key of certification file for TLS")
	flag.Parse()

	logger := log.New(os.Stderr, "controlpanel: ", log.LstdFlags)

	e := echo.New()
	e.Pre(middleware.AddTrailingSlash())

	echoutil.SetLevel(e, *loglevel)
	e.HTTPErrorHandler = func(err error, ctx echo.Context) {
		e.DefaultHTTPErrorHandler(err, ctx)
		e.Logger.Error(err)
	}
	e.Use(echoutil.LogHandlerFunc)

	conf, err := configs.Load(*configPath)
	if err != nil {
		log.Fatalf("can not read configuration: %s", err)
	}

	ctx := context.Background()
	{
		// restart (via supervisor) when the config file changes
		watched, cancel, err := filewatch.UntilModifyContext(ctx, *configPath)
		if err != nil {
			log.Fatalf("can not watch configuration: %s", err)
		}
		defer cancel()
		ctx = watched
		context.AfterFunc(ctx, func() {
			logger.Println("config file updated. quit to restart server.")
			graceful, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := e.Shutdown(graceful); err != nil {
				logger.Printf("error on shutdown by config update: %s", err)
			}
		})
	}

	db, err := kpool.Connect(ctx, conf.Database())
	if err != nil {
		log.Fatalf("can not connect to database: %s", err)
	}
	defer db.Close()

	userDB := pguser.New(db)
	appDB := pgapp.New(db)
	bucketDB := pgbucket.New(db)
	grantDB := pggrant.New(db)
	policyDB := pgpolicy.New(db)
	taskDB := pgtask.New(db)
	toolDB := pgtool.New(db)
	dashDB := pgdash.New(db)

	awsCfg, err := cloud.NewSessions().Get(ctx, cloud.SessionKey{
		Profile:       conf.Cloud().Profile(),
		AssumeRoleARN: conf.Cloud().AssumeRoleARN(),
		Region:        conf.Cloud().Region(),
	})
	if err != nil {
		log.Fatalf("can not build cloud session: %s", err)
	}
	roles := cloud.NewRolesFromConfig(awsCfg, conf.Cloud().PolicyARNBase(), conf.Cloud().TrustedEntity())
	editor := policy.NewManager(cloud.NewCarrierStore(roles))

	submitter := orchestrator.NewSubmitter(taskDB, orchestrator.NewBrokerFromConfig(awsCfg), logger)

	hub := orchestrator.NewHub()
	go func() {
		// worker processes publish completion events over pg_notify
		_, _ = retry.Blocking(ctx, retry.StaticBackoff(5*time.Second), func() (struct{}, error) {
			if err := orchestrator.ListenEvents(ctx, conf.Database(), hub, logger); err != nil {
				logger.Printf("event listener lost: %s", err)
			}
			return struct{}{}, retry.ErrRetry
		})
	}()

	ident := identity.New(conf.Identity().BaseURL(), identity.Credentials{
		ClientID:     conf.Identity().ClientID(),
		ClientSecret: conf.Identity().ClientSecret(),
		Audience:     conf.Identity().Audience(),
		TokenURL:     conf.Identity().TokenURL(),
	}, nil)

	keys := identity.NewJWKS(conf.OIDC().JWKSURL(), nil)
	verifier := identity.NewTokenVerifier(keys, conf.OIDC().Issuer(), conf.OIDC().Audience())
	e.Use(handlers.Authenticate(verifier, userDB, &orchestrator.UserInitialiser{
		Env:          conf.Env(),
		Roles:        roles,
		BasePolicies: conf.Users().BasePolicies(),
		Tasks:        submitter,
		Logger:       logger,
	}))

	k8sConfig, err := cluster.RestConfig()
	if err != nil {
		log.Fatalf("can not detect cluster configuration: %s", err)
	}
	k8sBase, err := url.Parse(k8sConfig.Host)
	if err != nil {
		log.Fatalf("cluster host %q is not a URL: %s", k8sConfig.Host, err)
	}
	k8sClient, err := cluster.Connect()
	if err != nil {
		log.Fatalf("can not connect to cluster: %s", err)
	}
	tracker := cluster.NewTracker(cluster.WrapK8sClient(k8sClient))

	env := conf.Env()

	// handlers
	{
		e.GET("/api/users/", handlers.FindUsersHandler(userDB))
		e.GET("/api/users/:userSub/", handlers.GetUserHandler(userDB, "userSub"))
		e.DELETE("/api/users/:userSub/", handlers.DeleteUserHandler(userDB, roles, env, "userSub"))
		e.POST("/api/users/:userSub/reset-home/", handlers.ResetUserHomeHandler(userDB, submitter, "userSub"))
	}

	{
		e.GET("/api/s3buckets/", handlers.FindBucketsHandler(bucketDB))
		e.POST("/api/s3buckets/", handlers.CreateBucketHandler(env, bucketDB, grantDB, submitter))
		e.GET("/api/s3buckets/:bucketName/", handlers.GetBucketHandler(bucketDB, "bucketName"))
		e.DELETE("/api/s3buckets/:bucketName/", handlers.ArchiveBucketHandler(bucketDB, grantDB, submitter, "bucketName"))
		e.GET("/api/s3buckets/:bucketName/access/", handlers.FindBucketGrantsHandler(grantDB, "bucketName"))
	}

	{
		e.GET("/api/users3buckets/", handlers.FindUserGrantsHandler(grantDB))
		e.POST("/api/users3buckets/", handlers.CreateUserGrantHandler(grantDB, userDB, submitter))
		e.PUT("/api/users3buckets/:id/", handlers.UpdateUserGrantHandler(grantDB, submitter, "id"))
		e.DELETE("/api/users3buckets/:id/", handlers.DeleteUserGrantHandler(grantDB, submitter, "id"))

		e.POST("/api/apps3buckets/", handlers.CreateAppGrantHandler(grantDB, submitter))
		e.PUT("/api/apps3buckets/:id/", handlers.UpdateAppGrantHandler(grantDB, submitter, "id"))
		e.DELETE("/api/apps3buckets/:id/", handlers.DeleteAppGrantHandler(grantDB, submitter, "id"))
	}

	{
		e.GET("/api/apps/", handlers.FindAppsHandler(appDB))
		e.POST("/api/apps/", handlers.CreateAppHandler(appDB, submitter))
		e.GET("/api/apps/:appId/", handlers.GetAppHandler(appDB, "appId"))
		e.DELETE("/api/apps/:appId/", handlers.DeleteAppHandler(appDB, ident, roles, env, "appId"))
		e.GET("/api/apps/:appId/s3buckets/", handlers.FindAppGrantsHandler(grantDB, "appId"))
		e.GET("/api/apps/:appId/allowlists/", handlers.GetAppAllowlistsHandler(appDB, "appId"))
		e.PUT("/api/apps/:appId/allowlists/", handlers.SetAppAllowlistsHandler(appDB, "appId"))

		e.GET("/api/apps/:appId/customers/", handlers.FindAppCustomersHandler(appDB, ident, env, "appId"))
		e.POST("/api/apps/:appId/customers/", handlers.AddAppCustomersHandler(appDB, ident, env, "appId"))
		e.DELETE("/api/apps/:appId/customers/:userId/", handlers.DeleteAppCustomerHandler(appDB, ident, env, "appId", "userId"))
	}

	{
		e.GET("/api/policies/", handlers.FindPoliciesHandler(policyDB))
		e.POST("/api/policies/", handlers.CreatePolicyHandler(policyDB, roles))
		e.GET("/api/policies/:id/", handlers.GetPolicyHandler(policyDB, "id"))
		e.DELETE("/api/policies/:id/", handlers.DeletePolicyHandler(policyDB, roles, env, "id"))

		e.GET("/api/policies/:id/members/", handlers.FindPolicyMembersHandler(policyDB, "id"))
		e.POST("/api/policies/:id/members/", handlers.AddPolicyMemberHandler(policyDB, userDB, roles, env, "id"))
		e.DELETE("/api/policies/:id/members/:userSub/", handlers.RemovePolicyMemberHandler(policyDB, userDB, roles, env, "id", "userSub"))
		e.POST("/api/policies/:id/sweep/", handlers.SweepPolicyHandler(policyDB, submitter, "id"))

		e.POST("/api/policys3buckets/", handlers.CreatePolicyGrantHandler(grantDB, policyDB, editor))
		e.DELETE("/api/policys3buckets/:id/", handlers.DeletePolicyGrantHandler(grantDB, policyDB, editor, "id"))
	}

	{
		e.GET("/api/tools/", handlers.FindToolsHandler(toolDB, tracker))
		e.POST("/api/tools/", handlers.RegisterReleaseHandler(toolDB))
		e.DELETE("/api/tools/:id/", handlers.DeleteReleaseHandler(toolDB, "id"))
		e.GET("/api/deployments/", handlers.FindDeploymentsHandler(toolDB))
		e.POST("/api/deployments/", handlers.DeployToolHandler(toolDB, submitter))
		e.POST("/api/deployments/:chart/restart/", handlers.RestartToolHandler(toolDB, submitter, "chart"))
		e.DELETE("/api/deployments/:chart/", handlers.UninstallToolHandler(toolDB, submitter, "chart"))
	}

	{
		e.GET("/api/tasks/", handlers.FindTasksHandler(taskDB))
		e.GET("/api/tasks/:id/", handlers.GetTaskHandler(taskDB, "id"))
		e.DELETE("/api/tasks/:id/", handlers.CancelTaskHandler(taskDB, "id"))
		e.GET("/api/events/", handlers.EventStreamHandler(hub))
	}

	{
		e.GET("/api/dashboards/", handlers.FindDashboardsHandler(dashDB))
		e.POST("/api/dashboards/", handlers.RegisterDashboardHandler(dashDB))
		e.GET("/api/dashboards/:id/", handlers.GetDashboardHandler(dashDB, "id"))
		e.DELETE("/api/dashboards/:id/", handlers.DeleteDashboardHandler(dashDB, "id"))
		e.POST("/api/dashboards/:id/viewers/", handlers.AddDashboardViewerHandler(dashDB, "id"))
		e.DELETE("/api/dashboards/:id/viewers/", handlers.RemoveDashboardViewerHandler(dashDB, "id"))
	}

	{
		proxy := handlers.K8sProxyHandler(k8sBase, k8sConfig, "*")
		e.Any("/api/k8s/*", proxy)
	}

	log.Println("registered routes:")
	for _, r := range e.Routes() {
		log.Println(r.Method, r.Path)
	}

	port := fmt.Sprintf(":%d", conf.Port())
	cert, key := *pcert, *pkey
	if cert != "" && key != "" {
		e.Logger.Fatal(e.StartTLS(port, cert, key))
	} else {
		e.Logger.Fatal(e.Start(port))
	}
}
