package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/analytical-platform/controlpanel/pkg/cloud"
	"github.com/analytical-platform/controlpanel/pkg/cluster"
	"github.com/analytical-platform/controlpanel/pkg/configs"
	kpool "github.com/analytical-platform/controlpanel/pkg/conn/db/postgres/pool"
	"github.com/analytical-platform/controlpanel/pkg/domain"
	pgapp "github.com/analytical-platform/controlpanel/pkg/domain/app/db/postgres"
	pgbucket "github.com/analytical-platform/controlpanel/pkg/domain/bucket/db/postgres"
	pggrant "github.com/analytical-platform/controlpanel/pkg/domain/grant/db/postgres"
	pgpolicy "github.com/analytical-platform/controlpanel/pkg/domain/policy/db/postgres"
	ktask "github.com/analytical-platform/controlpanel/pkg/domain/task/db"
	pgtask "github.com/analytical-platform/controlpanel/pkg/domain/task/db/postgres"
	pgtool "github.com/analytical-platform/controlpanel/pkg/domain/tool/db/postgres"
	pguser "github.com/analytical-platform/controlpanel/pkg/domain/user/db/postgres"
	"github.com/analytical-platform/controlpanel/pkg/identity"
	"github.com/analytical-platform/controlpanel/pkg/orchestrator"
	"github.com/analytical-platform/controlpanel/pkg/policy"
	"github.com/analytical-platform/controlpanel/pkg/utils/filewatch"
)

func queueByName(name string) (domain.QueueName, error) {
	for _, q := range []domain.QueueName{
		domain.IAMQueue, domain.AuthQueue, domain.S3Queue, domain.DefaultQueue,
	} {
		if name == q.String() {
			return q, nil
		}
	}
	return "", errors.New("unknown queue: " + name)
}

func main() {
	// "worker update-policy --policy-name X [--attach]" runs one
	// policy sweep in-process and exits; anything else consumes a
	// queue until signalled.
	args := os.Args[1:]
	subcommand := ""
	if 0 < len(args) && args[0] == "update-policy" {
		subcommand = args[0]
		args = args[1:]
	}

	flags := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	configPath := flags.String("config-path", "", "config file path")
	queueName := flags.String("queue", domain.DefaultQueue.String(), "queue to consume. iam_queue|auth_queue|s3_queue|default")
	policyName := flags.String("policy-name", "", "managed policy to sweep (update-policy)")
	attach := flags.Bool("attach", false, "attach instead of detach (update-policy)")
	flags.Parse(args)

	logger := log.New(os.Stderr, "worker: ", log.LstdFlags)

	conf, err := configs.Load(*configPath)
	if err != nil {
		log.Fatalf("can not read configuration: %s", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if subcommand == "" {
		// restart (via supervisor) when the config file changes
		watched, cancel, err := filewatch.UntilModifyContext(ctx, *configPath)
		if err != nil {
			log.Fatalf("can not watch configuration: %s", err)
		}
		defer cancel()
		ctx = watched
	}

	db, err := kpool.Connect(ctx, conf.Database())
	if err != nil {
		log.Fatalf("can not connect to database: %s", err)
	}
	defer db.Close()

	awsCfg, err := cloud.NewSessions().Get(ctx, cloud.SessionKey{
		Profile:       conf.Cloud().Profile(),
		AssumeRoleARN: conf.Cloud().AssumeRoleARN(),
		Region:        conf.Cloud().Region(),
	})
	if err != nil {
		log.Fatalf("can not build cloud session: %s", err)
	}
	roles := cloud.NewRolesFromConfig(awsCfg, conf.Cloud().PolicyARNBase(), conf.Cloud().TrustedEntity())

	k8sClient, err := cluster.Connect()
	if err != nil {
		log.Fatalf("can not connect to cluster: %s", err)
	}
	helm := cluster.NewHelm(
		conf.Helm().RepoName(), conf.Helm().RepoURL(), conf.Helm().CachePath(),
		cluster.WithLogger(logger),
	)

	taskDB := pgtask.New(db)
	handlers := &orchestrator.Handlers{
		Env: conf.Env(),

		Buckets:  cloud.NewBucketsFromConfig(awsCfg),
		Roles:    roles,
		Policies: policy.NewManager(cloud.NewCarrierStore(roles)),
		Identity: identity.New(conf.Identity().BaseURL(), identity.Credentials{
			ClientID:     conf.Identity().ClientID(),
			ClientSecret: conf.Identity().ClientSecret(),
			Audience:     conf.Identity().Audience(),
			TokenURL:     conf.Identity().TokenURL(),
		}, nil),

		Helm:    helm,
		Index:   cluster.NewChartIndex(helm),
		Tracker: cluster.NewTracker(cluster.WrapK8sClient(k8sClient)),

		UserDB:   pguser.New(db),
		AppDB:    pgapp.New(db),
		BucketDB: pgbucket.New(db),
		GrantDB:  pggrant.New(db),
		PolicyDB: pgpolicy.New(db),
		ToolDB:   pgtool.New(db),

		AppBasePolicies:     conf.Apps().BasePolicies(),
		AppCallbackTemplate: conf.Apps().CallbackTemplate(),
		UninstallTimeout:    conf.Helm().UninstallTimeout(),

		Logger: logger,
	}

	if subcommand == "update-policy" {
		if *policyName == "" {
			log.Fatal("update-policy needs --policy-name")
		}
		runUpdatePolicy(ctx, handlers, taskDB, *policyName, *attach)
		return
	}

	queue, err := queueByName(*queueName)
	if err != nil {
		log.Fatalf("%s", err)
	}

	registry := orchestrator.NewRegistry()
	handlers.RegisterAll(registry)

	worker := orchestrator.NewWorker(
		queue,
		orchestrator.NewBrokerFromConfig(awsCfg),
		taskDB,
		registry,
		orchestrator.NewPGNotifier(db, logger),
		logger,
	)
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("worker stopped: %s", err)
	}
}

// runUpdatePolicy executes the all-users policy sweep directly,
// without a queue round-trip. Used for operational one-offs.
func runUpdatePolicy(ctx context.Context, handlers *orchestrator.Handlers, taskDB ktask.Interface, policyName string, attach bool) {
	msg := orchestrator.Message{
		ID:    uuid.NewString(),
		Name:  domain.TaskPolicyUpdateForAllUsers,
		Queue: domain.IAMQueue,
		Kwargs: map[string]interface{}{
			"policy_name": policyName,
			"attach":      attach,
		},
	}
	run := orchestrator.NewRun(domain.Task{ID: msg.ID, Name: msg.Name}, taskDB)
	outcome := handlers.PolicyUpdateForAllUsers(ctx, msg, run)
	if !outcome.Completed() {
		log.Fatalf("update-policy failed: %s", outcome.Err())
	}
	log.Printf("policy %s swept (attach=%v)", policyName, attach)
}
