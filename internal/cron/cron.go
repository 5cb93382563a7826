package cron

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"
	cronv3 "github.com/robfig/cron/v3"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/leaderelection"
	"k8s.io/client-go/tools/leaderelection/resourcelock"

	"github.com/customeros/mailtriage/config"
	"github.com/customeros/mailtriage/interfaces"
	triageerrors "github.com/customeros/mailtriage/internal/errors"
	"github.com/customeros/mailtriage/internal/logger"
	"github.com/customeros/mailtriage/internal/tracing"
)

const (
	// GroupIngest serializes mailbox fetches
	GroupIngest = "ingest"
	// GroupTriage serializes triage rounds
	GroupTriage = "triage"

	LeaseName = "mailtriage-cron-leader"

	// LeaseDuration is how long a lease lasts before needing renewal
	LeaseDuration = 15 * time.Second
	// RenewDeadline is how long a leader has to renew its lease
	RenewDeadline = 10 * time.Second
	// RetryPeriod is how long to wait between leadership attempts
	RetryPeriod = 2 * time.Second
)

var jobLocks = struct {
	sync.Mutex
	locks map[string]*sync.Mutex
}{
	locks: map[string]*sync.Mutex{
		GroupIngest: new(sync.Mutex),
		GroupTriage: new(sync.Mutex),
	},
}

type CronManager struct {
	cfg      *config.Config
	log      logger.Logger
	cron     *cronv3.Cron
	k8s      kubernetes.Interface
	stopCh   chan struct{}
	stopOnce sync.Once
	jobIDs   map[string]cronv3.EntryID
	imap     interfaces.IMAPService
	triage   interfaces.TriageService
}

func NewCronManager(cfg *config.Config, log logger.Logger, k8s kubernetes.Interface, imap interfaces.IMAPService, triage interfaces.TriageService) *CronManager {
	return &CronManager{
		cfg:    cfg,
		log:    log,
		k8s:    k8s,
		stopCh: make(chan struct{}),
		jobIDs: make(map[string]cronv3.EntryID),
		imap:   imap,
		triage: triage,
	}
}

// Start initializes and starts the cron manager with leader election
// If k8s is nil, it will start in local mode without leader election
func (cm *CronManager) Start(podName, namespace string) error {
	if cm.k8s == nil || os.Getenv("LOCAL_DEV") == "true" {
		cm.log.Info("Starting cron manager in local mode")
		return cm.StartCron()
	}

	lock := &resourcelock.LeaseLock{
		LeaseMeta: metav1.ObjectMeta{
			Name:      LeaseName,
			Namespace: namespace,
		},
		Client: cm.k8s.CoordinationV1(),
		LockConfig: resourcelock.ResourceLockConfig{
			Identity: podName,
		},
	}

	errCh := make(chan error, 1)

	go func() {
		le, err := leaderelection.NewLeaderElector(leaderelection.LeaderElectionConfig{
			Lock:            lock,
			ReleaseOnCancel: true,
			LeaseDuration:   LeaseDuration,
			RenewDeadline:   RenewDeadline,
			RetryPeriod:     RetryPeriod,
			Callbacks: leaderelection.LeaderCallbacks{
				OnStartedLeading: func(ctx context.Context) {
					if err := cm.StartCron(); err != nil {
						cm.log.Errorf("Failed to start crons as leader: %v", err)
					}
				},
				OnStoppedLeading: func() {
					cm.log.Info("Leader lost - stopping crons")
					cm.Stop()
				},
				OnNewLeader: func(identity string) {
					cm.log.Infof("New leader elected: %s", identity)
				},
			},
		})
		if err != nil {
			errCh <- err
			return
		}

		le.Run(context.Background())
	}()

	// Wait briefly to see if leader election fails immediately
	select {
	case err := <-errCh:
		cm.log.Warnf("Leader election failed, falling back to local mode: %v", err)
		return cm.StartCron()
	case <-time.After(5 * time.Second):
	}

	return nil
}

// Stop gracefully stops the cron manager, waiting for running jobs.
func (cm *CronManager) Stop() {
	if cm.cron != nil {
		cm.log.Info("Stopping cron manager")
		ctx := cm.cron.Stop()
		<-ctx.Done()
	}
	cm.stopOnce.Do(func() { close(cm.stopCh) })
}

func (cm *CronManager) registerJobs(c *cronv3.Cron) error {
	cronConfig := cm.cfg.CronConfig

	add := func(name, schedule string, job func()) error {
		if schedule == "" {
			return nil
		}
		id, err := c.AddFunc(schedule, func() {
			defer tracing.RecoverAndLogToJaeger(cm.log)
			job()
		})
		if err != nil {
			return errors.Wrapf(err, "could not add %s cron job", name)
		}
		cm.jobIDs[name] = id
		cm.log.Infof("Registered %s job with schedule: %s", name, schedule)
		return nil
	}

	podName := cm.cfg.AppConfig.PodName
	if err := add("heartbeat", cronConfig.CronScheduleHeartbeat, func() {
		cm.log.Infof("Cron heartbeat from pod: %s", podName)
	}); err != nil {
		return err
	}

	if err := add("fetch_emails", cronConfig.CronScheduleFetchEmails, func() {
		jobLocks.locks[GroupIngest].Lock()
		defer jobLocks.locks[GroupIngest].Unlock()
		cm.fetchEmails()
	}); err != nil {
		return err
	}

	return add("triage_round", cronConfig.CronScheduleTriageRound, func() {
		jobLocks.locks[GroupTriage].Lock()
		defer jobLocks.locks[GroupTriage].Unlock()
		cm.runTriageRound()
	})
}

// StartCron initializes and starts the cron scheduler
func (cm *CronManager) StartCron() error {
	cm.log.Info("Starting cron manager")
	c := cronv3.New(
		cronv3.WithSeconds(),
		cronv3.WithChain(
			cronv3.SkipIfStillRunning(cronv3.DefaultLogger),
			cronv3.Recover(cronv3.DefaultLogger),
		),
	)
	if err := cm.registerJobs(c); err != nil {
		return err
	}
	c.Start()
	cm.cron = c
	return nil
}

func (cm *CronManager) fetchEmails() {
	if cm.imap == nil || !cm.imap.Configured() {
		cm.log.Debug("IMAP not configured, skipping fetch")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), cm.cfg.IMAPConfig.FetchTimeout)
	defer cancel()

	span, ctx := tracing.StartTracerSpan(ctx, "CronManager.fetchEmails")
	defer span.Finish()
	tracing.TagComponentCronJob(span)

	result, err := cm.imap.Fetch(ctx)
	if errors.Is(err, triageerrors.ErrFetchInProgress) {
		cm.log.Info("IMAP fetch already running, skipping")
		return
	}
	if err != nil {
		tracing.TraceErr(span, err)
		cm.log.Errorf("IMAP fetch failed: %v", err)
		return
	}

	cm.log.Infof("IMAP fetch done: found=%d stored=%d duplicates=%d failed=%d",
		result.Found, result.Stored, result.Duplicates, result.Failed)
}

func (cm *CronManager) runTriageRound() {
	if cm.triage == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), cm.cfg.TriageConfig.Timeout)
	defer cancel()

	span, ctx := tracing.StartTracerSpan(ctx, "CronManager.runTriageRound")
	defer span.Finish()
	tracing.TagComponentCronJob(span)

	result, err := cm.triage.RunRound(ctx)
	if errors.Is(err, triageerrors.ErrRoundInProgress) {
		cm.log.Info("Triage round already running, skipping")
		return
	}
	if err != nil {
		tracing.TraceErr(span, err)
		cm.log.Errorf("Triage round failed: %v", err)
		return
	}

	cm.log.Infof("Triage round done: classified=%d marked=%d report=%s",
		result.Classified, result.Marked, result.Path)
}
