package cron

import (
	"context"
	"testing"
	"time"

	cronv3 "github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"k8s.io/client-go/kubernetes"

	"github.com/customeros/mailtriage/config"
	"github.com/customeros/mailtriage/dto"
	cron_config "github.com/customeros/mailtriage/internal/cron/config"
	triageerrors "github.com/customeros/mailtriage/internal/errors"
	"github.com/customeros/mailtriage/internal/logger"
	"github.com/customeros/mailtriage/internal/mocks"
)

type mockKubernetesInterface struct {
	kubernetes.Interface
	mock.Mock
}

func getLogger() logger.Logger {
	appLogger := logger.NewAppLogger(&logger.Config{
		DevMode: true,
	})
	appLogger.InitLogger()
	return appLogger
}

func testConfig() *config.Config {
	return &config.Config{
		AppConfig: &config.AppConfig{PodName: "test-pod"},
		IMAPConfig: &config.IMAPConfig{
			FetchTimeout: time.Minute,
		},
		TriageConfig: &config.TriageConfig{
			Timeout: time.Minute,
		},
		CronConfig: &cron_config.Config{
			CronScheduleHeartbeat:   "0 * * * * *",
			CronScheduleFetchEmails: "0 */5 * * * *",
			CronScheduleTriageRound: "0 */15 * * * *",
		},
	}
}

func hasDeadline(ctx context.Context) bool {
	_, ok := ctx.Deadline()
	return ok
}

func TestNewCronManager(t *testing.T) {
	cfg := testConfig()
	log := getLogger()
	k8s := &mockKubernetesInterface{}

	cm := NewCronManager(cfg, log, k8s, nil, nil)

	assert.NotNil(t, cm)
	assert.Equal(t, cfg, cm.cfg)
	assert.Equal(t, log, cm.log)
	assert.Equal(t, k8s, cm.k8s)
	assert.NotNil(t, cm.jobIDs)
}

func TestCronManager_RegisterJobs(t *testing.T) {
	cm := NewCronManager(testConfig(), getLogger(), nil, nil, nil)

	require.NoError(t, cm.registerJobs(cronv3.New(cronv3.WithSeconds())))

	assert.Len(t, cm.jobIDs, 3)
	assert.Contains(t, cm.jobIDs, "heartbeat")
	assert.Contains(t, cm.jobIDs, "fetch_emails")
	assert.Contains(t, cm.jobIDs, "triage_round")
}

func TestCronManager_RegisterJobs_DisabledSchedule(t *testing.T) {
	cfg := testConfig()
	cfg.CronConfig.CronScheduleFetchEmails = ""
	cm := NewCronManager(cfg, getLogger(), nil, nil, nil)

	require.NoError(t, cm.registerJobs(cronv3.New(cronv3.WithSeconds())))

	assert.Len(t, cm.jobIDs, 2)
	assert.NotContains(t, cm.jobIDs, "fetch_emails")
}

func TestCronManager_RegisterJobs_InvalidSchedule(t *testing.T) {
	cfg := testConfig()
	cfg.CronConfig.CronScheduleTriageRound = "every now and then"
	cm := NewCronManager(cfg, getLogger(), nil, nil, nil)

	err := cm.registerJobs(cronv3.New(cronv3.WithSeconds()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "triage_round")
}

func TestCronManager_FetchEmails(t *testing.T) {
	imap := new(mocks.IMAPService)
	imap.On("Configured").Return(true)
	imap.On("Fetch", mock.MatchedBy(hasDeadline)).Return(&dto.FetchResult{Found: 2, Stored: 2}, nil).Once()

	cm := NewCronManager(testConfig(), getLogger(), nil, imap, nil)
	cm.fetchEmails()

	imap.AssertExpectations(t)
}

func TestCronManager_FetchEmails_NotConfigured(t *testing.T) {
	imap := new(mocks.IMAPService)
	imap.On("Configured").Return(false)

	cm := NewCronManager(testConfig(), getLogger(), nil, imap, nil)
	cm.fetchEmails()

	imap.AssertNotCalled(t, "Fetch", mock.Anything)
}

func TestCronManager_RunTriageRound(t *testing.T) {
	triage := new(mocks.TriageService)
	triage.On("RunRound", mock.MatchedBy(hasDeadline)).Return(&dto.TriageResult{Path: "reports/r.md", Success: true}, nil).Once()

	cm := NewCronManager(testConfig(), getLogger(), nil, nil, triage)
	cm.runTriageRound()

	triage.AssertExpectations(t)
}

func TestCronManager_RunTriageRound_InProgress(t *testing.T) {
	triage := new(mocks.TriageService)
	triage.On("RunRound", mock.Anything).Return(nil, triageerrors.ErrRoundInProgress).Once()

	cm := NewCronManager(testConfig(), getLogger(), nil, nil, triage)
	assert.NotPanics(t, cm.runTriageRound)

	triage.AssertExpectations(t)
}

func TestCronManager_Stop(t *testing.T) {
	cm := NewCronManager(testConfig(), getLogger(), &mockKubernetesInterface{}, nil, nil)

	mockCron := cronv3.New()
	mockCron.Start()
	cm.cron = mockCron

	cm.Stop()
	assert.NotPanics(t, cm.Stop)

	select {
	case <-cm.stopCh:
	default:
		t.Error("Stop channel was not closed")
	}
}
