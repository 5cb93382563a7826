package cron_config

type Config struct {
	// Heartbeat check, every minute
	CronScheduleHeartbeat string `env:"CRON_SCHEDULE_HEARTBEAT" envDefault:"0 * * * * *"`
	// IMAP fetch, every 5 minutes
	CronScheduleFetchEmails string `env:"CRON_SCHEDULE_FETCH_EMAILS" envDefault:"0 */5 * * * *"`
	// Triage round, every 15 minutes
	CronScheduleTriageRound string `env:"CRON_SCHEDULE_TRIAGE_ROUND" envDefault:"0 */15 * * * *"`
}
