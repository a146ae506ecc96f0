// Package alerts evaluates threshold rules against the headline of each
// refreshed dataset and delivers notifications to Slack, Teams, or generic
// HTTP webhooks.
package alerts
