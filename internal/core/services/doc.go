// Package services implements the driving ports.
//
// Orchestrator owns the upload pipeline and its worker pool. QueryProcessor
// embeds a question and ranks indexed chunks against it. ThemeDetector
// clusters retrieved passages and writes a label, summary and citations per
// cluster. SettingsService resolves configuration from the config store and
// the environment.
package services
