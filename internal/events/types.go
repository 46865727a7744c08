// Package events provides event subjects for executor config changes.
package events

// Event types for editing sessions
const (
	ExecutorConfigSessionOpened = "executorconfig.session.opened"
	ExecutorConfigSessionClosed = "executorconfig.session.closed"
	ExecutorConfigUpdated       = "executorconfig.session.updated"
	ExecutorConfigPersisted     = "executorconfig.persisted"
	ExecutorConfigSubmitted     = "executorconfig.submitted"
	ExecutorConfigReset         = "executorconfig.reset"
)

// Event types for the profile catalog
const (
	ExecutorProfilesReloaded = "executorconfig.profiles.reloaded"
)

// ExecutorConfigWildcard matches every executor config subject.
const ExecutorConfigWildcard = "executorconfig.>"
