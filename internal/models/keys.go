package models

// Key names a persisted part of the household state.
type Key string

const (
	KeyAccount        Key = "account"
	KeyUsers          Key = "users"
	KeyHistory        Key = "history"
	KeyProjects       Key = "projects"
	KeySettings       Key = "settings"
	KeyUnsavedChanges Key = "unsavedChanges"
)

// Keys lists every persisted key in write order.
var Keys = []Key{KeyAccount, KeyUsers, KeyHistory, KeyProjects, KeySettings, KeyUnsavedChanges}
