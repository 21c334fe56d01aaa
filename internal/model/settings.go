package model

// Household setting keys.
const (
	SettingRemoveMemberClearsPointer = "remove_member_clears_pointer"
	SettingAffirmationsEnabled       = "affirmations_enabled"
)

// SettingKeys lists every key a manager may update.
var SettingKeys = []string{
	SettingRemoveMemberClearsPointer,
	SettingAffirmationsEnabled,
}
