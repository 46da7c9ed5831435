package domain

import "time"

type ProfileRepository interface {
	LoadProfiles() ([]Profile, error)
	SaveProfiles(profiles []Profile) error
}

type SettingRepository interface {
	GetSetting(key string) (string, error)
	SetSetting(key string, value string) error
}

type StatsRepository interface {
	SaveStatsSample(sample StatsSample) error
	ListStatsSamples(profileID string, since time.Time) ([]StatsSample, error)
	ClearStatsSamples(profileID string) error
}

type Repository interface {
	ProfileRepository
	SettingRepository
	StatsRepository
}
