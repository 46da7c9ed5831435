package storage

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"arkwarden/internal/domain"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

const (
	SettingActiveProfile  = "active_profile_id"
	SettingStatsRetention = "stats_retention_days"
)

type Profile struct {
	ID              string `gorm:"primaryKey"`
	Name            string
	InstallPath     string
	Config          domain.ServerConfig `gorm:"serializer:json"`
	Status          string
	CurrentBuildID  string
	LatestBuildID   string
	LastUpdateCheck *time.Time
	CreatedAt       time.Time
}

type Setting struct {
	Key   string `gorm:"primaryKey"`
	Value string
}

type StatsSample struct {
	ID          uint      `gorm:"primaryKey"`
	ProfileID   string    `gorm:"index"`
	Timestamp   time.Time `gorm:"index"`
	MemoryBytes uint64
	PlayerCount int
}

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(path string, logger *zap.Logger) (*GormStore, error) {
	newLogger := gormlogger.New(
		zap.NewStdLog(logger.Named("gorm")),
		gormlogger.Config{
			IgnoreRecordNotFoundError: true,
			LogLevel:                  gormlogger.Error,
		},
	)

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: newLogger})
	if err != nil {
		return nil, err
	}

	err = db.AutoMigrate(&Profile{}, &Setting{}, &StatsSample{})
	if err != nil {
		return nil, fmt.Errorf("error migrating database: %w", err)
	}

	store := &GormStore{db: db}

	if err := store.initDefaultSettings(); err != nil {
		return nil, fmt.Errorf("error initializing settings: %w", err)
	}

	return store, nil
}

func (s *GormStore) initDefaultSettings() error {
	defaults := map[string]string{
		SettingStatsRetention: "7",
	}

	for key, value := range defaults {
		var setting Setting
		result := s.db.First(&setting, "key = ?", key)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				if err := s.db.Create(&Setting{Key: key, Value: value}).Error; err != nil {
					return err
				}
			} else {
				return result.Error
			}
		}
	}

	return nil
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *GormStore) LoadProfiles() ([]domain.Profile, error) {
	var rows []Profile
	if err := s.db.Order("created_at").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("error loading profiles: %w", err)
	}

	profiles := make([]domain.Profile, 0, len(rows))
	for _, r := range rows {
		profiles = append(profiles, domain.Profile{
			ID:              r.ID,
			Name:            r.Name,
			InstallPath:     r.InstallPath,
			Config:          r.Config,
			Status:          domain.Status(r.Status),
			CurrentBuildID:  r.CurrentBuildID,
			LatestBuildID:   r.LatestBuildID,
			LastUpdateCheck: r.LastUpdateCheck,
			CreatedAt:       r.CreatedAt,
		})
	}
	return profiles, nil
}

// SaveProfiles replaces the stored collection with profiles. Live stats are
// not persisted.
func (s *GormStore) SaveProfiles(profiles []domain.Profile) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		ids := make([]string, 0, len(profiles))
		for _, p := range profiles {
			ids = append(ids, p.ID)
			row := Profile{
				ID:              p.ID,
				Name:            p.Name,
				InstallPath:     p.InstallPath,
				Config:          p.Config,
				Status:          string(p.Status),
				CurrentBuildID:  p.CurrentBuildID,
				LatestBuildID:   p.LatestBuildID,
				LastUpdateCheck: p.LastUpdateCheck,
				CreatedAt:       p.CreatedAt,
			}
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
				return fmt.Errorf("error saving profile %s: %w", p.ID, err)
			}
		}

		del := tx.Session(&gorm.Session{AllowGlobalUpdate: true})
		if len(ids) > 0 {
			del = del.Where("id NOT IN ?", ids)
		}
		if err := del.Delete(&Profile{}).Error; err != nil {
			return fmt.Errorf("error pruning profiles: %w", err)
		}
		return nil
	})
}

func (s *GormStore) GetSetting(key string) (string, error) {
	var setting Setting
	result := s.db.First(&setting, "key = ?", key)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("setting not found: %s", key)
		}
		return "", result.Error
	}
	return setting.Value, nil
}

func (s *GormStore) SetSetting(key string, value string) error {
	return s.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&Setting{Key: key, Value: value}).Error
}

func (s *GormStore) retention() time.Duration {
	days := 7
	if v, err := s.GetSetting(SettingStatsRetention); err == nil {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			days = n
		}
	}
	return time.Duration(days) * 24 * time.Hour
}

// SaveStatsSample appends a sample and drops samples older than the
// retention window for the same profile.
func (s *GormStore) SaveStatsSample(sample domain.StatsSample) error {
	row := StatsSample{
		ProfileID:   sample.ProfileID,
		Timestamp:   sample.Timestamp,
		MemoryBytes: sample.MemoryBytes,
		PlayerCount: sample.PlayerCount,
	}
	if err := s.db.Create(&row).Error; err != nil {
		return fmt.Errorf("error saving stats sample: %w", err)
	}

	cutoff := sample.Timestamp.Add(-s.retention())
	return s.db.Where("profile_id = ? AND timestamp < ?", sample.ProfileID, cutoff).Delete(&StatsSample{}).Error
}

func (s *GormStore) ListStatsSamples(profileID string, since time.Time) ([]domain.StatsSample, error) {
	var rows []StatsSample
	err := s.db.Where("profile_id = ? AND timestamp >= ?", profileID, since).Order("timestamp").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("error listing stats samples: %w", err)
	}

	samples := make([]domain.StatsSample, 0, len(rows))
	for _, r := range rows {
		samples = append(samples, domain.StatsSample{
			ProfileID:   r.ProfileID,
			Timestamp:   r.Timestamp,
			MemoryBytes: r.MemoryBytes,
			PlayerCount: r.PlayerCount,
		})
	}
	return samples, nil
}

func (s *GormStore) ClearStatsSamples(profileID string) error {
	return s.db.Where("profile_id = ?", profileID).Delete(&StatsSample{}).Error
}
