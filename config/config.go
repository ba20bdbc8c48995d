package config

import (
	"github.com/spf13/viper"
)

type Config struct {
	App        AppConfig
	DB         DBConfig
	Redis      RedisConfig
	Allocation AllocationConfig
}

type AppConfig struct {
	Port string
	Env  string
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// AllocationConfig holds the priority score table for the allocation engine.
// The table is process-wide configuration injected at bootstrap, not package
// state, so tests and deployments can swap it freely.
type AllocationConfig struct {
	EmergencyScore       int
	PaidPriorityScore    int
	FollowUpScore        int
	OnlineBookingScore   int
	WalkInScore          int
	AlternativeSlotLimit int
}

// DefaultAllocationConfig returns the stock priority table:
// emergency > paid priority > follow-up > online booking > walk-in.
func DefaultAllocationConfig() AllocationConfig {
	return AllocationConfig{
		EmergencyScore:       1000,
		PaidPriorityScore:    100,
		FollowUpScore:        50,
		OnlineBookingScore:   30,
		WalkInScore:          10,
		AlternativeSlotLimit: 5,
	}
}

func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	defaults := DefaultAllocationConfig()
	viper.SetDefault("PRIORITY_EMERGENCY", defaults.EmergencyScore)
	viper.SetDefault("PRIORITY_PAID", defaults.PaidPriorityScore)
	viper.SetDefault("PRIORITY_FOLLOW_UP", defaults.FollowUpScore)
	viper.SetDefault("PRIORITY_ONLINE_BOOKING", defaults.OnlineBookingScore)
	viper.SetDefault("PRIORITY_WALK_IN", defaults.WalkInScore)
	viper.SetDefault("ALTERNATIVE_SLOT_LIMIT", defaults.AlternativeSlotLimit)

	config := &Config{
		App: AppConfig{
			Port: viper.GetString("APP_PORT"),
			Env:  viper.GetString("APP_ENV"),
		},
		DB: DBConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			Name:     viper.GetString("DB_NAME"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		Allocation: AllocationConfig{
			EmergencyScore:       viper.GetInt("PRIORITY_EMERGENCY"),
			PaidPriorityScore:    viper.GetInt("PRIORITY_PAID"),
			FollowUpScore:        viper.GetInt("PRIORITY_FOLLOW_UP"),
			OnlineBookingScore:   viper.GetInt("PRIORITY_ONLINE_BOOKING"),
			WalkInScore:          viper.GetInt("PRIORITY_WALK_IN"),
			AlternativeSlotLimit: viper.GetInt("ALTERNATIVE_SLOT_LIMIT"),
		},
	}

	return config, nil
}
