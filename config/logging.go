package config

import "go.uber.org/zap"

// setLogger picks a zap logger for the running environment
func setLogger(env string) (*zap.Logger, error) {
	switch env {
	case "production":
		return zap.NewProduction()
	case "development":
		cfg := zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
		return cfg.Build()
	case "local":
		return zap.NewDevelopment()
	default:
		return zap.NewExample(), nil
	}
}
