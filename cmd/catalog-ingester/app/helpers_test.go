package app

import (
	"log/slog"

	"github.com/spf13/viper"
)

func newTestViper(configPath string) *viper.Viper {
	v := viper.New()
	v.Set("config", configPath)
	return v
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
