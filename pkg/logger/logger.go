package logger

import "go.uber.org/zap"

// New returns a development logger when env is "development" and a production (JSON) logger otherwise.
func New(env string) (*zap.Logger, error) {
	if env == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
