package logging

import (
	"go.uber.org/zap"
)

// NewLogger builds the process logger; debug switches to the development
// encoder and level.
func NewLogger(debug bool) *zap.SugaredLogger {
	var config zap.Config
	if debug {
		config = zap.NewDevelopmentConfig()
	} else {
		config = zap.NewProductionConfig()
		config.EncoderConfig.MessageKey = "message"
		config.EncoderConfig.LevelKey = "severity"
	}

	logger, err := config.Build()
	if err != nil {
		return zap.NewNop().Sugar()
	}
	return logger.Sugar()
}
