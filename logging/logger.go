package logging

import "go.uber.org/zap"

// New creates a new zap logger for command line tools. Verbose switches to
// a development logger that prints debug output.
func New(verbose bool) *zap.SugaredLogger {
	var (
		logger *zap.Logger
		err    error
	)
	if verbose {
		logger, err = zap.NewDevelopment()
	} else {
		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
		cfg.OutputPaths = []string{"stderr"}
		logger, err = cfg.Build()
	}
	if err != nil {
		logger = zap.NewNop()
	}
	defer logger.Sync()
	return logger.Sugar()
}
