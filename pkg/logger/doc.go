// Package logger builds configured slog.Logger instances for the pipeline.
//
// New applies environment presets (development, staging, production),
// static attributes, and context extractors that pull request-scoped values
// into every record. The attr helpers give the pipeline consistent keys for
// its recurring fields: queue, job_id, user_id, destination.
//
//	log := logger.New(
//		logger.WithProduction("engine"),
//		logger.WithAttr(slog.String("version", version)),
//	)
//	logger.SetAsDefault(log)
package logger
