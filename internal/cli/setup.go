package cli

import (
	"errors"
	"io"

	"go.uber.org/zap"

	"github.com/gzhole/hookwarden/internal/analyzer"
	"github.com/gzhole/hookwarden/internal/config"
	"github.com/gzhole/hookwarden/internal/logger"
	"github.com/gzhole/hookwarden/internal/policy"
)

// loadConfig builds the invocation's configuration and the diagnostics
// logger that goes with it. Configuration problems are reported and the
// usable Config is returned regardless.
func loadConfig(configPath, logDir string, errOut io.Writer) (config.Config, *zap.Logger) {
	cfg, err := config.Load(configPath, logDir)
	diag := logger.NewDiagnostics(errOut, cfg.LogLevel)
	if err != nil {
		diag.Warn("configuration problem, continuing with defaults where needed",
			zap.String("path", cfg.ConfigPath), zap.Error(err))
	}
	return cfg, diag
}

// buildEngine compiles the effective rule set. Rules that cannot be used are
// skipped with a warning each.
func buildEngine(cfg config.Config, diag *zap.Logger) (*policy.Engine, []error) {
	rules, errs := policy.BuildRuleSet(cfg)
	engine, matchErrs := policy.NewEngine(cfg, rules)
	errs = append(errs, matchErrs...)

	for _, err := range errs {
		var matchErr *analyzer.MatchError
		if errors.As(err, &matchErr) {
			diag.Warn("rule pattern does not compile, rule skipped",
				zap.String("rule", matchErr.RuleID), zap.Error(matchErr.Err))
			continue
		}
		diag.Warn("rule configuration problem", zap.Error(err))
	}
	return engine, errs
}
