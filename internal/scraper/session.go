package scraper

import (
	"context"

	"go.uber.org/zap"
)

// Pipeline stage names. They label debug artifacts and error context.
const (
	StageLaunch         = "launch"
	StageNavigation     = "navigation"
	StageLogin          = "login"
	StageContent        = "content-wait"
	StagePanel          = "panel-open"
	StageExtraction     = "extraction"
	StagePostNavigation = "post-navigation"
	StagePostLogin      = "post-login"
)

// withSession acquires a session, runs fn and releases the session exactly once on every
// exit path, including a panic inside fn.
func withSession(
	ctx context.Context,
	manager SessionManager,
	logger *zap.Logger,
	fn func(Session) error,
) error {
	session, err := manager.Acquire(ctx)
	if err != nil {
		return &Error{Kind: KindInternal, Stage: StageLaunch, Msg: "launch browser", Err: err}
	}
	defer func() {
		if relErr := manager.Release(session); relErr != nil {
			logger.Warn("session release failed", zap.Error(relErr))
		}
	}()
	return fn(session)
}
