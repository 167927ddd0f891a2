package runner

import (
	"github.com/viant/hitl/service/gate"
	"github.com/viant/hitl/service/resume"
	"github.com/viant/hitl/service/tool"
	"go.uber.org/zap"
)

// DefaultMaxSteps bounds a run when WithMaxSteps is not used.
const DefaultMaxSteps = 50

// Option customises the run loop.
type Option func(*Service)

// WithGate sets the interrupt gate.
func WithGate(g *gate.Service) Option {
	return func(s *Service) { s.gate = g }
}

// WithResume sets the resume controller.
func WithResume(r *resume.Service) Option {
	return func(s *Service) { s.resume = r }
}

// WithExecutor sets the tool executor.
func WithExecutor(executor tool.Executor) Option {
	return func(s *Service) { s.executor = executor }
}

// WithReasoner sets the reasoning collaborator.
func WithReasoner(reasoner Reasoner) Option {
	return func(s *Service) { s.reasoner = reasoner }
}

// WithMaxSteps bounds the number of steps of a run.
func WithMaxSteps(maxSteps int) Option {
	return func(s *Service) {
		if maxSteps > 0 {
			s.maxSteps = maxSteps
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}
