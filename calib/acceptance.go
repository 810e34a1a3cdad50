package calib

import (
	"fmt"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
)

// Acceptance is a compiled boolean rule over a fit's quality. The rule
// sees rms, withheld_rms, max_residual, kept, excluded, degree and
// iterations, e.g.
//
//	rms < 0.05 && excluded <= 2
type Acceptance struct {
	rule    string
	program *exprvm.Program
}

// CompileAcceptance compiles rule.
func CompileAcceptance(rule string) (*Acceptance, error) {
	program, err := exprlang.Compile(rule,
		exprlang.Env(acceptanceEnv(FitQuality{}, 0)),
		exprlang.AsBool(),
	)
	if err != nil {
		return nil, fmt.Errorf("calib: compile acceptance rule %q: %w", rule, err)
	}
	return &Acceptance{rule: rule, program: program}, nil
}

// Rule returns the source expression.
func (a *Acceptance) Rule() string { return a.rule }

// Check evaluates the rule. A false result is a *FitRejectedError.
func (a *Acceptance) Check(q FitQuality, degree int) error {
	out, err := exprlang.Run(a.program, acceptanceEnv(q, degree))
	if err != nil {
		return fmt.Errorf("calib: evaluate acceptance rule %q: %w", a.rule, err)
	}
	if ok, _ := out.(bool); !ok {
		return &FitRejectedError{Rule: a.rule, Quality: q}
	}
	return nil
}

func acceptanceEnv(q FitQuality, degree int) map[string]any {
	return map[string]any{
		"rms":          q.RMS,
		"withheld_rms": q.WithheldRMS,
		"max_residual": q.MaxResidual,
		"kept":         len(q.Used),
		"excluded":     len(q.Excluded),
		"degree":       degree,
		"iterations":   q.Iterations,
	}
}
