package policy

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func evalContext(class, function string, timeout int) *EvalContext {
	return &EvalContext{
		Artifact: map[string]any{
			"id":    "report",
			"class": class,
		},
		Request: map[string]any{
			"function":        function,
			"timeout_seconds": timeout,
			"requester":       "test",
		},
	}
}

func TestEngineEmptyRulesAdmitEverything(t *testing.T) {
	engine, err := NewEngine(nil)
	require.NoError(t, err)
	require.Equal(t, 0, engine.RuleCount())

	require.NoError(t, engine.Admit(evalContext("standard", "generate", 0)))
}

func TestEngineAdmit(t *testing.T) {
	engine, err := NewEngine(map[string]string{
		"no_long_sync_timeouts": `request.timeout_seconds <= 60 || artifact.class == "heavy"`,
	})
	require.NoError(t, err)

	require.NoError(t, engine.Admit(evalContext("standard", "generate", 30)))
	require.NoError(t, engine.Admit(evalContext("heavy", "full_scan", 240)))

	err = engine.Admit(evalContext("standard", "generate", 240))
	require.ErrorIs(t, err, ErrDenied)

	var denied *DeniedError
	require.ErrorAs(t, err, &denied)
	require.Equal(t, "no_long_sync_timeouts", denied.Rule)
}

func TestEngineMultipleRulesAllMustPass(t *testing.T) {
	engine, err := NewEngine(map[string]string{
		"a_known_functions": `request.function != "debug_dump"`,
		"b_bounded_timeout": `request.timeout_seconds < 300`,
	})
	require.NoError(t, err)

	require.NoError(t, engine.Admit(evalContext("standard", "generate", 10)))

	err = engine.Admit(evalContext("standard", "debug_dump", 10))
	var denied *DeniedError
	require.ErrorAs(t, err, &denied)
	require.Equal(t, "a_known_functions", denied.Rule)
}

func TestEngineInvalidExpression(t *testing.T) {
	_, err := NewEngine(map[string]string{
		"broken": `request.function ==`,
	})
	require.ErrorIs(t, err, ErrInvalidRuleExpr)
}

func TestEngineNonBooleanRule(t *testing.T) {
	engine, err := NewEngine(map[string]string{
		"not_a_bool": `request.function`,
	})
	require.NoError(t, err)

	err = engine.Admit(evalContext("standard", "generate", 0))
	require.ErrorIs(t, err, ErrRuleEvaluation)
}
