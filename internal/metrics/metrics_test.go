// SPDX-License-Identifier: MIT

package metrics

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecordCacheResult(t *testing.T) {
	CacheResultTotal.Reset()
	RecordCacheResult(true)
	RecordCacheResult(false)
	RecordCacheResult(false)

	require.Equal(t, float64(1), counterValue(CacheResultTotal.WithLabelValues("hit")))
	require.Equal(t, float64(2), counterValue(CacheResultTotal.WithLabelValues("miss")))
}

func TestSetAgentCircuitState(t *testing.T) {
	SetAgentCircuitState(2)
	require.Equal(t, float64(2), gaugeValue(AgentCircuitState))
	SetAgentCircuitState(0)
	require.Equal(t, float64(0), gaugeValue(AgentCircuitState))
}

func TestRecordAgentSend(t *testing.T) {
	AgentSendTotal.Reset()
	RecordAgentSend("success")
	RecordAgentSend("")

	require.Equal(t, float64(1), counterValue(AgentSendTotal.WithLabelValues("success")))
	require.Equal(t, float64(1), counterValue(AgentSendTotal.WithLabelValues("unknown")))
}

func TestObserveStageDoesNotPanic(t *testing.T) {
	require.NotPanics(t, func() { ObserveStage("fetch", 0.05) })
}
