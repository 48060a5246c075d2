// Package agents implements the four pipeline agents: the analyst extracts
// product specs, the director plans the scene, the producer renders the
// composite and the judge scores it. Agents are stateless and safe for
// concurrent use; all model access goes through an llm.Gateway.
package agents

import (
	"encoding/json"
	"time"

	"github.com/jonathan/luxury-studio/internal/metrics"
)

// Agent names used for logging and metrics.
const (
	AgentAnalyst  = "analyst"
	AgentDirector = "director"
	AgentProducer = "producer"
	AgentJudge    = "judge"
)

func observe(agent string, start time.Time, err error) {
	metrics.Get().ObserveAgentCall(agent, time.Since(start).Seconds(), err)
}

func mustJSON(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}
