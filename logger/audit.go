package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// audit is a distinct stream from the operational logger above: it
// records every LLM prompt, raw response, and parse outcome so the
// scenario-generation path can be replayed without grepping request
// logs. Kept separate because the two concerns have different
// retention and consumption needs (the audit trail is read by humans
// debugging a specific scenario, not by an alerting pipeline).
var audit = logrus.New()

func init() {
	audit.SetOutput(os.Stdout)
	audit.SetFormatter(&logrus.JSONFormatter{})
}

// AuditLLMCall records one LLM round trip: prompt in, raw text out,
// and whether parsing succeeded.
func AuditLLMCall(symbol, timeframe, provider, systemPrompt, userPrompt, rawResponse string, parseErr error) {
	entry := audit.WithFields(logrus.Fields{
		"symbol":        symbol,
		"timeframe":     timeframe,
		"provider":      provider,
		"system_prompt": systemPrompt,
		"user_prompt":   userPrompt,
		"raw_response":  rawResponse,
	})
	if parseErr != nil {
		entry.WithError(parseErr).Warn("llm_call_parse_failed")
		return
	}
	entry.Info("llm_call_ok")
}
