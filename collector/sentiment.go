package collector

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kpizzy812/futures-scenario-engine/security"
)

// alternative.me's Fear & Greed response shape:
// {"data":[{"value":"62","value_classification":"Greed", ...}], ...}
type fearGreedResponse struct {
	Data []struct {
		Value string `json:"value"`
	} `json:"data"`
}

// FetchSentiment fetches the Fear & Greed index over security.SafeGet,
// matching the FetchExternalData/extractJSONPath fetch-then-decode
// pattern in decision/engine.go. Absence (network failure, malformed
// body) degrades to (0, false, err) rather than panicking - the
// Collector folds that into data_quality.warnings.
func FetchSentiment(ctx context.Context, url string) (int, bool, error) {
	body, err := security.SafeGet(ctx, url)
	if err != nil {
		return 0, false, fmt.Errorf("fetching sentiment index: %w", err)
	}

	var resp fearGreedResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, false, fmt.Errorf("decoding sentiment index: %w", err)
	}
	if len(resp.Data) == 0 {
		return 0, false, nil
	}

	var value int
	if _, err := fmt.Sscanf(resp.Data[0].Value, "%d", &value); err != nil {
		return 0, false, fmt.Errorf("parsing sentiment value %q: %w", resp.Data[0].Value, err)
	}
	return value, true, nil
}
