package signal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"talon/internal/market"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"
)

// responseSchema pins down the model server's reply. Anything else is treated
// as a model fault, not a trade.
const responseSchema = `{
	"type": "object",
	"required": ["signal", "confidence"],
	"properties": {
		"signal": {"type": "string", "enum": ["long", "short", "none"]},
		"confidence": {"type": "number", "minimum": 0, "maximum": 1}
	}
}`

var compiledResponseSchema = mustCompileSchema(responseSchema)

func mustCompileSchema(doc string) *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", strings.NewReader(doc)); err != nil {
		panic(err)
	}
	return compiler.MustCompile("schema.json")
}

// ModelClient asks a served classification model for a directional call.
type ModelClient struct {
	url    string
	client *http.Client
}

func NewModelClient(url string, timeout time.Duration) *ModelClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ModelClient{url: url, client: &http.Client{Timeout: timeout}}
}

type modelRequest struct {
	Symbol    string    `json:"symbol"`
	LastClose float64   `json:"last_close"`
	ATR       float64   `json:"atr"`
	FastEMA   float64   `json:"fast_ema"`
	Closes    []float64 `json:"closes"`
}

// Evaluate POSTs a compact snapshot and validates the reply against the
// response schema before trusting it.
func (m *ModelClient) Evaluate(ctx context.Context, snap *market.Snapshot) (Signal, bool, error) {
	payload := modelRequest{
		Symbol:    snap.Symbol,
		LastClose: snap.LastClose,
		ATR:       snap.ATR,
		Closes:    tail(snap.Closes, 50),
	}
	if n := len(snap.FastEMA); n > 0 {
		payload.FastEMA = snap.FastEMA[n-1]
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Signal{}, false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.url, bytes.NewReader(body))
	if err != nil {
		return Signal{}, false, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return Signal{}, false, fmt.Errorf("signal: model request: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Signal{}, false, err
	}
	if resp.StatusCode/100 != 2 {
		return Signal{}, false, fmt.Errorf("signal: model status=%d", resp.StatusCode)
	}
	return ParseResponse(raw)
}

// ParseResponse validates and decodes a model reply. Split out so tests can
// exercise the validation without an HTTP server.
func ParseResponse(raw []byte) (Signal, bool, error) {
	if !gjson.ValidBytes(raw) {
		return Signal{}, false, fmt.Errorf("signal: model reply is not valid json")
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Signal{}, false, err
	}
	if err := compiledResponseSchema.Validate(doc); err != nil {
		return Signal{}, false, fmt.Errorf("signal: model reply failed schema: %w", err)
	}
	parsed := gjson.ParseBytes(raw)
	side := parsed.Get("signal").String()
	conf := parsed.Get("confidence").Float()
	if side == "none" || conf <= 0 {
		return Signal{}, false, nil
	}
	return Signal{Side: side, Confidence: conf}, true, nil
}

func tail(vals []float64, n int) []float64 {
	if len(vals) <= n {
		return vals
	}
	return vals[len(vals)-n:]
}
