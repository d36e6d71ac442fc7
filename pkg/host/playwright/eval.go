package playwright

import (
	"context"
	"encoding/json"
	"fmt"

	pw "github.com/playwright-community/playwright-go"
)

// pageEvaluator evaluates bridge expressions in one page.
type pageEvaluator struct {
	page pw.Page
}

func (e pageEvaluator) Evaluate(ctx context.Context, expression string, res any) error {
	var value interface{}
	err := withContext(ctx, func() error {
		var err error
		value, err = e.page.Evaluate(expression)
		return err
	})
	if err != nil {
		return err
	}
	return decodeResult(value, res)
}

// decodeResult copies an evaluation result into res through its JSON form.
func decodeResult(value interface{}, res any) error {
	if res == nil {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode evaluation result: %w", err)
	}
	if err := json.Unmarshal(raw, res); err != nil {
		return fmt.Errorf("decode evaluation result: %w", err)
	}
	return nil
}

// payloadOf extracts the JSON string the bridge script passes to the binding.
func payloadOf(args []interface{}) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("binding called with %d arguments", len(args))
	}
	payload, ok := args[0].(string)
	if !ok {
		return "", fmt.Errorf("binding called with %T", args[0])
	}
	return payload, nil
}

// withContext runs a blocking Playwright call, giving up when ctx ends. The
// call itself keeps running; Playwright calls take no context.
func withContext(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- fn()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
