package cdp

import (
	"context"
	"encoding/json"
	"fmt"

	cdpproto "github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/cdproto/target"
)

const targetTypePage = "page"

// targetEvaluator evaluates bridge expressions in one target.
type targetEvaluator struct {
	exec cdpproto.Executor
}

func (e targetEvaluator) Evaluate(ctx context.Context, expression string, res any) error {
	obj, exc, err := runtime.Evaluate(expression).
		WithReturnByValue(true).
		WithAwaitPromise(true).
		Do(cdpproto.WithExecutor(ctx, e.exec))
	if err != nil {
		return fmt.Errorf("evaluate: %w", err)
	}
	return decodeRemote(obj, exc, res)
}

// decodeRemote turns an evaluation result into res. A thrown exception is
// an error; an undefined result leaves res untouched.
func decodeRemote(obj *runtime.RemoteObject, exc *runtime.ExceptionDetails, res any) error {
	if exc != nil {
		return fmt.Errorf("evaluate: %w", exc)
	}
	if res == nil || obj == nil || len(obj.Value) == 0 {
		return nil
	}
	if err := json.Unmarshal([]byte(obj.Value), res); err != nil {
		return fmt.Errorf("decode evaluation result: %w", err)
	}
	return nil
}

func isPage(info *target.Info) bool {
	return info != nil && info.Type == targetTypePage
}

// isMainFrame reports whether frame is the top frame of target. Chromium
// gives a page's main frame the target's ID.
func isMainFrame(id target.ID, frame cdpproto.FrameID) bool {
	return string(frame) == string(id)
}

func frameURL(frame *cdpproto.Frame) string {
	if frame == nil {
		return ""
	}
	return frame.URL + frame.URLFragment
}
