package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/netguard/internal/client/client"
)

// Predict classifies the records in a JSON file and prints one verdict per
// record.
func (a *App) Predict(ctx context.Context, path string) error {
	ctx, cancel := a.requestContext(ctx)
	defer cancel()

	results, err := a.detectionService.PredictFile(ctx, path)
	for _, r := range results {
		printlnFn(formatVerdict(r))
	}
	if err != nil {
		a.reportError("Prediction failed:", err)
		return err
	}
	return nil
}

func (a *App) Simulate(ctx context.Context, count int) error {
	ctx, cancel := a.requestContext(ctx)
	defer cancel()

	samples, err := a.detectionService.Simulate(ctx, count)
	if err != nil {
		a.reportError("Simulation failed:", err)
		return err
	}

	out, err := json.MarshalIndent(samples, "", "  ")
	if err != nil {
		return err
	}
	printlnFn(string(out))
	return nil
}

func (a *App) reportError(prefix string, err error) {
	switch {
	case errors.Is(err, client.ErrUnauthorized):
		a.setUserName("")
		printlnFn(prefix, "session is no longer valid, please login again")
	case errors.Is(err, client.ErrUnavailable):
		a.setMode(ModeOffline)
		printlnFn(prefix, err.Error())
	default:
		printlnFn(prefix, err.Error())
	}
}

func formatVerdict(r map[string]any) string {
	verdict := "NORMAL"
	if attack, _ := r["is_attack"].(bool); attack {
		verdict = "ATTACK"
	}
	confidence, _ := r["confidence"].(float64)
	return fmt.Sprintf("%-6s %-16v confidence=%.2f id=%v", verdict, r["prediction"], confidence, r["id"])
}
