package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/netguard/internal/client/client"
)

// DetectionService submits feature records to the server for classification.
type DetectionService interface {
	// PredictFile classifies every record in a JSON file. The file holds a
	// single feature object or an array of them.
	PredictFile(ctx context.Context, path string) ([]map[string]any, error)
	Predict(ctx context.Context, features map[string]any) (map[string]any, error)
	Simulate(ctx context.Context, count int) ([]map[string]any, error)
}

type detectionService struct {
	client client.Client
}

func NewDetectionService(client client.Client) DetectionService {
	return &detectionService{client: client}
}

func (d *detectionService) Predict(ctx context.Context, features map[string]any) (map[string]any, error) {
	return d.client.Predict(ctx, features)
}

func (d *detectionService) Simulate(ctx context.Context, count int) ([]map[string]any, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w: count must be positive", client.ErrInvalidInput)
	}
	return d.client.Simulate(ctx, count)
}

func (d *detectionService) PredictFile(ctx context.Context, path string) ([]map[string]any, error) {
	records, err := readRecords(path)
	if err != nil {
		return nil, err
	}

	results := make([]map[string]any, 0, len(records))
	for i, r := range records {
		res, err := d.client.Predict(ctx, r)
		if err != nil {
			return results, fmt.Errorf("record %d: %w", i, err)
		}
		results = append(results, res)
	}
	return results, nil
}

func readRecords(path string) ([]map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", client.ErrInvalidInput, path)
	}

	if data[0] == '[' {
		var records []map[string]any
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("%w: %v", client.ErrInvalidInput, err)
		}
		if len(records) == 0 {
			return nil, fmt.Errorf("%w: %s has no records", client.ErrInvalidInput, path)
		}
		return records, nil
	}

	var record map[string]any
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("%w: %v", client.ErrInvalidInput, err)
	}
	if record == nil {
		return nil, fmt.Errorf("%w: record is null", client.ErrInvalidInput)
	}
	return []map[string]any{record}, nil
}
