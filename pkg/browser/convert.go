package browser

import (
	"fmt"

	"github.com/entrhq/sms-e2e/pkg/storagestate"
	"github.com/goccy/go-json"
	"github.com/playwright-community/playwright-go"
)

// Playwright and the on-disk file share one JSON shape, so conversions go
// through the encoded form rather than copying fields.

func fromPlaywrightState(raw *playwright.StorageState) (*storagestate.State, error) {
	if raw == nil {
		return &storagestate.State{}, nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to encode storage state: %w", err)
	}
	return storagestate.Parse(data)
}

func toPlaywrightState(state *storagestate.State) (*playwright.OptionalStorageState, error) {
	data, err := storagestate.Encode(state)
	if err != nil {
		return nil, err
	}
	var out playwright.OptionalStorageState
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to convert storage state: %w", err)
	}
	return &out, nil
}

// WorkerContextOptions returns context options that start every page already
// signed in with state. Test workers receive state explicitly rather than
// reading a shared file path.
func WorkerContextOptions(state *storagestate.State) (playwright.BrowserNewContextOptions, error) {
	if state == nil {
		return playwright.BrowserNewContextOptions{}, fmt.Errorf("storage state is required")
	}
	pwState, err := toPlaywrightState(state)
	if err != nil {
		return playwright.BrowserNewContextOptions{}, err
	}
	return playwright.BrowserNewContextOptions{
		IgnoreHttpsErrors: playwright.Bool(true),
		StorageState:      pwState,
	}, nil
}
