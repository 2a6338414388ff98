package events

import (
	"context"
	"encoding/json"

	"github.com/wailsapp/wails/v2/pkg/runtime"
)

func logRuntimeEvent(ctx context.Context, entry ActivityEntry) {
	data, err := json.Marshal(entry)
	if err != nil {
		runtime.LogError(ctx, "events: failed to marshal activity entry: "+err.Error())
		return
	}

	payload := string(data)

	switch entry.Status {
	case StatusError:
		runtime.LogError(ctx, payload)
	case StatusCompleted, StatusLoaded:
		runtime.LogInfo(ctx, payload)
	default:
		runtime.LogInfo(ctx, payload)
	}
}
