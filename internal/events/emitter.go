package events

import (
	"context"

	"github.com/wailsapp/wails/v2/pkg/runtime"
)

var Emit = func(ctx context.Context, name string, entry ActivityEntry) {}

func EnableRuntimeEmitter() {
	Emit = func(ctx context.Context, name string, entry ActivityEntry) {
		if entry.SessionKey == "" {
			if session := SessionFromContext(ctx); session != "" {
				entry.SessionKey = session
			}
		}

		runtime.EventsEmit(ctx, name, entry)
		logRuntimeEvent(ctx, entry)
	}
}

func SetCustomEmitter(f func(ctx context.Context, name string, entry ActivityEntry)) {
	if f == nil {
		Emit = func(context.Context, string, ActivityEntry) {}
		return
	}
	Emit = func(ctx context.Context, name string, entry ActivityEntry) {
		if entry.SessionKey == "" {
			if session := SessionFromContext(ctx); session != "" {
				entry.SessionKey = session
			}
		}
		f(ctx, name, entry)
	}
}
