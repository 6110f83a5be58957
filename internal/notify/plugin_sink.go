package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/Zeenjinn/sign-language-translation/internal/plugin"
)

// PluginSink runs every plugin declaring the announce action for each
// recognized sign.
type PluginSink struct {
	manager  *plugin.Manager
	executor *plugin.Executor
}

// NewPluginSink creates a PluginSink over already discovered plugins.
func NewPluginSink(manager *plugin.Manager, executor *plugin.Executor) *PluginSink {
	return &PluginSink{manager: manager, executor: executor}
}

func (s *PluginSink) Name() string { return "plugins" }

// Publish announces recognized events. Plugin failures are collected and
// returned together; one failing plugin does not stop the others.
func (s *PluginSink) Publish(ctx context.Context, ev Event) error {
	if !ev.Recognized() {
		return nil
	}

	req := &plugin.Request{
		Action:     plugin.ActionAnnounce,
		Sign:       ev.Label,
		Confidence: ev.Confidence,
		Session:    ev.Session,
	}

	var errs []error
	for _, p := range s.manager.ForAction(plugin.ActionAnnounce) {
		resp, err := s.executor.Execute(ctx, p, req)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p.Manifest.Name, err))
			continue
		}
		if !resp.Success {
			errs = append(errs, fmt.Errorf("%s: %s", p.Manifest.Name, resp.Error))
		}
	}
	return errors.Join(errs...)
}
