// Package notify delivers audit events to configured webhooks.
package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	charmLog "github.com/charmbracelet/log"

	"phasegate/internal/config"
	"phasegate/internal/domain"
	"phasegate/internal/logging"
	"phasegate/internal/metrics"
	"phasegate/internal/repo"
)

const (
	defaultInterval = 2 * time.Second
	defaultTimeout  = 5 * time.Second
	defaultBatch    = 100
)

// Notifier tails the event log and POSTs matching events to each webhook.
// Every webhook keeps its own cursor, starting at the newest event when the
// notifier first sees it; a failed delivery is retried on the next tick.
type Notifier struct {
	Repo     repo.Repo
	Webhooks []config.Webhook
	Interval time.Duration
	Client   *http.Client
	Logger   *charmLog.Logger
	Metrics  *metrics.Metrics

	mu      sync.Mutex
	cursors map[int]int64
}

func New(r repo.Repo, cfg *config.Config, logger *charmLog.Logger) *Notifier {
	n := &Notifier{
		Repo:     r,
		Interval: defaultInterval,
		Client:   &http.Client{Timeout: defaultTimeout},
		Logger:   logger,
		Metrics:  metrics.Default(),
		cursors:  map[int]int64{},
	}
	if cfg != nil {
		n.Webhooks = cfg.Notifications.Webhooks
		if cfg.Notifications.PollIntervalSeconds > 0 {
			n.Interval = time.Duration(cfg.Notifications.PollIntervalSeconds) * time.Second
		}
	}
	if n.Logger == nil {
		n.Logger = logging.Discard()
	}
	return n
}

// Enabled reports whether any webhook would receive events.
func (n *Notifier) Enabled() bool {
	for _, hook := range n.Webhooks {
		if hook.IsEnabled() && strings.TrimSpace(hook.URL) != "" {
			return true
		}
	}
	return false
}

// Run dispatches until ctx is cancelled.
func (n *Notifier) Run(ctx context.Context) {
	interval := n.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		n.DispatchOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Prime pins every webhook's cursor at the current end of the log so only
// later events are delivered.
func (n *Notifier) Prime(ctx context.Context) {
	for i, hook := range n.Webhooks {
		n.cursorFor(ctx, i, hook)
	}
}

// DispatchOnce runs a single delivery pass over every enabled webhook.
func (n *Notifier) DispatchOnce(ctx context.Context) {
	for i, hook := range n.Webhooks {
		if !hook.IsEnabled() || strings.TrimSpace(hook.URL) == "" {
			continue
		}
		n.dispatch(ctx, i, hook)
	}
}

func (n *Notifier) dispatch(ctx context.Context, idx int, hook config.Webhook) {
	cursor := n.cursorFor(ctx, idx, hook)
	evts, err := n.Repo.EventsAfter(ctx, defaultBatch, cursor, hook.ProjectID)
	if err != nil {
		n.Logger.Error("webhook: fetch events failed", "url", hook.URL, "err", err)
		return
	}
	filter := newEventFilter(hook.Events)
	for _, evt := range evts {
		if !filter.match(evt.Type) {
			n.setCursor(idx, evt.ID)
			continue
		}
		if err := n.post(ctx, hook, evt); err != nil {
			n.Metrics.WebhookDeliveries.WithLabelValues("error").Inc()
			n.Logger.Warn("webhook: delivery failed", "url", hook.URL, "event_id", evt.ID, "err", err)
			return
		}
		n.Metrics.WebhookDeliveries.WithLabelValues("ok").Inc()
		n.Logger.Debug("webhook: delivered", "url", hook.URL, "event_id", evt.ID, "type", evt.Type)
		n.setCursor(idx, evt.ID)
	}
}

func (n *Notifier) cursorFor(ctx context.Context, idx int, hook config.Webhook) int64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.cursors == nil {
		n.cursors = map[int]int64{}
	}
	if cur, ok := n.cursors[idx]; ok {
		return cur
	}
	cur, err := n.Repo.LatestEventID(ctx, hook.ProjectID)
	if err != nil {
		n.Logger.Error("webhook: init cursor failed", "url", hook.URL, "err", err)
		cur = 0
	}
	n.cursors[idx] = cur
	return cur
}

func (n *Notifier) setCursor(idx int, value int64) {
	n.mu.Lock()
	n.cursors[idx] = value
	n.mu.Unlock()
}

// Delivery is the JSON body POSTed for each event.
type Delivery struct {
	ID         int64           `json:"id"`
	Type       string          `json:"type"`
	ProjectID  string          `json:"project_id,omitempty"`
	EntityKind string          `json:"entity_kind"`
	EntityID   string          `json:"entity_id,omitempty"`
	ActorID    string          `json:"actor_id"`
	TS         string          `json:"ts"`
	Payload    json.RawMessage `json:"payload"`
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func (n *Notifier) post(ctx context.Context, hook config.Webhook, evt domain.Event) error {
	payload := json.RawMessage("{}")
	if evt.Payload != "" && json.Valid([]byte(evt.Payload)) {
		payload = json.RawMessage(evt.Payload)
	}
	data, err := json.Marshal(Delivery{
		ID:         evt.ID,
		Type:       evt.Type,
		ProjectID:  evt.ProjectID,
		EntityKind: evt.EntityKind,
		EntityID:   evt.EntityID,
		ActorID:    evt.ActorID,
		TS:         evt.TS,
		Payload:    payload,
	})
	if err != nil {
		return err
	}
	timeout := defaultTimeout
	if hook.TimeoutSeconds > 0 {
		timeout = time.Duration(hook.TimeoutSeconds) * time.Second
	}
	client := n.Client
	if client == nil || client.Timeout != timeout {
		client = &http.Client{Timeout: timeout}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, hook.URL, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Phasegate-Event", evt.Type)
	req.Header.Set("X-Phasegate-Delivery", fmt.Sprintf("%d", evt.ID))
	if evt.ProjectID != "" {
		req.Header.Set("X-Phasegate-Project", evt.ProjectID)
	}
	if strings.TrimSpace(hook.Secret) != "" {
		req.Header.Set("X-Phasegate-Signature", "sha256="+Sign(hook.Secret, data))
	}
	res, err := client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return fmt.Errorf("status %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

// eventFilter matches exact types and "prefix.*" patterns.
type eventFilter struct {
	all      bool
	exact    map[string]struct{}
	prefixes []string
}

func newEventFilter(patterns []string) eventFilter {
	f := eventFilter{exact: map[string]struct{}{}}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		switch {
		case p == "":
		case p == "*":
			f.all = true
		case strings.HasSuffix(p, ".*"):
			f.prefixes = append(f.prefixes, strings.TrimSuffix(p, "*"))
		default:
			f.exact[p] = struct{}{}
		}
	}
	if len(f.exact) == 0 && len(f.prefixes) == 0 {
		f.all = true
	}
	return f
}

func (f eventFilter) match(evt string) bool {
	if f.all {
		return true
	}
	if _, ok := f.exact[evt]; ok {
		return true
	}
	for _, p := range f.prefixes {
		if strings.HasPrefix(evt, p) {
			return true
		}
	}
	return false
}
