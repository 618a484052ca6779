package bot

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	"tradedeck/internal/domain"

	tele "gopkg.in/telebot.v3"
)

// Recommendations below this confidence are not worth pinging anyone about.
const defaultAlertConfidence = 0.65

type messageSender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// AlertDispatcher broadcasts actionable recommendations to subscribed chats.
type AlertDispatcher struct {
	sender        messageSender
	minConfidence float64

	mu          sync.RWMutex
	subscribers map[int64]struct{}
}

func NewAlertDispatcher(sender messageSender) *AlertDispatcher {
	return &AlertDispatcher{
		sender:        sender,
		minConfidence: defaultAlertConfidence,
		subscribers:   make(map[int64]struct{}),
	}
}

func (d *AlertDispatcher) Subscribe(chatID int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.subscribers[chatID]; exists {
		return false
	}
	d.subscribers[chatID] = struct{}{}
	return true
}

func (d *AlertDispatcher) Unsubscribe(chatID int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.subscribers[chatID]; !exists {
		return false
	}
	delete(d.subscribers, chatID)
	return true
}

func (d *AlertDispatcher) IsSubscribed(chatID int64) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	_, exists := d.subscribers[chatID]
	return exists
}

func (d *AlertDispatcher) SubscriberCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subscribers)
}

// NotifyRecommendation forwards a recommendation to every subscriber.
// Hold calls and low-confidence calls are dropped silently. Send
// failures are logged, never propagated back into the scan loop.
func (d *AlertDispatcher) NotifyRecommendation(ctx context.Context, rec domain.AggregatedRecommendation) {
	_ = ctx
	if d == nil || d.sender == nil {
		return
	}
	if rec.Recommendation == domain.DirectionHold || rec.Confidence < d.minConfidence {
		return
	}

	chatIDs := d.snapshotSubscribers()
	if len(chatIDs) == 0 {
		return
	}

	msg := formatRecommendation(rec)
	for _, chatID := range chatIDs {
		if _, err := d.sender.Send(&tele.Chat{ID: chatID}, msg); err != nil {
			log.Printf("alert send to chat %d: %v", chatID, err)
		}
	}
}

func (d *AlertDispatcher) snapshotSubscribers() []int64 {
	d.mu.RLock()
	defer d.mu.RUnlock()

	chatIDs := make([]int64, 0, len(d.subscribers))
	for chatID := range d.subscribers {
		chatIDs = append(chatIDs, chatID)
	}
	sort.Slice(chatIDs, func(i, j int) bool { return chatIDs[i] < chatIDs[j] })
	return chatIDs
}

func parseAlertMode(args []string) (string, error) {
	if len(args) == 0 {
		return "status", nil
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "on":
		return "on", nil
	case "off":
		return "off", nil
	case "status":
		return "status", nil
	default:
		return "", fmt.Errorf("invalid mode")
	}
}

func formatRecommendation(rec domain.AggregatedRecommendation) string {
	lines := []string{
		fmt.Sprintf("%s %s: %s (%.0f%% confidence, %s risk)",
			rec.Symbol,
			rec.Timeframe,
			strings.ToUpper(string(rec.Recommendation)),
			rec.Confidence*100,
			rec.AggregateRisk,
		),
	}
	if rec.TopStrategy != nil {
		lines = append(lines, fmt.Sprintf("Top strategy: %s %s %.0f%%",
			rec.TopStrategy.Name,
			rec.TopStrategy.Direction,
			rec.TopStrategy.Confidence*100,
		))
	}
	for _, s := range rec.RankedSignals {
		lines = append(lines, formatSignalLine(s))
	}
	return strings.Join(lines, "\n")
}

func formatSignalLine(s domain.Signal) string {
	return fmt.Sprintf("%s %s entry %.2f stop %.2f target %.2f (%s)",
		s.Strategy,
		strings.ToUpper(string(s.Direction)),
		s.EntryPrice,
		s.StopLoss,
		s.TakeProfit,
		s.HoldingPeriod,
	)
}
