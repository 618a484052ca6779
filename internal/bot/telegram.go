package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"tradedeck/internal/domain"
	"tradedeck/internal/service"

	tele "gopkg.in/telebot.v3"
)

type StrategyRunner interface {
	ExecuteStrategy(ctx context.Context, req service.StrategyRequest) (*domain.AggregatedRecommendation, error)
	GetAvailableStrategies(ctx context.Context) []domain.StrategyInfo
}

type ExecutionLister interface {
	ListExecutions(ctx context.Context, filter domain.ExecutionFilter) ([]domain.ExecutionRecord, error)
}

func StartTelegramBot(orchestrator StrategyRunner, executions ExecutionLister) *AlertDispatcher {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		log.Println("TELEGRAM_BOT_TOKEN not set, skipping Telegram bot startup")
		return nil
	}
	pref := tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}
	b, err := tele.NewBot(pref)
	if err != nil {
		log.Fatalf("failed to create Telegram bot: %v", err)
	}
	alerts := NewAlertDispatcher(b)

	b.Handle("/ping", func(c tele.Context) error {
		return c.Send("pong")
	})

	b.Handle("/run", func(c tele.Context) error {
		if orchestrator == nil {
			return c.Send("Orchestrator unavailable")
		}

		req, err := parseRunArgs(c.Args())
		if err != nil {
			return c.Send(fmt.Sprintf("Usage: /run RELIANCE 1h | /run TCS 1m scalping\nTimeframes: %s",
				strings.Join(domain.SupportedTimeframes, ", ")))
		}

		rec, err := orchestrator.ExecuteStrategy(context.Background(), req)
		if err != nil {
			return c.Send(fmt.Sprintf("Error running strategies for %s: %v", req.Symbol, err))
		}
		return c.Send(formatRecommendation(*rec))
	})

	b.Handle("/strategies", func(c tele.Context) error {
		if orchestrator == nil {
			return c.Send("Orchestrator unavailable")
		}

		infos := orchestrator.GetAvailableStrategies(context.Background())
		lines := make([]string, 0, len(infos)+1)
		lines = append(lines, "Available strategies:")
		for _, info := range infos {
			lines = append(lines, fmt.Sprintf("%s (%s)", info.Name, strings.Join(info.Timeframes, ", ")))
		}
		return c.Send(strings.Join(lines, "\n"))
	})

	b.Handle("/executions", func(c tele.Context) error {
		if executions == nil {
			return c.Send("Execution ledger unavailable")
		}

		filter, err := parseExecutionArgs(c.Args())
		if err != nil {
			return c.Send("Usage: /executions | /executions RELIANCE | /executions RELIANCE closed")
		}

		records, err := executions.ListExecutions(context.Background(), filter)
		if err != nil {
			return c.Send(fmt.Sprintf("Error fetching executions: %v", err))
		}
		if len(records) == 0 {
			return c.Send("No matching executions.")
		}

		lines := make([]string, 0, len(records)+1)
		lines = append(lines, "Recent executions:")
		for _, r := range records {
			lines = append(lines, formatExecution(r))
		}
		return c.Send(strings.Join(lines, "\n"))
	})

	b.Handle("/alerts", func(c tele.Context) error {
		chat := c.Chat()
		if chat == nil {
			return c.Send("Unable to detect chat")
		}

		mode, err := parseAlertMode(c.Args())
		if err != nil {
			return c.Send("Usage: /alerts on | /alerts off | /alerts status")
		}

		switch mode {
		case "on":
			if alerts.Subscribe(chat.ID) {
				return c.Send("Scan alerts enabled for this chat.")
			}
			return c.Send("Scan alerts are already enabled for this chat.")
		case "off":
			if alerts.Unsubscribe(chat.ID) {
				return c.Send("Scan alerts disabled for this chat.")
			}
			return c.Send("Scan alerts are already disabled for this chat.")
		default:
			if alerts.IsSubscribed(chat.ID) {
				return c.Send("Alerts status: ON")
			}
			return c.Send("Alerts status: OFF")
		}
	})

	log.Println("Telegram bot started")
	go b.Start()
	return alerts
}

func parseRunArgs(args []string) (service.StrategyRequest, error) {
	if len(args) == 0 {
		return service.StrategyRequest{}, errors.New("missing symbol")
	}

	req := service.StrategyRequest{
		Symbol:    strings.ToUpper(strings.TrimSpace(args[0])),
		Timeframe: "1h",
	}
	if req.Symbol == "" {
		return service.StrategyRequest{}, errors.New("missing symbol")
	}

	if len(args) > 1 {
		tf := strings.ToLower(strings.TrimSpace(args[1]))
		if !domain.IsSupportedTimeframe(tf) {
			return service.StrategyRequest{}, errors.New("unsupported timeframe")
		}
		req.Timeframe = tf
	}
	if len(args) > 2 {
		req.Strategy = strings.ToLower(strings.TrimSpace(args[2]))
	}
	if len(args) > 3 {
		return service.StrategyRequest{}, errors.New("too many arguments")
	}

	return req, nil
}

func parseExecutionArgs(args []string) (domain.ExecutionFilter, error) {
	filter := domain.ExecutionFilter{Limit: 5}

	for i, arg := range args {
		arg = strings.TrimSpace(arg)
		if arg == "" {
			continue
		}

		switch i {
		case 0:
			filter.Symbol = strings.ToUpper(arg)
		case 1:
			status := domain.ExecutionStatus(strings.ToLower(arg))
			switch status {
			case domain.ExecutionPending, domain.ExecutionActive, domain.ExecutionClosed:
				filter.Status = status
			default:
				return domain.ExecutionFilter{}, errors.New("invalid status")
			}
		default:
			return domain.ExecutionFilter{}, errors.New("too many arguments")
		}
	}

	return filter, nil
}

func formatExecution(r domain.ExecutionRecord) string {
	line := fmt.Sprintf("%s %s %s %s %s at %s",
		r.ExecutionID,
		r.Signal.Symbol,
		r.Signal.Timeframe,
		r.Strategy,
		strings.ToUpper(string(r.Signal.Direction)),
		r.CreatedAt.UTC().Format(time.RFC822),
	)
	if r.Status == domain.ExecutionClosed && r.RealizedReturn != nil {
		line += fmt.Sprintf(" closed %+.2f%%", *r.RealizedReturn*100)
	}
	return line
}
