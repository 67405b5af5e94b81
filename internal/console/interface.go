package console

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"locator-capture/internal/entity"
	"locator-capture/internal/session"
	"locator-capture/internal/usecase"
	"locator-capture/pkg/logg"
)

var errExit = errors.New("exit")

type Interface struct {
	logger  *zap.Logger
	usecase *usecase.Service
	term    *Terminal
	ctx     context.Context
	cancel  context.CancelFunc
}

type Params struct {
	fx.In

	Logger   *zap.Logger
	Usecase  *usecase.Service
	Terminal *Terminal
}

func NewInterface(params Params) *Interface {
	ctx, cancel := context.WithCancel(context.Background())

	return &Interface{
		logger:  params.Logger.With(zap.String(logg.Layer, "Console")),
		usecase: params.Usecase,
		term:    params.Terminal,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start runs the command loop until the operator exits, input ends or Stop
// is called.
func (i *Interface) Start() error {
	i.printBanner()
	i.printHelp()

	for {
		i.term.Printf("\n> ")

		line, ok := i.term.ReadLine(i.ctx)
		if !ok {
			return nil
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		if err := i.handleCommand(input); err != nil {
			if errors.Is(err, errExit) {
				return nil
			}

			i.logger.Error("Command error", zap.String("command", input), zap.Error(err))
			i.term.Printf("Error: %v\n", err)
		}
	}
}

func (i *Interface) Stop() {
	i.logger.Info("Stopping console interface...")
	i.cancel()
}

func (i *Interface) handleCommand(input string) error {
	verb, arg, _ := strings.Cut(input, " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(verb) {
	case "help", "h":
		i.printHelp()

		return nil
	case "exit", "quit", "q":
		i.term.Println("Shutting down...")

		return errExit
	case "open", "goto":
		return i.open(arg)
	}

	action, err := session.ParseAction(verb)
	if err != nil {
		return err
	}

	report, err := i.usecase.Capture.Dispatch(i.ctx, action)
	if err != nil {
		return err
	}

	i.printReport(action, report)

	return nil
}

func (i *Interface) open(url string) error {
	if url == "" {
		return errors.New("usage: open <url>")
	}

	if !i.usecase.Browser.IsReady() {
		return errors.New("browser is not running")
	}

	if err := i.usecase.Browser.Navigate(i.ctx, url); err != nil {
		return err
	}

	i.term.Printf("Opened %s\n", url)

	return nil
}

func (i *Interface) printReport(action session.Action, report entity.StopReport) {
	switch {
	case action == session.ActionStop && report.Notice != "":
		i.term.Println(report.Notice)
	case action == session.ActionStop && report.Path != "":
		i.term.Printf("Saved %d locator(s) to %s\n", report.Count, report.Path)
	}

	i.term.Printf("Status: %s\n", describeStatus(report.Status))
}

func describeStatus(status entity.Status) string {
	switch {
	case status.IsPaused:
		return "paused"
	case status.IsCapturing:
		return "capturing"
	default:
		return "idle"
	}
}

func (i *Interface) printBanner() {
	i.term.Println(`
=============================================
  Locator Capture
  Click elements in the browser to record
  unique locators for them.
=============================================`)
}

func (i *Interface) printHelp() {
	i.term.Println(`
Available commands:
  start         - Start a capture session
  pause         - Pause capturing, keep results
  resume        - Resume a paused session
  stop          - Stop and export captured locators
  status        - Show the session state
  open <url>    - Navigate the browser
  help, h       - Show this help message
  exit, quit, q - Exit the application`)
}
