package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"locator-capture/internal/entity"
	"locator-capture/internal/session"
	"locator-capture/pkg/apperr"
)

type Service interface {
	Dispatch(ctx context.Context, action session.Action) (entity.StopReport, error)
	Status() entity.Status
	SynthesizeHTML(ctx context.Context, source, target string) (*entity.LocatorResult, error)
}

type messageInput struct {
	Body struct {
		Action string `json:"action" doc:"START_CAPTURE, PAUSE_CAPTURE, RESUME_CAPTURE, STOP_CAPTURE or GET_STATUS" example:"START_CAPTURE"`
	}
}

type reportBody struct {
	IsCapturing bool   `json:"isCapturing"`
	IsPaused    bool   `json:"isPaused"`
	SessionID   string `json:"sessionId,omitempty"`
	Path        string `json:"path,omitempty" doc:"Export file written on STOP_CAPTURE"`
	Count       int    `json:"count,omitempty"`
	Notice      string `json:"notice,omitempty"`
}

type messageOutput struct {
	Body reportBody
}

type statusOutput struct {
	Body entity.Status
}

type synthesizeInput struct {
	Body struct {
		HTML   string `json:"html" minLength:"1" doc:"Document to analyse"`
		Target string `json:"target" minLength:"1" doc:"XPath selecting exactly one element" example:"//button"`
	}
}

type synthesizeOutput struct {
	Body entity.LocatorResult
}

// NewHandler builds the HTTP API. Session messages mirror the console
// commands; /locators runs synthesis on a posted document.
func NewHandler(svc Service, logger *zap.Logger) http.Handler {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(requestLogger(logger))
	router.Use(middleware.Recoverer)

	api := humachi.New(router, huma.DefaultConfig("Locator Capture API", "1.0.0"))

	registerSessionHandlers(api, svc)
	registerLocatorHandlers(api, svc)

	return router
}

func registerSessionHandlers(api huma.API, svc Service) {
	huma.Register(api, huma.Operation{OperationID: "send-message", Method: http.MethodPost, Path: "/api/v1/messages", Summary: "Send a session control message", Tags: []string{"Session"}},
		func(ctx context.Context, input *messageInput) (*messageOutput, error) {
			action, err := session.ParseMessage(input.Body.Action)
			if err != nil {
				return nil, mapErr(err)
			}

			report, err := svc.Dispatch(ctx, action)
			if err != nil {
				return nil, mapErr(err)
			}

			out := &messageOutput{}
			out.Body = reportBody{
				IsCapturing: report.Status.IsCapturing,
				IsPaused:    report.Status.IsPaused,
				Path:        report.Path,
				Count:       report.Count,
				Notice:      report.Notice,
			}
			if report.SessionID != uuid.Nil {
				out.Body.SessionID = report.SessionID.String()
			}

			return out, nil
		})

	huma.Register(api, huma.Operation{OperationID: "get-session", Method: http.MethodGet, Path: "/api/v1/session", Summary: "Current capture state", Tags: []string{"Session"}},
		func(ctx context.Context, input *struct{}) (*statusOutput, error) {
			return &statusOutput{Body: svc.Status()}, nil
		})
}

func registerLocatorHandlers(api huma.API, svc Service) {
	huma.Register(api, huma.Operation{OperationID: "synthesize-locators", Method: http.MethodPost, Path: "/api/v1/locators", Summary: "Synthesize unique locators for one element", Tags: []string{"Locators"}},
		func(ctx context.Context, input *synthesizeInput) (*synthesizeOutput, error) {
			result, err := svc.SynthesizeHTML(ctx, input.Body.HTML, input.Body.Target)
			if err != nil {
				return nil, mapErr(err)
			}

			return &synthesizeOutput{Body: *result}, nil
		})
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}

	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case apperr.CodeInvalidArgument, apperr.CodeUnknownAction:
			return huma.Error400BadRequest(err.Error())
		case apperr.CodeNotFound:
			return huma.Error404NotFound(err.Error())
		case apperr.CodeAmbiguousTarget:
			return huma.Error409Conflict(err.Error())
		case apperr.CodeBrowserNotReady, apperr.CodeUnavailable:
			return huma.Error503ServiceUnavailable(err.Error())
		}
	}

	return huma.Error500InternalServerError(err.Error())
}
