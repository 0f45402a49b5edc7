package ports

import (
	"context"
	"time"

	"order-notifier/internal/domain/notification"
	"order-notifier/internal/domain/order"
	"order-notifier/internal/general/contracts"
)

// NotificationSink delivers a formatted notification to the driver device.
type NotificationSink interface {
	Notify(ctx context.Context, n notification.Notification) error
}

// TaskScheduler is the host API used to request poll invocations.
type TaskScheduler interface {
	// Enqueue requests one poll after delay; zero means as soon as possible.
	Enqueue(ctx context.Context, task contracts.PollTask, delay time.Duration) error
	// UpsertRecurring keeps at most one recurring schedule per name. A repeated
	// call replaces the previous schedule.
	UpsertRecurring(ctx context.Context, name string, every time.Duration, namespace string) error
}

// ----- Order watch -----

// Detector runs a single new-order poll for a device namespace.
type Detector interface {
	Poll(ctx context.Context, namespace string) order.Outcome
}

// PollScheduler requests the startup burst and the recurring poll.
type PollScheduler interface {
	Start(ctx context.Context) error
}

// PollRequester is used by the poller HTTP API for manual polls.
type PollRequester interface {
	RequestPoll(ctx context.Context) (contracts.PollTask, error)
}

// ----- DTOs for the notification gateway -----

// GoOnlineInput is the validated input for POST /drivers/{driver_id}/online.
type GoOnlineInput struct {
	DriverID  string // from path
	CompanyID string // from body
}

// GoOnlineResult is returned by GatewayService.GoOnline.
type GoOnlineResult struct {
	DriverID  string `json:"driver_id"`
	CompanyID string `json:"company_id"`
	IsOnline  bool   `json:"is_online"`
	Message   string `json:"message"`
}

// GoOfflineResult is returned by GatewayService.GoOffline.
type GoOfflineResult struct {
	DriverID string `json:"driver_id"`
	IsOnline bool   `json:"is_online"`
	Message  string `json:"message"`
}

// SetBackendInput is the validated input for PUT /drivers/{driver_id}/backend.
type SetBackendInput struct {
	DriverID string
	BaseURL  string
	APIKey   string
}

// SetBackendResult is returned by GatewayService.SetBackend. The key is never echoed.
type SetBackendResult struct {
	DriverID string `json:"driver_id"`
	BaseURL  string `json:"base_url"`
	Message  string `json:"message"`
}

// GatewayService exposes the boundary for the notification gateway.
type GatewayService interface {
	GoOnline(ctx context.Context, in GoOnlineInput) (GoOnlineResult, error)
	GoOffline(ctx context.Context, driverID string) (GoOfflineResult, error)
	SetBackend(ctx context.Context, in SetBackendInput) (SetBackendResult, error)
	RunPushConsumer(ctx context.Context) error
}
