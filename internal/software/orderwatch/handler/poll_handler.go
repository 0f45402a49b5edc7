package handler

import (
	"net/http"
	"time"
)

type pollResponse struct {
	TaskID     string    `json:"task_id"`
	Namespace  string    `json:"namespace"`
	Origin     string    `json:"origin"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// ----- Handler: POST /polls -----

func (handler *PollerHTTPHandler) handleRequestPoll(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	task, err := handler.svc.RequestPoll(ctx)
	if err != nil {
		handler.httpError(ctx, w, http.StatusServiceUnavailable, "failed to enqueue poll", err)
		return
	}

	handler.logger.Info(ctx, "manual_poll_requested", "Manual poll enqueued", map[string]any{"task_id": task.TaskID})
	handler.jsonResponse(ctx, w, http.StatusAccepted, pollResponse{
		TaskID:     task.TaskID,
		Namespace:  task.Namespace,
		Origin:     task.Origin,
		EnqueuedAt: task.EnqueuedAt,
	})
}
