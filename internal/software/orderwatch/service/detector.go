package service

import (
	"context"
	"fmt"

	"order-notifier/internal/domain/order"
	"order-notifier/internal/domain/session"
)

// Poll runs one detection pass for the device namespace.
func (d *detector) Poll(ctx context.Context, namespace string) order.Outcome {
	// 1) one read of the whole session
	snap, err := d.sessions.Snapshot(ctx, namespace)
	if err != nil {
		return d.transient(ctx, "session_load_failed", "Failed to load session snapshot", err, namespace)
	}

	// 2) offline or logged out: nothing to do, no network call
	drv, present, err := snap.Driver()
	if !present || !snap.Online() {
		return d.skipped(ctx, order.SkipOffline, namespace)
	}
	if err != nil {
		return d.transient(ctx, "driver_parse_failed", "Failed to parse stored driver", err, namespace)
	}
	if !drv.Complete() {
		return d.skipped(ctx, order.SkipMissingIdentifiers, namespace)
	}

	// 3) backend credentials
	creds, ok := snap.Credentials()
	if !ok {
		return d.skipped(ctx, order.SkipUnconfigured, namespace)
	}

	// 4) last notified marker, possibly absent
	marker := snap.Marker()

	// 5) newest pending orders of the company
	orders, err := d.orders.FetchRecentPending(ctx, creds, drv.CompanyID, order.RecentWindow)
	if err != nil {
		return d.transient(ctx, "orders_fetch_failed", "Failed to fetch pending orders", err, namespace)
	}
	for _, o := range orders {
		if o.ID == "" {
			return d.skipped(ctx, order.SkipMissingOrderID, namespace)
		}
	}

	candidate, found := order.FindCandidate(orders, marker.OrderID)
	if !found {
		d.logger.Debug(ctx, "poll_no_new_order", "No new order since last notification", map[string]any{
			"namespace": namespace,
			"fetched":   len(orders),
			"marker":    marker.OrderID,
		})
		return order.NoNewOrder()
	}

	// 6) notify first, then advance the marker
	n := d.formatter.NewOrder(drv.DriverID, candidate)
	if err := d.sink.Notify(ctx, n); err != nil {
		return d.transient(ctx, "notification_failed", "Failed to deliver notification", err, namespace)
	}
	if err := d.sessions.SaveMarker(ctx, namespace, session.Marker{OrderID: candidate.ID}); err != nil {
		return d.transient(ctx, "marker_save_failed", "Failed to save last notified order", err, namespace)
	}

	d.logger.Info(ctx, "order_notified", "Driver notified about new order", map[string]any{
		"namespace":       namespace,
		"driver_id":       drv.DriverID,
		"order_id":        candidate.ID,
		"previous_marker": marker.OrderID,
	})
	return order.Notified(candidate)
}

func (d *detector) skipped(ctx context.Context, reason, namespace string) order.Outcome {
	d.logger.Debug(ctx, "poll_skipped", "Poll skipped", map[string]any{
		"namespace": namespace,
		"reason":    reason,
	})
	return order.Skipped(reason)
}

func (d *detector) transient(ctx context.Context, action, msg string, err error, namespace string) order.Outcome {
	d.logger.Error(ctx, action, msg, err, map[string]any{"namespace": namespace})
	return order.TransientFailure(fmt.Errorf("%s: %w", action, err))
}
