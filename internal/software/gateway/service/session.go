package service

import (
	"context"
	"fmt"
	"strings"

	"order-notifier/internal/domain/session"
	"order-notifier/internal/ports"
)

// GoOnline stores the driver blob and raises the online flag. Switching company
// drops the last notified marker, since it refers to another company's orders.
func (service *gatewayService) GoOnline(ctx context.Context, in ports.GoOnlineInput) (ports.GoOnlineResult, error) {
	driverID := strings.TrimSpace(in.DriverID)
	companyID := strings.TrimSpace(in.CompanyID)
	if driverID == "" || companyID == "" {
		return ports.GoOnlineResult{}, fmt.Errorf("%w: driver_id and company_id are required", ErrInvalidInput)
	}

	blob, err := session.EncodeDriver(driverID, companyID)
	if err != nil {
		return ports.GoOnlineResult{}, err
	}

	err = service.uow.WithinTx(ctx, func(ctx context.Context) error {
		snap, err := service.sessions.Snapshot(ctx, driverID)
		if err != nil {
			return err
		}
		if prev, ok, _ := snap.Driver(); ok && prev.CompanyID != companyID && snap.Marker().Set() {
			if err := service.sessions.DeleteKeys(ctx, driverID, session.KeyLastNotified); err != nil {
				return err
			}
		}

		return service.sessions.SetValues(ctx, driverID, map[string]string{
			session.KeyDriver:   blob,
			session.KeyIsOnline: session.FormatOnlineFlag(true),
		})
	})
	if err != nil {
		service.logger.Error(ctx, "driver_go_online_failed", "Failed to bring driver online", err,
			map[string]any{"driver_id": driverID, "company_id": companyID})
		return ports.GoOnlineResult{}, err
	}

	service.logger.Info(ctx, "driver_online", "Driver went online", map[string]any{
		"driver_id":  driverID,
		"company_id": companyID,
	})

	return ports.GoOnlineResult{
		DriverID:  driverID,
		CompanyID: companyID,
		IsOnline:  true,
		Message:   "You are online and will be notified about new orders",
	}, nil
}

// GoOffline lowers the online flag; polls for this driver become no-ops.
func (service *gatewayService) GoOffline(ctx context.Context, driverID string) (ports.GoOfflineResult, error) {
	driverID = strings.TrimSpace(driverID)
	if driverID == "" {
		return ports.GoOfflineResult{}, fmt.Errorf("%w: driver_id is required", ErrInvalidInput)
	}

	err := service.uow.WithinTx(ctx, func(ctx context.Context) error {
		return service.sessions.SetValues(ctx, driverID, map[string]string{
			session.KeyIsOnline: session.FormatOnlineFlag(false),
		})
	})
	if err != nil {
		service.logger.Error(ctx, "driver_go_offline_failed", "Failed to take driver offline", err,
			map[string]any{"driver_id": driverID})
		return ports.GoOfflineResult{}, err
	}

	service.logger.Info(ctx, "driver_offline", "Driver went offline", map[string]any{"driver_id": driverID})
	return ports.GoOfflineResult{
		DriverID: driverID,
		IsOnline: false,
		Message:  "You are offline and will not receive order notifications",
	}, nil
}

// SetBackend stores the backend location and key used by polls for this driver.
func (service *gatewayService) SetBackend(ctx context.Context, in ports.SetBackendInput) (ports.SetBackendResult, error) {
	driverID := strings.TrimSpace(in.DriverID)
	base := strings.TrimRight(strings.TrimSpace(in.BaseURL), "/")
	key := strings.TrimSpace(in.APIKey)

	if driverID == "" || key == "" {
		return ports.SetBackendResult{}, fmt.Errorf("%w: driver_id and api_key are required", ErrInvalidInput)
	}
	if !session.ValidBackendURL(base) {
		return ports.SetBackendResult{}, fmt.Errorf("%w: base_url must be an absolute http(s) url", ErrInvalidInput)
	}

	err := service.uow.WithinTx(ctx, func(ctx context.Context) error {
		return service.sessions.SetValues(ctx, driverID, map[string]string{
			session.KeyBackendURL: base,
			session.KeyBackendKey: key,
		})
	})
	if err != nil {
		service.logger.Error(ctx, "backend_credentials_failed", "Failed to store backend credentials", err,
			map[string]any{"driver_id": driverID})
		return ports.SetBackendResult{}, err
	}

	service.logger.Info(ctx, "backend_credentials_updated", "Backend credentials stored", map[string]any{
		"driver_id": driverID,
		"base_url":  base,
	})
	return ports.SetBackendResult{
		DriverID: driverID,
		BaseURL:  base,
		Message:  "Backend credentials saved",
	}, nil
}
