package tests

import (
	"context"
	"errors"
	"testing"

	"tripmeter/internal/domain"
	"tripmeter/internal/service"
)

func TestDriverLocationUpdate_WritesToSupplyIndex(t *testing.T) {
	t.Parallel()

	locationStore := NewMockLocationStore()
	driverService := service.NewDriverService(locationStore)

	err := driverService.UpdateLocation(context.Background(), service.UpdateLocationRequest{
		DriverID: "driver-1",
		Lat:      -6.2088,
		Lng:      106.8456,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if locationStore.UpdateLocationCallCount != 1 {
		t.Errorf("expected UpdateLocation to be called once, called %d times", locationStore.UpdateLocationCallCount)
	}
	if !locationStore.HasLocation("driver-1") {
		t.Error("expected driver location to be stored")
	}
}

func TestDriverLocationUpdate_Validation(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		driverID string
		lat      float64
		lng      float64
		wantErr  error
	}{
		{name: "latitude too high", driverID: "d", lat: 91, lng: 0, wantErr: service.ErrInvalidLocation},
		{name: "latitude too low", driverID: "d", lat: -91, lng: 0, wantErr: service.ErrInvalidLocation},
		{name: "longitude too high", driverID: "d", lat: 0, lng: 181, wantErr: service.ErrInvalidLocation},
		{name: "longitude too low", driverID: "d", lat: 0, lng: -181, wantErr: service.ErrInvalidLocation},
		{name: "empty driver", driverID: "", lat: 0, lng: 0, wantErr: service.ErrInvalidDriverID},
		{name: "boundary values", driverID: "d", lat: 90, lng: -180},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			locationStore := NewMockLocationStore()
			driverService := service.NewDriverService(locationStore)

			err := driverService.UpdateLocation(context.Background(), service.UpdateLocationRequest{
				DriverID: tc.driverID,
				Lat:      tc.lat,
				Lng:      tc.lng,
			})

			if tc.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("expected %v, got %v", tc.wantErr, err)
			}
			if !errors.Is(err, domain.ErrInvalidArgument) {
				t.Errorf("expected the InvalidArgument class, got %v", err)
			}
			if locationStore.UpdateLocationCallCount != 0 {
				t.Error("invalid input must not reach the store")
			}
		})
	}
}

func TestDriverLocationUpdate_StoreErrorPropagates(t *testing.T) {
	t.Parallel()

	locationStore := NewMockLocationStore()
	locationStore.UpdateLocationError = ErrMockTimeout
	driverService := service.NewDriverService(locationStore)

	err := driverService.UpdateLocation(context.Background(), service.UpdateLocationRequest{DriverID: "d", Lat: 1, Lng: 1})
	if !errors.Is(err, ErrMockTimeout) {
		t.Errorf("expected ErrMockTimeout, got %v", err)
	}
}

func TestDriverOffline_RemovesFromSupply(t *testing.T) {
	t.Parallel()

	locationStore := NewMockLocationStore()
	driverService := service.NewDriverService(locationStore)
	ctx := context.Background()

	_ = driverService.UpdateLocation(ctx, service.UpdateLocationRequest{DriverID: "driver-1", Lat: 1, Lng: 1})
	if err := driverService.SetDriverOffline(ctx, "driver-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if locationStore.HasLocation("driver-1") {
		t.Error("expected driver to be removed")
	}
	if err := driverService.SetDriverOffline(ctx, ""); !errors.Is(err, service.ErrInvalidDriverID) {
		t.Errorf("expected ErrInvalidDriverID, got %v", err)
	}
}
