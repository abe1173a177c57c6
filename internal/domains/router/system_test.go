package router_test

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/peplink-community/peplink-agent/internal/entities"
)

const combinedSystemBody = `{"stat":"ok","response":{
	"device":{"serialNumber":"1111-2222-3333","name":"Office Balance","model":"Balance 20X","productCode":"BPL-021X","hardwareRevision":"2","firmwareVersion":"8.4.0","pepvpnVersion":"9.0"},
	"systemTime":{"string":"Sat Aug 30 12:00:00 UTC 2026","timestamp":1788091200,"timezone":"UTC"},
	"thermalSensor":[{"temperature":41.5,"min":-20,"max":90,"threshold":25}],
	"fanSpeed":[{"active":true,"value":8500,"total":17000,"percentage":50},{"active":false,"value":0}]
}}`

func Test_GetSystemInfo(t *testing.T) {
	t.Parallel()

	fake := newFakeRouter()
	fake.funcs["status.system.info"] = combinedSystemBody

	srv := fake.start()
	defer srv.Close()

	svc := newTestService(srv.URL)
	defer svc.Close()

	info, err := svc.GetSystemInfo(context.Background())
	require.NoError(t, err)

	require.Equal(t, "1111-2222-3333", info.Device.SerialNumber)
	require.Equal(t, "Office Balance", info.Device.Name)
	require.Equal(t, "Balance 20X", info.Device.Model)
	require.Equal(t, "8.4.0", info.Device.FirmwareVersion)

	require.Equal(t, int64(1788091200), info.SystemTime.Timestamp)
	require.Equal(t, "UTC", info.SystemTime.Timezone)

	require.Equal(t, []entities.ThermalSensor{
		{Name: "System", Temperature: 41.5, Unit: "C", Min: -20, Max: 90, Threshold: 25},
	}, info.ThermalSensors)

	// inactive fans are dropped, names are positional
	require.Equal(t, []entities.FanSpeed{
		{Name: "Fan 1", Speed: 8500, Unit: "RPM", MaxSpeed: 17000, Percentage: 50},
	}, info.FanSpeeds)
}

func Test_GetSystemInfo_Defaults(t *testing.T) {
	t.Parallel()

	fake := newFakeRouter()
	fake.funcs["status.system.info"] = `{"stat":"ok","response":{
		"thermalSensor":[{"temperature":37}],
		"fanSpeed":[{"active":true,"value":4000}]
	}}`

	srv := fake.start()
	defer srv.Close()

	svc := newTestService(srv.URL)
	defer svc.Close()

	info, err := svc.GetSystemInfo(context.Background())
	require.NoError(t, err)

	require.Equal(t, []entities.ThermalSensor{
		{Name: "System", Temperature: 37, Unit: "C", Min: -30, Max: 110, Threshold: 30},
	}, info.ThermalSensors)
	require.Equal(t, []entities.FanSpeed{
		{Name: "Fan 1", Speed: 4000, Unit: "RPM", MaxSpeed: 17000},
	}, info.FanSpeeds)
}

func Test_GetDeviceInfo_FallsBackOnMissingField(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name         string
		combinedBody string
		expectSerial string
		expectCalls  int
	}{
		{
			name:         "combined call carries the device block",
			combinedBody: combinedSystemBody,
			expectSerial: "1111-2222-3333",
			expectCalls:  1,
		},
		{
			name:         "combined call lacks the device block",
			combinedBody: `{"stat":"ok","response":{"systemTime":{"timestamp":1788091200}}}`,
			expectSerial: "4444-5555-6666",
			expectCalls:  2,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var calls atomic.Int32
			fake := newFakeRouter()
			fake.funcHandlers["status.system.info"] = func(r *http.Request) string {
				calls.Add(1)
				if r.URL.Query().Get("infoType") == "device" {
					return `{"stat":"ok","response":{"device":{"serialNumber":"4444-5555-6666","name":"Spare"}}}`
				}

				return tc.combinedBody
			}

			srv := fake.start()
			defer srv.Close()

			svc := newTestService(srv.URL)
			defer svc.Close()

			device, err := svc.GetDeviceInfo(context.Background())
			require.NoError(t, err)
			require.Equal(t, tc.expectSerial, device.SerialNumber)
			require.Equal(t, tc.expectCalls, int(calls.Load()))
		})
	}
}

func Test_GetThermalSensors_FallsBackOnMissingField(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	fake := newFakeRouter()
	fake.funcHandlers["status.system.info"] = func(r *http.Request) string {
		calls.Add(1)
		if r.URL.Query().Get("infoType") == "thermalSensor" {
			return `{"stat":"ok","response":{"thermalSensor":[{"temperature":55}]}}`
		}

		return `{"stat":"ok","response":{"device":{"serialNumber":"1111"}}}`
	}

	srv := fake.start()
	defer srv.Close()

	svc := newTestService(srv.URL)
	defer svc.Close()

	sensors, err := svc.GetThermalSensors(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, int(calls.Load()))
	require.Equal(t, []entities.ThermalSensor{
		{Name: "System", Temperature: 55, Unit: "C", Min: -30, Max: 110, Threshold: 30},
	}, sensors)
}

func Test_GetFanSpeeds_FallsBackOnMissingField(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	fake := newFakeRouter()
	fake.funcHandlers["status.system.info"] = func(r *http.Request) string {
		calls.Add(1)
		if r.URL.Query().Get("infoType") == "fanSpeed" {
			return `{"stat":"ok","response":{"fanSpeed":[{"active":true,"value":9000,"total":18000,"percentage":50}]}}`
		}

		return `{"stat":"ok","response":{"device":{"serialNumber":"1111"}}}`
	}

	srv := fake.start()
	defer srv.Close()

	svc := newTestService(srv.URL)
	defer svc.Close()

	fans, err := svc.GetFanSpeeds(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, int(calls.Load()))
	require.Equal(t, []entities.FanSpeed{
		{Name: "Fan 1", Speed: 9000, Unit: "RPM", MaxSpeed: 18000, Percentage: 50},
	}, fans)
}
