package telemetry

import (
	"errors"
	"testing"
	"time"
)

func TestDecode(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		payload string
		want    Record
		wantErr bool
	}{
		{
			name:    "valid",
			payload: `{"client_id":"bed-1","temperature":24.5,"humidity":40.12}`,
			want:    Record{DeviceID: "bed-1", Timestamp: now, Temperature: 24.5, Humidity: 40.12},
		},
		{
			name:    "zero values are valid",
			payload: `{"client_id":"bed-1","temperature":0,"humidity":0}`,
			want:    Record{DeviceID: "bed-1", Timestamp: now},
		},
		{name: "empty", payload: ``, wantErr: true},
		{name: "not json", payload: `hello`, wantErr: true},
		{name: "array", payload: `[1,2]`, wantErr: true},
		{name: "missing client_id", payload: `{"temperature":1,"humidity":2}`, wantErr: true},
		{name: "blank client_id", payload: `{"client_id":"  ","temperature":1,"humidity":2}`, wantErr: true},
		{name: "missing temperature", payload: `{"client_id":"a","humidity":2}`, wantErr: true},
		{name: "missing humidity", payload: `{"client_id":"a","temperature":1}`, wantErr: true},
		{name: "string temperature", payload: `{"client_id":"a","temperature":"hot","humidity":2}`, wantErr: true},
		{name: "null humidity", payload: `{"client_id":"a","temperature":1,"humidity":null}`, wantErr: true},
		{name: "humidity over 100", payload: `{"client_id":"a","temperature":1,"humidity":101}`, wantErr: true},
		{name: "negative humidity", payload: `{"client_id":"a","temperature":1,"humidity":-1}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.payload), now)
			if tt.wantErr {
				if !errors.Is(err, ErrDecodeFailed) {
					t.Fatalf("Decode() error = %v, want ErrDecodeFailed", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Decode() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
