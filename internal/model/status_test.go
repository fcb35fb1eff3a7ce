package model

import "testing"

func TestOperationStatus_IsActive(t *testing.T) {
	tests := []struct {
		status   OperationStatus
		expected bool
	}{
		{StatusIdle, false},
		{StatusResolving, true},
		{StatusDownloading, true},
		{StatusAnalyzing, true},
		{StatusCompleted, false},
		{StatusFailed, false},
	}

	for _, test := range tests {
		result := test.status.IsActive()
		if result != test.expected {
			t.Errorf("OperationStatus(%s).IsActive() = %v, expected %v", test.status, result, test.expected)
		}
	}
}

func TestOperationStatus_IsFinished(t *testing.T) {
	tests := []struct {
		status   OperationStatus
		expected bool
	}{
		{StatusIdle, false},
		{StatusResolving, false},
		{StatusDownloading, false},
		{StatusAnalyzing, false},
		{StatusCompleted, true},
		{StatusFailed, true},
	}

	for _, test := range tests {
		result := test.status.IsFinished()
		if result != test.expected {
			t.Errorf("OperationStatus(%s).IsFinished() = %v, expected %v", test.status, result, test.expected)
		}
	}
}

func TestOperationStatus_String(t *testing.T) {
	if got := StatusDownloading.String(); got != "Downloading" {
		t.Errorf("OperationStatus.String() = %s, expected Downloading", got)
	}
}
