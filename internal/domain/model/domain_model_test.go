package model

import "testing"

func TestJobStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to JobStatus
		ok       bool
	}{
		{JobStatusPending, JobStatusRunning, true},
		{JobStatusPending, JobStatusFailed, true},
		{JobStatusPending, JobStatusCompleted, false},
		{JobStatusRunning, JobStatusCompleted, true},
		{JobStatusRunning, JobStatusFailed, true},
		{JobStatusRunning, JobStatusPending, false},
		{JobStatusCompleted, JobStatusFailed, false},
		{JobStatusCompleted, JobStatusRunning, false},
		{JobStatusFailed, JobStatusCompleted, false},
		{JobStatusFailed, JobStatusRunning, false},
	}
	for _, c := range cases {
		j := NewCrewJob("j1", "u1", "", "some topic", "", "")
		j.Status = c.from
		if got := j.CanTransition(c.to); got != c.ok {
			t.Errorf("%s -> %s: got %v, want %v", c.from, c.to, got, c.ok)
		}
	}
}

func TestTerminal(t *testing.T) {
	if JobStatusPending.Terminal() || JobStatusRunning.Terminal() {
		t.Error("pending/running must not be terminal")
	}
	if !JobStatusCompleted.Terminal() || !JobStatusFailed.Terminal() {
		t.Error("completed/failed must be terminal")
	}
}

func TestNewCrewJobDefaults(t *testing.T) {
	j := NewCrewJob("j1", "u1", "c1", "AI in healthcare", "blog", "short")
	if j.Status != JobStatusPending {
		t.Errorf("new job status = %s, want pending", j.Status)
	}
	if j.ImageStatus != ImageStatusNone {
		t.Errorf("new job image status = %s, want none", j.ImageStatus)
	}
	if j.CompletedAt != nil {
		t.Error("new job must not carry a completion timestamp")
	}
}
