package models

import (
	"testing"
	"time"
)

func TestJobStatusTerminal(t *testing.T) {
	tests := []struct {
		name   string
		status JobStatus
		want   bool
	}{
		{"pending is not terminal", JobStatusPending, false},
		{"processing is not terminal", JobStatusProcessing, false},
		{"completed is terminal", JobStatusCompleted, true},
		{"failed is terminal", JobStatusFailed, true},
		{"cancelled is terminal", JobStatusCancelled, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.status.Terminal(); got != tt.want {
				t.Fatalf("Terminal() for %q = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}

func TestNewJob(t *testing.T) {
	cfg := JobConfig{TempPath: "/tmp/upload-1.pdf", TotalPages: 42}
	job := NewJob("user-1", "edital-123.pdf", 1024, "objects/edital-123.pdf", cfg)

	if job.ID == "" {
		t.Fatal("NewJob() did not assign an ID")
	}
	if job.OwnerID != "user-1" {
		t.Fatalf("OwnerID = %q, want %q", job.OwnerID, "user-1")
	}
	if job.SourceFilename != "edital-123.pdf" {
		t.Fatalf("SourceFilename = %q, want %q", job.SourceFilename, "edital-123.pdf")
	}
	if job.SourceSizeBytes != 1024 {
		t.Fatalf("SourceSizeBytes = %d, want 1024", job.SourceSizeBytes)
	}
	if job.ObjectKey != "objects/edital-123.pdf" {
		t.Fatalf("ObjectKey = %q, want %q", job.ObjectKey, "objects/edital-123.pdf")
	}
	if job.Status != JobStatusPending {
		t.Fatalf("Status = %q, want %q", job.Status, JobStatusPending)
	}
	if job.Config.TotalPages != 42 {
		t.Fatalf("Config.TotalPages = %d, want 42", job.Config.TotalPages)
	}
	if job.CreatedAt.IsZero() {
		t.Fatal("CreatedAt was not set")
	}
	if job.LastHeartbeat.IsZero() {
		t.Fatal("LastHeartbeat was not set")
	}
	if job.StartedAt != nil {
		t.Fatal("StartedAt should be nil for a freshly submitted job")
	}
	if job.ParentID != nil {
		t.Fatal("ParentID should be nil for a root job")
	}
}

func TestJobValidate(t *testing.T) {
	valid := func() *Job {
		return NewJob("user-1", "edital.pdf", 10, "objects/edital.pdf", JobConfig{})
	}

	tests := []struct {
		name    string
		mutate  func(j *Job)
		wantErr bool
	}{
		{"valid job", func(j *Job) {}, false},
		{"missing id", func(j *Job) { j.ID = "" }, true},
		{"missing owner id", func(j *Job) { j.OwnerID = "" }, true},
		{"missing source filename", func(j *Job) { j.SourceFilename = "" }, true},
		{"missing object key", func(j *Job) { j.ObjectKey = "" }, true},
		{"missing status", func(j *Job) { j.Status = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := valid()
			tt.mutate(j)
			err := j.Validate()
			if tt.wantErr && err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("Validate() = %v, want nil", err)
			}
		})
	}
}

func TestJobProgressFraction(t *testing.T) {
	tests := []struct {
		name            string
		totalChunks     int
		completedChunks int
		failedChunks    int
		want            float64
	}{
		{"no chunks yet", 0, 0, 0, 0},
		{"none completed", 10, 0, 0, 0},
		{"half completed", 10, 5, 0, 0.5},
		{"completed and failed combine", 10, 4, 2, 0.6},
		{"fully completed", 10, 10, 0, 1},
		{"overcounted done clamps to total", 10, 9, 5, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := &Job{
				TotalChunks:     tt.totalChunks,
				CompletedChunks: tt.completedChunks,
				FailedChunks:    tt.failedChunks,
			}
			if got := j.ProgressFraction(); got != tt.want {
				t.Fatalf("ProgressFraction() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestJobConfigExtraPassthrough(t *testing.T) {
	cfg := JobConfig{Extra: map[string]string{"batch": "2026-Q3"}}
	job := NewJob("user-1", "edital.pdf", 1, "objects/edital.pdf", cfg)

	if job.Config.Extra["batch"] != "2026-Q3" {
		t.Fatalf("Config.Extra[batch] = %q, want %q", job.Config.Extra["batch"], "2026-Q3")
	}
}

func TestJobTimestampsAdvanceOnLifecycle(t *testing.T) {
	job := NewJob("user-1", "edital.pdf", 1, "objects/edital.pdf", JobConfig{})
	started := time.Now()
	job.StartedAt = &started
	job.Status = JobStatusProcessing

	if job.Status.Terminal() {
		t.Fatal("processing should not be terminal")
	}
	if job.StartedAt == nil || !job.StartedAt.Equal(started) {
		t.Fatal("StartedAt was not recorded")
	}

	completed := started.Add(time.Minute)
	job.CompletedAt = &completed
	job.Status = JobStatusCompleted

	if !job.Status.Terminal() {
		t.Fatal("completed should be terminal")
	}
}
