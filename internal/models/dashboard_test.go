package models

import (
	"testing"
	"time"
)

func TestNewDashboardSnapshotIDCombinesScopeAndUser(t *testing.T) {
	if got := NewDashboardSnapshotID("global", "user-1"); got != "global:user-1" {
		t.Fatalf("NewDashboardSnapshotID() = %q, want %q", got, "global:user-1")
	}
}

func TestDashboardSnapshotFreshBeforeExpiry(t *testing.T) {
	now := time.Now()
	d := &DashboardSnapshot{ExpiresAt: now.Add(time.Minute)}
	if !d.Fresh(now) {
		t.Fatal("Fresh() = false, want true when now is before ExpiresAt")
	}
}

func TestDashboardSnapshotStaleAfterExpiry(t *testing.T) {
	now := time.Now()
	d := &DashboardSnapshot{ExpiresAt: now.Add(-time.Minute)}
	if d.Fresh(now) {
		t.Fatal("Fresh() = true, want false when now is after ExpiresAt")
	}
}
