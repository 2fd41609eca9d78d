package maintenance

import (
	"testing"
	"time"

	logx "inkd/pkg/logx"
)

func TestApplyRejectsBadSpec(t *testing.T) {
	s := New(nil, logx.Nop())
	defer s.Stop()
	if err := s.Apply("not a cron spec", time.UTC); err == nil {
		t.Fatal("expected error for invalid cron spec")
	}
}

func TestApplyEmptyDisables(t *testing.T) {
	s := New(nil, logx.Nop())
	defer s.Stop()
	// Yearly job; it will never fire during the test.
	if err := s.Apply("0 0 1 1 *", time.UTC); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if err := s.Apply("", time.UTC); err != nil {
		t.Fatalf("disable: %v", err)
	}
	if s.c != nil {
		t.Fatal("cron still running after disable")
	}
}

func TestApplyUnchangedIsNoop(t *testing.T) {
	s := New(nil, logx.Nop())
	defer s.Stop()
	if err := s.Apply("0 4 * * *", time.UTC); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	first := s.c
	if err := s.Apply("0 4 * * *", time.UTC); err != nil {
		t.Fatalf("reapply: %v", err)
	}
	if s.c != first {
		t.Fatal("unchanged spec restarted the cron")
	}
}

func TestApplyTimezoneChangeRestarts(t *testing.T) {
	s := New(nil, logx.Nop())
	defer s.Stop()
	if err := s.Apply("0 4 * * *", time.UTC); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	first := s.c
	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Fatalf("LoadLocation: %v", err)
	}
	if err := s.Apply("0 4 * * *", berlin); err != nil {
		t.Fatalf("reapply: %v", err)
	}
	if s.c == first {
		t.Fatal("timezone change did not restart the cron")
	}
}

func TestStopTwice(t *testing.T) {
	s := New(nil, logx.Nop())
	if err := s.Apply("0 4 * * *", time.UTC); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	s.Stop()
	s.Stop()
}
