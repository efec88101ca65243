package core

import "testing"

func TestSchedulerOrder(t *testing.T) {
	var s Scheduler
	var fired []int

	mk := func(id int, wake uint32) *Timer {
		return &Timer{WakeTime: wake, Handler: func(*Timer) uint8 {
			fired = append(fired, id)
			return SF_DONE
		}}
	}
	s.Schedule(mk(3, 300))
	s.Schedule(mk(1, 100))
	s.Schedule(mk(2, 200))

	s.Dispatch(250)
	if len(fired) != 2 || fired[0] != 1 || fired[1] != 2 {
		t.Errorf("Expected timers 1,2 at 250, got %v", fired)
	}
	s.Dispatch(300)
	if len(fired) != 3 || fired[2] != 3 {
		t.Errorf("Expected timer 3 at 300, got %v", fired)
	}
	if s.Pending() {
		t.Error("Expected empty schedule")
	}
}

func TestSchedulerReschedule(t *testing.T) {
	var s Scheduler
	count := 0
	timer := &Timer{WakeTime: 100, Handler: func(t *Timer) uint8 {
		count++
		t.WakeTime += 100
		return SF_RESCHEDULE
	}}
	s.Schedule(timer)

	for now := uint32(0); now <= 1000; now += 50 {
		s.Dispatch(now)
	}
	if count != 10 {
		t.Errorf("Expected 10 firings, got %d", count)
	}

	s.Cancel(timer)
	s.Dispatch(5000)
	if count != 10 {
		t.Errorf("Cancelled timer fired")
	}
}

func TestSchedulerWraparound(t *testing.T) {
	var s Scheduler
	fired := false
	s.Schedule(&Timer{WakeTime: 0x10, Handler: func(*Timer) uint8 {
		fired = true
		return SF_DONE
	}})

	s.Dispatch(0xFFFFFFF0)
	if fired {
		t.Fatal("Timer past the wrap fired early")
	}
	s.Dispatch(0x10)
	if !fired {
		t.Error("Timer past the wrap did not fire")
	}
}
