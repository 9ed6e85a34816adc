package stm_test

import (
	"slices"
	"testing"

	"i4.energy/across/nbsock/stm"
)

const (
	evGo stm.EventType = iota + 1
	evStop
)

func TestTrigger(t *testing.T) {
	t.Run("missing target aborts regardless of action", func(t *testing.T) {
		m := stm.New()
		ran := false
		tr := m.Transition(stm.None, evGo, func(*stm.Event) { ran = true })

		e := stm.NewEvent(evGo, nil)
		m.Trigger(tr, e)

		if !ran {
			t.Error("action should run before the target is inspected")
		}
		if e.State() != stm.Aborted {
			t.Errorf("expected aborted, got %v", e.State())
		}
	})

	t.Run("dangling target aborts", func(t *testing.T) {
		m := stm.New()
		tr := m.Transition(stm.None, evGo, nil)
		if err := m.Target(tr, stm.Handle(42)); err != nil {
			t.Fatalf("Target: %v", err)
		}

		e := stm.NewEvent(evGo, nil)
		m.Trigger(tr, e)
		if e.State() != stm.Aborted {
			t.Errorf("expected aborted, got %v", e.State())
		}
	})

	t.Run("chain enters state once with actions in order", func(t *testing.T) {
		m := stm.New()
		var trace []string
		s := m.State("S", func(*stm.Event) { trace = append(trace, "enter S") })
		a := m.Transition(stm.None, evGo, func(*stm.Event) { trace = append(trace, "A") })
		b := m.Transition(stm.None, evGo, func(*stm.Event) { trace = append(trace, "B") })
		mustTarget(t, m, a, b)
		mustTarget(t, m, b, s)

		e := stm.NewEvent(evGo, nil)
		m.Trigger(a, e)

		if !slices.Equal(trace, []string{"A", "B", "enter S"}) {
			t.Errorf("unexpected trace: %v", trace)
		}
		if e.State() != stm.Accepted {
			t.Errorf("expected accepted, got %v", e.State())
		}
		if m.Current() != s {
			t.Errorf("expected current state S")
		}
	})

	t.Run("non-transition handle aborts", func(t *testing.T) {
		m := stm.New()
		s := m.State("S", nil)

		e := stm.NewEvent(evGo, nil)
		m.Trigger(s, e)
		if e.State() != stm.Aborted {
			t.Errorf("expected aborted, got %v", e.State())
		}
		if m.Current() != stm.None {
			t.Error("triggering a state handle must not enter it")
		}
	})

	t.Run("reused event enters target after an abort", func(t *testing.T) {
		m := stm.New()
		s := m.State("S", nil)
		dangling := m.Transition(stm.None, evGo, nil)
		ran := false
		tr := m.Transition(stm.None, evGo, func(*stm.Event) { ran = true })
		mustTarget(t, m, tr, s)

		e := stm.NewEvent(evGo, nil)
		m.Trigger(dangling, e)
		if e.State() != stm.Aborted {
			t.Fatalf("expected aborted, got %v", e.State())
		}

		m.Trigger(tr, e)
		if !ran {
			t.Error("action did not run")
		}
		if e.State() != stm.Accepted {
			t.Errorf("expected accepted, got %v", e.State())
		}
		if m.Current() != s {
			t.Error("expected current state S")
		}
	})

	t.Run("action does not change control flow", func(t *testing.T) {
		m := stm.New()
		s := m.State("S", nil)
		tr := m.Transition(stm.None, evGo, func(e *stm.Event) { e.Data = "touched" })
		mustTarget(t, m, tr, s)

		e := stm.NewEvent(evGo, nil)
		m.Trigger(tr, e)
		if e.State() != stm.Accepted || m.Current() != s {
			t.Errorf("got state %v current %v, want accepted in S", e.State(), m.Current())
		}
		if e.Data != "touched" {
			t.Errorf("action side effect lost: %v", e.Data)
		}
	})

	t.Run("transition cycle is bounded", func(t *testing.T) {
		m := stm.New(stm.WithMaxSteps(10))
		count := 0
		a := m.Transition(stm.None, evGo, func(*stm.Event) { count++ })
		b := m.Transition(stm.None, evGo, nil)
		mustTarget(t, m, a, b)
		mustTarget(t, m, b, a)

		e := stm.NewEvent(evGo, nil)
		m.Trigger(a, e)
		if e.State() != stm.Aborted {
			t.Errorf("expected aborted, got %v", e.State())
		}
		if count == 0 || count > 11 {
			t.Errorf("unexpected action count %d", count)
		}
	})
}

func TestChoice(t *testing.T) {
	build := func() (*stm.Machine, stm.Handle, stm.Handle, stm.Handle) {
		m := stm.New()
		yes := m.State("yes", nil)
		no := m.State("no", nil)
		c := m.Choice(
			stm.Branch{Guard: func(e *stm.Event) bool { return e.Data.(int) > 0 }, Target: yes},
			stm.Branch{Target: no},
		)
		tr := m.Transition(stm.None, evGo, nil)
		mustTarget(t, m, tr, c)
		return m, tr, yes, no
	}

	tests := []struct {
		name string
		data int
		want string
	}{
		{name: "guard holds", data: 1, want: "yes"},
		{name: "else branch", data: 0, want: "no"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, tr, _, _ := build()
			e := stm.NewEvent(evGo, tt.data)
			m.Trigger(tr, e)
			if e.State() != stm.Accepted {
				t.Fatalf("expected accepted, got %v", e.State())
			}
			if got := m.Name(m.Current()); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}

	t.Run("no branch taken aborts", func(t *testing.T) {
		m := stm.New()
		s := m.State("S", nil)
		c := m.Choice(stm.Branch{Guard: func(*stm.Event) bool { return false }, Target: s})
		tr := m.Transition(stm.None, evGo, nil)
		mustTarget(t, m, tr, c)

		e := stm.NewEvent(evGo, nil)
		m.Trigger(tr, e)
		if e.State() != stm.Aborted {
			t.Errorf("expected aborted, got %v", e.State())
		}
	})

	t.Run("branch into transition", func(t *testing.T) {
		m := stm.New()
		s := m.State("S", nil)
		ran := false
		inner := m.Transition(stm.None, evGo, func(*stm.Event) { ran = true })
		mustTarget(t, m, inner, s)
		c := m.Choice(stm.Branch{Target: inner})
		tr := m.Transition(stm.None, evGo, nil)
		mustTarget(t, m, tr, c)

		e := stm.NewEvent(evGo, nil)
		m.Trigger(tr, e)
		if !ran || m.Current() != s || e.State() != stm.Accepted {
			t.Errorf("expected to reach S through inner transition, ran=%v state=%v", ran, e.State())
		}
	})
}

func TestDispatch(t *testing.T) {
	m := stm.New()
	idle := m.State("idle", nil)
	busy := m.State("busy", nil)
	start := m.Transition(idle, evGo, nil)
	stop := m.Transition(busy, evStop, nil)
	mustTarget(t, m, start, busy)
	mustTarget(t, m, stop, idle)

	if err := m.Start(idle); err != nil {
		t.Fatalf("Start: %v", err)
	}

	e := stm.NewEvent(evStop, nil)
	if m.Dispatch(e) {
		t.Error("idle has no stop transition")
	}
	if e.State() != stm.Ignored || m.Current() != idle {
		t.Errorf("expected ignored in idle, got %v in %q", e.State(), m.Name(m.Current()))
	}

	e = stm.NewEvent(evGo, nil)
	if !m.Dispatch(e) || m.Current() != busy {
		t.Errorf("expected busy, got %q", m.Name(m.Current()))
	}

	e = stm.NewEvent(evStop, nil)
	if !m.Dispatch(e) || m.Current() != idle {
		t.Errorf("expected idle, got %q", m.Name(m.Current()))
	}
}

func TestEntryMayTriggerFurther(t *testing.T) {
	m := stm.New()
	done := m.State("done", nil)
	settle := m.Transition(stm.None, evGo, nil)
	mustTarget(t, m, settle, done)
	working := m.State("working", func(e *stm.Event) { m.Trigger(settle, e) })
	begin := m.Transition(stm.None, evGo, nil)
	mustTarget(t, m, begin, working)

	e := stm.NewEvent(evGo, nil)
	m.Trigger(begin, e)
	if m.Current() != done || e.State() != stm.Accepted {
		t.Errorf("expected done, got %q (%v)", m.Name(m.Current()), e.State())
	}
}

func TestStartRejectsNonState(t *testing.T) {
	m := stm.New()
	tr := m.Transition(stm.None, evGo, nil)
	if err := m.Start(tr); err == nil {
		t.Error("expected error starting on a transition")
	}
	if err := m.Target(m.State("S", nil), tr); err == nil {
		t.Error("expected error targeting from a state")
	}
}

func mustTarget(t *testing.T, m *stm.Machine, tr, target stm.Handle) {
	t.Helper()
	if err := m.Target(tr, target); err != nil {
		t.Fatalf("Target(%d, %d): %v", tr, target, err)
	}
}
