package pose

import (
	"math"
	"sort"

	"github.com/sk2233/spinal/skeleton"
)

type occurrence struct {
	At    float64 // 未循环前的时间
	Order int
	Event FiredEvent
}

// firedEvents lists the event keyframes the last AdvanceTime window passed
// over, in the order they were passed. A keyframe fires at most once per window.
func (s *State) firedEvents(skel *skeleton.Skeleton, anim *skeleton.Animation) []FiredEvent {
	if len(anim.Events) == 0 || s.to < s.from {
		return nil
	}
	duration := float64(anim.Duration)
	from, to := float64(s.from), float64(s.to)
	var res []occurrence
	for i, item := range anim.Events {
		at, ok := s.firstOccurrence(float64(item.Time), duration, from, to)
		if !ok {
			continue
		}
		name := ""
		if item.Event >= 0 && item.Event < len(skel.Events) {
			name = skel.Events[item.Event].Name
		}
		res = append(res, occurrence{At: at, Order: i, Event: FiredEvent{
			Name:    name,
			Time:    item.Time,
			Int:     item.Int,
			Float:   item.Float,
			String:  item.String,
			Volume:  item.Volume,
			Balance: item.Balance,
		}})
	}
	sort.SliceStable(res, func(i, j int) bool {
		return res[i].At < res[j].At
	})
	events := make([]FiredEvent, 0, len(res))
	for _, item := range res {
		events = append(events, item.Event)
	}
	return events
}

// firstOccurrence finds the earliest raw time inside the window at which the
// playhead crosses an event keyframe at time t.
func (s *State) firstOccurrence(t, duration, from, to float64) (float64, bool) {
	var period float64
	offsets := []float64{t}
	switch {
	case duration <= 0 || s.loop == Clamp:
		period = 0
	case s.loop == PingPong: // 往返两个方向都会经过
		period = duration * 2
		if t > 0 && t < duration {
			offsets = append(offsets, period-t)
		}
	default:
		period = duration
	}
	best, found := 0.0, false
	for _, offset := range offsets {
		at := offset
		if period > 0 {
			var k float64
			if s.inclusive {
				k = math.Ceil((from - offset) / period)
			} else {
				k = math.Floor((from-offset)/period) + 1
			}
			at = max(k, 0)*period + offset
		}
		if at < from || (at == from && !s.inclusive) || at > to {
			continue
		}
		if !found || at < best {
			best, found = at, true
		}
	}
	return best, found
}
