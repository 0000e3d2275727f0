package core

import "github.com/valter-silva-au/priority-os/pkg/models"

// taskIDSequence hands out task ids for one session. It starts at
// max(existing ids)+1 and only moves forward, so ids freed by deletion are
// never handed out again.
type taskIDSequence struct {
	next int
}

func newTaskIDSequence(existing []models.Task) *taskIDSequence {
	seq := &taskIDSequence{next: 1}
	for _, t := range existing {
		seq.observe(t.ID)
	}
	return seq
}

// Next returns the next unused id and advances the sequence.
func (s *taskIDSequence) Next() int {
	id := s.next
	s.next++
	return id
}

// observe moves the sequence past id if id has already been used elsewhere.
func (s *taskIDSequence) observe(id int) {
	if id >= s.next {
		s.next = id + 1
	}
}
