package pgnspy

// job is one queued game and its position in the input.
type job struct {
	index int
	game  GamePGN
}

// queue hands games to workers in input order. It is filled once and
// closed before any worker starts, so receiving is the only operation that
// crosses workers.
type queue struct {
	jobs chan job
}

func newQueue(games []GamePGN) *queue {
	q := &queue{jobs: make(chan job, len(games))}
	for i, g := range games {
		q.jobs <- job{index: i, game: g}
	}
	close(q.jobs)
	return q
}

// next returns the oldest queued game, or false once the queue is empty.
func (q *queue) next() (job, bool) {
	j, ok := <-q.jobs
	return j, ok
}

// drain removes and returns every game still queued.
func (q *queue) drain() []job {
	var rest []job
	for j := range q.jobs {
		rest = append(rest, j)
	}
	return rest
}
